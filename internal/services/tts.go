package services

import (
	"context"
	"strings"
)

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData   []byte
	DurationMs  int
	Format      string // "mp3", "wav", etc.
	ContentType string
}

// TTSService is implemented by every narration provider.
type TTSService interface {
	GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error)
}

// estimateAudioDuration guesses narration length from word count.
func estimateAudioDuration(text string, speed float64) int {
	words := len(strings.Fields(text))
	baseWPM := 140.0 // narration baseline, slightly slower than conversation

	minutes := float64(words) / (baseWPM * speed)
	return int(minutes * 60 * 1000)
}
