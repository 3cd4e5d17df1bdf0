package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const translateTTSURL = "https://translate.google.com/translate_tts"

// TranslateTTS reads text aloud through the public translate endpoint. It
// needs no key and is only meant for development.
type TranslateTTS struct {
	baseURL  string
	language string
	client   *http.Client
}

var _ TTSService = (*TranslateTTS)(nil)

func NewTranslateTTS() *TranslateTTS {
	return &TranslateTTS{
		baseURL:  translateTTSURL,
		language: "id-ID",
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *TranslateTTS) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("tl", t.language)
	q.Set("client", "tw-ob")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create narration request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate audio narration. %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Failed to generate audio narration. status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read narration audio: %w", err)
	}

	log.Printf("[TranslateTTS] Narration generated (%d bytes)", len(data))
	return &TTSResponse{
		AudioData:   data,
		DurationMs:  estimateAudioDuration(text, 1.0),
		Format:      "mp3",
		ContentType: "audio/mpeg",
	}, nil
}
