package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Veo video generation
// Submitting, polling and fetching are separate calls so the caller owns the
// poll loop (interval, attempt ceiling, cancellation).
// ---------------------------------------------------------------------------

const defaultVeoModel = "veo-2.0-generate-001"

// ErrNoVideo is returned when a finished operation carries nothing to download.
var ErrNoVideo = errors.New("video generation finished without a downloadable video")

type VeoService struct {
	client *genai.Client
	model  string
}

// VideoRequest describes one video job.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Model       string // empty uses the service default
	ImageData   []byte // optional reference image
	ImageMIME   string
}

// VideoOperation is a snapshot of a long-running video job.
type VideoOperation struct {
	Name        string
	Done        bool
	Error       string // set when the backend reported a failure
	DownloadURI string // set when done and a video is available

	op    *genai.GenerateVideosOperation
	video *genai.Video
}

// Usable reports whether the finished operation has something to fetch.
func (o *VideoOperation) Usable() bool {
	if o.video != nil && len(o.video.VideoBytes) > 0 {
		return true
	}
	return o.DownloadURI != ""
}

func NewVeoService(ctx context.Context, apiKey, model string) (*VeoService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if model == "" {
		model = defaultVeoModel
	}
	return &VeoService{client: client, model: model}, nil
}

// SubmitVideo starts a generation job and returns its first snapshot.
func (s *VeoService) SubmitVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	model := req.Model
	if model == "" {
		model = s.model
	}

	var image *genai.Image
	if len(req.ImageData) > 0 {
		image = &genai.Image{
			ImageBytes: req.ImageData,
			MIMEType:   req.ImageMIME,
		}
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:    req.AspectRatio,
		NumberOfVideos: 1,
	}

	log.Printf("[Veo] Starting video generation (model=%s, aspect=%s, promptLen=%d, image=%v)",
		model, req.AspectRatio, len(req.Prompt), image != nil)

	op, err := s.client.Models.GenerateVideos(ctx, model, req.Prompt, image, config)
	if err != nil {
		return nil, fmt.Errorf("Failed to start video generation. %w", err)
	}

	log.Printf("[Veo] Operation started: %s", op.Name)
	return snapshot(op), nil
}

// PollVideo re-fetches the operation status once.
func (s *VeoService) PollVideo(ctx context.Context, current *VideoOperation) (*VideoOperation, error) {
	if current == nil || current.op == nil {
		return nil, fmt.Errorf("operation handle is missing")
	}

	op, err := s.client.Operations.GetVideosOperation(ctx, current.op, nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to poll video status. %w", err)
	}
	return snapshot(op), nil
}

// FetchVideo downloads the finished video bytes.
func (s *VeoService) FetchVideo(ctx context.Context, done *VideoOperation) ([]byte, error) {
	if done == nil || !done.Usable() {
		return nil, ErrNoVideo
	}
	if done.video != nil && len(done.video.VideoBytes) > 0 {
		return done.video.VideoBytes, nil
	}

	video := done.video
	if video == nil {
		video = &genai.Video{URI: done.DownloadURI}
	}

	data, err := s.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to download video file. %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded video is empty (0 bytes)")
	}

	log.Printf("[Veo] Downloaded video (%d bytes)", len(data))
	return data, nil
}

func snapshot(op *genai.GenerateVideosOperation) *VideoOperation {
	out := &VideoOperation{Name: op.Name, Done: op.Done, op: op}
	if !op.Done {
		return out
	}

	if len(op.Error) > 0 {
		out.Error = fmt.Sprintf("Video generation failed with code %v: %v", op.Error["code"], op.Error["message"])
		return out
	}

	if op.Response == nil {
		if op.Metadata != nil {
			metaJSON, _ := json.Marshal(op.Metadata)
			log.Printf("[Veo] Operation %s finished without response, metadata: %s", op.Name, string(metaJSON))
		}
		return out
	}

	if op.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(op.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(op.Response.RAIMediaFilteredReasons, ", ")
		}
		out.Error = fmt.Sprintf("video blocked by safety filters: %d video(s) filtered, reasons: %s", op.Response.RAIMediaFilteredCount, reasons)
		return out
	}

	if len(op.Response.GeneratedVideos) > 0 && op.Response.GeneratedVideos[0].Video != nil {
		out.video = op.Response.GeneratedVideos[0].Video
		out.DownloadURI = out.video.URI
	}
	return out
}
