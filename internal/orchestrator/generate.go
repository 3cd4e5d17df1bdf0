package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/storage"
	"github.com/bobarin/storyboard/internal/workspace"
	"github.com/google/uuid"
)

// Generate runs the active project's primary action: the script in
// STORYBOARD mode, the video in SINGLE mode.
func (o *Orchestrator) Generate(ctx context.Context) error {
	p := o.ws.ActiveProject()
	if p.Mode == models.ModeSingle {
		return o.GenerateSingleVideo(ctx, p.ID)
	}
	return o.GenerateScript(ctx, p.ID)
}

// beginRun marks a project GENERATING and returns the token that a result
// must still hold to be merged.
func (o *Orchestrator) beginRun(projectID string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.run(projectID)
	r.token++
	r.status = models.StatusGenerating
	r.err = ""
	o.touch()
	return r.token
}

// settle records the outcome of a run if the token is still current.
// Caller holds o.mu.
func (o *Orchestrator) settle(projectID string, token uint64, status models.GenerationStatus, msg string) bool {
	r := o.run(projectID)
	if r.token != token {
		return false
	}
	r.status = status
	r.err = msg
	o.touch()
	return true
}

func (o *Orchestrator) failRun(projectID string, token uint64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.settle(projectID, token, models.StatusError, err.Error()) {
		log.Printf("[Orchestrator] Dropping stale failure for project %s: %v", projectID, err)
	}
}

// GenerateScript asks the script writer for a full storyboard. Prior results
// are cleared as soon as generation starts.
func (o *Orchestrator) GenerateScript(ctx context.Context, projectID string) error {
	if _, ok := o.ws.Project(projectID); !ok {
		return workspace.ErrProjectNotFound
	}
	token := o.beginRun(projectID)

	p, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		p.GeneratedPrompts = nil
		p.GeneratedVideoURL = ""
		return nil
	})
	if err != nil {
		o.failRun(projectID, token, err)
		return err
	}

	log.Printf("[Orchestrator] Generating script for project %s", projectID)

	gp, err := o.b.Script.GenerateStoryboard(ctx, services.ScriptRequest{
		Brief:        p.MainBrief,
		Background:   p.BackgroundImage,
		ObjectImages: p.ObjectImages,
		Style:        p.DirectorStyle,
	})
	if err != nil {
		log.Printf("[Orchestrator] Script generation failed for project %s: %v", projectID, err)
		o.failRun(projectID, token, err)
		return err
	}

	return o.commitRun(ctx, projectID, token, func(p *models.Project) {
		p.GeneratedPrompts = gp
	})
}

// commitRun merges a finished run into its originating project, unless a
// mode switch or a newer run has superseded it.
func (o *Orchestrator) commitRun(ctx context.Context, projectID string, token uint64, apply func(p *models.Project)) error {
	_, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.settle(projectID, token, models.StatusSuccess, "") {
			return ErrStaleResult
		}
		apply(p)
		return nil
	})
	if errors.Is(err, ErrStaleResult) {
		log.Printf("[Orchestrator] Discarding stale result for project %s", projectID)
	}
	return err
}

// GenerateSingleVideo renders the single-mode prompt (and optional reference
// image) into one video.
func (o *Orchestrator) GenerateSingleVideo(ctx context.Context, projectID string) error {
	p, ok := o.ws.Project(projectID)
	if !ok {
		return workspace.ErrProjectNotFound
	}
	if strings.TrimSpace(p.SinglePrompt) == "" {
		return ErrEmptyPrompt
	}

	token := o.beginRun(projectID)

	if _, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		p.GeneratedVideoURL = ""
		return nil
	}); err != nil {
		o.failRun(projectID, token, err)
		return err
	}

	req := services.VideoRequest{
		Prompt:      p.SinglePrompt,
		AspectRatio: string(o.opts.AspectRatio),
		Model:       string(p.VideoModel),
	}
	if p.SingleReferenceImage != nil {
		req.ImageData = p.SingleReferenceImage.Data
		req.ImageMIME = p.SingleReferenceImage.MIMEType
	}

	url, err := o.renderVideo(ctx, projectID, "single-"+uuid.NewString()+".mp4", req)
	if err != nil {
		log.Printf("[Orchestrator] Single video failed for project %s: %v", projectID, err)
		o.failRun(projectID, token, err)
		return err
	}

	return o.commitRun(ctx, projectID, token, func(p *models.Project) {
		p.GeneratedVideoURL = url
	})
}

// renderVideo submits a job, polls it to completion, downloads the result
// and stores it under the project.
func (o *Orchestrator) renderVideo(ctx context.Context, projectID, filename string, req services.VideoRequest) (string, error) {
	op, err := o.b.Video.SubmitVideo(ctx, req)
	if err != nil {
		return "", err
	}

	op, err = o.pollUntilDone(ctx, op)
	if err != nil {
		return "", err
	}

	data, err := o.b.Video.FetchVideo(ctx, op)
	if err != nil {
		return "", err
	}

	return o.b.Media.Put(ctx, storage.ObjectPath(projectID, filename), data, "video/mp4")
}

// pollUntilDone waits PollInterval between polls. It stops on cancellation,
// a poll error, or after MaxPolls attempts when MaxPolls is set.
func (o *Orchestrator) pollUntilDone(ctx context.Context, op *services.VideoOperation) (*services.VideoOperation, error) {
	attempts := 0
	for !op.Done {
		if o.opts.MaxPolls > 0 && attempts >= o.opts.MaxPolls {
			return nil, ErrPollLimit
		}
		if err := o.opts.Sleep(ctx, o.opts.PollInterval); err != nil {
			return nil, err
		}
		attempts++

		next, err := o.b.Video.PollVideo(ctx, op)
		if err != nil {
			return nil, err
		}
		op = next
		log.Printf("[Orchestrator] Poll %d for operation %s (done=%v)", attempts, op.Name, op.Done)
	}

	if op.Error != "" {
		return nil, errors.New(op.Error)
	}
	if !op.Usable() {
		return nil, services.ErrNoVideo
	}
	return op, nil
}
