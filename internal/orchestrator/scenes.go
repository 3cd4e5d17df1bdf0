package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/storage"
	"github.com/bobarin/storyboard/internal/workspace"
	"github.com/google/uuid"
)

// RegenerateScene replaces the text of one scene in the active project and
// invalidates its media. Only one scene regenerates at a time.
func (o *Orchestrator) RegenerateScene(ctx context.Context, sceneID string) error {
	p := o.ws.ActiveProject()
	if _, err := findScene(&p, sceneID); err != nil {
		return err
	}

	o.mu.Lock()
	if o.regeneratingSceneID != "" {
		o.mu.Unlock()
		return ErrRegenerationInProgress
	}
	o.regeneratingSceneID = sceneID
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.regeneratingSceneID = ""
		o.touch()
		o.mu.Unlock()
	}()

	draft, err := o.b.Script.RegenerateScene(ctx, services.RegenerateRequest{
		SceneID:      sceneID,
		Brief:        p.MainBrief,
		Background:   p.BackgroundImage,
		ObjectImages: p.ObjectImages,
		Style:        p.DirectorStyle,
		Overture:     p.GeneratedPrompts.Overture,
		Scenes:       p.GeneratedPrompts.Scenes,
	})
	if err != nil {
		log.Printf("[Orchestrator] Scene %s regeneration failed: %v", sceneID, err)
		o.setError(p.ID, err)
		return err
	}

	_, err = o.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		sc, err := findScene(p, sceneID)
		if err != nil {
			return err
		}
		sc.English = draft.English
		sc.Indonesian = draft.Indonesian
		if draft.VoiceOver != "" {
			sc.VoiceOver = draft.VoiceOver
		}
		sc.ResetMedia()
		return nil
	})
	if err != nil {
		log.Printf("[Orchestrator] Discarding regenerated scene %s: %v", sceneID, err)
	}
	return err
}

// Scene media

func mediaStatus(sc *models.Scene, kind models.JobType) models.GenerationStatus {
	if kind == models.JobTypeSceneAudio {
		return sc.AudioGenerationStatus
	}
	return sc.VideoGenerationStatus
}

func setMedia(sc *models.Scene, kind models.JobType, status models.GenerationStatus, url string) {
	if kind == models.JobTypeSceneAudio {
		sc.SetAudio(status, url)
		return
	}
	sc.SetVideo(status, url)
}

// BeginSceneMedia moves a scene's video or audio to GENERATING. The render
// itself runs later through RunSceneMedia.
func (o *Orchestrator) BeginSceneMedia(ctx context.Context, kind models.JobType, projectID, sceneID string) error {
	_, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		sc, err := findScene(p, sceneID)
		if err != nil {
			return err
		}
		if mediaStatus(sc, kind) == models.StatusGenerating {
			return ErrMediaInProgress
		}
		if kind == models.JobTypeSceneAudio && strings.TrimSpace(sc.VoiceOver) == "" {
			return ErrNoVoiceOver
		}
		setMedia(sc, kind, models.StatusGenerating, "")
		return nil
	})
	return err
}

// RunSceneMedia renders a scene's video or audio and settles its status.
// The result is dropped if the scene was removed or its media reset while
// rendering.
func (o *Orchestrator) RunSceneMedia(ctx context.Context, kind models.JobType, projectID, sceneID string) error {
	p, ok := o.ws.Project(projectID)
	if !ok {
		return workspace.ErrProjectNotFound
	}
	sc, err := findScene(&p, sceneID)
	if err != nil {
		return err
	}
	if mediaStatus(sc, kind) != models.StatusGenerating {
		log.Printf("[Orchestrator] Skipping %s for scene %s: no longer requested", kind, sceneID)
		return ErrStaleResult
	}

	var url string
	switch kind {
	case models.JobTypeSceneVideo:
		url, err = o.renderSceneVideo(ctx, projectID, sc)
	case models.JobTypeSceneAudio:
		url, err = o.renderSceneAudio(ctx, projectID, sc)
	default:
		err = fmt.Errorf("unknown media kind: %s", kind)
	}

	if err != nil {
		o.FailSceneMedia(ctx, kind, projectID, sceneID, err)
		return err
	}

	log.Printf("[Orchestrator] %s ready for scene %s: %s", kind, sceneID, url)
	return o.settleScene(ctx, kind, projectID, sceneID, models.StatusSuccess, url)
}

// FailSceneMedia marks a GENERATING scene ERROR. The failure shows on the
// scene's status only; cause is logged.
func (o *Orchestrator) FailSceneMedia(ctx context.Context, kind models.JobType, projectID, sceneID string, cause error) {
	log.Printf("[Orchestrator] %s for scene %s failed: %v", kind, sceneID, cause)
	if err := o.settleScene(ctx, kind, projectID, sceneID, models.StatusError, ""); err != nil {
		log.Printf("[Orchestrator] Could not mark %s failed for scene %s: %v", kind, sceneID, err)
	}
}

// ResetInterruptedMedia marks scene media still GENERATING as ERROR. Called
// at startup when queued jobs did not survive the previous process.
func (o *Orchestrator) ResetInterruptedMedia(ctx context.Context) int {
	n := 0
	for _, p := range o.ws.Projects() {
		if p.GeneratedPrompts == nil {
			continue
		}
		_, err := o.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
			for i := range p.GeneratedPrompts.Scenes {
				sc := &p.GeneratedPrompts.Scenes[i]
				for _, kind := range []models.JobType{models.JobTypeSceneVideo, models.JobTypeSceneAudio} {
					if mediaStatus(sc, kind) == models.StatusGenerating {
						setMedia(sc, kind, models.StatusError, "")
						n++
					}
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("[Orchestrator] Could not reset media for project %s: %v", p.ID, err)
		}
	}
	if n > 0 {
		log.Printf("[Orchestrator] Marked %d interrupted media job(s) as failed", n)
	}
	return n
}

func (o *Orchestrator) settleScene(ctx context.Context, kind models.JobType, projectID, sceneID string, status models.GenerationStatus, url string) error {
	_, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		sc, err := findScene(p, sceneID)
		if err != nil {
			return err
		}
		if mediaStatus(sc, kind) != models.StatusGenerating {
			return ErrStaleResult
		}
		setMedia(sc, kind, status, url)
		return nil
	})
	if err != nil {
		log.Printf("[Orchestrator] Discarding %s result for scene %s: %v", kind, sceneID, err)
	}
	return err
}

func (o *Orchestrator) renderSceneVideo(ctx context.Context, projectID string, sc *models.Scene) (string, error) {
	filename := fmt.Sprintf("scene-%s-%s.mp4", sc.ID, uuid.NewString()[:8])
	return o.renderVideo(ctx, projectID, filename, services.VideoRequest{
		Prompt:      sc.English,
		AspectRatio: string(o.opts.AspectRatio),
	})
}

func (o *Orchestrator) renderSceneAudio(ctx context.Context, projectID string, sc *models.Scene) (string, error) {
	if strings.TrimSpace(sc.VoiceOver) == "" {
		return "", ErrNoVoiceOver
	}

	resp, err := o.b.Speech.GenerateSpeech(ctx, sc.VoiceOver)
	if err != nil {
		return "", err
	}

	format := resp.Format
	if format == "" {
		format = "mp3"
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	filename := fmt.Sprintf("scene-%s-%s.%s", sc.ID, uuid.NewString()[:8], format)
	return o.b.Media.Put(ctx, storage.ObjectPath(projectID, filename), resp.AudioData, contentType)
}

// GenerateSceneVideo begins and runs a scene video in one call.
func (o *Orchestrator) GenerateSceneVideo(ctx context.Context, projectID, sceneID string) error {
	if err := o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, projectID, sceneID); err != nil {
		return err
	}
	return o.RunSceneMedia(ctx, models.JobTypeSceneVideo, projectID, sceneID)
}

func (o *Orchestrator) GenerateSceneAudio(ctx context.Context, projectID, sceneID string) error {
	if err := o.BeginSceneMedia(ctx, models.JobTypeSceneAudio, projectID, sceneID); err != nil {
		return err
	}
	return o.RunSceneMedia(ctx, models.JobTypeSceneAudio, projectID, sceneID)
}

// Text edits

// SyncOverture translates an edited Indonesian overture and stores both
// languages together.
func (o *Orchestrator) SyncOverture(ctx context.Context, indonesian string) error {
	p := o.ws.ActiveProject()
	if p.GeneratedPrompts == nil {
		return ErrNoScript
	}

	o.mu.Lock()
	o.syncingOverture = true
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.syncingOverture = false
		o.touch()
		o.mu.Unlock()
	}()

	english, err := o.b.Text.Translate(ctx, indonesian, services.Indonesian, services.English)
	if err != nil {
		o.setError(p.ID, err)
		return err
	}

	_, err = o.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		if p.GeneratedPrompts == nil {
			return ErrNoScript
		}
		p.GeneratedPrompts.Overture = models.BilingualText{English: english, Indonesian: indonesian}
		return nil
	})
	return err
}

// EditScene applies a text edit to a scene of the active project. A plain
// edit keeps rendered media. A synced edit translates the last edited
// language into the other, commits both, and resets media.
func (o *Orchestrator) EditScene(ctx context.Context, sceneID string, req models.SceneEditRequest) error {
	projectID := o.ws.ActiveProjectID()
	if !req.Sync {
		return o.updateScene(ctx, projectID, sceneID, req, false)
	}

	from := services.Language(req.LastEdited)
	var source *string
	switch from {
	case services.English:
		source = req.English
	case services.Indonesian:
		source = req.Indonesian
	default:
		return fmt.Errorf("%w: lastEdited must be %q or %q", ErrInvalidInput, services.English, services.Indonesian)
	}

	p, ok := o.ws.Project(projectID)
	if !ok {
		return workspace.ErrProjectNotFound
	}
	sc, err := findScene(&p, sceneID)
	if err != nil {
		return err
	}
	text := sc.English
	if from == services.Indonesian {
		text = sc.Indonesian
	}
	if source != nil {
		text = *source
	}

	o.mu.Lock()
	o.syncingSceneID = sceneID
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.syncingSceneID = ""
		o.touch()
		o.mu.Unlock()
	}()

	to := services.Indonesian
	if from == services.Indonesian {
		to = services.English
	}

	translated, err := o.b.Text.Translate(ctx, text, from, to)
	if err != nil {
		// keep the user's text even if the other language could not follow
		o.setError(p.ID, err)
		if uerr := o.updateScene(ctx, projectID, sceneID, req, false); uerr != nil {
			log.Printf("[Orchestrator] Could not save scene %s edit: %v", sceneID, uerr)
		}
		return err
	}

	if from == services.English {
		req.English, req.Indonesian = &text, &translated
	} else {
		req.English, req.Indonesian = &translated, &text
	}
	return o.updateScene(ctx, projectID, sceneID, req, true)
}

// updateScene writes to the project the edit started on, even if another
// project became active meanwhile.
func (o *Orchestrator) updateScene(ctx context.Context, projectID, sceneID string, req models.SceneEditRequest, reset bool) error {
	_, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		sc, err := findScene(p, sceneID)
		if err != nil {
			return err
		}
		if req.English != nil {
			sc.English = *req.English
		}
		if req.Indonesian != nil {
			sc.Indonesian = *req.Indonesian
		}
		if req.VoiceOver != nil {
			sc.VoiceOver = *req.VoiceOver
		}
		if reset {
			sc.ResetMedia()
		}
		return nil
	})
	return err
}

// DeleteScene removes a scene from the active project's script.
func (o *Orchestrator) DeleteScene(ctx context.Context, sceneID string) error {
	id := o.ws.ActiveProjectID()
	_, err := o.ws.UpdateProject(ctx, id, func(p *models.Project) error {
		if p.GeneratedPrompts == nil {
			return ErrNoScript
		}
		i := p.GeneratedPrompts.SceneIndex(sceneID)
		if i < 0 {
			return ErrSceneNotFound
		}
		scenes := p.GeneratedPrompts.Scenes
		p.GeneratedPrompts.Scenes = append(scenes[:i:i], scenes[i+1:]...)
		return nil
	})
	if err == nil {
		log.Printf("[Orchestrator] Deleted scene %s from project %s", sceneID, id)
	}
	return err
}

