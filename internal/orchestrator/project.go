package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/google/uuid"
)

// Project lifecycle

func (o *Orchestrator) CreateProject(ctx context.Context) models.Project {
	return o.ws.CreateProject(ctx)
}

func (o *Orchestrator) SelectProject(ctx context.Context, id string) error {
	return o.ws.SelectProject(ctx, id)
}

func (o *Orchestrator) RenameProject(ctx context.Context, id, name string) error {
	return o.ws.RenameProject(ctx, id, name)
}

// DeleteProject removes a project and forgets its run state. An in-flight
// result for it has nowhere to land and is dropped.
func (o *Orchestrator) DeleteProject(ctx context.Context, id string) error {
	if err := o.ws.DeleteProject(ctx, id); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.runs[id]; ok {
		// keep the token moving so a late result cannot match
		r.token++
		r.status = models.StatusIdle
		r.err = ""
	}
	o.touch()
	return nil
}

// SwitchMode is a hard reset of generated output. Inputs such as the brief
// and the single prompt survive.
func (o *Orchestrator) SwitchMode(ctx context.Context, mode models.GenerationMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	id := o.ws.ActiveProjectID()

	o.mu.Lock()
	r := o.run(id)
	r.token++
	r.status = models.StatusIdle
	r.err = ""
	o.dialogueMode = false
	o.touch()
	o.mu.Unlock()

	_, err := o.ws.UpdateProject(ctx, id, func(p *models.Project) error {
		p.Mode = mode
		p.GeneratedVideoURL = ""
		p.GeneratedPrompts = nil
		p.DirectorStyle = models.StyleNone
		return nil
	})
	if err == nil {
		log.Printf("[Orchestrator] Project %s switched to %s mode", id, mode)
	}
	return err
}

// Input edits on the active project

func (o *Orchestrator) updateActive(ctx context.Context, fn func(p *models.Project) error) (models.Project, error) {
	return o.ws.UpdateProject(ctx, o.ws.ActiveProjectID(), fn)
}

func (o *Orchestrator) SetBrief(ctx context.Context, brief string) error {
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		p.MainBrief = brief
		return nil
	})
	return err
}

func (o *Orchestrator) SetStyle(ctx context.Context, style models.DirectorStyle) error {
	if !style.Valid() {
		return fmt.Errorf("%w: unknown director style %q", ErrInvalidInput, style)
	}
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		p.DirectorStyle = style
		return nil
	})
	return err
}

// SetBackground replaces the background image. nil clears it.
func (o *Orchestrator) SetBackground(ctx context.Context, img *models.BaseImage) error {
	if img != nil {
		if err := checkImage(img); err != nil {
			return err
		}
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
	}
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		p.BackgroundImage = img
		return nil
	})
	return err
}

// AddObjectImage appends a role-tagged image, up to MaxObjectImages.
func (o *Orchestrator) AddObjectImage(ctx context.Context, img models.BaseImage, role models.ObjectRole) (models.StoryboardImage, error) {
	if err := checkImage(&img); err != nil {
		return models.StoryboardImage{}, err
	}
	if role == "" {
		role = models.RolePerson
	}
	if !role.Valid() {
		return models.StoryboardImage{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}

	added := models.StoryboardImage{BaseImage: img, Role: role}
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		if len(p.ObjectImages) >= models.MaxObjectImages {
			return ErrTooManyImages
		}
		p.ObjectImages = append(p.ObjectImages, added)
		return nil
	})
	if err != nil {
		return models.StoryboardImage{}, err
	}
	return added, nil
}

func (o *Orchestrator) RemoveObjectImage(ctx context.Context, imageID string) error {
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		for i := range p.ObjectImages {
			if p.ObjectImages[i].ID == imageID {
				p.ObjectImages = append(p.ObjectImages[:i:i], p.ObjectImages[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: image %s not found", ErrInvalidInput, imageID)
	})
	return err
}

func (o *Orchestrator) SetImageRole(ctx context.Context, imageID string, role models.ObjectRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	_, err := o.updateActive(ctx, func(p *models.Project) error {
		for i := range p.ObjectImages {
			if p.ObjectImages[i].ID == imageID {
				p.ObjectImages[i].Role = role
				return nil
			}
		}
		return fmt.Errorf("%w: image %s not found", ErrInvalidInput, imageID)
	})
	return err
}

// UpdateSingle edits the single-mode inputs. Nil fields are left alone.
func (o *Orchestrator) UpdateSingle(ctx context.Context, req models.SingleRequest) error {
	if req.VideoModel != nil && !req.VideoModel.Valid() {
		return fmt.Errorf("%w: unknown video model %q", ErrInvalidInput, *req.VideoModel)
	}
	if req.ReferenceImage != nil {
		if err := checkImage(req.ReferenceImage); err != nil {
			return err
		}
		if req.ReferenceImage.ID == "" {
			req.ReferenceImage.ID = uuid.NewString()
		}
	}

	_, err := o.updateActive(ctx, func(p *models.Project) error {
		if req.Prompt != nil {
			p.SinglePrompt = *req.Prompt
		}
		if req.VideoModel != nil {
			p.VideoModel = *req.VideoModel
		}
		if req.ClearReference {
			p.SingleReferenceImage = nil
		}
		if req.ReferenceImage != nil {
			p.SingleReferenceImage = req.ReferenceImage
		}
		return nil
	})
	return err
}

// CreativeSpark asks for a short idea and appends it to the active brief.
func (o *Orchestrator) CreativeSpark(ctx context.Context) (string, error) {
	p := o.ws.ActiveProject()
	if strings.TrimSpace(p.MainBrief) == "" {
		return "", ErrEmptyBrief
	}

	o.mu.Lock()
	o.sparking = true
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.sparking = false
		o.touch()
		o.mu.Unlock()
	}()

	spark, err := o.b.Text.CreativeSpark(ctx, p.MainBrief)
	if err != nil {
		o.setError(p.ID, err)
		return "", err
	}

	_, err = o.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		p.MainBrief = p.MainBrief + "\n\n" + spark
		return nil
	})
	if err != nil {
		return "", err
	}
	return spark, nil
}

func checkImage(img *models.BaseImage) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: image data is empty", ErrInvalidInput)
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return fmt.Errorf("%w: unsupported image type %q", ErrInvalidInput, img.MIMEType)
	}
	return nil
}

func (o *Orchestrator) Project(id string) (models.Project, bool) {
	return o.ws.Project(id)
}

func (o *Orchestrator) ActiveProject() models.Project {
	return o.ws.ActiveProject()
}

func (o *Orchestrator) ActiveChat() models.ChatSession {
	return o.ws.ActiveChat()
}
