package orchestrator

import (
	"context"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
)

// dropStaleConversation forgets the chat handle when the active session is
// no longer the one it was opened for.
func (o *Orchestrator) dropStaleConversation() {
	active := o.ws.ActiveChatID()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conv != nil && o.conv.sessionID != active {
		log.Printf("[Orchestrator] Dropping chat handle for session %s", o.conv.sessionID)
		o.conv = nil
	}
	o.touch()
}

func (o *Orchestrator) setDialogue(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dialogueMode = enabled
	o.touch()
}

// SetDialogueMode shows or hides the chat composer.
func (o *Orchestrator) SetDialogueMode(enabled bool) {
	o.setDialogue(enabled)
}

// NewChat starts an empty session, selects it, and enters dialogue mode.
func (o *Orchestrator) NewChat(ctx context.Context) models.ChatSession {
	c := o.ws.CreateChat(ctx)
	o.dropStaleConversation()
	o.setDialogue(true)
	return c
}

func (o *Orchestrator) SelectChat(ctx context.Context, id string) error {
	if err := o.ws.SelectChat(ctx, id); err != nil {
		return err
	}
	o.dropStaleConversation()
	o.setDialogue(true)
	return nil
}

func (o *Orchestrator) RenameChat(ctx context.Context, id, title string) error {
	return o.ws.RenameChat(ctx, id, title)
}

func (o *Orchestrator) PinChat(ctx context.Context, id string, pinned bool) error {
	return o.ws.PinChat(ctx, id, pinned)
}

// DeleteChat removes a session. The workspace keeps at least one session
// and a valid active selection.
func (o *Orchestrator) DeleteChat(ctx context.Context, id string) error {
	if err := o.ws.DeleteChat(ctx, id); err != nil {
		return err
	}
	o.dropStaleConversation()
	return nil
}

// conversation returns the handle for the session, opening one seeded with
// the prior history if needed.
func (o *Orchestrator) conversation(ctx context.Context, sessionID string, history []models.ChatMessage) (*conversation, error) {
	o.mu.Lock()
	if o.conv != nil && o.conv.sessionID == sessionID {
		c := o.conv
		o.mu.Unlock()
		return c, nil
	}
	o.mu.Unlock()

	handle, err := o.b.Chat.StartChat(ctx, history)
	if err != nil {
		return nil, err
	}
	c := &conversation{sessionID: sessionID, handle: handle}

	o.mu.Lock()
	o.conv = c
	o.mu.Unlock()
	return c, nil
}

// SendChatMessage appends the user's message to the active session, sends
// it to the co-pilot and appends the reply. On failure the session history
// is rolled back to what it was before the call.
func (o *Orchestrator) SendChatMessage(ctx context.Context, text string) (models.ChatSession, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatSession{}, ErrEmptyMessage
	}

	o.mu.Lock()
	if o.chatting {
		o.mu.Unlock()
		return models.ChatSession{}, ErrChatBusy
	}
	o.chatting = true
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.chatting = false
		o.touch()
		o.mu.Unlock()
	}()

	p := o.ws.ActiveProject()
	session := o.ws.ActiveChat()
	snapshot := session.History

	if _, err := o.ws.UpdateChat(ctx, session.ID, func(c *models.ChatSession) error {
		c.History = append(c.History, models.ChatMessage{Role: models.ChatRoleUser, Text: text})
		return nil
	}); err != nil {
		return models.ChatSession{}, err
	}

	// a chat renamed before its first message keeps its name
	if session.UserMessageCount() == 0 && session.Title == models.DefaultChatTitle {
		o.nameChat(session.ID, text)
	}

	reply, err := o.exchange(ctx, session.ID, snapshot, services.ChatTurn{
		Text:         text,
		Background:   p.BackgroundImage,
		ObjectImages: p.ObjectImages,
	})
	if err != nil {
		log.Printf("[Orchestrator] Chat message failed for session %s: %v", session.ID, err)
		o.setError(p.ID, err)
		if _, rerr := o.ws.UpdateChat(ctx, session.ID, func(c *models.ChatSession) error {
			c.History = snapshot
			return nil
		}); rerr != nil {
			log.Printf("[Orchestrator] Could not roll back session %s: %v", session.ID, rerr)
		}
		return models.ChatSession{}, err
	}

	return o.ws.UpdateChat(ctx, session.ID, func(c *models.ChatSession) error {
		c.History = append(c.History, models.ChatMessage{Role: models.ChatRoleModel, Text: reply})
		return nil
	})
}

// exchange sends one turn. Images go only with the first turn of a handle;
// later turns rely on the backend's retained context.
func (o *Orchestrator) exchange(ctx context.Context, sessionID string, history []models.ChatMessage, turn services.ChatTurn) (string, error) {
	conv, err := o.conversation(ctx, sessionID, history)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	first := conv.turns == 0
	o.mu.Unlock()

	reply, err := conv.handle.Send(ctx, turn, first)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	conv.turns++
	o.mu.Unlock()
	return reply, nil
}

// nameChat titles a session from its first message in the background.
// Failures keep the default title.
func (o *Orchestrator) nameChat(sessionID, firstMessage string) {
	o.titles.Add(1)
	go func() {
		defer o.titles.Done()

		ctx, cancel := context.WithTimeout(context.Background(), o.opts.TitleTimeout)
		defer cancel()

		title, err := o.b.Text.ChatTitle(ctx, firstMessage)
		if err != nil {
			log.Printf("[Orchestrator] Chat title failed for session %s: %v", sessionID, err)
			return
		}
		if err := o.ws.RenameChat(ctx, sessionID, title); err != nil {
			log.Printf("[Orchestrator] Could not rename session %s: %v", sessionID, err)
		}
	}()
}

// FinalizeChat summarizes the active session into the active project's
// brief and leaves dialogue mode.
func (o *Orchestrator) FinalizeChat(ctx context.Context) error {
	session := o.ws.ActiveChat()
	if len(session.History) == 0 {
		return ErrEmptyHistory
	}
	projectID := o.ws.ActiveProjectID()

	o.mu.Lock()
	o.finalizing = true
	o.touch()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.finalizing = false
		o.touch()
		o.mu.Unlock()
	}()

	summary, err := o.b.Text.SummarizeChat(ctx, session.History)
	if err != nil {
		o.setError(projectID, err)
		return err
	}

	if _, err := o.ws.UpdateProject(ctx, projectID, func(p *models.Project) error {
		p.MainBrief = summary
		return nil
	}); err != nil {
		return err
	}

	o.setDialogue(false)
	log.Printf("[Orchestrator] Finalized session %s into project %s", session.ID, projectID)
	return nil
}
