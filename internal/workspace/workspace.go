package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/store"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrChatNotFound    = errors.New("chat session not found")
)

// Workspace owns the project and chat collections and their active
// selections. After every mutation both collections are non-empty and both
// active ids resolve to a member.
//
// Collections are copy-on-write: a mutation builds a new slice with one
// replaced member, so slices handed out by readers are never modified.
type Workspace struct {
	mu    sync.RWMutex
	store *store.Store

	projects        []models.Project
	activeProjectID string

	chats        []models.ChatSession
	activeChatID string

	version uint64
}

// Open loads persisted state, falling back to defaults for anything missing
// or malformed.
func Open(ctx context.Context, s *store.Store) *Workspace {
	w := &Workspace{
		store:           s,
		projects:        store.Load(ctx, s, store.KeyProjects, []models.Project{}),
		activeProjectID: store.Load(ctx, s, store.KeyActiveProjectID, ""),
		chats:           store.Load(ctx, s, store.KeyChatSessions, []models.ChatSession{}),
		activeChatID:    store.Load(ctx, s, store.KeyActiveChatID, ""),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.commit(ctx, true, true)

	log.Printf("[Workspace] Loaded %d project(s), %d chat session(s)", len(w.projects), len(w.chats))
	return w
}

// ensure repairs the active-selection invariants. It reports which
// collections it touched.
func (w *Workspace) ensure() (projectsChanged, chatsChanged bool) {
	if len(w.projects) == 0 {
		p := models.NewProject(models.DefaultProjectName)
		w.projects = []models.Project{p}
		w.activeProjectID = p.ID
		projectsChanged = true
	} else if w.projectIndex(w.activeProjectID) < 0 {
		w.activeProjectID = w.projects[0].ID
		projectsChanged = true
	}

	if len(w.chats) == 0 {
		c := models.NewChatSession()
		w.chats = []models.ChatSession{c}
		w.activeChatID = c.ID
		chatsChanged = true
	} else if w.chatIndex(w.activeChatID) < 0 {
		w.activeChatID = w.chats[0].ID
		chatsChanged = true
	}

	return projectsChanged, chatsChanged
}

// commit runs the invariant step and persists whatever changed. Caller holds
// the write lock.
func (w *Workspace) commit(ctx context.Context, projects, chats bool) {
	p, c := w.ensure()
	projects = projects || p
	chats = chats || c

	if projects {
		w.store.Save(ctx, store.KeyProjects, w.projects)
		w.store.Save(ctx, store.KeyActiveProjectID, w.activeProjectID)
	}
	if chats {
		w.store.Save(ctx, store.KeyChatSessions, w.chats)
		w.store.Save(ctx, store.KeyActiveChatID, w.activeChatID)
	}
	w.version++
}

// Version increases on every mutation.
func (w *Workspace) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

func (w *Workspace) projectIndex(id string) int {
	for i := range w.projects {
		if w.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) chatIndex(id string) int {
	for i := range w.chats {
		if w.chats[i].ID == id {
			return i
		}
	}
	return -1
}

// Projects

// Projects returns the collection in its stored order.
func (w *Workspace) Projects() []models.Project {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.projects
}

func (w *Workspace) ActiveProjectID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeProjectID
}

func (w *Workspace) ActiveProject() models.Project {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.projects[w.projectIndex(w.activeProjectID)]
}

func (w *Workspace) Project(id string) (models.Project, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i := w.projectIndex(id)
	if i < 0 {
		return models.Project{}, false
	}
	return w.projects[i], true
}

// CreateProject appends "Project N+1" and selects it.
func (w *Workspace) CreateProject(ctx context.Context) models.Project {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := models.NewProject(fmt.Sprintf("Project %d", len(w.projects)+1))
	next := make([]models.Project, 0, len(w.projects)+1)
	next = append(next, w.projects...)
	w.projects = append(next, p)
	w.activeProjectID = p.ID
	w.commit(ctx, true, false)

	log.Printf("[Workspace] Created project %s (%q)", p.ID, p.Name)
	return p
}

func (w *Workspace) SelectProject(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.projectIndex(id) < 0 {
		return ErrProjectNotFound
	}
	w.activeProjectID = id
	w.commit(ctx, true, false)
	return nil
}

// RenameProject trims the name. A blank result is stored as is.
func (w *Workspace) RenameProject(ctx context.Context, id, name string) error {
	_, err := w.UpdateProject(ctx, id, func(p *models.Project) error {
		p.Name = strings.TrimSpace(name)
		return nil
	})
	return err
}

func (w *Workspace) DeleteProject(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.projectIndex(id)
	if i < 0 {
		return ErrProjectNotFound
	}

	next := make([]models.Project, 0, len(w.projects)-1)
	next = append(next, w.projects[:i]...)
	w.projects = append(next, w.projects[i+1:]...)
	w.commit(ctx, true, false)

	log.Printf("[Workspace] Deleted project %s", id)
	return nil
}

// UpdateProject applies fn to a copy of the project and swaps it into a new
// collection. If fn returns an error nothing changes.
func (w *Workspace) UpdateProject(ctx context.Context, id string, fn func(*models.Project) error) (models.Project, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.projectIndex(id)
	if i < 0 {
		return models.Project{}, ErrProjectNotFound
	}

	updated := w.projects[i].Clone()
	if err := fn(&updated); err != nil {
		return models.Project{}, err
	}

	next := make([]models.Project, len(w.projects))
	copy(next, w.projects)
	next[i] = updated
	w.projects = next
	w.commit(ctx, true, false)

	return updated, nil
}

// Chats

// Chats returns the collection in its stored order (newest created first).
func (w *Workspace) Chats() []models.ChatSession {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chats
}

// SortedChats orders sessions for display: pinned first, then newest first.
func (w *Workspace) SortedChats() []models.ChatSession {
	w.mu.RLock()
	sorted := make([]models.ChatSession, len(w.chats))
	copy(sorted, w.chats)
	w.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsPinned != sorted[j].IsPinned {
			return sorted[i].IsPinned
		}
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	return sorted
}

func (w *Workspace) ActiveChatID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeChatID
}

func (w *Workspace) ActiveChat() models.ChatSession {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chats[w.chatIndex(w.activeChatID)]
}

func (w *Workspace) Chat(id string) (models.ChatSession, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i := w.chatIndex(id)
	if i < 0 {
		return models.ChatSession{}, false
	}
	return w.chats[i], true
}

// CreateChat prepends a fresh session and selects it.
func (w *Workspace) CreateChat(ctx context.Context) models.ChatSession {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := models.NewChatSession()
	next := make([]models.ChatSession, 0, len(w.chats)+1)
	next = append(next, c)
	w.chats = append(next, w.chats...)
	w.activeChatID = c.ID
	w.commit(ctx, false, true)

	log.Printf("[Workspace] Created chat session %s", c.ID)
	return c
}

func (w *Workspace) SelectChat(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.chatIndex(id) < 0 {
		return ErrChatNotFound
	}
	w.activeChatID = id
	w.commit(ctx, false, true)
	return nil
}

// RenameChat trims the title. A blank result is stored as is.
func (w *Workspace) RenameChat(ctx context.Context, id, title string) error {
	_, err := w.UpdateChat(ctx, id, func(c *models.ChatSession) error {
		c.Title = strings.TrimSpace(title)
		return nil
	})
	return err
}

func (w *Workspace) PinChat(ctx context.Context, id string, pinned bool) error {
	_, err := w.UpdateChat(ctx, id, func(c *models.ChatSession) error {
		c.IsPinned = pinned
		return nil
	})
	return err
}

func (w *Workspace) DeleteChat(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.chatIndex(id)
	if i < 0 {
		return ErrChatNotFound
	}

	next := make([]models.ChatSession, 0, len(w.chats)-1)
	next = append(next, w.chats[:i]...)
	w.chats = append(next, w.chats[i+1:]...)
	w.commit(ctx, false, true)

	log.Printf("[Workspace] Deleted chat session %s", id)
	return nil
}

// UpdateChat applies fn to a copy of the session and swaps it into a new
// collection. If fn returns an error nothing changes.
func (w *Workspace) UpdateChat(ctx context.Context, id string, fn func(*models.ChatSession) error) (models.ChatSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.chatIndex(id)
	if i < 0 {
		return models.ChatSession{}, ErrChatNotFound
	}

	updated := w.chats[i].Clone()
	if err := fn(&updated); err != nil {
		return models.ChatSession{}, err
	}

	next := make([]models.ChatSession, len(w.chats))
	copy(next, w.chats)
	next[i] = updated
	w.chats = next
	w.commit(ctx, false, true)

	return updated, nil
}
