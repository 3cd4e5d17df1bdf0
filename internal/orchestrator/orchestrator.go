package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/storage"
	"github.com/bobarin/storyboard/internal/workspace"
)

var (
	ErrSceneNotFound          = errors.New("scene not found")
	ErrNoScript               = errors.New("no generated script")
	ErrEmptyBrief             = errors.New("Write a brief first to get a Creative Spark.")
	ErrEmptyPrompt            = errors.New("prompt is empty")
	ErrEmptyMessage           = errors.New("message is empty")
	ErrEmptyHistory           = errors.New("chat history is empty")
	ErrRegenerationInProgress = errors.New("another scene is being regenerated")
	ErrMediaInProgress        = errors.New("media generation already in progress for this scene")
	ErrNoVoiceOver            = errors.New("scene has no voice-over text")
	ErrChatBusy               = errors.New("a chat message is already being sent")
	ErrTooManyImages          = fmt.Errorf("at most %d object images allowed", models.MaxObjectImages)
	ErrInvalidInput           = errors.New("invalid input")
	ErrStaleResult            = errors.New("result discarded because the project moved on")
	ErrPollLimit              = errors.New("video generation did not finish within the poll limit")
)

// ScriptWriter produces and revises storyboard scripts.
type ScriptWriter interface {
	GenerateStoryboard(ctx context.Context, req services.ScriptRequest) (*models.GeneratedPrompts, error)
	RegenerateScene(ctx context.Context, req services.RegenerateRequest) (services.SceneDraft, error)
}

// TextAssistant covers the single-shot text utilities.
type TextAssistant interface {
	Translate(ctx context.Context, text string, from, to services.Language) (string, error)
	CreativeSpark(ctx context.Context, brief string) (string, error)
	ChatTitle(ctx context.Context, firstMessage string) (string, error)
	SummarizeChat(ctx context.Context, history []models.ChatMessage) (string, error)
}

type ChatStarter interface {
	StartChat(ctx context.Context, history []models.ChatMessage) (services.Conversation, error)
}

// VideoBackend is a long-running video job: submit once, poll until done,
// fetch the result.
type VideoBackend interface {
	SubmitVideo(ctx context.Context, req services.VideoRequest) (*services.VideoOperation, error)
	PollVideo(ctx context.Context, op *services.VideoOperation) (*services.VideoOperation, error)
	FetchVideo(ctx context.Context, op *services.VideoOperation) ([]byte, error)
}

type Backends struct {
	Script ScriptWriter
	Text   TextAssistant
	Chat   ChatStarter
	Video  VideoBackend
	Speech services.TTSService
	Media  storage.MediaStore
}

type Options struct {
	PollInterval time.Duration
	// MaxPolls caps poll attempts per video job. Zero polls until the
	// backend reports done.
	MaxPolls    int
	AspectRatio models.AspectRatio
	// Sleep waits between polls. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// TitleTimeout bounds the background chat title request.
	TitleTimeout time.Duration
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// projectRun is the project-level generation state: script in STORYBOARD
// mode, the single video in SINGLE mode.
type projectRun struct {
	status models.GenerationStatus
	err    string
	token  uint64
}

type conversation struct {
	sessionID string
	handle    services.Conversation
	turns     int
}

// Orchestrator coordinates generation against the workspace.
//
// Lock order: o.mu may be taken while the workspace lock is held (inside
// UpdateProject/UpdateChat callbacks), never the other way round.
type Orchestrator struct {
	ws   *workspace.Workspace
	b    Backends
	opts Options

	mu                  sync.Mutex
	runs                map[string]*projectRun
	regeneratingSceneID string
	syncingSceneID      string
	syncingOverture     bool
	sparking            bool
	chatting            bool
	finalizing          bool
	dialogueMode        bool
	conv                *conversation
	version             uint64

	titles sync.WaitGroup
}

func New(ws *workspace.Workspace, b Backends, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = models.AspectLandscape
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.TitleTimeout <= 0 {
		opts.TitleTimeout = 30 * time.Second
	}

	return &Orchestrator{
		ws:   ws,
		b:    b,
		opts: opts,
		runs: make(map[string]*projectRun),
	}
}

// run returns the run record for a project. Caller holds o.mu.
func (o *Orchestrator) run(projectID string) *projectRun {
	r, ok := o.runs[projectID]
	if !ok {
		r = &projectRun{status: models.StatusIdle}
		o.runs[projectID] = r
	}
	return r
}

// touch records a transient state change. Caller holds o.mu.
func (o *Orchestrator) touch() {
	o.version++
}

// setError shows a page-level error for the project.
func (o *Orchestrator) setError(projectID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run(projectID).err = err.Error()
	o.touch()
}

// ClearError dismisses the active project's error banner.
func (o *Orchestrator) ClearError() {
	id := o.ws.ActiveProjectID()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.run(id).err = ""
	o.touch()
}

// Version advances whenever persisted or transient state changes.
func (o *Orchestrator) Version() uint64 {
	wv := o.ws.Version()

	o.mu.Lock()
	defer o.mu.Unlock()
	return wv + o.version
}

// Session reports the transient state for the active project.
func (o *Orchestrator) Session() models.SessionState {
	id := o.ws.ActiveProjectID()

	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.run(id)
	return models.SessionState{
		Status:              r.status,
		Error:               r.err,
		DialogueMode:        o.dialogueMode,
		RegeneratingSceneID: o.regeneratingSceneID,
		IsSparking:          o.sparking,
		IsChatting:          o.chatting,
		IsFinalizing:        o.finalizing,
		SyncingSceneID:      o.syncingSceneID,
		IsSyncingOverture:   o.syncingOverture,
	}
}

// State is a full snapshot for clients.
func (o *Orchestrator) State() models.StateResponse {
	return models.StateResponse{
		Version:         o.Version(),
		Projects:        o.ws.Projects(),
		ActiveProjectID: o.ws.ActiveProjectID(),
		Chats:           o.ws.SortedChats(),
		ActiveChatID:    o.ws.ActiveChatID(),
		Session:         o.Session(),
	}
}

// WaitTitles blocks until background chat title requests have finished.
func (o *Orchestrator) WaitTitles() {
	o.titles.Wait()
}

func findScene(p *models.Project, sceneID string) (*models.Scene, error) {
	if p.GeneratedPrompts == nil {
		return nil, ErrNoScript
	}
	i := p.GeneratedPrompts.SceneIndex(sceneID)
	if i < 0 {
		return nil, ErrSceneNotFound
	}
	return &p.GeneratedPrompts.Scenes[i], nil
}
