package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/store"
	"github.com/bobarin/storyboard/internal/workspace"
)

var errBackend = errors.New("backend unavailable")

type fakeScript struct {
	mu      sync.Mutex
	calls   int
	err     error
	draft   services.SceneDraft
	onCall  func()
	lastReq services.RegenerateRequest
}

func (f *fakeScript) GenerateStoryboard(ctx context.Context, req services.ScriptRequest) (*models.GeneratedPrompts, error) {
	f.mu.Lock()
	f.calls++
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.GeneratedPrompts{
		Overture: models.BilingualText{English: "A red desert at dawn.", Indonesian: "Gurun merah saat fajar."},
		Scenes: []models.Scene{
			models.NewScene("Astronaut walks.", "Astronot berjalan.", "Sunyi."),
			models.NewScene("A flower appears.", "Sebuah bunga muncul.", ""),
			models.NewScene("She kneels.", "Dia berlutut.", "Harapan."),
		},
		Soundscape: &models.Soundscape{Music: "ambient synth", SFX: []string{"wind"}},
	}, nil
}

func (f *fakeScript) RegenerateScene(ctx context.Context, req services.RegenerateRequest) (services.SceneDraft, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.err != nil {
		return services.SceneDraft{}, f.err
	}
	return f.draft, nil
}

type fakeText struct {
	mu         sync.Mutex
	translated []string
	translate  func(text string, from, to services.Language) string
	translErr  error
	spark      string
	sparkErr   error
	title      string
	titleErr   error
	summary    string
	summaryErr error
	summarized []models.ChatMessage
}

func (f *fakeText) Translate(ctx context.Context, text string, from, to services.Language) (string, error) {
	f.mu.Lock()
	f.translated = append(f.translated, fmt.Sprintf("%s>%s:%s", from, to, text))
	f.mu.Unlock()

	if f.translErr != nil {
		return "", f.translErr
	}
	if f.translate != nil {
		return f.translate(text, from, to), nil
	}
	return "[" + string(to) + "] " + text, nil
}

func (f *fakeText) CreativeSpark(ctx context.Context, brief string) (string, error) {
	return f.spark, f.sparkErr
}

func (f *fakeText) ChatTitle(ctx context.Context, firstMessage string) (string, error) {
	return f.title, f.titleErr
}

func (f *fakeText) SummarizeChat(ctx context.Context, history []models.ChatMessage) (string, error) {
	f.mu.Lock()
	f.summarized = history
	f.mu.Unlock()
	return f.summary, f.summaryErr
}

type fakeConversation struct {
	chat *fakeChat
}

func (c *fakeConversation) Send(ctx context.Context, turn services.ChatTurn, withImages bool) (string, error) {
	c.chat.mu.Lock()
	defer c.chat.mu.Unlock()

	c.chat.sends = append(c.chat.sends, withImages)
	if c.chat.err != nil {
		return "", c.chat.err
	}
	return "reply to " + turn.Text, nil
}

type fakeChat struct {
	mu     sync.Mutex
	starts int
	seeds  [][]models.ChatMessage
	sends  []bool
	err    error
}

func (f *fakeChat) StartChat(ctx context.Context, history []models.ChatMessage) (services.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.seeds = append(f.seeds, history)
	return &fakeConversation{chat: f}, nil
}

// fakeVideo returns ops[0] on submit and ops[1:] on successive polls.
type fakeVideo struct {
	mu        sync.Mutex
	ops       []*services.VideoOperation
	submitErr error
	submitted []services.VideoRequest
	polls     int
	fetches   int
	onPoll    func(n int)
}

func (f *fakeVideo) SubmitVideo(ctx context.Context, req services.VideoRequest) (*services.VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.ops[0], nil
}

func (f *fakeVideo) PollVideo(ctx context.Context, op *services.VideoOperation) (*services.VideoOperation, error) {
	f.mu.Lock()
	f.polls++
	n := f.polls
	hook := f.onPoll
	next := f.ops[len(f.ops)-1]
	if n < len(f.ops) {
		next = f.ops[n]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return next, nil
}

func (f *fakeVideo) FetchVideo(ctx context.Context, op *services.VideoOperation) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return []byte("mp4-bytes"), nil
}

type fakeSpeech struct {
	err  error
	text []string
}

func (f *fakeSpeech) GenerateSpeech(ctx context.Context, text string) (*services.TTSResponse, error) {
	f.text = append(f.text, text)
	if f.err != nil {
		return nil, f.err
	}
	return &services.TTSResponse{AudioData: []byte("mp3"), Format: "mp3", ContentType: "audio/mpeg", DurationMs: 1000}, nil
}

type fakeMedia struct {
	mu   sync.Mutex
	puts map[string]string
}

func (f *fakeMedia) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string]string)
	}
	f.puts[objectPath] = contentType
	return "/media/" + objectPath, nil
}

type harness struct {
	o      *Orchestrator
	ws     *workspace.Workspace
	script *fakeScript
	text   *fakeText
	chat   *fakeChat
	video  *fakeVideo
	speech *fakeSpeech
	media  *fakeMedia
}

func doneOp(uri string) *services.VideoOperation {
	return &services.VideoOperation{Name: "op-1", Done: true, DownloadURI: uri}
}

func pendingOp() *services.VideoOperation {
	return &services.VideoOperation{Name: "op-1"}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		ws:     workspace.Open(context.Background(), store.New(store.NewMemory())),
		script: &fakeScript{},
		text:   &fakeText{title: "Mars Flower", summary: "Final brief"},
		chat:   &fakeChat{},
		video:  &fakeVideo{ops: []*services.VideoOperation{doneOp("https://example.test/v.mp4")}},
		speech: &fakeSpeech{},
		media:  &fakeMedia{},
	}

	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	}

	h.o = New(h.ws, Backends{
		Script: h.script,
		Text:   h.text,
		Chat:   h.chat,
		Video:  h.video,
		Speech: h.speech,
		Media:  h.media,
	}, opts)
	return h
}

// withScript generates a script for the active project.
func (h *harness) withScript(t *testing.T) models.Project {
	t.Helper()
	if err := h.o.SetBrief(context.Background(), "A lone astronaut finds a flower on Mars"); err != nil {
		t.Fatalf("SetBrief: %v", err)
	}
	if err := h.o.GenerateScript(context.Background(), h.ws.ActiveProjectID()); err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	return h.ws.ActiveProject()
}

func (h *harness) scene(t *testing.T, projectID, sceneID string) models.Scene {
	t.Helper()
	p, ok := h.ws.Project(projectID)
	if !ok {
		t.Fatalf("project %s missing", projectID)
	}
	sc, err := findScene(&p, sceneID)
	if err != nil {
		t.Fatalf("scene %s: %v", sceneID, err)
	}
	return *sc
}
