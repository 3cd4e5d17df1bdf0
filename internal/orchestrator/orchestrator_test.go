package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/services"
)

func TestGenerateScriptAssignsFreshScenes(t *testing.T) {
	h := newHarness(t, Options{})
	p := h.withScript(t)

	gp := p.GeneratedPrompts
	if gp == nil || len(gp.Scenes) == 0 {
		t.Fatal("expected a non-empty scene list")
	}
	if gp.Overture.English == "" || gp.Overture.Indonesian == "" {
		t.Errorf("expected both overture languages, got %+v", gp.Overture)
	}

	seen := make(map[string]bool)
	for _, sc := range gp.Scenes {
		if sc.ID == "" || seen[sc.ID] {
			t.Errorf("scene id %q is empty or duplicated", sc.ID)
		}
		seen[sc.ID] = true
		if sc.VideoGenerationStatus != models.StatusIdle || sc.AudioGenerationStatus != models.StatusIdle {
			t.Errorf("expected IDLE media for new scene, got %s/%s", sc.VideoGenerationStatus, sc.AudioGenerationStatus)
		}
	}

	if s := h.o.Session(); s.Status != models.StatusSuccess || s.Error != "" {
		t.Errorf("expected SUCCESS without error, got %+v", s)
	}
}

func TestGenerateScriptFailureSurfacesMessage(t *testing.T) {
	h := newHarness(t, Options{})
	h.withScript(t)

	h.script.err = errors.New("quota exceeded")
	err := h.o.GenerateScript(context.Background(), h.ws.ActiveProjectID())
	if err == nil {
		t.Fatal("expected error")
	}

	s := h.o.Session()
	if s.Status != models.StatusError {
		t.Errorf("expected ERROR, got %s", s.Status)
	}
	if s.Error != "quota exceeded" {
		t.Errorf("expected backend message verbatim, got %q", s.Error)
	}
	// prior output is cleared when generation starts
	if h.ws.ActiveProject().GeneratedPrompts != nil {
		t.Error("expected prior script to be cleared")
	}
}

func TestGenerateScriptMergesIntoOriginatingProject(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	origin := h.ws.ActiveProjectID()

	var other models.Project
	h.script.onCall = func() {
		other = h.o.CreateProject(ctx)
	}

	if err := h.o.GenerateScript(ctx, origin); err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}

	if p, _ := h.ws.Project(origin); p.GeneratedPrompts == nil {
		t.Error("expected originating project to receive the script")
	}
	if p, _ := h.ws.Project(other.ID); p.GeneratedPrompts != nil {
		t.Error("expected newly active project to stay empty")
	}
	if h.ws.ActiveProjectID() != other.ID {
		t.Error("expected the selection made mid-flight to stick")
	}
}

func TestModeSwitchDiscardsInFlightScript(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	id := h.ws.ActiveProjectID()

	h.script.onCall = func() {
		if err := h.o.SwitchMode(ctx, models.ModeSingle); err != nil {
			t.Errorf("SwitchMode: %v", err)
		}
	}

	err := h.o.GenerateScript(ctx, id)
	if !errors.Is(err, ErrStaleResult) {
		t.Fatalf("expected ErrStaleResult, got %v", err)
	}

	p, _ := h.ws.Project(id)
	if p.GeneratedPrompts != nil {
		t.Error("expected stale script to be discarded")
	}
	if s := h.o.Session(); s.Status != models.StatusIdle {
		t.Errorf("expected IDLE after mode switch, got %s", s.Status)
	}
}

func TestModeSwitchLaw(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.withScript(t)

	prompt := "A cat on a skateboard"
	if err := h.o.UpdateSingle(ctx, models.SingleRequest{Prompt: &prompt}); err != nil {
		t.Fatalf("UpdateSingle: %v", err)
	}
	if err := h.o.SetStyle(ctx, models.StyleCinematicNoir); err != nil {
		t.Fatalf("SetStyle: %v", err)
	}
	h.o.SetDialogueMode(true)

	if err := h.o.SwitchMode(ctx, models.ModeSingle); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}

	p := h.ws.ActiveProject()
	if p.GeneratedPrompts != nil || p.GeneratedVideoURL != "" {
		t.Error("expected generated output cleared")
	}
	if p.DirectorStyle != models.StyleNone {
		t.Errorf("expected style reset to NONE, got %s", p.DirectorStyle)
	}
	if p.MainBrief != "A lone astronaut finds a flower on Mars" || p.SinglePrompt != prompt {
		t.Errorf("expected inputs preserved, got brief=%q prompt=%q", p.MainBrief, p.SinglePrompt)
	}
	if p.Mode != models.ModeSingle {
		t.Errorf("expected SINGLE mode, got %s", p.Mode)
	}

	s := h.o.Session()
	if s.DialogueMode || s.Status != models.StatusIdle || s.Error != "" {
		t.Errorf("expected clean session after switch, got %+v", s)
	}

	if err := h.o.SwitchMode(ctx, "PANORAMA"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown mode, got %v", err)
	}
}

func TestRegenerateSceneReplacesOnlyTarget(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	before := h.withScript(t).GeneratedPrompts

	target := before.Scenes[0].ID
	if _, err := h.ws.UpdateProject(ctx, h.ws.ActiveProjectID(), func(p *models.Project) error {
		p.GeneratedPrompts.Scenes[0].SetVideo(models.StatusSuccess, "/media/old.mp4")
		p.GeneratedPrompts.Scenes[0].SetAudio(models.StatusSuccess, "/media/old.mp3")
		return nil
	}); err != nil {
		t.Fatalf("seed media: %v", err)
	}

	h.script.draft = services.SceneDraft{English: "New take.", Indonesian: "Versi baru."}
	if err := h.o.RegenerateScene(ctx, target); err != nil {
		t.Fatalf("RegenerateScene: %v", err)
	}

	after := h.ws.ActiveProject().GeneratedPrompts
	if len(after.Scenes) != len(before.Scenes) {
		t.Fatalf("expected %d scenes, got %d", len(before.Scenes), len(after.Scenes))
	}
	for i := range after.Scenes {
		if after.Scenes[i].ID != before.Scenes[i].ID {
			t.Errorf("scene %d id changed from %s to %s", i, before.Scenes[i].ID, after.Scenes[i].ID)
		}
	}

	got := after.Scenes[0]
	if got.English != "New take." || got.Indonesian != "Versi baru." {
		t.Errorf("unexpected text: %+v", got)
	}
	if got.VoiceOver != before.Scenes[0].VoiceOver {
		t.Errorf("expected voice-over kept when draft has none, got %q", got.VoiceOver)
	}
	if got.VideoURL != "" || got.AudioURL != "" ||
		got.VideoGenerationStatus != models.StatusIdle || got.AudioGenerationStatus != models.StatusIdle {
		t.Errorf("expected media reset, got %+v", got)
	}
	if after.Scenes[1] != before.Scenes[1] {
		t.Errorf("expected scene 1 untouched")
	}

	if h.script.lastReq.SceneID != target || len(h.script.lastReq.Scenes) != len(before.Scenes) {
		t.Errorf("expected full context in request, got %+v", h.script.lastReq)
	}
	if s := h.o.Session(); s.RegeneratingSceneID != "" {
		t.Errorf("expected regenerating id cleared, got %q", s.RegeneratingSceneID)
	}
}

func TestRegenerateSceneIsExclusive(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	scenes := h.withScript(t).GeneratedPrompts.Scenes

	var nested error
	h.script.draft = services.SceneDraft{English: "x", Indonesian: "y"}
	h.script.onCall = func() {
		if s := h.o.Session(); s.RegeneratingSceneID != scenes[0].ID {
			t.Errorf("expected %s regenerating, got %q", scenes[0].ID, s.RegeneratingSceneID)
		}
		nested = h.o.RegenerateScene(ctx, scenes[1].ID)
	}

	if err := h.o.RegenerateScene(ctx, scenes[0].ID); err != nil {
		t.Fatalf("RegenerateScene: %v", err)
	}
	if !errors.Is(nested, ErrRegenerationInProgress) {
		t.Errorf("expected ErrRegenerationInProgress, got %v", nested)
	}
}

func TestRegenerateSceneDroppedWhenSceneDeleted(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	target := h.withScript(t).GeneratedPrompts.Scenes[1].ID

	h.script.draft = services.SceneDraft{English: "x", Indonesian: "y"}
	h.script.onCall = func() {
		if err := h.o.DeleteScene(ctx, target); err != nil {
			t.Errorf("DeleteScene: %v", err)
		}
	}

	if err := h.o.RegenerateScene(ctx, target); !errors.Is(err, ErrSceneNotFound) {
		t.Fatalf("expected ErrSceneNotFound, got %v", err)
	}
	if n := len(h.ws.ActiveProject().GeneratedPrompts.Scenes); n != 2 {
		t.Errorf("expected 2 scenes left, got %d", n)
	}
}

func TestRegenerateSceneRequiresScript(t *testing.T) {
	h := newHarness(t, Options{})
	if err := h.o.RegenerateScene(context.Background(), "nope"); !errors.Is(err, ErrNoScript) {
		t.Errorf("expected ErrNoScript, got %v", err)
	}
}

func TestSceneVideoPollsUntilDone(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{pendingOp(), pendingOp(), doneOp("https://example.test/v.mp4")}

	var during []models.GenerationStatus
	h.video.onPoll = func(n int) {
		during = append(during, h.scene(t, p.ID, sceneID).VideoGenerationStatus)
	}

	if err := h.o.GenerateSceneVideo(ctx, p.ID, sceneID); err != nil {
		t.Fatalf("GenerateSceneVideo: %v", err)
	}

	if len(during) != 2 {
		t.Fatalf("expected 2 polls, got %d", len(during))
	}
	for i, st := range during {
		if st != models.StatusGenerating {
			t.Errorf("poll %d: expected GENERATING, got %s", i+1, st)
		}
	}
	if h.video.fetches != 1 {
		t.Errorf("expected exactly one fetch, got %d", h.video.fetches)
	}

	sc := h.scene(t, p.ID, sceneID)
	if sc.VideoGenerationStatus != models.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", sc.VideoGenerationStatus)
	}
	if !strings.HasPrefix(sc.VideoURL, "/media/projects/"+p.ID+"/scene-"+sceneID) {
		t.Errorf("unexpected video url %q", sc.VideoURL)
	}
	if h.video.submitted[0].Prompt != sc.English {
		t.Errorf("expected scene english as prompt, got %q", h.video.submitted[0].Prompt)
	}
}

func TestSceneVideoWithoutUsableResult(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{pendingOp(), doneOp("")}

	err := h.o.GenerateSceneVideo(ctx, p.ID, sceneID)
	if !errors.Is(err, services.ErrNoVideo) {
		t.Fatalf("expected ErrNoVideo, got %v", err)
	}

	sc := h.scene(t, p.ID, sceneID)
	if sc.VideoGenerationStatus != models.StatusError || sc.VideoURL != "" {
		t.Errorf("expected ERROR without url, got %s %q", sc.VideoGenerationStatus, sc.VideoURL)
	}
	if h.video.fetches != 0 {
		t.Errorf("expected no fetch, got %d", h.video.fetches)
	}
	if e := h.o.Session().Error; e != "" {
		t.Errorf("scene failure should not set the session error, got %q", e)
	}
}

func TestSceneVideoBackendError(t *testing.T) {
	h := newHarness(t, Options{})
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{{Name: "op-1", Done: true, Error: "blocked by safety filters"}}

	err := h.o.GenerateSceneVideo(context.Background(), p.ID, sceneID)
	if err == nil || err.Error() != "blocked by safety filters" {
		t.Fatalf("expected backend error, got %v", err)
	}
	if st := h.scene(t, p.ID, sceneID).VideoGenerationStatus; st != models.StatusError {
		t.Errorf("expected ERROR, got %s", st)
	}
}

func TestSceneVideoPollLimit(t *testing.T) {
	h := newHarness(t, Options{MaxPolls: 3})
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{pendingOp()}

	err := h.o.GenerateSceneVideo(context.Background(), p.ID, sceneID)
	if !errors.Is(err, ErrPollLimit) {
		t.Fatalf("expected ErrPollLimit, got %v", err)
	}
	if h.video.polls != 3 {
		t.Errorf("expected 3 polls, got %d", h.video.polls)
	}
	if st := h.scene(t, p.ID, sceneID).VideoGenerationStatus; st != models.StatusError {
		t.Errorf("expected ERROR, got %s", st)
	}
}

func TestSceneVideoCancelled(t *testing.T) {
	h := newHarness(t, Options{})
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{pendingOp()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.o.BeginSceneMedia(context.Background(), models.JobTypeSceneVideo, p.ID, sceneID); err != nil {
		t.Fatalf("BeginSceneMedia: %v", err)
	}
	if err := h.o.RunSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, sceneID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st := h.scene(t, p.ID, sceneID).VideoGenerationStatus; st != models.StatusError {
		t.Errorf("expected ERROR, got %s", st)
	}
}

func TestSceneVideoDroppedAfterReset(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.video.ops = []*services.VideoOperation{pendingOp(), doneOp("https://example.test/v.mp4")}
	h.video.onPoll = func(n int) {
		en := "Rewritten."
		if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{English: &en, Sync: true, LastEdited: "english"}); err != nil {
			t.Errorf("EditScene: %v", err)
		}
	}

	if err := h.o.GenerateSceneVideo(ctx, p.ID, sceneID); !errors.Is(err, ErrStaleResult) {
		t.Fatalf("expected ErrStaleResult, got %v", err)
	}
	sc := h.scene(t, p.ID, sceneID)
	if sc.VideoGenerationStatus != models.StatusIdle || sc.VideoURL != "" {
		t.Errorf("expected IDLE without url, got %s %q", sc.VideoGenerationStatus, sc.VideoURL)
	}
}

func TestBeginSceneMediaRejectsDuplicate(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, sceneID); err != nil {
		t.Fatalf("BeginSceneMedia: %v", err)
	}
	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, sceneID); !errors.Is(err, ErrMediaInProgress) {
		t.Errorf("expected ErrMediaInProgress, got %v", err)
	}
	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, "missing"); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("expected ErrSceneNotFound, got %v", err)
	}
}

func TestSceneAudio(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	withVoice := p.GeneratedPrompts.Scenes[0]
	silent := p.GeneratedPrompts.Scenes[1]

	if err := h.o.GenerateSceneAudio(ctx, p.ID, silent.ID); !errors.Is(err, ErrNoVoiceOver) {
		t.Errorf("expected ErrNoVoiceOver, got %v", err)
	}
	if st := h.scene(t, p.ID, silent.ID).AudioGenerationStatus; st != models.StatusIdle {
		t.Errorf("expected IDLE for scene without voice-over, got %s", st)
	}

	if err := h.o.GenerateSceneAudio(ctx, p.ID, withVoice.ID); err != nil {
		t.Fatalf("GenerateSceneAudio: %v", err)
	}
	sc := h.scene(t, p.ID, withVoice.ID)
	if sc.AudioGenerationStatus != models.StatusSuccess || !strings.HasSuffix(sc.AudioURL, ".mp3") {
		t.Errorf("expected SUCCESS with mp3 url, got %s %q", sc.AudioGenerationStatus, sc.AudioURL)
	}
	if len(h.speech.text) != 1 || h.speech.text[0] != withVoice.VoiceOver {
		t.Errorf("expected voice-over sent to speech, got %v", h.speech.text)
	}
}

func TestSceneAudioFailure(t *testing.T) {
	h := newHarness(t, Options{})
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID
	h.speech.err = errBackend

	if err := h.o.GenerateSceneAudio(context.Background(), p.ID, sceneID); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	sc := h.scene(t, p.ID, sceneID)
	if sc.AudioGenerationStatus != models.StatusError || sc.AudioURL != "" {
		t.Errorf("expected ERROR without url, got %s %q", sc.AudioGenerationStatus, sc.AudioURL)
	}
	if e := h.o.Session().Error; e != "" {
		t.Errorf("expected no page-level error for a scene failure, got %q", e)
	}
}

func TestSingleVideo(t *testing.T) {
	h := newHarness(t, Options{AspectRatio: models.AspectPortrait})
	ctx := context.Background()

	if err := h.o.SwitchMode(ctx, models.ModeSingle); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if err := h.o.Generate(ctx); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}

	prompt := "A paper boat in the rain"
	model := models.VideoModelVeo3
	ref := &models.BaseImage{MIMEType: "image/png", Data: []byte{1, 2, 3}}
	if err := h.o.UpdateSingle(ctx, models.SingleRequest{Prompt: &prompt, VideoModel: &model, ReferenceImage: ref}); err != nil {
		t.Fatalf("UpdateSingle: %v", err)
	}

	if err := h.o.Generate(ctx); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	p := h.ws.ActiveProject()
	if !strings.HasPrefix(p.GeneratedVideoURL, "/media/projects/"+p.ID+"/single-") {
		t.Errorf("unexpected url %q", p.GeneratedVideoURL)
	}
	req := h.video.submitted[0]
	if req.Prompt != prompt || req.Model != string(model) || req.AspectRatio != string(models.AspectPortrait) {
		t.Errorf("unexpected request %+v", req)
	}
	if string(req.ImageData) != string(ref.Data) || req.ImageMIME != "image/png" {
		t.Error("expected reference image forwarded")
	}
	if s := h.o.Session(); s.Status != models.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", s.Status)
	}
}

func TestSingleVideoFailure(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	prompt := "x"
	h.o.SwitchMode(ctx, models.ModeSingle)
	h.o.UpdateSingle(ctx, models.SingleRequest{Prompt: &prompt})
	h.video.submitErr = errBackend

	if err := h.o.Generate(ctx); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	s := h.o.Session()
	if s.Status != models.StatusError || s.Error != errBackend.Error() {
		t.Errorf("unexpected session %+v", s)
	}
	if h.ws.ActiveProject().GeneratedVideoURL != "" {
		t.Error("expected no url on failure")
	}
}

func TestSyncOverture(t *testing.T) {
	h := newHarness(t, Options{})
	h.withScript(t)

	if err := h.o.SyncOverture(context.Background(), "Fajar di Mars"); err != nil {
		t.Fatalf("SyncOverture: %v", err)
	}

	ov := h.ws.ActiveProject().GeneratedPrompts.Overture
	if ov.Indonesian != "Fajar di Mars" || ov.English != "[english] Fajar di Mars" {
		t.Errorf("unexpected overture %+v", ov)
	}
	if h.text.translated[0] != "indonesian>english:Fajar di Mars" {
		t.Errorf("unexpected translation call %q", h.text.translated[0])
	}
	if h.o.Session().IsSyncingOverture {
		t.Error("expected syncing flag cleared")
	}
}

func TestEditSceneSyncDirection(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		p.GeneratedPrompts.Scenes[0].SetVideo(models.StatusSuccess, "/media/v.mp4")
		return nil
	})

	id := "Astronot menari."
	if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{Indonesian: &id, Sync: true, LastEdited: "indonesian"}); err != nil {
		t.Fatalf("EditScene: %v", err)
	}

	sc := h.scene(t, p.ID, sceneID)
	if sc.Indonesian != id || sc.English != "[english] "+id {
		t.Errorf("unexpected scene text %q / %q", sc.English, sc.Indonesian)
	}
	if sc.VideoGenerationStatus != models.StatusIdle || sc.VideoURL != "" {
		t.Error("expected media reset after synced edit")
	}

	if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{Sync: true, LastEdited: "klingon"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEditSceneSyncCommitsToOriginatingProject(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		p.GeneratedPrompts.Scenes[0].SetVideo(models.StatusSuccess, "/media/v.mp4")
		return nil
	})

	var other models.Project
	h.text.translate = func(text string, from, to services.Language) string {
		other = h.o.CreateProject(ctx)
		return "Astronot menanam bunga."
	}

	en := "The astronaut plants a flower."
	if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{English: &en, Sync: true, LastEdited: "english"}); err != nil {
		t.Fatalf("EditScene: %v", err)
	}

	sc := h.scene(t, p.ID, sceneID)
	if sc.English != en || sc.Indonesian != "Astronot menanam bunga." {
		t.Errorf("expected edit on originating scene, got %q / %q", sc.English, sc.Indonesian)
	}
	if sc.VideoGenerationStatus != models.StatusIdle || sc.VideoURL != "" {
		t.Error("expected media reset on originating scene")
	}
	if h.ws.ActiveProjectID() != other.ID {
		t.Error("expected the selection made mid-flight to stick")
	}
	if q, _ := h.ws.Project(other.ID); q.GeneratedPrompts != nil {
		t.Error("expected newly active project untouched")
	}
}

func TestEditScenePlainKeepsMedia(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	h.ws.UpdateProject(ctx, p.ID, func(p *models.Project) error {
		p.GeneratedPrompts.Scenes[0].SetAudio(models.StatusSuccess, "/media/a.mp3")
		return nil
	})

	vo := "Baru."
	if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{VoiceOver: &vo}); err != nil {
		t.Fatalf("EditScene: %v", err)
	}

	sc := h.scene(t, p.ID, sceneID)
	if sc.VoiceOver != vo {
		t.Errorf("expected voice-over %q, got %q", vo, sc.VoiceOver)
	}
	if sc.AudioURL != "/media/a.mp3" {
		t.Error("expected media kept on plain edit")
	}
	if len(h.text.translated) != 0 {
		t.Error("expected no translation on plain edit")
	}
}

func TestEditSceneKeepsTextWhenTranslationFails(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID
	h.text.translErr = errBackend

	en := "Edited."
	if err := h.o.EditScene(ctx, sceneID, models.SceneEditRequest{English: &en, Sync: true, LastEdited: "english"}); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if sc := h.scene(t, p.ID, sceneID); sc.English != en {
		t.Errorf("expected user's edit kept, got %q", sc.English)
	}
}

func TestDeleteScene(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	scenes := h.withScript(t).GeneratedPrompts.Scenes

	if err := h.o.DeleteScene(ctx, scenes[1].ID); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}
	left := h.ws.ActiveProject().GeneratedPrompts.Scenes
	if len(left) != 2 || left[0].ID != scenes[0].ID || left[1].ID != scenes[2].ID {
		t.Errorf("unexpected scenes after delete: %+v", left)
	}
	if err := h.o.DeleteScene(ctx, scenes[1].ID); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("expected ErrSceneNotFound, got %v", err)
	}
}

func TestCreativeSpark(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	if _, err := h.o.CreativeSpark(ctx); !errors.Is(err, ErrEmptyBrief) {
		t.Fatalf("expected ErrEmptyBrief, got %v", err)
	}
	if ErrEmptyBrief.Error() != "Write a brief first to get a Creative Spark." {
		t.Errorf("unexpected message %q", ErrEmptyBrief.Error())
	}

	h.o.SetBrief(ctx, "A robot learns to paint")
	h.text.spark = "What if the robot is colour-blind?"
	if _, err := h.o.CreativeSpark(ctx); err != nil {
		t.Fatalf("CreativeSpark: %v", err)
	}

	want := "A robot learns to paint\n\nWhat if the robot is colour-blind?"
	if got := h.ws.ActiveProject().MainBrief; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	h.text.sparkErr = errors.New("Could not get a creative spark at this moment.")
	if _, err := h.o.CreativeSpark(ctx); err == nil {
		t.Fatal("expected error")
	}
	if h.ws.ActiveProject().MainBrief != want {
		t.Error("expected brief untouched on failure")
	}
	if h.o.Session().Error != "Could not get a creative spark at this moment." {
		t.Errorf("unexpected error %q", h.o.Session().Error)
	}
}

func TestObjectImages(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	img := models.BaseImage{MIMEType: "image/jpeg", Data: []byte{0xff}}

	var first models.StoryboardImage
	for i := 0; i < models.MaxObjectImages; i++ {
		added, err := h.o.AddObjectImage(ctx, img, "")
		if err != nil {
			t.Fatalf("AddObjectImage %d: %v", i, err)
		}
		if i == 0 {
			first = added
		}
	}
	if first.Role != models.RolePerson || first.ID == "" {
		t.Errorf("expected default PERSON role and id, got %+v", first)
	}

	if _, err := h.o.AddObjectImage(ctx, img, models.RoleProp); !errors.Is(err, ErrTooManyImages) {
		t.Errorf("expected ErrTooManyImages, got %v", err)
	}

	if err := h.o.SetImageRole(ctx, first.ID, models.RoleProp); err != nil {
		t.Fatalf("SetImageRole: %v", err)
	}
	if got := h.ws.ActiveProject().ObjectImages[0].Role; got != models.RoleProp {
		t.Errorf("expected PROP, got %s", got)
	}

	if err := h.o.RemoveObjectImage(ctx, first.ID); err != nil {
		t.Fatalf("RemoveObjectImage: %v", err)
	}
	if n := len(h.ws.ActiveProject().ObjectImages); n != models.MaxObjectImages-1 {
		t.Errorf("expected %d images, got %d", models.MaxObjectImages-1, n)
	}

	if _, err := h.o.AddObjectImage(ctx, models.BaseImage{MIMEType: "text/plain", Data: []byte("x")}, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for non-image, got %v", err)
	}
}

func TestStateSnapshot(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	before := h.o.Version()

	h.o.CreateProject(ctx)
	st := h.o.State()

	if st.Version <= before {
		t.Errorf("expected version to advance past %d, got %d", before, st.Version)
	}
	if len(st.Projects) != 2 || st.ActiveProjectID != st.Projects[1].ID {
		t.Errorf("unexpected projects in snapshot: %+v", st.Projects)
	}
	if len(st.Chats) != 1 || st.ActiveChatID != st.Chats[0].ID {
		t.Errorf("unexpected chats in snapshot: %+v", st.Chats)
	}
}

func TestRunSceneMediaSkipsUnrequested(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	sceneID := p.GeneratedPrompts.Scenes[0].ID

	if err := h.o.RunSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, sceneID); !errors.Is(err, ErrStaleResult) {
		t.Fatalf("expected ErrStaleResult, got %v", err)
	}
	if len(h.video.submitted) != 0 {
		t.Errorf("expected no video submitted, got %d", len(h.video.submitted))
	}
}

func TestResetInterruptedMedia(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p := h.withScript(t)
	first := p.GeneratedPrompts.Scenes[0].ID

	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, first); err != nil {
		t.Fatalf("BeginSceneMedia: %v", err)
	}
	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneAudio, p.ID, first); err != nil {
		t.Fatalf("BeginSceneMedia: %v", err)
	}

	if n := h.o.ResetInterruptedMedia(ctx); n != 2 {
		t.Fatalf("expected 2 reset, got %d", n)
	}
	sc := h.scene(t, p.ID, first)
	if sc.VideoGenerationStatus != models.StatusError || sc.AudioGenerationStatus != models.StatusError {
		t.Errorf("expected ERROR for both, got %s / %s", sc.VideoGenerationStatus, sc.AudioGenerationStatus)
	}

	if err := h.o.BeginSceneMedia(ctx, models.JobTypeSceneVideo, p.ID, first); err != nil {
		t.Errorf("expected a new request to be accepted after reset, got %v", err)
	}
}
