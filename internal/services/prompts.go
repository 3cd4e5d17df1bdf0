package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
)

// ErrMalformedResponse marks a model response that did not match the
// requested JSON shape.
var ErrMalformedResponse = errors.New("malformed model response")

type Language string

const (
	English    Language = "english"
	Indonesian Language = "indonesian"
)

// ScriptRequest is everything the director prompt is built from.
type ScriptRequest struct {
	Brief        string
	Background   *models.BaseImage
	ObjectImages []models.StoryboardImage
	Style        models.DirectorStyle
}

// RegenerateRequest carries the full script context for replacing one scene.
type RegenerateRequest struct {
	SceneID      string
	Brief        string
	Background   *models.BaseImage
	ObjectImages []models.StoryboardImage
	Style        models.DirectorStyle
	Overture     models.BilingualText
	Scenes       []models.Scene
}

// SceneDraft is the text of a scene as returned by the model.
type SceneDraft struct {
	English    string `json:"english"`
	Indonesian string `json:"indonesian"`
	VoiceOver  string `json:"voiceOver_Indonesian,omitempty"`
}

// promptPart is one text or image element of a multimodal prompt.
type promptPart struct {
	Text  string
	Image *models.BaseImage
}

const directorSystemPrompt = `You are a world-class, **Intuitive Storytelling Director**. Your task is to generate a cinematic video prompt based on user inputs. You will follow a strict, sequential three-phase workflow. You are a creative partner who can read between the lines.

---
**THE ASSEMBLY LINE WORKFLOW (MANDATORY)**
Complete these three steps in this exact order. Do not blend them.

**STEP 1: THE BRIEFING ROOM (Factual & Emotional Analysis)**
- Act as a forensic analyst and a script doctor. Gather objective facts and interpret creative intent.
- The Overture you write in Step 2 is the public proof of this analysis. A shallow Overture means the task has failed.
- **Visual Forensics:** analyze every image meticulously. Analyze actors from top to bottom.
- **Literal Fact Adherence:** extract every specific, quantifiable detail (e.g. age "25 years old") from the Main Brief. These are immutable facts.
- **Emotional DNA Analysis:** find the words describing mood, feeling or intent (e.g. "professional", "confident", "mysterious") and synthesize a "Core Emotional Motivation" for the characters.
- **Narrative Trigger Scan:** if the Main Brief mentions "spoken in indonesia", "voice over", "narration" or "monologue", activate "Narrator Mode" for Step 3.
- No creativity or style is permitted in this step.

**STEP 2: THE SCRIPTWRITER'S DESK (Factual Synthesis)**
- Write ONLY the introductory "Overture" paragraph: a rich, detailed, purely factual synthesis of Step 1.
- The Director's Style is forbidden in this step.

**STEP 3: THE DIRECTOR'S CHAIR (Creative Execution)**
- **Adopt Persona:** embody the chosen Director's Style in lighting, camera, mood and sound.
- **Direct the Scenes:** write the numbered scenes from the Main Brief and the factual Overture.
- **Emotional Choreography:** every movement and micro-expression expresses the Core Emotional Motivation.
- **Narrative Execution (if triggered):** in Narrator Mode write one poetic Indonesian voice-over line per scene in 'voiceOver_Indonesian', and end the English scene description with "(Spoken in Indonesian)".
- **Variety & Arc:** each scene uses a different primary cinematic technique; structure the scenes as Hook, Experience, Payoff.
- **Soundscape:** design music and SFX that match the Director's Style.`

const chatSystemPrompt = `You are a "Creative Co-Pilot", a visually-aware brainstorming partner. Your goal is to help a user develop their script idea.
- **Be Proactive & Visual:** Every suggestion you make MUST reference the visual elements in the provided images (The Set, Actors, Props).
- **Ask Guiding Questions:** Help the user think deeper about their idea based on what you "see".
- **Offer Concrete, Actionable Ideas:** Propose specific shots, actions, or moods that can be directly added to a script.
- **Keep it Conversational & Encouraging:** Your tone is like a helpful creative partner.
- **Analyze Images First:** Before responding to the user's first message, briefly state what you see in the images to establish context.`

func scriptPrompt(styles *StyleCatalogue, req ScriptRequest) []promptPart {
	text := fmt.Sprintf("%s\n\nNow, execute this three-step process precisely for the following request.\n**Director's Style to adopt in STEP 3:** %s\n**User's Script (Main Brief):** \"%s\"",
		directorSystemPrompt, styles.Describe(req.Style), req.Brief)

	parts := []promptPart{{Text: text}}
	return append(parts, visualAssetParts("\n--- VISUAL ASSETS --- \n", "\n[THE SET (BACKGROUND IMAGE)]", "[IMAGE %d - ROLE: %s]", req.Background, req.ObjectImages)...)
}

func regeneratePrompt(styles *StyleCatalogue, req RegenerateRequest) ([]promptPart, error) {
	idx := -1
	for i, s := range req.Scenes {
		if s.ID == req.SceneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("scene %s not found for regeneration", req.SceneID)
	}

	var list strings.Builder
	for i, s := range req.Scenes {
		if i > 0 {
			list.WriteString("\n")
		}
		fmt.Fprintf(&list, "  Scene %d: %s", i+1, s.English)
	}

	text := fmt.Sprintf(`You are a world-class Film Editor and Director. Your task is to regenerate a single scene within an existing script to make it better, more creative, or different, while maintaining narrative consistency.

**CONTEXT:**
- **Director's Style:** %s
- **User's Main Brief:** "%s"
- **Overture (Story World):** "%s"
- **Full Scene List (for context):**
%s

**YOUR TASK:**
Regenerate **ONLY Scene %d**. The original version was: "%s".
Your new version must fit seamlessly between Scene %d and Scene %d. It must be more compelling and adhere strictly to the established Director's Style and Visual Facts. Do not change the other scenes.
If the Main Brief suggests narration (e.g., "spoken in indonesia"), you must also generate a new "voiceOver_Indonesian". Otherwise, omit it.

Your output MUST be a valid JSON object matching this schema: { "english": "string", "indonesian": "string", "voiceOver_Indonesian": "string" (optional) }.
Do not add any other text.`,
		styles.Describe(req.Style), req.Brief, req.Overture.English, list.String(),
		idx+1, req.Scenes[idx].English, idx, idx+2)

	parts := []promptPart{{Text: text}}
	return append(parts, visualAssetParts("\n--- VISUAL ASSETS (FOR REFERENCE) --- \n", "\n[THE SET]", "[IMAGE %d - %s]", req.Background, req.ObjectImages)...), nil
}

// chatTurnParts builds the parts of one user chat turn. Images are only
// attached when withImages is set.
func chatTurnParts(turn ChatTurn, withImages bool) []promptPart {
	parts := []promptPart{{Text: turn.Text}}
	if !withImages {
		return parts
	}
	return append(parts, visualAssetParts("\n--- VISUAL ASSETS FOR OUR DISCUSSION --- \n", "\n[THE SET (BACKGROUND IMAGE)]", "[IMAGE %d - ROLE: %s]", turn.Background, turn.ObjectImages)...)
}

func visualAssetParts(header, setLabel, imageLabel string, background *models.BaseImage, objects []models.StoryboardImage) []promptPart {
	var parts []promptPart
	if background != nil || len(objects) > 0 {
		parts = append(parts, promptPart{Text: header})
	}
	if background != nil {
		parts = append(parts, promptPart{Text: setLabel}, promptPart{Image: background})
	}
	for i := range objects {
		img := objects[i]
		parts = append(parts,
			promptPart{Text: fmt.Sprintf(imageLabel, i+1, img.Role)},
			promptPart{Image: &img.BaseImage},
		)
	}
	return parts
}

func sparkPrompt(brief string) string {
	return fmt.Sprintf(`Anda adalah seorang ahli kreativitas. Berdasarkan ide naskah pengguna, berikan SATU saran tunggal yang tak terduga dan inspiratif dalam Bahasa Indonesia untuk membuatnya lebih unik. Saran tersebut harus berupa kalimat pendek yang dapat ditindaklanjuti. Jangan menjelaskan diri Anda.
Ide Naskah Pengguna: "%s"
Saran mengejutkan Anda (dalam Bahasa Indonesia):`, brief)
}

func titlePrompt(firstMessage string) string {
	return fmt.Sprintf(`Generate a very short, descriptive title (3-5 words max) for a chat session based on this first user message. The title should be in the same language as the message.
User Message: "%s"
Title:`, firstMessage)
}

func translatePrompt(text string, from, to Language) string {
	return fmt.Sprintf(`Translate the following text from %s to %s.
Your response must ONLY be the raw translated text. Do not add any extra formatting, commentary, or quotation marks.

Text to translate:
"%s"`, from, to, text)
}

func summarizePrompt(history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "AI Co-Pilot"
		if m.Role == models.ChatRoleUser {
			speaker = "Director"
		}
		lines = append(lines, speaker+": "+m.Text)
	}

	return fmt.Sprintf(`You are a professional Script Editor and Summarizer.
Your task is to read the following brainstorming dialog between a Director and an AI Co-Pilot.
Your mission is to synthesize this entire conversation into a single, coherent, and executable 'Main Brief' (script) for a video prompt generator.

**CRITICAL INSTRUCTION: Your final output MUST be written in Bahasa Indonesia.**

**Instructions:**
1.  Read the entire conversation to understand the Director's final creative vision.
2.  Ignore all conversational filler, greetings, and rejected ideas.
3.  Focus ONLY on the final, agreed-upon creative decisions regarding mood, character actions, specific shots, and narrative flow.
4.  Your output MUST be a single, well-structured block of text in Bahasa Indonesia. Do not write in a conversational tone. Write it as a final, polished script brief.

**Conversation to Summarize:**
---
%s
---

**Finalized Main Brief (in Bahasa Indonesia):**`, strings.Join(lines, "\n\n"))
}

// cleanTitle strips quotes and falls back to the default chat title.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	if title == "" {
		return models.DefaultChatTitle
	}
	return title
}

type rawScript struct {
	Overture *struct {
		English    string `json:"english"`
		Indonesian string `json:"indonesian"`
	} `json:"overture"`
	Scenes     []SceneDraft `json:"scenes"`
	Soundscape *struct {
		Music string   `json:"music"`
		SFX   []string `json:"sfx"`
	} `json:"soundscape"`
}

// DecodeScript parses and validates a script response, assigning fresh scene
// ids and IDLE media status.
func DecodeScript(raw string) (*models.GeneratedPrompts, error) {
	var rs rawScript
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &rs); err != nil {
		logRaw("[Gemini script] parse failed", raw)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	if rs.Overture == nil {
		missing = append(missing, "overture")
	} else {
		if rs.Overture.English == "" {
			missing = append(missing, "overture.english")
		}
		if rs.Overture.Indonesian == "" {
			missing = append(missing, "overture.indonesian")
		}
	}
	if rs.Scenes == nil {
		missing = append(missing, "scenes")
	}
	if rs.Soundscape == nil {
		missing = append(missing, "soundscape")
	}
	for i, s := range rs.Scenes {
		if s.English == "" || s.Indonesian == "" {
			missing = append(missing, fmt.Sprintf("scenes[%d]", i))
		}
	}
	if len(missing) > 0 {
		logRaw("[Gemini script] missing required fields", raw)
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	gp := &models.GeneratedPrompts{
		Overture: models.BilingualText{
			English:    rs.Overture.English,
			Indonesian: rs.Overture.Indonesian,
		},
		Scenes: make([]models.Scene, 0, len(rs.Scenes)),
		Soundscape: &models.Soundscape{
			Music: rs.Soundscape.Music,
			SFX:   rs.Soundscape.SFX,
		},
	}
	if gp.Soundscape.SFX == nil {
		gp.Soundscape.SFX = []string{}
	}
	for _, s := range rs.Scenes {
		gp.Scenes = append(gp.Scenes, models.NewScene(s.English, s.Indonesian, s.VoiceOver))
	}
	return gp, nil
}

// DecodeSceneDraft parses and validates a single regenerated scene.
func DecodeSceneDraft(raw string) (SceneDraft, error) {
	var d SceneDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &d); err != nil {
		logRaw("[Gemini scene] parse failed", raw)
		return SceneDraft{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if d.English == "" || d.Indonesian == "" {
		logRaw("[Gemini scene] missing required fields", raw)
		return SceneDraft{}, fmt.Errorf("%w: scene needs english and indonesian", ErrMalformedResponse)
	}
	return d, nil
}

func logRaw(prefix, raw string) {
	const maxLogLen = 2000
	if len(raw) > maxLogLen {
		log.Printf("%s, raw response (truncated): %s...", prefix, raw[:maxLogLen])
		return
	}
	log.Printf("%s, raw response: %s", prefix, raw)
}
