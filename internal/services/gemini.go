package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini text service
// Script generation, scene regeneration, chat and the small text utilities
// (translate, creative spark, chat title, summarize) over the Gen AI SDK.
// ---------------------------------------------------------------------------

const defaultTextModel = "gemini-2.5-flash"

type GeminiService struct {
	client *genai.Client
	model  string
	styles *StyleCatalogue
}

// ChatTurn is one user message plus the visual assets of the active project.
type ChatTurn struct {
	Text         string
	Background   *models.BaseImage
	ObjectImages []models.StoryboardImage
}

// Conversation is a stateful chat handle. The backend keeps the context of
// earlier turns.
type Conversation interface {
	Send(ctx context.Context, turn ChatTurn, withImages bool) (string, error)
}

func NewGeminiService(ctx context.Context, apiKey, model string, styles *StyleCatalogue) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if model == "" {
		model = defaultTextModel
	}
	if styles == nil {
		styles = DefaultStyles()
	}

	return &GeminiService{client: client, model: model, styles: styles}, nil
}

var stringSchema = &genai.Schema{Type: genai.TypeString}

var sceneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"english":              stringSchema,
		"indonesian":           stringSchema,
		"voiceOver_Indonesian": stringSchema,
	},
	Required: []string{"english", "indonesian"},
}

var scriptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overture": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"english":    stringSchema,
				"indonesian": stringSchema,
			},
			Required: []string{"english", "indonesian"},
		},
		"scenes": {
			Type:  genai.TypeArray,
			Items: sceneSchema,
		},
		"soundscape": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"music": stringSchema,
				"sfx":   {Type: genai.TypeArray, Items: stringSchema},
			},
			Required: []string{"music", "sfx"},
		},
	},
	Required: []string{"overture", "scenes", "soundscape"},
}

func toGenaiParts(parts []promptPart) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func (s *GeminiService) generateJSON(ctx context.Context, parts []promptPart, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(toGenaiParts(parts), genai.RoleUser)}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (s *GeminiService) generateText(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateStoryboard produces a full script for the brief.
func (s *GeminiService) GenerateStoryboard(ctx context.Context, req ScriptRequest) (*models.GeneratedPrompts, error) {
	log.Printf("[Gemini] Generating storyboard (model=%s, style=%s, briefLen=%d, images=%d)",
		s.model, req.Style, len(req.Brief), len(req.ObjectImages))

	raw, err := s.generateJSON(ctx, scriptPrompt(s.styles, req), scriptSchema)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate prompt. %w", err)
	}

	gp, err := DecodeScript(raw)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate prompt. %w", err)
	}

	log.Printf("[Gemini] Storyboard ready (%d scenes)", len(gp.Scenes))
	return gp, nil
}

// RegenerateScene asks for a replacement of one scene that fits its neighbours.
func (s *GeminiService) RegenerateScene(ctx context.Context, req RegenerateRequest) (SceneDraft, error) {
	parts, err := regeneratePrompt(s.styles, req)
	if err != nil {
		return SceneDraft{}, err
	}

	log.Printf("[Gemini] Regenerating scene %s", req.SceneID)

	raw, err := s.generateJSON(ctx, parts, sceneSchema)
	if err != nil {
		return SceneDraft{}, fmt.Errorf("Failed to regenerate scene. %w", err)
	}

	draft, err := DecodeSceneDraft(raw)
	if err != nil {
		return SceneDraft{}, fmt.Errorf("Failed to regenerate scene. %w", err)
	}
	return draft, nil
}

// Translate returns "" for blank input without calling the model.
func (s *GeminiService) Translate(ctx context.Context, text string, from, to Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	out, err := s.generateText(ctx, translatePrompt(text, from, to))
	if err != nil {
		return "", fmt.Errorf("Failed to translate. %w", err)
	}
	return out, nil
}

func (s *GeminiService) CreativeSpark(ctx context.Context, brief string) (string, error) {
	out, err := s.generateText(ctx, sparkPrompt(brief))
	if err != nil {
		log.Printf("[Gemini] Creative spark failed: %v", err)
		return "", errors.New("Could not get a creative spark at this moment.")
	}
	return out, nil
}

func (s *GeminiService) ChatTitle(ctx context.Context, firstMessage string) (string, error) {
	out, err := s.generateText(ctx, titlePrompt(firstMessage))
	if err != nil {
		return "", fmt.Errorf("failed to generate chat title: %w", err)
	}
	return cleanTitle(out), nil
}

func (s *GeminiService) SummarizeChat(ctx context.Context, history []models.ChatMessage) (string, error) {
	out, err := s.generateText(ctx, summarizePrompt(history))
	if err != nil {
		log.Printf("[Gemini] Summarize failed: %v", err)
		return "", errors.New("Could not summarize the script at this moment.")
	}
	return out, nil
}

// StartChat opens a conversation seeded with the existing history.
func (s *GeminiService) StartChat(ctx context.Context, history []models.ChatMessage) (Conversation, error) {
	seed := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		seed = append(seed, genai.NewContentFromText(m.Text, genai.Role(m.Role)))
	}

	chat, err := s.client.Chats.Create(ctx, s.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
	}, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to start chat: %w", err)
	}
	return &geminiConversation{chat: chat}, nil
}

type geminiConversation struct {
	chat *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, turn ChatTurn, withImages bool) (string, error) {
	resp, err := c.chat.Send(ctx, toGenaiParts(chatTurnParts(turn, withImages))...)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
