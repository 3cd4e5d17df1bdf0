package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIService serves the plain-text utilities (translate, creative spark,
// chat title, summarize) when TEXT_PROVIDER=openai. Script generation and
// chat stay on Gemini because they need image input and a chat handle.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (s *OpenAIService) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Translate returns "" for blank input without calling the model.
func (s *OpenAIService) Translate(ctx context.Context, text string, from, to Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	out, err := s.complete(ctx, translatePrompt(text, from, to))
	if err != nil {
		return "", fmt.Errorf("Failed to translate. %w", err)
	}
	return out, nil
}

func (s *OpenAIService) CreativeSpark(ctx context.Context, brief string) (string, error) {
	out, err := s.complete(ctx, sparkPrompt(brief))
	if err != nil {
		log.Printf("[OpenAI] Creative spark failed: %v", err)
		return "", errors.New("Could not get a creative spark at this moment.")
	}
	return out, nil
}

func (s *OpenAIService) ChatTitle(ctx context.Context, firstMessage string) (string, error) {
	out, err := s.complete(ctx, titlePrompt(firstMessage))
	if err != nil {
		return "", fmt.Errorf("failed to generate chat title: %w", err)
	}
	return cleanTitle(out), nil
}

func (s *OpenAIService) SummarizeChat(ctx context.Context, history []models.ChatMessage) (string, error) {
	out, err := s.complete(ctx, summarizePrompt(history))
	if err != nil {
		log.Printf("[OpenAI] Summarize failed: %v", err)
		return "", errors.New("Could not summarize the script at this moment.")
	}
	return out, nil
}
