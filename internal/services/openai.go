package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const openAITextModel = "gpt-4o-mini"

// TextProvider is the part of a provider the script writer needs. Both
// GeminiService and OpenAIService implement it so the script tool can
// switch providers per request.
type TextProvider interface {
	GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error)
}

type OpenAIService struct {
	client *openai.Client
	locale string
}

func NewOpenAIService(apiKey, locale string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		locale: locale,
	}
}

// GenerateText runs a chat completion and returns the assistant's text.
func (s *OpenAIService) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    openAITextModel,
		Messages: messages,
	})
	if err != nil {
		return "", Classify(fmt.Errorf("openai request failed: %w", err), s.locale)
	}

	if len(resp.Choices) == 0 {
		return "", malformed(s.locale, fmt.Errorf("no response from openai"))
	}
	return resp.Choices[0].Message.Content, nil
}
