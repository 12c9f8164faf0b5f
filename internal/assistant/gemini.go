package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/tax-tracker/internal/extraction"
	"google.golang.org/genai"
)

const acknowledgement = "Understood. I am Tax Assistant, and I will answer questions based on the user's provided financial context."

// GeminiAssistant primes a Gemini model with the snapshot and replays the
// conversation on every call.
type GeminiAssistant struct {
	models extraction.ContentGenerator
	model  string
}

// NewGeminiAssistant creates an assistant. An empty model selects
// extraction.DefaultModelName.
func NewGeminiAssistant(models extraction.ContentGenerator, model string) *GeminiAssistant {
	if model == "" {
		model = extraction.DefaultModelName
	}
	return &GeminiAssistant{models: models, model: model}
}

// Reply implements Assistant.
func (g *GeminiAssistant) Reply(ctx context.Context, snap Snapshot, history []Message) (string, error) {
	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return "", errors.New("Reply: history must end with a user message")
	}

	prompt, err := systemPrompt(snap)
	if err != nil {
		return "", fmt.Errorf("Reply: %w", err)
	}

	contents := []*genai.Content{
		{Role: string(RoleUser), Parts: []*genai.Part{{Text: prompt}}},
		{Role: string(RoleModel), Parts: []*genai.Part{{Text: acknowledgement}}},
	}
	for _, m := range trimLeadingModelTurns(history) {
		contents = append(contents, &genai.Content{
			Role:  string(m.Role),
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Reply: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("Reply: empty response from model")
	}
	return text, nil
}

// trimLeadingModelTurns drops the greeting and anything else the model said
// before the user's first message.
func trimLeadingModelTurns(history []Message) []Message {
	for i, m := range history {
		if m.Role == RoleUser {
			return history[i:]
		}
	}
	return nil
}

func systemPrompt(snap Snapshot) (string, error) {
	ctxJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("systemPrompt: marshal snapshot: %w", err)
	}

	return "You are \"Tax Assistant\", an expert AI tax advisor for Indian income tax.\n" +
		"Your tone is helpful, friendly and professional.\n" +
		"You have access to the user's real-time financial data.\n" +
		"Answer the user's questions based on their specific financial context.\n" +
		"NEVER give generic advice. ALWAYS use the provided data to give personalized, actionable insights.\n" +
		"Keep your answers concise and easy to understand. Use markdown for formatting (bold, lists).\n\n" +
		"CURRENT USER'S FINANCIAL CONTEXT (JSON):\n" + string(ctxJSON) + "\n", nil
}
