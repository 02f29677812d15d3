package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const questionSystemPrompt = "You are an experienced technical interviewer. " +
	"Respond with a JSON object of the form {\"questions\": [\"...\"]} and nothing else. " +
	"Questions must be open-ended and answerable out loud in one to two minutes."

// fallbackTemplates produce a usable interview when the model is unreachable.
// Ordering is fixed so a degraded session is reproducible.
var fallbackTemplates = []string{
	"Tell me about a recent %s project you are proud of.",
	"Describe the hardest %s problem you have solved and how you approached it.",
	"How do you keep your %s skills current?",
	"Walk me through how you would design a small %s system from scratch.",
	"What would you change about the last %s codebase you worked in?",
	"Describe a time a %s decision of yours turned out to be wrong.",
	"How do you decide when a %s solution is good enough to ship?",
}

// GenerateQuestions asks the chat model for an interview question set. Any
// upstream failure degrades to the deterministic fallback set so the session
// can always proceed.
func (p *Provider) GenerateQuestions(ctx context.Context, category string, count int) ([]string, error) {
	if count <= 0 {
		count = 5
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = "general"
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var content string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.config.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: questionSystemPrompt},
				{
					Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Generate %d interview questions for the %q category.",
						count, category),
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		p.logWarn("question generation failed, using fallback set", "error", err.Error())
		return fallbackQuestions(category, count), nil
	}

	set, err := parseQuestionsPayload(content, category, count)
	if err != nil {
		p.logWarn("question payload unusable, using fallback set", "error", err.Error())
		return fallbackQuestions(category, count), nil
	}
	return set, nil
}

// parseQuestionsPayload extracts and normalizes the question list, clamping
// an oversized set and padding an undersized one from the fallback templates.
func parseQuestionsPayload(content, category string, count int) ([]string, error) {
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode question payload: %w", err)
	}

	set := make([]string, 0, count)
	for _, question := range payload.Questions {
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		set = append(set, question)
		if len(set) == count {
			break
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("question payload contained no usable questions")
	}

	for i := 0; len(set) < count; i++ {
		set = append(set, fallbackQuestion(category, i))
	}
	return set, nil
}

// fallbackQuestions returns the deterministic degraded-mode question set.
func fallbackQuestions(category string, count int) []string {
	set := make([]string, count)
	for i := range set {
		set[i] = fallbackQuestion(category, i)
	}
	return set
}

func fallbackQuestion(category string, i int) string {
	return fmt.Sprintf(fallbackTemplates[i%len(fallbackTemplates)], category)
}
