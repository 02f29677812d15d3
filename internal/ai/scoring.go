package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tmarbury/viva/internal/session"
)

const scoringSystemPrompt = "You are an experienced technical interviewer scoring a finished interview. " +
	"Respond with a JSON object: {\"score\": 0-100, \"analysis\": \"...\", " +
	"\"strengths\": [\"...\"], \"improvements\": [\"...\"], \"recommendation\": \"hire|consider|not_recommended\"} " +
	"and nothing else."

// ScoreResponses asks the chat model to assess the committed answers. Scoring
// never blocks completion: any failure degrades to a neutral assessment.
func (p *Provider) ScoreResponses(ctx context.Context, category, candidate string, responses []session.Response) session.Assessment {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var content string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.config.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: scoringUserPrompt(category, candidate, responses)},
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
		p.logWarn("scoring failed, recording neutral assessment", "error", err.Error())
		return neutralAssessment()
	}

	assessment, err := parseAssessmentPayload(content)
	if err != nil {
		p.logWarn("assessment payload unusable, recording neutral assessment", "error", err.Error())
		return neutralAssessment()
	}
	return assessment
}

// scoringUserPrompt renders the transcript the model scores.
func scoringUserPrompt(category, candidate string, responses []session.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\nCandidate: %s\n\n", category, candidate)
	for i, response := range responses {
		answer := strings.TrimSpace(response.Answer)
		if answer == "" {
			answer = "(no answer given)"
		}
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n\n", i+1, response.Question, i+1, answer)
	}
	return b.String()
}

// parseAssessmentPayload decodes and normalizes the model's assessment.
func parseAssessmentPayload(content string) (session.Assessment, error) {
	var assessment session.Assessment
	if err := json.Unmarshal([]byte(content), &assessment); err != nil {
		return session.Assessment{}, fmt.Errorf("decode assessment payload: %w", err)
	}
	assessment.Score = clampScore(assessment.Score)
	assessment.Recommendation = normalizeRecommendation(assessment.Recommendation)
	return assessment, nil
}

// normalizeRecommendation maps model output onto the closed verdict set
// hire, consider, not_recommended. Anything unrecognized lands on consider.
func normalizeRecommendation(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hire", "strong hire", "strong_hire":
		return "hire"
	case "not_recommended", "not recommended", "no hire", "no_hire", "pass", "reject":
		return "not_recommended"
	default:
		return "consider"
	}
}

// neutralAssessment is the degraded-mode verdict when scoring is unavailable.
func neutralAssessment() session.Assessment {
	return session.Assessment{
		Score:          70,
		Analysis:       "Automated scoring was unavailable for this interview; a neutral baseline was recorded.",
		Recommendation: "consider",
	}
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
