// Package ai implements example-based assessment. Course staff register a
// training example set for a rubric; submissions are then scored by an LLM
// that picks the rubric option a trained grader would pick for each
// criterion, guided by those examples.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/runt18/edx-ora2/internal/model"
)

// Client scores one response against a rubric, guided by training examples.
// The result maps each criterion name to the selected option name.
type Client interface {
	ScoreResponse(ctx context.Context, rubric model.Rubric, examples []model.TrainingExample, answerText string) (map[string]string, error)
	Ping(ctx context.Context) error
}

// OpenAIClient scores responses through an OpenAI-compatible API.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(baseURL, apiKey, modelName string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// ScoreResponse sends the rubric, the graded examples and the answer text to
// the LLM and parses the option it selects for each criterion.
func (c *OpenAIClient) ScoreResponse(ctx context.Context, rubric model.Rubric, examples []model.TrainingExample, answerText string) (map[string]string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildScoringPrompt(rubric, examples)},
			{Role: openai.ChatMessageRoleUser, Content: answerText},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM scoring response", "raw", raw)

	var selected map[string]string
	if err := json.Unmarshal([]byte(raw), &selected); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return selected, nil
}

// Ping verifies the endpoint is reachable and the credentials work.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	return nil
}

func buildScoringPrompt(rubric model.Rubric, examples []model.TrainingExample) string {
	var sb strings.Builder
	sb.WriteString("You are grading open-ended course responses against a rubric.\n\n")
	sb.WriteString("RUBRIC:\n")
	for _, c := range rubric.Criteria {
		sb.WriteString(fmt.Sprintf("CRITERION %q: %s\n", c.Name, c.Prompt))
		for _, o := range c.Options {
			sb.WriteString(fmt.Sprintf("- option %q (%d points): %s\n", o.Name, o.Points, o.Explanation))
		}
	}

	if len(examples) > 0 {
		sb.WriteString("\nGRADED EXAMPLES:\n")
		for i, ex := range examples {
			selected, _ := json.Marshal(ex.OptionsSelected)
			sb.WriteString(fmt.Sprintf("Example %d response:\n%s\n", i+1, ex.Answer.Text))
			sb.WriteString(fmt.Sprintf("Example %d selected options: %s\n\n", i+1, selected))
		}
	}

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- The next message is a learner's response. Grade it the way the examples were graded.\n")
	sb.WriteString("- Select exactly one option for every criterion.\n")
	sb.WriteString("- Use criterion and option names exactly as they appear in the rubric.\n")
	sb.WriteString("\nRespond ONLY with a JSON object mapping each criterion name to the selected option name.\n")

	return sb.String()
}
