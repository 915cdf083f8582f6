package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator implements Generator against any OpenAI-compatible chat
// completions API.
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator creates a generator. baseURL may be empty for the
// default OpenAI endpoint. timeout bounds each completion call.
func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

// Generate performs one non-streaming chat completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	msgs = append(msgs, openai.SystemMessage(buildSystemPrompt(req.ProfileAnswers)))
	for _, m := range req.History {
		if m.IsUser {
			msgs = append(msgs, openai.UserMessage(m.Text))
		} else if !m.IsError {
			msgs = append(msgs, openai.AssistantMessage(m.Text))
		}
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion: empty response")
	}

	return Result{Success: true, Message: resp.Choices[0].Message.Content}, nil
}

// buildSystemPrompt personalizes the tutor from the questionnaire answers.
// Answer order is sorted so the prompt is stable across calls.
func buildSystemPrompt(answers map[string]string) string {
	var b strings.Builder
	b.WriteString("You are LearnSpace, a friendly personalized learning tutor. ")
	b.WriteString("Explain concepts clearly and adapt to the learner's profile.")

	if len(answers) > 0 {
		keys := make([]string, 0, len(answers))
		for k := range answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\nLearner profile:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", k, answers[k])
		}
	}
	return b.String()
}
