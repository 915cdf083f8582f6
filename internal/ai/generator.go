// Package ai provides the assistant response generator consumed by the
// conversation engine.
package ai

import (
	"context"

	"github.com/learnspace-ai/learnspace/internal/domain"
)

// Request carries everything the generator needs for one reply: the new user
// prompt, the user's questionnaire answers for personalization, and the
// conversation history prior to the new prompt.
type Request struct {
	Prompt         string
	ProfileAnswers map[string]string
	History        []domain.Message
}

// Result is the single settlement of a generator call. A reply with
// Success=false is still a reply; the engine records it as a failed turn
// rather than treating it as an error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Generator produces assistant replies. Implementations must settle exactly
// once per call: either a Result or an error, never both and never neither.
// There is no streaming at this contract.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Disabled is the generator used when no provider is configured. Every call
// settles as a visible failed turn.
type Disabled struct{}

// Generate reports that AI features are unavailable.
func (Disabled) Generate(ctx context.Context, req Request) (Result, error) {
	return Result{Success: false, Message: "AI responses are not configured on this server."}, nil
}
