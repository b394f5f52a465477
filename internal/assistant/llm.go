// Package assistant provides the patient-facing AI endpoints: triage
// chat and structured symptom analysis. Completions run against an
// OpenAI-compatible gateway or directly against Gemini.
package assistant

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a model-agnostic completion call.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Temperature float32
}

// Client produces completions. Implementations map provider throttling
// onto ErrRateLimited and billing exhaustion onto ErrQuotaExceeded.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

var (
	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")

	// ErrQuotaExceeded means the provider account is out of credits.
	ErrQuotaExceeded = errors.New("service quota exceeded, please contact support")
)

func isRateLimited(err error) bool   { return errors.Is(err, ErrRateLimited) }
func isQuotaExceeded(err error) bool { return errors.Is(err, ErrQuotaExceeded) }
