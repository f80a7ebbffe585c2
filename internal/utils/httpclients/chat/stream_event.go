package chat

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

type EventKind string

const (
	EventTextDelta EventKind = "text-delta"
	EventReasoning EventKind = "reasoning"
	EventToolCall  EventKind = "tool-call"
	EventError     EventKind = "error"
)

// StreamEvent is one decoded unit of a model stream. Text holds the delta for
// text and reasoning events, ToolCall is set only once a call has fully
// accumulated, and Err is set for error events.
type StreamEvent struct {
	Kind     EventKind
	Text     string
	ToolCall *openai.ToolCall
	Err      error
}

type apiKeyOverrideKey struct{}

// WithAPIKeyOverride carries a caller-supplied provider credential for the
// duration of one generation.
func WithAPIKeyOverride(ctx context.Context, apiKey string) context.Context {
	if apiKey == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyOverrideKey{}, apiKey)
}

// APIKeyFromContext returns the override credential, falling back to the
// process-wide default.
func APIKeyFromContext(ctx context.Context, fallback string) string {
	if key, ok := ctx.Value(apiKeyOverrideKey{}).(string); ok && key != "" {
		return key
	}
	return fallback
}
