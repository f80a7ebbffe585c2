package generation

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai"

	chatclient "github.com/Ponesicek/s4chat/internal/utils/httpclients/chat"
)

// ChatClient is the text-model surface the orchestrator drives.
type ChatClient interface {
	StreamChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (<-chan chatclient.StreamEvent, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// ImageClient produces raw image bytes for a prompt.
type ImageClient interface {
	CreateImage(ctx context.Context, prompt string) ([]byte, error)
}

// BlobStore persists binary attachments and resolves their references.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	ResolveURL(ctx context.Context, ref string) (string, error)
}

// ToolSource exposes the shared tool pool. An unavailable pool presents an
// empty tool set, never an error.
type ToolSource interface {
	EnsureInitialized(ctx context.Context) error
	Tools() []openai.Tool
	Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (string, error)
}

// Enqueuer schedules a generation to run off the request path.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, run func(context.Context)) error
}
