package inference

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/Ponesicek/s4chat/internal/config"
	domainmodel "github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/utils/functional"
	"github.com/Ponesicek/s4chat/internal/utils/httpclients"
	chatclient "github.com/Ponesicek/s4chat/internal/utils/httpclients/chat"
)

// InferenceProvider owns the provider-facing HTTP clients. Text generation
// routes through the OpenRouter-compatible endpoint, image generation through
// the OpenAI-compatible one.
type InferenceProvider struct {
	cfg         *config.Config
	chatClient  *chatclient.ChatCompletionClient
	modelClient *chatclient.ChatModelClient
	imageClient *chatclient.ImageClient
}

var _ domainmodel.CatalogSource = (*InferenceProvider)(nil)

func NewInferenceProvider(cfg *config.Config) *InferenceProvider {
	chatResty := httpclients.NewClient("OpenRouterClient")
	imageResty := httpclients.NewClient("OpenAIImageClient")

	return &InferenceProvider{
		cfg:         cfg,
		chatClient:  chatclient.NewChatCompletionClient(chatResty, "openrouter", cfg.OpenRouterBaseURL),
		modelClient: chatclient.NewChatModelClient(chatResty, "openrouter", cfg.OpenRouterBaseURL),
		imageClient: chatclient.NewImageClient(imageResty, "openai-images", cfg.OpenAIBaseURL),
	}
}

// StreamChatCompletion streams a completion for the given request. A
// caller-supplied credential on the context takes precedence over the
// configured key.
func (ip *InferenceProvider) StreamChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (<-chan chatclient.StreamEvent, error) {
	return ip.chatClient.StreamChatCompletion(ctx, chatclient.APIKeyFromContext(ctx, ip.cfg.OpenRouterAPIKey), request)
}

// CreateChatCompletion performs a one-shot completion, used for titles.
func (ip *InferenceProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	return ip.chatClient.CreateChatCompletion(ctx, chatclient.APIKeyFromContext(ctx, ip.cfg.OpenRouterAPIKey), request)
}

// CreateImage generates one image and returns the raw bytes.
func (ip *InferenceProvider) CreateImage(ctx context.Context, prompt string) ([]byte, error) {
	return ip.imageClient.CreateImage(ctx, ip.cfg.OpenAIAPIKey, openai.ImageRequest{
		Model:  ip.cfg.ImageModel,
		Prompt: prompt,
		Size:   ip.cfg.ImageSize,
	})
}

// ListModels implements model.CatalogSource against the text provider.
func (ip *InferenceProvider) ListModels(ctx context.Context) ([]domainmodel.CatalogEntry, error) {
	resp, err := ip.modelClient.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return functional.Map(resp.Data, func(m chatclient.Model) domainmodel.CatalogEntry {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		return domainmodel.CatalogEntry{
			Model:       m.ID,
			Name:        name,
			Description: m.Description,
		}
	}), nil
}
