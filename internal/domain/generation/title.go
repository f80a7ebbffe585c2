package generation

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
)

const titleSystemPrompt = "You are a helpful assistant that generates a name for a conversation. " +
	"The name should be a phrase that captures the essence of the conversation. " +
	"The name should be no more than 5 words."

// deriveTitle names the conversation from its first prompt using a fixed
// low-cost model. Failures are logged and swallowed, a missing title is
// cosmetic.
func (s *Service) deriveTitle(ctx context.Context, conversationID uint, prompt string) {
	log := logger.Component("title")

	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.TitleModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("title generation failed")
		return
	}
	if len(resp.Choices) == 0 {
		return
	}

	title := strings.TrimSpace(resp.Choices[0].Message.Content)
	if title == "" {
		return
	}

	if err := s.conversations.UpdateName(ctx, conversationID, title); err != nil {
		log.Warn().Err(err).Msg("failed to store conversation title")
	}
}
