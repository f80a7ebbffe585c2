package generation

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
)

// AssembleHistory turns stored messages into prompt turns. Adjacent user
// messages accumulate into one turn that is flushed at the next role
// boundary. Image messages resolve their blob reference to a URL; an
// unresolvable image is dropped rather than aborting the turn. A user turn
// with exactly one text block collapses to plain text.
func AssembleHistory(ctx context.Context, messages []*conversation.Message, blobs BlobStore) []openai.ChatCompletionMessage {
	log := logger.Component("history")

	var history []openai.ChatCompletionMessage
	var userParts []openai.ChatMessagePart

	flush := func() {
		if len(userParts) == 0 {
			return
		}
		turn := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
		if len(userParts) == 1 && userParts[0].Type == openai.ChatMessagePartTypeText {
			turn.Content = userParts[0].Text
		} else {
			turn.MultiContent = userParts
		}
		history = append(history, turn)
		userParts = nil
	}

	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleUser:
			if msg.IsImage {
				url, err := blobs.ResolveURL(ctx, msg.Content)
				if err != nil {
					log.Warn().Err(err).Str("message_id", msg.PublicID).Msg("dropping unresolvable image from history")
					continue
				}
				userParts = append(userParts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: url},
				})
				continue
			}
			if strings.TrimSpace(msg.Content) != "" {
				userParts = append(userParts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: msg.Content,
				})
			}
		case conversation.RoleAssistant:
			flush()
			history = append(history, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			})
		}
	}
	flush()

	return history
}
