package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/infrastructure/metrics"
	"github.com/Ponesicek/s4chat/internal/infrastructure/observability"
	chatclient "github.com/Ponesicek/s4chat/internal/utils/httpclients/chat"
	"github.com/Ponesicek/s4chat/internal/utils/idgen"
)

const gfmSystemPrompt = "Use GFM to format your responses. Do not mention GFM in your responses."

// Terminal outcomes recorded in the generations metric. A user-initiated
// stop is not a provider failure and is counted apart.
const (
	outcomeCompleted = "completed"
	outcomeStopped   = "stopped"
	outcomeError     = "error"
)

const (
	statusSubmitted       = "Generating message..."
	statusGenerating      = "Generating..."
	statusReasoning       = "Reasoning..."
	statusImageGenerating = "Generating image..."
	statusCompleted       = "Message generated"
)

type generationJob struct {
	userID         string
	conversationID uint
	content        string
	model          *model.Model
	useTools       bool
	apiKey         string
}

// run drives one generation end to end. The user message is already durable;
// from here on, failures are reported through the assistant message status.
func (s *Service) run(ctx context.Context, job generationJob) {
	ctx, span := observability.StartSpan(ctx, "s4chat", "generation.run")
	defer span.End()
	observability.AddSpanAttributes(ctx,
		attribute.String("model", job.model.Model),
		attribute.Int64("conversation_id", int64(job.conversationID)),
	)

	ctx = chatclient.WithAPIKeyOverride(ctx, job.apiKey)

	log := logger.Component("orchestrator")
	start := time.Now()
	state := outcomeCompleted
	defer func() {
		metrics.GenerationsTotal.WithLabelValues(job.model.Model, state).Inc()
		metrics.GenerationDuration.WithLabelValues(job.model.Model).Observe(time.Since(start).Seconds())
	}()

	prior, err := s.messages.ListByConversation(ctx, job.conversationID)
	if err != nil {
		log.Error().Err(err).Uint("conversation", job.conversationID).Msg("failed to load history, generation aborted")
		state = outcomeError
		return
	}
	// Exactly one prior message means this is the first assistant reply
	deriveTitle := len(prior) == 1

	if job.model.IsImage {
		if !s.runImage(ctx, job) {
			state = outcomeError
		}
		return
	}

	var titleDone chan struct{}
	if deriveTitle {
		titleDone = make(chan struct{})
		go func() {
			defer close(titleDone)
			s.deriveTitle(ctx, job.conversationID, job.content)
		}()
	}

	history := AssembleHistory(ctx, prior, s.blobs)
	state = s.runStream(ctx, job, history)

	// The stream never waits on the title, but the turn does not finish
	// until the title attempt settles.
	if titleDone != nil {
		<-titleDone
	}
}

// runImage is the non-streamed path for image-output models. It reports
// success for metrics purposes.
func (s *Service) runImage(ctx context.Context, job generationJob) bool {
	log := logger.Component("orchestrator")

	placeholder, err := s.insertAssistantMessage(ctx, job, true, statusImageGenerating)
	if err != nil {
		log.Error().Err(err).Msg("failed to create image message record")
		return false
	}

	data, err := s.image.CreateImage(ctx, job.content)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues("openai", "image").Inc()
		s.finalizeError(ctx, placeholder.ID, "", nil, err)
		return false
	}

	ref, err := s.blobs.Store(ctx, data, "image/png")
	if err != nil {
		s.finalizeError(ctx, placeholder.ID, "", nil, err)
		return false
	}

	_, err = s.messages.PatchInFlight(ctx, placeholder.ID, conversation.MessagePatch{
		Content: ref,
		Status:  &conversation.MessageStatus{Type: conversation.StatusCompleted, Message: statusCompleted},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to finalize image message")
		return false
	}
	return true
}

// runStream drives the chunked text path, including the bounded agent loop.
// It returns the terminal outcome label for the generations metric.
func (s *Service) runStream(ctx context.Context, job generationJob, history []openai.ChatCompletionMessage) string {
	log := logger.Component("orchestrator")

	placeholder, err := s.insertAssistantMessage(ctx, job, false, statusSubmitted)
	if err != nil {
		log.Error().Err(err).Msg("failed to create assistant message record")
		return outcomeError
	}

	var tools []openai.Tool
	if job.useTools {
		if err := s.tools.EnsureInitialized(ctx); err != nil {
			log.Warn().Err(err).Msg("tool pool initialization interrupted, continuing without tools")
		} else {
			tools = s.tools.Tools()
		}
	}

	prompt := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	prompt = append(prompt, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: gfmSystemPrompt,
	})
	prompt = append(prompt, history...)

	var content, reasoning string

	maxSteps := s.cfg.MaxAgentSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	for step := 0; step < maxSteps; step++ {
		streamCtx, cancel := context.WithCancel(ctx)

		request := openai.ChatCompletionRequest{
			Model:    job.model.Model,
			Messages: prompt,
			Tools:    tools,
		}
		events, err := s.chat.StreamChatCompletion(streamCtx, request)
		if err != nil {
			cancel()
			metrics.ProviderErrorsTotal.WithLabelValues("openrouter", "stream").Inc()
			s.finalizeError(ctx, placeholder.ID, content, &reasoning, err)
			return outcomeError
		}

		var calls []openai.ToolCall
		stepContent := ""
		failed := false
		stopped := false

		for event := range events {
			metrics.ChunksTotal.WithLabelValues(string(event.Kind)).Inc()

			var status conversation.MessageStatus
			switch event.Kind {
			case chatclient.EventTextDelta:
				content += event.Text
				stepContent += event.Text
				status = conversation.MessageStatus{Type: conversation.StatusPending, Message: statusGenerating}
			case chatclient.EventReasoning:
				reasoning += event.Text
				status = conversation.MessageStatus{Type: conversation.StatusPending, Message: statusReasoning}
			case chatclient.EventToolCall:
				calls = append(calls, *event.ToolCall)
				status = conversation.MessageStatus{
					Type:    conversation.StatusPending,
					Message: fmt.Sprintf("Calling %s...", event.ToolCall.Function.Name),
				}
			case chatclient.EventError:
				metrics.ProviderErrorsTotal.WithLabelValues("openrouter", "chunk").Inc()
				s.finalizeError(ctx, placeholder.ID, content, &reasoning, event.Err)
				failed = true
			default:
				// unknown chunk kinds are skipped, the stream goes on
				continue
			}
			if failed {
				break
			}

			ok, patchErr := s.messages.PatchInFlight(ctx, placeholder.ID, conversation.MessagePatch{
				Content:   content,
				Reasoning: &reasoning,
				Status:    &status,
			})
			if patchErr != nil {
				log.Error().Err(patchErr).Msg("failed to persist chunk")
				continue
			}
			if !ok {
				// Someone stopped this generation, stop streaming too
				stopped = true
				break
			}
		}
		cancel()

		if failed {
			return outcomeError
		}
		if stopped {
			return outcomeStopped
		}

		if len(calls) == 0 {
			break
		}

		prompt = append(prompt, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   stepContent,
			ToolCalls: calls,
		})
		for _, call := range calls {
			result, invokeErr := s.tools.Invoke(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if invokeErr != nil {
				log.Warn().Err(invokeErr).Str("tool", call.Function.Name).Msg("tool invocation failed")
				result = fmt.Sprintf("tool error: %v", invokeErr)
			}
			prompt = append(prompt, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})

			status := conversation.MessageStatus{
				Type:    conversation.StatusPending,
				Message: fmt.Sprintf("Processing %s response...", call.Function.Name),
			}
			ok, patchErr := s.messages.PatchInFlight(ctx, placeholder.ID, conversation.MessagePatch{
				Content:   content,
				Reasoning: &reasoning,
				Status:    &status,
			})
			if patchErr != nil {
				log.Error().Err(patchErr).Msg("failed to persist tool status")
			} else if !ok {
				return outcomeStopped
			}
		}
	}

	ok, err := s.messages.PatchInFlight(ctx, placeholder.ID, conversation.MessagePatch{
		Content:   content,
		Reasoning: &reasoning,
		Status:    &conversation.MessageStatus{Type: conversation.StatusCompleted, Message: statusCompleted},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to finalize message")
		return outcomeError
	}
	if !ok {
		return outcomeStopped
	}
	return outcomeCompleted
}

// finalizeError writes the terminal error status, keeping whatever partial
// output was gathered.
func (s *Service) finalizeError(ctx context.Context, messageID uint, content string, reasoning *string, cause error) {
	if content == "" {
		content = "Error occurred during generation"
	}
	detail := "Unknown error occurred"
	if cause != nil {
		detail = fmt.Sprintf("Error: %v", cause)
	}
	_, err := s.messages.PatchInFlight(ctx, messageID, conversation.MessagePatch{
		Content:   content,
		Reasoning: reasoning,
		Status:    &conversation.MessageStatus{Type: conversation.StatusError, Message: detail},
	})
	if err != nil {
		log := logger.Component("orchestrator")
		log.Error().Err(err).Msg("failed to record generation error")
	}
}

func (s *Service) insertAssistantMessage(ctx context.Context, job generationJob, isImage bool, statusMessage string) (*conversation.Message, error) {
	publicID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, err
	}
	msg := &conversation.Message{
		PublicID:       publicID,
		UserID:         job.userID,
		ConversationID: job.conversationID,
		ModelID:        job.model.ID,
		Role:           conversation.RoleAssistant,
		Content:        "",
		IsImage:        isImage,
		Status: &conversation.MessageStatus{
			Type:    conversation.StatusPending,
			Message: statusMessage,
		},
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
