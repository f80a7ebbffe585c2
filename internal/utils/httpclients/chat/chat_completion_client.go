package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"
)

const (
	requestTimeout       = 120 * time.Second
	eventBufferSize      = 100
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

type StreamOption func(*resty.Request)

func WithHeader(key, value string) StreamOption {
	return func(r *resty.Request) {
		if strings.TrimSpace(key) == "" {
			return
		}
		r.SetHeader(key, value)
	}
}

type ChoiceDelta struct {
	Content          string            `json:"content"`
	ReasoningContent string            `json:"reasoning_content"`
	ToolCalls        []openai.ToolCall `json:"tool_calls,omitempty"`
}

type StreamChoice struct {
	Delta        ChoiceDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type ChatCompletionClient struct {
	client  *resty.Client
	baseURL string
	name    string
}

type toolCallAccumulator struct {
	ID       string
	Type     string
	Index    int
	Function struct {
		Name      string
		Arguments string
	}
	Emitted bool
}

func NewChatCompletionClient(client *resty.Client, name, baseURL string) *ChatCompletionClient {
	return &ChatCompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		name:    name,
	}
}

func (c *ChatCompletionClient) CreateChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "request failed")
	}
	return &respBody, nil
}

// StreamChatCompletion opens a streaming completion and decodes the SSE frames
// into StreamEvents. The channel is closed when the provider signals [DONE],
// the stream ends, or the context is cancelled. Tool calls arrive as argument
// fragments and are emitted as single events once fully accumulated.
func (c *ChatCompletionClient) StreamChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest, opts ...StreamOption) (<-chan StreamEvent, error) {
	request.Stream = true

	resp, err := c.doStreamingRequest(ctx, apiKey, request, opts...)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, eventBufferSize)

	go func() {
		defer close(events)
		defer func() {
			if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
				log := logger.GetLogger()
				log.Error().Err(closeErr).Str("client", c.name).Msg("unable to close response body")
			}
		}()

		accumulators := make(map[int]*toolCallAccumulator)

		scanner := bufio.NewScanner(resp.RawResponse.Body)
		scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				c.emit(ctx, events, StreamEvent{Kind: EventError, Err: ctx.Err()})
				return
			default:
			}

			data, found := strings.CutPrefix(scanner.Text(), dataPrefix)
			if !found {
				continue
			}
			if data == doneMarker {
				c.flushToolCalls(ctx, events, accumulators)
				return
			}

			choice := c.decodeStreamChunk(data)
			if choice == nil {
				continue
			}
			if choice.Delta.Content != "" {
				if !c.emit(ctx, events, StreamEvent{Kind: EventTextDelta, Text: choice.Delta.Content}) {
					return
				}
			}
			if choice.Delta.ReasoningContent != "" {
				if !c.emit(ctx, events, StreamEvent{Kind: EventReasoning, Text: choice.Delta.ReasoningContent}) {
					return
				}
			}
			for i := range choice.Delta.ToolCalls {
				c.accumulateToolCall(&choice.Delta.ToolCalls[i], accumulators)
			}
			if choice.FinishReason == string(openai.FinishReasonToolCalls) {
				c.flushToolCalls(ctx, events, accumulators)
			}
		}

		if err := scanner.Err(); err != nil {
			c.emit(ctx, events, StreamEvent{Kind: EventError, Err: err})
			return
		}
		c.flushToolCalls(ctx, events, accumulators)
	}()

	return events, nil
}

func (c *ChatCompletionClient) emit(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *ChatCompletionClient) flushToolCalls(ctx context.Context, events chan<- StreamEvent, accumulators map[int]*toolCallAccumulator) {
	indexes := make([]int, 0, len(accumulators))
	for index := range accumulators {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		acc := accumulators[index]
		if acc == nil || acc.Emitted || acc.Function.Name == "" {
			continue
		}
		acc.Emitted = true
		idx := acc.Index
		call := &openai.ToolCall{
			ID:    acc.ID,
			Type:  openai.ToolType(acc.Type),
			Index: &idx,
			Function: openai.FunctionCall{
				Name:      acc.Function.Name,
				Arguments: acc.Function.Arguments,
			},
		}
		if !c.emit(ctx, events, StreamEvent{Kind: EventToolCall, ToolCall: call}) {
			return
		}
	}
}

func (c *ChatCompletionClient) decodeStreamChunk(data string) *StreamChoice {
	var streamData struct {
		Choices []StreamChoice `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &streamData); err != nil {
		log := logger.GetLogger()
		log.Error().Err(err).Str("client", c.name).Str("data", data).Msg("failed to parse stream chunk JSON")
		return nil
	}

	result := &StreamChoice{}
	for _, choice := range streamData.Choices {
		result.Delta.Content += choice.Delta.Content
		result.Delta.ReasoningContent += choice.Delta.ReasoningContent
		if len(choice.Delta.ToolCalls) > 0 {
			result.Delta.ToolCalls = append(result.Delta.ToolCalls, choice.Delta.ToolCalls...)
		}
		if choice.FinishReason != "" {
			result.FinishReason = choice.FinishReason
		}
	}
	return result
}

func (c *ChatCompletionClient) accumulateToolCall(toolCall *openai.ToolCall, accumulators map[int]*toolCallAccumulator) {
	if toolCall == nil {
		return
	}
	index := 0
	if toolCall.Index != nil {
		index = *toolCall.Index
	}
	if accumulators[index] == nil {
		accumulators[index] = &toolCallAccumulator{
			ID:    toolCall.ID,
			Type:  string(toolCall.Type),
			Index: index,
		}
	}
	if toolCall.ID != "" {
		accumulators[index].ID = toolCall.ID
	}
	if toolCall.Function.Name != "" {
		accumulators[index].Function.Name = toolCall.Function.Name
	}
	if toolCall.Function.Arguments != "" {
		accumulators[index].Function.Arguments += toolCall.Function.Arguments
	}
}

func (c *ChatCompletionClient) prepareRequest(ctx context.Context, apiKey string) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	return req
}

func (c *ChatCompletionClient) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *ChatCompletionClient) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s with status %d", message, statusCode(resp)), nil, "")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s with status %d", message, statusCode(resp)), nil, "")
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s with status %d", message, statusCode(resp)), nil, "")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s with status %d: %s", message, statusCode(resp), trimmed), nil, "")
}

func (c *ChatCompletionClient) doStreamingRequest(ctx context.Context, apiKey string, request openai.ChatCompletionRequest, opts ...StreamOption) (*resty.Response, error) {
	req := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetDoNotParseResponse(true)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(req)
	}

	if req.Header.Get("Accept-Encoding") == "" {
		req.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil, "")
	}

	return resp, nil
}

func (c *ChatCompletionClient) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed
}

func statusCode(resp *resty.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode()
}
