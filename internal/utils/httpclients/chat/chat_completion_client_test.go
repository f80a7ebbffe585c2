package chat

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestDecodeStreamChunkMergesChoices(t *testing.T) {
	c := &ChatCompletionClient{name: "test"}

	choice := c.decodeStreamChunk(`{"choices":[{"delta":{"content":"Hel"}},{"delta":{"content":"lo","reasoning_content":"think"},"finish_reason":"stop"}]}`)
	require.NotNil(t, choice)
	assert.Equal(t, "Hello", choice.Delta.Content)
	assert.Equal(t, "think", choice.Delta.ReasoningContent)
	assert.Equal(t, "stop", choice.FinishReason)
}

func TestDecodeStreamChunkInvalidJSON(t *testing.T) {
	c := &ChatCompletionClient{name: "test"}
	assert.Nil(t, c.decodeStreamChunk("not json"))
}

func TestAccumulateToolCallAssemblesFragments(t *testing.T) {
	c := &ChatCompletionClient{name: "test"}
	accumulators := make(map[int]*toolCallAccumulator)

	c.accumulateToolCall(&openai.ToolCall{
		Index: intp(0),
		ID:    "call_1",
		Type:  "function",
		Function: openai.FunctionCall{
			Name:      "search",
			Arguments: `{"query":`,
		},
	}, accumulators)
	c.accumulateToolCall(&openai.ToolCall{
		Index: intp(0),
		Function: openai.FunctionCall{
			Arguments: `"go"}`,
		},
	}, accumulators)

	require.Contains(t, accumulators, 0)
	assert.Equal(t, "call_1", accumulators[0].ID)
	assert.Equal(t, "search", accumulators[0].Function.Name)
	assert.Equal(t, `{"query":"go"}`, accumulators[0].Function.Arguments)
}

func TestFlushToolCallsEmitsInIndexOrder(t *testing.T) {
	c := &ChatCompletionClient{name: "test"}
	accumulators := make(map[int]*toolCallAccumulator)

	c.accumulateToolCall(&openai.ToolCall{
		Index:    intp(2),
		ID:       "call_b",
		Type:     "function",
		Function: openai.FunctionCall{Name: "second", Arguments: "{}"},
	}, accumulators)
	c.accumulateToolCall(&openai.ToolCall{
		Index:    intp(0),
		ID:       "call_a",
		Type:     "function",
		Function: openai.FunctionCall{Name: "first", Arguments: "{}"},
	}, accumulators)

	events := make(chan StreamEvent, 8)
	c.flushToolCalls(context.Background(), events, accumulators)
	close(events)

	var names []string
	for event := range events {
		require.Equal(t, EventToolCall, event.Kind)
		names = append(names, event.ToolCall.Function.Name)
	}
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestFlushToolCallsSkipsEmittedAndNameless(t *testing.T) {
	c := &ChatCompletionClient{name: "test"}
	accumulators := map[int]*toolCallAccumulator{
		0: {ID: "call_a", Type: "function", Emitted: true},
		1: {ID: "call_b", Type: "function"},
	}
	accumulators[0].Function.Name = "done"

	events := make(chan StreamEvent, 8)
	c.flushToolCalls(context.Background(), events, accumulators)
	close(events)

	assert.Empty(t, events)
}
