package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	chatclient "github.com/Ponesicek/s4chat/internal/utils/httpclients/chat"
)

type memMessages struct {
	mu      sync.Mutex
	nextID  uint
	rows    map[uint]*conversation.Message
	patches map[uint][]conversation.MessagePatch
}

func newMemMessages() *memMessages {
	return &memMessages{
		rows:    make(map[uint]*conversation.Message),
		patches: make(map[uint][]conversation.MessagePatch),
	}
}

func (m *memMessages) Insert(ctx context.Context, msg *conversation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	stored := *msg
	if msg.Status != nil {
		status := *msg.Status
		stored.Status = &status
	}
	m.rows[msg.ID] = &stored
	return nil
}

func (m *memMessages) ListByConversation(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*conversation.Message
	for _, row := range m.rows {
		if row.ConversationID == conversationID {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memMessages) LatestByConversation(ctx context.Context, conversationID uint) (*conversation.Message, error) {
	rows, _ := m.ListByConversation(ctx, conversationID)
	if len(rows) == 0 {
		return nil, errors.New("conversation has no messages")
	}
	return rows[len(rows)-1], nil
}

func (m *memMessages) PatchInFlight(ctx context.Context, messageID uint, patch conversation.MessagePatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[messageID]
	if !ok {
		return false, nil
	}
	if row.Status == nil || row.Status.Type != conversation.StatusPending {
		return false, nil
	}
	row.Content = patch.Content
	if patch.Reasoning != nil {
		reasoning := *patch.Reasoning
		row.Reasoning = &reasoning
	}
	if patch.Status != nil {
		status := *patch.Status
		row.Status = &status
	}
	recorded := conversation.MessagePatch{Content: patch.Content}
	if patch.Reasoning != nil {
		reasoning := *patch.Reasoning
		recorded.Reasoning = &reasoning
	}
	if patch.Status != nil {
		status := *patch.Status
		recorded.Status = &status
	}
	m.patches[messageID] = append(m.patches[messageID], recorded)
	return true, nil
}

func (m *memMessages) assistantRows(conversationID uint) []*conversation.Message {
	rows, _ := m.ListByConversation(context.Background(), conversationID)
	var out []*conversation.Message
	for _, row := range rows {
		if row.Role == conversation.RoleAssistant {
			out = append(out, row)
		}
	}
	return out
}

type memConversations struct {
	mu    sync.Mutex
	rows  map[string]*conversation.Conversation
	names map[uint]string
}

func newMemConversations() *memConversations {
	return &memConversations{
		rows:  make(map[string]*conversation.Conversation),
		names: make(map[uint]string),
	}
}

func (m *memConversations) Create(ctx context.Context, conv *conversation.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.ID = uint(len(m.rows) + 1)
	m.rows[conv.PublicID] = conv
	return nil
}

func (m *memConversations) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.rows[publicID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	copied := *conv
	return &copied, nil
}

func (m *memConversations) FindByUser(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	return nil, nil
}

func (m *memConversations) UpdateName(ctx context.Context, id uint, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
	return nil
}

func (m *memConversations) Delete(ctx context.Context, id uint) error { return nil }

type memModels struct {
	byPublicID map[string]*model.Model
}

func (m *memModels) FindByPublicID(ctx context.Context, publicID string) (*model.Model, error) {
	found, ok := m.byPublicID[publicID]
	if !ok {
		return nil, errors.New("model not found")
	}
	return found, nil
}

func (m *memModels) FindByID(ctx context.Context, id uint) (*model.Model, error) {
	for _, found := range m.byPublicID {
		if found.ID == id {
			return found, nil
		}
	}
	return nil, errors.New("model not found")
}

func (m *memModels) FindAll(ctx context.Context) ([]*model.Model, error) { return nil, nil }

func (m *memModels) Upsert(ctx context.Context, mm *model.Model) error { return nil }

type fakeChat struct {
	mu         sync.Mutex
	steps      [][]chatclient.StreamEvent
	streamErr  error
	title      string
	titleErr   error
	titleCalls int
}

func (f *fakeChat) StreamChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (<-chan chatclient.StreamEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	var events []chatclient.StreamEvent
	if len(f.steps) > 0 {
		events = f.steps[0]
		f.steps = f.steps[1:]
	}
	ch := make(chan chatclient.StreamEvent, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)
	return ch, nil
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	if f.titleErr != nil {
		return nil, f.titleErr
	}
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.title}},
		},
	}, nil
}

type fakeImage struct {
	data []byte
	err  error
}

func (f *fakeImage) CreateImage(ctx context.Context, prompt string) ([]byte, error) {
	return f.data, f.err
}

type recordingBlobs struct {
	mu     sync.Mutex
	stored [][]byte
}

func (r *recordingBlobs) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, data)
	return "blob_generated", nil
}

func (r *recordingBlobs) ResolveURL(ctx context.Context, ref string) (string, error) {
	return "https://blobs.test/" + ref, nil
}

type fakeTools struct {
	mu      sync.Mutex
	result  string
	invoked []string
}

func (f *fakeTools) EnsureInitialized(ctx context.Context) error { return nil }

func (f *fakeTools) Tools() []openai.Tool {
	return []openai.Tool{{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "search"}}}
}

func (f *fakeTools) Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, toolName)
	return f.result, nil
}

type inlineQueue struct{}

func (inlineQueue) Enqueue(ctx context.Context, name string, run func(context.Context)) error {
	run(ctx)
	return nil
}

type fixture struct {
	service       *Service
	messages      *memMessages
	conversations *memConversations
	chat          *fakeChat
	image         *fakeImage
	blobs         *recordingBlobs
	tools         *fakeTools
	conv          *conversation.Conversation
	textModel     *model.Model
	imageModel    *model.Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		TitleModel:    "google/gemini-2.0-flash-001",
		MaxAgentSteps: 10,
	}

	messages := newMemMessages()
	conversations := newMemConversations()
	chat := &fakeChat{title: "Go Streaming Help"}
	image := &fakeImage{data: []byte("png-bytes")}
	blobs := &recordingBlobs{}
	tools := &fakeTools{result: "tool output"}

	textModel := &model.Model{ID: 1, PublicID: "model_text", Model: "openai/gpt-4o-mini", Name: "GPT-4o mini"}
	imageModel := &model.Model{ID: 2, PublicID: "model_image", Model: "gpt-image-1", Name: "GPT Image", IsImage: true}
	models := model.NewService(&memModels{byPublicID: map[string]*model.Model{
		textModel.PublicID:  textModel,
		imageModel.PublicID: imageModel,
	}})

	conv := &conversation.Conversation{PublicID: "conv_test", UserID: "user-1", Name: conversation.DefaultName}
	require.NoError(t, conversations.Create(context.Background(), conv))

	service := NewService(cfg, conversations, messages, models, chat, image, blobs, tools, inlineQueue{})

	return &fixture{
		service:       service,
		messages:      messages,
		conversations: conversations,
		chat:          chat,
		image:         image,
		blobs:         blobs,
		tools:         tools,
		conv:          conv,
		textModel:     textModel,
		imageModel:    imageModel,
	}
}

func (f *fixture) submit(t *testing.T, content string, modelID string, useTools bool) *conversation.Message {
	t.Helper()
	msg, err := f.service.Submit(context.Background(), SubmitParams{
		UserID:               "user-1",
		ConversationPublicID: f.conv.PublicID,
		ModelPublicID:        modelID,
		Content:              content,
		UseTools:             useTools,
	})
	require.NoError(t, err)
	return msg
}

func textDelta(text string) chatclient.StreamEvent {
	return chatclient.StreamEvent{Kind: chatclient.EventTextDelta, Text: text}
}

func TestGenerationStreamsToCompletion(t *testing.T) {
	f := newFixture(t)
	f.chat.steps = [][]chatclient.StreamEvent{{
		textDelta("Hel"),
		textDelta("lo"),
		{Kind: chatclient.EventReasoning, Text: "thinking"},
		textDelta(" there"),
	}}

	f.submit(t, "say hello", f.textModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1, "exactly one assistant record per generation")

	final := assistants[0]
	assert.Equal(t, "Hello there", final.Content)
	require.NotNil(t, final.Reasoning)
	assert.Equal(t, "thinking", *final.Reasoning)
	require.NotNil(t, final.Status)
	assert.Equal(t, conversation.StatusCompleted, final.Status.Type)
	assert.Equal(t, "Message generated", final.Status.Message)

	// content only ever grows, chunk by chunk
	patches := f.messages.patches[final.ID]
	require.NotEmpty(t, patches)
	prev := ""
	for _, patch := range patches {
		assert.True(t, strings.HasPrefix(patch.Content, prev),
			"content regressed from %q to %q", prev, patch.Content)
		prev = patch.Content
	}
}

func TestTitleDerivedOnlyOnFirstTurn(t *testing.T) {
	f := newFixture(t)
	f.chat.steps = [][]chatclient.StreamEvent{{textDelta("hi")}}

	f.submit(t, "first prompt", f.textModel.PublicID, false)

	assert.Equal(t, 1, f.chat.titleCalls)
	assert.Equal(t, "Go Streaming Help", f.conversations.names[f.conv.ID])

	f.chat.steps = [][]chatclient.StreamEvent{{textDelta("again")}}
	f.submit(t, "second prompt", f.textModel.PublicID, false)

	assert.Equal(t, 1, f.chat.titleCalls, "title derivation fires only on the first assistant reply")
}

func TestTitleFailureDoesNotAffectGeneration(t *testing.T) {
	f := newFixture(t)
	f.chat.titleErr = errors.New("title provider down")
	f.chat.steps = [][]chatclient.StreamEvent{{textDelta("content")}}

	f.submit(t, "prompt", f.textModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)
	assert.Equal(t, conversation.StatusCompleted, assistants[0].Status.Type)
	assert.Empty(t, f.conversations.names[f.conv.ID])
}

func TestUserMessageSurvivesImmediateStreamFailure(t *testing.T) {
	f := newFixture(t)
	f.chat.streamErr = errors.New("provider unreachable")

	userMsg := f.submit(t, "doomed prompt", f.textModel.PublicID, false)

	rows, err := f.messages.ListByConversation(context.Background(), f.conv.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, userMsg.PublicID, rows[0].PublicID)
	assert.Equal(t, "doomed prompt", rows[0].Content)

	assistant := rows[1]
	require.NotNil(t, assistant.Status)
	assert.Equal(t, conversation.StatusError, assistant.Status.Type)
	assert.Equal(t, "Error occurred during generation", assistant.Content)
	assert.Contains(t, assistant.Status.Message, "provider unreachable")
}

func TestErrorChunkKeepsPartialContent(t *testing.T) {
	f := newFixture(t)
	f.chat.steps = [][]chatclient.StreamEvent{{
		textDelta("partial answer"),
		{Kind: chatclient.EventError, Err: errors.New("boom")},
	}}

	f.submit(t, "prompt", f.textModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)
	assert.Equal(t, "partial answer", assistants[0].Content)
	assert.Equal(t, conversation.StatusError, assistants[0].Status.Type)
	assert.Equal(t, "Error: boom", assistants[0].Status.Message)
}

func TestStopMarksInFlightMessageAndIsAbsorbing(t *testing.T) {
	f := newFixture(t)

	pending := &conversation.Message{
		PublicID:       "msg_pending",
		UserID:         "user-1",
		ConversationID: f.conv.ID,
		Role:           conversation.RoleAssistant,
		Content:        "partial",
		Status:         &conversation.MessageStatus{Type: conversation.StatusPending, Message: "Generating..."},
	}
	require.NoError(t, f.messages.Insert(context.Background(), pending))

	require.NoError(t, f.service.Stop(context.Background(), "user-1", f.conv.PublicID))

	latest, err := f.messages.LatestByConversation(context.Background(), f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conversation.StatusError, latest.Status.Type)
	assert.Equal(t, "Generation stopped", latest.Status.Message)
	assert.Equal(t, "partial", latest.Content)

	// a second stop is a no-op, and in-flight patches no longer land
	require.NoError(t, f.service.Stop(context.Background(), "user-1", f.conv.PublicID))
	ok, err := f.messages.PatchInFlight(context.Background(), pending.ID, conversation.MessagePatch{Content: "late chunk"})
	require.NoError(t, err)
	assert.False(t, ok)
	latest, _ = f.messages.LatestByConversation(context.Background(), f.conv.ID)
	assert.Equal(t, "partial", latest.Content)
}

func TestStopRejectsForeignConversation(t *testing.T) {
	f := newFixture(t)
	err := f.service.Stop(context.Background(), "someone-else", f.conv.PublicID)
	assert.Error(t, err)
}

func TestImagePathStoresBlobWithoutStreaming(t *testing.T) {
	f := newFixture(t)

	f.submit(t, "a red fox", f.imageModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)

	final := assistants[0]
	assert.True(t, final.IsImage)
	assert.Equal(t, "blob_generated", final.Content)
	assert.Equal(t, conversation.StatusCompleted, final.Status.Type)

	require.Len(t, f.blobs.stored, 1)
	assert.Equal(t, []byte("png-bytes"), f.blobs.stored[0])

	// the image path writes a single terminal patch, no chunk stream
	assert.Len(t, f.messages.patches[final.ID], 1)
}

func TestImageGenerationFailureFinalizesError(t *testing.T) {
	f := newFixture(t)
	f.image.err = errors.New("image provider down")

	f.submit(t, "a red fox", f.imageModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)
	assert.Equal(t, conversation.StatusError, assistants[0].Status.Type)
	assert.Contains(t, assistants[0].Status.Message, "image provider down")
}

func TestToolCallsRunBetweenAgentSteps(t *testing.T) {
	f := newFixture(t)
	callIndex := 0
	f.chat.steps = [][]chatclient.StreamEvent{
		{{Kind: chatclient.EventToolCall, ToolCall: &openai.ToolCall{
			ID:    "call-1",
			Type:  openai.ToolTypeFunction,
			Index: &callIndex,
			Function: openai.FunctionCall{
				Name:      "search",
				Arguments: `{"query":"go errgroup"}`,
			},
		}}},
		{textDelta("found it")},
	}

	f.submit(t, "look this up", f.textModel.PublicID, true)

	assert.Equal(t, []string{"search"}, f.tools.invoked)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)
	assert.Equal(t, "found it", assistants[0].Content)
	assert.Equal(t, conversation.StatusCompleted, assistants[0].Status.Type)
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Submit(context.Background(), SubmitParams{
		UserID:               "user-1",
		ConversationPublicID: f.conv.PublicID,
		ModelPublicID:        f.textModel.PublicID,
		Content:              "   ",
	})
	assert.Error(t, err)

	rows, _ := f.messages.ListByConversation(context.Background(), f.conv.ID)
	assert.Empty(t, rows)
}

func TestSubmitRejectsUnknownModel(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Submit(context.Background(), SubmitParams{
		UserID:               "user-1",
		ConversationPublicID: f.conv.PublicID,
		ModelPublicID:        "model_missing",
		Content:              "hello",
	})
	assert.Error(t, err)
}

func TestUnknownChunkKindIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.chat.steps = [][]chatclient.StreamEvent{{
		textDelta("Hel"),
		{Kind: chatclient.EventKind("usage")},
		textDelta("lo"),
	}}

	f.submit(t, "say hello", f.textModel.PublicID, false)

	assistants := f.messages.assistantRows(f.conv.ID)
	require.Len(t, assistants, 1)

	final := assistants[0]
	assert.Equal(t, "Hello", final.Content)
	require.NotNil(t, final.Status)
	assert.Equal(t, conversation.StatusCompleted, final.Status.Type)
}

// terminalAfterFirstPatch lets the first chunk land, then behaves as if
// another writer already moved the row out of pending.
type terminalAfterFirstPatch struct {
	*memMessages
	patched bool
}

func (m *terminalAfterFirstPatch) PatchInFlight(ctx context.Context, messageID uint, patch conversation.MessagePatch) (bool, error) {
	if m.patched {
		return false, nil
	}
	m.patched = true
	return m.memMessages.PatchInFlight(ctx, messageID, patch)
}

func TestStreamOutcomeDistinguishesStopFromError(t *testing.T) {
	job := generationJob{userID: "user-1", content: "hi"}

	t.Run("external stop", func(t *testing.T) {
		f := newFixture(t)
		f.chat.steps = [][]chatclient.StreamEvent{{textDelta("Hel"), textDelta("lo")}}
		f.service.messages = &terminalAfterFirstPatch{memMessages: f.messages}
		job.conversationID = f.conv.ID
		job.model = f.textModel

		assert.Equal(t, outcomeStopped, f.service.runStream(context.Background(), job, nil))
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newFixture(t)
		f.chat.streamErr = errors.New("provider unreachable")
		job.conversationID = f.conv.ID
		job.model = f.textModel

		assert.Equal(t, outcomeError, f.service.runStream(context.Background(), job, nil))
	})

	t.Run("clean completion", func(t *testing.T) {
		f := newFixture(t)
		f.chat.steps = [][]chatclient.StreamEvent{{textDelta("done")}}
		job.conversationID = f.conv.ID
		job.model = f.textModel

		assert.Equal(t, outcomeCompleted, f.service.runStream(context.Background(), job, nil))
	})
}
