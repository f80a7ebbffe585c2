package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	name      string
	initErr   error
	initCalls *atomic.Int32
	tools     []ToolDefinition
	callResp  json.RawMessage
	callErr   error
}

func (f *fakeConn) Initialize(ctx context.Context) error {
	f.initCalls.Add(1)
	return f.initErr
}

func (f *fakeConn) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	return f.tools, nil
}

func (f *fakeConn) CallTool(ctx context.Context, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	return f.callResp, f.callErr
}

func newFakeFactory(conns map[string]*fakeConn) func(Provider) providerConn {
	return func(p Provider) providerConn {
		return conns[p.Name]
	}
}

func TestPoolInitializesEachProviderOnce(t *testing.T) {
	var calls atomic.Int32
	conns := map[string]*fakeConn{
		"alpha": {name: "alpha", initCalls: &calls, tools: []ToolDefinition{{Name: "search"}}},
		"beta":  {name: "beta", initCalls: &calls, tools: []ToolDefinition{{Name: "think"}}},
	}
	pool := NewPool(
		[]Provider{{Name: "alpha"}, {Name: "beta"}},
		WithConnFactory(newFakeFactory(conns)),
	)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, pool.EnsureInitialized(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, StateReady, pool.State())
	assert.Len(t, pool.Tools(), 2)
}

func TestPoolIsolatesProviderFailures(t *testing.T) {
	var calls atomic.Int32
	conns := map[string]*fakeConn{
		"alpha": {name: "alpha", initCalls: &calls, initErr: errors.New("connect refused")},
		"beta":  {name: "beta", initCalls: &calls, tools: []ToolDefinition{{Name: "think"}}},
	}
	pool := NewPool(
		[]Provider{{Name: "alpha"}, {Name: "beta"}},
		WithConnFactory(newFakeFactory(conns)),
	)

	require.NoError(t, pool.EnsureInitialized(context.Background()))

	assert.Equal(t, StateReady, pool.State())
	require.Len(t, pool.Tools(), 1)
	assert.Equal(t, "think", pool.Tools()[0].Function.Name)
}

func TestPoolUnavailableWhenAllProvidersFail(t *testing.T) {
	var calls atomic.Int32
	conns := map[string]*fakeConn{
		"alpha": {name: "alpha", initCalls: &calls, initErr: errors.New("connect refused")},
	}
	pool := NewPool(
		[]Provider{{Name: "alpha"}},
		WithConnFactory(newFakeFactory(conns)),
	)

	require.NoError(t, pool.EnsureInitialized(context.Background()))

	assert.Equal(t, StateUnavailable, pool.State())
	assert.Empty(t, pool.Tools())

	_, err := pool.Invoke(context.Background(), "search", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestPoolInvokeFlattensTextContent(t *testing.T) {
	var calls atomic.Int32
	conns := map[string]*fakeConn{
		"alpha": {
			name:      "alpha",
			initCalls: &calls,
			tools:     []ToolDefinition{{Name: "search"}},
			callResp:  json.RawMessage(`{"content":[{"type":"text","text":"first"},{"type":"text","text":"second"}]}`),
		},
	}
	pool := NewPool(
		[]Provider{{Name: "alpha"}},
		WithConnFactory(newFakeFactory(conns)),
	)
	require.NoError(t, pool.EnsureInitialized(context.Background()))

	out, err := pool.Invoke(context.Background(), "search", json.RawMessage(`{"query":"go"}`))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", out)
}

func TestPoolEmptyProviderListIsUnavailable(t *testing.T) {
	pool := NewPool(nil)
	require.NoError(t, pool.EnsureInitialized(context.Background()))
	assert.Equal(t, StateUnavailable, pool.State())
	assert.Empty(t, pool.Tools())
}
