package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/infrastructure/metrics"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateUnavailable   State = "unavailable"
)

// providerConn is the per-provider connection surface, satisfied by Bridge.
type providerConn interface {
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]ToolDefinition, error)
	CallTool(ctx context.Context, toolName string, arguments json.RawMessage) (json.RawMessage, error)
}

// Pool owns the connections to all configured MCP providers and routes tool
// calls to the provider that advertised the tool. Initialization happens at
// most once per process: concurrent callers share the same attempt, and a
// settled pool is never re-initialized.
type Pool struct {
	providers []Provider
	factory   func(Provider) providerConn

	initOnce sync.Once
	done     chan struct{}

	mu     sync.RWMutex
	state  State
	tools  []openai.Tool
	routes map[string]providerConn
}

type PoolOption func(*Pool)

// WithConnFactory overrides how provider connections are built.
func WithConnFactory(factory func(Provider) providerConn) PoolOption {
	return func(p *Pool) {
		p.factory = factory
	}
}

func NewPool(providers []Provider, opts ...PoolOption) *Pool {
	p := &Pool{
		providers: providers,
		done:      make(chan struct{}),
		state:     StateUninitialized,
		routes:    make(map[string]providerConn),
		factory: func(provider Provider) providerConn {
			return NewBridge(provider)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// EnsureInitialized connects to the providers if no attempt has started yet
// and waits for the shared attempt to settle. It never returns an error for a
// pool that settled unavailable; callers observe that as an empty tool set.
func (p *Pool) EnsureInitialized(ctx context.Context) error {
	p.initOnce.Do(func() {
		p.mu.Lock()
		p.state = StateInitializing
		p.mu.Unlock()
		go p.initialize(context.WithoutCancel(ctx))
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// initialize connects to every provider in parallel. A failing provider is
// logged and skipped, it never blocks the others.
func (p *Pool) initialize(ctx context.Context) {
	defer close(p.done)

	log := logger.Component("mcp-pool")

	type outcome struct {
		conn  providerConn
		tools []ToolDefinition
	}

	var wg sync.WaitGroup
	results := make([]*outcome, len(p.providers))
	for i, provider := range p.providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			conn := p.factory(provider)
			if err := conn.Initialize(ctx); err != nil {
				log.Warn().Err(err).Str("provider", provider.Name).Msg("MCP provider initialization failed")
				return
			}
			tools, err := conn.ListTools(ctx)
			if err != nil {
				log.Warn().Err(err).Str("provider", provider.Name).Msg("MCP tool listing failed")
				return
			}
			results[i] = &outcome{conn: conn, tools: tools}
		}(i, provider)
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, result := range results {
		if result == nil {
			continue
		}
		for _, def := range result.tools {
			if _, exists := p.routes[def.Name]; exists {
				log.Warn().Str("tool", def.Name).Str("provider", p.providers[i].Name).Msg("duplicate MCP tool name, keeping first provider")
				continue
			}
			p.routes[def.Name] = result.conn
			p.tools = append(p.tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  def.InputSchema,
				},
			})
		}
	}

	if len(p.routes) == 0 {
		p.state = StateUnavailable
		log.Warn().Int("providers", len(p.providers)).Msg("no MCP providers available, continuing without tools")
		return
	}
	p.state = StateReady
	log.Info().Int("tools", len(p.tools)).Msg("MCP pool ready")
}

// Tools returns the tool definitions to advertise to the model. Empty until
// the pool is ready.
func (p *Pool) Tools() []openai.Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tools
}

// Invoke routes a tool call to its provider and flattens the result content
// to text.
func (p *Pool) Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (string, error) {
	p.mu.RLock()
	conn, ok := p.routes[toolName]
	p.mu.RUnlock()
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues(toolName, "unknown").Inc()
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("unknown tool: %s", toolName), nil, "")
	}

	result, err := conn.CallTool(ctx, toolName, arguments)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "tool call failed")
	}
	metrics.ToolCallsTotal.WithLabelValues(toolName, "ok").Inc()

	return flattenToolResult(result), nil
}

// flattenToolResult extracts the text parts of an MCP tool result, falling
// back to the raw JSON when no text content is present.
func flattenToolResult(result json.RawMessage) string {
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &parsed); err == nil && len(parsed.Content) > 0 {
		var sb strings.Builder
		for _, part := range parsed.Content {
			if part.Type == "text" && part.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return string(result)
}
