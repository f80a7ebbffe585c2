package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
)

// MCPRequest represents a generic MCP JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// MCPResponse represents a generic MCP JSON-RPC response
type MCPResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *MCPError       `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// MCPError represents an MCP error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ToolDefinition describes a tool advertised by an MCP provider.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Bridge handles communication with one external MCP provider.
type Bridge struct {
	provider   Provider
	httpClient *http.Client
	sessionID  string // MCP session ID for stateful connections
}

// NewBridge creates a new MCP provider bridge
func NewBridge(provider Provider) *Bridge {
	return &Bridge{
		provider: provider,
		httpClient: &http.Client{
			Timeout: provider.TimeoutDuration(),
		},
	}
}

// Initialize sends an initialize request to the MCP provider
func (b *Bridge) Initialize(ctx context.Context) error {
	req := MCPRequest{
		JSONRPC: "2.0",
		Method:  "initialize",
		Params:  json.RawMessage(`{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"s4chat","version":"1.0.0"}}`),
		ID:      0,
	}

	resp, sessionID, err := b.sendRequestWithSession(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to initialize %s: %w", b.provider.Name, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("MCP initialization error from %s: %s", b.provider.Name, resp.Error.Message)
	}

	if sessionID != "" {
		b.sessionID = sessionID
	}

	log := logger.GetLogger()
	log.Info().
		Str("provider", b.provider.Name).
		Msg("MCP provider initialized")

	return nil
}

// ListTools retrieves the list of tools from the MCP provider
func (b *Bridge) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	req := MCPRequest{
		JSONRPC: "2.0",
		Method:  "tools/list",
		ID:      1,
	}

	resp, err := b.sendRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools from %s: %w", b.provider.Name, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP error from %s: %s", b.provider.Name, resp.Error.Message)
	}

	var result struct {
		Tools []ToolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tools from %s: %w", b.provider.Name, err)
	}
	return result.Tools, nil
}

// CallTool forwards a tool call to the MCP provider. On a stale session it
// reinitializes once and retries.
func (b *Bridge) CallTool(ctx context.Context, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	call := func() (json.RawMessage, error) {
		params, err := json.Marshal(map[string]any{
			"name":      toolName,
			"arguments": arguments,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool call params: %w", err)
		}

		req := MCPRequest{
			JSONRPC: "2.0",
			Method:  "tools/call",
			Params:  params,
			ID:      time.Now().UnixNano(),
		}

		resp, err := b.sendRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("MCP error calling %s on %s: %s", toolName, b.provider.Name, resp.Error.Message)
		}
		return resp.Result, nil
	}

	result, err := call()
	if err == nil {
		return result, nil
	}

	if b.shouldReinitialize(err) {
		log := logger.GetLogger()
		log.Warn().
			Err(err).
			Str("provider", b.provider.Name).
			Msg("provider session invalid, reinitializing MCP bridge")
		if initErr := b.Initialize(ctx); initErr == nil {
			return call()
		}
	}

	return nil, fmt.Errorf("failed to call tool %s on %s: %w", toolName, b.provider.Name, err)
}

func (b *Bridge) shouldReinitialize(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "session not found") {
		return true
	}
	return strings.Contains(msg, "HTTP 404")
}

func (b *Bridge) sendRequest(ctx context.Context, mcpReq MCPRequest) (*MCPResponse, error) {
	resp, _, err := b.sendRequestWithSession(ctx, mcpReq)
	return resp, err
}

func (b *Bridge) sendRequestWithSession(ctx context.Context, mcpReq MCPRequest) (*MCPResponse, string, error) {
	bodyBytes, err := json.Marshal(mcpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal MCP request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.provider.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	// Providers answer either plain JSON or SSE framing
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if b.sessionID != "" {
		httpReq.Header.Set("mcp-session-id", b.sessionID)
	}

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	sessionID := httpResp.Header.Get("mcp-session-id")

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, sessionID, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(body))
	}

	respBodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, sessionID, fmt.Errorf("failed to read response body: %w", err)
	}

	jsonData := respBodyBytes
	if bytes.HasPrefix(respBodyBytes, []byte("event:")) || bytes.HasPrefix(respBodyBytes, []byte("data:")) {
		jsonData = nil
		for _, line := range bytes.Split(respBodyBytes, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if bytes.HasPrefix(line, []byte("data: ")) {
				jsonData = bytes.TrimPrefix(line, []byte("data: "))
				break
			}
		}
		if len(jsonData) == 0 {
			return nil, sessionID, fmt.Errorf("no data field found in SSE response")
		}
	}

	var mcpResp MCPResponse
	if err := json.Unmarshal(jsonData, &mcpResp); err != nil {
		return nil, sessionID, fmt.Errorf("failed to unmarshal MCP response: %w", err)
	}

	return &mcpResp, sessionID, nil
}
