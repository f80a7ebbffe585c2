package mcp

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Ponesicek/s4chat/internal/config"
)

// Provider is one external MCP tool server.
type Provider struct {
	Name     string
	Endpoint string
	Timeout  time.Duration
}

const defaultTimeout = 30 * time.Second

// TimeoutDuration returns the provider timeout, defaulting when unset.
func (p *Provider) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return defaultTimeout
	}
	return p.Timeout
}

// BuildProviders assembles the provider set from configuration. Providers
// whose credentials are missing are skipped rather than failing startup.
func BuildProviders(cfg *config.Config) []Provider {
	if !cfg.MCPEnabled {
		return nil
	}

	var providers []Provider
	if cfg.SmitheryAPIKey != "" {
		providers = append(providers,
			Provider{
				Name: "context7",
				Endpoint: fmt.Sprintf("https://server.smithery.ai/@upstash/context7-mcp/mcp?api_key=%s",
					url.QueryEscape(cfg.SmitheryAPIKey)),
				Timeout: cfg.MCPTimeout,
			},
			Provider{
				Name: "sequential-thinking",
				Endpoint: fmt.Sprintf("https://server.smithery.ai/@smithery-ai/server-sequential-thinking/mcp?api_key=%s",
					url.QueryEscape(cfg.SmitheryAPIKey)),
				Timeout: cfg.MCPTimeout,
			},
		)
	}
	if cfg.ExaAPIKey != "" {
		providers = append(providers, Provider{
			Name:     "exa",
			Endpoint: fmt.Sprintf("https://mcp.exa.ai/mcp?exaApiKey=%s", url.QueryEscape(cfg.ExaAPIKey)),
			Timeout:  cfg.MCPTimeout,
		})
	}
	return providers
}
