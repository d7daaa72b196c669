package anthropic

import (
	"fmt"
	"log/slog"

	"voiceagent/plugins"
	"voiceagent/services/llm"
)

// Plugin implements the Anthropic plugin, registering Claude models as
// LLM backends for the planner.
type Plugin struct {
	*plugins.BasePlugin
	apiKey string
}

// NewPlugin creates a new Anthropic plugin.
func NewPlugin(apiKey string) *Plugin {
	return &Plugin{
		BasePlugin: plugins.NewBasePlugin("anthropic", "1.0.0", "Anthropic Claude LLM backend"),
		apiKey:     apiKey,
	}
}

// Register registers Claude LLM services with the plugin registry.
func (p *Plugin) Register(registry *plugins.Registry) error {
	if p.apiKey == "" {
		return fmt.Errorf("anthropic API key is required")
	}

	models := map[string]string{
		"claude-sonnet": "claude-sonnet-4-5-20250929",
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"claude-opus":   "claude-opus-4-1-20250805",
	}

	for serviceName, modelID := range models {
		svcName := serviceName
		mdl := modelID
		registry.RegisterLLM(svcName, func() llm.LLM {
			slog.Debug("anthropic: creating LLM service", "service", svcName, "model", mdl)
			return NewClaudeLLM(p.apiKey, mdl)
		})
	}

	slog.Info("anthropic: plugin registered", "models", len(models))
	return nil
}

// RegisterPlugin registers the Anthropic plugin with the global registry.
func RegisterPlugin(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("anthropic API key cannot be empty")
	}
	return plugins.RegisterPlugin(NewPlugin(apiKey))
}

func init() {
	plugins.RegisterPluginDelegate("anthropic", RegisterPlugin)
}
