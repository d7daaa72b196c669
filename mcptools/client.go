package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ExternalServerConfig describes one MCP-compliant tool provider outside
// this process, reached either over stdio (Command) or streamable HTTP
// (URL). Domains that need a capability this module doesn't implement
// itself (e.g. a third-party KYC or credit-bureau lookup) point at one
// of these instead of shipping a local Tool.
type ExternalServerConfig struct {
	Name             string
	Command          string
	Args             []string
	URL              string
	KeepAliveSeconds int
}

// remoteTool adapts a session's MCP tool to the local Tool interface so
// it can sit in the same Registry as locally-implemented tools.
type remoteTool struct {
	server  string
	session *mcpsdk.ClientSession
	tool    *mcpsdk.Tool
}

func (t *remoteTool) Name() string        { return t.server + "_" + t.tool.Name }
func (t *remoteTool) Description() string { return t.tool.Description }
func (t *remoteTool) TimeoutSecs() int    { return 30 }

func (t *remoteTool) InputSchema() map[string]any {
	if t.tool.InputSchema == nil {
		return map[string]any{"type": "object"}
	}
	schema, ok := any(t.tool.InputSchema).(map[string]any)
	if !ok {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *remoteTool) Execute(ctx context.Context, input json.RawMessage) (CallResult, *ToolError) {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return CallResult{}, &ToolError{Kind: ErrInvalidParams, Msg: err.Error()}
		}
	}
	res, err := t.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: t.tool.Name, Arguments: args})
	if err != nil {
		return CallResult{}, &ToolError{Kind: ErrUpstream, Msg: err.Error()}
	}
	out := CallResult{IsError: res.IsError}
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out.Content = append(out.Content, ContentBlock{Type: "text", Text: tc.Text})
		}
	}
	return out, nil
}

// ExternalRegistry manages client sessions against external MCP servers
// and registers their advertised tools into a local Registry, grounded
// on the client-side modelcontextprotocol/go-sdk usage found in the
// wider codebase (command and streamable-HTTP transports).
type ExternalRegistry struct {
	mu       sync.Mutex
	sessions map[string]*mcpsdk.ClientSession
}

// NewExternalRegistry constructs an empty external-server manager.
func NewExternalRegistry() *ExternalRegistry {
	return &ExternalRegistry{sessions: map[string]*mcpsdk.ClientSession{}}
}

// Connect dials one external MCP server and registers every tool it
// advertises into reg, namespaced as "<server>_<tool>".
func (m *ExternalRegistry) Connect(ctx context.Context, reg *Registry, cfg ExternalServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("mcptools: external server name required")
	}

	opts := &mcpsdk.ClientOptions{}
	if cfg.KeepAliveSeconds > 0 {
		opts.KeepAlive = time.Duration(cfg.KeepAliveSeconds) * time.Second
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "voiceagent", Version: "1"}, opts)

	var session *mcpsdk.ClientSession
	var err error
	switch {
	case cfg.Command != "":
		session, err = client.Connect(ctx, &mcpsdk.CommandTransport{Command: exec.Command(cfg.Command, cfg.Args...)}, nil)
	case cfg.URL != "":
		session, err = client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}, nil)
	default:
		return fmt.Errorf("mcptools: external server %s needs a command or url", cfg.Name)
	}
	if err != nil {
		return fmt.Errorf("mcptools: connect to %s: %w", cfg.Name, err)
	}

	m.mu.Lock()
	m.sessions[cfg.Name] = session
	m.mu.Unlock()

	for tool, iterErr := range session.Tools(ctx, nil) {
		if iterErr != nil {
			return fmt.Errorf("mcptools: list tools from %s: %w", cfg.Name, iterErr)
		}
		if err := reg.Register(&remoteTool{server: cfg.Name, session: session, tool: tool}); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down every external session.
func (m *ExternalRegistry) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		_ = s.Close()
	}
}
