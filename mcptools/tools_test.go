package mcptools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name    string
	timeout int
	delay   time.Duration
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echoes input" }
func (e *echoTool) TimeoutSecs() int    { return e.timeout }
func (e *echoTool) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"message"},
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
	}
}
func (e *echoTool) Execute(ctx context.Context, input json.RawMessage) (CallResult, *ToolError) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return CallResult{}, &ToolError{Kind: ErrTimeout, Msg: "cancelled"}
		}
	}
	var args struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(input, &args)
	return CallResult{Content: []ContentBlock{{Type: "text", Text: args.Message}}}, nil
}

func TestRegisterCompilesSchema(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoTool{name: "echo", timeout: 5}))
	require.Equal(t, 1, reg.Count())
}

func TestCallValidatesAgainstSchema(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoTool{name: "echo", timeout: 5}))

	res := reg.Call(context.Background(), "echo", []byte(`{}`))
	require.True(t, res.IsError)

	res = reg.Call(context.Background(), "echo", []byte(`{"message": "hi"}`))
	require.False(t, res.IsError)
	require.Equal(t, "hi", res.Content[0].Text)
}

func TestCallUnknownToolReturnsNotFound(t *testing.T) {
	reg := NewRegistry()
	res := reg.Call(context.Background(), "missing", []byte(`{}`))
	require.True(t, res.IsError)
}

func TestCallTimesOutSlowTool(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoTool{name: "slow", timeout: 1, delay: 2 * time.Second}))

	start := time.Now()
	res := reg.Call(context.Background(), "slow", []byte(`{"message": "hi"}`))
	require.True(t, res.IsError)
	require.Less(t, time.Since(start), 2*time.Second)
}
