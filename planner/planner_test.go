package planner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voiceagent/dialogue"
	"voiceagent/domain"
	"voiceagent/mcptools"
	"voiceagent/memory"
	"voiceagent/nlu"
	"voiceagent/services/llm"
)

type fakeLLM struct {
	replies []llm.ChatCompletion
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts *llm.CompletionOptions) (*llm.Completion, error) {
	return nil, nil
}
func (f *fakeLLM) ChatStream(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (llm.ChatStream, error) {
	return nil, nil
}
func (f *fakeLLM) Name() string    { return "fake" }
func (f *fakeLLM) Version() string { return "1" }
func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.ChatCompletion, error) {
	r := f.replies[f.calls]
	f.calls++
	return &r, nil
}

func writeYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testView(t *testing.T) *domain.View {
	t.Helper()
	base, dom := t.TempDir(), t.TempDir()
	writeYAML(t, base, "defaults.yaml", `
slots:
  - name: customer_name
    type: text
  - name: phone_number
    type: phone
goals:
  - id: lead_capture
    required_slots: [customer_name, phone_number]
intents:
  - name: capture_lead
    goal: lead_capture
stages:
  - id: greeting
    guidance: "Greet warmly."
    context_budget: 500
    rag_fraction: 0.2
    word_ceiling: 12
prompts:
  system:
    persona: "You are Priya, a helpful gold loan advisor."
`)
	v, err := domain.Load(base, dom, nil)
	require.NoError(t, err)
	return v
}

func TestPlanReturnsPlainTextWithoutToolCalls(t *testing.T) {
	view := testView(t)
	backend := &fakeLLM{replies: []llm.ChatCompletion{
		{Message: llm.Message{Role: llm.RoleAssistant, Content: "Hello there, how can I help you with your gold loan today friend of mine right now please"}},
	}}
	reg := mcptools.NewRegistry()
	p := New(DefaultConfig(), view, backend, reg, nil, nil)

	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)
	reply, err := p.Plan(context.Background(), Turn{StageID: "greeting", Utterance: "hi"}, tracker, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, reply.WordCount, 12)
}

func TestPlanEnforcesWordCeiling(t *testing.T) {
	view := testView(t)
	longReply := ""
	for i := 0; i < 30; i++ {
		longReply += "word "
	}
	backend := &fakeLLM{replies: []llm.ChatCompletion{
		{Message: llm.Message{Role: llm.RoleAssistant, Content: longReply}},
	}}
	reg := mcptools.NewRegistry()
	p := New(DefaultConfig(), view, backend, reg, nil, nil)
	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)

	reply, err := p.Plan(context.Background(), Turn{StageID: "greeting", Utterance: "hi"}, tracker, nil)
	require.NoError(t, err)
	require.Equal(t, 12, reply.WordCount)
}

func TestPlanRunsToolLoopThenReturnsText(t *testing.T) {
	view := testView(t)
	backend := &fakeLLM{replies: []llm.ChatCompletion{
		{Message: llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: "1", Function: llm.Function{Name: "capture_lead", Arguments: `{"customer_name":"Asha","phone_number":"999"}`}}},
		}},
		{Message: llm.Message{Role: llm.RoleAssistant, Content: "Thanks, noted."}},
	}}
	reg := mcptools.NewRegistry()
	require.NoError(t, reg.Register(&stubTool{}))
	p := New(DefaultConfig(), view, backend, reg, nil, nil)
	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)

	reply, err := p.Plan(context.Background(), Turn{StageID: "greeting", Utterance: "hi"}, tracker, nil)
	require.NoError(t, err)
	require.Contains(t, reply.ToolCalls, "capture_lead")
	require.Equal(t, "Thanks, noted.", reply.Text)
}

type stubTool struct{}

func (stubTool) Name() string        { return "capture_lead" }
func (stubTool) Description() string { return "capture lead" }
func (stubTool) TimeoutSecs() int    { return 10 }
func (stubTool) InputSchema() map[string]any {
	return map[string]any{"type": "object"}
}
func (stubTool) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	return mcptools.CallResult{Content: []mcptools.ContentBlock{{Type: "text", Text: "ok"}}}, nil
}

func TestAssemblePromptIncludesIntentContext(t *testing.T) {
	view := testView(t)
	p := New(DefaultConfig(), view, &fakeLLM{}, mcptools.NewRegistry(), nil, nil)
	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)
	tracker.Update(nlu.Intent{Name: "capture_lead", Confidence: 0.9}, 0)

	messages := p.assemblePrompt(context.Background(), Turn{StageID: "greeting", Utterance: "hi"}, tracker, nil, tracker.NextBestAction())
	require.NotEmpty(t, messages)
	require.Equal(t, llm.RoleSystem, messages[0].Role)
}

func TestCoreMemoryUnusedImportGuard(t *testing.T) {
	_ = memory.RoleUser
}
