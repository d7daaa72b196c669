package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voiceagent/dialogue"
	"voiceagent/domain"
	"voiceagent/mcptools"
	"voiceagent/memory"
	"voiceagent/nlu"
	"voiceagent/planner"
	"voiceagent/services/llm"
)

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
goals:
  - id: exploration
    required_slots: []
intents:
  - name: discover
    goal: exploration
stages:
  - id: greeting
    guidance: "Greet warmly."
    context_budget: 500
    rag_fraction: 0
    word_ceiling: 40
    intent_transitions:
      discover: qualification
  - id: qualification
    guidance: "Ask about the loan."
    context_budget: 500
    rag_fraction: 0
    word_ceiling: 40
prompts:
  system:
    persona: "You are Priya."
fallbacks:
  technical_issue: "Sorry, something went wrong."
`)
	v, err := domain.Load(base, dom, nil)
	require.NoError(t, err)
	return v
}

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, prompt string, opts *llm.CompletionOptions) (*llm.Completion, error) {
	return nil, nil
}
func (stubLLM) ChatStream(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (llm.ChatStream, error) {
	return nil, nil
}
func (stubLLM) Name() string    { return "stub" }
func (stubLLM) Version() string { return "1" }
func (stubLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.ChatCompletion, error) {
	return &llm.ChatCompletion{Message: llm.Message{Role: llm.RoleAssistant, Content: "Hello, welcome!"}}, nil
}

func newTestSession(t *testing.T) *Session {
	view := testView(t)
	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)
	extractor := nlu.New(nil, nil, nil)
	p := planner.New(planner.DefaultConfig(), view, stubLLM{}, mcptools.NewRegistry(), nil, nil)
	return New(DefaultConfig(), view, tracker, nil, extractor, p, nil)
}

func TestStartTransitionsToListening(t *testing.T) {
	s := newTestSession(t)
	s.Start(context.Background())
	require.Equal(t, StateListening, s.State())
}

func TestHandleUtteranceTransitionsThroughProcessingToSpeaking(t *testing.T) {
	s := newTestSession(t)
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for ev := range s.Events() {
			if ev.Type == "speak" {
				close(done)
				return
			}
		}
	}()

	err := s.HandleUtterance(context.Background(), "I want a gold loan", "Asha")
	require.NoError(t, err)
	<-done
	require.Equal(t, StateSpeaking, s.State())
}

func TestBargeInReturnsToListening(t *testing.T) {
	s := newTestSession(t)
	s.Start(context.Background())
	s.transition(StateProcessing)
	s.transition(StateSpeaking)

	s.BargeIn()
	require.Equal(t, StateListening, s.State())
}

func TestNoteTruncatedReplyTagsLastAssistantTurn(t *testing.T) {
	view := testView(t)
	tracker := dialogue.New(view, dialogue.DefaultConfig(), nil)
	extractor := nlu.New(nil, nil, nil)
	mem := memory.New("Priya", memory.DefaultConfig(), nil, nil, nil)
	p := planner.New(planner.DefaultConfig(), view, stubLLM{}, mcptools.NewRegistry(), nil, nil)
	s := New(DefaultConfig(), view, tracker, mem, extractor, p, nil)

	mem.AddTurn(context.Background(), s.ID(), memory.RoleUser, "I want 5 lakh loan")
	mem.AddTurn(context.Background(), s.ID(), memory.RoleAssistant, "Sure, let me check your eligibility for a")

	s.NoteTruncatedReply(1200)

	turns := mem.Recall.Recent()
	require.Len(t, turns, 2)
	require.False(t, turns[0].Truncated)
	require.True(t, turns[1].Truncated)
	require.Equal(t, int64(1200), turns[1].ConsumedMs)
}

func TestNoteTruncatedReplyNoopWithoutMemory(t *testing.T) {
	s := newTestSession(t)
	require.NotPanics(t, func() { s.NoteTruncatedReply(500) })
}

func TestDisallowedTransitionIsNoOp(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, StateIdle, s.State())
	ok := s.transition(StateSpeaking)
	require.False(t, ok)
	require.Equal(t, StateIdle, s.State())
}

func TestEndClosesEventsChannel(t *testing.T) {
	s := newTestSession(t)
	s.Start(context.Background())
	s.End("test complete")
	require.Equal(t, StateEnded, s.State())
	for range s.Events() {
	}
	_, ok := <-s.Events()
	require.False(t, ok)
}

func TestObserveSpeechFrameConfirmsTurnEnd(t *testing.T) {
	s := newTestSession(t)
	s.Start(context.Background())
	for i := 0; i < s.cfg.MinSpeechFrames; i++ {
		s.ObserveSpeechFrame(context.Background(), true)
	}
	require.Equal(t, StateListening, s.State())
	for i := 0; i < s.cfg.MinSilenceFrames; i++ {
		s.ObserveSpeechFrame(context.Background(), false)
	}
	require.Equal(t, StateProcessing, s.State())
}
