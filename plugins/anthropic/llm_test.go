package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"voiceagent/services/llm"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	s.lastParams = body
	return ssestream.NewStream[sdk.MessageStreamEventUnion](&noopDecoder{}, nil)
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func TestChatTranslatesTextResponse(t *testing.T) {
	stub := &stubMessagesClient{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "namaste, how can I help?"},
			},
			StopReason: "end_turn",
			Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	c := newClaudeLLM(stub, "claude-sonnet-4-5-20250929")

	resp, err := c.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "namaste, how can I help?" {
		t.Fatalf("unexpected content: %q", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if stub.lastParams.Model != sdk.Model("claude-sonnet-4-5-20250929") {
		t.Fatalf("unexpected model sent: %v", stub.lastParams.Model)
	}
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	stub := &stubMessagesClient{}
	c := newClaudeLLM(stub, "claude-sonnet-4-5-20250929")

	_, err := c.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be helpful"},
	}, nil)
	if err == nil {
		t.Fatal("expected error for a conversation with no user/assistant turns")
	}
}

func TestCompleteIsUnsupported(t *testing.T) {
	c := newClaudeLLM(&stubMessagesClient{}, "claude-sonnet-4-5-20250929")
	if _, err := c.Complete(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected Complete to return an error")
	}
}
