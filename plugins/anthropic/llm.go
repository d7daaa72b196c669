// Package anthropic implements the LLM service interface against
// Anthropic's Claude Messages API.
package anthropic

import (
	"context"
	"fmt"
	"io"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"voiceagent/services/llm"
)

// MessagesClient captures the subset of the Anthropic SDK client this
// package uses, so tests can substitute a stub without a live API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// ClaudeLLM implements llm.LLM on top of the Anthropic Messages API.
type ClaudeLLM struct {
	*llm.BaseLLM
	client MessagesClient
	model  string
}

// NewClaudeLLM creates a Claude-backed LLM service for the given model
// identifier (e.g. "claude-sonnet-4-5-20250929").
func NewClaudeLLM(apiKey, model string) *ClaudeLLM {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return newClaudeLLM(&client.Messages, model)
}

func newClaudeLLM(client MessagesClient, model string) *ClaudeLLM {
	return &ClaudeLLM{
		BaseLLM: llm.NewBaseLLM("claude", "1.0.0"),
		client:  client,
		model:   model,
	}
}

// Complete is unsupported: Claude's Messages API has no legacy
// completion endpoint, only chat.
func (c *ClaudeLLM) Complete(ctx context.Context, prompt string, opts *llm.CompletionOptions) (*llm.Completion, error) {
	return nil, fmt.Errorf("anthropic: text completion not supported, use Chat")
}

// Chat performs one non-streaming Messages.New request.
func (c *ClaudeLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.ChatCompletion, error) {
	if opts == nil {
		opts = llm.DefaultChatOptions()
	}
	params, err := c.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	return translateMessage(msg), nil
}

// ChatStream opens a streaming Messages.New request.
func (c *ClaudeLLM) ChatStream(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (llm.ChatStream, error) {
	if opts == nil {
		opts = llm.DefaultChatOptions()
	}
	params, err := c.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}
	stream := c.client.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: messages.new stream: %w", err)
	}
	return &claudeChatStream{stream: stream}, nil
}

func (c *ClaudeLLM) buildParams(messages []llm.Message, opts *llm.ChatOptions) (sdk.MessageNewParams, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case llm.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		case llm.RoleTool:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			return sdk.MessageNewParams{}, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return sdk.MessageNewParams{}, fmt.Errorf("anthropic: at least one user/assistant message is required")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		tools := make([]sdk.ToolUnionParam, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			schema, err := toolInputSchema(t.Function.Parameters)
			if err != nil {
				return sdk.MessageNewParams{}, fmt.Errorf("anthropic: tool %q schema: %w", t.Function.Name, err)
			}
			u := sdk.ToolUnionParamOfTool(schema, t.Function.Name)
			if u.OfTool != nil {
				u.OfTool.Description = sdk.String(t.Function.Description)
			}
			tools = append(tools, u)
		}
		params.Tools = tools
	}
	return params, nil
}

func toolInputSchema(parameters any) (sdk.ToolInputSchemaParam, error) {
	m, ok := parameters.(map[string]any)
	if !ok || m == nil {
		return sdk.ToolInputSchemaParam{}, nil
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func translateMessage(msg *sdk.Message) *llm.ChatCompletion {
	var content string
	var toolCalls []llm.ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: llm.Function{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}
	return &llm.ChatCompletion{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		},
		FinishReason: string(msg.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// claudeChatStream adapts an Anthropic SSE stream to llm.ChatStream,
// forwarding text deltas as they arrive and surfacing the stop reason
// once the model signals message_stop.
type claudeChatStream struct {
	stream     *ssestream.Stream[sdk.MessageStreamEventUnion]
	stopReason string
}

func (s *claudeChatStream) Recv() (*llm.ChatCompletionChunk, error) {
	for s.stream.Next() {
		switch ev := s.stream.Current().AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
				return &llm.ChatCompletionChunk{Delta: llm.MessageDelta{Content: delta.Text}}, nil
			}
		case sdk.MessageDeltaEvent:
			s.stopReason = string(ev.Delta.StopReason)
		case sdk.MessageStopEvent:
			return &llm.ChatCompletionChunk{FinishReason: s.stopReason}, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: stream recv: %w", err)
	}
	return nil, io.EOF
}

func (s *claudeChatStream) Close() error {
	return s.stream.Close()
}
