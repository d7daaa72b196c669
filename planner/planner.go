// Package planner assembles the bounded prompt for one conversational
// turn (persona, stage guidance, dialogue state, memory, and retrieved
// context), drives the bounded LLM/tool loop, and enforces response
// invariants (word ceiling, no doubled greeting-by-name) before handing
// a reply back to the orchestrator. Confirmed slots reach the model only
// through the dialogue-state section of the prompt; the reply is not
// checked for re-asked slots.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"voiceagent/dialogue"
	"voiceagent/domain"
	"voiceagent/mcptools"
	"voiceagent/memory"
	"voiceagent/nlu"
	"voiceagent/services/llm"
)

// maxToolIterations bounds the tool-call loop so a misbehaving LLM
// can't stall a turn indefinitely.
const maxToolIterations = 3

// Config tunes the planner's context budget and safety rails.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the process-wide model settings. Context budgets
// and word ceilings come from the stage configuration, not from Config.
func DefaultConfig() Config {
	return Config{Model: "gpt-4o-mini", Temperature: 0.4, MaxTokens: 400}
}

// Retriever returns RAG snippets relevant to a query, bounded to topK.
// This module ships no implementation; nil is a valid, no-op retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Planner produces the agent's next utterance for a turn.
type Planner struct {
	cfg       Config
	view      *domain.View
	backend   llm.LLM
	tools     *mcptools.Registry
	retriever Retriever
	enc       *tiktoken.Tiktoken
	log       *slog.Logger
}

// New constructs a Planner. retriever may be nil.
func New(cfg Config, view *domain.View, backend llm.LLM, tools *mcptools.Registry, retriever Retriever, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("planner: tiktoken encoding unavailable, falling back to byte estimate", "error", err)
		enc = nil
	}
	return &Planner{cfg: cfg, view: view, backend: backend, tools: tools, retriever: retriever, enc: enc, log: logger}
}

func (p *Planner) countTokens(s string) int {
	if p.enc == nil {
		return len(s) / 4
	}
	return len(p.enc.Encode(s, nil, nil))
}

// Turn is everything the planner needs to produce one reply.
type Turn struct {
	SessionID    string
	Utterance    string
	Intent       nlu.Intent
	StageID      string
	CustomerName string
}

// Reply is the planner's bounded, invariant-checked output.
type Reply struct {
	Text         string
	ToolCalls    []string
	WordCount    int
	GreetedByName bool
}

// Plan assembles context, consults the dialogue tracker for the next
// best action, runs the bounded LLM/tool loop, and enforces response
// invariants before returning.
func (p *Planner) Plan(ctx context.Context, turn Turn, tracker *dialogue.Tracker, mem *memory.AgenticMemory) (Reply, error) {
	nba := tracker.NextBestAction()
	messages := p.assemblePrompt(ctx, turn, tracker, mem, nba)

	stage, _ := p.view.Stage(turn.StageID)
	wordCeiling := stage.WordCeiling
	if wordCeiling <= 0 {
		wordCeiling = 50
	}

	text, calls, err := p.runToolLoop(ctx, messages)
	if err != nil {
		return Reply{}, err
	}

	text = enforceInvariants(text, turn.CustomerName, wordCeiling)
	return Reply{
		Text:          text,
		ToolCalls:     calls,
		WordCount:     len(strings.Fields(text)),
		GreetedByName: turn.CustomerName != "" && strings.Contains(text, turn.CustomerName),
	}, nil
}

// assemblePrompt renders persona, stage guidance, DST summary, core
// memory, and RAG snippets into a system message, trimming each
// section against the stage's configured context budget.
func (p *Planner) assemblePrompt(ctx context.Context, turn Turn, tracker *dialogue.Tracker, mem *memory.AgenticMemory, nba dialogue.NextBestAction) []llm.Message {
	persona, _ := p.view.Prompt("system.persona")
	stage, _ := p.view.Stage(turn.StageID)
	budget := stage.ContextBudget
	if budget <= 0 {
		budget = 2048
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\nStage guidance: ")
	sb.WriteString(stage.Guidance)
	sb.WriteString("\n\nDialogue state: ")
	sb.WriteString(tracker.StateContext())
	sb.WriteString("\nNext best action: ")
	sb.WriteString(string(nba.Kind))
	if nba.Slot != "" {
		sb.WriteString(" (" + nba.Slot + ")")
	}
	if nba.Tool != "" {
		sb.WriteString(" tool=" + nba.Tool)
	}

	if mem != nil {
		human, corePersona := mem.Core.Render()
		sb.WriteString("\n\nKnown about the customer: ")
		sb.WriteString(human)
		sb.WriteString("\nAgent persona notes: ")
		sb.WriteString(corePersona)
	}

	ragBudget := int(float64(budget) * stage.RAGFraction)
	if p.retriever != nil && ragBudget > 0 {
		snippets, err := p.retriever.Retrieve(ctx, turn.Utterance, 3)
		if err == nil && len(snippets) > 0 {
			sb.WriteString("\n\nRelevant context:\n")
			used := 0
			for _, s := range snippets {
				cost := p.countTokens(s)
				if used+cost > ragBudget {
					break
				}
				sb.WriteString("- " + s + "\n")
				used += cost
			}
		}
	}

	system := p.trimToBudget(sb.String(), budget)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
	}
	if mem != nil {
		for _, t := range mem.Recall.Recent() {
			role := llm.RoleUser
			if t.Role == memory.RoleAssistant {
				role = llm.RoleAssistant
			}
			content := t.Content
			if t.Truncated {
				// The customer barged in before this reply finished; say so
				// instead of letting the model assume it was heard in full.
				// Never appends words beyond what was actually composed.
				content += fmt.Sprintf(" [reply cut short by barge-in after %dms]", t.ConsumedMs)
			}
			messages = append(messages, llm.Message{Role: role, Content: content})
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: turn.Utterance})
	return messages
}

func (p *Planner) trimToBudget(s string, budget int) string {
	if p.countTokens(s) <= budget {
		return s
	}
	lines := strings.Split(s, "\n")
	for p.countTokens(strings.Join(lines, "\n")) > budget && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// runToolLoop drives at most maxToolIterations rounds of chat
// completion, executing any requested tool calls against the local
// registry and feeding results back until the model returns a plain
// text answer or the iteration cap is hit.
func (p *Planner) runToolLoop(ctx context.Context, messages []llm.Message) (string, []string, error) {
	var calledTools []string
	availableTools := p.toolDescriptors()

	for i := 0; i < maxToolIterations; i++ {
		completion, err := p.backend.Chat(ctx, messages, &llm.ChatOptions{
			Model:       p.cfg.Model,
			Temperature: p.cfg.Temperature,
			MaxTokens:   p.cfg.MaxTokens,
			Tools:       availableTools,
		})
		if err != nil {
			return "", calledTools, fmt.Errorf("planner: chat completion: %w", err)
		}

		if len(completion.Message.ToolCalls) == 0 {
			return completion.Message.Content, calledTools, nil
		}

		messages = append(messages, completion.Message)
		for _, call := range completion.Message.ToolCalls {
			calledTools = append(calledTools, call.Function.Name)
			result := p.tools.Call(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			resultText := ""
			for _, c := range result.Content {
				resultText += c.Text
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    resultText,
				ToolCallID: call.ID,
			})
		}
	}

	return "", calledTools, fmt.Errorf("planner: exceeded %d tool iterations", maxToolIterations)
}

func (p *Planner) toolDescriptors() []llm.Tool {
	if p.tools == nil {
		return nil
	}
	var out []llm.Tool
	for _, td := range p.tools.List() {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunc{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.InputSchema,
			},
		})
	}
	return out
}

// enforceInvariants truncates to the stage word ceiling at a sentence
// boundary when possible, and collapses a repeated named greeting to
// avoid "Hi Asha... Asha, ..." doubling within one reply.
func enforceInvariants(text, customerName string, wordCeiling int) string {
	words := strings.Fields(text)
	if len(words) > wordCeiling {
		words = words[:wordCeiling]
		text = strings.Join(words, " ")
		if idx := strings.LastIndexAny(text, ".!?"); idx > 0 {
			text = text[:idx+1]
		}
	}
	if customerName != "" {
		first := strings.Index(text, customerName)
		if first != -1 {
			rest := text[first+len(customerName):]
			if idx := strings.Index(rest, customerName); idx != -1 {
				text = text[:first+len(customerName)] + strings.Replace(rest, customerName, "", 1)
			}
		}
	}
	return text
}
