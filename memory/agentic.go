package memory

import (
	"context"
	"fmt"
	"log/slog"
)

// Summarizer produces a short natural-language summary of a batch of
// turns. No type in this module implements it; AgenticMemory falls
// back to a naive summary when none is configured.
type Summarizer interface {
	Summarize(ctx context.Context, turns []ConversationTurn) (string, error)
}

// Config bundles the watermark tunables from spec §4.7 / original_source
// crates/agent/src/memory/mod.rs.
type Config struct {
	MaxContextTokens  int
	HighWatermarkTokens int
	LowWatermarkTokens  int
	AutoSummarize     bool
	ArchivalCapacity  int
	EnableLinking     bool
}

// DefaultConfig mirrors the Rust source's defaults.
func DefaultConfig() Config {
	return Config{
		MaxContextTokens:    4096,
		HighWatermarkTokens: 3072,
		LowWatermarkTokens:  2048,
		AutoSummarize:       true,
		ArchivalCapacity:    2000,
		EnableLinking:       true,
	}
}

// AgenticMemory wires the three tiers together and drives compaction.
type AgenticMemory struct {
	Core     *CoreMemory
	Recall   *RecallMemory
	Archival *ArchivalMemory

	cfg        Config
	summarizer Summarizer
	log        *slog.Logger
}

// New constructs an AgenticMemory. summarizer and vectors may both be nil.
func New(persona string, cfg Config, summarizer Summarizer, vectors VectorStore, logger *slog.Logger) *AgenticMemory {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgenticMemory{
		Core:       NewCoreMemory(persona, cfg.MaxContextTokens/4),
		Recall:     NewRecallMemory(cfg.HighWatermarkTokens, cfg.LowWatermarkTokens),
		Archival:   NewArchivalMemory(cfg.ArchivalCapacity, cfg.EnableLinking, vectors),
		cfg:        cfg,
		summarizer: summarizer,
		log:        logger,
	}
}

// Stats mirrors the original source's MemoryStats for diagnostics.
type Stats struct {
	CoreTokens     int
	FifoTokens     int
	ArchivalNotes  int
	NeedsCompaction bool
}

func (m *AgenticMemory) Stats() Stats {
	return Stats{
		CoreTokens:      m.Core.TokenCount(),
		FifoTokens:      m.Recall.FifoTokens(),
		ArchivalNotes:   len(m.Archival.notes),
		NeedsCompaction: m.Recall.NeedsCompaction(),
	}
}

// AddTurn records a turn and triggers compaction if the high watermark is
// crossed, per spec §4.7. TotalContextTokens is core + recall FIFO.
func (m *AgenticMemory) AddTurn(ctx context.Context, sessionID string, role Role, content string) {
	m.Recall.AddTurn(role, content)
	if m.cfg.AutoSummarize && m.totalContextTokens() > m.cfg.HighWatermarkTokens {
		m.compact(ctx, sessionID)
	}
}

func (m *AgenticMemory) totalContextTokens() int {
	return m.Core.TokenCount() + m.Recall.FifoTokens()
}

// MarkReplyTruncated tags the most recently added assistant turn as cut
// off by a barge-in at consumedMs, so prompt assembly for the next turn
// can tell the LLM the customer did not hear the rest of that reply.
// A no-op (with a warning) if the turn already left the FIFO, since by
// spec the engine must never fabricate what was or wasn't heard.
func (m *AgenticMemory) MarkReplyTruncated(consumedMs int64) {
	if !m.Recall.MarkLastTruncated(RoleAssistant, consumedMs) {
		m.log.Warn("memory: barge-in truncation target already evicted from FIFO", "consumed_ms", consumedMs)
	}
}

// compact fetches pending turns, summarizes them (LLM if available, else
// a naive fallback), inserts a ConversationSummary note, and evicts the
// summarized turns from the FIFO.
func (m *AgenticMemory) compact(ctx context.Context, sessionID string) {
	evicted := m.Recall.EvictToLowWatermark()
	if len(evicted) == 0 {
		return
	}

	summary, err := m.summarize(ctx, evicted)
	if err != nil {
		m.log.Warn("memory: summarization failed, using naive fallback", "error", err)
		summary = naiveSummary(evicted)
	}

	m.Archival.Insert(MemoryNote{
		SessionID:          sessionID,
		Content:            summary,
		ContextDescription: "conversation summary",
		Type:               NoteConversationSummary,
		Source:             "compaction",
	})
}

func (m *AgenticMemory) summarize(ctx context.Context, turns []ConversationTurn) (string, error) {
	if m.summarizer == nil {
		return naiveSummary(turns), nil
	}
	return m.summarizer.Summarize(ctx, turns)
}

func naiveSummary(turns []ConversationTurn) string {
	topics := map[string]bool{}
	for _, t := range turns {
		if t.Role == RoleUser {
			for _, w := range splitWords(t.Content) {
				if len(w) > 4 {
					topics[w] = true
				}
			}
		}
	}
	if len(topics) == 0 {
		return fmt.Sprintf("User discussed %d turns of conversation.", len(turns))
	}
	list := ""
	count := 0
	for w := range topics {
		if count > 0 {
			list += ", "
		}
		list += w
		count++
		if count >= 8 {
			break
		}
	}
	return "User discussed: " + list
}

func splitWords(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			cur += string(r)
		} else if cur != "" {
			out = append(out, cur)
			cur = ""
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
