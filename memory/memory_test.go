package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoreMemoryBoundsTokens(t *testing.T) {
	c := NewCoreMemory("agent persona", 5)
	for i := 0; i < 50; i++ {
		c.Append("human", "the customer said something fairly long here")
	}
	require.LessOrEqual(t, c.TokenCount(), 5+estimateTokens("the customer said something fairly long here"))
}

func TestRecallFIFOEvictionPreservesSearchability(t *testing.T) {
	r := NewRecallMemory(20, 10)
	for i := 0; i < 20; i++ {
		r.AddTurn(RoleUser, "I want a gold loan against my jewellery")
	}
	require.True(t, r.NeedsCompaction())
	evicted := r.EvictToLowWatermark()
	require.NotEmpty(t, evicted)
	require.LessOrEqual(t, r.FifoTokens(), 10)

	results := r.Search("gold loan", 5)
	require.NotEmpty(t, results)
}

func TestArchivalInsertLinksByKeywordOverlap(t *testing.T) {
	a := NewArchivalMemory(100, true, nil)
	id1 := a.Insert(MemoryNote{Content: "Customer prefers gold loans over personal loans", Keywords: []string{"gold", "loan"}})
	id2 := a.Insert(MemoryNote{Content: "Competitor Muthoot offers 19.5 percent", Keywords: []string{"gold", "competitor"}})

	n1, ok := a.Get(id1)
	require.True(t, ok)
	require.True(t, n1.Links[id2])
}

func TestArchivalLRUEviction(t *testing.T) {
	a := NewArchivalMemory(2, false, nil)
	id1 := a.Insert(MemoryNote{Content: "first note"})
	a.Insert(MemoryNote{Content: "second note"})
	a.Search("first", 5, 0) // access id1 to bump its recency
	a.Insert(MemoryNote{Content: "third note"})

	_, ok := a.Get(id1)
	require.True(t, ok, "recently accessed note should survive eviction")
}

func TestArchivalDeleteStripsInboundLinks(t *testing.T) {
	a := NewArchivalMemory(100, true, nil)
	id1 := a.Insert(MemoryNote{Content: "shared topic alpha", Keywords: []string{"alpha"}})
	id2 := a.Insert(MemoryNote{Content: "shared topic alpha too", Keywords: []string{"alpha"}})

	a.Delete(id2)
	n1, ok := a.Get(id1)
	require.True(t, ok)
	require.False(t, n1.Links[id2])
}

func TestGetLinkedBFSRespectsDepthAndVisited(t *testing.T) {
	a := NewArchivalMemory(100, false, nil)
	id1 := a.Insert(MemoryNote{Content: "a"})
	id2 := a.Insert(MemoryNote{Content: "b"})
	id3 := a.Insert(MemoryNote{Content: "c"})

	n1, _ := a.Get(id1)
	n1.Links[id2] = true
	a.notes[id1].Links[id2] = true
	a.notes[id2].Links[id1] = true
	a.notes[id2].Links[id3] = true
	a.notes[id3].Links[id2] = true

	linked := a.GetLinked(id1, 2)
	ids := map[string]bool{}
	for _, n := range linked {
		ids[n.ID] = true
	}
	require.True(t, ids[id2])
	require.True(t, ids[id3])
}

func TestCompactionBoundsTotalTokens(t *testing.T) {
	cfg := Config{
		MaxContextTokens:    400,
		HighWatermarkTokens: 40,
		LowWatermarkTokens:  20,
		AutoSummarize:       true,
		ArchivalCapacity:    100,
		EnableLinking:       false,
	}
	m := New("agent persona", cfg, nil, nil, nil)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		m.AddTurn(ctx, "sess-1", RoleUser, "I would like to know more about gold loan interest rates please")
	}

	stats := m.Stats()
	require.LessOrEqual(t, stats.CoreTokens+stats.FifoTokens, cfg.HighWatermarkTokens)
	require.Greater(t, stats.ArchivalNotes, 0)
}
