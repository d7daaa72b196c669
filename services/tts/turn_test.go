package tts

import "testing"

func TestSentenceChunksSplitsOnTerminalPunctuation(t *testing.T) {
	chunks := sentenceChunks("Hello there. How can I help you today?")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
}

func TestSentenceChunksHandlesDevanagariDanda(t *testing.T) {
	chunks := sentenceChunks("नमस्ते। आपका स्वागत है।")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
}

func TestSentenceChunksFallsBackToWholeText(t *testing.T) {
	chunks := sentenceChunks("no terminal punctuation here")
	if len(chunks) != 1 || chunks[0] != "no terminal punctuation here" {
		t.Fatalf("expected single fallback chunk, got %v", chunks)
	}
}
