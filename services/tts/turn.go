package tts

import (
	"context"

	"github.com/rivo/uniseg"

	"voiceagent/media"
)

// TurnTTS streams a planner response sentence-by-sentence (split at
// sentence-ending punctuation, walking uniseg grapheme clusters so
// Devanagari text chunks correctly), sending the next sentence once
// the stream reports no frame pending, and supports an immediate BargeIn cutover when the customer starts
// talking over the agent.
type TurnTTS struct {
	stream      SynthesisStream
	sampleRate  int
	chunks      []string
	next        int
	interrupted bool
}

// NewTurnTTS opens a synthesis stream for one planner response.
func NewTurnTTS(ctx context.Context, t TTS, opts *SynthesizeOptions, text string) (*TurnTTS, error) {
	stream, err := t.SynthesizeStream(ctx, opts)
	if err != nil {
		return nil, err
	}
	sampleRate := 16000
	if opts != nil && opts.SampleRate > 0 {
		sampleRate = opts.SampleRate
	}
	return &TurnTTS{
		stream:     stream,
		sampleRate: sampleRate,
		chunks:     sentenceChunks(text),
	}, nil
}

// Start begins sending the first chunk to the synthesis stream.
func (t *TurnTTS) Start() error {
	return t.sendNext()
}

func (t *TurnTTS) sendNext() error {
	if t.interrupted || t.next >= len(t.chunks) {
		return nil
	}
	chunk := t.chunks[t.next]
	t.next++
	return t.stream.SendText(chunk)
}

// ProcessNext returns the next synthesized frame, advancing to the
// following text chunk once the stream signals it wants more input.
func (t *TurnTTS) ProcessNext(ctx context.Context) (*media.AudioFrame, bool, error) {
	if t.interrupted {
		return nil, true, nil
	}
	frame, err := t.stream.Recv()
	if err != nil {
		return nil, true, err
	}
	if frame == nil {
		if t.next < len(t.chunks) {
			if sendErr := t.sendNext(); sendErr != nil {
				return nil, true, sendErr
			}
			return nil, false, nil
		}
		return nil, true, nil
	}
	return frame, false, nil
}

// BargeIn stops synthesis immediately: no further chunks are sent and
// ProcessNext returns done=true from here on, matching the
// "truncate audible output and drop any in-flight speech" semantics.
func (t *TurnTTS) BargeIn() error {
	t.interrupted = true
	return t.stream.CloseSend()
}

// Interrupted reports whether BargeIn was called on this turn, so the
// caller pumping frames out can tell an ordinary end-of-reply apart
// from a barge-in cutoff when deciding whether to record a truncation.
func (t *TurnTTS) Interrupted() bool {
	return t.interrupted
}

// Reset releases the underlying stream for a fresh turn.
func (t *TurnTTS) Reset() error {
	return t.stream.Close()
}

// SampleRate reports the configured output sample rate.
func (t *TurnTTS) SampleRate() int {
	return t.sampleRate
}

// sentenceChunks splits text after each '.', '!', '?' or danda,
// walking grapheme clusters so Devanagari script still chunks sensibly
// for incremental synthesis.
func sentenceChunks(text string) []string {
	var chunks []string
	cur := ""
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		seg := gr.Str()
		cur += seg
		if seg == "." || seg == "!" || seg == "?" || seg == "।" {
			chunks = append(chunks, cur)
			cur = ""
		}
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
