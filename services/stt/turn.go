package stt

import (
	"context"

	"voiceagent/media"
)

// TurnSTT adapts a streaming RecognitionStream to a per-turn contract:
// feed partial audio as it arrives, finalize once the turn's end has
// been confirmed by the turn state machine, and reset for the next
// turn without tearing down the underlying stream.
type TurnSTT struct {
	stream   RecognitionStream
	entities []string
	partial  string
}

// NewTurnSTT wraps an already-open RecognitionStream.
func NewTurnSTT(stream RecognitionStream) *TurnSTT {
	return &TurnSTT{stream: stream}
}

// AddEntities records domain vocabulary (lender names, city names,
// gold-purity terms) for this turn. The list is only stored: it is not
// sent to the stream and recognition results are not rescored with it.
func (t *TurnSTT) AddEntities(entities []string) {
	t.entities = append(t.entities, entities...)
}

// Process sends one audio frame to the stream.
func (t *TurnSTT) Process(ctx context.Context, frame *media.AudioFrame) error {
	return t.stream.SendAudio(frame)
}

// Finalize signals end-of-turn and drains the stream for its final
// recognition result.
func (t *TurnSTT) Finalize(ctx context.Context) (*Recognition, error) {
	if err := t.stream.CloseSend(); err != nil {
		return nil, err
	}
	var last *Recognition
	for {
		res, err := t.stream.Recv()
		if err != nil {
			break
		}
		if res == nil {
			break
		}
		last = res
		if res.IsFinal {
			break
		}
	}
	return last, nil
}

// Reset clears accumulated partial state between turns. The
// underlying stream is left open for reuse by the caller.
func (t *TurnSTT) Reset() {
	t.partial = ""
}
