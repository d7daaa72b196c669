package tts

import (
	"context"
	"voiceagent/media"
)

// TTS defines the Text-to-Speech service interface. SynthesizeStream backs
// the sentence-chunked delivery in turn.go, which checks for barge-in
// between chunks so playback can stop within one chunk boundary.
type TTS interface {
	// Synthesize speech from text
	Synthesize(ctx context.Context, text string, opts *SynthesizeOptions) (*media.AudioFrame, error)

	// SynthesizeStream creates a streaming synthesis session
	SynthesizeStream(ctx context.Context, opts *SynthesizeOptions) (SynthesisStream, error)

	// Voices returns available voices for this TTS service
	Voices() []Voice

	// Service metadata
	Name() string
	Version() string
}

// SynthesizeOptions configures speech synthesis
type SynthesizeOptions struct {
	Voice      string
	Language   string
	Speed      float64
	Pitch      float64
	Volume     float64
	Format     media.AudioFormat
	SampleRate int
	Metadata   map[string]interface{}
}

// Voice represents a TTS voice
type Voice struct {
	ID       string
	Name     string
	Gender   string
	Language string
	Preview  string
	Metadata map[string]interface{}
}

// SynthesisStream represents a streaming synthesis session
type SynthesisStream interface {
	// SendText sends text to be synthesized
	SendText(text string) error

	// Recv receives synthesized audio from the stream
	Recv() (*media.AudioFrame, error)

	// Close closes the synthesis stream
	Close() error

	// CloseSend signals that no more text will be sent
	CloseSend() error
}

// BaseTTS provides common functionality for TTS implementations
type BaseTTS struct {
	name    string
	version string
	voices  []Voice
}

// NewBaseTTS creates a new base TTS service
func NewBaseTTS(name, version string, voices []Voice) *BaseTTS {
	return &BaseTTS{
		name:    name,
		version: version,
		voices:  voices,
	}
}

func (b *BaseTTS) Name() string {
	return b.name
}

func (b *BaseTTS) Version() string {
	return b.version
}

func (b *BaseTTS) Voices() []Voice {
	return b.voices
}

// DefaultSynthesizeOptions returns default synthesis options
func DefaultSynthesizeOptions() *SynthesizeOptions {
	return &SynthesizeOptions{
		Speed:      1.0,
		Pitch:      1.0,
		Volume:     1.0,
		Format:     media.AudioFormat48kHz16BitMono,
		SampleRate: 48000,
		Metadata:   make(map[string]interface{}),
	}
}
