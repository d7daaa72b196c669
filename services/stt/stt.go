package stt

import (
	"context"
	"voiceagent/media"
)

// STT defines the Speech-to-Text service interface. Implementations must be
// encoding- and script-aware: callers downstream (nlu's slot extraction) need
// to see Devanagari and Latin transcripts alike, so SupportedLanguages
// advertises which of en-*/hi-* a backend can actually produce rather than
// leaving script detection to the caller.
type STT interface {
	// Recognize speech from audio sample
	Recognize(ctx context.Context, audio *media.AudioFrame) (*Recognition, error)

	// RecognizeStream creates a streaming recognition session
	RecognizeStream(ctx context.Context) (RecognitionStream, error)

	// SupportedLanguages returns the languages supported by this STT service
	SupportedLanguages() []string

	// Service metadata
	Name() string
	Version() string
}

// Recognition is one transcript: partial results supersede earlier partials
// for the same turn, and IsFinal marks the one that ends it.
type Recognition struct {
	Text       string
	Confidence float64
	Language   string
	IsFinal    bool
	Metadata   map[string]interface{}
}

// RecognitionStream represents a streaming recognition session
type RecognitionStream interface {
	// SendAudio sends audio data to the recognition stream
	SendAudio(audio *media.AudioFrame) error

	// Recv receives recognition results from the stream
	Recv() (*Recognition, error)

	// Close closes the recognition stream
	Close() error

	// CloseSend signals that no more audio will be sent
	CloseSend() error
}

// BaseSTT provides common functionality for STT implementations
type BaseSTT struct {
	name           string
	version        string
	supportedLangs []string
}

// NewBaseSTT creates a new base STT service
func NewBaseSTT(name, version string, supportedLangs []string) *BaseSTT {
	return &BaseSTT{
		name:           name,
		version:        version,
		supportedLangs: supportedLangs,
	}
}

func (b *BaseSTT) Name() string {
	return b.name
}

func (b *BaseSTT) Version() string {
	return b.version
}

func (b *BaseSTT) SupportedLanguages() []string {
	return b.supportedLangs
}
