// Package transport carries audio and session events between this
// module and a connected customer: a LiveKit room for the voice path
// and a websocket multiplexer for out-of-band session events (partial
// transcripts, state changes, barge-in notices) fanned out to any
// number of observers (dashboards, QA recorders).
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v3"
	webrtcmedia "github.com/pion/webrtc/v3/pkg/media"

	"voiceagent/media"
)

// sampleProvider feeds queued PCM chunks to the published LiveKit
// track as webrtc samples, decoupling TTS production from the track's
// own write cadence.
type sampleProvider struct {
	mu     sync.Mutex
	queue  chan []byte
	closed bool
}

func newSampleProvider() *sampleProvider {
	return &sampleProvider{queue: make(chan []byte, 100)}
}

func (p *sampleProvider) NextSample(ctx context.Context) (webrtcmedia.Sample, error) {
	select {
	case <-ctx.Done():
		return webrtcmedia.Sample{}, ctx.Err()
	case data, ok := <-p.queue:
		if !ok {
			return webrtcmedia.Sample{}, io.EOF
		}
		samplesCount := len(data) / 2
		duration := time.Duration(samplesCount*1000/48000) * time.Millisecond
		return webrtcmedia.Sample{Data: data, Duration: duration}, nil
	}
}

func (p *sampleProvider) OnBind() error   { return nil }
func (p *sampleProvider) OnUnbind() error { return nil }

func (p *sampleProvider) QueueAudio(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("transport: sample provider closed")
	}
	select {
	case p.queue <- data:
		return nil
	default:
		return fmt.Errorf("transport: sample queue full")
	}
}

func (p *sampleProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	return nil
}

// Transport is the port the orchestrator speaks against: receive
// customer audio frames, send synthesized speech back, and learn when
// the remote side disconnects.
type Transport interface {
	Send(ctx context.Context, frame *media.AudioFrame) error
	Recv(ctx context.Context) (*media.AudioFrame, error)
	Close() error
}

// Config dials into one LiveKit room as the assistant participant.
type Config struct {
	URL         string
	APIKey      string
	APISecret   string
	RoomName    string
	IdentityTag string
}

// LiveKitTransport publishes assistant audio to, and subscribes to
// customer audio from, one LiveKit room. Audio in and out of this
// module is always mono PCM (media.AudioFrame). Send queues the frame's
// PCM bytes on the Opus track as they are, without encoding them, and
// incoming RTP payloads go through decodeOpusPayload, which returns no
// samples.
type LiveKitTransport struct {
	room        *lksdk.Room
	localTrack  *lksdk.LocalSampleTrack
	publication *lksdk.LocalTrackPublication
	provider    *sampleProvider
	incoming    chan *media.AudioFrame
	sampleRate  int
	log         *slog.Logger
}

// Connect dials the room and publishes a microphone-tagged audio track
// for the assistant's voice, mirroring the JS LiveKit agent convention
// of always using TrackSource_MICROPHONE for TTS playback so browser
// clients render it as a normal voice participant.
func Connect(ctx context.Context, cfg Config, sampleRate int, logger *slog.Logger) (*LiveKitTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &LiveKitTransport{
		incoming:   make(chan *media.AudioFrame, 64),
		sampleRate: sampleRate,
		log:        logger,
	}

	connectInfo := lksdk.ConnectInfo{
		APIKey:              cfg.APIKey,
		APISecret:           cfg.APISecret,
		RoomName:            cfg.RoomName,
		ParticipantIdentity: cfg.IdentityTag,
	}
	callback := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				t.handleRemoteTrack(track)
			},
		},
	}
	room, err := lksdk.ConnectToRoom(cfg.URL, connectInfo, callback)
	if err != nil {
		return nil, fmt.Errorf("transport: connect to room %s: %w", cfg.RoomName, err)
	}
	t.room = room

	localTrack, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus})
	if err != nil {
		return nil, fmt.Errorf("transport: create local track: %w", err)
	}
	t.localTrack = localTrack

	publication, err := room.LocalParticipant.PublishTrack(localTrack, &lksdk.TrackPublicationOptions{
		Name:   "assistant-voice",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: publish track: %w", err)
	}
	t.publication = publication

	t.provider = newSampleProvider()
	if err := localTrack.StartWrite(t.provider, func() {
		t.log.Debug("transport: track write finished")
	}); err != nil {
		return nil, fmt.Errorf("transport: start track writer: %w", err)
	}

	return t, nil
}

func (t *LiveKitTransport) handleRemoteTrack(track *webrtc.TrackRemote) {
	go func() {
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				return
			}
			frame := media.NewMonoFloat32Frame(decodeOpusPayload(pkt.Payload), t.sampleRate)
			select {
			case t.incoming <- frame:
			default:
				t.log.Warn("transport: incoming frame buffer full, dropping frame")
			}
		}
	}()
}

// decodeOpusPayload is a placeholder decode hook: real Opus decoding
// is out of scope (the pion/webrtc sample provider path handles codec
// negotiation; application-level PCM decode plugs in here).
func decodeOpusPayload(payload []byte) []float32 {
	return nil
}

// Send pushes one synthesized PCM frame out over the published track.
func (t *LiveKitTransport) Send(ctx context.Context, frame *media.AudioFrame) error {
	return t.provider.QueueAudio(frame.Data)
}

// Recv returns the next customer audio frame, blocking until one
// arrives or ctx is cancelled.
func (t *LiveKitTransport) Recv(ctx context.Context) (*media.AudioFrame, error) {
	select {
	case frame, ok := <-t.incoming:
		if !ok {
			return nil, fmt.Errorf("transport: incoming stream closed")
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close disconnects from the room and stops the sample writer.
func (t *LiveKitTransport) Close() error {
	if t.provider != nil {
		_ = t.provider.Close()
	}
	if t.room != nil {
		t.room.Disconnect()
	}
	return nil
}
