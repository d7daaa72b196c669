package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voiceagent/media"
	"voiceagent/orchestrator"
	"voiceagent/services/llm"
	"voiceagent/services/stt"
	"voiceagent/services/tools"
	"voiceagent/services/tts"
	"voiceagent/services/vad"
	"voiceagent/transport"
)

// AgentSession is the façade a worker job drives: it owns the
// service handles (VAD/STT/TTS), the turn-level STT/TTS adapters, and
// an orchestrator.Session that carries the actual dialogue state
// machine, NLU, and planning. AgentSession's job is gluing raw audio
// frames in and synthesized speech out around that session.
type AgentSession struct {
	VAD vad.VAD
	STT stt.STT
	TTS tts.TTS
	LLM llm.LLM

	Orchestrator *orchestrator.Session
	Transport    transport.Transport

	// ToolRegistry holds ad hoc reflection-discovered tools (tools.DiscoverTools)
	// for callers that want LLM function-calling without going through the
	// domain's mcptools registry - kept for the raw chat path below.
	ToolRegistry *tools.ToolRegistry
	ChatContext  *llm.ChatContext

	Context context.Context
	log     *slog.Logger

	ttsOutputCallback func(*media.AudioFrame)

	turnSTT      *stt.TurnSTT
	customerName string

	// speakingTurn is the TTS turn currently streaming audio out, if
	// any; BargeIn uses it to stop synthesis immediately rather than
	// waiting for the orchestrator's turn-cancellation to propagate.
	speakingTurn *tts.TurnTTS

	mu sync.RWMutex
}

// NewAgentSession creates a session with no orchestrator wired yet;
// call SetOrchestrator once dialogue/domain/planner are assembled.
func NewAgentSession(ctx context.Context) *AgentSession {
	return &AgentSession{
		Context:      ctx,
		ToolRegistry: tools.NewToolRegistry(),
		ChatContext:  llm.NewChatContext(),
		log:          slog.Default(),
	}
}

// NewAgentSessionWithInstructions creates a session with a system
// prompt seeded into ChatContext, for the raw chat-completion path
// (console/text clients that bypass the voice orchestrator entirely).
func NewAgentSessionWithInstructions(ctx context.Context, instructions string) *AgentSession {
	session := NewAgentSession(ctx)
	session.ChatContext = llm.NewChatContextWithSystem(instructions)
	return session
}

// SetOrchestrator wires the dialogue orchestrator this session drives.
func (s *AgentSession) SetOrchestrator(orch *orchestrator.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orchestrator = orch
}

// SetCustomerName records the caller's name once captured, so later
// turns can be passed to the orchestrator for greeting personalization.
func (s *AgentSession) SetCustomerName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerName = name
}

// SetTTSOutputCallback sets the callback for TTS audio output in
// console/demo mode, where there is no transport to publish to.
func (s *AgentSession) SetTTSOutputCallback(callback func(*media.AudioFrame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttsOutputCallback = callback
}

// Start begins the orchestrated session (Idle -> Listening) and starts
// a streaming recognition session for incoming audio.
func (s *AgentSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Orchestrator == nil {
		return fmt.Errorf("agents: start: %w", ErrInvalidConfiguration)
	}
	if s.STT != nil {
		stream, err := s.STT.RecognizeStream(s.Context)
		if err != nil {
			return fmt.Errorf("agents: start recognition stream: %w", err)
		}
		s.turnSTT = stt.NewTurnSTT(stream)
	}
	s.Orchestrator.Start(s.Context)
	return nil
}

// Stop tears down the transport and orchestrator session.
func (s *AgentSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Orchestrator != nil {
		s.Orchestrator.End("stopped")
	}
	if s.Transport != nil {
		return s.Transport.Close()
	}
	return nil
}

// ProcessAudioFrame runs one inbound audio frame through VAD, feeds it
// to the in-flight recognition stream, and advances the orchestrator's
// turn state machine. When a turn boundary is confirmed it finalizes
// recognition and hands the utterance to the orchestrator.
func (s *AgentSession) ProcessAudioFrame(ctx context.Context, frame *media.AudioFrame) error {
	s.mu.RLock()
	vadService := s.VAD
	orch := s.Orchestrator
	turnSTT := s.turnSTT
	s.mu.RUnlock()

	if vadService == nil || orch == nil {
		return fmt.Errorf("agents: process audio frame: %w", ErrServiceNotAvailable)
	}

	vadFrame := frame
	if frame.Format.SampleRate != 16000 {
		resampled, err := media.ResampleAudioFrame(frame, 16000)
		if err != nil {
			return fmt.Errorf("agents: resample for VAD: %w", err)
		}
		vadFrame = resampled
	}

	detection, err := vadService.Detect(ctx, vadFrame)
	if err != nil {
		return fmt.Errorf("agents: VAD detect: %w", err)
	}

	if turnSTT != nil {
		if err := turnSTT.Process(ctx, frame); err != nil {
			s.log.Warn("agents: STT process failed", "error", err)
		}
	}

	transition := orch.ObserveSpeechFrame(ctx, detection.IsSpeech)
	if transition.TurnEnded {
		return s.finishTurn(ctx)
	}
	return nil
}

// finishTurn finalizes the pending recognition, hands the text to the
// orchestrator, and synthesizes/plays whatever reply comes back.
func (s *AgentSession) finishTurn(ctx context.Context) error {
	s.mu.Lock()
	turnSTT := s.turnSTT
	orch := s.Orchestrator
	name := s.customerName
	s.mu.Unlock()

	if turnSTT == nil || orch == nil {
		return nil
	}

	recognition, err := turnSTT.Finalize(ctx)
	if err != nil {
		return fmt.Errorf("agents: finalize recognition: %w", err)
	}
	turnSTT.Reset()
	if recognition == nil || recognition.Text == "" {
		return nil
	}

	events := orch.Events()
	if err := orch.HandleUtterance(ctx, recognition.Text, name); err != nil {
		return fmt.Errorf("agents: handle utterance: %w", err)
	}

	select {
	case ev := <-events:
		if ev.Type == "speak" && ev.Text != "" {
			if err := s.speak(ctx, ev.Text); err != nil {
				return err
			}
			orch.FinishSpeaking()
		}
	case <-time.After(200 * time.Millisecond):
		s.log.Warn("agents: no speak event after utterance handling")
	}
	return nil
}

// speak synthesizes text turn-by-turn and sends the resulting audio to
// the transport (or the console callback when no transport is wired).
func (s *AgentSession) speak(ctx context.Context, text string) error {
	s.mu.RLock()
	ttsService := s.TTS
	out := s.Transport
	callback := s.ttsOutputCallback
	s.mu.RUnlock()

	if ttsService == nil {
		return nil
	}

	turn, err := tts.NewTurnTTS(ctx, ttsService, tts.DefaultSynthesizeOptions(), text)
	if err != nil {
		return fmt.Errorf("agents: open TTS turn: %w", err)
	}
	if err := turn.Start(); err != nil {
		return fmt.Errorf("agents: start TTS turn: %w", err)
	}

	s.mu.Lock()
	s.speakingTurn = turn
	orch := s.Orchestrator
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.speakingTurn = nil
		s.mu.Unlock()
	}()

	var consumedMs int64
	for {
		frame, done, err := turn.ProcessNext(ctx)
		if err != nil {
			return fmt.Errorf("agents: TTS turn: %w", err)
		}
		if frame != nil {
			consumedMs += frame.Duration.Milliseconds()
			if out != nil {
				if err := out.Send(ctx, frame); err != nil {
					return fmt.Errorf("agents: send audio: %w", err)
				}
			} else if callback != nil {
				callback(frame)
			}
		}
		if done {
			if turn.Interrupted() && orch != nil {
				orch.NoteTruncatedReply(consumedMs)
			}
			return nil
		}
	}
}

// BargeIn stops any in-flight TTS immediately and forwards the
// interruption to the orchestrator, which cancels the in-flight turn
// and returns to Listening. The speak loop above observes the stopped
// turn and reports how many milliseconds of audio actually played.
func (s *AgentSession) BargeIn() {
	s.mu.RLock()
	orch := s.Orchestrator
	turn := s.speakingTurn
	s.mu.RUnlock()
	if turn != nil {
		if err := turn.BargeIn(); err != nil {
			s.log.Warn("agents: TTS barge-in failed", "error", err)
		}
	}
	if orch != nil {
		orch.BargeIn()
	}
}
