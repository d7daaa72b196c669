// Package orchestrator drives one voice session end to end: the
// Idle/Listening/Processing/Speaking/Ended state machine, turn
// boundaries from the VAD hysteresis machine, and barge-in cutover.
// Config carries silence and max-turn timeouts, but the Session starts
// no timers and does not read them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceagent/dialogue"
	"voiceagent/domain"
	"voiceagent/memory"
	"voiceagent/nlu"
	"voiceagent/planner"
	"voiceagent/services/vad"
)

// State is one node of the session's top-level state machine.
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// allowedNext mirrors the session-state switch in the teacher's
// AgentSession, generalized to five states and a dedicated Ended state
// reachable from anywhere.
var allowedNext = map[State]map[State]bool{
	StateIdle:       {StateListening: true, StateEnded: true},
	StateListening:  {StateProcessing: true, StateEnded: true, StateIdle: true},
	StateProcessing: {StateSpeaking: true, StateListening: true, StateEnded: true},
	StateSpeaking:   {StateListening: true, StateProcessing: true, StateEnded: true},
	StateEnded:      {},
}

// Config tunes session-level timeouts.
type Config struct {
	SilenceTimeout   time.Duration
	MaxTurnDuration  time.Duration
	MinSpeechFrames  int
	MinSilenceFrames int
}

// DefaultConfig mirrors the Rust original_source's session defaults.
func DefaultConfig() Config {
	return Config{
		SilenceTimeout:   800 * time.Millisecond,
		MaxTurnDuration:  30 * time.Second,
		MinSpeechFrames:  3,
		MinSilenceFrames: 10,
	}
}

// Event is emitted on the session's event channel for observers
// (transport fan-out, logging, persistence).
type Event struct {
	Type  string
	State State
	Text  string
	Err   error
}

// Session coordinates one end-to-end voice conversation. It starts no
// goroutine of its own; its methods are called by the transport layer
// and guard shared fields with mu.
type Session struct {
	mu    sync.RWMutex
	id    string
	state State

	cfg      Config
	view     *domain.View
	tracker  *dialogue.Tracker
	mem      *memory.AgenticMemory
	nlu      *nlu.Extractor
	planner  *planner.Planner
	turnFSM  *vad.TurnStateMachine

	stageID string
	turn    uint

	events chan Event
	log    *slog.Logger

	cancelTurn context.CancelFunc
}

// New constructs a Session in StateIdle.
func New(cfg Config, view *domain.View, tracker *dialogue.Tracker, mem *memory.AgenticMemory, extractor *nlu.Extractor, p *planner.Planner, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:      uuid.NewString(),
		state:   StateIdle,
		cfg:     cfg,
		view:    view,
		tracker: tracker,
		mem:     mem,
		nlu:     extractor,
		planner: p,
		turnFSM: vad.NewTurnStateMachine(cfg.MinSpeechFrames, cfg.MinSilenceFrames),
		stageID: "greeting",
		events:  make(chan Event, 32),
		log:     logger,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current top-level state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events exposes the session's event stream for a transport layer to
// fan out to connected observers.
func (s *Session) Events() <-chan Event {
	return s.events
}

// transition moves to next if the edge is allowed, emitting an Event.
// Returns false (and does nothing) on a disallowed transition, matching
// the teacher's pattern of silently ignoring invalid state requests
// rather than panicking mid-session.
func (s *Session) transition(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == next {
		return true
	}
	if !allowedNext[s.state][next] {
		s.log.Warn("orchestrator: disallowed transition", "from", s.state, "to", next)
		return false
	}
	s.state = next
	s.emit(Event{Type: "state", State: next})
	return true
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("orchestrator: event channel full, dropping event", "type", ev.Type)
	}
}

// Start moves the session from Idle to Listening. No silence-timeout
// clock is started.
func (s *Session) Start(ctx context.Context) {
	s.transition(StateListening)
}

// ObserveSpeechFrame feeds one frame-level VAD decision. A confirmed
// turn start while Speaking is a barge-in: it cancels the in-flight
// planner/TTS work and cuts over to Listening immediately.
func (s *Session) ObserveSpeechFrame(ctx context.Context, isSpeech bool) vad.TurnTransition {
	tr := s.turnFSM.Observe(isSpeech)

	if tr.TurnStarted && s.State() == StateSpeaking {
		s.BargeIn()
	}
	if tr.TurnEnded && s.State() == StateListening {
		s.transition(StateProcessing)
	}
	return tr
}

// BargeIn cancels any in-flight turn processing/speaking and returns
// the session to Listening, discarding whatever reply was in flight.
// It does not know how many milliseconds of the reply were actually
// played — that accounting lives with whoever is pumping frames to the
// transport — so callers that can measure it should follow up with
// NoteTruncatedReply once the in-flight TTS turn confirms it stopped.
func (s *Session) BargeIn() {
	s.mu.Lock()
	cancel := s.cancelTurn
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.emit(Event{Type: "barge_in"})
	s.transition(StateListening)
}

// NoteTruncatedReply records that the reply currently (or most recently)
// playing was cut short by a barge-in after consumedMs milliseconds. It
// tags the corresponding assistant turn in memory so the next prompt
// assembly knows not to assume the customer heard the rest, per spec
// §4.10's barge-in semantics and §9's truncation-accounting resolution.
// Never fabricates any of the words that went unheard — only the fact
// and the millisecond count are recorded.
func (s *Session) NoteTruncatedReply(consumedMs int64) {
	if s.mem == nil {
		return
	}
	s.mem.MarkReplyTruncated(consumedMs)
	s.emit(Event{Type: "truncated", Text: fmt.Sprintf("%dms", consumedMs)})
}

// HandleUtterance runs one full turn: NLU extraction, DST update,
// planning, and emits the reply as a "speak" event. It is cancellable
// via the context passed to Plan; BargeIn cancels it mid-flight.
func (s *Session) HandleUtterance(ctx context.Context, utterance string, customerName string) error {
	if !s.transition(StateProcessing) {
		return fmt.Errorf("orchestrator: cannot process in state %s", s.State())
	}

	turnCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelTurn = cancel
	s.turn++
	turnNumber := s.turn
	s.mu.Unlock()
	defer cancel()

	intent := s.nlu.Extract(turnNumber, utterance)
	s.tracker.Update(intent, turnNumber)

	if s.mem != nil {
		s.mem.AddTurn(turnCtx, s.id, memory.RoleUser, utterance)
	}

	s.mu.RLock()
	stageID := s.stageID
	s.mu.RUnlock()

	reply, err := s.planner.Plan(turnCtx, planner.Turn{
		SessionID:    s.id,
		Utterance:    utterance,
		Intent:       intent,
		StageID:      stageID,
		CustomerName: customerName,
	}, s.tracker, s.mem)
	if err != nil {
		if turnCtx.Err() != nil {
			s.log.Info("orchestrator: turn cancelled mid-plan (barge-in)", "session", s.id)
			return nil
		}
		s.emit(Event{Type: "error", Err: err})
		return s.recover(err)
	}

	if s.mem != nil {
		s.mem.AddTurn(turnCtx, s.id, memory.RoleAssistant, reply.Text)
	}

	s.advanceStage(intent)

	if !s.transition(StateSpeaking) {
		return nil
	}
	s.emit(Event{Type: "speak", State: StateSpeaking, Text: reply.Text})
	return nil
}

// FinishSpeaking is called by the transport layer once TTS playback of
// the current reply has completed (or been cut short by barge-in),
// returning the session to Listening for the next turn.
func (s *Session) FinishSpeaking() {
	s.transition(StateListening)
}

// End moves the session to its terminal state. No further transitions
// are possible afterward.
func (s *Session) End(reason string) {
	s.mu.Lock()
	s.state = StateEnded
	s.mu.Unlock()
	s.emit(Event{Type: "ended", State: StateEnded, Text: reason})
	close(s.events)
}

// advanceStage walks the configured stage graph using this turn's
// extracted intent, following the stage's intent_transitions if one
// matches, otherwise holding at the current stage.
func (s *Session) advanceStage(intent nlu.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage, ok := s.view.Stage(s.stageID)
	if !ok {
		return
	}
	if next, ok := stage.IntentTransitions[intent.Name]; ok {
		s.stageID = next
	}
}

// recover applies the error-handling policy from spec §7: log, emit a
// fallback utterance instead of crashing the session, and stay in
// Listening so the customer can retry.
func (s *Session) recover(err error) error {
	fallback := s.view.Fallback("technical_issue")
	if fallback == "" {
		fallback = "Sorry, I had trouble with that. Could you say that again?"
	}
	s.emit(Event{Type: "speak", State: StateSpeaking, Text: fallback})
	s.transition(StateListening)
	return nil
}
