package vad

// TurnState is one state of the turn-taking hysteresis machine layered
// on top of raw VAD speech/silence events, smoothing frame-level
// flicker into stable turn boundaries.
type TurnState int

const (
	TurnSilence TurnState = iota
	TurnPotentialSpeech
	TurnSpeech
	TurnPotentialSilence
)

func (s TurnState) String() string {
	switch s {
	case TurnSilence:
		return "silence"
	case TurnPotentialSpeech:
		return "potential_speech"
	case TurnSpeech:
		return "speech"
	case TurnPotentialSilence:
		return "potential_silence"
	default:
		return "unknown"
	}
}

// TurnTransition describes one state change, including whether it
// crossed the boundary into or out of a confirmed speech turn.
type TurnTransition struct {
	From        TurnState
	To          TurnState
	TurnStarted bool
	TurnEnded   bool
}

// TurnStateMachine debounces raw per-frame VAD decisions using
// consecutive-frame thresholds, so a single flickered frame doesn't
// start or end a turn.
type TurnStateMachine struct {
	state             TurnState
	minSpeechFrames   int
	minSilenceFrames  int
	consecutiveSpeech int
	consecutiveSilent int
}

// NewTurnStateMachine constructs a machine requiring minSpeechFrames
// consecutive speech frames to confirm a turn start, and
// minSilenceFrames consecutive silent frames to confirm a turn end.
func NewTurnStateMachine(minSpeechFrames, minSilenceFrames int) *TurnStateMachine {
	if minSpeechFrames < 1 {
		minSpeechFrames = 1
	}
	if minSilenceFrames < 1 {
		minSilenceFrames = 1
	}
	return &TurnStateMachine{
		state:            TurnSilence,
		minSpeechFrames:  minSpeechFrames,
		minSilenceFrames: minSilenceFrames,
	}
}

// State returns the current debounced turn state.
func (m *TurnStateMachine) State() TurnState {
	return m.state
}

// Observe feeds one frame-level speech/silence decision and returns the
// resulting transition (From == To when nothing changed).
func (m *TurnStateMachine) Observe(isSpeech bool) TurnTransition {
	from := m.state

	if isSpeech {
		m.consecutiveSilent = 0
		m.consecutiveSpeech++
	} else {
		m.consecutiveSpeech = 0
		m.consecutiveSilent++
	}

	switch m.state {
	case TurnSilence, TurnPotentialSpeech:
		if !isSpeech {
			m.state = TurnSilence
		} else if m.consecutiveSpeech >= m.minSpeechFrames {
			m.state = TurnSpeech
		} else {
			m.state = TurnPotentialSpeech
		}
	case TurnSpeech, TurnPotentialSilence:
		if isSpeech {
			m.state = TurnSpeech
		} else if m.consecutiveSilent >= m.minSilenceFrames {
			m.state = TurnSilence
		} else {
			m.state = TurnPotentialSilence
		}
	}

	inTurn := from == TurnSpeech || from == TurnPotentialSilence
	return TurnTransition{
		From:        from,
		To:          m.state,
		TurnStarted: !inTurn && m.state == TurnSpeech,
		TurnEnded:   inTurn && m.state == TurnSilence,
	}
}

// Reset returns the machine to TurnSilence, used on barge-in cutover or
// session reset.
func (m *TurnStateMachine) Reset() {
	m.state = TurnSilence
	m.consecutiveSpeech = 0
	m.consecutiveSilent = 0
}
