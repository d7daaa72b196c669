// Package dialogue implements the config-driven, string goal_id-backed
// dialogue state tracker. Only this form is implemented; the legacy
// enum-based ConversationGoal tracker from the original source is not
// carried forward.
package dialogue

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"voiceagent/domain"
	"voiceagent/nlu"
)

// DstError reports an invalid slot write. It is never surfaced to the
// client: the tracker logs it and drops the offending write.
type DstError struct {
	Slot string
	Msg  string
}

func (e *DstError) Error() string {
	return "dst: slot " + e.Slot + ": " + e.Msg
}

// ChangeSource identifies why a StateChange happened.
type ChangeSource string

const (
	SourceUserUtterance      ChangeSource = "UserUtterance"
	SourceCorrection         ChangeSource = "Correction"
	SourceSystemConfirmation ChangeSource = "SystemConfirmation"
	SourceExternal           ChangeSource = "External"
)

// StateChange is one append-only history entry.
type StateChange struct {
	Ts         time.Time
	SlotName   string
	OldValue   string
	NewValue   string
	Confidence float64
	Source     ChangeSource
	TurnIndex  uint
}

// NextBestAction is the policy output consulted by the response planner.
type NextBestAction struct {
	Kind ActionKind
	Slot string // for AskFor
	Tool string // for CallTool
}

type ActionKind string

const (
	ActionCallTool         ActionKind = "CallTool"
	ActionAskFor           ActionKind = "AskFor"
	ActionOfferAppointment ActionKind = "OfferAppointment"
	ActionExplainProcess   ActionKind = "ExplainProcess"
	ActionDiscoverIntent   ActionKind = "DiscoverIntent"
	ActionCaptureLead      ActionKind = "CaptureLead"
)

// Config holds the tracker's tunables, defaults per spec §4.6.
type Config struct {
	MinSlotConfidence     float64
	AutoConfirmConfidence float64
	EnableCorrections     bool
	CorrectionLookback    int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinSlotConfidence:     0.5,
		AutoConfirmConfidence: 0.9,
		EnableCorrections:     true,
		CorrectionLookback:    3,
	}
}

const defaultGoalID = "exploration"

// State is the canonical dialogue state for one session.
type State struct {
	Slots             map[string]nlu.Slot
	PrimaryIntent     string
	IntentConfidence  float64
	SecondaryIntents  []string
	GoalID            string
	GoalConfirmed     bool
	GoalSetTurn       uint
	PendingSlots      map[string]bool
	ConfirmedSlots    map[string]bool
	History           []StateChange
}

func newState() *State {
	return &State{
		Slots:          map[string]nlu.Slot{},
		GoalID:         defaultGoalID,
		PendingSlots:   map[string]bool{},
		ConfirmedSlots: map[string]bool{},
	}
}

// Snapshot is a deep copy suitable for serialization; round-tripping it
// through JSON/YAML yields structural equality per spec property 6.
type Snapshot struct {
	Slots            map[string]nlu.Slot `json:"slots"`
	PrimaryIntent    string              `json:"primary_intent"`
	IntentConfidence float64             `json:"intent_confidence"`
	SecondaryIntents []string            `json:"secondary_intents"`
	GoalID           string              `json:"goal_id"`
	GoalConfirmed    bool                `json:"goal_confirmed"`
	GoalSetTurn      uint                `json:"goal_set_turn"`
	PendingSlots     []string            `json:"pending_slots"`
	ConfirmedSlots   []string            `json:"confirmed_slots"`
	History          []StateChange       `json:"history"`
}

// Snapshot returns a serializable copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{
		Slots:            map[string]nlu.Slot{},
		PrimaryIntent:    t.state.PrimaryIntent,
		IntentConfidence: t.state.IntentConfidence,
		SecondaryIntents: append([]string(nil), t.state.SecondaryIntents...),
		GoalID:           t.state.GoalID,
		GoalConfirmed:    t.state.GoalConfirmed,
		GoalSetTurn:      t.state.GoalSetTurn,
		History:          append([]StateChange(nil), t.state.History...),
	}
	for k, v := range t.state.Slots {
		s.Slots[k] = v
	}
	for k := range t.state.PendingSlots {
		s.PendingSlots = append(s.PendingSlots, k)
	}
	for k := range t.state.ConfirmedSlots {
		s.ConfirmedSlots = append(s.ConfirmedSlots, k)
	}
	return s
}

// Tracker mediates every write to a session's DialogueState.
type Tracker struct {
	mu     sync.RWMutex
	cfg    Config
	view   *domain.View
	state  *State
	log    *slog.Logger
}

// New constructs a Tracker bound to one domain view and config.
func New(view *domain.View, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cfg: cfg, view: view, state: newState(), log: logger}
}

// Update applies a newly detected intent at turn t, per the four-step
// procedure in spec §4.6.
func (t *Tracker) Update(intent nlu.Intent, turn uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.detectCorrectionsAndWrite(intent, turn)
	t.updateIntent(intent, turn)
	t.updateGoal(intent.Name, turn)
}

func (t *Tracker) detectCorrectionsAndWrite(intent nlu.Intent, turn uint) {
	for name, slot := range intent.Slots {
		if _, ok := t.view.Slot(name); !ok && t.view != nil {
			// Unknown slot name per config: dropped silently per spec
			// ("never observable by the client").
			t.log.Debug("dst: dropping write for unconfigured slot", "slot", name)
			continue
		}
		conf := slot.Confidence
		source := SourceUserUtterance

		if t.cfg.EnableCorrections {
			if prior, found := t.mostRecentPriorValue(name, turn); found && prior != slot.Value {
				conf = maxF(conf, 0.9)
				source = SourceCorrection
			}
		}

		if conf < t.cfg.MinSlotConfidence {
			continue
		}

		current, existed := t.state.Slots[name]
		if existed && current.Value == slot.Value {
			continue
		}

		old := ""
		if existed {
			old = current.Value
		}

		confirmed := conf >= t.cfg.AutoConfirmConfidence
		written := slot
		written.Name = name
		written.Confidence = conf
		written.TurnSet = turn
		written.Confirmed = confirmed
		if confirmed {
			written.Confidence = 1.0
		}
		t.state.Slots[name] = written

		delete(t.state.PendingSlots, name)
		delete(t.state.ConfirmedSlots, name)
		if confirmed {
			t.state.ConfirmedSlots[name] = true
		} else {
			t.state.PendingSlots[name] = true
		}

		t.state.History = append(t.state.History, StateChange{
			Ts: time.Now(), SlotName: name, OldValue: old, NewValue: slot.Value,
			Confidence: written.Confidence, Source: source, TurnIndex: turn,
		})
	}
}

// mostRecentPriorValue scans the last correctionLookback history entries
// for the given slot and returns the most recent distinct value seen
// before this turn.
func (t *Tracker) mostRecentPriorValue(slotName string, turn uint) (string, bool) {
	count := 0
	for i := len(t.state.History) - 1; i >= 0 && count < t.cfg.CorrectionLookback; i-- {
		ch := t.state.History[i]
		if ch.TurnIndex >= turn {
			continue
		}
		count++
		if ch.SlotName == slotName {
			return ch.NewValue, true
		}
	}
	return "", false
}

func (t *Tracker) updateIntent(intent nlu.Intent, turn uint) {
	if intent.Name == "" {
		return
	}
	if t.state.PrimaryIntent != "" && t.state.PrimaryIntent != intent.Name {
		t.state.SecondaryIntents = append(t.state.SecondaryIntents, t.state.PrimaryIntent)
	}
	t.state.PrimaryIntent = intent.Name
	t.state.IntentConfidence = intent.Confidence
	_ = turn
}

func (t *Tracker) updateGoal(intentName string, turn uint) {
	if t.view == nil {
		return
	}
	goalID := t.view.GoalForIntent(intentName)
	if goalID == "" {
		return
	}
	if t.state.GoalID == defaultGoalID || t.isUpgrade(t.state.GoalID, goalID) {
		if t.state.GoalID != goalID {
			t.state.GoalID = goalID
			t.state.GoalSetTurn = turn
			t.state.GoalConfirmed = false
		}
	}
}

// isUpgrade reports whether moving from current to candidate is allowed.
// Only exploration -> anything is an unconditional upgrade; once a
// non-exploration goal is set it is never downgraded back, matching
// spec's "upgrade, never downgrade" rule. Any two non-exploration goals
// are treated as a lateral move disallowed by default, since config does
// not define a goal ranking beyond exploration.
func (t *Tracker) isUpgrade(current, candidate string) bool {
	if current == defaultGoalID {
		return candidate != defaultGoalID
	}
	return false
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// MissingSlotsForIntent returns the required slots for intent's goal
// whose value is currently unset.
func (t *Tracker) MissingSlotsForIntent(intentName string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.missingSlotsForIntentLocked(intentName)
}

func (t *Tracker) missingSlotsForIntentLocked(intentName string) []string {
	if t.view == nil {
		return nil
	}
	goalID := t.view.GoalForIntent(intentName)
	if goalID == "" {
		goalID = t.state.GoalID
	}
	goal, ok := t.view.Goal(goalID)
	if !ok {
		return nil
	}
	var missing []string
	for _, req := range goal.RequiredSlots {
		slot, ok := t.state.Slots[req]
		if !ok || slot.Value == "" {
			missing = append(missing, req)
		}
	}
	return missing
}

// IsIntentComplete reports whether all required slots for intent's goal
// are filled.
func (t *Tracker) IsIntentComplete(intentName string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.missingSlotsForIntentLocked(intentName)) == 0
}

// NextBestAction implements the goal-specific policy from spec §4.6.
func (t *Tracker) NextBestAction() NextBestAction {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.shouldAutoCaptureLeadLocked() {
		return NextBestAction{Kind: ActionCaptureLead}
	}

	if t.view == nil {
		return NextBestAction{Kind: ActionDiscoverIntent}
	}

	goal, ok := t.view.Goal(t.state.GoalID)
	if !ok || t.state.GoalID == defaultGoalID {
		return NextBestAction{Kind: ActionDiscoverIntent}
	}

	missing := t.missingSlotsForGoalLocked(goal)
	if len(missing) == 0 {
		if goal.CompletionAction != "" {
			return NextBestAction{Kind: ActionCallTool, Tool: goal.CompletionAction}
		}
		return NextBestAction{Kind: ActionOfferAppointment}
	}

	order := goal.AskOrder
	if len(order) == 0 {
		order = goal.RequiredSlots
	}
	for _, s := range order {
		if _, ok := t.state.Slots[s]; !ok || t.state.Slots[s].Value == "" {
			return NextBestAction{Kind: ActionAskFor, Slot: s}
		}
	}
	return NextBestAction{Kind: ActionExplainProcess}
}

func (t *Tracker) missingSlotsForGoalLocked(goal domain.GoalDef) []string {
	var missing []string
	for _, req := range goal.RequiredSlots {
		slot, ok := t.state.Slots[req]
		if !ok || slot.Value == "" {
			missing = append(missing, req)
		}
	}
	return missing
}

// ShouldAutoCaptureLead reports whether the lead-capture side action
// should fire: goal isn't already lead_capture, and both name and phone
// are known.
func (t *Tracker) ShouldAutoCaptureLead() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shouldAutoCaptureLeadLocked()
}

func (t *Tracker) shouldAutoCaptureLeadLocked() bool {
	if t.state.GoalID == "lead_capture" {
		return false
	}
	name, hasName := t.state.Slots["customer_name"]
	phone, hasPhone := t.state.Slots["phone_number"]
	return hasName && name.Value != "" && hasPhone && phone.Value != ""
}

// StateContext returns a short human-readable summary for prompt
// injection.
func (t *Tracker) StateContext() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contextString(false)
}

// FullContext returns a verbose summary including history, for
// diagnostics/debugging prompts.
func (t *Tracker) FullContext() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contextString(true)
}

func (t *Tracker) contextString(full bool) string {
	var parts []string
	parts = append(parts, "goal: "+t.state.GoalID)
	if t.state.PrimaryIntent != "" {
		parts = append(parts, "intent: "+t.state.PrimaryIntent)
	}
	for name, slot := range t.state.Slots {
		status := "pending"
		if t.state.ConfirmedSlots[name] {
			status = "confirmed"
		}
		parts = append(parts, name+"="+slot.Value+" ("+status+")")
	}
	if full {
		parts = append(parts, "history_entries="+strconv.Itoa(len(t.state.History)))
	}
	return strings.Join(parts, "; ")
}
