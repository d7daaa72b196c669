package dialogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voiceagent/domain"
	"voiceagent/nlu"
)

func testView(t *testing.T) *domain.View {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slots.yaml"), []byte(`
slots:
  - name: current_lender
    type: Text
  - name: loan_amount
    type: Currency
  - name: current_interest_rate
    type: Number
  - name: gold_weight_grams
    type: Number
  - name: customer_name
    type: Text
  - name: phone_number
    type: Phone
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goals.yaml"), []byte(`
goals:
  - id: balance_transfer
    required_slots: [current_lender, loan_amount, current_interest_rate]
    completion_action: calculate_savings
    ask_order: [current_lender, loan_amount, current_interest_rate]
  - id: lead_capture
    required_slots: [customer_name, phone_number]
    completion_action: capture_lead
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intents.yaml"), []byte(`
intents:
  balance_transfer_inquiry: balance_transfer
  capture_lead: lead_capture
`), 0o644))

	v, err := domain.Load(dir, "", nil)
	require.NoError(t, err)
	return v
}

func TestSlotConfirmationMonotonicity(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{
		Name:       "balance_transfer_inquiry",
		Confidence: 0.9,
		Slots: map[string]nlu.Slot{
			"current_lender": {Value: "Muthoot", Confidence: 0.95},
		},
	}, 1)

	snap := tr.Snapshot()
	require.Contains(t, snap.ConfirmedSlots, "current_lender")
	require.NotContains(t, snap.PendingSlots, "current_lender")
	require.Equal(t, 1.0, snap.Slots["current_lender"].Confidence)
}

func TestCorrectionSemantics(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{Slots: map[string]nlu.Slot{
		"gold_weight_grams": {Value: "50", Confidence: 0.8},
	}}, 1)
	tr.Update(nlu.Intent{Slots: map[string]nlu.Slot{
		"gold_weight_grams": {Value: "40", Confidence: 0.7},
	}}, 2)

	snap := tr.Snapshot()
	require.Equal(t, "40", snap.Slots["gold_weight_grams"].Value)

	var corrections int
	for _, ch := range snap.History {
		if ch.SlotName == "gold_weight_grams" && ch.Source == SourceCorrection {
			corrections++
			require.Equal(t, "50", ch.OldValue)
			require.Equal(t, "40", ch.NewValue)
		}
	}
	require.Equal(t, 1, corrections)
}

func TestCompletionImpliesNoAsks(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{
		Name: "balance_transfer_inquiry",
		Slots: map[string]nlu.Slot{
			"current_lender":        {Value: "Muthoot", Confidence: 0.95},
			"loan_amount":           {Value: "1000000", Confidence: 0.95},
			"current_interest_rate": {Value: "18", Confidence: 0.95},
		},
	}, 1)

	require.True(t, tr.IsIntentComplete("balance_transfer_inquiry"))
	action := tr.NextBestAction()
	require.Equal(t, ActionCallTool, action.Kind)
	require.Equal(t, "calculate_savings", action.Tool)
}

func TestNextBestActionAsksInConfiguredOrder(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{
		Name: "balance_transfer_inquiry",
		Slots: map[string]nlu.Slot{
			"loan_amount": {Value: "1000000", Confidence: 0.95},
		},
	}, 1)

	action := tr.NextBestAction()
	require.Equal(t, ActionAskFor, action.Kind)
	require.Equal(t, "current_lender", action.Slot)
}

func TestAutoCaptureLead(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{
		Name: "balance_transfer_inquiry",
		Slots: map[string]nlu.Slot{
			"customer_name": {Value: "Rahul", Confidence: 0.9},
			"phone_number":  {Value: "9876543210", Confidence: 0.95},
		},
	}, 1)

	require.True(t, tr.ShouldAutoCaptureLead())
	action := tr.NextBestAction()
	require.Equal(t, ActionCaptureLead, action.Kind)
}

func TestLowConfidenceSlotIsDropped(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{Slots: map[string]nlu.Slot{
		"loan_amount": {Value: "500000", Confidence: 0.2},
	}}, 1)

	snap := tr.Snapshot()
	_, ok := snap.Slots["loan_amount"]
	require.False(t, ok)
}

func TestGoalNeverDowngrades(t *testing.T) {
	tr := New(testView(t), DefaultConfig(), nil)
	tr.Update(nlu.Intent{Name: "balance_transfer_inquiry"}, 1)
	require.Equal(t, "balance_transfer", tr.Snapshot().GoalID)

	tr.Update(nlu.Intent{Name: "capture_lead"}, 2)
	require.Equal(t, "balance_transfer", tr.Snapshot().GoalID)
}
