package nlu

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	intents := []ExampleSet{
		{
			Name:     "new_loan_inquiry",
			Examples: []string{"I want a gold loan", "how much loan can I get"},
		},
		{
			Name:     "balance_transfer_inquiry",
			Examples: []string{"transfer my loan", "balance transfer"},
			MarkerRegexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)balance transfer`),
			},
		},
	}
	return New(intents, []string{"Muthoot", "Manappuram"}, []string{"Mumbai", "Delhi"})
}

func TestAmountExtractionWithLakhMultiplier(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "I want 5 lakh loan at 18% from Muthoot")

	slot, ok := intent.Slots["loan_amount"]
	require.True(t, ok)
	require.Equal(t, "500000", slot.Value)
	require.GreaterOrEqual(t, slot.Confidence, 0.85)

	rate, ok := intent.Slots["current_interest_rate"]
	require.True(t, ok)
	require.Equal(t, "18", rate.Value)

	lender, ok := intent.Slots["current_lender"]
	require.True(t, ok)
	require.Equal(t, "Muthoot", lender.Value)
}

func TestAmountRejectsPhoneNumberLookingValues(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "call me at 9876543210")
	_, ok := intent.Slots["loan_amount"]
	require.False(t, ok)
	phone, ok := intent.Slots["phone_number"]
	require.True(t, ok)
	require.Equal(t, "9876543210", phone.Value)
}

func TestAmountCeilingRejectsAbsurdValues(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "I want 500 crore loan")
	_, ok := intent.Slots["loan_amount"]
	require.False(t, ok)
}

func TestWeightExtractionHandlesTola(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "I have 10 tola of gold")
	slot, ok := intent.Slots["gold_weight_grams"]
	require.True(t, ok)
	require.Equal(t, "116.60", slot.Value)
}

func TestNameExtractionStopsAtStopword(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "my name is Rahul Sharma and I need a loan")
	slot, ok := intent.Slots["customer_name"]
	require.True(t, ok)
	require.Equal(t, "Rahul Sharma", slot.Value)
}

func TestDevanagariWordSegmentation(t *testing.T) {
	ws := words("मुझे पांच लाख का लोन चाहिए")
	require.NotEmpty(t, ws)
	require.Contains(t, ws, "लोन")
}

func TestIntentScoringPrefersMarkerMatch(t *testing.T) {
	e := newTestExtractor()
	intent := e.Extract(1, "I'd like a balance transfer please")
	require.Equal(t, "balance_transfer_inquiry", intent.Name)
}
