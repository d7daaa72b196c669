package goldloan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voiceagent/domain"
	"voiceagent/mcptools"
)

func testView(t *testing.T) *domain.View {
	t.Helper()
	base := t.TempDir()
	dom := t.TempDir()

	writeYAML(t, base, "defaults.yaml", `
slots:
  - name: customer_name
    type: text
tools:
  schemas:
    - name: check_eligibility
      description: "Check eligibility"
      input_schema: {type: object}
      timeout_secs: 15
    - name: calculate_savings
      description: "Calculate savings"
      input_schema: {type: object}
      timeout_secs: 15
    - name: compare_lenders
      description: "Compare lenders"
      input_schema: {type: object}
      timeout_secs: 15
    - name: capture_lead
      description: "Capture lead"
      input_schema: {type: object}
      timeout_secs: 15
    - name: escalate_to_human
      description: "Escalate"
      input_schema: {type: object}
      timeout_secs: 10
  responses:
    - tool: check_eligibility
      scenarios:
        eligible: {en: "Eligible for {max_amount}, {name}"}
        not_eligible: {en: "Not eligible, {weight}g"}
    - tool: capture_lead
      scenarios:
        captured: {en: "Captured {name} {phone}"}
`)

	writeYAML(t, dom, "domain.yaml", `
purity_factors:
  K24: 1.0
  K22: 0.916
ltv:
  default: 0.75
  k22: 0.77
loan_limits:
  min_amount: 10000
  max_amount: 10000000
gold_price_per_gram: 6000
`)
	writeYAML(t, dom, "competitors.yaml", `
competitors:
  - name: Muthoot
    display_name: Muthoot Finance
    interest_rate: 19.5
    ltv: 0.75
  - name: Rupeek
    display_name: Rupeek
    interest_rate: 16.5
    ltv: 0.80
`)

	v, err := domain.Load(base, dom, nil)
	require.NoError(t, err)
	return v
}

func writeYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCheckEligibilityComputesMaxAmount(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))

	res := reg.Call(context.Background(), "check_eligibility", []byte(`{"gold_weight_grams": 50, "gold_purity": "K22", "customer_name": "Asha"}`))
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	require.Contains(t, res.Content[0].Text, "Asha")
}

func TestCheckEligibilityBelowMinimumReturnsNotEligible(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))

	res := reg.Call(context.Background(), "check_eligibility", []byte(`{"gold_weight_grams": 0.1, "gold_purity": "K22"}`))
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "Not eligible")
}

func TestCalculateSavingsComparesAgainstHouseRate(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))

	res := reg.Call(context.Background(), "calculate_savings", []byte(`{"current_lender": "Muthoot", "loan_amount": 500000, "current_interest_rate": 19.5}`))
	require.False(t, res.IsError)
}

func TestCompareLendersPicksCheapest(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))

	res := reg.Call(context.Background(), "compare_lenders", []byte(`{}`))
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "Rupeek")
}

func TestCaptureLeadRequiresPhoneAndName(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))

	res := reg.Call(context.Background(), "capture_lead", []byte(`{"customer_name": "Asha"}`))
	require.True(t, res.IsError)

	res = reg.Call(context.Background(), "capture_lead", []byte(`{"customer_name": "Asha", "phone_number": "9999999999"}`))
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "Asha")
}

func TestAllToolsRegisterWithoutSchemaErrors(t *testing.T) {
	view := testView(t)
	reg := mcptools.NewRegistry()
	require.NoError(t, Register(reg, view))
	require.Equal(t, 10, reg.Count())
}
