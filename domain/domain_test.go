package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadMergesBaseAndDomain(t *testing.T) {
	base := t.TempDir()
	dom := t.TempDir()

	writeYAML(t, base, "slots.yaml", `
slots:
  - name: loan_amount
    type: Currency
  - name: customer_name
    type: Text
`)
	writeYAML(t, base, "goals.yaml", `
goals:
  - id: balance_transfer
    required_slots: [current_lender, loan_amount]
    completion_action: calculate_savings
`)
	writeYAML(t, dom, "competitors.yaml", `
competitors:
  - name: Muthoot
    display_name: Muthoot Finance
    interest_rate: 19.5
    ltv: 0.75
`)

	v, err := Load(base, dom, nil)
	require.NoError(t, err)

	_, ok := v.Slot("loan_amount")
	require.True(t, ok)

	g, ok := v.Goal("balance_transfer")
	require.True(t, ok)
	require.Equal(t, "calculate_savings", g.CompletionAction)

	c, ok := v.Competitor("Muthoot")
	require.True(t, ok)
	require.Equal(t, 19.5, c.InterestRate)
}

func TestDeepMergeObjectsMergeArraysReplace(t *testing.T) {
	base := t.TempDir()
	dom := t.TempDir()

	writeYAML(t, base, "domain.yaml", `
brand:
  name: Base Corp
  rates:
    tier1: 10
segments:
  - id: a
`)
	writeYAML(t, dom, "domain.yaml", `
brand:
  rates:
    tier2: 20
segments:
  - id: b
`)

	v, err := Load(base, dom, nil)
	require.NoError(t, err)

	brand := v.raw["brand"].(map[string]any)
	rates := brand["rates"].(map[string]any)
	require.Equal(t, 10, rates["tier1"])
	require.Equal(t, 20, rates["tier2"])
	require.Equal(t, "Base Corp", brand["name"])

	require.Len(t, v.Segments(), 1)
	require.Equal(t, "b", v.Segments()[0].ID)
}

func TestMissingRequiredKeyFails(t *testing.T) {
	base := t.TempDir()
	writeYAML(t, base, "slots.yaml", `
slots:
  - type: Currency
`)
	_, err := Load(base, "", nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestToolResponseTemplateFallsBackToEnglish(t *testing.T) {
	base := t.TempDir()
	writeYAML(t, base, "tools.yaml", `
tools:
  responses:
    - tool: calculate_savings
      scenarios:
        eligible:
          en: "You could save {amount} per year, {name}."
`)
	v, err := Load(base, "", nil)
	require.NoError(t, err)

	text, ok := v.ToolResponseTemplate("calculate_savings", "eligible", "hi", map[string]string{
		"amount": "12,000",
		"name":   "Rahul",
	})
	require.True(t, ok)
	require.Equal(t, "You could save 12,000 per year, Rahul.", text)
}

func TestSubstituteLeavesUnknownPlaceholdersLiteral(t *testing.T) {
	out := substitute("Hello {name}, your {unknown} is ready.", map[string]string{"name": "Amit"})
	require.Equal(t, "Hello Amit, your {unknown} is ready.", out)
}
