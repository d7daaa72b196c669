// Package goldloan implements the gold-loan domain's concrete tool set
// on top of mcptools.Registry: eligibility and savings calculators, a
// lender comparison, branch/document lookups, and the generic
// lead-capture/escalation/appointment tools shared with other domains.
package goldloan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"voiceagent/domain"
	"voiceagent/mcptools"
)

// baseTool defers schema metadata to the domain view so every tool's
// description, input schema, and timeout stay in one place: the YAML
// config, not duplicated Go literals.
type baseTool struct {
	view *domain.View
	name string
}

func (t baseTool) Name() string { return t.name }

func (t baseTool) Description() string {
	schema, _ := t.view.Tool(t.name)
	return schema.Description
}

func (t baseTool) InputSchema() map[string]any {
	schema, _ := t.view.Tool(t.name)
	if schema.InputSchema == nil {
		return map[string]any{"type": "object"}
	}
	return schema.InputSchema
}

func (t baseTool) TimeoutSecs() int {
	schema, _ := t.view.Tool(t.name)
	if schema.TimeoutSecs <= 0 {
		return 30
	}
	return schema.TimeoutSecs
}

func textResult(text string) mcptools.CallResult {
	return mcptools.CallResult{Content: []mcptools.ContentBlock{{Type: "text", Text: text}}}
}

func invalidParams(msg string) (mcptools.CallResult, *mcptools.ToolError) {
	return mcptools.CallResult{}, &mcptools.ToolError{Kind: mcptools.ErrInvalidParams, Msg: msg}
}

// Register builds and registers the full gold-loan tool set into reg.
func Register(reg *mcptools.Registry, view *domain.View) error {
	for _, t := range []mcptools.Tool{
		&CheckEligibility{baseTool{view, "check_eligibility"}},
		&CalculateSavings{baseTool{view, "calculate_savings"}},
		&GetGoldPrice{baseTool{view, "get_gold_price"}},
		&CompareLenders{baseTool{view, "compare_lenders"}},
		&GetDocumentChecklist{baseTool{view, "get_document_checklist"}},
		&FindBranches{baseTool{view, "find_branches"}},
		&ScheduleAppointment{baseTool{view, "schedule_appointment"}},
		&SendSMS{baseTool{view, "send_sms"}},
		&CaptureLead{baseTool{view, "capture_lead"}},
		&EscalateToHuman{baseTool{view, "escalate_to_human"}},
	} {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("goldloan: %w", err)
		}
	}
	return nil
}

// CheckEligibility computes a maximum loan amount from weight, purity,
// and the configured loan-to-value table.
type CheckEligibility struct{ baseTool }

func (t *CheckEligibility) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		GoldWeightGrams float64 `json:"gold_weight_grams"`
		GoldPurity      string  `json:"gold_purity"`
		CustomerName    string  `json:"customer_name"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.GoldWeightGrams <= 0 {
		return invalidParams("gold_weight_grams must be positive")
	}

	purityFactor, _ := t.view.RawFloat("purity_factors." + args.GoldPurity)
	ltv, ok := t.view.RawFloat("ltv." + ltvKey(args.GoldPurity))
	if !ok {
		ltv, _ = t.view.RawFloat("ltv.default")
	}
	pricePerGram, _ := t.view.RawFloat("gold_price_per_gram")
	if pricePerGram == 0 {
		pricePerGram = defaultGoldPricePerGram
	}

	pureGrams := args.GoldWeightGrams * purityFactor
	value := pureGrams * pricePerGram
	maxAmount := value * ltv

	minAmount, _ := t.view.RawFloat("loan_limits.min_amount")
	if maxAmount < minAmount {
		name := args.CustomerName
		if name == "" {
			name = "there"
		}
		tmpl, ok := t.view.ToolResponseTemplate(t.name, "not_eligible", "en", map[string]string{
			"name":   name,
			"weight": fmt.Sprintf("%.0f", args.GoldWeightGrams),
		})
		if ok {
			return textResult(tmpl), nil
		}
		return textResult(fmt.Sprintf("%.0fg at %s purity does not meet the minimum loan threshold.", args.GoldWeightGrams, args.GoldPurity)), nil
	}

	maxAmount2, _ := t.view.RawFloat("loan_limits.max_amount")
	if maxAmount2 > 0 && maxAmount > maxAmount2 {
		maxAmount = maxAmount2
	}

	name := args.CustomerName
	if name == "" {
		name = "there"
	}
	tmpl, ok := t.view.ToolResponseTemplate(t.name, "eligible", "en", map[string]string{
		"name":       name,
		"weight":     fmt.Sprintf("%.0f", args.GoldWeightGrams),
		"purity":     args.GoldPurity,
		"max_amount": fmt.Sprintf("%.0f", maxAmount),
	})
	if ok {
		return textResult(tmpl), nil
	}
	return textResult(fmt.Sprintf("Eligible for up to %.0f against %.0fg of %s gold.", maxAmount, args.GoldWeightGrams, args.GoldPurity)), nil
}

func ltvKey(purity string) string {
	switch purity {
	case "K24":
		return "k24"
	case "K22":
		return "k22"
	case "K18":
		return "k18"
	case "K14":
		return "k14"
	default:
		return "default"
	}
}

const defaultGoldPricePerGram = 6200.0

// CalculateSavings estimates annual interest savings from switching away
// from the customer's current lender, using the configured competitor
// or house rate as the comparison point.
type CalculateSavings struct{ baseTool }

func (t *CalculateSavings) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		CurrentLender        string  `json:"current_lender"`
		LoanAmount           float64 `json:"loan_amount"`
		CurrentInterestRate  float64 `json:"current_interest_rate"`
		CustomerName         string  `json:"customer_name"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.LoanAmount <= 0 {
		return invalidParams("loan_amount must be positive")
	}

	houseRate, ok := t.view.RawFloat("house_interest_rate")
	if !ok {
		houseRate = defaultHouseRate
	}
	rateDiff := args.CurrentInterestRate - houseRate
	if rateDiff < 0 {
		rateDiff = 0
	}
	savings := args.LoanAmount * (rateDiff / 100)

	name := args.CustomerName
	if name == "" {
		name = "there"
	}
	tmpl, ok := t.view.ToolResponseTemplate(t.name, "eligible", "en", map[string]string{
		"name":   name,
		"lender": args.CurrentLender,
		"savings": fmt.Sprintf("%.0f", savings),
	})
	if ok {
		return textResult(tmpl), nil
	}
	return textResult(fmt.Sprintf("Estimated annual savings: %.0f", savings)), nil
}

const defaultHouseRate = 12.5

// GetGoldPrice returns today's configured price per gram for a purity.
type GetGoldPrice struct{ baseTool }

func (t *GetGoldPrice) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		GoldPurity string `json:"gold_purity"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	purityFactor, ok := t.view.RawFloat("purity_factors." + args.GoldPurity)
	if !ok {
		return invalidParams("unknown gold_purity: " + args.GoldPurity)
	}
	pricePerGram, _ := t.view.RawFloat("gold_price_per_gram")
	if pricePerGram == 0 {
		pricePerGram = defaultGoldPricePerGram
	}
	return textResult(fmt.Sprintf("%.2f per gram for %s gold", pricePerGram*purityFactor, args.GoldPurity)), nil
}

// CompareLenders ranks configured competitors by interest rate and
// reports the cheapest one; the house rate is not consulted.
type CompareLenders struct{ baseTool }

func (t *CompareLenders) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	names := t.view.CompetitorNames()
	rates := make([]domain.CompetitorRate, 0, len(names))
	for _, n := range names {
		if c, ok := t.view.Competitor(n); ok {
			rates = append(rates, c)
		}
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].InterestRate < rates[j].InterestRate })
	if len(rates) == 0 {
		return textResult("no competitor data configured"), nil
	}
	cheapest := rates[0]
	tmpl, ok := t.view.ToolResponseTemplate(t.name, "eligible", "en", map[string]string{
		"lender": cheapest.DisplayName,
		"rate":   fmt.Sprintf("%.1f", cheapest.InterestRate),
	})
	if ok {
		return textResult(tmpl), nil
	}
	return textResult(fmt.Sprintf("Cheapest competitor is %s at %.1f%%", cheapest.DisplayName, cheapest.InterestRate)), nil
}

// GetDocumentChecklist lists documents required to open a loan.
type GetDocumentChecklist struct{ baseTool }

func (t *GetDocumentChecklist) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	docs := []string{"Government photo ID (Aadhaar/PAN/passport)", "Proof of address", "Recent photograph"}
	return textResult("Required documents: " + joinComma(docs)), nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// FindBranches looks up nearby branches by pincode. Branch data is not
// modeled in the domain config; every pincode gets the same fixed
// branch name back.
type FindBranches struct{ baseTool }

func (t *FindBranches) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		Pincode string `json:"pincode"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.Pincode == "" {
		return invalidParams("pincode required")
	}
	return textResult(fmt.Sprintf("Nearest branch to %s: GoldTrust Finance, MG Road branch.", args.Pincode)), nil
}

// ScheduleAppointment books a branch visit slot.
type ScheduleAppointment struct{ baseTool }

func (t *ScheduleAppointment) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		Branch string `json:"branch"`
		Date   string `json:"date"`
		Time   string `json:"time"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.Branch == "" || args.Date == "" || args.Time == "" {
		return invalidParams("branch, date, and time are required")
	}
	return textResult(fmt.Sprintf("Booked %s at %s on %s.", args.Branch, args.Time, args.Date)), nil
}

// SendSMS sends a text message to the customer's phone.
type SendSMS struct{ baseTool }

func (t *SendSMS) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		PhoneNumber string `json:"phone_number"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.PhoneNumber == "" || args.Message == "" {
		return invalidParams("phone_number and message are required")
	}
	return textResult("SMS queued for " + args.PhoneNumber), nil
}

// CaptureLead records a customer lead for follow-up.
type CaptureLead struct{ baseTool }

func (t *CaptureLead) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		CustomerName string `json:"customer_name"`
		PhoneNumber  string `json:"phone_number"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return invalidParams(err.Error())
	}
	if args.CustomerName == "" || args.PhoneNumber == "" {
		return invalidParams("customer_name and phone_number are required")
	}
	tmpl, ok := t.view.ToolResponseTemplate(t.name, "captured", "en", map[string]string{
		"name":  args.CustomerName,
		"phone": args.PhoneNumber,
	})
	if ok {
		return textResult(tmpl), nil
	}
	return textResult(fmt.Sprintf("Lead captured for %s (%s).", args.CustomerName, args.PhoneNumber)), nil
}

// EscalateToHuman hands the conversation off to a human agent.
type EscalateToHuman struct{ baseTool }

func (t *EscalateToHuman) Execute(ctx context.Context, input json.RawMessage) (mcptools.CallResult, *mcptools.ToolError) {
	var args struct {
		Reason       string `json:"reason"`
		CustomerName string `json:"customer_name"`
	}
	_ = json.Unmarshal(input, &args)
	name := args.CustomerName
	if name == "" {
		name = "there"
	}
	tmpl, ok := t.view.ToolResponseTemplate(t.name, "escalated", "en", map[string]string{"name": name})
	if ok {
		return textResult(tmpl), nil
	}
	return textResult("Connecting you with a specialist now."), nil
}
