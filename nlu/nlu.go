// Package nlu implements stateless intent classification and slot
// extraction over a single utterance, with Unicode-aware word
// segmentation so Devanagari and Latin script utterances are treated
// alike.
package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// SlotType mirrors the canonical slot types from the data model.
type SlotType string

const (
	SlotText     SlotType = "Text"
	SlotNumber   SlotType = "Number"
	SlotCurrency SlotType = "Currency"
	SlotPhone    SlotType = "Phone"
	SlotDate     SlotType = "Date"
	SlotTime     SlotType = "Time"
	SlotLocation SlotType = "Location"
	SlotEnum     SlotType = "Enum"
)

// Slot is a single typed extraction result. Confirmed is never set by the
// extractor; only the dialogue tracker promotes a slot to confirmed.
type Slot struct {
	Name       string
	Type       SlotType
	Value      string
	Confidence float64
	TurnSet    uint
	Confirmed  bool
}

// Intent is the stateless classification result for one utterance.
type Intent struct {
	Name         string
	Confidence   float64
	Slots        map[string]Slot
	Alternatives []ScoredIntent
}

// ScoredIntent is one alternative intent candidate with its score.
type ScoredIntent struct {
	Name  string
	Score float64
}

// ExampleSet maps an intent name to example utterances used for
// word-overlap scoring, plus an optional fixed confidence for
// pattern-matched "intent markers" (spec §4.5's final bullet).
type ExampleSet struct {
	Name       string
	Examples   []string
	MarkerRegexps []*regexp.Regexp
}

// Extractor runs intent scoring and slot extraction. It is stateless and
// safe for concurrent use; construct once per domain view via New.
type Extractor struct {
	intents     []ExampleSet
	competitors []string
	cities      []string

	competitorRe []*regexp.Regexp
	cityRe       []*regexp.Regexp
}

// New builds an Extractor. competitorNames and cityNames come from the
// domain view (empty when unconfigured, per spec §4.5).
func New(intents []ExampleSet, competitorNames, cityNames []string) *Extractor {
	e := &Extractor{
		intents:     intents,
		competitors: competitorNames,
		cities:      cityNames,
	}
	for _, c := range competitorNames {
		e.competitorRe = append(e.competitorRe, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(c)+`\b`))
	}
	for _, c := range cityNames {
		e.cityRe = append(e.cityRe, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(c)+`\b`))
	}
	return e
}

// Extract runs both passes over a single utterance.
func (e *Extractor) Extract(turn uint, utterance string) Intent {
	top, alts := e.scoreIntents(utterance)
	slots := e.extractSlots(turn, utterance)
	return Intent{
		Name:         top.Name,
		Confidence:   top.Score,
		Slots:        slots,
		Alternatives: alts,
	}
}

// words segments an utterance into lowercased Unicode words, skipping
// whitespace and punctuation boundaries. Unlike strings.Fields this
// correctly splits Devanagari text with no ASCII spaces between clauses.
func words(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for gr.Next() {
		seg := gr.Str()
		r := []rune(seg)[0]
		if isWordRune(r) {
			cur.WriteString(seg)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == 0x0964 || r == 0x0965: // danda, double danda
		return false
	case r >= 0x0900 && r <= 0x097F: // Devanagari block
		return true
	}
	return false
}

func (e *Extractor) scoreIntents(utterance string) (ScoredIntent, []ScoredIntent) {
	lower := strings.ToLower(utterance)
	utWords := wordSet(words(utterance))

	var scored []ScoredIntent
	for _, ex := range e.intents {
		score := 0.0

		for _, marker := range ex.MarkerRegexps {
			if marker.MatchString(utterance) {
				score = max(score, 0.8)
			}
		}

		for _, example := range ex.Examples {
			el := strings.ToLower(example)
			if lower == el {
				score = max(score, 1.0)
				continue
			}
			if strings.Contains(lower, el) || strings.Contains(el, lower) {
				score = max(score, 0.85)
			}
			overlap := overlapScore(utWords, wordSet(words(example)))
			score = max(score, overlap)
		}

		if score > 0 {
			scored = append(scored, ScoredIntent{Name: ex.Name, Score: score})
		}
	}

	sortScoredDesc(scored)

	if len(scored) == 0 {
		return ScoredIntent{Name: ""}, nil
	}
	top := scored[0]
	var alts []ScoredIntent
	if len(scored) > 1 {
		n := len(scored) - 1
		if n > 3 {
			n = 3
		}
		alts = scored[1 : 1+n]
	}
	return top, alts
}

func wordSet(ws []string) map[string]bool {
	m := make(map[string]bool, len(ws))
	for _, w := range ws {
		m[w] = true
	}
	return m
}

func overlapScore(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func sortScoredDesc(s []ScoredIntent) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && s[j-1].Score < s[j].Score {
			s[j-1], s[j] = s[j], s[j-1]
			j--
		}
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// --- slot extraction ---

var (
	reAmountDigits  = regexp.MustCompile(`(?i)(?:rs\.?|rupees?|₹)?\s*([\d,]+(?:\.\d+)?)\s*(crore|lakh|lac|thousand|hazar)?`)
	rePhone         = regexp.MustCompile(`(?:\+?91[\s-]?)?([6-9]\d{9})\b`)
	rePincode       = regexp.MustCompile(`\b([1-9]\d{5})\b`)
	reWeight        = regexp.MustCompile(`(?i)([\d]+(?:\.\d+)?)\s*(gram|grams|gm|g|tola|tolas)\b`)
	rePurity        = regexp.MustCompile(`(?i)\b(1[0-9]|2[0-4])\s*(k|karat|carat)\b`)
	reInterestRate  = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d+)?)\s*%|\bpercent\b`)
	reTenureMonths  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*months?\b`)
	reTenureYears   = regexp.MustCompile(`(?i)\b(\d)\s*years?\b`)
	rePAN           = regexp.MustCompile(`\b([A-Z]{5}\d{4}[A-Z])\b`)
	reNameEnglish   = regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z][A-Za-z ]{1,40})`)
	reNameHindi     = regexp.MustCompile(`mera naam\s+([A-Za-z\p{Devanagari} ]{1,40})\s*hai`)
)

var hindiNumberWords = map[string]int{
	"ek": 1, "do": 2, "teen": 3, "char": 4, "paanch": 5,
	"che": 6, "saat": 7, "aath": 8, "nau": 9, "das": 10,
}

var contextKeywords = []string{"loan", "amount", "gold", "lakh", "crore", "rupee", "rupees"}

const amountCeiling = 1_000_000_000

func hasContextKeyword(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range contextKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func calibrate(utterance string) float64 {
	if hasContextKeyword(utterance) {
		return 0.9
	}
	return 0.7
}

func looksLikePhone(digits string) bool {
	return len(digits) == 10 && digits[0] >= '6' && digits[0] <= '9'
}

// extractSlots runs the full pattern library over the utterance.
func (e *Extractor) extractSlots(turn uint, utterance string) map[string]Slot {
	slots := map[string]Slot{}
	conf := calibrate(utterance)

	if s, ok := extractAmount(utterance, turn, conf); ok {
		slots["loan_amount"] = s
	}
	if s, ok := extractWeight(utterance, turn, conf); ok {
		slots["gold_weight_grams"] = s
	}
	if s, ok := extractPhone(utterance, turn); ok {
		slots["phone_number"] = s
	}
	if s, ok := extractPincode(utterance, turn); ok {
		slots["pincode"] = s
	}
	if s, ok := extractPurity(utterance, turn); ok {
		slots["gold_purity"] = s
	}
	if s, ok := extractInterestRate(utterance, turn); ok {
		slots["current_interest_rate"] = s
	}
	if s, ok := extractTenure(utterance, turn); ok {
		slots["loan_tenure"] = s
	}
	if s, ok := extractPAN(utterance, turn); ok {
		slots["pan_number"] = s
	}
	if s, ok := extractName(utterance, turn); ok {
		slots["customer_name"] = s
	}
	if s, ok := e.extractLender(utterance, turn); ok {
		slots["current_lender"] = s
	}
	if s, ok := e.extractCity(utterance, turn); ok {
		slots["location"] = s
	}
	return slots
}

func extractAmount(utterance string, turn uint, conf float64) (Slot, bool) {
	m := reAmountDigits.FindStringSubmatch(utterance)
	if m == nil || m[1] == "" {
		return Slot{}, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	if looksLikePhone(digits) {
		return Slot{}, false
	}
	val, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return Slot{}, false
	}
	switch strings.ToLower(m[2]) {
	case "crore":
		val *= 1e7
	case "lakh", "lac":
		val *= 1e5
	case "thousand", "hazar":
		val *= 1e3
	default:
		for word, n := range hindiNumberWords {
			if strings.Contains(strings.ToLower(utterance), word) {
				val = float64(n) * 100000 // Hindi number words used colloquially as lakh-multiples
				break
			}
		}
	}
	if val > amountCeiling {
		return Slot{}, false
	}
	return Slot{
		Name: "loan_amount", Type: SlotCurrency,
		Value: strconv.FormatFloat(val, 'f', -1, 64),
		Confidence: conf, TurnSet: turn,
	}, true
}

func extractWeight(utterance string, turn uint, conf float64) (Slot, bool) {
	m := reWeight.FindStringSubmatch(utterance)
	if m == nil {
		return Slot{}, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Slot{}, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "tola") {
		val *= 11.66
	}
	return Slot{
		Name: "gold_weight_grams", Type: SlotNumber,
		Value: strconv.FormatFloat(val, 'f', 2, 64),
		Confidence: conf, TurnSet: turn,
	}, true
}

func extractPhone(utterance string, turn uint) (Slot, bool) {
	m := rePhone.FindStringSubmatch(utterance)
	if m == nil {
		return Slot{}, false
	}
	return Slot{Name: "phone_number", Type: SlotPhone, Value: m[1], Confidence: 0.95, TurnSet: turn}, true
}

func extractPincode(utterance string, turn uint) (Slot, bool) {
	m := rePincode.FindStringSubmatch(utterance)
	if m == nil {
		return Slot{}, false
	}
	return Slot{Name: "pincode", Type: SlotText, Value: m[1], Confidence: 0.9, TurnSet: turn}, true
}

func extractPurity(utterance string, turn uint) (Slot, bool) {
	m := rePurity.FindStringSubmatch(utterance)
	if m == nil {
		return Slot{}, false
	}
	karat, err := strconv.Atoi(m[1])
	if err != nil || karat < 10 || karat > 24 {
		return Slot{}, false
	}
	return Slot{Name: "gold_purity", Type: SlotEnum, Value: "K" + m[1], Confidence: 0.9, TurnSet: turn}, true
}

func extractInterestRate(utterance string, turn uint) (Slot, bool) {
	m := reInterestRate.FindStringSubmatch(utterance)
	if m == nil || m[1] == "" {
		return Slot{}, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil || val < 5 || val > 30 {
		return Slot{}, false
	}
	return Slot{
		Name: "current_interest_rate", Type: SlotNumber,
		Value: strconv.FormatFloat(val, 'f', -1, 64), Confidence: 0.9, TurnSet: turn,
	}, true
}

func extractTenure(utterance string, turn uint) (Slot, bool) {
	if m := reTenureMonths.FindStringSubmatch(utterance); m != nil {
		months, err := strconv.Atoi(m[1])
		if err == nil && months >= 1 && months <= 60 {
			return Slot{Name: "loan_tenure", Type: SlotNumber, Value: strconv.Itoa(months), Confidence: 0.85, TurnSet: turn}, true
		}
	}
	if m := reTenureYears.FindStringSubmatch(utterance); m != nil {
		years, err := strconv.Atoi(m[1])
		if err == nil && years >= 1 && years <= 5 {
			return Slot{Name: "loan_tenure", Type: SlotNumber, Value: strconv.Itoa(years * 12), Confidence: 0.85, TurnSet: turn}, true
		}
	}
	return Slot{}, false
}

func extractPAN(utterance string, turn uint) (Slot, bool) {
	m := rePAN.FindStringSubmatch(utterance)
	if m == nil {
		return Slot{}, false
	}
	return Slot{Name: "pan_number", Type: SlotText, Value: m[1], Confidence: 0.95, TurnSet: turn}, true
}

var nameStopwords = map[string]bool{
	"is": true, "hai": true, "and": true, "the": true, "a": true,
}

func extractName(utterance string, turn uint) (Slot, bool) {
	m := reNameEnglish.FindStringSubmatch(utterance)
	if m == nil {
		m = reNameHindi.FindStringSubmatch(utterance)
	}
	if m == nil {
		return Slot{}, false
	}
	raw := strings.Fields(m[1])
	var kept []string
	for _, w := range raw {
		if nameStopwords[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return Slot{}, false
	}
	return Slot{Name: "customer_name", Type: SlotText, Value: strings.Join(kept, " "), Confidence: 0.85, TurnSet: turn}, true
}

func (e *Extractor) extractLender(utterance string, turn uint) (Slot, bool) {
	for i, re := range e.competitorRe {
		if re.MatchString(utterance) {
			return Slot{Name: "current_lender", Type: SlotText, Value: e.competitors[i], Confidence: 0.9, TurnSet: turn}, true
		}
	}
	return Slot{}, false
}

func (e *Extractor) extractCity(utterance string, turn uint) (Slot, bool) {
	for i, re := range e.cityRe {
		if re.MatchString(utterance) {
			return Slot{Name: "location", Type: SlotLocation, Value: e.cities[i], Confidence: 0.85, TurnSet: turn}, true
		}
	}
	return Slot{}, false
}
