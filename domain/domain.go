// Package domain provides a read-only, typed projection over merged YAML
// configuration: slots, goals, segments, competitors, stages, response
// templates and tool schemas for a configurable customer-facing agent.
package domain

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a missing or malformed configuration key. It is the
// only error kind in this package and is always fatal at construction time.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("domain config %s: %s", e.Path, e.Msg)
}

// SlotDef describes one canonical dialogue-state slot.
type SlotDef struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Values      []string       `yaml:"values,omitempty"`
	PurityID    string         `yaml:"purity_id,omitempty"`
	PurityFactor float64       `yaml:"purity_factor,omitempty"`
	Prompt      map[string]string `yaml:"prompt,omitempty"`
}

// GoalDef describes a configured workflow.
type GoalDef struct {
	ID               string   `yaml:"id"`
	RequiredSlots    []string `yaml:"required_slots"`
	OptionalSlots    []string `yaml:"optional_slots"`
	CompletionAction string   `yaml:"completion_action"`
	AskOrder         []string `yaml:"ask_order"`
}

// Segment describes a customer segment matching rule.
type Segment struct {
	ID       string         `yaml:"id"`
	Priority int            `yaml:"priority"`
	Match    map[string]any `yaml:"match"`
}

// Stage is a node of the configured conversation-phase automaton.
type Stage struct {
	ID              string            `yaml:"id"`
	Guidance        string            `yaml:"guidance"`
	ContextBudget   int               `yaml:"context_budget"`
	RAGFraction     float64           `yaml:"rag_fraction"`
	AllowedNext     []string          `yaml:"allowed_next"`
	MinTurns        int               `yaml:"min_turns"`
	WordCeiling     int               `yaml:"word_ceiling"`
	IntentTransitions map[string]string `yaml:"intent_transitions,omitempty"`
}

// CompetitorRate describes one configured competitor.
type CompetitorRate struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name"`
	InterestRate float64 `yaml:"interest_rate"`
	LTV         float64 `yaml:"ltv"`
}

// ToolSchema is a JSON-Schema-like input schema for one tool.
type ToolSchema struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	InputSchema map[string]any `yaml:"input_schema"`
	TimeoutSecs int            `yaml:"timeout_secs"`
}

// View is the immutable, merged configuration. Construct with Load; there
// are no exported mutator methods.
type View struct {
	raw map[string]any

	slots       map[string]SlotDef
	goals       map[string]GoalDef
	intentGoal  map[string]string
	segments    []Segment
	stages      map[string]Stage
	competitors map[string]CompetitorRate
	tools       map[string]ToolSchema
	toolResp    map[string]map[string]any // tool -> scenario -> {lang: template}
	prompts     map[string]any
	fallbacks   map[string]string
}

// Load reads base/defaults.yaml, deep-merges the domain directory's YAML
// files over it, applies runtime overrides last, and builds a View.
// Construction fails fast with a path-qualified ConfigError on any missing
// required key.
func Load(baseDir, domainDir string, overrides map[string]any) (*View, error) {
	merged := map[string]any{}

	if baseDir != "" {
		base, err := loadYAMLTree(baseDir)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, base)
	}
	if domainDir != "" {
		dom, err := loadYAMLTree(domainDir)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, dom)
	}
	if overrides != nil {
		merged = deepMerge(merged, overrides)
	}

	v := &View{raw: merged}
	if err := v.build(); err != nil {
		return nil, err
	}
	return v, nil
}

func loadYAMLTree(dir string) (map[string]any, error) {
	out := map[string]any{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return &ConfigError{Path: path, Msg: err.Error()}
		}
		out = deepMerge(out, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// deepMerge merges src into dst: maps merge recursively, everything else
// (including slices) is replaced wholesale by src's value.
func deepMerge(dst, src map[string]any) map[string]any {
	for k, sv := range src {
		if dv, ok := dst[k]; ok {
			dm, dIsMap := dv.(map[string]any)
			sm, sIsMap := sv.(map[string]any)
			if dIsMap && sIsMap {
				dst[k] = deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = sv
	}
	return dst
}

func (v *View) build() error {
	if err := v.buildSlots(); err != nil {
		return err
	}
	if err := v.buildGoals(); err != nil {
		return err
	}
	v.buildIntents()
	v.buildSegments()
	v.buildStages()
	v.buildCompetitors()
	if err := v.buildTools(); err != nil {
		return err
	}
	v.buildPrompts()
	return nil
}

func asSlice(m map[string]any, key string) []any {
	if s, ok := m[key].([]any); ok {
		return s
	}
	return nil
}

func remarshal[T any](src any, out *T) error {
	data, err := yaml.Marshal(src)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func (v *View) buildSlots() error {
	v.slots = map[string]SlotDef{}
	for _, raw := range asSlice(v.raw, "slots") {
		var def SlotDef
		if err := remarshal(raw, &def); err != nil {
			return &ConfigError{Path: "slots", Msg: err.Error()}
		}
		if def.Name == "" {
			return &ConfigError{Path: "slots", Msg: "entry missing required key 'name'"}
		}
		v.slots[def.Name] = def
	}
	return nil
}

func (v *View) buildGoals() error {
	v.goals = map[string]GoalDef{}
	for _, raw := range asSlice(v.raw, "goals") {
		var def GoalDef
		if err := remarshal(raw, &def); err != nil {
			return &ConfigError{Path: "goals", Msg: err.Error()}
		}
		if def.ID == "" {
			return &ConfigError{Path: "goals", Msg: "entry missing required key 'id'"}
		}
		v.goals[def.ID] = def
	}
	if _, ok := v.goals["exploration"]; !ok {
		v.goals["exploration"] = GoalDef{ID: "exploration"}
	}
	return nil
}

func (v *View) buildIntents() {
	v.intentGoal = map[string]string{}
	if m, ok := v.raw["intents"].(map[string]any); ok {
		for intent, goal := range m {
			if s, ok := goal.(string); ok {
				v.intentGoal[intent] = s
			}
		}
	}
}

func (v *View) buildSegments() {
	v.segments = nil
	for _, raw := range asSlice(v.raw, "segments") {
		var seg Segment
		if err := remarshal(raw, &seg); err == nil {
			v.segments = append(v.segments, seg)
		}
	}
}

func (v *View) buildStages() {
	v.stages = map[string]Stage{}
	for _, raw := range asSlice(v.raw, "stages") {
		var st Stage
		if err := remarshal(raw, &st); err == nil && st.ID != "" {
			if st.WordCeiling == 0 {
				st.WordCeiling = 50
			}
			v.stages[st.ID] = st
		}
	}
}

func (v *View) buildCompetitors() {
	v.competitors = map[string]CompetitorRate{}
	for _, raw := range asSlice(v.raw, "competitors") {
		var c CompetitorRate
		if err := remarshal(raw, &c); err == nil && c.Name != "" {
			v.competitors[c.Name] = c
		}
	}
}

func (v *View) buildTools() error {
	v.tools = map[string]ToolSchema{}
	v.toolResp = map[string]map[string]any{}

	toolsRaw, _ := v.raw["tools"].(map[string]any)
	for _, raw := range asSlice(toolsRaw, "schemas") {
		var ts ToolSchema
		if err := remarshal(raw, &ts); err != nil {
			return &ConfigError{Path: "tools/schemas", Msg: err.Error()}
		}
		if ts.Name == "" {
			return &ConfigError{Path: "tools/schemas", Msg: "entry missing required key 'name'"}
		}
		if ts.TimeoutSecs == 0 {
			ts.TimeoutSecs = 30
		}
		v.tools[ts.Name] = ts
	}
	for _, raw := range asSlice(toolsRaw, "responses") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["tool"].(string)
		if name == "" {
			continue
		}
		scenarios, _ := m["scenarios"].(map[string]any)
		v.toolResp[name] = scenarios
	}
	return nil
}

func (v *View) buildPrompts() {
	v.prompts, _ = v.raw["prompts"].(map[string]any)
	v.fallbacks = map[string]string{}
	if fb, ok := v.prompts["fallbacks"].(map[string]any); ok {
		for k, val := range fb {
			if s, ok := val.(string); ok {
				v.fallbacks[k] = s
			}
		}
	}
}

// Slot returns the slot definition by name.
func (v *View) Slot(name string) (SlotDef, bool) {
	s, ok := v.slots[name]
	return s, ok
}

// Goal returns the goal definition by id.
func (v *View) Goal(id string) (GoalDef, bool) {
	g, ok := v.goals[id]
	return g, ok
}

// GoalForIntent maps an intent name to a goal id, empty if unmapped.
func (v *View) GoalForIntent(intent string) string {
	return v.intentGoal[intent]
}

// Segments returns all configured customer segments.
func (v *View) Segments() []Segment {
	return v.segments
}

// Stage returns the stage definition by id.
func (v *View) Stage(id string) (Stage, bool) {
	s, ok := v.stages[id]
	return s, ok
}

// Competitor returns the competitor rate record by canonical name.
func (v *View) Competitor(name string) (CompetitorRate, bool) {
	c, ok := v.competitors[name]
	return c, ok
}

// CompetitorNames returns every configured competitor's canonical name,
// used by nlu to build lender-matching patterns at load time.
func (v *View) CompetitorNames() []string {
	names := make([]string, 0, len(v.competitors))
	for n := range v.competitors {
		names = append(names, n)
	}
	return names
}

// Tool returns the tool schema by name.
func (v *View) Tool(name string) (ToolSchema, bool) {
	t, ok := v.tools[name]
	return t, ok
}

// ToolResponseTemplate renders the named tool's response for the given
// scenario and language, substituting {var} placeholders from vars and
// falling back to "en" when the language is not configured.
func (v *View) ToolResponseTemplate(tool, scenario, language string, vars map[string]string) (string, bool) {
	scenarios, ok := v.toolResp[tool]
	if !ok {
		return "", false
	}
	langs, ok := scenarios[scenario].(map[string]any)
	if !ok {
		return "", false
	}
	tmpl, ok := langs[language].(string)
	if !ok {
		tmpl, ok = langs["en"].(string)
		if !ok {
			return "", false
		}
	}
	return substitute(tmpl, vars), true
}

// Fallback returns a configured fallback template by kind ("no_asr",
// "technical_issue", "escalate", ...). Fallbacks are not per-language;
// an unconfigured kind yields "".
func (v *View) Fallback(kind string) string {
	return v.fallbacks[kind]
}

// Prompt returns a nested value from the prompts.yaml tree by dotted path,
// e.g. "system.persona" or "stages.greeting".
func (v *View) Prompt(path string) (string, bool) {
	cur := any(v.prompts)
	for _, seg := range splitDots(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[seg]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// Raw returns a nested value from the full merged configuration tree by
// dotted path, e.g. "ltv.k22" or "loan_limits.max_amount". Domain-specific
// tool implementations use this for values the generic View accessors
// don't model (brand info, rate tables, limits).
func (v *View) Raw(path string) (any, bool) {
	cur := any(v.raw)
	for _, seg := range splitDots(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// RawFloat is Raw narrowed to float64, accepting YAML's int/float forms.
func (v *View) RawFloat(path string) (float64, bool) {
	val, ok := v.Raw(path)
	if !ok {
		return 0, false
	}
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// RawString is Raw narrowed to string.
func (v *View) RawString(path string) (string, bool) {
	val, ok := v.Raw(path)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

func splitDots(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// substitute replaces {name} placeholders with values from vars; unknown
// placeholders are left literal, per spec §4.1.
func substitute(tmpl string, vars map[string]string) string {
	out := make([]byte, 0, len(tmpl))
	i := 0
	for i < len(tmpl) {
		if tmpl[i] == '{' {
			end := -1
			for j := i + 1; j < len(tmpl); j++ {
				if tmpl[j] == '}' {
					end = j
					break
				}
			}
			if end != -1 {
				name := tmpl[i+1 : end]
				if val, ok := vars[name]; ok {
					out = append(out, val...)
					i = end + 1
					continue
				}
			}
		}
		out = append(out, tmpl[i])
		i++
	}
	return string(out)
}
