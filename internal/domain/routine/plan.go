package routine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	fallbackNotice = "Unable to generate routine. Showing sample plan."
	noPlanText     = "No routine available. Please generate first."
)

var (
	jsonSpan     = regexp.MustCompile(`(\{[\s\S]*\}|\[[\s\S]*\])`)
	markdownRuns = regexp.MustCompile("[#*`]+")
	curlyQuotes  = strings.NewReplacer("“", `"`, "”", `"`)
)

// ParseOutcome is the result of reading a plan out of model text. When Parsed
// is false, Plan holds the sample plan and Reason says why.
type ParseOutcome struct {
	Plan   Plan
	Parsed bool
	Reason string
}

// Parsed wraps a successfully decoded plan.
func Parsed(plan Plan) ParseOutcome {
	return ParseOutcome{Plan: plan, Parsed: true}
}

// Fallback returns the sample plan annotated with reason.
func Fallback(reason string) ParseOutcome {
	return ParseOutcome{Plan: FallbackPlan(), Reason: reason}
}

// FallbackPlan is the fixed sample plan shown when generation fails.
func FallbackPlan() Plan {
	return Plan{
		SkinAnalysis: fallbackNotice,
		MorningRoutine: []string{
			"Cleanser (gentle, pH-balanced)",
			"Vitamin C serum",
			"Moisturizer suited to skin type",
			"Broad-spectrum SPF 50",
		},
		EveningRoutine: []string{
			"Cleanser",
			"Treatment based on needs (e.g., retinoid)",
			"Ceramide-rich moisturizer",
		},
		DietTips:  []string{"Balanced diet", "Hydration"},
		Lifestyle: []string{"Adequate sleep", "Stress management"},
	}
}

// ParsePlan extracts the first bracketed span from text and decodes it as a
// plan. It never fails; unusable input yields Fallback.
func ParsePlan(text string) ParseOutcome {
	if strings.TrimSpace(text) == "" {
		return Fallback("empty response")
	}
	span := jsonSpan.FindString(text)
	if span == "" {
		return Fallback("no json found in response")
	}
	span = curlyQuotes.Replace(span)

	plan, err := decodePlan([]byte(span))
	if err != nil {
		return Fallback(err.Error())
	}
	return Parsed(Sanitize(plan))
}

type planWire struct {
	SkinAnalysis   json.RawMessage `json:"skin_analysis"`
	MorningRoutine json.RawMessage `json:"morning_routine"`
	EveningRoutine json.RawMessage `json:"evening_routine"`
	DietTips       json.RawMessage `json:"diet_tips"`
	Lifestyle      json.RawMessage `json:"lifestyle"`
}

func decodePlan(data []byte) (Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Plan{}, errors.New("json is not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	if len(fields) == 0 {
		return Plan{}, errors.New("plan is empty")
	}
	var wire planWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}

	var (
		plan Plan
		err  error
	)
	if plan.SkinAnalysis, err = coerceText(wire.SkinAnalysis); err != nil {
		return Plan{}, fmt.Errorf("skin_analysis: %w", err)
	}
	lists := []struct {
		key string
		raw json.RawMessage
		dst *[]string
	}{
		{"morning_routine", wire.MorningRoutine, &plan.MorningRoutine},
		{"evening_routine", wire.EveningRoutine, &plan.EveningRoutine},
		{"diet_tips", wire.DietTips, &plan.DietTips},
		{"lifestyle", wire.Lifestyle, &plan.Lifestyle},
	}
	for _, l := range lists {
		if *l.dst, err = coerceStringArray(l.raw); err != nil {
			return Plan{}, fmt.Errorf("%s: %w", l.key, err)
		}
	}
	return plan, nil
}

func coerceText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '[' {
		items, err := coerceStringArray(raw)
		if err != nil {
			return "", err
		}
		return strings.Join(items, " "), nil
	}
	return scalarString(raw)
}

func coerceStringArray(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var many []json.RawMessage
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(many))
		for _, item := range many {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		single, err := scalarString(raw)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(single) == "" {
			return nil, nil
		}
		return []string{single}, nil
	}
}

func scalarString(raw json.RawMessage) (string, error) {
	switch {
	case len(raw) == 0 || string(raw) == "null":
		return "", nil
	case raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case raw[0] == '{' || raw[0] == '[':
		return "", errors.New("unsupported nested value")
	default:
		return string(raw), nil
	}
}

// Sanitize strips markdown heading, emphasis and code markers from every
// field. Items left empty are dropped and absent lists become empty lists.
func Sanitize(plan Plan) Plan {
	return Plan{
		SkinAnalysis:   cleanText(plan.SkinAnalysis),
		MorningRoutine: cleanList(plan.MorningRoutine),
		EveningRoutine: cleanList(plan.EveningRoutine),
		DietTips:       cleanList(plan.DietTips),
		Lifestyle:      cleanList(plan.Lifestyle),
	}
}

func cleanText(s string) string {
	return strings.TrimSpace(markdownRuns.ReplaceAllString(s, ""))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if clean := cleanText(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// Sections enumerates plan fields in their fixed order. Empty fields are kept.
func Sections(plan Plan) []Section {
	return []Section{
		{Key: "skin_analysis", Title: "Skin Analysis", Text: plan.SkinAnalysis},
		{Key: "morning_routine", Title: "Morning Routine", Items: plan.MorningRoutine, IsList: true},
		{Key: "evening_routine", Title: "Evening Routine", Items: plan.EveningRoutine, IsList: true},
		{Key: "diet_tips", Title: "Diet Tips", Items: plan.DietTips, IsList: true},
		{Key: "lifestyle", Title: "Lifestyle", Items: plan.Lifestyle, IsList: true},
	}
}

func buildPrompt(req Request) string {
	return fmt.Sprintf(`
You are an expert dermatologist assistant. Generate a personalized skincare plan.

INPUT:
- Age: %s
- Skin type: %s
- Allergies: %s
- Lifestyle / Other concerns: %s

TASK:
Return a VALID JSON object only (no markdown, no explanations) with keys:
skin_analysis, morning_routine, evening_routine, diet_tips, lifestyle.

RULES:
- Steps as plain strings
- Concise, professional, realistic
- No brand names
- JSON must strictly follow schema above
`, strings.TrimSpace(req.Age), strings.TrimSpace(req.SkinType), orNone(req.Allergies), orNone(req.Lifestyle))
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "none"
	}
	return s
}
