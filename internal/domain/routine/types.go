package routine

import "time"

// Plan is a generated skincare plan. Field order is fixed and shared by the
// JSON body and the PDF export.
type Plan struct {
	SkinAnalysis   string   `json:"skin_analysis"`
	MorningRoutine []string `json:"morning_routine"`
	EveningRoutine []string `json:"evening_routine"`
	DietTips       []string `json:"diet_tips"`
	Lifestyle      []string `json:"lifestyle"`
}

// Request captures the routine form. Every field may be empty.
type Request struct {
	SkinType  string `json:"skin_type"`
	Age       string `json:"age"`
	Allergies string `json:"allergies"`
	Lifestyle string `json:"lifestyle"`
}

// Source tells whether a plan came from the model or the sample plan.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Response is returned to API consumers.
type Response struct {
	Routine Plan   `json:"routine"`
	Source  Source `json:"source"`
	Notice  string `json:"notice,omitempty"`
}

// Section is one titled block of a plan.
type Section struct {
	Key    string
	Title  string
	Text   string
	Items  []string
	IsList bool
}

// Config wires the routine generator.
type Config struct {
	Model   string
	Timeout time.Duration
}
