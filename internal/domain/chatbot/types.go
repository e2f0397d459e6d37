package chatbot

import (
	"time"

	"github.com/yanqian/dermaai/pkg/metrics"
)

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ChatTurn is one entry of the rolling conversation memory.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Intent is the keyword classification of a query.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentCourtesy    Intent = "courtesy"
	IntentDefinition  Intent = "definition"
	IntentTreatment   Intent = "treatment"
	IntentPrecautions Intent = "precautions"
	IntentGeneral     Intent = "general"
)

// Source tells where a reply came from.
type Source string

const (
	SourceValidation    Source = "validation"
	SourceCanned        Source = "canned"
	SourceKnowledgeBase Source = "knowledge_base"
	SourceLLM           Source = "llm"
	SourceFallback      Source = "fallback"
)

// KnowledgeEntry is one condition of the static knowledge base.
type KnowledgeEntry struct {
	Category    string `json:"category" yaml:"-"`
	Condition   string `json:"condition" yaml:"condition"`
	Definition  string `json:"definition" yaml:"definition"`
	Treatment   string `json:"treatment" yaml:"treatment"`
	Precautions string `json:"precautions" yaml:"precautions"`
}

// Request is the chat payload.
type Request struct {
	Message string `json:"message"`
}

// Response carries the rendered HTML reply.
type Response struct {
	Reply   string              `json:"reply"`
	Intent  Intent              `json:"intent,omitempty"`
	Source  Source              `json:"source"`
	Matched string              `json:"matched,omitempty"`
	Usage   *metrics.TokenUsage `json:"usage,omitempty"`
}

// Field is one titled section of a structured reply. Items is set for lists.
type Field struct {
	Key    string
	Text   string
	Items  []string
	IsList bool
}
