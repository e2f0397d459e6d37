package chatbot

import (
	"slices"
	"strings"
)

func isGreeting(lower string) bool {
	return slices.Contains(greetings, lower)
}

func isCourtesy(lower string) bool {
	for _, phrase := range courtesy {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// DetectIntent classifies a lowercased query by keyword presence.
func DetectIntent(lower string) Intent {
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

// MatchKnowledge returns the first entry, in knowledge base order, whose
// condition name occurs in the lowercased query.
func MatchKnowledge(lower string, entries []KnowledgeEntry) (KnowledgeEntry, bool) {
	for _, e := range entries {
		cond := strings.ToLower(strings.TrimSpace(e.Condition))
		if cond != "" && strings.Contains(lower, cond) {
			return e, true
		}
	}
	return KnowledgeEntry{}, false
}

// knowledgeFields selects the part of an entry that answers intent. Missing
// fields fall back to the full entry.
func knowledgeFields(intent Intent, e KnowledgeEntry) []Field {
	switch {
	case intent == IntentDefinition && e.Definition != "":
		return []Field{{Key: "Definition", Text: e.Definition}}
	case intent == IntentTreatment && e.Treatment != "":
		return []Field{{Key: "Recommendation", Text: e.Treatment}}
	case intent == IntentPrecautions && e.Precautions != "":
		return []Field{{Key: "Precautions", Text: e.Precautions}}
	}
	var out []Field
	for _, f := range []Field{
		{Key: "Definition", Text: e.Definition},
		{Key: "Treatment", Text: e.Treatment},
		{Key: "Precautions", Text: e.Precautions},
	} {
		if f.Text != "" {
			out = append(out, f)
		}
	}
	return out
}
