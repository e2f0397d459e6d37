package chatbot

import "strings"

// noContext is what the template receives when no knowledge entry applies.
// Queries that match an entry are answered locally and never reach the LLM.
const noContext = "None"

func buildPrompt(template string, history []ChatTurn, window int, query string) string {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, turn.Content)
	}
	return strings.NewReplacer(
		"{messages}", strings.Join(lines, "\n"),
		"{query}", query,
		"{context}", noContext,
	).Replace(template)
}
