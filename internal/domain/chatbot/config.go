package chatbot

import "time"

// Config drives the chatbot service.
type Config struct {
	Model         string
	Temperature   float32
	Prompt        string
	HistoryLimit  int
	HistoryWindow int
	Timeout       time.Duration
}

const (
	emptyQueryReply = "Please enter a valid query."
	greetingReply   = "Hello! 👋 How can I assist you with skin, hair, or nail concerns today?"
	courtesyReply   = "You're welcome! 😊 Let me know if you have any more questions about skin, hair, or nails."
	unavailableText = "The assistant is unavailable right now. Please try again later."
)

var (
	greetings = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	courtesy  = []string{"thanks", "thank you", "ok thanks", "ok thank you", "thanks a lot", "thanks!"}

	intentKeywords = []struct {
		intent   Intent
		keywords []string
	}{
		{IntentDefinition, []string{"what is", "define", "definition"}},
		{IntentTreatment, []string{"treat", "treatment", "how to cure", "recommend"}},
		{IntentPrecautions, []string{"precaution", "avoid", "care", "prevent"}},
	}
)
