package chatbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/dermaai/internal/infra/llm/groq"
)

type memoryHistory struct {
	mu    sync.Mutex
	turns map[string][]ChatTurn
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{turns: make(map[string][]ChatTurn)}
}

func (m *memoryHistory) AppendTurn(_ context.Context, sessionID string, turn ChatTurn, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := append(m.turns[sessionID], turn)
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	m.turns[sessionID] = turns
	return nil
}

func (m *memoryHistory) Turns(_ context.Context, sessionID string) ([]ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatTurn(nil), m.turns[sessionID]...), nil
}

func (m *memoryHistory) ClearTurns(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, sessionID)
	return nil
}

type staticKB []KnowledgeEntry

func (kb staticKB) Entries(context.Context) ([]KnowledgeEntry, error) {
	return kb, nil
}

type stubChatClient struct {
	calls    int
	prompt   string
	request  groq.CompletionRequest
	createFn func(req groq.CompletionRequest) (groq.Completion, error)
}

func (s *stubChatClient) Complete(ctx context.Context, req groq.CompletionRequest) (groq.Completion, error) {
	s.calls++
	s.request = req
	if len(req.Messages) > 0 {
		s.prompt = req.Messages[0].Content
	}
	return s.createFn(req)
}

func replyWith(content string) func(groq.CompletionRequest) (groq.Completion, error) {
	return func(groq.CompletionRequest) (groq.Completion, error) {
		return groq.Completion{
			Choices: []groq.Choice{{Message: groq.Message{Role: "assistant", Content: content}}},
			Usage:   groq.Usage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
		}, nil
	}
}

var testKB = staticKB{
	{Category: "skin", Condition: "acne", Definition: "Acne is clogged follicles.", Treatment: "• Cleanse twice daily.", Precautions: "• Do not pick."},
	{Category: "skin", Condition: "eczema", Definition: "Eczema is itchy skin.", Treatment: "• Moisturize.", Precautions: "• Avoid hot water."},
	{Category: "skin", Condition: "psoriasis", Definition: "Psoriasis is autoimmune.", Treatment: "• Light therapy.", Precautions: "• Follow up."},
}

const testPrompt = "History:\n{messages}\nUser Query: {query}\nContext Info (if relevant): {context}"

func newTestService(client ChatClient) (Service, *memoryHistory) {
	store := newMemoryHistory()
	svc := NewService(Config{
		Model:         "llama-3.1-8b-instant",
		Temperature:   0.7,
		Prompt:        testPrompt,
		HistoryLimit:  5,
		HistoryWindow: 6,
		Timeout:       time.Second,
	}, testKB, store, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store
}

func TestReply_GreetingIsExactAndCaseInsensitive(t *testing.T) {
	client := &stubChatClient{createFn: replyWith(`{}`)}
	svc, _ := newTestService(client)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "  HI "})
	require.NoError(t, err)
	require.Equal(t, greetingReply, resp.Reply)
	require.Equal(t, IntentGreeting, resp.Intent)
	require.Zero(t, client.calls)

	resp, err = svc.Reply(context.Background(), "s1", Request{Message: "hi, what is acne"})
	require.NoError(t, err)
	require.NotEqual(t, greetingReply, resp.Reply)
}

func TestReply_CourtesySubstring(t *testing.T) {
	svc, _ := newTestService(nil)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "Ok thank you doctor"})
	require.NoError(t, err)
	require.Equal(t, courtesyReply, resp.Reply)
	require.Equal(t, SourceCanned, resp.Source)
}

func TestReply_KnowledgeBaseDefinitionOnly(t *testing.T) {
	client := &stubChatClient{createFn: replyWith(`{}`)}
	svc, _ := newTestService(client)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "What is acne?"})
	require.NoError(t, err)
	require.Equal(t, "<strong>Definition:</strong> Acne is clogged follicles.<br>", resp.Reply)
	require.Equal(t, IntentDefinition, resp.Intent)
	require.Equal(t, SourceKnowledgeBase, resp.Source)
	require.Equal(t, "acne", resp.Matched)
	require.Zero(t, client.calls)
}

func TestReply_KnowledgeBaseIntents(t *testing.T) {
	svc, _ := newTestService(nil)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "how to treat eczema"})
	require.NoError(t, err)
	require.Equal(t, "<strong>Recommendation:</strong> • Moisturize.<br>", resp.Reply)

	resp, err = svc.Reply(context.Background(), "s1", Request{Message: "how do I prevent psoriasis flares"})
	require.NoError(t, err)
	require.Equal(t, "<strong>Precautions:</strong> • Follow up.<br>", resp.Reply)

	resp, err = svc.Reply(context.Background(), "s1", Request{Message: "tell me about psoriasis"})
	require.NoError(t, err)
	require.Equal(t, IntentGeneral, resp.Intent)
	require.Equal(t,
		"<strong>Definition:</strong> Psoriasis is autoimmune.<br>"+
			"<strong>Treatment:</strong> • Light therapy.<br>"+
			"<strong>Precautions:</strong> • Follow up.<br>",
		resp.Reply)
}

func TestReply_FirstEntryInKnowledgeOrderWins(t *testing.T) {
	svc, _ := newTestService(nil)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "define eczema vs acne"})
	require.NoError(t, err)
	require.Equal(t, "acne", resp.Matched)
}

func TestReply_LLMFallbackWithOrderedJSON(t *testing.T) {
	client := &stubChatClient{createFn: replyWith(`{"Definition":"Rosacea is facial redness.","Recommendation":["Gentle cleanser","SPF"],"RedFlags":["Eye pain"]}`)}
	svc, _ := newTestService(client)

	_, err := svc.Reply(context.Background(), "s1", Request{Message: "hello"})
	require.NoError(t, err)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "What causes rosacea"})
	require.NoError(t, err)
	require.Equal(t, SourceLLM, resp.Source)
	require.Equal(t,
		"<strong>Definition:</strong> Rosacea is facial redness.<br>"+
			"<strong>Recommendation:</strong><ul><li>Gentle cleanser</li><li>SPF</li></ul>"+
			"<strong>RedFlags:</strong><ul><li>Eye pain</li></ul>",
		resp.Reply)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 50, resp.Usage.TotalTokens)

	require.Equal(t, 1, client.calls)
	require.Equal(t, "llama-3.1-8b-instant", client.request.Model)
	require.Contains(t, client.prompt, "hello\n"+greetingReply+"\nWhat causes rosacea")
	require.Contains(t, client.prompt, "User Query: What causes rosacea")
	require.Contains(t, client.prompt, "Context Info (if relevant): None")
}

func TestReply_NonJSONIsWrapped(t *testing.T) {
	client := &stubChatClient{createFn: replyWith("Rosacea is <common>.")}
	svc, _ := newTestService(client)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "rosacea?"})
	require.NoError(t, err)
	require.Equal(t, "<strong>Response:</strong> Rosacea is &lt;common&gt;.<br>", resp.Reply)
}

func TestReply_UpstreamFailureGivesLabeledFallback(t *testing.T) {
	client := &stubChatClient{createFn: func(groq.CompletionRequest) (groq.Completion, error) {
		return groq.Completion{}, errors.New("dial tcp: timeout")
	}}
	svc, store := newTestService(client)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "rosacea?"})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, resp.Source)
	require.Contains(t, resp.Reply, unavailableText)

	turns, _ := store.Turns(context.Background(), "s1")
	require.Len(t, turns, 2)
	require.Equal(t, RoleBot, turns[1].Role)
}

func TestReply_NoClientConfigured(t *testing.T) {
	svc, _ := newTestService(nil)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "rosacea?"})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, resp.Source)
}

func TestReply_EmptyMessage(t *testing.T) {
	svc, store := newTestService(nil)

	resp, err := svc.Reply(context.Background(), "s1", Request{Message: "   "})
	require.NoError(t, err)
	require.Equal(t, emptyQueryReply, resp.Reply)
	turns, _ := store.Turns(context.Background(), "s1")
	require.Empty(t, turns)

	_, err = svc.Reply(context.Background(), "", Request{Message: "hi"})
	require.Error(t, err)
}

func TestReply_RollingHistoryKeepsFive(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := svc.Reply(ctx, "s1", Request{Message: strings.Repeat("x", i+1) + " thanks"})
		require.NoError(t, err)
	}

	turns, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	require.Equal(t, RoleBot, turns[4].Role)
	require.Equal(t, "xxxxxx thanks", turns[3].Content)

	require.NoError(t, svc.Reset(ctx, "s1"))
	turns, err = svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, turns)
}
