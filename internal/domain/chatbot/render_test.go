package chatbot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReply_PreservesKeyOrder(t *testing.T) {
	fields := ParseReply(`{"Precautions":["a"],"Definition":"d","Count":3,"Nested":{"k":true}}`)
	require.Len(t, fields, 4)
	require.Equal(t, "Precautions", fields[0].Key)
	require.True(t, fields[0].IsList)
	require.Equal(t, "Definition", fields[1].Key)
	require.Equal(t, "3", fields[2].Text)
	require.Equal(t, `{"k":true}`, fields[3].Text)
}

func TestParseReply_StripsCodeFence(t *testing.T) {
	fields := ParseReply("```json\n{\"Definition\": \"x\"}\n```")
	require.Equal(t, []Field{{Key: "Definition", Text: "x"}}, fields)
}

func TestParseReply_WrapsNonObjects(t *testing.T) {
	for _, raw := range []string{`["a","b"]`, `not json`, `{"a":1} trailing`} {
		fields := ParseReply(raw)
		require.Equal(t, []Field{{Key: "Response", Text: raw}}, fields, raw)
	}
}

func TestParseReply_EmptyObjectHasNoFields(t *testing.T) {
	for _, raw := range []string{`{}`, " { } ", "```json\n{}\n```"} {
		fields := ParseReply(raw)
		require.NotNil(t, fields, raw)
		require.Empty(t, fields, raw)
		require.Empty(t, RenderHTML(fields), raw)
	}
}

func TestRenderHTML(t *testing.T) {
	out := RenderHTML([]Field{
		{Key: "Definition", Text: "a & b"},
		{Key: "RedFlags", Items: []string{"<fever>"}, IsList: true},
	})
	require.Equal(t, "<strong>Definition:</strong> a &amp; b<br><strong>RedFlags:</strong><ul><li>&lt;fever&gt;</li></ul>", out)
}

func TestDetectIntent(t *testing.T) {
	require.Equal(t, IntentDefinition, DetectIntent("what is eczema"))
	require.Equal(t, IntentTreatment, DetectIntent("can you recommend something"))
	require.Equal(t, IntentPrecautions, DetectIntent("skin care tips"))
	require.Equal(t, IntentGeneral, DetectIntent("eczema"))
	// definition keywords win over treatment keywords
	require.Equal(t, IntentDefinition, DetectIntent("what is the treatment"))
}
