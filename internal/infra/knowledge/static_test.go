package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefault_KeepsDeclaredOrder(t *testing.T) {
	kb, err := NewDefault()
	require.NoError(t, err)

	entries, err := kb.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 9)

	var names []string
	for _, e := range entries {
		names = append(names, e.Condition)
	}
	require.Equal(t, []string{
		"acne", "eczema", "psoriasis",
		"dandruff", "hairfall", "alopecia",
		"fungal", "brittle", "ingrown",
	}, names)
	require.Equal(t, "skin", entries[0].Category)
	require.Equal(t, "nails", entries[8].Category)
	require.Contains(t, entries[0].Treatment, "• Wash your face twice daily with a mild cleanser.\n• Avoid")
}

func TestEntries_ReturnsCopy(t *testing.T) {
	kb, err := NewDefault()
	require.NoError(t, err)

	first, _ := kb.Entries(context.Background())
	first[0].Definition = "changed"
	second, _ := kb.Entries(context.Background())
	require.NotEqual(t, "changed", second[0].Definition)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("categories: []"))
	require.Error(t, err)

	_, err = Parse([]byte(`
categories:
  - name: skin
    conditions:
      - definition: no name
`))
	require.ErrorContains(t, err, "without a condition")

	_, err = Parse([]byte(`
categories:
  - name: skin
    conditions:
      - condition: Acne
  - name: other
    conditions:
      - condition: acne
`))
	require.ErrorContains(t, err, "declared twice")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: skin
    conditions:
      - condition: Rosacea
        definition: Facial redness.
`), 0o600))

	kb, err := LoadFile(path)
	require.NoError(t, err)
	entries, err := kb.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "rosacea", entries[0].Condition)
	require.Equal(t, "skin", entries[0].Category)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
