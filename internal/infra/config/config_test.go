package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
session:
  historyLimit: 3
classifier:
  nail:
    normalization: unit
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, 3, cfg.Session.HistoryLimit)
	require.Equal(t, "unit", cfg.Classifier.Nail.Normalization)
	require.Equal(t, []string{"healthy", "onychomycosis", "psoriasis"}, cfg.Classifier.Nail.Labels)
	require.Equal(t, "gem-key", cfg.Gemini.APIKey)
	require.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	require.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Session.HistoryLimit = 0
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Classifier.Skin.Labels = nil
	require.ErrorContains(t, cfg.Validate(), "classifier.skin.labels")

	cfg = defaultConfig()
	cfg.Chatbot.Prompt = "no placeholder"
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Session.Valkey.Enabled = true
	require.Error(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
