package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
)

//go:embed default_kb.yaml
var defaultDocument []byte

type document struct {
	Categories []struct {
		Name       string                   `yaml:"name"`
		Conditions []chatbot.KnowledgeEntry `yaml:"conditions"`
	} `yaml:"categories"`
}

// Parse decodes a knowledge base document, keeping declaration order.
func Parse(data []byte) ([]chatbot.KnowledgeEntry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	var entries []chatbot.KnowledgeEntry
	seen := make(map[string]struct{})
	for _, cat := range doc.Categories {
		for _, entry := range cat.Conditions {
			name := strings.ToLower(strings.TrimSpace(entry.Condition))
			if name == "" {
				return nil, fmt.Errorf("category %q has an entry without a condition", cat.Name)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("condition %q declared twice", name)
			}
			seen[name] = struct{}{}
			entry.Category = cat.Name
			entry.Condition = name
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("knowledge base is empty")
	}
	return entries, nil
}

// Static serves a fixed, ordered list of entries.
type Static struct {
	entries []chatbot.KnowledgeEntry
}

// NewStatic wraps already-parsed entries.
func NewStatic(entries []chatbot.KnowledgeEntry) *Static {
	return &Static{entries: append([]chatbot.KnowledgeEntry(nil), entries...)}
}

// NewDefault returns the embedded knowledge base.
func NewDefault() (*Static, error) {
	entries, err := Parse(defaultDocument)
	if err != nil {
		return nil, err
	}
	return NewStatic(entries), nil
}

// LoadFile reads a knowledge base document from disk.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewStatic(entries), nil
}

// Entries implements chatbot.KnowledgeBase.
func (s *Static) Entries(context.Context) ([]chatbot.KnowledgeEntry, error) {
	return append([]chatbot.KnowledgeEntry(nil), s.entries...), nil
}

var _ chatbot.KnowledgeBase = (*Static)(nil)
