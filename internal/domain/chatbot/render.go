package chatbot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
)

// RenderHTML turns structured fields into the display fragment. Scalars render
// as "<strong>Key:</strong> text<br>", lists as a <ul>. Content is escaped.
func RenderHTML(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		key := html.EscapeString(f.Key)
		if f.IsList {
			b.WriteString("<strong>" + key + ":</strong><ul>")
			for _, item := range f.Items {
				b.WriteString("<li>" + html.EscapeString(item) + "</li>")
			}
			b.WriteString("</ul>")
			continue
		}
		b.WriteString("<strong>" + key + ":</strong> " + html.EscapeString(f.Text) + "<br>")
	}
	return b.String()
}

// ParseReply reads an LLM answer as an ordered JSON object. Anything else is
// wrapped under a single "Response" field. An empty object yields no fields.
func ParseReply(raw string) []Field {
	fields, err := decodeOrderedObject(stripCodeFence(raw))
	if err != nil {
		return []Field{{Key: "Response", Text: strings.TrimSpace(raw)}}
	}
	if fields == nil {
		return []Field{}
	}
	return fields
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func decodeOrderedObject(s string) ([]Field, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("reply is not a json object")
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("unexpected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		field, err := fieldFromJSON(key, value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json object")
	}
	return fields, nil
}

func fieldFromJSON(key string, raw json.RawMessage) (Field, error) {
	value, err := decodeValue(raw)
	if err != nil {
		return Field{}, err
	}
	if list, ok := value.([]any); ok {
		items := make([]string, 0, len(list))
		for _, item := range list {
			items = append(items, valueString(item))
		}
		return Field{Key: key, Items: items, IsList: true}, nil
	}
	return Field{Key: key, Text: valueString(value)}, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
