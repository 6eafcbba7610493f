// Package advisory turns loosely-structured stored advisory records into
// ordered display transcripts. The raw payload column holds whatever JSON
// object the model produced, so parsing must tolerate missing, extra and
// oddly-typed keys.
package advisory

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Field is one key/value pair of the raw payload, in stored order.
type Field struct {
	Key   string
	Value any
	raw   json.RawMessage
}

// Payload is the parsed raw payload with insertion order preserved.
// encoding/json maps lose key order, so the object is walked token by token.
type Payload struct {
	fields []Field
}

// ParsePayload parses the stored payload column. Anything other than a
// well-formed JSON object yields an empty payload; the raw text then still
// reaches the reader through the response-text fallback chain.
func ParsePayload(raw string) *Payload {
	payload := &Payload{}
	if strings.TrimSpace(raw) == "" {
		return payload
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return payload
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return payload
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return &Payload{}
		}
		key, ok := keyTok.(string)
		if !ok {
			return &Payload{}
		}

		var rawValue json.RawMessage
		if err := dec.Decode(&rawValue); err != nil {
			return &Payload{}
		}
		var value any
		if err := json.Unmarshal(rawValue, &value); err != nil {
			return &Payload{}
		}
		fields = append(fields, Field{Key: key, Value: value, raw: rawValue})
	}

	payload.fields = fields
	return payload
}

// Fields returns the payload entries in stored order.
func (p *Payload) Fields() []Field { return p.fields }

// Len returns the number of entries.
func (p *Payload) Len() int { return len(p.fields) }

// StringValue returns the trimmed string stored under key, if the key holds
// a non-empty string.
func (p *Payload) StringValue(key string) (string, bool) {
	for _, f := range p.fields {
		if f.Key != key {
			continue
		}
		if s, ok := f.Value.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
		return "", false
	}
	return "", false
}

// Pretty renders the whole payload as an indented JSON object, keeping the
// stored key order.
func (p *Payload) Pretty() string {
	if len(p.fields) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range p.fields {
		b.WriteString("  ")
		key, _ := json.Marshal(f.Key)
		b.Write(key)
		b.WriteString(": ")
		b.WriteString(indentRaw(f.raw))
		if i < len(p.fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func indentRaw(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
