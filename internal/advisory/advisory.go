package advisory

import (
	"encoding/json"
	"strings"

	"github.com/botwatch/botwatch-api/internal/types"
)

// Block roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block is one display unit of an advisory transcript.
type Block struct {
	Role    string `json:"role"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Record is the API representation of one advisory row: the stored columns
// plus the derived response text and ordered transcript.
type Record struct {
	types.AIResponse
	Symbols      []string `json:"symbols"`
	ResponseText string   `json:"response_text"`
	ChatBlocks   []Block  `json:"chat_blocks"`
}

// Normalize builds the API record for one stored advisory row.
func Normalize(row types.AIResponse) Record {
	payload := ParsePayload(row.FullResponse)
	text := ResponseText(&row, payload)
	return Record{
		AIResponse:   row,
		Symbols:      splitSymbols(row.Symbols),
		ResponseText: text,
		ChatBlocks:   Blocks(&row, payload, text),
	}
}

// ResponseText derives the narrative text for a record: the reasoning column
// first, then the payload's analysis or reasoning keys, then a pretty dump
// of the payload, then the raw stored text.
func ResponseText(row *types.AIResponse, payload *Payload) string {
	if text := strings.TrimSpace(row.Reasoning); text != "" {
		return text
	}
	if payload.Len() > 0 {
		if text, ok := payload.StringValue("analysis"); ok {
			return text
		}
		if text, ok := payload.StringValue("reasoning"); ok {
			return text
		}
		return payload.Pretty()
	}
	if text := strings.TrimSpace(row.FullResponse); text != "" {
		return text
	}
	return ""
}

// Blocks builds the ordered transcript: the user's prompt first, then each
// payload field in stored order, then the synthesized narrative. The
// analysis field is suppressed as a standalone block once it has become the
// response text, so the same content is never shown twice. An empty result
// collapses into a single fallback block.
func Blocks(row *types.AIResponse, payload *Payload, responseText string) []Block {
	var blocks []Block

	if prompt := strings.TrimSpace(row.Prompt); prompt != "" {
		blocks = append(blocks, Block{Role: RoleUser, Title: "USER_PROMPT", Content: prompt})
	}

	for _, field := range payload.Fields() {
		if emptyValue(field.Value) {
			continue
		}
		if field.Key == "analysis" && responseText != "" {
			continue
		}
		blocks = append(blocks, Block{
			Role:    RoleAssistant,
			Title:   blockTitle(field.Key),
			Content: formatValue(field.Value),
		})
	}

	if text := strings.TrimSpace(responseText); text != "" {
		blocks = append(blocks, Block{Role: RoleAssistant, Title: "TRADING_DECISIONS", Content: text})
	}

	if len(blocks) == 0 {
		content := responseText
		if content == "" {
			content = "No data"
		}
		blocks = append(blocks, Block{Role: RoleAssistant, Title: "AI_RESPONSE", Content: content})
	}

	return blocks
}

func blockTitle(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

func emptyValue(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// formatValue renders scalars as trimmed strings and structured values as
// indented JSON.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any, []any:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(pretty)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func splitSymbols(raw string) []string {
	symbols := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
