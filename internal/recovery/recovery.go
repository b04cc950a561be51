// Package recovery turns raw generation-model text into validated structured
// data. Model output is unpredictable: it may wrap JSON in prose, emit
// reasoning tags, or return partially malformed elements. Every entry point
// degrades gracefully instead of failing the request.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
)

var reasoningRe = regexp.MustCompile(`(?s)<reasoning>.*?</reasoning>`)

// StripReasoning removes delimited reasoning segments some models emit before
// their answer, plus surrounding whitespace and markdown code fences.
func StripReasoning(raw string) string {
	out := reasoningRe.ReplaceAllString(raw, "")
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// ExtractObject returns the substring from the first '{' to the last '}',
// the widest candidate for an embedded JSON object.
func ExtractObject(raw string) (string, bool) {
	return extractDelimited(raw, '{', '}')
}

// ExtractArray returns the substring from the first '[' to the last ']'.
func ExtractArray(raw string) (string, bool) {
	return extractDelimited(raw, '[', ']')
}

func extractDelimited(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// decodeElements returns the raw elements of the first JSON array found in
// the cleaned text: the text itself, the named field of a top-level object,
// or the outermost object/array substrings. Elements stay raw so a mistyped
// field in one element cannot discard its valid siblings; callers unmarshal
// and validate each element individually.
func decodeElements(cleaned, key string) []json.RawMessage {
	if cleaned == "" {
		return nil
	}
	for _, candidate := range decodeCandidates(cleaned) {
		if arr := rawArray(candidate); arr != nil {
			return arr
		}
		var obj map[string]json.RawMessage
		if json.Unmarshal([]byte(candidate), &obj) == nil {
			if arr := rawArray(string(obj[key])); arr != nil {
				return arr
			}
		}
	}
	return nil
}

func decodeCandidates(cleaned string) []string {
	out := []string{cleaned}
	if sub, ok := ExtractObject(cleaned); ok && sub != cleaned {
		out = append(out, sub)
	}
	if sub, ok := ExtractArray(cleaned); ok && sub != cleaned {
		out = append(out, sub)
	}
	return out
}

func rawArray(s string) []json.RawMessage {
	var arr []json.RawMessage
	if json.Unmarshal([]byte(s), &arr) == nil {
		return arr
	}
	return nil
}

// snippet trims s to at most max runes for use in synthesized fallbacks.
func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
