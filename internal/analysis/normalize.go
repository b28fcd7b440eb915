// Package analysis recovers a structured AnalysisResult from raw model
// output and merges per-chunk results into one document.
package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"videonotes-backend/internal/models"
)

var fencePattern = regexp.MustCompile("```[a-zA-Z]*")

// Normalize extracts the JSON object embedded in raw model output,
// repairs common artifacts, and returns a well-formed AnalysisResult
// with all nine section keys present and main_subject as a string.
//
// Candidate strategy: a single greedy candidate spanning the first '{'
// through the last '}' of the fence-stripped text. Model responses carry
// at most one object; minimal-span scanning would only ever try inner
// fragments of it first.
//
// On failure the result is zero-valued and the Failure kind tells the
// caller whether no candidate existed (JSONNotFound) or a candidate was
// found but rejected (JSONParse). Never panics, never returns both.
func Normalize(raw string) (models.AnalysisResult, *Failure) {
	var zero models.AnalysisResult

	if strings.TrimSpace(raw) == "" {
		return zero, Failuref(FailureEmptyResponse, "model returned no text")
	}

	candidate, fail := extractCandidate(raw)
	if fail != nil {
		return zero, fail
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return zero, NewFailure(FailureJSONParse, err)
	}

	result := buildResult(canonicalizeKeys(fields))
	return result, nil
}

// extractCandidate locates and repairs the object-shaped substring to be
// parsed. Returns a JSONNotFound failure when nothing brace-delimited
// exists in the text.
func extractCandidate(raw string) (string, *Failure) {
	text := stripFences(raw)
	text = stripProseMarkers(text)

	start := strings.Index(text, "{")
	if start < 0 {
		return "", Failuref(FailureJSONNotFound, "no JSON object in response")
	}
	candidate := text[start:]

	// Truncation repair: discard dangling content after the last '}'.
	// A candidate with no closing brace at all is not object-shaped.
	if !strings.HasSuffix(strings.TrimSpace(candidate), "}") {
		last := strings.LastIndex(candidate, "}")
		if last < 0 {
			return "", Failuref(FailureJSONNotFound, "unterminated JSON object in response")
		}
		candidate = candidate[:last+1]
	}

	return candidate, nil
}

// stripFences removes markdown code-fence delimiters (with optional
// language hints) wrapping the JSON. Only text outside the outermost
// braces is touched, so a literal ``` inside a string value survives.
func stripFences(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return fencePattern.ReplaceAllString(s, "")
	}
	prefix := fencePattern.ReplaceAllString(s[:start], "")

	end := strings.LastIndex(s, "}")
	if end < start {
		return prefix + s[start:]
	}
	suffix := fencePattern.ReplaceAllString(s[end+1:], "")
	return prefix + s[start:end+1] + suffix
}

// stripProseMarkers drops leading/trailing markdown bullet and bold
// markers the model sometimes wraps around the object. Markers inside
// string values are untouched because only the candidate's outside is
// trimmed.
func stripProseMarkers(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSpace(strings.TrimPrefix(s, "**"))
		trimmed = strings.TrimLeft(trimmed, "*-• \t")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.TrimRight(s, "*-• \t\n")
	return s
}

// canonicalizeKeys converts every top-level key from camelCase or
// PascalCase to snake_case: an underscore is inserted before each
// uppercase letter that is not the first character, then the whole key
// is lowercased. Applying it to an already-snake_case key is a no-op.
func canonicalizeKeys(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		out[SnakeCase(k)] = v
	}
	return out
}

// SnakeCase is the key canonicalization rule. It is idempotent.
func SnakeCase(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// buildResult decodes the canonicalized fields into an AnalysisResult,
// backfilling every absent section with an empty slice and main_subject
// with an empty string. A section present with a non-list value is
// wrapped in a one-element slice rather than dropped.
func buildResult(fields map[string]json.RawMessage) models.AnalysisResult {
	var result models.AnalysisResult

	if raw, ok := fields["main_subject"]; ok {
		result.MainSubject = decodeSubject(raw)
	}

	for _, key := range models.SectionKeys {
		sec := result.Section(key)
		raw, ok := fields[key]
		if !ok {
			*sec = []models.Item{}
			continue
		}
		*sec = decodeItems(raw)
	}

	return result
}

func decodeSubject(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// A list where a string belongs: adopt the first string element.
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func decodeItems(raw json.RawMessage) []models.Item {
	var items []models.Item
	if err := json.Unmarshal(raw, &items); err == nil {
		if items == nil {
			return []models.Item{}
		}
		return items
	}

	// Not a sequence: wrap the single value instead of dropping it.
	var single models.Item
	if err := json.Unmarshal(raw, &single); err == nil {
		return []models.Item{single}
	}
	return []models.Item{}
}
