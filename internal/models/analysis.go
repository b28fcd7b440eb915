package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The nine section keys of a study guide, in render order.
var SectionKeys = []string{
	"topic_breakdown",
	"key_vocabulary",
	"formulas_and_principles",
	"teacher_insights",
	"exam_focus_points",
	"common_mistakes_explained",
	"key_points",
	"short_tricks",
	"must_remembers",
}

// TranscriptSegment is one timestamp-bounded slice of a transcript.
// Time is the offset in seconds of the timestamp preceding the text.
type TranscriptSegment struct {
	Time int    `json:"time"`
	Text string `json:"text"`
}

// Item is one extracted fact, definition, or point. The model may label
// its content with any of several synonymous keys ("detail", "point",
// "trick", ...); UnmarshalJSON resolves those into the single Content
// field so downstream code never probes alternate keys.
//
// For topic_breakdown entries, Topic and Details are set instead of (or
// in addition to) Content.
type Item struct {
	Content string `json:"content,omitempty"`
	Time    *int   `json:"time,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Details []Item `json:"details,omitempty"`
}

// contentSynonyms is the fixed priority order for resolving an item's
// content text. First non-empty wins.
var contentSynonyms = []string{
	"detail", "explanation", "point", "text", "definition",
	"formula_or_principle", "insight", "mistake", "trick", "fact",
	"content",
}

func (it *Item) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*it = Item{}
		return nil
	}

	// Models sometimes emit bare strings instead of objects.
	if trimmed[0] != '{' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*it = Item{Content: s}
			return nil
		}
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*it = Item{Content: n.String()}
			return nil
		}
		return fmt.Errorf("item must be an object or string, got %s", trimmed[:min(len(trimmed), 20)])
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Item{}
	for _, key := range contentSynonyms {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			// Non-string content (a number, a nested value): stringify.
			s = strings.Trim(string(v), `"`)
		}
		if strings.TrimSpace(s) != "" {
			out.Content = s
			break
		}
	}

	if v, ok := raw["topic"]; ok {
		json.Unmarshal(v, &out.Topic)
	}
	if v, ok := raw["details"]; ok {
		json.Unmarshal(v, &out.Details)
	}
	if v, ok := raw["time"]; ok {
		if sec, ok := parseSeconds(v); ok {
			out.Time = &sec
		}
	}

	*it = out
	return nil
}

// parseSeconds accepts a JSON number, a digit string, or a clock-style
// "hh:mm:ss" / "mm:ss" string, and returns whole non-negative seconds.
func parseSeconds(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 {
			return 0, false
		}
		return int(f), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(strings.TrimSuffix(s, "s")); err == nil && n >= 0 {
		return n, true
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// AnalysisResult is the normalized structured output for one chunk, or
// for the final merged document. All nine section slices are non-nil
// after normalization; MainSubject is always a plain string.
type AnalysisResult struct {
	MainSubject             string `json:"main_subject"`
	TopicBreakdown          []Item `json:"topic_breakdown"`
	KeyVocabulary           []Item `json:"key_vocabulary"`
	FormulasAndPrinciples   []Item `json:"formulas_and_principles"`
	TeacherInsights         []Item `json:"teacher_insights"`
	ExamFocusPoints         []Item `json:"exam_focus_points"`
	CommonMistakesExplained []Item `json:"common_mistakes_explained"`
	KeyPoints               []Item `json:"key_points"`
	ShortTricks             []Item `json:"short_tricks"`
	MustRemembers           []Item `json:"must_remembers"`
}

// Section returns a pointer to the named section slice, or nil for an
// unrecognized key.
func (r *AnalysisResult) Section(key string) *[]Item {
	switch key {
	case "topic_breakdown":
		return &r.TopicBreakdown
	case "key_vocabulary":
		return &r.KeyVocabulary
	case "formulas_and_principles":
		return &r.FormulasAndPrinciples
	case "teacher_insights":
		return &r.TeacherInsights
	case "exam_focus_points":
		return &r.ExamFocusPoints
	case "common_mistakes_explained":
		return &r.CommonMistakesExplained
	case "key_points":
		return &r.KeyPoints
	case "short_tricks":
		return &r.ShortTricks
	case "must_remembers":
		return &r.MustRemembers
	}
	return nil
}

// EnsureSections replaces any nil section slice with an empty one so the
// JSON wire shape always carries all nine keys as arrays.
func (r *AnalysisResult) EnsureSections() {
	for _, key := range SectionKeys {
		sec := r.Section(key)
		if *sec == nil {
			*sec = []Item{}
		}
	}
}

// SectionTitle converts a section key to its display heading, e.g.
// "key_points" -> "Key Points".
func SectionTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
