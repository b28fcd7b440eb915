// Package transcript splits raw transcript text into bounded chunks so no
// single generation request exceeds the model's comfortable context size.
package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"videonotes-backend/internal/models"
)

// SplitByParts splits text into k contiguous, non-overlapping parts of
// roughly equal character length. Splitting happens on runes, never
// bytes, so a boundary cannot land inside a multibyte sequence. k is
// clamped to [1, character count], so no part is ever empty for
// non-empty input and the concatenation of all parts round-trips to
// the original text exactly. The last part absorbs the division
// remainder.
func SplitByParts(text string, k int) []string {
	runes := []rune(text)
	length := len(runes)

	if k < 1 {
		k = 1
	}
	if k > length && length > 0 {
		k = length
	}
	if length == 0 {
		return []string{""}
	}

	partSize := length / k
	parts := make([]string, 0, k)
	for i := 0; i < k; i++ {
		start := i * partSize
		end := (i + 1) * partSize
		if i == k-1 {
			end = length
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// timestampPattern matches [hh:]mm:ss tokens, optionally wrapped in
// square brackets, e.g. "00:45", "[1:02:03]".
var timestampPattern = regexp.MustCompile(`\[?(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\]?`)

// SegmentByTimestamps cuts text at every timestamp token. Each segment
// carries the seconds value of the timestamp that precedes it and the
// trimmed text up to the next timestamp (or end of string). Text with no
// timestamp at all becomes a single segment at time 0; empty text yields
// no segments. Never errors: malformed input degrades to the smallest
// valid output.
func SegmentByTimestamps(text string) []models.TranscriptSegment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	matches := timestampPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []models.TranscriptSegment{{Time: 0, Text: strings.TrimSpace(text)}}
	}

	segments := make([]models.TranscriptSegment, 0, len(matches))
	for i, m := range matches {
		start := m[1] // end of this timestamp token
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0] // start of the next token
		}

		seconds := secondsFromMatch(text, m)
		body := strings.TrimSpace(text[start:end])
		segments = append(segments, models.TranscriptSegment{Time: seconds, Text: body})
	}
	return segments
}

func secondsFromMatch(text string, m []int) int {
	group := func(i int) int {
		if m[2*i] < 0 {
			return 0
		}
		n, _ := strconv.Atoi(text[m[2*i]:m[2*i+1]])
		return n
	}
	return group(1)*3600 + group(2)*60 + group(3)
}

// ParseTimestamp parses "mm:ss" or "hh:mm:ss" (brackets optional) into
// whole seconds. Returns false for anything else.
func ParseTimestamp(s string) (int, bool) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// FormatTimestamp renders seconds as "[mm:ss]", or "[hh:mm:ss]" once the
// value crosses an hour.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("[%02d:%02d:%02d]", h, m, s)
	}
	return fmt.Sprintf("[%02d:%02d]", m, s)
}
