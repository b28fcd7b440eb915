package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"videonotes-backend/internal/models"
)

// Merge combines per-chunk results, in chunk order, into one result
// suitable for rendering.
//
// Subject: the first non-empty (trimmed) main_subject wins; later ones
// are ignored. Sections: items are concatenated preserving both chunk
// order and within-chunk order, then deduplicated per section with a
// stable first-occurrence-wins pass. An empty input yields the
// empty-initialized result, not an error.
func Merge(results []models.AnalysisResult) models.AnalysisResult {
	var combined models.AnalysisResult
	combined.EnsureSections()

	for _, res := range results {
		if combined.MainSubject == "" {
			if subject := strings.TrimSpace(res.MainSubject); subject != "" {
				combined.MainSubject = subject
			}
		}

		for _, key := range models.SectionKeys {
			dst := combined.Section(key)
			*dst = append(*dst, *res.Section(key)...)
		}
	}

	for _, key := range models.SectionKeys {
		sec := combined.Section(key)
		*sec = dedupe(*sec)
	}

	return combined
}

func dedupe(items []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		key := canonicalKey(it)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// canonicalKey is the dedup identity: a deterministic serialization of
// the full item. Field order is fixed by the Item type, so two items
// whose source JSON listed keys in different orders still collide.
func canonicalKey(it models.Item) string {
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Sprintf("%+v", it)
	}
	return string(b)
}
