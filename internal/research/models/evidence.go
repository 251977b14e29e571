package models

import "sort"

// EvidenceItem is one web search hit.
type EvidenceItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TopEvidence returns up to k items ordered by descending score. Ties keep
// their original order. The input is not modified.
func TopEvidence(items []EvidenceItem, k int) []EvidenceItem {
	ranked := append([]EvidenceItem(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
