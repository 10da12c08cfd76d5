package topics

import (
	"sort"
	"strings"
)

// SearchResult is one ranked fuzzy-search hit.
type SearchResult struct {
	Path  string `json:"path"`
	ID    NodeID `json:"-"`
	Score int    `json:"score"`
}

// Search performs case-insensitive subsequence matching of query against
// full topic paths. A lower score is a tighter match (the span the query
// characters occupy in the path); ties break by shorter path, then lexical
// order. Limit <= 0 returns all matches. The result is a finite, restartable
// snapshot: calling Search again re-runs the ranking.
func (ix *Index) Search(query string, limit int) []SearchResult {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)

	var results []SearchResult
	for id := range ix.nodes {
		if !ix.nodes[id].isTopic {
			continue
		}
		path := ix.Path(NodeID(id))
		span, ok := subsequenceSpan(strings.ToLower(path), q)
		if !ok {
			continue
		}
		results = append(results, SearchResult{Path: path, ID: NodeID(id), Score: span})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		if len(results[i].Path) != len(results[j].Path) {
			return len(results[i].Path) < len(results[j].Path)
		}
		return results[i].Path < results[j].Path
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// subsequenceSpan reports whether query is a subsequence of s and the width
// of the window the match occupies. A contiguous substring match scores
// len(query); scattered matches score wider.
func subsequenceSpan(s, query string) (int, bool) {
	first, last := -1, -1
	qi := 0
	for si := 0; si < len(s) && qi < len(query); si++ {
		if s[si] == query[qi] {
			if first < 0 {
				first = si
			}
			last = si
			qi++
		}
	}
	if qi < len(query) {
		return 0, false
	}
	return last - first + 1, true
}
