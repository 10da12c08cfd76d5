package topics

import (
	"strings"

	"github.com/frahlg/mqtop/errors"
)

// Wildcard tokens: '+' matches exactly one path segment, '#' matches zero or
// more trailing segments and is only valid as the final segment.
const (
	SingleLevel = "+"
	MultiLevel  = "#"
)

// ValidatePattern checks wildcard placement rules.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errors.WrapInvalid(errors.ErrInvalidPattern, "topics", "ValidatePattern", "empty pattern")
	}
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		switch {
		case seg == MultiLevel:
			if i != len(segments)-1 {
				return errors.WrapInvalid(errors.ErrInvalidPattern, "topics", "ValidatePattern",
					"'#' must be the final segment")
			}
		case seg == SingleLevel:
			// standalone '+' is fine anywhere
		case strings.ContainsAny(seg, "+#"):
			return errors.WrapInvalid(errors.ErrInvalidPattern, "topics", "ValidatePattern",
				"wildcard must occupy a whole segment")
		}
	}
	return nil
}

// Match reports whether a concrete topic matches a wildcard pattern.
// "sensors/#" matches "sensors" itself as well as every descendant.
func Match(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(topic, "/"))
}

func matchSegments(pattern, topic []string) bool {
	pi, ti := 0, 0
	for pi < len(pattern) {
		seg := pattern[pi]
		if seg == MultiLevel {
			// zero or more trailing segments, including none
			return true
		}
		if ti >= len(topic) {
			return false
		}
		if seg != SingleLevel && seg != topic[ti] {
			return false
		}
		pi++
		ti++
	}
	return ti == len(topic)
}

// MatchFilter evaluates a wildcard pattern against the index, returning the
// ids of matching topic nodes. The walk branches only where the pattern
// allows, so cost is bounded by the matched subtree, not the full topic set.
func (ix *Index) MatchFilter(pattern string) ([]NodeID, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	var out []NodeID
	ix.matchWalk(RootID, strings.Split(pattern, "/"), 0, &out)
	return out, nil
}

// MatchFilterPaths is MatchFilter resolved to topic strings.
func (ix *Index) MatchFilterPaths(pattern string) ([]string, error) {
	ids, err := ix.MatchFilter(pattern)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = ix.Path(id)
	}
	return paths, nil
}

func (ix *Index) matchWalk(id NodeID, pattern []string, pi int, out *[]NodeID) {
	if pi == len(pattern) {
		if ix.nodes[id].isTopic {
			*out = append(*out, id)
		}
		return
	}

	seg := pattern[pi]
	if seg == MultiLevel {
		// '#' short-circuits: the current node and its whole subtree match
		ix.collectSubtree(id, out)
		return
	}

	if seg == SingleLevel {
		for _, child := range ix.nodes[id].children {
			ix.matchWalk(child, pattern, pi+1, out)
		}
		return
	}

	if child, ok := ix.nodes[id].children[seg]; ok {
		ix.matchWalk(child, pattern, pi+1, out)
	}
}

func (ix *Index) collectSubtree(id NodeID, out *[]NodeID) {
	if ix.nodes[id].isTopic {
		*out = append(*out, id)
	}
	for _, child := range ix.nodes[id].children {
		ix.collectSubtree(child, out)
	}
}
