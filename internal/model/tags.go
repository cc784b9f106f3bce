package model

import (
	"strconv"
	"strings"
)

// TagCounts is a multiset of detection tags: tag name to a positive count.
// Names preserve their stored case but are always compared case-insensitively,
// and query matching is by substring, so "crow" matches a stored "Crows".
// No entry ever holds a count <= 0; an absent tag means zero.
type TagCounts map[string]int

// MergeOp selects the direction of a tag-count merge.
type MergeOp int

const (
	MergeSubtract MergeOp = 0
	MergeAdd      MergeOp = 1
)

// Merge applies delta to the multiset. MergeAdd sums counts, creating entries
// as needed. MergeSubtract decrements and removes any entry that reaches zero
// or below; a zero or negative count is never stored.
func (t TagCounts) Merge(delta TagCounts, op MergeOp) {
	for tag, count := range delta {
		if op == MergeAdd {
			t[tag] += count
			continue
		}
		if existing, ok := t[tag]; ok {
			if remaining := existing - count; remaining > 0 {
				t[tag] = remaining
			} else {
				delete(t, tag)
			}
		}
	}
}

// Clone returns a copy of the multiset. Clone of nil is an empty multiset.
func (t TagCounts) Clone() TagCounts {
	out := make(TagCounts, len(t))
	for tag, count := range t {
		out[tag] = count
	}
	return out
}

// SumMatching sums the counts of every entry whose name contains query as a
// case-insensitive substring.
func (t TagCounts) SumMatching(query string) int {
	query = strings.ToLower(query)
	total := 0
	for name, count := range t {
		if strings.Contains(strings.ToLower(name), query) {
			total += count
		}
	}
	return total
}

// MatchesAll reports whether every (tag, minCount) threshold in query is met,
// where a tag's effective count is SumMatching of it.
func (t TagCounts) MatchesAll(query map[string]int) bool {
	for tag, minCount := range query {
		if t.SumMatching(tag) < minCount {
			return false
		}
	}
	return true
}

// MatchesAny reports whether at least one entry name contains at least one of
// the query tags as a case-insensitive substring.
func (t TagCounts) MatchesAny(queryTags []string) bool {
	for _, q := range queryTags {
		q = strings.ToLower(q)
		for name := range t {
			if strings.Contains(strings.ToLower(name), q) {
				return true
			}
		}
	}
	return false
}

// ContainsAllNames reports whether every given tag name is present as an
// exact key. Used by detector-driven lookups, which match literally.
func (t TagCounts) ContainsAllNames(names []string) bool {
	for _, n := range names {
		if _, ok := t[n]; !ok {
			return false
		}
	}
	return true
}

// Names returns the distinct tag names in unspecified order.
func (t TagCounts) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}

// ParseTagDeltas parses "name,count" tokens into a multiset. Tokens without
// exactly one comma, with a blank name, or with a count that is not a
// positive integer are dropped; malformed input is never fatal.
func ParseTagDeltas(tokens []string) TagCounts {
	deltas := TagCounts{}
	for _, token := range tokens {
		parts := strings.SplitN(token, ",", 3)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || name == "" || count <= 0 {
			continue
		}
		deltas[name] += count
	}
	return deltas
}
