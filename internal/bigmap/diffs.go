// Package bigmap searches an operation's list of storage mutations.
//
// One operation may mutate several bigmaps; centralizing the lookup
// predicate here keeps every handler matching diffs the same way.
package bigmap

import "github.com/oldominion/indexer/internal/model"

// Query selects diffs. Bigmap nil means any bigmap id; Key nil means no
// key constraint. Key comparison is exact string equality on the
// representation the indexing API delivers.
type Query struct {
	Bigmap  *int64
	Path    string
	Actions []string
	Key     *string
}

// ID returns a pointer-typed bigmap id for use in a Query.
func ID(id int64) *int64 { return &id }

// Key returns a pointer-typed key for use in a Query.
func Key(key string) *string { return &key }

// Find returns the first diff satisfying the query in storage order, or
// nil when none does.
func Find(diffs []model.BigmapDiff, q Query) *model.BigmapDiff {
	for i := range diffs {
		if matches(&diffs[i], q) {
			return &diffs[i]
		}
	}
	return nil
}

// Filter returns every diff satisfying the query, preserving storage order.
func Filter(diffs []model.BigmapDiff, q Query) []model.BigmapDiff {
	var out []model.BigmapDiff
	for i := range diffs {
		if matches(&diffs[i], q) {
			out = append(out, diffs[i])
		}
	}
	return out
}

func matches(diff *model.BigmapDiff, q Query) bool {
	if q.Bigmap != nil && diff.Bigmap != *q.Bigmap {
		return false
	}
	if diff.Path != q.Path {
		return false
	}
	if !actionIn(diff.Action, q.Actions) {
		return false
	}
	if q.Key != nil {
		key, ok := diff.Content.KeyString()
		if !ok || key != *q.Key {
			return false
		}
	}
	return true
}

func actionIn(action string, actions []string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
