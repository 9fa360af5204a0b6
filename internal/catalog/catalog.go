// Package catalog holds the storefront app catalog: the ordered id/name
// listing that free-text game titles are matched against.
package catalog

import "strings"

// Entry is a single catalog row.
type Entry struct {
	ID   int64
	Name string
}

// Normalize lowercases and trims a title for matching. Matching is always
// performed on normalized strings.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store is an immutable, ordered view of the catalog. Order is the order
// the source supplied, which makes substring matching deterministic for a
// given payload.
type Store struct {
	entries []Entry
	norms   []string
	exact   map[string]int64
}

// NewStore builds a Store from entries, keeping their order. For duplicate
// normalized names the earliest entry wins exact lookups.
func NewStore(entries []Entry) *Store {
	s := &Store{
		entries: entries,
		norms:   make([]string, len(entries)),
		exact:   make(map[string]int64, len(entries)),
	}
	for i, e := range entries {
		norm := Normalize(e.Name)
		s.norms[i] = norm
		if _, ok := s.exact[norm]; !ok {
			s.exact[norm] = e.ID
		}
	}

	return s
}

// Match resolves a free-text title to an app id. Exact normalized equality
// wins; otherwise the first entry in catalog order where either normalized
// name contains the other. Returns false when nothing matches or the
// normalized title is empty.
func (s *Store) Match(name string) (int64, bool) {
	q := Normalize(name)
	if q == "" {
		return 0, false
	}

	if id, ok := s.exact[q]; ok {
		return id, true
	}

	for i, norm := range s.norms {
		if norm == "" {
			continue
		}
		if strings.Contains(norm, q) || strings.Contains(q, norm) {
			return s.entries[i].ID, true
		}
	}

	return 0, false
}

// Len reports the number of catalog entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns the backing slice. Callers must not mutate it.
func (s *Store) Entries() []Entry {
	return s.entries
}
