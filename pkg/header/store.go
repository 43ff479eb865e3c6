// Package header implements a case-insensitive ordered multimap of HTTP
// header names to values. Lookup ignores case, iteration and serialization
// preserve insertion order and the original casing of names.
package header

import (
	"sort"
	"strings"
)

type entry struct {
	name  string
	value string
}

// Store holds header entries in insertion order.
// The zero value is not usable; create stores with New or Parse.
type Store struct {
	entries []entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// FromMap creates a Store from a plain name→value mapping, as produced by
// mock response descriptors. Names are added in sorted order so repeated
// serializations of the same map are stable.
func FromMap(m map[string]string) *Store {
	s := New()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Append(name, m[name])
	}
	return s
}

// Append adds a header entry without touching existing entries of the
// same name.
func (s *Store) Append(name, value string) {
	s.entries = append(s.entries, entry{name: name, value: value})
}

// Set replaces the first entry matching name (case-insensitively) and
// drops any further duplicates. If no entry matches, Set appends.
func (s *Store) Set(name, value string) {
	replaced := false
	out := s.entries[:0]
	for _, e := range s.entries {
		if strings.EqualFold(e.name, name) {
			if replaced {
				continue
			}
			e.value = value
			replaced = true
		}
		out = append(out, e)
	}
	s.entries = out
	if !replaced {
		s.Append(name, value)
	}
}

// Get returns the first value for name, matched case-insensitively.
// The second return reports whether the name is present at all.
func (s *Store) Get(name string) (string, bool) {
	for _, e := range s.entries {
		if strings.EqualFold(e.name, name) {
			return e.value, true
		}
	}
	return "", false
}

// Values returns every value recorded for name, in insertion order.
func (s *Store) Values(name string) []string {
	var out []string
	for _, e := range s.entries {
		if strings.EqualFold(e.name, name) {
			out = append(out, e.value)
		}
	}
	return out
}

// Has reports whether at least one entry matches name.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Delete removes every entry matching name.
func (s *Store) Delete(name string) {
	out := s.entries[:0]
	for _, e := range s.entries {
		if strings.EqualFold(e.name, name) {
			continue
		}
		out = append(out, e)
	}
	s.entries = out
}

// Len returns the number of entries, counting duplicates.
func (s *Store) Len() int {
	return len(s.entries)
}

// Each calls fn for every entry in insertion order, with the original
// casing of the name.
func (s *Store) Each(fn func(name, value string)) {
	for _, e := range s.entries {
		fn(e.name, e.value)
	}
}

// Names returns header names in order of first appearance, original casing.
func (s *Store) Names() []string {
	var names []string
	seen := make(map[string]bool, len(s.entries))
	for _, e := range s.entries {
		key := strings.ToLower(e.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, e.name)
	}
	return names
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{entries: make([]entry, len(s.entries))}
	copy(c.entries, s.entries)
	return c
}

// Serialize renders the store as CRLF-separated "Name: value" lines, the
// wire form returned by getAllResponseHeaders-style accessors.
func (s *Store) Serialize() string {
	if len(s.entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range s.entries {
		b.WriteString(e.name)
		b.WriteString(": ")
		b.WriteString(e.value)
		b.WriteString("\r\n")
	}
	return b.String()
}

// Parse builds a Store from CRLF- or LF-separated "Name: value" lines.
// Lines without a colon and empty lines are skipped. Parse(Serialize(s))
// is semantically equal to s: same names in the same order with the same
// values under case-insensitive lookup.
func Parse(wire string) *Store {
	s := New()
	for _, line := range strings.Split(wire, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		s.Append(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return s
}
