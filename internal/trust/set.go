// Package trust supplies the trusted-user set consumed by the rule
// evaluator. A Set is a point-in-time snapshot: providers build a new
// one, callers never mutate one mid-run.
package trust

import "sort"

// Set is a set of trusted usernames.
type Set map[string]struct{}

// New builds a set from the given usernames.
func New(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether the username is trusted.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the usernames in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}
