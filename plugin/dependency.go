package plugin

import "slices"

// Dependency states that a plugin needs Filename in a version at least as
// new as MinTimestamp.
type Dependency struct {
	Filename     string `json:"filename"`
	MinTimestamp int64  `json:"timestamp"`
	Relation     string `json:"relation,omitempty"`
}

type dependencyKey struct {
	filename string
	relation string
}

func (d Dependency) key() dependencyKey {
	return dependencyKey{filename: d.Filename, relation: d.Relation}
}

// dependencySet keeps dependencies in insertion order, unique by filename
// and relation.
type dependencySet struct {
	items []Dependency
	index map[dependencyKey]int
}

// add appends d, or updates the minimum timestamp of the entry that has the
// same key.
func (s *dependencySet) add(d Dependency) {
	if s.index == nil {
		s.index = make(map[dependencyKey]int)
	}
	if i, ok := s.index[d.key()]; ok {
		s.items[i].MinTimestamp = d.MinTimestamp

		return
	}
	s.index[d.key()] = len(s.items)
	s.items = append(s.items, d)
}

func (s *dependencySet) list() []Dependency {
	return slices.Clone(s.items)
}

// stringSet is an insertion ordered set of strings.
type stringSet struct {
	items []string
}

func (s *stringSet) add(v string) {
	if slices.Contains(s.items, v) {
		return
	}
	s.items = append(s.items, v)
}

func (s *stringSet) list() []string {
	return slices.Clone(s.items)
}
