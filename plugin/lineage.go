package plugin

import "slices"

// Version identifies one build of a plugin. Timestamp is a logical build
// token (yyyyMMddHHmmss as an integer), not a Unix epoch.
type Version struct {
	Checksum  string `json:"checksum"`
	Timestamp int64  `json:"timestamp"`
}

// Lineage holds the current version of a plugin and every version that was
// current before it. Previous versions are kept in insertion order and are
// never dropped.
type Lineage struct {
	current  *Version
	previous []Version
}

// Current returns the current version, if any.
func (l *Lineage) Current() (Version, bool) {
	if l.current == nil {
		return Version{}, false
	}

	return *l.current, true
}

func (l *Lineage) HasCurrent() bool {
	return l.current != nil
}

// PreviousVersions returns a copy of the history, oldest entry first.
func (l *Lineage) PreviousVersions() []Version {
	return slices.Clone(l.previous)
}

// HasSeenChecksum reports whether checksum matches the current version or
// any previous one.
func (l *Lineage) HasSeenChecksum(checksum string) bool {
	if l.current != nil && l.current.Checksum == checksum {
		return true
	}
	for _, v := range l.previous {
		if v.Checksum == checksum {
			return true
		}
	}

	return false
}

// IsStrictlyNewerThan reports whether every known version has a timestamp
// greater than timestamp. A lineage without versions is newer than
// anything.
func (l *Lineage) IsStrictlyNewerThan(timestamp int64) bool {
	if l.current != nil && l.current.Timestamp <= timestamp {
		return false
	}
	for _, v := range l.previous {
		if v.Timestamp <= timestamp {
			return false
		}
	}

	return true
}

// CommitVersion archives the current version and makes (checksum,
// timestamp) current.
func (l *Lineage) CommitVersion(checksum string, timestamp int64) {
	next := Version{Checksum: checksum, Timestamp: timestamp}
	if l.current != nil {
		if *l.current == next {
			return
		}
		l.addPrevious(*l.current)
	}
	l.current = &next
}

// AddPreviousVersion records a historic version without touching the
// current one.
func (l *Lineage) AddPreviousVersion(checksum string, timestamp int64) {
	v := Version{Checksum: checksum, Timestamp: timestamp}
	if l.current != nil && *l.current == v {
		return
	}
	l.addPrevious(v)
}

// archive moves the current version into the history and leaves the
// lineage without a current version.
func (l *Lineage) archive() {
	if l.current == nil {
		return
	}
	l.addPrevious(*l.current)
	l.current = nil
}

func (l *Lineage) addPrevious(v Version) {
	if slices.Contains(l.previous, v) {
		return
	}
	l.previous = append(l.previous, v)
}
