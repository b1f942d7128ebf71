package plugin

// Snapshot is a plain copy of everything an Artifact tracks. It is what
// persistence layers read and write.
type Snapshot struct {
	Filename         string
	Description      string
	Status           Status
	Action           Action
	Current          *Version
	Previous         []Version
	PendingChecksum  string
	PendingTimestamp int64
	FileSize         int64
	Dependencies     []Dependency
	Authors          []string
	Links            []string
	Platforms        []string
	Categories       []string
}

// Snapshot copies the state of a.
func (a *Artifact) Snapshot() Snapshot {
	s := Snapshot{
		Filename:         a.Filename,
		Description:      a.Description,
		Status:           a.status,
		Action:           a.action,
		Previous:         a.lineage.PreviousVersions(),
		PendingChecksum:  a.pendingChecksum,
		PendingTimestamp: a.pendingTimestamp,
		FileSize:         a.FileSize,
		Dependencies:     a.dependencies.list(),
		Authors:          a.authors.list(),
		Links:            a.links.list(),
		Platforms:        a.platforms.list(),
		Categories:       a.categories.list(),
	}
	if current, ok := a.lineage.Current(); ok {
		s.Current = &current
	}

	return s
}

// Restore rebuilds an artifact from a snapshot. The snapshot's action must
// be legal for its status under e's action table.
func (e *Environment) Restore(s Snapshot) (*Artifact, error) {
	if !e.Actions.IsLegal(s.Status, s.Action) {
		return nil, &IllegalTransitionError{
			Filename: s.Filename,
			Status:   s.Status,
			Action:   s.Action,
		}
	}

	a := &Artifact{
		Filename:         s.Filename,
		Description:      s.Description,
		FileSize:         s.FileSize,
		env:              e,
		status:           s.Status,
		action:           s.Action,
		pendingChecksum:  s.PendingChecksum,
		pendingTimestamp: s.PendingTimestamp,
	}
	for _, v := range s.Previous {
		a.lineage.addPrevious(v)
	}
	if s.Current != nil {
		current := *s.Current
		a.lineage.current = &current
	}
	for _, d := range s.Dependencies {
		a.dependencies.add(d)
	}
	for _, v := range s.Authors {
		a.authors.add(v)
	}
	for _, v := range s.Links {
		a.links.add(v)
	}
	for _, v := range s.Platforms {
		a.platforms.add(v)
	}
	for _, v := range s.Categories {
		a.categories.add(v)
	}

	return a, nil
}
