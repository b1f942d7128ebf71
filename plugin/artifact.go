package plugin

import (
	"slices"

	"github.com/rs/zerolog/log"
)

// Artifact tracks one plugin file: its status, the action the updater
// intends to perform, its version lineage and a version observed locally
// but not yet committed.
//
// An Artifact is not safe for concurrent use.
type Artifact struct {
	Filename    string
	Description string
	// FileSize is only meaningful for files that are not managed by the
	// updater and right after an upload.
	FileSize int64

	env     *Environment
	status  Status
	action  Action
	lineage Lineage

	pendingChecksum  string
	pendingTimestamp int64

	dependencies dependencySet
	authors      stringSet
	links        stringSet
	platforms    stringSet
	categories   stringSet
}

func (a *Artifact) Status() Status {
	return a.status
}

func (a *Artifact) Action() Action {
	return a.action
}

// Current returns the installed (or, for remote only plugins, available)
// version.
func (a *Artifact) Current() (Version, bool) {
	return a.lineage.Current()
}

func (a *Artifact) PreviousVersions() []Version {
	return a.lineage.PreviousVersions()
}

// Pending returns the version that was observed but not committed yet.
func (a *Artifact) Pending() (Version, bool) {
	if a.pendingChecksum == "" {
		return Version{}, false
	}

	return Version{Checksum: a.pendingChecksum, Timestamp: a.pendingTimestamp}, true
}

func (a *Artifact) HasSeenChecksum(checksum string) bool {
	return a.lineage.HasSeenChecksum(checksum)
}

func (a *Artifact) IsStrictlyNewerThan(timestamp int64) bool {
	return a.lineage.IsStrictlyNewerThan(timestamp)
}

// CommitVersion makes (checksum, timestamp) the current version, moving the
// old one into the history.
func (a *Artifact) CommitVersion(checksum string, timestamp int64) {
	a.lineage.CommitVersion(checksum, timestamp)
}

func (a *Artifact) AddPreviousVersion(checksum string, timestamp int64) {
	a.lineage.AddPreviousVersion(checksum, timestamp)
}

// RecordLocalObservation classifies a checksum found on disk against the
// known versions and updates the status accordingly.
func (a *Artifact) RecordLocalObservation(checksum string, timestamp int64) {
	if current, ok := a.lineage.Current(); ok && current.Checksum == checksum {
		a.SetStatus(StatusInstalled)

		return
	}

	hasCurrent := a.lineage.HasCurrent()
	switch {
	case a.lineage.HasSeenChecksum(checksum) && hasCurrent:
		a.SetStatus(StatusUpdateable)
	case a.lineage.HasSeenChecksum(checksum):
		a.SetStatus(StatusObsolete)
	case hasCurrent:
		a.SetStatus(StatusModified)
	default:
		a.SetStatus(StatusObsoleteModified)
	}
	a.pendingChecksum = checksum
	a.pendingTimestamp = timestamp
}

// IsActionLegal reports whether action is allowed in the current status.
func (a *Artifact) IsActionLegal(action Action) bool {
	return a.env.Actions.IsLegal(a.status, action)
}

// LegalActions lists the actions allowed in the current status.
func (a *Artifact) LegalActions() []Action {
	return a.env.Actions.Actions(a.status)
}

// SetAction requests action. Upload and removal run their side effects
// before the action is committed; if they fail, the artifact is unchanged.
func (a *Artifact) SetAction(action Action) error {
	if !a.IsActionLegal(action) {
		return &IllegalTransitionError{
			Filename: a.Filename,
			Status:   a.status,
			Action:   action,
		}
	}

	switch action {
	case ActionUpload:
		return a.markForUpload()
	case ActionRemove:
		return a.markForRemoval()
	default:
		a.commitAction(action)

		return nil
	}
}

// SetFirstLegalAction sets the first of candidates that is legal in the
// current status. It reports false if none is.
func (a *Artifact) SetFirstLegalAction(candidates ...Action) (bool, error) {
	for _, action := range candidates {
		if a.IsActionLegal(action) {
			return true, a.SetAction(action)
		}
	}

	return false, nil
}

// ResetToDefaultAction sets the no-op action of the current status.
func (a *Artifact) ResetToDefaultAction() {
	a.action = a.env.Actions.DefaultAction(a.status)
}

// SetStatus replaces the status and resets the action to the new status's
// default.
func (a *Artifact) SetStatus(status Status) {
	if status != a.status {
		log.Debug().
			Str("filename", a.Filename).
			Stringer("from", a.status).
			Stringer("to", status).
			Msg("plugin status changed")
	}
	a.status = status
	a.ResetToDefaultAction()
}

func (a *Artifact) commitAction(action Action) {
	a.action = action
	log.Debug().
		Str("filename", a.Filename).
		Stringer("status", a.status).
		Stringer("action", action).
		Msg("plugin action set")
}

// Checksum is the checksum that describes the plugin: the pending one while
// it is marked for upload, the current one otherwise.
func (a *Artifact) Checksum() string {
	if a.action == ActionUpload {
		return a.pendingChecksum
	}
	if current, ok := a.lineage.Current(); ok {
		return current.Checksum
	}

	return ""
}

// Timestamp mirrors Checksum.
func (a *Artifact) Timestamp() int64 {
	if a.action == ActionUpload {
		return a.pendingTimestamp
	}
	if current, ok := a.lineage.Current(); ok {
		return current.Timestamp
	}

	return 0
}

func (a *Artifact) ToInstall() bool   { return a.action == ActionInstall }
func (a *Artifact) ToUpdate() bool    { return a.action == ActionUpdate }
func (a *Artifact) ToUninstall() bool { return a.action == ActionUninstall }
func (a *Artifact) ToUpload() bool    { return a.action == ActionUpload }
func (a *Artifact) ToRemove() bool    { return a.action == ActionRemove }

// ActionSpecified reports whether the action asks for a change.
func (a *Artifact) ActionSpecified() bool {
	return a.action.IsChange()
}

func (a *Artifact) IsObsolete() bool {
	return a.status.IsObsolete()
}

// IsManaged reports whether the file is known to the update site. Files
// found locally that the site does not know are NOT_FIJI.
func (a *Artifact) IsManaged() bool {
	return a.status != StatusNotFiji
}

func (a *Artifact) IsInstallable() bool {
	return a.IsActionLegal(ActionInstall)
}

func (a *Artifact) IsUpdateable() bool {
	return a.IsActionLegal(ActionUpdate)
}

func (a *Artifact) IsUninstallable() bool {
	return a.IsActionLegal(ActionUninstall)
}

func (a *Artifact) IsLocallyModified() bool {
	return a.env.Actions.DefaultAction(a.status) == ActionModified
}

// UpdateAvailable reports whether the updater should offer an update. With
// force, any status that allows updating or uninstalling qualifies.
func (a *Artifact) UpdateAvailable(force bool) bool {
	if a.status == StatusUpdateable || a.status == StatusObsolete {
		return true
	}

	return force && (a.IsActionLegal(ActionUpdate) || a.IsActionLegal(ActionUninstall))
}

func (a *Artifact) AddDependency(filename string, minTimestamp int64, relation string) {
	a.dependencies.add(Dependency{
		Filename:     filename,
		MinTimestamp: minTimestamp,
		Relation:     relation,
	})
}

func (a *Artifact) Dependencies() []Dependency {
	return a.dependencies.list()
}

func (a *Artifact) AddAuthor(author string)     { a.authors.add(author) }
func (a *Artifact) AddLink(link string)         { a.links.add(link) }
func (a *Artifact) AddPlatform(platform string) { a.platforms.add(platform) }
func (a *Artifact) AddCategory(category string) { a.categories.add(category) }

func (a *Artifact) Authors() []string    { return a.authors.list() }
func (a *Artifact) Links() []string      { return a.links.list() }
func (a *Artifact) Platforms() []string  { return a.platforms.list() }
func (a *Artifact) Categories() []string { return a.categories.list() }

// DependsOn reports whether filename is among the dependencies.
func (a *Artifact) DependsOn(filename string) bool {
	return slices.ContainsFunc(a.dependencies.items, func(d Dependency) bool {
		return d.Filename == filename
	})
}
