package plugin

import "github.com/rs/zerolog/log"

// markForUpload runs the upload side effect of SetAction(ActionUpload).
func (a *Artifact) markForUpload() error {
	if !a.IsManaged() {
		// The file is new to the update site: its current version is what
		// gets published.
		if current, ok := a.lineage.Current(); ok {
			a.pendingChecksum = current.Checksum
			a.pendingTimestamp = current.Timestamp
		}
		a.SetStatus(StatusInstalled)

		return nil
	}

	if a.pendingChecksum == "" {
		return &NothingToUploadError{Filename: a.Filename}
	}
	if current, ok := a.lineage.Current(); ok && current.Checksum == a.pendingChecksum {
		return &NothingToUploadError{Filename: a.Filename}
	}

	size, err := a.env.fileSize(a.Filename)
	if err != nil {
		return err
	}
	dependencies, err := a.env.analyze(a)
	if err != nil {
		return err
	}

	a.lineage.CommitVersion(a.pendingChecksum, a.pendingTimestamp)
	a.FileSize = size
	for _, d := range dependencies {
		a.dependencies.add(d)
	}
	a.commitAction(ActionUpload)

	log.Debug().
		Str("filename", a.Filename).
		Str("checksum", a.pendingChecksum).
		Int64("timestamp", a.pendingTimestamp).
		Int("dependencies", len(dependencies)).
		Msg("plugin marked for upload")

	return nil
}

// markForRemoval runs the side effect of SetAction(ActionRemove): the
// current version becomes history and the plugin is obsolete.
func (a *Artifact) markForRemoval() error {
	if a.action != ActionUninstall {
		return &InvalidRemovalError{Filename: a.Filename, Action: a.action}
	}

	a.lineage.archive()
	a.SetStatus(StatusObsolete)
	// The local copy still has to go.
	a.commitAction(ActionUninstall)

	return nil
}

// StageForUninstall leaves a marker in the staging directory so the file is
// removed on the next start, and demotes the status accordingly.
func (a *Artifact) StageForUninstall() error {
	if a.action != ActionUninstall {
		return &InvalidRemovalError{Filename: a.Filename, Action: a.action}
	}
	if a.env.Files == nil {
		return ErrNoFilesystem
	}

	if err := a.env.Files.TouchOrCreate(a.env.StagingPath(a.Filename)); err != nil {
		//nolint:wrapcheck // filesystem errors are passed through unchanged
		return err
	}

	if !a.IsManaged() {
		return nil
	}
	if a.IsObsolete() {
		a.SetStatus(StatusObsoleteUninstalled)
	} else {
		a.SetStatus(StatusNotInstalled)
	}

	return nil
}
