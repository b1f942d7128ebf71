package plugin

import (
	"errors"
	"fmt"
	"path"
)

// DefaultStagingDir is where files are staged for the next start of the
// application, relative to the installation root.
const DefaultStagingDir = "update"

var ErrNoFilesystem = errors.New("no filesystem configured")

// Filesystem is the I/O the state machine needs. Paths are slash separated
// and relative to the installation root.
type Filesystem interface {
	FileSize(filename string) (int64, error)
	// TouchOrCreate updates the modification time of path, creating it and
	// its parent directories if needed.
	TouchOrCreate(path string) error
}

// DependencyAnalyzer computes the dependencies of a plugin that is about to
// be uploaded.
type DependencyAnalyzer interface {
	AnalyzeDependencies(a *Artifact) ([]Dependency, error)
}

// AnalyzerFunc adapts a function to DependencyAnalyzer.
type AnalyzerFunc func(a *Artifact) ([]Dependency, error)

func (f AnalyzerFunc) AnalyzeDependencies(a *Artifact) ([]Dependency, error) {
	return f(a)
}

// Environment bundles the action table and the collaborators shared by all
// artifacts of one updater run.
type Environment struct {
	Actions  *ActionTable
	Files    Filesystem
	Analyzer DependencyAnalyzer
	// StagingDir defaults to DefaultStagingDir.
	StagingDir string
}

// StagingPath returns the path a file is staged at for deferred
// installation or removal.
func (e *Environment) StagingPath(filename string) string {
	dir := e.StagingDir
	if dir == "" {
		dir = DefaultStagingDir
	}

	return path.Join(dir, filename)
}

// NewArtifact creates an artifact in status with the given current version.
// An empty checksum means there is no current version. Files that are not
// managed by the updater get their size looked up right away.
func (e *Environment) NewArtifact(
	filename, checksum string,
	timestamp int64,
	status Status,
) (*Artifact, error) {
	if !status.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(status))
	}

	a := &Artifact{
		Filename: filename,
		env:      e,
		status:   status,
	}
	if checksum != "" {
		a.lineage.CommitVersion(checksum, timestamp)
	}
	if status == StatusNotFiji {
		size, err := e.fileSize(filename)
		if err != nil {
			return nil, err
		}
		a.FileSize = size
	}
	a.ResetToDefaultAction()

	return a, nil
}

func (e *Environment) fileSize(filename string) (int64, error) {
	if e.Files == nil {
		return 0, ErrNoFilesystem
	}

	//nolint:wrapcheck // filesystem errors are passed through unchanged
	return e.Files.FileSize(filename)
}

func (e *Environment) analyze(a *Artifact) ([]Dependency, error) {
	if e.Analyzer == nil {
		return nil, nil
	}

	//nolint:wrapcheck // analyzer errors are passed through unchanged
	return e.Analyzer.AnalyzeDependencies(a)
}
