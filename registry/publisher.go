package registry

import (
	"bytes"
	"context"

	"plugin-updater/plugin"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher moves plugin files between the installation and a registry.
type Publisher struct {
	registry Registry
	files    Files
	env      *plugin.Environment
}

// NewPublisher creates a publisher that stages downloads according to env.
func NewPublisher(reg Registry, files Files, env *plugin.Environment) *Publisher {
	return &Publisher{
		registry: reg,
		files:    files,
		env:      env,
	}
}

// Summary counts what one Publish or Fetch run did.
type Summary struct {
	RunID       string
	Transferred int
	Skipped     int
}

// Publish pushes every artifact marked for upload and marks it installed
// once the registry holds the new version. It stops at the first failure.
func (p *Publisher) Publish(
	ctx context.Context,
	artifacts []*plugin.Artifact,
) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := log.With().Str("run", summary.RunID).Logger()

	if p.registry == nil {
		return summary, ErrRegistryNil
	}

	logger.Info().Int("candidates", len(artifacts)).Msg("Publishing plugins")

	for _, a := range artifacts {
		if !a.ToUpload() {
			summary.Skipped++

			continue
		}

		if err := p.Push(ctx, a); err != nil {
			logger.Error().Err(err).Str("filename", a.Filename).Msg("Failed to publish plugin")

			return summary, err
		}
		a.SetStatus(plugin.StatusInstalled)
		summary.Transferred++
	}

	logger.Info().
		Int("uploaded", summary.Transferred).
		Int("skipped", summary.Skipped).
		Msg("Publishing finished")

	return summary, nil
}

// Push uploads the local file of a under the version a describes. If the
// registry reports a different checksum the stored object is deleted again.
func (p *Publisher) Push(ctx context.Context, a *plugin.Artifact) error {
	if p.registry == nil {
		return ErrRegistryNil
	}

	key := Key{Filename: a.Filename, Timestamp: a.Timestamp()}
	if err := key.Validate(); err != nil {
		return wrapTransferError(err, "upload", a.Filename)
	}

	file, err := p.files.Open(a.Filename)
	if err != nil {
		return wrapTransferError(err, "upload", a.Filename)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("filename", a.Filename).Msg("Failed to close plugin file")
		}
	}()

	checksum, err := p.registry.StoreArtifact(ctx, key, file)
	if err != nil {
		return wrapTransferError(err, "upload", a.Filename)
	}

	if expected := a.Checksum(); checksum != expected {
		if derr := p.registry.DeleteArtifact(ctx, key); derr != nil {
			log.Warn().Err(derr).Stringer("key", key).Msg("Failed to delete mismatching upload")
		}

		return wrapTransferError(&ChecksumMismatchError{
			Key:      key,
			Expected: expected,
			Actual:   checksum,
		}, "upload", a.Filename)
	}

	log.Info().
		Str("filename", a.Filename).
		Str("checksum", checksum).
		Int64("timestamp", key.Timestamp).
		Msg("Successfully uploaded plugin")

	return nil
}

// Fetch downloads the current version of every artifact marked for
// installation or update into the staging directory, where it replaces the
// installed file on the next start. Staged artifacts are marked installed.
func (p *Publisher) Fetch(
	ctx context.Context,
	artifacts []*plugin.Artifact,
) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := log.With().Str("run", summary.RunID).Logger()

	if p.registry == nil {
		return summary, ErrRegistryNil
	}

	logger.Info().Int("candidates", len(artifacts)).Msg("Fetching plugins")

	for _, a := range artifacts {
		if !a.ToInstall() && !a.ToUpdate() {
			summary.Skipped++

			continue
		}

		if err := p.pull(ctx, a); err != nil {
			logger.Error().Err(err).Str("filename", a.Filename).Msg("Failed to fetch plugin")

			return summary, err
		}
		a.SetStatus(plugin.StatusInstalled)
		summary.Transferred++
	}

	logger.Info().
		Int("downloaded", summary.Transferred).
		Int("skipped", summary.Skipped).
		Msg("Fetching finished")

	return summary, nil
}

func (p *Publisher) pull(ctx context.Context, a *plugin.Artifact) error {
	current, ok := a.Current()
	if !ok {
		return wrapTransferError(ErrArtifactNotFound, "download", a.Filename)
	}

	key := Key{Filename: a.Filename, Timestamp: current.Timestamp}
	if err := key.Validate(); err != nil {
		return wrapTransferError(err, "download", a.Filename)
	}

	content, err := p.registry.GetArtifact(ctx, key)
	if err != nil {
		return wrapTransferError(err, "download", a.Filename)
	}

	if checksum := Checksum(content); checksum != current.Checksum {
		return wrapTransferError(&ChecksumMismatchError{
			Key:      key,
			Expected: current.Checksum,
			Actual:   checksum,
		}, "download", a.Filename)
	}

	target := p.env.StagingPath(a.Filename)
	if err := p.files.WriteFile(target, bytes.NewReader(content)); err != nil {
		return wrapTransferError(err, "download", a.Filename)
	}

	log.Info().
		Str("filename", a.Filename).
		Str("staged", target).
		Int("size", len(content)).
		Msg("Successfully downloaded plugin")

	return nil
}
