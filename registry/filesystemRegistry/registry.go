package filesystemRegistry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"plugin-updater/registry"

	"github.com/spf13/afero"
)

var _ registry.Registry = (*FilesystemRegistry)(nil)

// FilesystemRegistry implements the registry interface using simple filesystem
// storage laid out like an update site
type FilesystemRegistry struct {
	fs      afero.Fs
	baseDir string
}

// New creates a new filesystem-based registry below baseDir
func New(fs afero.Fs, baseDir string) (*FilesystemRegistry, error) {
	//nolint:mnd // Directory permissions 0755 are intentional
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemRegistry{fs: fs, baseDir: baseDir}, nil
}

// StoreArtifact writes the content to its object path and returns its
// checksum
func (r *FilesystemRegistry) StoreArtifact(
	_ context.Context,
	key registry.Key,
	reader io.Reader,
) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact content: %w", err)
	}

	artifactPath := r.getArtifactPath(key)

	//nolint:mnd // Directory permissions 0755 are intentional
	if err := r.fs.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:mnd // filemode constant
	if err := afero.WriteFile(r.fs, artifactPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return registry.Checksum(content), nil
}

// GetArtifact reads the stored content of key
func (r *FilesystemRegistry) GetArtifact(
	_ context.Context,
	key registry.Key,
) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	content, err := afero.ReadFile(r.fs, r.getArtifactPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", registry.ErrArtifactNotFound, key)
		}

		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return content, nil
}

// DeleteArtifact removes the stored content of key
func (r *FilesystemRegistry) DeleteArtifact(_ context.Context, key registry.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if err := r.fs.Remove(r.getArtifactPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove artifact: %w: %s", registry.ErrArtifactNotFound, key)
		}

		return fmt.Errorf("failed to remove artifact: %w", err)
	}

	return nil
}

// getArtifactPath returns the file path for an artifact
func (r *FilesystemRegistry) getArtifactPath(key registry.Key) string {
	return filepath.Join(r.baseDir, filepath.FromSlash(key.ObjectName()))
}
