package registry

import (
	"context"
	"crypto/sha1" //nolint:gosec // update sites identify files by SHA-1
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Key identifies one uploaded version of a plugin file.
type Key struct {
	Filename  string
	Timestamp int64
}

// ObjectName is the name the version is stored under, as on an update site:
// the filename followed by the timestamp.
func (k Key) ObjectName() string {
	return fmt.Sprintf("%s-%d", k.Filename, k.Timestamp)
}

func (k Key) String() string {
	return k.ObjectName()
}

// Registry interface defines the methods that any registry implementation must
// provide
type Registry interface {
	// StoreArtifact stores the content read from reader and returns its
	// checksum.
	StoreArtifact(ctx context.Context, key Key, reader io.Reader) (string, error)
	GetArtifact(ctx context.Context, key Key) ([]byte, error)
	DeleteArtifact(ctx context.Context, key Key) error
}

// Files is the local side of a transfer. Paths are relative to the
// installation root.
type Files interface {
	Open(filename string) (afero.File, error)
	WriteFile(filename string, r io.Reader) error
}

// Checksum returns the hex encoded SHA-1 of content, the same digest the
// local filesystem computes for installed files.
func Checksum(content []byte) string {
	//nolint:gosec // not used for security
	sum := sha1.Sum(content)

	return hex.EncodeToString(sum[:])
}
