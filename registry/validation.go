package registry

import (
	"errors"
	"path"
	"strings"
)

var (
	// Static errors to avoid err113 violations
	ErrInvalidIdentifier = errors.New("no valid identifier provided")
	ErrEmptyFilename     = errors.New("filename cannot be empty")
	ErrInvalidTimestamp  = errors.New("timestamp must be positive")
)

// Validate checks that k can be used as an object name.
func (k Key) Validate() error {
	if k.Filename == "" {
		return ErrEmptyFilename
	}
	if k.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}

	clean := path.Clean(k.Filename)
	if clean != k.Filename || path.IsAbs(clean) || clean == ".." ||
		strings.HasPrefix(clean, "../") {
		return ErrInvalidIdentifier
	}

	return nil
}
