package registry

import (
	"errors"
	"fmt"
)

// Static errors to avoid err113 violations
var (
	ErrRegistryNil      = errors.New("registry is nil")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ChecksumMismatchError is returned when transferred content does not match
// the checksum recorded for the plugin.
type ChecksumMismatchError struct {
	Key      Key
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf(
		"checksum mismatch for %s: expected %s, got %s",
		e.Key,
		e.Expected,
		e.Actual,
	)
}

// TransferError represents a failed upload or download of one plugin
type TransferError struct {
	Operation string
	Filename  string
	Inner     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Operation, e.Filename, e.Inner)
}

func (e *TransferError) Unwrap() error {
	return e.Inner
}

// wrapTransferError attaches the operation and plugin to err
func wrapTransferError(err error, operation, filename string) error {
	if err == nil {
		return nil
	}

	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return err
	}

	return &TransferError{
		Operation: operation,
		Filename:  filename,
		Inner:     err,
	}
}
