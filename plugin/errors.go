package plugin

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStatus = errors.New("unknown status")
	ErrUnknownAction = errors.New("unknown action")
)

// IllegalTransitionError is returned when an action is requested that the
// plugin's status does not allow.
type IllegalTransitionError struct {
	Filename string
	Status   Status
	Action   Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf(
		"invalid action requested for plugin %s (%s, %s)",
		e.Filename,
		e.Action,
		e.Status,
	)
}

// NothingToUploadError is returned when an upload is requested but no new
// version has been staged.
type NothingToUploadError struct {
	Filename string
}

func (e *NothingToUploadError) Error() string {
	return "plugin " + e.Filename + " is already uploaded"
}

// InvalidRemovalError is returned when a removal or an uninstall staging is
// requested for a plugin that was not marked for uninstall first.
type InvalidRemovalError struct {
	Filename string
	Action   Action
}

func (e *InvalidRemovalError) Error() string {
	return fmt.Sprintf(
		"%s was not marked for uninstall (action is %s)",
		e.Filename,
		e.Action,
	)
}
