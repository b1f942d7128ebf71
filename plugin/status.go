package plugin

import "fmt"

// Status is the coarse lifecycle classification of a plugin.
type Status int

const (
	StatusNotInstalled Status = iota
	StatusInstalled
	StatusUpdateable
	StatusModified
	StatusNotFiji
	StatusNew
	StatusObsoleteUninstalled
	StatusObsolete
	StatusObsoleteModified
)

var statusNames = [...]string{
	StatusNotInstalled:        "NOT_INSTALLED",
	StatusInstalled:           "INSTALLED",
	StatusUpdateable:          "UPDATEABLE",
	StatusModified:            "MODIFIED",
	StatusNotFiji:             "NOT_FIJI",
	StatusNew:                 "NEW",
	StatusObsoleteUninstalled: "OBSOLETE_UNINSTALLED",
	StatusObsolete:            "OBSOLETE",
	StatusObsoleteModified:    "OBSOLETE_MODIFIED",
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	statuses := make([]Status, len(statusNames))
	for i := range statusNames {
		statuses[i] = Status(i)
	}

	return statuses
}

func (s Status) valid() bool {
	return s >= 0 && int(s) < len(statusNames)
}

func (s Status) String() string {
	if !s.valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}

// Label is the text shown to users, which is the label of the status's
// no-op action.
func (s Status) Label() string {
	if !s.valid() {
		return s.String()
	}

	return statusRows[s].actions[0].Label()
}

// IsObsolete reports whether s is one of the obsolete variants.
func (s Status) IsObsolete() bool {
	switch s {
	case StatusObsolete, StatusObsoleteModified, StatusObsoleteUninstalled:
		return true
	default:
		return false
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}
