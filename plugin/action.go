package plugin

import "fmt"

// Action is what the updater intends to do next with a plugin.
type Action int

const (
	// no changes
	ActionNotFiji Action = iota
	ActionNotInstalled
	ActionInstalled
	ActionUpdateable
	ActionModified
	ActionNew
	ActionObsolete

	// changes
	ActionUninstall
	ActionInstall
	ActionUpdate

	// developer-only changes
	ActionUpload
	ActionRemove
)

var actionNames = [...]struct {
	name  string
	label string
}{
	ActionNotFiji:      {"NOT_FIJI", "Not in Fiji"},
	ActionNotInstalled: {"NOT_INSTALLED", "Not installed"},
	ActionInstalled:    {"INSTALLED", "Up-to-date"},
	ActionUpdateable:   {"UPDATEABLE", "Update available"},
	ActionModified:     {"MODIFIED", "Locally modified"},
	ActionNew:          {"NEW", "New plugin"},
	ActionObsolete:     {"OBSOLETE", "Obsolete"},
	ActionUninstall:    {"UNINSTALL", "Uninstall it"},
	ActionInstall:      {"INSTALL", "Install it"},
	ActionUpdate:       {"UPDATE", "Update it"},
	ActionUpload:       {"UPLOAD", "Upload it"},
	ActionRemove:       {"REMOVE", "Remove it"},
}

// Actions lists every action in declaration order.
func Actions() []Action {
	actions := make([]Action, len(actionNames))
	for i := range actionNames {
		actions[i] = Action(i)
	}

	return actions
}

func (a Action) valid() bool {
	return a >= 0 && int(a) < len(actionNames)
}

func (a Action) String() string {
	if !a.valid() {
		return fmt.Sprintf("Action(%d)", int(a))
	}

	return actionNames[a].name
}

func (a Action) Label() string {
	if !a.valid() {
		return a.String()
	}

	return actionNames[a].label
}

// IsChange reports whether a asks the updater to do something, as opposed
// to the per-status no-op actions.
func (a Action) IsChange() bool {
	return a >= ActionUninstall && a.valid()
}

// ParseAction is the inverse of Action.String.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n.name == name {
			return Action(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
