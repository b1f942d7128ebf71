package plugin

import "slices"

type statusRow struct {
	actions   []Action
	developer Action
	// hasDeveloper is needed because the zero Action is a real action.
	hasDeveloper bool
}

var statusRows = [...]statusRow{
	StatusNotInstalled: {actions: []Action{ActionNotInstalled, ActionInstall}},
	StatusInstalled: {
		actions:      []Action{ActionInstalled, ActionUninstall},
		developer:    ActionRemove,
		hasDeveloper: true,
	},
	StatusUpdateable: {
		actions:      []Action{ActionUpdateable, ActionUninstall, ActionUpdate},
		developer:    ActionUpload,
		hasDeveloper: true,
	},
	StatusModified: {
		actions:      []Action{ActionModified, ActionUninstall, ActionUpdate},
		developer:    ActionUpload,
		hasDeveloper: true,
	},
	StatusNotFiji: {
		actions:      []Action{ActionNotFiji, ActionUninstall},
		developer:    ActionUpload,
		hasDeveloper: true,
	},
	StatusNew:                 {actions: []Action{ActionNew, ActionInstall}},
	StatusObsoleteUninstalled: {actions: []Action{ActionObsolete}},
	StatusObsolete: {
		actions:      []Action{ActionObsolete, ActionUninstall},
		developer:    ActionUpload,
		hasDeveloper: true,
	},
	StatusObsoleteModified: {
		actions:      []Action{ActionModified, ActionUninstall},
		developer:    ActionUpload,
		hasDeveloper: true,
	},
}

// ActionTable maps every status to its ordered list of legal actions. The
// first action of each list is the status's no-op default. A table never
// changes after NewActionTable returns.
type ActionTable struct {
	developerMode bool
	actions       [len(statusRows)][]Action
}

// NewActionTable builds the table. Developer actions (upload, remove) are
// only included when developerMode is set.
func NewActionTable(developerMode bool) *ActionTable {
	t := &ActionTable{developerMode: developerMode}
	for status, row := range statusRows {
		actions := slices.Clone(row.actions)
		if developerMode && row.hasDeveloper {
			actions = append(actions, row.developer)
		}
		t.actions[status] = actions
	}

	return t
}

// DeveloperMode reports the flag the table was built with.
func (t *ActionTable) DeveloperMode() bool {
	return t.developerMode
}

// Actions returns a copy of the legal actions for status.
func (t *ActionTable) Actions(status Status) []Action {
	if !status.valid() {
		return nil
	}

	return slices.Clone(t.actions[status])
}

// IsLegal reports whether action may be set while in status.
func (t *ActionTable) IsLegal(status Status, action Action) bool {
	if !status.valid() {
		return false
	}

	return slices.Contains(t.actions[status], action)
}

// DefaultAction returns the no-op action of status.
func (t *ActionTable) DefaultAction(status Status) Action {
	return t.actions[status][0]
}
