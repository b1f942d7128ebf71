package orm

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"plugin-updater/plugin"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavePlugin inserts or replaces the record of a, including its history,
// dependencies and metadata.
func (db *DB) SavePlugin(ctx context.Context, a *plugin.Artifact) error {
	if a == nil || a.Filename == "" {
		return &BadInputError{Reason: "plugin without filename"}
	}

	model := fromSnapshot(a.Snapshot())
	detailString := fmt.Sprintf("filename=%q", model.Filename)

	err := db.dbGorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)
		if err := dbTx.deleteChildren(model.Filename); err != nil {
			return wrapErrorWithDetails(err, "delete plugin children", detailString)
		}

		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "filename"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"description",
				"status",
				"action",
				"version_checksum",
				"version_timestamp",
				"pending_checksum",
				"pending_timestamp",
				"file_size",
				"updated_at",
			}),
		}).Create(&model).Error
		if err != nil {
			return wrapErrorWithDetails(err, "save plugin", detailString)
		}

		if len(model.Versions) > 0 {
			if err := tx.Create(&model.Versions).Error; err != nil {
				return wrapErrorWithDetails(err, "save previous versions", detailString)
			}
		}
		if len(model.Dependencies) > 0 {
			if err := tx.Create(&model.Dependencies).Error; err != nil {
				return wrapErrorWithDetails(err, "save dependencies", detailString)
			}
		}
		if len(model.Metadata) > 0 {
			if err := tx.Create(&model.Metadata).Error; err != nil {
				return wrapErrorWithDetails(err, "save metadata", detailString)
			}
		}

		return nil
	})

	//nolint:wrapcheck // Error already wrapped
	return err
}

// LoadPlugin reads one plugin and restores it in env.
func (db *DB) LoadPlugin(
	ctx context.Context,
	env *plugin.Environment,
	filename string,
) (*plugin.Artifact, error) {
	if filename == "" {
		return nil, &BadInputError{Reason: "empty filename"}
	}

	model, err := gorm.G[Plugin](
		db.dbGorm,
	).Preload("Versions", nil).Preload("Dependencies", nil).Preload("Metadata", nil).Where(&Plugin{
		Filename: filename,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get plugin",
			fmt.Sprintf("filename=%q", filename),
		)
	}

	return restore(env, model)
}

// ListPlugins reads all plugins, ordered by filename.
func (db *DB) ListPlugins(
	ctx context.Context,
	env *plugin.Environment,
) ([]*plugin.Artifact, error) {
	models, err := gorm.G[Plugin](
		db.dbGorm,
	).Preload("Versions", nil).Preload("Dependencies", nil).Preload("Metadata", nil).Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "list plugins", "all")
	}

	slices.SortFunc(models, func(a, b Plugin) int {
		return cmp.Compare(a.Filename, b.Filename)
	})

	artifacts := make([]*plugin.Artifact, 0, len(models))
	for _, model := range models {
		a, err := restore(env, model)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, nil
}

// DeletePlugin removes a plugin and everything recorded about it.
func (db *DB) DeletePlugin(ctx context.Context, filename string) error {
	if filename == "" {
		return &BadInputError{Reason: "empty filename"}
	}

	detailString := fmt.Sprintf("filename=%q", filename)

	err := db.dbGorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := db.UseTransaction(tx).deleteChildren(filename); err != nil {
			return wrapErrorWithDetails(err, "delete plugin children", detailString)
		}

		result := tx.Where("filename = ?", filename).Delete(&Plugin{})
		if result.Error != nil {
			return wrapErrorWithDetails(result.Error, "delete plugin", detailString)
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Search: "delete plugin (" + detailString + ")"}
		}

		return nil
	})

	//nolint:wrapcheck // Error already wrapped
	return err
}

func (db *DB) deleteChildren(filename string) error {
	for _, child := range []any{&PreviousVersion{}, &Dependency{}, &Metadata{}} {
		if err := db.dbGorm.Where("filename = ?", filename).Delete(child).Error; err != nil {
			//nolint:wrapcheck // wrapped by the caller
			return err
		}
	}

	return nil
}

func fromSnapshot(s plugin.Snapshot) Plugin {
	model := Plugin{
		Filename:         s.Filename,
		Description:      s.Description,
		Status:           s.Status.String(),
		Action:           s.Action.String(),
		PendingChecksum:  s.PendingChecksum,
		PendingTimestamp: s.PendingTimestamp,
		FileSize:         s.FileSize,
	}
	if s.Current != nil {
		checksum := s.Current.Checksum
		model.VersionChecksum = &checksum
		model.VersionTimestamp = s.Current.Timestamp
	}

	for i, v := range s.Previous {
		model.Versions = append(model.Versions, PreviousVersion{
			Filename:  s.Filename,
			Checksum:  v.Checksum,
			Timestamp: v.Timestamp,
			Position:  i,
		})
	}
	for i, d := range s.Dependencies {
		model.Dependencies = append(model.Dependencies, Dependency{
			Filename:     s.Filename,
			Target:       d.Filename,
			Relation:     d.Relation,
			MinTimestamp: d.MinTimestamp,
			Position:     i,
		})
	}

	position := 0
	addMetadata := func(kind string, values []string) {
		for _, value := range values {
			model.Metadata = append(model.Metadata, Metadata{
				Filename: s.Filename,
				Kind:     kind,
				Value:    value,
				Position: position,
			})
			position++
		}
	}
	addMetadata(KindAuthor, s.Authors)
	addMetadata(KindLink, s.Links)
	addMetadata(KindPlatform, s.Platforms)
	addMetadata(KindCategory, s.Categories)

	return model
}

func restore(env *plugin.Environment, model Plugin) (*plugin.Artifact, error) {
	s, err := toSnapshot(model)
	if err != nil {
		return nil, err
	}

	a, err := env.Restore(s)
	if err != nil {
		return nil, &BadInputError{
			Reason: fmt.Sprintf("stored plugin %q: %v", model.Filename, err),
		}
	}

	return a, nil
}

func toSnapshot(model Plugin) (plugin.Snapshot, error) {
	status, err := plugin.ParseStatus(model.Status)
	if err != nil {
		return plugin.Snapshot{}, &BadInputError{
			Reason: fmt.Sprintf("stored plugin %q: %v", model.Filename, err),
		}
	}
	action, err := plugin.ParseAction(model.Action)
	if err != nil {
		return plugin.Snapshot{}, &BadInputError{
			Reason: fmt.Sprintf("stored plugin %q: %v", model.Filename, err),
		}
	}

	s := plugin.Snapshot{
		Filename:         model.Filename,
		Description:      model.Description,
		Status:           status,
		Action:           action,
		PendingChecksum:  model.PendingChecksum,
		PendingTimestamp: model.PendingTimestamp,
		FileSize:         model.FileSize,
	}
	if model.VersionChecksum != nil {
		s.Current = &plugin.Version{
			Checksum:  *model.VersionChecksum,
			Timestamp: model.VersionTimestamp,
		}
	}

	slices.SortFunc(model.Versions, func(a, b PreviousVersion) int {
		return cmp.Compare(a.Position, b.Position)
	})
	for _, v := range model.Versions {
		s.Previous = append(s.Previous, plugin.Version{
			Checksum:  v.Checksum,
			Timestamp: v.Timestamp,
		})
	}

	slices.SortFunc(model.Dependencies, func(a, b Dependency) int {
		return cmp.Compare(a.Position, b.Position)
	})
	for _, d := range model.Dependencies {
		s.Dependencies = append(s.Dependencies, plugin.Dependency{
			Filename:     d.Target,
			MinTimestamp: d.MinTimestamp,
			Relation:     d.Relation,
		})
	}

	slices.SortFunc(model.Metadata, func(a, b Metadata) int {
		return cmp.Compare(a.Position, b.Position)
	})
	for _, m := range model.Metadata {
		switch m.Kind {
		case KindAuthor:
			s.Authors = append(s.Authors, m.Value)
		case KindLink:
			s.Links = append(s.Links, m.Value)
		case KindPlatform:
			s.Platforms = append(s.Platforms, m.Value)
		case KindCategory:
			s.Categories = append(s.Categories, m.Value)
		}
	}

	return s, nil
}
