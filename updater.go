package main

import (
	"context"
	"errors"
	"fmt"

	"plugin-updater/collection"
	"plugin-updater/filesystem"
	"plugin-updater/metrics"
	"plugin-updater/orm"
	"plugin-updater/plugin"
	"plugin-updater/registry"

	"github.com/rs/zerolog/log"
)

var ErrUnknownPlugin = errors.New("unknown plugin")

// requests are the changes asked for on the command line.
type requests struct {
	update    bool
	force     bool
	install   []string
	upload    []string
	uninstall []string
	remove    []string
}

// report summarizes one updater run.
type report struct {
	scanned    int
	dropped    int
	uploaded   int
	downloaded int
	staged     int
	byStatus   map[plugin.Status]int
}

// record adds the counts of r to c.
func (r report) record(c *metrics.Collector) {
	c.RecordTransfers(metrics.DirectionUpload, r.uploaded)
	c.RecordTransfers(metrics.DirectionDownload, r.downloaded)
	c.RecordStaged(r.staged)
	c.RecordDropped(r.dropped)
	c.RecordStatuses(r.byStatus)
}

type updater struct {
	db        *orm.DB
	files     *filesystem.Filesystem
	env       *plugin.Environment
	plugins   *collection.Collection
	publisher *registry.Publisher
	scanDirs  []string
}

func newUpdater(
	db *orm.DB,
	files *filesystem.Filesystem,
	reg registry.Registry,
	developerMode bool,
	stagingDir string,
	scanDirs []string,
	requires map[string][]string,
) *updater {
	plugins := collection.New(requires)
	env := &plugin.Environment{
		Actions:    plugin.NewActionTable(developerMode),
		Files:      files,
		Analyzer:   plugins,
		StagingDir: stagingDir,
	}

	return &updater{
		db:        db,
		files:     files,
		env:       env,
		plugins:   plugins,
		publisher: registry.NewPublisher(reg, files, env),
		scanDirs:  scanDirs,
	}
}

// run loads the known plugins, reconciles them with the installation,
// applies req, transfers files and saves the result.
func (u *updater) run(ctx context.Context, req requests) (report, error) {
	rep := report{byStatus: make(map[plugin.Status]int)}

	if err := u.load(ctx); err != nil {
		return rep, err
	}

	scanned, err := u.scan()
	if err != nil {
		return rep, err
	}
	rep.scanned = len(scanned)

	for _, a := range u.plugins.MarkMissing(scanned) {
		err := u.db.DeletePlugin(ctx, a.Filename)
		var notFound *orm.NotFoundError
		if err != nil && !errors.As(err, &notFound) {
			return rep, fmt.Errorf("failed to forget %s: %w", a.Filename, err)
		}
		rep.dropped++
	}

	pushed, err := u.apply(ctx, req)
	if err != nil {
		return rep, err
	}

	published, err := u.publisher.Publish(ctx, u.plugins.All())
	if err != nil {
		return rep, fmt.Errorf("failed to publish: %w", err)
	}
	rep.uploaded = pushed + published.Transferred

	fetched, err := u.publisher.Fetch(ctx, u.plugins.All())
	if err != nil {
		return rep, fmt.Errorf("failed to fetch: %w", err)
	}
	rep.downloaded = fetched.Transferred

	rep.staged, err = u.plugins.StageUninstalls()
	if err != nil {
		return rep, err
	}

	for _, a := range u.plugins.All() {
		if err := u.db.SavePlugin(ctx, a); err != nil {
			return rep, fmt.Errorf("failed to save %s: %w", a.Filename, err)
		}
		rep.byStatus[a.Status()]++
	}

	return rep, nil
}

func (u *updater) load(ctx context.Context) error {
	known, err := u.db.ListPlugins(ctx, u.env)
	if err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	for _, a := range known {
		if err := u.plugins.Add(a); err != nil {
			return err
		}
	}

	log.Debug().Int("plugins", len(known)).Msg("Loaded plugin database")

	return nil
}

// scan classifies every file found in the scan directories and returns
// their names.
func (u *updater) scan() ([]string, error) {
	names, err := u.files.Scan(u.scanDirs...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan installation: %w", err)
	}

	for _, name := range names {
		checksum, err := u.files.Checksum(name)
		if err != nil {
			return nil, err
		}
		timestamp, err := u.files.ModTimestamp(name)
		if err != nil {
			return nil, err
		}

		a, known := u.plugins.Get(name)
		if known && a.IsManaged() {
			a.RecordLocalObservation(checksum, timestamp)

			continue
		}

		// Unmanaged files are rediscovered with what is on disk now.
		if known {
			u.plugins.Remove(name)
		}
		a, err = u.env.NewArtifact(name, checksum, timestamp, plugin.StatusNotFiji)
		if err != nil {
			return nil, err
		}
		if err := u.plugins.Add(a); err != nil {
			return nil, err
		}
	}

	log.Debug().Int("files", len(names)).Msg("Scanned installation")

	return names, nil
}

// apply sets the requested actions. Files new to the site are pushed right
// away since adopting them does not leave an upload pending. It returns the
// number of such pushes.
func (u *updater) apply(ctx context.Context, req requests) (int, error) {
	get := func(name string) (*plugin.Artifact, error) {
		a, ok := u.plugins.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
		}

		return a, nil
	}

	for _, name := range req.install {
		a, err := get(name)
		if err != nil {
			return 0, err
		}
		if err := a.SetAction(plugin.ActionInstall); err != nil {
			return 0, err
		}
	}

	for _, name := range req.uninstall {
		a, err := get(name)
		if err != nil {
			return 0, err
		}
		if err := a.SetAction(plugin.ActionUninstall); err != nil {
			return 0, err
		}
	}

	for _, name := range req.remove {
		a, err := get(name)
		if err != nil {
			return 0, err
		}
		if !a.ToUninstall() {
			if err := a.SetAction(plugin.ActionUninstall); err != nil {
				return 0, err
			}
		}
		if err := a.SetAction(plugin.ActionRemove); err != nil {
			return 0, err
		}
	}

	pushed := 0
	for _, name := range req.upload {
		a, err := get(name)
		if err != nil {
			return pushed, err
		}
		adopted := !a.IsManaged()
		if err := a.SetAction(plugin.ActionUpload); err != nil {
			return pushed, err
		}
		if adopted {
			if err := u.publisher.Push(ctx, a); err != nil {
				return pushed, err
			}
			pushed++
		}
	}

	if req.update {
		if _, err := u.plugins.MarkForUpdate(req.force); err != nil {
			return pushed, err
		}
	}

	return pushed, nil
}
