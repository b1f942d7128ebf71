package collection

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"plugin-updater/plugin"

	"github.com/rs/zerolog/log"
)

// RelationAtLeast marks a dependency satisfied by any version at least as
// new as its minimum timestamp.
const RelationAtLeast = "at-least"

var (
	ErrDuplicatePlugin   = errors.New("plugin already in collection")
	ErrUnknownDependency = errors.New("required plugin is not known")
	ErrSelfDependency    = errors.New("plugin cannot require itself")
)

var _ plugin.DependencyAnalyzer = (*Collection)(nil)

// Collection holds the plugins of one installation, keyed by filename. It
// also serves as the dependency analyzer for uploads, using the declared
// requirements it was created with.
type Collection struct {
	mu        sync.RWMutex
	artifacts map[string]*plugin.Artifact
	requires  map[string][]string
}

// New creates an empty collection. requires maps a plugin filename to the
// filenames it needs.
func New(requires map[string][]string) *Collection {
	copied := make(map[string][]string, len(requires))
	for name, deps := range requires {
		copied[name] = slices.Clone(deps)
	}

	return &Collection{
		artifacts: make(map[string]*plugin.Artifact),
		requires:  copied,
	}
}

// Add inserts a. Filenames are unique.
func (c *Collection) Add(a *plugin.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.artifacts[a.Filename]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, a.Filename)
	}
	c.artifacts[a.Filename] = a

	return nil
}

// Remove drops filename and reports whether it was present.
func (c *Collection) Remove(filename string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.artifacts[filename]
	delete(c.artifacts, filename)

	return exists
}

func (c *Collection) Get(filename string) (*plugin.Artifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.artifacts[filename]

	return a, ok
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.artifacts)
}

// All returns every plugin ordered by filename.
func (c *Collection) All() []*plugin.Artifact {
	return c.Filter(func(*plugin.Artifact) bool { return true })
}

// Filter returns the plugins keep accepts, ordered by filename.
func (c *Collection) Filter(keep func(*plugin.Artifact) bool) []*plugin.Artifact {
	c.mu.RLock()
	result := make([]*plugin.Artifact, 0, len(c.artifacts))
	for _, a := range c.artifacts {
		if keep(a) {
			result = append(result, a)
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(result, func(a, b *plugin.Artifact) int {
		return cmp.Compare(a.Filename, b.Filename)
	})

	return result
}

// Updateable lists the plugins an update is available for.
func (c *Collection) Updateable(force bool) []*plugin.Artifact {
	return c.Filter(func(a *plugin.Artifact) bool {
		return a.UpdateAvailable(force)
	})
}

// MarkForUpdate requests an update for every updateable plugin. Obsolete
// plugins are marked for uninstallation instead. It returns the number of
// plugins whose action changed.
func (c *Collection) MarkForUpdate(force bool) (int, error) {
	marked := 0
	for _, a := range c.Updateable(force) {
		candidates := []plugin.Action{plugin.ActionUpdate, plugin.ActionInstall}
		if a.IsObsolete() {
			candidates = []plugin.Action{plugin.ActionUninstall}
		}

		before := a.Action()
		ok, err := a.SetFirstLegalAction(candidates...)
		if err != nil {
			return marked, fmt.Errorf("failed to mark %s for update: %w", a.Filename, err)
		}
		if ok && a.Action() != before {
			marked++
		}
	}

	log.Debug().Int("marked", marked).Bool("force", force).Msg("Marked plugins for update")

	return marked, nil
}

// MarkMissing reconciles the collection with a scan of the installation.
// Managed plugins that were expected on disk but not seen become not
// installed (or obsolete and uninstalled). Unmanaged plugins that were not
// seen are dropped from the collection and returned.
func (c *Collection) MarkMissing(seen []string) []*plugin.Artifact {
	present := make(map[string]struct{}, len(seen))
	for _, name := range seen {
		present[name] = struct{}{}
	}

	var dropped []*plugin.Artifact
	for _, a := range c.All() {
		if _, ok := present[a.Filename]; ok {
			continue
		}

		switch a.Status() {
		case plugin.StatusNotFiji:
			c.Remove(a.Filename)
			dropped = append(dropped, a)
		case plugin.StatusInstalled, plugin.StatusUpdateable, plugin.StatusModified:
			a.SetStatus(plugin.StatusNotInstalled)
		case plugin.StatusObsolete, plugin.StatusObsoleteModified:
			a.SetStatus(plugin.StatusObsoleteUninstalled)
		case plugin.StatusNotInstalled, plugin.StatusNew, plugin.StatusObsoleteUninstalled:
		}
	}

	return dropped
}

// StageUninstalls stages every plugin marked for uninstallation and returns
// how many were staged. It stops at the first failure.
func (c *Collection) StageUninstalls() (int, error) {
	staged := 0
	for _, a := range c.Filter((*plugin.Artifact).ToUninstall) {
		if err := a.StageForUninstall(); err != nil {
			return staged, fmt.Errorf("failed to stage %s for removal: %w", a.Filename, err)
		}
		staged++
	}

	return staged, nil
}

// AnalyzeDependencies returns the declared requirements of a. Each required
// plugin must be in the collection; its current timestamp becomes the
// minimum.
func (c *Collection) AnalyzeDependencies(a *plugin.Artifact) ([]plugin.Dependency, error) {
	c.mu.RLock()
	required := c.requires[a.Filename]
	c.mu.RUnlock()

	dependencies := make([]plugin.Dependency, 0, len(required))
	for _, name := range required {
		if name == a.Filename {
			return nil, fmt.Errorf("%w: %s", ErrSelfDependency, name)
		}

		target, ok := c.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires %s", ErrUnknownDependency, a.Filename, name)
		}
		if target.IsObsolete() {
			log.Warn().
				Str("filename", a.Filename).
				Str("dependency", name).
				Msg("Plugin requires an obsolete plugin")
		}

		dependencies = append(dependencies, plugin.Dependency{
			Filename:     name,
			MinTimestamp: target.Timestamp(),
			Relation:     RelationAtLeast,
		})
	}

	return dependencies, nil
}
