//nolint
package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk error")

// MockFilesystem is a mock implementation of the Filesystem interface
type MockFilesystem struct {
	mock.Mock
}

func (m *MockFilesystem) FileSize(filename string) (int64, error) {
	args := m.Called(filename)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFilesystem) TouchOrCreate(path string) error {
	return m.Called(path).Error(0)
}

// MockAnalyzer is a mock implementation of the DependencyAnalyzer interface
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeDependencies(a *Artifact) ([]Dependency, error) {
	args := m.Called(a.Filename)
	deps, _ := args.Get(0).([]Dependency)

	return deps, args.Error(1)
}

func newTestEnv(developer bool) (*Environment, *MockFilesystem, *MockAnalyzer) {
	files := new(MockFilesystem)
	analyzer := new(MockAnalyzer)

	return &Environment{
		Actions:  NewActionTable(developer),
		Files:    files,
		Analyzer: analyzer,
	}, files, analyzer
}

func newInstalled(t *testing.T, env *Environment) *Artifact {
	t.Helper()

	a, err := env.NewArtifact("plugins/Foo_.jar", "abc", 100, StatusInstalled)
	require.NoError(t, err)

	return a
}

func TestNewArtifact(t *testing.T) {
	t.Parallel()

	t.Run("managed plugin", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		a := newInstalled(t, env)

		current, ok := a.Current()
		assert.True(t, ok)
		assert.Equal(t, Version{Checksum: "abc", Timestamp: 100}, current)
		assert.Equal(t, StatusInstalled, a.Status())
		assert.Equal(t, ActionInstalled, a.Action())
		assert.Empty(t, a.PreviousVersions())
		assert.Zero(t, a.FileSize)
		files.AssertNotCalled(t, "FileSize", mock.Anything)
	})

	t.Run("remote only plugin has no current version", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a, err := env.NewArtifact("plugins/New_.jar", "", 0, StatusNew)
		require.NoError(t, err)

		_, ok := a.Current()
		assert.False(t, ok)
		assert.Equal(t, ActionNew, a.Action())
		assert.Empty(t, a.Checksum())
		assert.Zero(t, a.Timestamp())
	})

	t.Run("not managed file gets its size", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		files.On("FileSize", "plugins/Local_.jar").Return(int64(2048), nil)

		a, err := env.NewArtifact("plugins/Local_.jar", "loc", 300, StatusNotFiji)
		require.NoError(t, err)

		assert.Equal(t, int64(2048), a.FileSize)
		assert.False(t, a.IsManaged())
		files.AssertExpectations(t)
	})

	t.Run("size lookup failure", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		files.On("FileSize", "plugins/Local_.jar").Return(int64(0), errDisk)

		a, err := env.NewArtifact("plugins/Local_.jar", "loc", 300, StatusNotFiji)
		assert.ErrorIs(t, err, errDisk)
		assert.Nil(t, a)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		_, err := env.NewArtifact("plugins/Foo_.jar", "abc", 100, Status(77))
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})
}

func TestRecordLocalObservation(t *testing.T) {
	t.Parallel()

	t.Run("unseen checksum marks plugin modified", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)

		a.RecordLocalObservation("xyz", 50)

		assert.Equal(t, StatusModified, a.Status())
		assert.Equal(t, ActionModified, a.Action())
		pending, ok := a.Pending()
		assert.True(t, ok)
		assert.Equal(t, Version{Checksum: "xyz", Timestamp: 50}, pending)
		assert.True(t, a.IsLocallyModified())

		// seeing the current version again restores the status
		a.RecordLocalObservation("abc", 100)

		assert.Equal(t, StatusInstalled, a.Status())
		assert.Equal(t, ActionInstalled, a.Action())
		current, _ := a.Current()
		assert.Equal(t, Version{Checksum: "abc", Timestamp: 100}, current)
		assert.Empty(t, a.PreviousVersions())
	})

	t.Run("previous checksum marks plugin updateable", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.AddPreviousVersion("old", 10)

		a.RecordLocalObservation("old", 10)

		assert.Equal(t, StatusUpdateable, a.Status())
		assert.Equal(t, ActionUpdateable, a.Action())
		pending, ok := a.Pending()
		assert.True(t, ok)
		assert.Equal(t, "old", pending.Checksum)
		assert.True(t, a.UpdateAvailable(false))
	})

	t.Run("without current version the plugin is obsolete", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a, err := env.NewArtifact("plugins/Gone_.jar", "", 0, StatusObsoleteUninstalled)
		require.NoError(t, err)
		a.AddPreviousVersion("old", 10)

		a.RecordLocalObservation("old", 10)
		assert.Equal(t, StatusObsolete, a.Status())
		assert.Equal(t, ActionObsolete, a.Action())

		a.RecordLocalObservation("mine", 20)
		assert.Equal(t, StatusObsoleteModified, a.Status())
		assert.Equal(t, ActionModified, a.Action())
		assert.True(t, a.IsObsolete())
	})

	t.Run("observing the current version twice is idempotent", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.AddPreviousVersion("old", 10)

		a.RecordLocalObservation("abc", 100)
		first := a.PreviousVersions()
		a.RecordLocalObservation("abc", 100)

		assert.Equal(t, StatusInstalled, a.Status())
		assert.Equal(t, first, a.PreviousVersions())
		assert.Len(t, a.PreviousVersions(), 1)
	})

	t.Run("observation resets a pending action", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))

		a.RecordLocalObservation("xyz", 50)

		assert.Equal(t, ActionModified, a.Action())
	})
}

func TestLineage(t *testing.T) {
	t.Parallel()

	t.Run("commit round trip", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a, err := env.NewArtifact("jars/bar.jar", "", 0, StatusNew)
		require.NoError(t, err)

		a.CommitVersion("c1", 1)
		a.CommitVersion("c2", 2)

		current, ok := a.Current()
		assert.True(t, ok)
		assert.Equal(t, Version{Checksum: "c2", Timestamp: 2}, current)
		assert.Contains(t, a.PreviousVersions(), Version{Checksum: "c1", Timestamp: 1})
	})

	t.Run("committing the current version changes nothing", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)

		a.CommitVersion("abc", 100)

		assert.Empty(t, a.PreviousVersions())
	})

	t.Run("has seen checksum", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.AddPreviousVersion("old", 10)

		assert.True(t, a.HasSeenChecksum("old"))
		assert.True(t, a.HasSeenChecksum("abc"))
		assert.False(t, a.HasSeenChecksum("unrelated"))
	})

	t.Run("strictly newer than", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.AddPreviousVersion("old", 10)

		assert.True(t, a.IsStrictlyNewerThan(9))
		assert.False(t, a.IsStrictlyNewerThan(10))
		assert.False(t, a.IsStrictlyNewerThan(50))
		assert.False(t, a.IsStrictlyNewerThan(100))

		empty, err := env.NewArtifact("jars/none.jar", "", 0, StatusNew)
		require.NoError(t, err)
		assert.True(t, empty.IsStrictlyNewerThan(0))
	})

	t.Run("history keeps insertion order without duplicates", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.AddPreviousVersion("b", 20)
		a.AddPreviousVersion("a", 10)
		a.AddPreviousVersion("b", 20)
		a.AddPreviousVersion("abc", 100)

		assert.Equal(t, []Version{{"b", 20}, {"a", 10}}, a.PreviousVersions())
	})
}

func TestSetAction(t *testing.T) {
	t.Parallel()

	t.Run("illegal action", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)

		err := a.SetAction(ActionInstall)

		var illegal *IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, "plugins/Foo_.jar", illegal.Filename)
		assert.Equal(t, StatusInstalled, illegal.Status)
		assert.Equal(t, ActionInstall, illegal.Action)
		assert.Equal(t, ActionInstalled, a.Action())
	})

	t.Run("plain actions are committed", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a, err := env.NewArtifact("plugins/New_.jar", "n", 1, StatusNew)
		require.NoError(t, err)

		require.NoError(t, a.SetAction(ActionInstall))
		assert.True(t, a.ToInstall())
		assert.True(t, a.ActionSpecified())

		a.ResetToDefaultAction()
		assert.Equal(t, ActionNew, a.Action())
		assert.False(t, a.ActionSpecified())
	})

	t.Run("first legal action", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)

		ok, err := a.SetFirstLegalAction(ActionUpdate, ActionInstall)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, ActionInstalled, a.Action())

		a.SetStatus(StatusUpdateable)
		ok, err = a.SetFirstLegalAction(ActionInstall, ActionUpdate, ActionUninstall)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, a.ToUpdate())
	})

	t.Run("set status resets the action", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))

		a.SetStatus(StatusUpdateable)

		assert.Equal(t, ActionUpdateable, a.Action())
	})
}

func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("nothing staged", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(true)
		a := newInstalled(t, env)
		a.SetStatus(StatusModified)

		err := a.SetAction(ActionUpload)

		var nothing *NothingToUploadError
		assert.ErrorAs(t, err, &nothing)
		assert.Equal(t, ActionModified, a.Action())
		files.AssertNotCalled(t, "FileSize", mock.Anything)
	})

	t.Run("pending equals current", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(true)
		a := newInstalled(t, env)
		a.RecordLocalObservation("xyz", 50)
		a.CommitVersion("xyz", 50)
		before := a.Snapshot()

		err := a.SetAction(ActionUpload)

		var nothing *NothingToUploadError
		assert.ErrorAs(t, err, &nothing)
		assert.Equal(t, before, a.Snapshot())
	})

	t.Run("not allowed without developer mode", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		a.RecordLocalObservation("xyz", 50)

		var illegal *IllegalTransitionError
		assert.ErrorAs(t, a.SetAction(ActionUpload), &illegal)
	})

	t.Run("commits the pending version", func(t *testing.T) {
		t.Parallel()

		env, files, analyzer := newTestEnv(true)
		a := newInstalled(t, env)
		a.AddDependency("jars/b.jar", 100, "at-least")
		a.AddDependency("jars/c.jar", 100, "at-least")
		a.RecordLocalObservation("xyz", 150)

		files.On("FileSize", "plugins/Foo_.jar").Return(int64(1234), nil)
		analyzer.On("AnalyzeDependencies", "plugins/Foo_.jar").Return([]Dependency{
			{Filename: "jars/b.jar", MinTimestamp: 200, Relation: "at-least"},
			{Filename: "jars/d.jar", MinTimestamp: 120, Relation: "at-least"},
		}, nil)

		require.NoError(t, a.SetAction(ActionUpload))

		current, _ := a.Current()
		assert.Equal(t, Version{Checksum: "xyz", Timestamp: 150}, current)
		assert.Equal(t, []Version{{"abc", 100}}, a.PreviousVersions())
		assert.Equal(t, int64(1234), a.FileSize)
		assert.Equal(t, StatusModified, a.Status())
		assert.True(t, a.ToUpload())
		assert.Equal(t, "xyz", a.Checksum())
		assert.Equal(t, int64(150), a.Timestamp())
		assert.Equal(t, []Dependency{
			{Filename: "jars/b.jar", MinTimestamp: 200, Relation: "at-least"},
			{Filename: "jars/c.jar", MinTimestamp: 100, Relation: "at-least"},
			{Filename: "jars/d.jar", MinTimestamp: 120, Relation: "at-least"},
		}, a.Dependencies())
		files.AssertExpectations(t)
		analyzer.AssertExpectations(t)
	})

	t.Run("size lookup failure leaves the plugin unchanged", func(t *testing.T) {
		t.Parallel()

		env, files, analyzer := newTestEnv(true)
		a := newInstalled(t, env)
		a.RecordLocalObservation("xyz", 150)
		before := a.Snapshot()
		files.On("FileSize", "plugins/Foo_.jar").Return(int64(0), errDisk)

		err := a.SetAction(ActionUpload)

		assert.ErrorIs(t, err, errDisk)
		assert.Equal(t, before, a.Snapshot())
		analyzer.AssertNotCalled(t, "AnalyzeDependencies", mock.Anything)
	})

	t.Run("analyzer failure leaves the plugin unchanged", func(t *testing.T) {
		t.Parallel()

		env, files, analyzer := newTestEnv(true)
		a := newInstalled(t, env)
		a.RecordLocalObservation("xyz", 150)
		before := a.Snapshot()
		files.On("FileSize", "plugins/Foo_.jar").Return(int64(10), nil)
		analyzer.On("AnalyzeDependencies", "plugins/Foo_.jar").Return(nil, errDisk)

		err := a.SetAction(ActionUpload)

		assert.ErrorIs(t, err, errDisk)
		assert.Equal(t, before, a.Snapshot())
	})

	t.Run("not managed file is promoted to installed", func(t *testing.T) {
		t.Parallel()

		env, files, analyzer := newTestEnv(true)
		files.On("FileSize", "plugins/Local_.jar").Return(int64(99), nil).Once()
		a, err := env.NewArtifact("plugins/Local_.jar", "loc", 300, StatusNotFiji)
		require.NoError(t, err)

		require.NoError(t, a.SetAction(ActionUpload))

		assert.Equal(t, StatusInstalled, a.Status())
		assert.Equal(t, ActionInstalled, a.Action())
		pending, ok := a.Pending()
		assert.True(t, ok)
		assert.Equal(t, Version{Checksum: "loc", Timestamp: 300}, pending)
		assert.Equal(t, int64(99), a.FileSize)
		files.AssertExpectations(t)
		analyzer.AssertNotCalled(t, "AnalyzeDependencies", mock.Anything)
	})
}

func TestRemoval(t *testing.T) {
	t.Parallel()

	t.Run("remove after uninstall", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(true)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))

		require.NoError(t, a.SetAction(ActionRemove))

		_, ok := a.Current()
		assert.False(t, ok)
		assert.Contains(t, a.PreviousVersions(), Version{Checksum: "abc", Timestamp: 100})
		assert.Equal(t, StatusObsolete, a.Status())
		assert.True(t, a.ToUninstall())
		assert.True(t, a.IsActionLegal(a.Action()))
	})

	t.Run("remove without uninstall", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(true)
		a := newInstalled(t, env)

		err := a.SetAction(ActionRemove)

		var invalid *InvalidRemovalError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, ActionInstalled, invalid.Action)
		assert.Equal(t, StatusInstalled, a.Status())
		_, ok := a.Current()
		assert.True(t, ok)
	})

	t.Run("remove is a developer action", func(t *testing.T) {
		t.Parallel()

		env, _, _ := newTestEnv(false)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))

		var illegal *IllegalTransitionError
		assert.ErrorAs(t, a.SetAction(ActionRemove), &illegal)
	})
}

func TestStageForUninstall(t *testing.T) {
	t.Parallel()

	t.Run("requires uninstall action", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		a := newInstalled(t, env)

		var invalid *InvalidRemovalError
		assert.ErrorAs(t, a.StageForUninstall(), &invalid)
		files.AssertNotCalled(t, "TouchOrCreate", mock.Anything)
	})

	t.Run("installed plugin becomes not installed", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))
		files.On("TouchOrCreate", "update/plugins/Foo_.jar").Return(nil)

		require.NoError(t, a.StageForUninstall())

		assert.Equal(t, StatusNotInstalled, a.Status())
		assert.Equal(t, ActionNotInstalled, a.Action())
		files.AssertExpectations(t)
	})

	t.Run("obsolete plugin becomes obsolete uninstalled", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		env.StagingDir = "staging"
		a, err := env.NewArtifact("plugins/Gone_.jar", "", 0, StatusObsolete)
		require.NoError(t, err)
		require.NoError(t, a.SetAction(ActionUninstall))
		files.On("TouchOrCreate", "staging/plugins/Gone_.jar").Return(nil)

		require.NoError(t, a.StageForUninstall())

		assert.Equal(t, StatusObsoleteUninstalled, a.Status())
		assert.Equal(t, ActionObsolete, a.Action())
	})

	t.Run("not managed file keeps its status", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		files.On("FileSize", "plugins/Local_.jar").Return(int64(1), nil)
		files.On("TouchOrCreate", "update/plugins/Local_.jar").Return(nil)
		a, err := env.NewArtifact("plugins/Local_.jar", "loc", 300, StatusNotFiji)
		require.NoError(t, err)
		require.NoError(t, a.SetAction(ActionUninstall))

		require.NoError(t, a.StageForUninstall())

		assert.Equal(t, StatusNotFiji, a.Status())
		assert.True(t, a.ToUninstall())
	})

	t.Run("touch failure is passed through", func(t *testing.T) {
		t.Parallel()

		env, files, _ := newTestEnv(false)
		a := newInstalled(t, env)
		require.NoError(t, a.SetAction(ActionUninstall))
		files.On("TouchOrCreate", "update/plugins/Foo_.jar").Return(errDisk)

		assert.ErrorIs(t, a.StageForUninstall(), errDisk)
		assert.Equal(t, StatusInstalled, a.Status())
		assert.True(t, a.ToUninstall())
	})
}

func TestDerivedQueries(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv(false)
	a := newInstalled(t, env)

	tests := []struct {
		status      Status
		available   bool
		forced      bool
		installable bool
		updateable  bool
		obsolete    bool
	}{
		{StatusNotInstalled, false, false, true, false, false},
		{StatusInstalled, false, true, false, false, false},
		{StatusUpdateable, true, true, false, true, false},
		{StatusModified, false, true, false, true, false},
		{StatusNotFiji, false, true, false, false, false},
		{StatusNew, false, false, true, false, false},
		{StatusObsoleteUninstalled, false, false, false, false, true},
		{StatusObsolete, true, true, false, false, true},
		{StatusObsoleteModified, false, true, false, false, true},
	}

	for _, tt := range tests {
		a.SetStatus(tt.status)
		assert.Equal(t, tt.available, a.UpdateAvailable(false), tt.status.String())
		assert.Equal(t, tt.forced, a.UpdateAvailable(true), tt.status.String())
		assert.Equal(t, tt.installable, a.IsInstallable(), tt.status.String())
		assert.Equal(t, tt.updateable, a.IsUpdateable(), tt.status.String())
		assert.Equal(t, tt.obsolete, a.IsObsolete(), tt.status.String())
		assert.Equal(t, tt.status != StatusNotFiji, a.IsManaged(), tt.status.String())
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv(false)
	a := newInstalled(t, env)

	a.AddAuthor("Jane")
	a.AddAuthor("Joe")
	a.AddAuthor("Jane")
	a.AddLink("https://example.org/foo")
	a.AddPlatform("linux64")
	a.AddCategory("Analysis")
	a.AddDependency("jars/b.jar", 1, "")

	assert.Equal(t, []string{"Jane", "Joe"}, a.Authors())
	assert.Equal(t, []string{"https://example.org/foo"}, a.Links())
	assert.Equal(t, []string{"linux64"}, a.Platforms())
	assert.Equal(t, []string{"Analysis"}, a.Categories())
	assert.True(t, a.DependsOn("jars/b.jar"))
	assert.False(t, a.DependsOn("jars/c.jar"))
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv(true)
	a := newInstalled(t, env)
	a.Description = "Does foo"
	a.AddPreviousVersion("old", 10)
	a.AddDependency("jars/b.jar", 5, "at-least")
	a.AddAuthor("Jane")
	a.RecordLocalObservation("xyz", 150)
	require.NoError(t, a.SetAction(ActionUninstall))

	restored, err := env.Restore(a.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), restored.Snapshot())

	bad := a.Snapshot()
	bad.Action = ActionInstall
	_, err = env.Restore(bad)

	var illegal *IllegalTransitionError
	assert.ErrorAs(t, err, &illegal)
}
