package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plugin-updater/config"
	"plugin-updater/filesystem"
	"plugin-updater/metrics"
	"plugin-updater/orm"
	"plugin-updater/plugin"
	"plugin-updater/registry"
	"plugin-updater/registry/filesystemRegistry"
	"plugin-updater/registry/memoryRegistry"
	"plugin-updater/registry/s3"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const version = "v0.1.0"

func main() {
	flags := pflag.NewFlagSet("plugin-updater", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to the configuration file")
	flags.Bool("developer-mode", false, "allow uploading and removing plugins")
	flags.String("root-dir", ".", "installation root directory")
	flags.String("staging-dir", "update", "staging directory below the root")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	var req requests
	flags.BoolVar(&req.update, "update", false, "mark and download available updates")
	flags.BoolVar(&req.force, "force", false, "also update modified plugins")
	flags.StringSliceVar(&req.install, "install", nil, "plugins to install")
	flags.StringSliceVar(&req.upload, "upload", nil, "plugins to upload")
	flags.StringSliceVar(&req.uninstall, "uninstall", nil, "plugins to uninstall")
	flags.StringSliceVar(&req.remove, "remove", nil, "plugins to remove from the update site")
	_ = flags.Parse(os.Args[1:])

	if err := config.Load(config.Cfg, *configFile, flags, config.Defaults...); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	config.SetupLogging(config.Cfg)

	log.Info().
		Str("version", version).
		Str("root_dir", config.Cfg.RootDir).
		Bool("developer_mode", config.Cfg.DeveloperMode).
		Msg("starting plugin updater")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := orm.InitDB(config.Cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	files, err := filesystem.NewOS(config.Cfg.RootDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open installation")
	}

	persister := initializeRegistryPersister(ctx)

	u := newUpdater(
		db,
		files,
		persister,
		config.Cfg.DeveloperMode,
		config.Cfg.StagingDir,
		config.Cfg.ScanDirs,
		config.Cfg.DependencyMap(),
	)

	start := time.Now()
	rep, err := u.run(ctx, req)
	if err != nil {
		//nolint:gocritic // exitAfterDefer: the deferred close is best effort
		log.Fatal().Err(err).Msg("update run failed")
	}

	event := log.Info().
		Int("scanned", rep.scanned).
		Int("dropped", rep.dropped).
		Int("uploaded", rep.uploaded).
		Int("downloaded", rep.downloaded).
		Int("staged", rep.staged)
	for _, status := range plugin.Statuses() {
		if n := rep.byStatus[status]; n > 0 {
			event = event.Int(status.String(), n)
		}
	}
	event.Msg("update run finished")

	if config.Cfg.MetricsFile != "" {
		collector := metrics.NewCollector()
		rep.record(collector)
		collector.RecordSuccess(start, time.Now())
		if err := collector.WriteFile(config.Cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Msg("failed to write metrics")
		}
	}
}

func initializeRegistryPersister(ctx context.Context) registry.Registry {
	var persister registry.Registry
	switch config.Cfg.Persistence.Type {
	case "filesystem":
		persister = initFilesystemRegistry()
	case "memory":
		log.Warn().Msg("memory registry selected, uploads are lost on exit")
		persister = memoryRegistry.New()
	case "s3":
		persister = initS3Registry(ctx)
	default:
		log.Warn().
			Msgf("unknown persistence type '%s', defaulting to filesystem", config.Cfg.Persistence.Type)
		persister = initFilesystemRegistry()
	}

	return persister
}

func initFilesystemRegistry() registry.Registry {
	// Initialize filesystem registry
	storageDir := filesystemRegistry.StorageDir(&config.Cfg.Persistence)
	fsRegistry, err := filesystemRegistry.New(afero.NewOsFs(), storageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize filesystem registry")
	}
	log.Info().
		Str("storage_dir", storageDir).
		Msg("filesystem registry initialized")

	return fsRegistry
}

func initS3Registry(ctx context.Context) registry.Registry {
	// Initialize s3 registry
	s3Registry, err := s3.New(ctx, config.Cfg.Persistence.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize s3 registry")
	}
	log.Info().Str("bucket", s3Registry.Bucket).Msg("s3 registry initialized")

	return s3Registry
}
