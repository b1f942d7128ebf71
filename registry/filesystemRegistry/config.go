package filesystemRegistry

import (
	"os"
	"path/filepath"

	"plugin-updater/config"
)

// StorageDir returns the storage directory from cfg, relative paths being
// resolved against the working directory
func StorageDir(cfg *config.PersistenceConfig) string {
	if !filepath.IsAbs(cfg.StorageDir) {
		wd, _ := os.Getwd()

		return filepath.Join(wd, cfg.StorageDir)
	}

	return cfg.StorageDir
}
