package filesystem

import (
	//nolint:gosec // SHA-1 is the checksum format of the update site
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"plugin-updater/plugin"

	"github.com/spf13/afero"
)

// ErrOutsideRoot is returned for paths that escape the installation root.
var ErrOutsideRoot = errors.New("path is outside of the installation root")

var _ plugin.Filesystem = (*Filesystem)(nil)

// Filesystem gives access to an installation directory. All paths are slash
// separated and relative to the root.
type Filesystem struct {
	fs   afero.Fs
	root string
}

// New returns a Filesystem rooted at root on fs.
func New(fs afero.Fs, root string) *Filesystem {
	return &Filesystem{fs: fs, root: root}
}

// NewOS returns a Filesystem on the real disk, rooted at root which is
// made absolute.
func NewOS(root string) (*Filesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	return New(afero.NewOsFs(), abs), nil
}

func (f *Filesystem) Root() string {
	return f.root
}

func (f *Filesystem) resolve(name string) (string, error) {
	clean := path.Clean(filepath.ToSlash(name))
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}

	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

// FileSize returns the size of filename in bytes.
func (f *Filesystem) FileSize(filename string) (int64, error) {
	p, err := f.resolve(filename)
	if err != nil {
		return 0, err
	}
	info, err := f.fs.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", filename, err)
	}

	return info.Size(), nil
}

// TouchOrCreate sets the modification time of name to now, creating the
// file and missing parent directories first.
func (f *Filesystem) TouchOrCreate(name string) error {
	p, err := f.resolve(name)
	if err != nil {
		return err
	}

	now := time.Now()
	if _, err := f.fs.Stat(p); err == nil {
		if err := f.fs.Chtimes(p, now, now); err != nil {
			return fmt.Errorf("failed to touch %s: %w", name, err)
		}

		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	//nolint:mnd // directory permissions
	if err := f.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	file, err := f.fs.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	return file.Close()
}

// Checksum returns the hex encoded SHA-1 of the contents of filename.
func (f *Filesystem) Checksum(filename string) (string, error) {
	file, err := f.Open(filename)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	//nolint:gosec // see import
	h := sha1.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ModTimestamp returns the modification time of filename as a logical
// timestamp.
func (f *Filesystem) ModTimestamp(filename string) (int64, error) {
	p, err := f.resolve(filename)
	if err != nil {
		return 0, err
	}
	info, err := f.fs.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", filename, err)
	}

	return plugin.TimestampOf(info.ModTime()), nil
}

// Open opens filename for reading.
func (f *Filesystem) Open(filename string) (afero.File, error) {
	p, err := f.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := f.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}

	return file, nil
}

// WriteFile replaces filename with the contents of r, creating parent
// directories as needed.
func (f *Filesystem) WriteFile(filename string, r io.Reader) error {
	p, err := f.resolve(filename)
	if err != nil {
		return err
	}
	//nolint:mnd // directory permissions
	if err := f.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	//nolint:mnd // file permissions
	file, err := f.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()

		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	return file.Close()
}

// Scan lists the regular files below dirs, sorted, as slash separated
// paths relative to the root. Missing directories are skipped.
func (f *Filesystem) Scan(dirs ...string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		p, err := f.resolve(dir)
		if err != nil {
			return nil, err
		}
		if exists, err := afero.DirExists(f.fs, p); err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
		} else if !exists {
			continue
		}

		err = afero.Walk(f.fs, p, func(walked string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(f.root, walked)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
	}
	slices.Sort(files)

	return files, nil
}
