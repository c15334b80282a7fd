// Package policy links a run's policy directory to the shared baseline.
package policy

import (
	"os"
	"path/filepath"

	"github.com/Iron-Ham/olx/internal/errors"
)

// Linker creates per-run symlinks inside a policies directory.
type Linker struct {
	dir string
}

// NewLinker creates a Linker for the given policies directory.
func NewLinker(dir string) *Linker {
	return &Linker{dir: dir}
}

// Dir returns the policies directory.
func (l *Linker) Dir() string {
	return l.dir
}

// Link makes <dir>/<name> a relative symlink to <dir>/<baseline>. An existing
// symlink at that path is replaced; any other existing entry is an error.
func (l *Linker) Link(baseline, name string) error {
	info, err := os.Stat(filepath.Join(l.dir, baseline))
	if err != nil || !info.IsDir() {
		return errors.Wrapf(errors.ErrBaselineMissing, "%s", filepath.Join(l.dir, baseline))
	}

	link := filepath.Join(l.dir, name)
	existing, err := os.Lstat(link)
	switch {
	case err == nil && existing.Mode()&os.ModeSymlink != 0:
		if err := os.Remove(link); err != nil {
			return errors.Wrap(err, "failed to replace existing policy link")
		}
	case err == nil:
		return errors.New("policy path exists and is not a symlink: " + link)
	case !os.IsNotExist(err):
		return errors.Wrap(err, "failed to inspect policy link")
	}

	if err := os.Symlink(baseline, link); err != nil {
		return errors.Wrap(err, "failed to create policy link")
	}
	return nil
}

// Target returns where the link for name points, or "" if it is not a link.
func (l *Linker) Target(name string) string {
	target, err := os.Readlink(filepath.Join(l.dir, name))
	if err != nil {
		return ""
	}
	return target
}
