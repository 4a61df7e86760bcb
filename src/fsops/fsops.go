package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Op is a single planned filesystem mutation. Ops are plain data values so
// dry-run rendering and real execution share one description and cannot
// drift.
type Op interface {
	// Describe returns a one-line, user-facing description of the mutation.
	Describe() string
	apply() error
}

// CopyFile copies Src over Dst, truncating any existing file.
type CopyFile struct {
	Src, Dst string
}

func (o CopyFile) Describe() string { return fmt.Sprintf("copy file %s -> %s", o.Src, o.Dst) }

func (o CopyFile) apply() error { return copyFile(o.Src, o.Dst) }

// CopyTree recursively copies the directory Src to Dst. Dst must not exist.
type CopyTree struct {
	Src, Dst string
}

func (o CopyTree) Describe() string { return fmt.Sprintf("copy directory %s -> %s", o.Src, o.Dst) }

func (o CopyTree) apply() error { return copyTree(o.Src, o.Dst) }

// RemoveTree removes Path and, for directories, everything under it.
type RemoveTree struct {
	Path string
}

func (o RemoveTree) Describe() string { return fmt.Sprintf("remove %s", o.Path) }

func (o RemoveTree) apply() error { return os.RemoveAll(o.Path) }

// MkdirAll creates Path and any missing parents.
type MkdirAll struct {
	Path string
}

func (o MkdirAll) Describe() string { return fmt.Sprintf("create directory %s", o.Path) }

func (o MkdirAll) apply() error { return os.MkdirAll(o.Path, 0o755) }

// Executor applies ops, or in dry-run mode logs what would be done instead.
// Every mutation in the sync, backup, and rollback paths goes through here.
type Executor struct {
	DryRun bool
	Log    *logrus.Logger
}

// Apply runs each op in order and stops at the first failure. In dry-run
// mode no op runs; each is reported at info level.
func (e *Executor) Apply(ops ...Op) error {
	for _, op := range ops {
		if e.DryRun {
			e.Log.Infof("dry-run: would %s", op.Describe())
			continue
		}
		e.Log.Debug(op.Describe())
		if err := op.apply(); err != nil {
			return fmt.Errorf("%s: %w", op.Describe(), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(s, d); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(s, d); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether path names an existing entry.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// TreeStats sums file count and total bytes under path. A plain file counts
// as one file of its own size; a missing path is zero-valued, not an error.
func TreeStats(path string) (files int, bytes int64) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, 0
	}
	if !info.IsDir() {
		return 1, info.Size()
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		f, b := TreeStats(filepath.Join(path, entry.Name()))
		files += f
		bytes += b
	}
	return files, bytes
}
