package rollback

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"confsync/src/backup"
	"confsync/src/backupid"
	"confsync/src/config"
	"confsync/src/fsops"
)

// Engine restores an original location from a backup artifact. The artifact
// filename is the only metadata: it names the mapping and the side to
// restore to, and a name that does not parse aborts the operation with no
// side effects.
type Engine struct {
	Registry *config.Registry
	Backups  *backup.Manager
	Exec     *fsops.Executor
	Log      *logrus.Logger
}

// Restore replaces the original location encoded in the backup's name with
// the backup's content. The live state, if any, is backed up first under
// a "<config>_<location>_prerollback" logical name; failure to take that
// safety backup aborts the rollback.
func (e *Engine) Restore(name string) error {
	name = filepath.Base(name)
	id, err := backupid.Parse(name)
	if err != nil {
		return err
	}
	_, original, err := e.Registry.Resolve(id.Config, id.Loc)
	if err != nil {
		return err
	}

	src := filepath.Join(e.Backups.Root, name)
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("backup %s: %w", name, err)
	}
	if err := unix.Access(src, unix.R_OK); err != nil {
		return fmt.Errorf("backup %s is not readable", name)
	}

	if fsops.Exists(original) {
		logical := fmt.Sprintf("%s_%s_prerollback", id.Config, id.Loc)
		if _, err := e.Backups.Create(original, logical); err != nil {
			return fmt.Errorf("safety backup of %s failed, aborting rollback: %w", original, err)
		}
	}

	// The replace primitive follows the artifact's own on-disk type, so a
	// backup restores exactly what was saved.
	var ops []fsops.Op
	if info.IsDir() {
		ops = []fsops.Op{
			fsops.RemoveTree{Path: original},
			fsops.CopyTree{Src: src, Dst: original},
		}
	} else {
		ops = []fsops.Op{
			fsops.MkdirAll{Path: filepath.Dir(original)},
			fsops.CopyFile{Src: src, Dst: original},
		}
	}
	if err := e.Exec.Apply(ops...); err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	if !e.Exec.DryRun {
		e.Log.Infof("restored %s from %s", original, name)
	}
	return nil
}

// RestoreLatest restores the most recent backup for configName on the given
// location, or on either side when loc is empty. Recency is decided by
// lexicographic comparison of the fixed-width timestamps. Finding no backup
// is an error, not a silent no-op.
func (e *Engine) RestoreLatest(configName string, loc backupid.Location) error {
	entries, err := e.Backups.List()
	if err != nil {
		return err
	}
	var best string
	var bestID backupid.ID
	for _, entry := range entries {
		id, err := backupid.Parse(entry.Name)
		if err != nil {
			continue
		}
		if id.Config != configName {
			continue
		}
		if loc != "" && id.Loc != loc {
			continue
		}
		if best == "" || id.Timestamp > bestID.Timestamp {
			best = entry.Name
			bestID = id
		}
	}
	if best == "" {
		if loc != "" {
			return fmt.Errorf("no backups found for %q on the %s side", configName, loc)
		}
		return fmt.Errorf("no backups found for %q", configName)
	}
	return e.Restore(best)
}
