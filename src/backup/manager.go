package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"confsync/src/backupid"
	"confsync/src/config"
	"confsync/src/fsops"
)

// timestampSuffix matches entries carrying the fixed-width backup timestamp.
// Anything else under the backup root is ignored, not deleted.
var timestampSuffix = regexp.MustCompile(`_\d{8}_\d{6}$`)

// Entry is one backup artifact discovered under the backup root.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	ModTime time.Time `json:"mod_time"`
}

// Stats summarizes the backup root.
type Stats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}

// Manager owns the backup root: it creates timestamped backups, lists them,
// and applies retention cleanup.
type Manager struct {
	Root   string
	Policy config.Retention
	Exec   *fsops.Executor
	Log    *logrus.Logger

	// Now is the clock for timestamps and age cutoffs; tests pin it.
	Now func() time.Time
}

// NewManager builds a manager over root with the given retention policy.
func NewManager(root string, policy config.Retention, exec *fsops.Executor, log *logrus.Logger) *Manager {
	return &Manager{Root: root, Policy: policy, Exec: exec, Log: log, Now: time.Now}
}

// Create copies target into the backup root under logical plus the current
// timestamp and returns the backup path. A missing target is a no-op success
// with an empty path. In dry-run mode only the planned operations are
// reported.
func (m *Manager) Create(target, logical string) (string, error) {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		m.Log.Debugf("nothing to back up: %s does not exist", target)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", target, err)
	}
	ts := m.Now()
	name := fmt.Sprintf("%s_%s", logical, ts.Format(backupid.TimestampLayout))
	dest := filepath.Join(m.Root, name)
	// Second-resolution timestamps collide when the same destination is
	// backed up twice in quick succession; nudge forward until the name is
	// free so an existing artifact is never overwritten.
	for fsops.Exists(dest) {
		ts = ts.Add(time.Second)
		name = fmt.Sprintf("%s_%s", logical, ts.Format(backupid.TimestampLayout))
		dest = filepath.Join(m.Root, name)
	}

	ops := []fsops.Op{fsops.MkdirAll{Path: m.Root}}
	if info.IsDir() {
		ops = append(ops, fsops.CopyTree{Src: target, Dst: dest})
	} else {
		ops = append(ops, fsops.CopyFile{Src: target, Dst: dest})
	}
	if err := m.Exec.Apply(ops...); err != nil {
		return "", fmt.Errorf("back up %s: %w", target, err)
	}
	if !m.Exec.DryRun {
		m.verify(target, dest)
	}
	return dest, nil
}

// verify compares entry types between source and backup. A mismatch is
// logged as a warning only; the backup stands.
func (m *Manager) verify(target, dest string) {
	src, err := os.Lstat(target)
	if err != nil {
		m.Log.Warnf("integrity check: stat %s: %v", target, err)
		return
	}
	got, err := os.Lstat(dest)
	if err != nil {
		m.Log.Warnf("integrity check: stat %s: %v", dest, err)
		return
	}
	if src.IsDir() != got.IsDir() {
		m.Log.Warnf("integrity check: %s and %s differ in type", target, dest)
	}
}

// List returns the backup artifacts under the root, oldest first by
// modification time. A missing root yields an empty list.
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup root: %w", err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if !timestampSuffix.MatchString(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(m.Root, de.Name()),
			IsDir:   de.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.Before(entries[j].ModTime)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Cleanup removes backups older than MaxAgeDays or beyond the newest
// MaxCount; the two candidate sets are unioned. Removal failures are logged
// and the sweep continues. The returned paths are those removed (or, in
// dry-run mode, those that would be).
func (m *Manager) Cleanup() ([]string, error) {
	entries, err := m.List()
	if err != nil {
		return nil, err
	}
	cutoff := m.Now().AddDate(0, 0, -m.Policy.MaxAgeDays)
	candidates := make(map[string]bool)
	for _, e := range entries {
		if e.ModTime.Before(cutoff) {
			candidates[e.Path] = true
		}
	}
	if excess := len(entries) - m.Policy.MaxCount; excess > 0 {
		for _, e := range entries[:excess] {
			candidates[e.Path] = true
		}
	}
	var removed []string
	for _, e := range entries {
		if !candidates[e.Path] {
			continue
		}
		if err := m.Exec.Apply(fsops.RemoveTree{Path: e.Path}); err != nil {
			m.Log.Warnf("cleanup: %v", err)
			continue
		}
		removed = append(removed, e.Path)
	}
	return removed, nil
}

// CollectStats sums the size of every backup artifact. It never fails: a
// missing or unreadable backup root degrades to a zero-valued result with a
// warning.
func (m *Manager) CollectStats() Stats {
	entries, err := m.List()
	if err != nil {
		m.Log.Warnf("stats: %v", err)
		return Stats{}
	}
	var s Stats
	for _, e := range entries {
		_, bytes := fsops.TreeStats(e.Path)
		s.Count++
		s.TotalBytes += bytes
	}
	return s
}
