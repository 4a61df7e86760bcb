package syncer

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"confsync/src/backup"
	"confsync/src/backupid"
	"confsync/src/config"
	"confsync/src/fsops"
)

// Direction is the transfer direction of a sync run.
type Direction string

const (
	// DirectionPull copies system -> repo.
	DirectionPull Direction = "pull"
	// DirectionPush copies repo -> system.
	DirectionPush Direction = "push"
)

// SourceLoc is the side read from.
func (d Direction) SourceLoc() backupid.Location {
	if d == DirectionPull {
		return backupid.LocationSystem
	}
	return backupid.LocationRepo
}

// DestLoc is the side overwritten.
func (d Direction) DestLoc() backupid.Location {
	if d == DirectionPull {
		return backupid.LocationRepo
	}
	return backupid.LocationSystem
}

// Status classifies one mapping's sync outcome.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is the result of syncing a single mapping.
type Outcome struct {
	Mapping string
	Status  Status
	Reason  string
}

// Summary aggregates the outcomes of one run. The exit status and the final
// report derive from it alone.
type Summary struct {
	Outcomes []Outcome
}

func (s Summary) count(st Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}

// Succeeded is the number of mappings synced without error.
func (s Summary) Succeeded() int { return s.count(StatusSuccess) }

// Skipped is the number of mappings skipped by validation.
func (s Summary) Skipped() int { return s.count(StatusSkipped) }

// Failed is the number of mappings whose backup or transfer failed.
func (s Summary) Failed() int { return s.count(StatusFailed) }

// Total is the number of mappings attempted.
func (s Summary) Total() int { return len(s.Outcomes) }

// OK reports whether every mapping succeeded.
func (s Summary) OK() bool { return s.Succeeded() == s.Total() }

// Engine synchronizes mappings one at a time in declaration order. Transfers
// are destructive full replaces, never merges: a directory destination is
// removed and recopied whole, a file destination is overwritten. The backup
// taken beforehand is the recovery path for the window between remove and
// copy.
type Engine struct {
	Backups *backup.Manager
	Exec    *fsops.Executor
	Log     *logrus.Logger
}

// Run syncs every mapping in the registry, continuing past per-mapping
// failure, and runs the retention sweep after a non-dry-run with at least
// one success.
func (e *Engine) Run(reg *config.Registry, dir Direction) Summary {
	var sum Summary
	for _, m := range reg.Mappings() {
		o := e.syncOne(m, dir)
		switch o.Status {
		case StatusSuccess:
			e.Log.Infof("%s: synced", m.Name)
		case StatusSkipped:
			e.Log.Warnf("%s: skipped: %s", m.Name, o.Reason)
		case StatusFailed:
			e.Log.Errorf("%s: %s", m.Name, o.Reason)
		}
		sum.Outcomes = append(sum.Outcomes, o)
	}
	if !e.Exec.DryRun && sum.Succeeded() > 0 {
		removed, err := e.Backups.Cleanup()
		if err != nil {
			e.Log.Warnf("retention sweep: %v", err)
		} else if len(removed) > 0 {
			e.Log.Infof("retention sweep removed %d old backup(s)", len(removed))
		}
	}
	return sum
}

func (e *Engine) syncOne(m config.Mapping, dir Direction) Outcome {
	src := m.Path(dir.SourceLoc())
	dst := m.Path(dir.DestLoc())

	if err := ValidatePaths(src, dst); err != nil {
		return Outcome{Mapping: m.Name, Status: StatusSkipped, Reason: err.Error()}
	}

	files, bytes := fsops.TreeStats(src)
	if m.Kind == config.KindDir {
		e.Log.Infof("%s: %s -> %s (%d files, %d bytes)", m.Name, src, dst, files, bytes)
	} else {
		e.Log.Infof("%s: %s -> %s (%d bytes)", m.Name, src, dst, bytes)
	}

	if fsops.Exists(dst) {
		logical := fmt.Sprintf("%s_%s", m.Name, dir.DestLoc())
		if _, err := e.Backups.Create(dst, logical); err != nil {
			return Outcome{Mapping: m.Name, Status: StatusFailed, Reason: fmt.Sprintf("backup failed: %v", err)}
		}
	}

	var ops []fsops.Op
	if m.Kind == config.KindDir {
		ops = []fsops.Op{
			fsops.RemoveTree{Path: dst},
			fsops.CopyTree{Src: src, Dst: dst},
		}
	} else {
		ops = []fsops.Op{
			fsops.MkdirAll{Path: filepath.Dir(dst)},
			fsops.CopyFile{Src: src, Dst: dst},
		}
	}
	if err := e.Exec.Apply(ops...); err != nil {
		return Outcome{Mapping: m.Name, Status: StatusFailed, Reason: fmt.Sprintf("transfer failed: %v", err)}
	}
	return Outcome{Mapping: m.Name, Status: StatusSuccess}
}
