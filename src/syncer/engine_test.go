package syncer_test

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"confsync/src/backup"
	"confsync/src/config"
	"confsync/src/fsops"
	"confsync/src/syncer"
)

type fixture struct {
	dir    string
	root   string
	engine *syncer.Engine
}

func newFixture(t *testing.T, dryRun bool) fixture {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)
	exec := &fsops.Executor{DryRun: dryRun, Log: log}
	root := filepath.Join(dir, "backups")
	mgr := backup.NewManager(root, config.Retention{MaxAgeDays: 30, MaxCount: 10}, exec, log)
	return fixture{
		dir:    dir,
		root:   root,
		engine: &syncer.Engine{Backups: mgr, Exec: exec, Log: log},
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

// snapshot hashes every file under root, keyed by relative path.
func snapshot(t *testing.T, root string) map[string][32]byte {
	t.Helper()
	out := map[string][32]byte{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = sha256.Sum256(b)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func sameSnapshot(a, b map[string][32]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func TestRun_PullCopiesFileAndDirectory(t *testing.T) {
	f := newFixture(t, false)
	sysFile := filepath.Join(f.dir, "sys", ".vimrc")
	repoFile := filepath.Join(f.dir, "repo", "vimrc")
	sysDir := filepath.Join(f.dir, "sys", "nvim")
	repoDir := filepath.Join(f.dir, "repo", "nvim")
	mustWrite(t, sysFile, "set nocompatible")
	mustWrite(t, filepath.Join(sysDir, "init.lua"), "init")
	mustWrite(t, filepath.Join(sysDir, "lua", "opts.lua"), "opts")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "vimrc", SystemPath: sysFile, RepoPath: repoFile, Kind: config.KindFile},
		{Name: "nvim", SystemPath: sysDir, RepoPath: repoDir, Kind: config.KindDir},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if !sum.OK() || sum.Total() != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := mustRead(t, repoFile); got != "set nocompatible" {
		t.Fatalf("repo file = %q", got)
	}
	if got := mustRead(t, filepath.Join(repoDir, "lua", "opts.lua")); got != "opts" {
		t.Fatalf("repo nested file = %q", got)
	}
}

func TestRun_PushReplacesDirectoryEntirely(t *testing.T) {
	f := newFixture(t, false)
	sysDir := filepath.Join(f.dir, "sys", "tool")
	repoDir := filepath.Join(f.dir, "repo", "tool")
	mustWrite(t, filepath.Join(repoDir, "keep.conf"), "keep")
	mustWrite(t, filepath.Join(sysDir, "stale.conf"), "stale")
	mustWrite(t, filepath.Join(sysDir, "old.conf"), "old")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "tool", SystemPath: sysDir, RepoPath: repoDir, Kind: config.KindDir},
	})
	sum := f.engine.Run(reg, syncer.DirectionPush)
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	// Full replace, not a merge: stale entries are gone.
	if fsops.Exists(filepath.Join(sysDir, "stale.conf")) {
		t.Fatalf("destination was merged, not replaced")
	}
	if got := mustRead(t, filepath.Join(sysDir, "keep.conf")); got != "keep" {
		t.Fatalf("system file = %q", got)
	}
}

func TestRun_BackupTakenBeforeOverwrite(t *testing.T) {
	f := newFixture(t, false)
	sysFile := filepath.Join(f.dir, "sys", "rc")
	repoFile := filepath.Join(f.dir, "repo", "rc")
	mustWrite(t, sysFile, "new content")
	mustWrite(t, repoFile, "old content")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "rc", SystemPath: sysFile, RepoPath: repoFile, Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	matches, err := filepath.Glob(filepath.Join(f.root, "rc_repo_*"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("backup artifacts = %v, err = %v; want exactly one", matches, err)
	}
	if got := mustRead(t, matches[0]); got != "old content" {
		t.Fatalf("backup holds %q, want the pre-overwrite content", got)
	}
}

func TestRun_NoBackupWhenDestinationAbsent(t *testing.T) {
	f := newFixture(t, false)
	sysFile := filepath.Join(f.dir, "sys", "rc")
	mustWrite(t, sysFile, "content")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "rc", SystemPath: sysFile, RepoPath: filepath.Join(f.dir, "repo", "rc"), Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	if fsops.Exists(f.root) {
		t.Fatalf("backup root created although no destination existed")
	}
}

func TestRun_MissingSourceSkipsOnlyThatMapping(t *testing.T) {
	f := newFixture(t, false)
	goodSrc := filepath.Join(f.dir, "sys", "good")
	mustWrite(t, goodSrc, "ok")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "gone", SystemPath: filepath.Join(f.dir, "sys", "gone"), RepoPath: filepath.Join(f.dir, "repo", "gone"), Kind: config.KindFile},
		{Name: "good", SystemPath: goodSrc, RepoPath: filepath.Join(f.dir, "repo", "good"), Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if sum.Succeeded() != 1 || sum.Skipped() != 1 || sum.Failed() != 0 {
		t.Fatalf("summary = %+v, want 1 success and 1 skip", sum)
	}
	if sum.OK() {
		t.Fatalf("a skipped mapping must not count as full success")
	}
	if got := mustRead(t, filepath.Join(f.dir, "repo", "good")); got != "ok" {
		t.Fatalf("good mapping not synced: %q", got)
	}
}

func TestRun_TransferFailureContinuesRun(t *testing.T) {
	f := newFixture(t, false)
	badSrc := filepath.Join(f.dir, "sys", "bad")
	badDst := filepath.Join(f.dir, "repo", "bad")
	goodSrc := filepath.Join(f.dir, "sys", "good")
	mustWrite(t, badSrc, "new")
	// The destination is a directory while the mapping kind is file, so the
	// copy-over fails after validation and backup both pass.
	mustWrite(t, filepath.Join(badDst, "occupant"), "x")
	mustWrite(t, goodSrc, "ok")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "bad", SystemPath: badSrc, RepoPath: badDst, Kind: config.KindFile},
		{Name: "good", SystemPath: goodSrc, RepoPath: filepath.Join(f.dir, "repo", "good"), Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if sum.Failed() != 1 || sum.Succeeded() != 1 || sum.Skipped() != 0 {
		t.Fatalf("summary = %+v, want 1 failed and 1 success", sum)
	}
	if sum.OK() {
		t.Fatalf("a failed mapping must not count as full success")
	}
	if got := mustRead(t, filepath.Join(f.dir, "repo", "good")); got != "ok" {
		t.Fatalf("good mapping not synced after the failure: %q", got)
	}
}

func TestRun_BackupFailureFailsOnlyThatMapping(t *testing.T) {
	f := newFixture(t, false)
	// The backup root path is occupied by a plain file, so creating the
	// pre-overwrite backup fails before the transfer starts.
	mustWrite(t, f.root, "not a directory")
	sysFile := filepath.Join(f.dir, "sys", "rc")
	repoFile := filepath.Join(f.dir, "repo", "rc")
	mustWrite(t, sysFile, "new")
	mustWrite(t, repoFile, "old")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "rc", SystemPath: sysFile, RepoPath: repoFile, Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if sum.Failed() != 1 {
		t.Fatalf("summary = %+v, want the mapping failed", sum)
	}
	if sum.Outcomes[0].Reason == "" || !strings.Contains(sum.Outcomes[0].Reason, "backup failed") {
		t.Fatalf("reason = %q, want a backup failure", sum.Outcomes[0].Reason)
	}
	// The destination must be untouched when its backup could not be taken.
	if got := mustRead(t, repoFile); got != "old" {
		t.Fatalf("destination overwritten without a backup: %q", got)
	}
}

func TestRun_PullTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	sysDir := filepath.Join(f.dir, "sys", "conf")
	repoDir := filepath.Join(f.dir, "repo", "conf")
	mustWrite(t, filepath.Join(sysDir, "a.conf"), "a")
	mustWrite(t, filepath.Join(sysDir, "d", "b.conf"), "b")

	reg := config.NewRegistry([]config.Mapping{
		{Name: "conf", SystemPath: sysDir, RepoPath: repoDir, Kind: config.KindDir},
	})
	if sum := f.engine.Run(reg, syncer.DirectionPull); !sum.OK() {
		t.Fatalf("first run: %+v", sum)
	}
	first := snapshot(t, repoDir)
	if sum := f.engine.Run(reg, syncer.DirectionPull); !sum.OK() {
		t.Fatalf("second run: %+v", sum)
	}
	second := snapshot(t, repoDir)
	if !sameSnapshot(first, second) {
		t.Fatalf("second pull changed the repo side")
	}
}

func TestRun_DryRunMutatesNothing(t *testing.T) {
	f := newFixture(t, true)
	sysFile := filepath.Join(f.dir, "sys", "rc")
	repoFile := filepath.Join(f.dir, "repo", "rc")
	mustWrite(t, sysFile, "new")
	mustWrite(t, repoFile, "old")

	before := snapshot(t, f.dir)
	reg := config.NewRegistry([]config.Mapping{
		{Name: "rc", SystemPath: sysFile, RepoPath: repoFile, Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	after := snapshot(t, f.dir)
	if !sameSnapshot(before, after) {
		t.Fatalf("dry-run mutated the filesystem")
	}
}

func TestRun_RetentionSweepRunsAfterSuccess(t *testing.T) {
	f := newFixture(t, false)
	f.engine.Backups.Policy = config.Retention{MaxAgeDays: 30, MaxCount: 1}

	sysFile := filepath.Join(f.dir, "sys", "rc")
	repoFile := filepath.Join(f.dir, "repo", "rc")
	mustWrite(t, sysFile, "new")
	mustWrite(t, repoFile, "old")
	// A stale artifact beyond MaxCount once the sync's own backup lands.
	past := filepath.Join(f.root, "rc_repo_20200101_010101")
	mustWrite(t, past, "ancient")
	ts := time.Now().AddDate(0, 0, -60)
	if err := os.Chtimes(past, ts, ts); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	reg := config.NewRegistry([]config.Mapping{
		{Name: "rc", SystemPath: sysFile, RepoPath: repoFile, Kind: config.KindFile},
	})
	sum := f.engine.Run(reg, syncer.DirectionPull)
	if !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
	if fsops.Exists(past) {
		t.Fatalf("retention sweep did not run after a successful sync")
	}
}
