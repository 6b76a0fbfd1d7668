package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ChangeKind identifies a filesystem or system mutation made during a run.
type ChangeKind string

const (
	ChangeDirCreated    ChangeKind = "dir_created"
	ChangeFileCreated   ChangeKind = "file_created"
	ChangeFileReplaced  ChangeKind = "file_replaced"
	ChangeAppRegistered ChangeKind = "app_registered"
)

// Change is one journaled mutation.
type Change struct {
	Kind     ChangeKind
	Path     string // File or directory path, or the registry key name
	Backup   string // Copy of the replaced file, for ChangeFileReplaced
	Digest   uint64 // Content digest after staging, zero if unknown
	Shortcut bool   // The file is a shortcut rather than a staged file

	undo func() error
}

// Journal records every mutation of an install run in order, so that a
// failed run can be undone newest-first.
type Journal struct {
	mu        sync.Mutex
	changes   []Change
	backupDir string
	backups   int
	log       *Logger
}

// NewJournal creates an empty journal.
func NewJournal(log *Logger) *Journal {
	return &Journal{log: log}
}

// Record appends a change and returns its index.
func (j *Journal) Record(c Change) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.changes = append(j.changes, c)
	return len(j.changes) - 1
}

// RecordUndo appends a change that is undone by calling undo.
func (j *Journal) RecordUndo(kind ChangeKind, path string, undo func() error) {
	j.Record(Change{Kind: kind, Path: path, undo: undo})
}

func (j *Journal) setDigest(i int, sum uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if i >= 0 && i < len(j.changes) {
		j.changes[i].Digest = sum
	}
}

// Changes returns a copy of the recorded changes in order.
func (j *Journal) Changes() []Change {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Change, len(j.changes))
	copy(out, j.changes)
	return out
}

// Len returns the number of recorded changes.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.changes)
}

// EnsureDir creates dir and any missing parents, journaling each directory
// it creates outermost first.
func (j *Journal) EnsureDir(dir string) error {
	var missing []string
	for d := filepath.Clean(dir); !DirExists(d); {
		missing = append(missing, d)
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	for i := len(missing) - 1; i >= 0; i-- {
		err := os.Mkdir(missing[i], 0755)
		if errors.Is(err, os.ErrExist) && DirExists(missing[i]) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		j.Record(Change{Kind: ChangeDirCreated, Path: missing[i]})
	}
	return nil
}

// Backup copies an existing file aside so it can be restored by Rollback.
// It returns the backup location.
func (j *Journal) Backup(path string) (string, error) {
	j.mu.Lock()
	if j.backupDir == "" {
		dir, err := os.MkdirTemp("", "setupkit-backup-*")
		if err != nil {
			j.mu.Unlock()
			return "", fmt.Errorf("create backup directory: %w", err)
		}
		j.backupDir = dir
	}
	j.backups++
	dst := filepath.Join(j.backupDir, fmt.Sprintf("%04d-%s", j.backups, filepath.Base(path)))
	j.mu.Unlock()

	if err := CopyFile(path, dst); err != nil {
		return "", fmt.Errorf("back up %s: %w", path, err)
	}
	return dst, nil
}

// Rollback undoes every recorded change newest-first. It keeps going past
// failures and returns them joined. The journal is empty afterwards.
func (j *Journal) Rollback() error {
	j.mu.Lock()
	changes := j.changes
	j.changes = nil
	j.mu.Unlock()

	var errs []error
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if err := j.undo(c); err != nil {
			j.log.Error("Rollback of %s %s failed: %v", c.Kind, c.Path, err)
			errs = append(errs, fmt.Errorf("undo %s %s: %w", c.Kind, c.Path, err))
			continue
		}
		j.log.Info("Rolled back %s %s", c.Kind, c.Path)
	}
	if err := j.Discard(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (j *Journal) undo(c Change) error {
	if c.undo != nil {
		return c.undo()
	}
	switch c.Kind {
	case ChangeFileCreated:
		if err := os.Remove(c.Path); err != nil && !isNotExist(err) {
			return err
		}
	case ChangeFileReplaced:
		return CopyExecutable(c.Backup, c.Path)
	case ChangeDirCreated:
		entries, err := os.ReadDir(c.Path)
		if isNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			j.log.Warn("Keeping %s: not empty", c.Path)
			return nil
		}
		return os.Remove(c.Path)
	}
	return nil
}

// Discard removes the backups once the run no longer needs them.
func (j *Journal) Discard() error {
	j.mu.Lock()
	dir := j.backupDir
	j.backupDir = ""
	j.mu.Unlock()
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove backups: %w", err)
	}
	return nil
}
