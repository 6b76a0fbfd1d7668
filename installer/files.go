package installer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/crafted-tech/setupkit"
)

// CopyFunc copies one file. Controllers accept a replacement for tests.
type CopyFunc func(src, dst string) error

// StepStageFile creates a Step that copies op.Source to op.Dest according to
// the op's overwrite flags. Created directories, created files and replaced
// files are recorded in j so a failed run can be undone.
func StepStageFile(op CopyOp, j *Journal, copyFn CopyFunc) Step {
	if copyFn == nil {
		copyFn = CopyExecutable
	}
	return Step{
		Name: fmt.Sprintf("Copy %s", filepath.Base(op.Dest)),
		Action: func() StepResult {
			exists := FileExists(op.Dest)
			if exists {
				if op.Has(setupkit.FlagOnlyIfDoesntExist) {
					return Skipped("already exists")
				}
				if !op.Has(setupkit.FlagIgnoreVersion) {
					if same, err := SameContent(op.Source, op.Dest); err == nil && same {
						return Skipped("up to date")
					}
				}
			}

			fail := func(err error) StepResult {
				return Failed(&CopyFailedError{Source: op.Source, Dest: op.Dest, Err: err})
			}
			if err := j.EnsureDir(filepath.Dir(op.Dest)); err != nil {
				return fail(err)
			}

			change := Change{Kind: ChangeFileCreated, Path: op.Dest}
			if exists {
				backup, err := j.Backup(op.Dest)
				if err != nil {
					return fail(err)
				}
				change = Change{Kind: ChangeFileReplaced, Path: op.Dest, Backup: backup}
			}

			// Record before copying so a partial write is undone too.
			idx := j.Record(change)
			if err := copyFn(op.Source, op.Dest); err != nil {
				return fail(err)
			}
			if sum, err := FileDigest(op.Dest); err == nil {
				j.setDigest(idx, sum)
			}
			if exists {
				return Success("replaced")
			}
			return Success("")
		},
	}
}

// StepEnsureDir creates a Step that ensures a directory exists.
// Skips if the directory already exists.
func StepEnsureDir(path string) Step {
	return Step{
		Name: fmt.Sprintf("Create %s", filepath.Base(path)),
		Action: func() StepResult {
			if DirExists(path) {
				return Skipped("already exists")
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return Failed(fmt.Errorf("create directory: %w", err))
			}
			return Success("")
		},
	}
}

// StepDeleteFile creates a Step that deletes a file.
// Skips if the file doesn't exist.
func StepDeleteFile(path string) Step {
	return Step{
		Name: fmt.Sprintf("Delete %s", filepath.Base(path)),
		Action: func() StepResult {
			if _, err := os.Lstat(path); os.IsNotExist(err) {
				return Skipped("not found")
			}
			if err := os.Remove(path); err != nil {
				return Failed(err)
			}
			return Success("")
		},
	}
}

// StepDeleteTree creates a Step that deletes a file or a directory with
// everything below it. Skips if the path doesn't exist.
func StepDeleteTree(path string) Step {
	return Step{
		Name: fmt.Sprintf("Delete %s", filepath.Base(path)),
		Action: func() StepResult {
			if _, err := os.Lstat(path); os.IsNotExist(err) {
				return Skipped("not found")
			}
			if err := os.RemoveAll(path); err != nil {
				return Failed(err)
			}
			return Success("")
		},
	}
}

// StepDeleteDirIfEmpty creates a Step that deletes a directory if it's empty.
// Skips if the directory doesn't exist or is not empty.
func StepDeleteDirIfEmpty(path string) Step {
	return Step{
		Name: fmt.Sprintf("Remove %s", filepath.Base(path)),
		Action: func() StepResult {
			entries, err := os.ReadDir(path)
			if os.IsNotExist(err) {
				return Skipped("not found")
			}
			if err != nil {
				return Failed(err)
			}
			if len(entries) > 0 {
				return Skipped("not empty")
			}
			if err := os.Remove(path); err != nil {
				return Failed(err)
			}
			return Success("")
		},
	}
}

// CopyFile copies a file from src to dst, creating parent directories as needed.
// A partially written destination is removed on failure.
func CopyFile(src, dst string) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if cerr := dstFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination: %w", cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return nil
}

// CopyExecutable copies an executable file, handling locked files on Windows.
// On Windows, if the destination file is locked (in use), this function
// attempts to delete it first, which Windows allows for locked executables
// (the file is deleted when all handles are closed).
func CopyExecutable(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(dst) // Ignore error - will fail on copy if locked
	}
	return CopyFile(src, dst)
}

// FileDigest returns the xxhash64 digest of a file's content.
func FileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// SameContent reports whether two files have identical content.
func SameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}
	da, err := FileDigest(a)
	if err != nil {
		return false, err
	}
	db, err := FileDigest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// FileExists returns true if the file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists returns true if the directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
