package installer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crafted-tech/setupkit"
	"github.com/google/uuid"
)

// RecordFileName is the uninstall record written into the install directory.
const RecordFileName = "unins000.json"

const recordFormat = 1

// Record lists everything an installation put on the system so that it can
// be uninstalled without the installer script.
type Record struct {
	Format      int            `json:"format"`
	RecordID    string         `json:"record_id"`
	AppID       string         `json:"app_id"`
	AppName     string         `json:"app_name"`
	Version     string         `json:"version"`
	Publisher   string         `json:"publisher,omitempty"`
	Scope       setupkit.Scope `json:"scope"`
	InstallDir  string         `json:"install_dir"`
	InstalledAt time.Time      `json:"installed_at"`
	Uninstaller string         `json:"uninstaller,omitempty"`
	RegistryKey string         `json:"registry_key,omitempty"`
	Tasks       []string       `json:"tasks"`

	// Files and Dirs are in creation order; uninstall walks them backwards.
	Files           []RecordedFile   `json:"files"`
	Shortcuts       []string         `json:"shortcuts"`
	Dirs            []string         `json:"dirs"`
	UninstallDelete []RecordedDelete `json:"uninstall_delete"`
}

// RecordedFile is a staged file and its content digest at install time.
type RecordedFile struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
}

// RecordedDelete is a resolved UninstallDelete entry.
type RecordedDelete struct {
	Path     string              `json:"path"`
	Kind     setupkit.DeleteKind `json:"kind"`
	UserData bool                `json:"user_data,omitempty"`
}

// NewRecord creates an empty record for spec installed into installDir.
func NewRecord(spec setupkit.InstallSpec, installDir string) *Record {
	return &Record{
		Format:      recordFormat,
		RecordID:    uuid.NewString(),
		AppID:       spec.AppID,
		AppName:     spec.AppName,
		Version:     spec.Version,
		Publisher:   spec.Publisher,
		Scope:       spec.Scope,
		InstallDir:  installDir,
		InstalledAt: time.Now().UTC(),
		Tasks:       []string{},
		Files:       []RecordedFile{},
		Shortcuts:   []string{},
		Dirs:        []string{},
	}
}

// RecordPath returns the record location for an install directory.
func RecordPath(installDir string) string {
	return filepath.Join(installDir, RecordFileName)
}

// AddChanges appends the files, shortcuts and directories from journaled
// changes. Registry changes are tracked through RegistryKey instead.
func (r *Record) AddChanges(changes []Change) {
	for _, c := range changes {
		switch c.Kind {
		case ChangeDirCreated:
			r.Dirs = appendUnique(r.Dirs, c.Path)
		case ChangeFileCreated, ChangeFileReplaced:
			if c.Shortcut {
				r.Shortcuts = appendUnique(r.Shortcuts, c.Path)
				continue
			}
			r.addFile(RecordedFile{Path: c.Path, Digest: FormatDigest(c.Digest)})
		}
	}
}

func (r *Record) addFile(f RecordedFile) {
	for i := range r.Files {
		if r.Files[i].Path == f.Path {
			r.Files[i] = f
			return
		}
	}
	r.Files = append(r.Files, f)
}

// Merge folds in a previous installation's record: what the previous
// install created stays owned by the application unless this one replaced it.
// Previous entries come first so that creation order is preserved.
func (r *Record) Merge(prev *Record) {
	if prev == nil {
		return
	}
	files := append([]RecordedFile(nil), prev.Files...)
	merged := &Record{Files: files}
	for _, f := range r.Files {
		merged.addFile(f)
	}
	r.Files = merged.Files

	r.Shortcuts = mergeUnique(prev.Shortcuts, r.Shortcuts)
	r.Dirs = mergeUnique(prev.Dirs, r.Dirs)

	seen := make(map[string]bool)
	for _, d := range r.UninstallDelete {
		seen[d.Path] = true
	}
	for _, d := range prev.UninstallDelete {
		if !seen[d.Path] {
			r.UninstallDelete = append(r.UninstallDelete, d)
		}
	}
	if r.RegistryKey == "" {
		r.RegistryKey = prev.RegistryKey
	}
}

// UserData returns the paths of user-data entries.
func (r *Record) UserData() []string {
	var paths []string
	for _, d := range r.UninstallDelete {
		if d.UserData {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

// Validate checks the fields uninstall depends on.
func (r *Record) Validate() error {
	if r.Format != recordFormat {
		return fmt.Errorf("unsupported record format %d", r.Format)
	}
	if _, err := uuid.Parse(r.RecordID); err != nil {
		return fmt.Errorf("record_id: %w", err)
	}
	if r.AppName == "" {
		return errors.New("app_name is required")
	}
	if !filepath.IsAbs(r.InstallDir) {
		return fmt.Errorf("install_dir %q is not absolute", r.InstallDir)
	}
	for _, f := range r.Files {
		if !filepath.IsAbs(f.Path) {
			return fmt.Errorf("file %q is not absolute", f.Path)
		}
		if f.Digest != "" {
			if _, err := ParseDigest(f.Digest); err != nil {
				return fmt.Errorf("file %q: %w", f.Path, err)
			}
		}
	}
	return nil
}

// Save writes the record atomically: readers see the old or the new file,
// never a partial one.
func (r *Record) Save(path string) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'), 0644)
}

// LoadRecord reads a record. Unknown fields and trailing content are errors.
func LoadRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r Record
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("decode %s: trailing content", path)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record on disk: %w", err)
	}
	return &r, nil
}

// FormatDigest renders a content digest for the record. Zero means unknown.
func FormatDigest(sum uint64) string {
	if sum == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", sum)
}

// ParseDigest parses a digest written by FormatDigest.
func ParseDigest(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func mergeUnique(first, second []string) []string {
	out := append([]string(nil), first...)
	for _, s := range second {
		out = appendUnique(out, s)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
