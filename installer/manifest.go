package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crafted-tech/setupkit"
)

// UninstallerEntry is the Entry index used for the staged uninstaller.
const UninstallerEntry = -1

// CopyOp is one resolved file copy.
type CopyOp struct {
	Entry  int // Index into the Files section, or UninstallerEntry
	Source string
	Dest   string
	Flags  []setupkit.FileFlag
}

// Has reports whether the op carries flag f.
func (op CopyOp) Has(f setupkit.FileFlag) bool {
	for _, flag := range op.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// StagingPlan is the ordered list of copies for one run. Building it reads
// the source tree but never writes to the target system.
type StagingPlan struct {
	InstallDir string
	Ops        []CopyOp
	Skipped    []string // Missing sources skipped via skipifsourcedoesntexist

	dests map[string]int
}

// Contains reports whether path is the destination of a planned copy.
func (p *StagingPlan) Contains(path string) bool {
	_, ok := p.dests[filepath.Clean(path)]
	return ok
}

// Destinations returns every planned destination in plan order.
func (p *StagingPlan) Destinations() []string {
	out := make([]string, len(p.Ops))
	for i, op := range p.Ops {
		out[i] = op.Dest
	}
	return out
}

// BuildPlan resolves entries against r into a StagingPlan rooted at {app}.
// Entries keep their declaration order; a glob expands in lexical order.
// When uninstaller is non-empty it is staged last as {uninstallexe}.
//
// Errors are reported before anything is copied:
//   - *UnresolvedTokenError for a destination template that cannot resolve
//   - *SourceMissingError for an absent source without skipifsourcedoesntexist
//   - *DestinationError for a destination outside the install directory
func BuildPlan(spec setupkit.InstallSpec, r *Resolver, entries []setupkit.FileEntry, uninstaller string) (*StagingPlan, error) {
	root, err := r.ResolvePath("{app}")
	if err != nil {
		return nil, err
	}
	plan := &StagingPlan{InstallDir: root, dests: make(map[string]int)}

	for i, e := range entries {
		destDir, err := r.ResolvePath(e.DestDir)
		if err != nil {
			return nil, err
		}

		sources, err := expandSource(e.SourcePath(spec.SourceDir))
		if err != nil {
			if e.Has(setupkit.FlagSkipIfSourceDoesntExist) {
				plan.Skipped = append(plan.Skipped, e.Source)
				continue
			}
			return nil, &SourceMissingError{Entry: i, Source: e.Source, Err: err}
		}

		for _, src := range sources {
			name := filepath.Base(src)
			if e.DestName != "" {
				name, err = r.Resolve(e.DestName)
				if err != nil {
					return nil, err
				}
			}
			dest := filepath.Join(destDir, name)
			if !within(root, dest) {
				return nil, &DestinationError{Entry: i, Dest: dest, Root: root}
			}
			plan.add(CopyOp{Entry: i, Source: src, Dest: dest, Flags: e.Flags})
		}
	}

	if uninstaller != "" {
		dest, err := r.ResolvePath("{uninstallexe}")
		if err != nil {
			return nil, err
		}
		plan.add(CopyOp{
			Entry:  UninstallerEntry,
			Source: uninstaller,
			Dest:   dest,
			Flags:  []setupkit.FileFlag{setupkit.FlagIgnoreVersion},
		})
	}
	return plan, nil
}

// add appends op; a later entry for the same destination replaces the earlier one.
func (p *StagingPlan) add(op CopyOp) {
	if i, ok := p.dests[op.Dest]; ok {
		p.Ops[i] = op
		return
	}
	p.dests[op.Dest] = len(p.Ops)
	p.Ops = append(p.Ops, op)
}

// expandSource returns the regular files matching src, which may be a glob.
func expandSource(src string) ([]string, error) {
	if !strings.ContainsAny(src, "*?[") {
		info, err := os.Stat(src)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", src)
		}
		return []string{src}, nil
	}

	matches, err := filepath.Glob(src)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %s: %w", src, os.ErrNotExist)
	}
	return files, nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// UninstallerPath returns where the uninstaller is staged for source.
func UninstallerPath(installDir, source string) string {
	return filepath.Join(installDir, "unins000"+filepath.Ext(source))
}
