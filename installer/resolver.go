package installer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

// Environment is what the resolver knows about the target system.
type Environment struct {
	Scope setupkit.Scope

	// Folders maps folder tokens (see platform.FolderTokens) to paths.
	// Folder paths are taken literally. Entries may also override any other
	// token, and those values are templates.
	Folders map[string]string
}

// DetectEnvironment returns the environment of the running system.
func DetectEnvironment(scope setupkit.Scope) (Environment, error) {
	folders, err := platform.DetectFolders()
	if err != nil {
		return Environment{}, err
	}
	return Environment{Scope: scope, Folders: folders}, nil
}

// autoTokens map each auto* token to its per-machine and per-user folder.
var autoTokens = map[string][2]string{
	"autopf":       {platform.FolderProgramFiles, platform.FolderUserProgramFiles},
	"autoprograms": {platform.FolderCommonPrograms, platform.FolderUserPrograms},
	"autodesktop":  {platform.FolderCommonDesktop, platform.FolderUserDesktop},
	"autostartup":  {platform.FolderCommonStartup, platform.FolderUserStartup},
	"autoappdata":  {platform.FolderCommonAppData, platform.FolderUserAppData},
}

var folderTokens = func() map[string]bool {
	m := make(map[string]bool, len(platform.FolderTokens))
	for _, t := range platform.FolderTokens {
		m[t] = true
	}
	return m
}()

// Resolver expands {token} references in templates. It is built once per
// run and is read-only afterwards, so resolving the same template always
// yields the same result.
//
// Token names are case-insensitive. A literal brace is written "{{".
type Resolver struct {
	vars map[string]string
}

// NewResolver creates a Resolver for spec installed into env.
func NewResolver(spec setupkit.InstallSpec, env Environment) *Resolver {
	vars := map[string]string{
		"appname":   spec.AppName,
		"version":   spec.Version,
		"publisher": spec.Publisher,
		"appid":     spec.AppID,
		"app":       spec.DefaultDir,
		"group":     `{autoprograms}\` + groupName(spec),
	}
	for token, folders := range autoTokens {
		if spec.Scope.PerMachine() {
			vars[token] = "{" + folders[0] + "}"
		} else {
			vars[token] = "{" + folders[1] + "}"
		}
	}
	for token, path := range env.Folders {
		token = strings.ToLower(token)
		if folderTokens[token] {
			path = strings.ReplaceAll(path, "{", "{{")
		}
		vars[token] = path
	}
	return &Resolver{vars: vars}
}

func groupName(spec setupkit.InstallSpec) string {
	if spec.GroupName == "" {
		return "{appname}"
	}
	return spec.GroupName
}

// With returns a copy of r with token defined as value.
func (r *Resolver) With(token, value string) *Resolver {
	vars := make(map[string]string, len(r.vars)+1)
	for k, v := range r.vars {
		vars[k] = v
	}
	vars[strings.ToLower(token)] = value
	return &Resolver{vars: vars}
}

// Tokens returns the defined token names in sorted order.
func (r *Resolver) Tokens() []string {
	names := make([]string, 0, len(r.vars))
	for k := range r.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a single token.
func (r *Resolver) Lookup(token string) (string, error) {
	return r.lookup(strings.ToLower(token), "{"+token+"}", nil)
}

// Resolve expands every token in template.
// Returns *UnresolvedTokenError for an undefined token or a definition cycle.
func (r *Resolver) Resolve(template string) (string, error) {
	return r.expand(template, template, nil)
}

// ResolvePath expands template and returns it as a clean absolute path
// using the host separator. Both "\" and "/" are accepted in templates.
func (r *Resolver) ResolvePath(template string) (string, error) {
	s, err := r.Resolve(template)
	if err != nil {
		return "", err
	}
	return NormalizePath(s, template)
}

// NormalizePath converts either separator style to the host's and cleans
// the result, which must be absolute.
func NormalizePath(p, template string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	p = filepath.Clean(filepath.FromSlash(p))
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%q resolves to %q: %w", template, p, ErrRelativePath)
	}
	return p, nil
}

func (r *Resolver) expand(s, template string, stack []string) (string, error) {
	if !strings.ContainsRune(s, '{') {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '{' {
			b.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '}')
		if end < 0 {
			return "", &UnresolvedTokenError{Token: s[i+1:], Template: template}
		}
		name := strings.ToLower(s[i+1 : i+1+end])
		val, err := r.lookup(name, template, stack)
		if err != nil {
			return "", err
		}
		b.WriteString(val)
		i += end + 1
	}
	return b.String(), nil
}

func (r *Resolver) lookup(name, template string, stack []string) (string, error) {
	for _, seen := range stack {
		if seen == name {
			return "", &UnresolvedTokenError{Token: name, Template: template, Cycle: true}
		}
	}
	raw, ok := r.vars[name]
	if !ok {
		return "", &UnresolvedTokenError{Token: name, Template: template}
	}
	return r.expand(raw, template, append(stack, name))
}
