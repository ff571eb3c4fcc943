package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// npmPackage is the part of a package.json the analyzer reads.
type npmPackage struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Workspaces       json.RawMessage   `json:"workspaces"`
}

func parsePackageJSON(path string, data []byte) (*Project, error) {
	var pkg npmPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	name := pkg.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	seen := make(map[string]bool)
	var deps []Dependency
	for _, section := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies} {
		for dep, version := range section {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, Dependency{Name: dep, Version: version})
		}
	}
	return &Project{
		Name:         name,
		Kind:         KindNPM,
		Manifest:     path,
		Dir:          dir,
		Dependencies: sortDeps(deps),
	}, nil
}

// workspacePatterns reads "workspaces" in its array form or the
// {"packages": [...]} form.
func workspacePatterns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

// loadWorkspaces expands the workspace globs of a root package.json into
// the member projects, in glob order.
func loadWorkspaces(path string) ([]*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var root npmPackage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	patterns := workspacePatterns(root.Workspaces)
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: %s declares no workspaces", ErrUnsupportedManifest, path)
	}

	dir := filepath.Dir(path)
	excluded := make(map[string]bool)
	var include []string
	for _, pat := range patterns {
		if neg, ok := strings.CutPrefix(pat, "!"); ok {
			matches, err := doublestar.FilepathGlob(filepath.Join(dir, filepath.FromSlash(neg)))
			if err != nil {
				return nil, fmt.Errorf("manifest: workspace pattern %q: %w", pat, err)
			}
			for _, m := range matches {
				excluded[m] = true
			}
			continue
		}
		include = append(include, pat)
	}

	seen := make(map[string]bool)
	var projects []*Project
	for _, pat := range include {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, filepath.FromSlash(pat)))
		if err != nil {
			return nil, fmt.Errorf("manifest: workspace pattern %q: %w", pat, err)
		}
		for _, m := range matches {
			if seen[m] || excluded[m] {
				continue
			}
			seen[m] = true
			manifest := filepath.Join(m, packageJSON)
			if _, err := os.Stat(manifest); err != nil {
				continue
			}
			p, err := LoadProject(manifest)
			if err != nil {
				return nil, err
			}
			projects = append(projects, p)
		}
	}
	return projects, nil
}
