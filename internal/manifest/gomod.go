package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// parseGoMod reads a go.mod. Indirect requirements are not dependencies of
// the module itself and are left out.
func parseGoMod(path string, data []byte) (*Project, error) {
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return nil, fmt.Errorf("manifest: %s has no module directive", path)
	}

	var deps []Dependency
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		deps = append(deps, Dependency{Name: r.Mod.Path, Version: r.Mod.Version})
	}
	return &Project{
		Name:         f.Module.Mod.Path,
		Kind:         KindGo,
		Manifest:     path,
		Dir:          filepath.Dir(path),
		Dependencies: sortDeps(deps),
	}, nil
}

// loadGoWork reads the modules a go.work file uses, in file order.
func loadGoWork(path string) ([]*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	wf, err := modfile.ParseWork(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	var projects []*Project
	for _, u := range wf.Use {
		p, err := LoadProject(filepath.Join(dir, filepath.FromSlash(u.Path), goMod))
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}
