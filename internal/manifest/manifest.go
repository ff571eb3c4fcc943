// Package manifest discovers the projects to analyze. A solution is an npm
// workspace root (package.json with "workspaces") or a go.work file; a
// project is a package.json or a go.mod. Project manifests also carry the
// declared third-party dependencies.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoManifest is returned when neither a solution nor a project
	// manifest is given.
	ErrNoManifest = errors.New("manifest: no solution or project manifest given")
	// ErrBothManifests is returned when a solution and project manifests are
	// given together.
	ErrBothManifests = errors.New("manifest: solution and project manifests are mutually exclusive")
	// ErrUnsupportedManifest is returned for a file that is not a
	// package.json, go.mod or go.work.
	ErrUnsupportedManifest = errors.New("manifest: unsupported manifest")
)

const (
	packageJSON = "package.json"
	goMod       = "go.mod"
	goWork      = "go.work"
)

// Kind is the ecosystem of a project.
type Kind string

const (
	KindNPM Kind = "npm"
	KindGo  Kind = "go"
)

// Dependency is a declared third-party package.
type Dependency struct {
	Name    string
	Version string
}

// Project is one package.json or go.mod project.
type Project struct {
	// Name is the npm package name or the Go module path.
	Name string
	Kind Kind
	// Manifest is the absolute manifest path.
	Manifest string
	// Dir is the absolute project directory.
	Dir string
	// Dependencies are sorted by name.
	Dependencies []Dependency
}

// ShortName is the last segment of the project name.
func (p *Project) ShortName() string {
	name := strings.TrimRight(p.Name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Solution is the set of projects analyzed together.
type Solution struct {
	// Root is the absolute solution directory. Its base name is the root
	// folder of every file path in the graph.
	Root string
	// Manifest is the solution manifest, or "" for a list of projects.
	Manifest string
	Projects []*Project
}

// Load reads a solution manifest or a list of project manifests. Exactly one
// of the two must be given.
func Load(solution string, projects []string) (*Solution, error) {
	switch {
	case solution != "" && len(projects) > 0:
		return nil, ErrBothManifests
	case solution != "":
		return LoadSolution(solution)
	case len(projects) > 0:
		return LoadProjects(projects)
	default:
		return nil, ErrNoManifest
	}
}

// LoadSolution reads a package.json workspace root or a go.work file.
func LoadSolution(path string) (*Solution, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var projects []*Project
	switch filepath.Base(abs) {
	case packageJSON:
		projects, err = loadWorkspaces(abs)
	case goWork:
		projects, err = loadGoWork(abs)
	default:
		return nil, fmt.Errorf("%w: %s is not a solution manifest", ErrUnsupportedManifest, path)
	}
	if err != nil {
		return nil, err
	}
	return &Solution{Root: filepath.Dir(abs), Manifest: abs, Projects: projects}, nil
}

// LoadProjects reads project manifests. The solution root is the deepest
// directory containing all of them.
func LoadProjects(paths []string) (*Solution, error) {
	s := &Solution{}
	var dirs []string
	for _, p := range paths {
		proj, err := LoadProject(p)
		if err != nil {
			return nil, err
		}
		s.Projects = append(s.Projects, proj)
		dirs = append(dirs, proj.Dir)
	}
	s.Root = commonDir(dirs)
	return s, nil
}

// LoadProject reads one package.json or go.mod.
func LoadProject(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var p *Project
	switch filepath.Base(abs) {
	case packageJSON:
		p, err = parsePackageJSON(abs, data)
	case goMod:
		p, err = parseGoMod(abs, data)
	default:
		return nil, fmt.Errorf("%w: %s is not a project manifest", ErrUnsupportedManifest, path)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RelDir returns the project directory relative to the parent of the
// solution root, "/"-separated: its first segment is the root folder name.
func (s *Solution) RelDir(p *Project) string {
	rel, err := filepath.Rel(filepath.Dir(s.Root), p.Dir)
	if err != nil {
		return filepath.Base(p.Dir)
	}
	return filepath.ToSlash(rel)
}

// Lookup returns the project of the solution with the given name.
func (s *Solution) Lookup(name string) (*Project, bool) {
	for _, p := range s.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// commonDir returns the deepest directory that contains every dir.
func commonDir(dirs []string) string {
	if len(dirs) == 0 {
		return ""
	}
	common := dirs[0]
	for _, d := range dirs[1:] {
		for !within(d, common) {
			parent := filepath.Dir(common)
			if parent == common {
				break
			}
			common = parent
		}
	}
	return common
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sortDeps(deps []Dependency) []Dependency {
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}
