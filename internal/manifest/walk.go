package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludeDirs are never walked.
var DefaultExcludeDirs = []string{".git", "node_modules", "vendor", "dist", "build"}

// Walker enumerates the source files of the projects of a solution. It skips
// excluded directory names, the roots of other projects nested inside the
// one being walked, and paths matched by the solution's root .gitignore or
// the project's own .gitignore.
type Walker struct {
	sol     *Solution
	exclude map[string]bool
	rootIgn *ignore.GitIgnore
	keep    func(path string) bool
}

// NewWalker returns a Walker over sol keeping files for which keep returns
// true. excludeDirs adds to DefaultExcludeDirs.
func NewWalker(sol *Solution, excludeDirs []string, keep func(path string) bool) (*Walker, error) {
	w := &Walker{sol: sol, exclude: make(map[string]bool), keep: keep}
	for _, d := range append(append([]string(nil), DefaultExcludeDirs...), excludeDirs...) {
		w.exclude[d] = true
	}
	ign, err := loadIgnore(sol.Root)
	if err != nil {
		return nil, err
	}
	w.rootIgn = ign
	return w, nil
}

func loadIgnore(dir string) (*ignore.GitIgnore, error) {
	p := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(p); err != nil {
		return nil, nil
	}
	ign, err := ignore.CompileIgnoreFile(p)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", p, err)
	}
	return ign, nil
}

// Files returns the absolute paths of p's source files, sorted.
func (w *Walker) Files(p *Project) ([]string, error) {
	nested := make(map[string]bool)
	for _, other := range w.sol.Projects {
		if other.Dir != p.Dir && within(other.Dir, p.Dir) {
			nested[other.Dir] = true
		}
	}
	var projIgn *ignore.GitIgnore
	if p.Dir != w.sol.Root {
		ign, err := loadIgnore(p.Dir)
		if err != nil {
			return nil, err
		}
		projIgn = ign
	}

	var files []string
	err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == p.Dir {
			return nil
		}
		if d.IsDir() {
			if w.exclude[d.Name()] || nested[path] || w.ignored(path, p.Dir, projIgn, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.ignored(path, p.Dir, projIgn, false) {
			return nil
		}
		if w.keep == nil || w.keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: walk %s: %w", p.Dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ignored matches path against the root and project .gitignore files.
func (w *Walker) ignored(path, projDir string, projIgn *ignore.GitIgnore, dir bool) bool {
	return matches(w.rootIgn, w.sol.Root, path, dir) || matches(projIgn, projDir, path, dir)
}

func matches(ign *ignore.GitIgnore, base, path string, dir bool) bool {
	if ign == nil {
		return false
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir && ign.MatchesPath(rel+"/") {
		return true
	}
	return ign.MatchesPath(rel)
}
