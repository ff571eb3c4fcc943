package source

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// importResolver maps TypeScript import specifiers to the solution-relative
// path of the file they name. It is built once per Load with every known
// source file and the workspace packages of the loaded projects.
type importResolver struct {
	fileSet      map[string]bool
	tsWorkspaces map[string]*tsWorkspace
}

// tsWorkspace holds metadata about a single npm workspace package.
type tsWorkspace struct {
	dir            string            // solution-relative directory (e.g. "root/packages/db")
	mainFile       string            // default export target, solution-relative
	subpathExports map[string]string // "./queries" → "root/packages/db/src/queries.ts"
}

func newImportResolver(knownFiles []string) *importResolver {
	r := &importResolver{
		fileSet:      make(map[string]bool, len(knownFiles)),
		tsWorkspaces: make(map[string]*tsWorkspace),
	}
	for _, f := range knownFiles {
		r.fileSet[f] = true
	}
	return r
}

// --- TypeScript resolution ---

var tsExtensions = []string{".ts", ".tsx", "/index.ts", "/index.tsx"}

// resolveTS returns the file an import specifier written in sourceFile
// refers to. External packages do not resolve.
func (r *importResolver) resolveTS(importPath, sourceFile string) (string, bool) {
	// Relative imports.
	if strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") {
		base := path.Join(path.Dir(sourceFile), importPath)
		return r.probeFile(strings.TrimSuffix(base, ".js"), tsExtensions)
	}

	// Workspace package imports.
	return r.resolveTSWorkspace(importPath)
}

func (r *importResolver) resolveTSWorkspace(importPath string) (string, bool) {
	// Try exact match first (e.g. "@test/logger" → mainFile).
	if ws, ok := r.tsWorkspaces[importPath]; ok {
		if ws.mainFile != "" {
			return ws.mainFile, true
		}
		return "", false // workspace has no default export
	}

	// Split into package + subpath. Scoped packages keep their scope:
	// "@scope/pkg/sub/path" → package="@scope/pkg", subpath="./sub/path".
	var pkgName, subpath string
	if strings.HasPrefix(importPath, "@") {
		scope, rest, ok := strings.Cut(importPath, "/")
		if !ok {
			return "", false // bare @scope (invalid)
		}
		name, sub, ok := strings.Cut(rest, "/")
		if !ok {
			return "", false // no subpath, and exact match already failed
		}
		pkgName = scope + "/" + name
		subpath = "./" + sub
	} else {
		name, sub, ok := strings.Cut(importPath, "/")
		if !ok {
			return "", false // bare package, exact match already failed
		}
		pkgName = name
		subpath = "./" + sub
	}

	ws, ok := r.tsWorkspaces[pkgName]
	if !ok {
		return "", false // external package
	}
	if target, ok := ws.subpathExports[subpath]; ok {
		return target, true
	}

	// Fallback: resolve the subpath as a file inside the workspace.
	return r.probeFile(path.Join(ws.dir, subpath[2:]), tsExtensions)
}

// probeFile checks if basePath (with any of the given extensions appended)
// exists in the known file set. No filesystem I/O.
func (r *importResolver) probeFile(basePath string, extensions []string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range extensions {
		candidate := basePath + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// --- Workspace scanning ---

// packageJSON is a minimal representation for reading package.json files.
type packageJSON struct {
	Name    string          `json:"name"`
	Main    string          `json:"main"`
	Types   string          `json:"types"`
	Exports json.RawMessage `json:"exports"`
}

// addWorkspace registers the package.json in absDir as a workspace package
// rooted at the solution-relative relDir.
func (r *importResolver) addWorkspace(absDir, relDir string) {
	data, err := os.ReadFile(filepath.Join(absDir, "package.json"))
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name == "" {
		return
	}

	ws := &tsWorkspace{
		dir:            relDir,
		subpathExports: make(map[string]string),
	}
	r.parseExports(ws, pkg.Exports)

	// Fallback to "types" then "main" if no default export found.
	for _, entry := range []string{pkg.Types, pkg.Main} {
		if ws.mainFile != "" || entry == "" {
			continue
		}
		if resolved, ok := r.probeEntry(path.Join(relDir, entry)); ok {
			ws.mainFile = resolved
		}
	}

	// Last resort: try index.ts in the package root or src/.
	if ws.mainFile == "" {
		for _, try := range []string{
			path.Join(relDir, "src", "index"),
			path.Join(relDir, "index"),
		} {
			if resolved, ok := r.probeFile(try, tsExtensions); ok {
				ws.mainFile = resolved
				break
			}
		}
	}

	r.tsWorkspaces[pkg.Name] = ws
}

// probeEntry resolves a package entry point, which may name the compiled
// .js or .d.ts output of a .ts source.
func (r *importResolver) probeEntry(p string) (string, bool) {
	for _, suffix := range []string{".d.ts", ".js"} {
		p = strings.TrimSuffix(p, suffix)
	}
	return r.probeFile(p, tsExtensions)
}

func (r *importResolver) parseExports(ws *tsWorkspace, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	// Try as a simple string: "exports": "./src/index.ts"
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if resolved, ok := r.probeEntry(path.Join(ws.dir, str)); ok {
			ws.mainFile = resolved
		}
		return
	}

	// Try as an object: "exports": {".": "./src/index.ts", "./queries": "./src/queries.ts"}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return
	}
	for key, val := range obj {
		target := resolveExportValue(val)
		if target == "" {
			continue
		}
		finalPath, ok := r.probeEntry(path.Join(ws.dir, target))
		if !ok {
			continue
		}
		if key == "." {
			ws.mainFile = finalPath
		} else {
			ws.subpathExports[key] = finalPath
		}
	}
}

// resolveExportValue extracts a file path from an export value, which can be
// a string or a conditional object {"types": "...", "import": "...", "default": "..."}.
func resolveExportValue(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"types", "import", "default", "require"} {
		if v, ok := obj[key]; ok {
			// Conditional values can themselves be strings or nested objects.
			return resolveExportValue(v)
		}
	}
	return ""
}

// --- Go resolution ---

// goPackageName guesses the package name of an import path that is not part
// of the loaded modules: the last element, skipping a major version suffix.
func goPackageName(importPath string) string {
	elems := strings.Split(importPath, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = elems[len(elems)-2]
	}
	name = strings.TrimPrefix(name, "go-")
	if i := strings.IndexAny(name, ".-"); i >= 0 {
		name = name[:i]
	}
	return name
}
