package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- TypeScript: relative imports ---

func TestResolveTS_Relative(t *testing.T) {
	r := newImportResolver([]string{
		"app/src/index.ts",
		"app/src/service.ts",
		"app/src/types.ts",
		"app/src/sub/handler.ts",
		"app/src/components/index.ts",
		"app/src/view.tsx",
	})

	tests := []struct {
		name       string
		importPath string
		sourceFile string
		want       string
		wantOK     bool
	}{
		{"dot-slash", "./service", "app/src/index.ts", "app/src/service.ts", true},
		{"parent", "../types", "app/src/sub/handler.ts", "app/src/types.ts", true},
		{"index file", "./components", "app/src/index.ts", "app/src/components/index.ts", true},
		{"tsx", "./view", "app/src/index.ts", "app/src/view.tsx", true},
		{"js suffix", "./service.js", "app/src/index.ts", "app/src/service.ts", true},
		{"not found", "./nonexistent", "app/src/index.ts", "", false},
		{"external", "lodash", "app/src/index.ts", "", false},
		{"external scoped", "@nestjs/common", "app/src/index.ts", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.resolveTS(tt.importPath, tt.sourceFile)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- TypeScript: workspace resolution ---

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestResolveTS_Workspace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "logger", "package.json"), `{"name": "@test/logger", "main": "dist/index.js"}`)
	writeFile(t, filepath.Join(dir, "db", "package.json"), `{
		"name": "@test/db",
		"exports": {
			".": {"types": "./src/index.ts", "default": "./dist/index.js"},
			"./queries": "./src/queries.ts"
		}
	}`)
	writeFile(t, filepath.Join(dir, "util", "package.json"), `{"name": "util", "types": "./lib/util.d.ts"}`)

	r := newImportResolver([]string{
		"mono/logger/src/index.ts",
		"mono/db/src/index.ts",
		"mono/db/src/queries.ts",
		"mono/db/src/extra/helpers.ts",
		"mono/util/lib/util.ts",
		"mono/app/src/app.ts",
	})
	r.addWorkspace(filepath.Join(dir, "logger"), "mono/logger")
	r.addWorkspace(filepath.Join(dir, "db"), "mono/db")
	r.addWorkspace(filepath.Join(dir, "util"), "mono/util")
	r.addWorkspace(filepath.Join(dir, "missing"), "mono/missing")

	tests := []struct {
		name       string
		importPath string
		want       string
		wantOK     bool
	}{
		{"index fallback", "@test/logger", "mono/logger/src/index.ts", true},
		{"conditional export", "@test/db", "mono/db/src/index.ts", true},
		{"subpath export", "@test/db/queries", "mono/db/src/queries.ts", true},
		{"subpath file", "@test/db/src/extra/helpers", "mono/db/src/extra/helpers.ts", true},
		{"types entry", "util", "mono/util/lib/util.ts", true},
		{"unknown subpath", "@test/db/nope", "", false},
		{"external", "@other/pkg", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.resolveTS(tt.importPath, "mono/app/src/app.ts")
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, r.tsWorkspaces, 3)
}

func TestResolveTS_InvalidPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{not json`)

	r := newImportResolver([]string{"p/src/index.ts"})
	r.addWorkspace(dir, "p")
	assert.Empty(t, r.tsWorkspaces)

	// Relative imports still work.
	got, ok := r.resolveTS("./index", "p/src/other.ts")
	require.True(t, ok)
	assert.Equal(t, "p/src/index.ts", got)
}

// --- Go package names ---

func TestGoPackageName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"fmt", "fmt"},
		{"net/http", "http"},
		{"github.com/neo4j/neo4j-go-driver/v5/neo4j", "neo4j"},
		{"github.com/jackc/pgx/v5", "pgx"},
		{"gopkg.in/yaml.v3", "yaml"},
		{"github.com/sabhiram/go-gitignore", "gitignore"},
		{"github.com/kuzudb/go-kuzu", "kuzu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, goPackageName(tt.in), tt.in)
	}
}
