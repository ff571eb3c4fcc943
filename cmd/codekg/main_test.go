package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tsManifest = "../../testdata/fixtures/ts_project/package.json"
	goManifest = "../../testdata/fixtures/go_project/go.mod"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_ManifestFlags(t *testing.T) {
	_, err := execute(t, "--store", "memory")
	assert.Error(t, err, "one of --solution or --projects is required")

	_, err = execute(t, "--store", "memory", "-s", "package.json", "-p", tsManifest)
	assert.Error(t, err, "--solution and --projects are exclusive")

	_, err = execute(t, "--store", "memory", "-p", tsManifest, "extra")
	assert.Error(t, err)
}

func TestRoot_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"tier", []string{"--store", "memory", "-p", tsManifest, "-t", "everything"}, "invalid tier"},
		{"store", []string{"--store", "sqlite", "-p", tsManifest}, "unknown store"},
		{"log level", []string{"--store", "memory", "-p", tsManifest, "--log-level", "loud"}, "invalid log level"},
		{"neo4j credentials", []string{"-p", tsManifest}, "credentials are required"},
		{"bad credentials", []string{"-c", "nopassword", "-p", tsManifest}, "database:user:password"},
		{"missing config", []string{"--config", "/nonexistent/codekg.yml", "-p", tsManifest}, "config"},
		{"delete value", []string{"--store", "memory", "-p", tsManifest, "-d", "maybe"}, "invalid --delete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRoot_DeleteTakesValue(t *testing.T) {
	for _, args := range [][]string{
		{"-d", "false"},
		{"--delete", "false"},
		{"--delete=false"},
		{"-d", "true"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, err := execute(t, append([]string{"--store", "memory", "-p", goManifest, "-t", "project"}, args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "1 projects")
		})
	}
}

func TestRoot_MemoryRunWithExports(t *testing.T) {
	dir := t.TempDir()
	cypher := filepath.Join(dir, "graph.cypher")
	mermaid := filepath.Join(dir, "graph.mmd")
	jsonl := filepath.Join(dir, "graph.jsonl")
	metrics := filepath.Join(dir, "codekg.prom")

	out, err := execute(t,
		"--store", "memory",
		"-p", tsManifest, "-p", goManifest,
		"--workers", "2",
		"--export-cypher", cypher,
		"--export-mermaid", mermaid,
		"--export-jsonl", jsonl,
		"--metrics-file", metrics,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "2 projects, 9 files (0 skipped)")

	data, err := os.ReadFile(cypher)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE CONSTRAINT class_pk IF NOT EXISTS")
	assert.Contains(t, string(data), "MERGE (a)-[:DEPENDS_ON]->(b);")

	data, err = os.ReadFile(mermaid)
	require.NoError(t, err)
	assert.Contains(t, string(data), "graph TD\n")
	assert.Contains(t, string(data), `["UserService"]`)

	data, err = os.ReadFile(jsonl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"HAVE"`)

	data, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `codekg_analyzer_files_total{language="typescript",status="extracted"} 5`)
}

func TestRoot_ConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "codekg.yml")
	require.NoError(t, os.WriteFile(p, []byte("store: memory\ntier: project\nlogLevel: warn\n"), 0o644))

	out, err := execute(t, "--config", p, "-p", goManifest)
	require.NoError(t, err)
	assert.Contains(t, out, "1 projects, 0 files")

	// Flags override the file.
	out, err = execute(t, "--config", p, "-p", goManifest, "-t", "code")
	require.NoError(t, err)
	assert.Contains(t, out, "1 projects, 4 files")
}

func TestRoot_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestMCP_InvalidStore(t *testing.T) {
	_, err := execute(t, "mcp", "--store", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp.json"),
		[]byte(`{"mcpServers": {"other": {"type": "stdio", "command": "other"}}}`), 0o644))

	out, err := execute(t, "init", dir, "--addr", "localhost:9090")
	require.NoError(t, err)
	assert.Contains(t, out, "created ./codekg.yml")
	assert.Contains(t, out, "updated .mcp.json")

	var cfg mcpConfig
	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Contains(t, cfg.MCPServers, "other")
	assert.JSONEq(t, `{"type": "http", "url": "http://localhost:9090/"}`, string(cfg.MCPServers["codekg"]))

	// A second run keeps what is there.
	out, err = execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped ./codekg.yml")
	assert.Contains(t, out, "skipped .mcp.json codekg entry")
}
