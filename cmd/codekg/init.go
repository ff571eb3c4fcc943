package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codekg/internal/config"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// mcpServerName is the key of the codekg entry in .mcp.json.
const mcpServerName = "codekg"

func newInitCmd() *cobra.Command {
	var (
		force bool
		addr  string
	)
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter codekg.yml and register the MCP server in .mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, addr, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and entries")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address the MCP server will listen on")
	return cmd
}

// runInit installs the codekg config file and MCP configuration into the
// target project directory.
func runInit(out io.Writer, projectRoot, addr string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	written, err := config.WriteTemplate(abs, force)
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintf(out, "  created ./%s\n", config.FileName)
	} else {
		fmt.Fprintf(out, "  skipped ./%s (exists, use --force to overwrite)\n", config.FileName)
	}

	if err := mergeMCPConfig(out, filepath.Join(abs, ".mcp.json"), addr, force); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSetup complete. Start the server with: codekg mcp --addr %s\n", addr)
	return nil
}

// mergeMCPConfig creates or merges the codekg entry into .mcp.json, keeping
// every other server.
func mergeMCPConfig(out io.Writer, mcpPath, addr string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers[mcpServerName]; exists && !force {
		fmt.Fprintf(out, "  skipped .mcp.json %s entry (exists, use --force to overwrite)\n", mcpServerName)
		return nil
	}

	entry, err := json.Marshal(map[string]string{
		"type": "http",
		"url":  "http://" + addr + "/",
	})
	if err != nil {
		return err
	}
	cfg.MCPServers[mcpServerName] = entry

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(out, "  %s .mcp.json with %s MCP server\n", action, mcpServerName)
	return nil
}
