package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codekg/internal/analyzer"
	"github.com/dusk-indust/codekg/internal/mcptools"
)

func newMCPCmd(flags *cliFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the graph tools over MCP (streamable HTTP)",
		Long: `Serve build_graph, query_nodes, get_relationships and graph_stats as MCP
tools over streamable HTTP, backed by the configured store.

Examples:
  codekg mcp --store kuzu --addr :8080
  codekg mcp -c neo4j:neo4j:secret --uri neo4j://db:7687`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, *flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, opts.cfg, opts.credentials)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := mcptools.NewCodeIntelService(store, opts.log,
				analyzer.WithWorkers(opts.cfg.Workers),
				analyzer.WithBatchSize(opts.cfg.BatchSize),
			)
			return mcptools.RunMCPServer(ctx, svc, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
