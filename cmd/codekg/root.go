package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codekg/internal/analyzer"
	"github.com/dusk-indust/codekg/internal/config"
	"github.com/dusk-indust/codekg/internal/graph"
	"github.com/dusk-indust/codekg/internal/source"
)

// cliFlags holds the values of command-line flags. Unset flags fall back to
// the config file, then to defaults.
type cliFlags struct {
	Credentials string
	Tier        string
	Delete      string
	Solution    string
	Projects    []string

	Store       string
	URI         string
	KuzuPath    string
	Workers     int
	BatchSize   int
	ConfigPath  string
	LogLevel    string
	MetricsFile string

	ExportCypher  string
	ExportMermaid string
	ExportJSONL   string
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "codekg",
		Short: "Build a code knowledge graph from TypeScript and Go projects",
		Long: `codekg extracts projects, packages, classes, interfaces, methods and the
relationships between them (inheritance, calls, instantiations, file layout)
and merges them into a graph store.

Examples:
  codekg -c neo4j:neo4j:secret -s ./package.json
  codekg -c neo4j:neo4j:secret -p ./api/go.mod -p ./web/package.json -t code
  codekg --store kuzu --kuzu-path ./graph.kuzu -s ./go.work --delete false
  codekg --store memory -p ./package.json --export-mermaid graph.mmd`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Tier, "tier", "t", "", "what to extract: project, code or all (default all)")
	f.StringVarP(&flags.Delete, "delete", "d", "true", "clear the graph before writing: true or false")
	f.StringVarP(&flags.Solution, "solution", "s", "", "solution manifest (package.json with workspaces, or go.work)")
	f.StringSliceVarP(&flags.Projects, "projects", "p", nil, "project manifests (package.json or go.mod)")
	f.StringVar(&flags.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	f.StringVar(&flags.ExportCypher, "export-cypher", "", "also write the triples as a Cypher script to this file")
	f.StringVar(&flags.ExportMermaid, "export-mermaid", "", "also write a Mermaid type diagram to this file")
	f.StringVar(&flags.ExportJSONL, "export-jsonl", "", "also write the triples as JSON lines to this file")
	cmd.MarkFlagsMutuallyExclusive("solution", "projects")
	cmd.MarkFlagsOneRequired("solution", "projects")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.Credentials, "credentials", "c", "", "Neo4j credentials as database:user:password")
	pf.StringVar(&flags.Store, "store", "", "graph store: neo4j, kuzu or memory (default neo4j)")
	pf.StringVar(&flags.URI, "uri", "", "Neo4j bolt URI (default "+graph.DefaultNeo4jURI+")")
	pf.StringVar(&flags.KuzuPath, "kuzu-path", "", "Kuzu database directory (default "+config.DefaultKuzuPath+")")
	pf.IntVar(&flags.Workers, "workers", 0, "files extracted concurrently (default number of CPUs)")
	pf.IntVar(&flags.BatchSize, "batch-size", 0, "triples per store write")
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default codekg.yml in the working directory)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newMCPCmd(&flags), newInitCmd())
	return cmd
}

// options is the resolved configuration of one invocation.
type options struct {
	cfg         config.ProjectConfig
	credentials string
	tier        analyzer.Tier
	delete      bool
	solution    string
	projects    []string
	languages   []source.Language
	log         *slog.Logger

	metricsFile   string
	exportCypher  string
	exportMermaid string
	exportJSONL   string
}

// resolveOptions layers flags over the config file over defaults.
func resolveOptions(cmd *cobra.Command, flags cliFlags) (*options, error) {
	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("store") {
		cfg.Store = flags.Store
	}
	if changed("uri") {
		cfg.URI = flags.URI
	}
	if changed("kuzu-path") {
		cfg.KuzuPath = flags.KuzuPath
	}
	if changed("workers") {
		cfg.Workers = flags.Workers
	}
	if changed("batch-size") {
		cfg.BatchSize = flags.BatchSize
	}
	if changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if changed("tier") {
		cfg.Tier = flags.Tier
	}
	cfg = cfg.WithDefaults()

	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	tier, err := analyzer.ParseTier(cfg.Tier)
	if err != nil {
		return nil, err
	}
	langs, err := parseLanguages(cfg.Languages)
	if err != nil {
		return nil, err
	}
	del, err := strconv.ParseBool(flags.Delete)
	if err != nil {
		return nil, fmt.Errorf("invalid --delete %q: want true or false", flags.Delete)
	}

	return &options{
		cfg:           cfg,
		credentials:   flags.Credentials,
		tier:          tier,
		delete:        del,
		solution:      flags.Solution,
		projects:      flags.Projects,
		languages:     langs,
		log:           log,
		metricsFile:   flags.MetricsFile,
		exportCypher:  flags.ExportCypher,
		exportMermaid: flags.ExportMermaid,
		exportJSONL:   flags.ExportJSONL,
	}, nil
}

func loadConfig(path string) (config.ProjectConfig, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return config.ProjectConfig{}, err
		}
		return *cfg, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.ProjectConfig{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return config.ProjectConfig{}, err
	}
	return *cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func parseLanguages(in []string) ([]source.Language, error) {
	var out []source.Language
	for _, l := range in {
		lang := source.Language(strings.ToLower(l))
		switch lang {
		case source.LangTypeScript, source.LangGo:
			out = append(out, lang)
		default:
			return nil, fmt.Errorf("unsupported language %q", l)
		}
	}
	return out, nil
}

// errNoCredentials is returned when the neo4j store is selected without -c.
var errNoCredentials = errors.New("credentials are required for the neo4j store (-c database:user:password)")

// openStore opens the configured store and checks that it is reachable.
func openStore(ctx context.Context, cfg config.ProjectConfig, credentials string) (graph.Store, error) {
	var (
		store graph.Store
		err   error
	)
	switch cfg.Store {
	case "neo4j":
		if credentials == "" {
			return nil, errNoCredentials
		}
		creds, perr := graph.ParseCredentials(credentials)
		if perr != nil {
			return nil, perr
		}
		if cfg.Database != "" {
			creds.Database = cfg.Database
		}
		store, err = graph.NewNeo4jStore(cfg.URI, creds)
	case "kuzu":
		store, err = openKuzu(cfg.KuzuPath)
	case "memory":
		store = graph.NewMemStore()
	default:
		return nil, fmt.Errorf("unknown store %q (want neo4j, kuzu or memory)", cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Healthcheck(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("store health check failed: %w", err)
	}
	return store, nil
}
