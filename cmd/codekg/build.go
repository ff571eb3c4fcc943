package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dusk-indust/codekg/internal/analyzer"
	"github.com/dusk-indust/codekg/internal/export"
	"github.com/dusk-indust/codekg/internal/extract"
	"github.com/dusk-indust/codekg/internal/graph"
)

// runBuild runs one extraction into the configured store, then writes the
// requested exports and metrics.
func runBuild(ctx context.Context, out io.Writer, opts *options) error {
	store, err := openStore(ctx, opts.cfg, opts.credentials)
	if err != nil {
		return err
	}
	defer store.Close()

	a := analyzer.New(store,
		analyzer.WithLogger(opts.log),
		analyzer.WithWorkers(opts.cfg.Workers),
		analyzer.WithBatchSize(opts.cfg.BatchSize),
	)
	res, err := a.Run(ctx, analyzer.Request{
		Solution:    opts.solution,
		Projects:    opts.projects,
		Tier:        opts.tier,
		Delete:      opts.delete,
		ExcludeDirs: opts.cfg.ExcludeDirs,
		Languages:   opts.languages,
		KeepTriples: opts.exporting(),
	})
	if err != nil {
		return err
	}

	if err := writeExports(opts, res.Triples); err != nil {
		return err
	}
	if opts.metricsFile != "" {
		if err := a.Metrics().WriteTextfile(opts.metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	printSummary(out, res)
	return nil
}

func (o *options) exporting() bool {
	return o.exportCypher != "" || o.exportMermaid != "" || o.exportJSONL != ""
}

func writeExports(opts *options, triples []graph.Triple) error {
	if opts.exportCypher != "" {
		if err := writeFile(opts.exportCypher, func(w io.Writer) error {
			return export.WriteCypher(w, triples)
		}); err != nil {
			return err
		}
	}
	if opts.exportJSONL != "" {
		if err := writeFile(opts.exportJSONL, func(w io.Writer) error {
			return export.WriteJSONL(w, triples)
		}); err != nil {
			return err
		}
	}
	if opts.exportMermaid != "" {
		if err := writeFile(opts.exportMermaid, func(w io.Writer) error {
			_, err := io.WriteString(w, export.GenerateMermaid(triples))
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, res *analyzer.Result) {
	fmt.Fprintf(w, "run %s: %d projects, %d files (%d skipped), %d types, %d methods, %d triples in %s\n",
		res.RunID, res.Projects, res.Files, res.Skipped, res.Types, res.Methods, res.TripleCount, res.Duration.Round(time.Millisecond))
	if len(res.Dropped) == 0 {
		return
	}
	kinds := make([]string, 0, len(res.Dropped))
	for k := range res.Dropped {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	fmt.Fprint(w, "  dropped:")
	for _, k := range kinds {
		fmt.Fprintf(w, " %s=%d", k, res.Dropped[extract.Drop(k)])
	}
	fmt.Fprintln(w)
}
