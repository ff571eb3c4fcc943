// Package analyzer runs the extraction pipeline: it loads manifests, emits
// project-tier triples, extracts code-tier triples from every source file on
// a bounded worker pool, and flushes them to a graph store.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codekg/internal/extract"
	"github.com/dusk-indust/codekg/internal/graph"
	"github.com/dusk-indust/codekg/internal/manifest"
	"github.com/dusk-indust/codekg/internal/source"
)

// Tier selects which entity categories a run extracts.
type Tier string

const (
	TierProject Tier = "project"
	TierCode    Tier = "code"
	TierAll     Tier = "all"
)

// ErrInvalidTier is returned by ParseTier.
var ErrInvalidTier = errors.New("analyzer: invalid tier")

// ParseTier parses "project", "code" or "all".
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierProject, TierCode, TierAll:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q (want project, code or all)", ErrInvalidTier, s)
}

func (t Tier) project() bool { return t == TierProject || t == TierAll || t == "" }
func (t Tier) code() bool    { return t == TierCode || t == TierAll || t == "" }

// Request describes one run.
type Request struct {
	// Solution is a solution manifest; Projects a list of project
	// manifests. Exactly one must be set.
	Solution string
	Projects []string
	// Tier defaults to TierAll.
	Tier Tier
	// Delete clears the store before writing.
	Delete bool
	// ExcludeDirs are directory names skipped while enumerating files.
	ExcludeDirs []string
	// Languages restricts the code tier; empty means all.
	Languages []source.Language
	// KeepTriples returns the written triples in Result.Triples.
	KeepTriples bool
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Projects int
	Files    int
	Skipped  int
	Types    int
	Methods  int
	// Triples written is TripleCount; the triples themselves are only kept
	// on request.
	TripleCount int
	Triples     []graph.Triple
	Dropped     map[extract.Drop]int
	Duration    time.Duration
}

// DroppedTotal sums Dropped.
func (r *Result) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Analyzer runs requests against one store.
type Analyzer struct {
	store     graph.Store
	log       *slog.Logger
	workers   int
	batchSize int
	metrics   *Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWorkers bounds the number of files extracted concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithBatchSize sets the number of triples per store write.
func WithBatchSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New returns an Analyzer writing to store.
func New(store graph.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:     store,
		log:       slog.Default(),
		workers:   runtime.NumCPU(),
		batchSize: graph.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics()
	}
	a.log = a.log.With("component", "analyzer")
	return a
}

// Metrics returns the analyzer's collectors.
func (a *Analyzer) Metrics() *Metrics {
	return a.metrics
}

// Run loads the manifests of req, prepares the store and writes the
// requested tiers. Unresolvable references and unreadable files are counted,
// not errors; manifest and store failures abort the run.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Dropped: make(map[extract.Drop]int)}
	log := a.log.With("run", res.RunID)

	sol, err := manifest.Load(req.Solution, req.Projects)
	if err != nil {
		return nil, err
	}
	res.Projects = len(sol.Projects)

	if err := a.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("analyzer: init schema: %w", err)
	}
	if req.Delete {
		log.Info("clearing store")
		if err := a.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("analyzer: clear store: %w", err)
		}
	}

	sink := graph.NewSink()
	if req.Tier.project() {
		sink.Append(projectTriples(sol)...)
	}
	if req.Tier.code() {
		if err := a.codeTier(ctx, log, sol, req, sink, res); err != nil {
			return nil, err
		}
	}

	triples := sink.Triples()
	if req.KeepTriples {
		res.Triples = triples
	}
	n, err := sink.Flush(ctx, a.store, a.batchSize)
	res.TripleCount = n
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	for _, t := range triples {
		a.metrics.triplesTotal.WithLabelValues(string(t.Type)).Inc()
	}

	res.Duration = time.Since(start)
	a.metrics.runSeconds.Observe(res.Duration.Seconds())
	log.Info("run complete",
		"projects", res.Projects,
		"files", res.Files,
		"skipped", res.Skipped,
		"triples", res.TripleCount,
		"dropped", res.DroppedTotal(),
		"duration", res.Duration,
	)
	return res, nil
}

// codeTier loads the projects of each language together and extracts their
// files.
func (a *Analyzer) codeTier(ctx context.Context, log *slog.Logger, sol *manifest.Solution, req Request, sink *graph.Sink, res *Result) error {
	walker, err := manifest.NewWalker(sol, req.ExcludeDirs, isSource)
	if err != nil {
		return err
	}
	frontend := source.New(log)

	for _, lang := range selectedLanguages(req.Languages) {
		projects, err := sourceProjects(sol, walker, lang)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			continue
		}
		prog, err := frontend.Load(ctx, lang, projects)
		if err != nil {
			return fmt.Errorf("analyzer: load %s: %w", lang, err)
		}
		res.Skipped += len(prog.Skipped)
		a.metrics.filesTotal.WithLabelValues(string(lang), "skipped").Add(float64(len(prog.Skipped)))

		x := extract.New(prog.Oracle, extract.WithLogger(log))
		if err := a.extractFiles(ctx, x, lang, prog.Files, sink, res); err != nil {
			return err
		}
	}
	return nil
}

// extractFiles extracts files on at most a.workers goroutines. Each file's
// triples reach the sink as one contiguous batch.
func (a *Analyzer) extractFiles(ctx context.Context, x *extract.Extractor, lang source.Language, files []*extract.File, sink *graph.Sink, res *Result) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := x.Extract(f)
			sink.Append(out.Triples...)

			mu.Lock()
			defer mu.Unlock()
			res.Files++
			res.Types += out.Types
			res.Methods += out.Methods
			for kind, n := range out.Dropped {
				res.Dropped[kind] += n
				a.metrics.droppedTotal.WithLabelValues(string(kind)).Add(float64(n))
			}
			a.metrics.filesTotal.WithLabelValues(string(lang), "extracted").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func isSource(p string) bool {
	_, ok := source.LanguageOf(p)
	return ok
}

func selectedLanguages(want []source.Language) []source.Language {
	if len(want) == 0 {
		return source.Languages
	}
	return want
}

var kindLanguage = map[manifest.Kind]source.Language{
	manifest.KindNPM: source.LangTypeScript,
	manifest.KindGo:  source.LangGo,
}

// sourceProjects returns the solution's projects of one language with their
// files enumerated.
func sourceProjects(sol *manifest.Solution, walker *manifest.Walker, lang source.Language) ([]source.Project, error) {
	var out []source.Project
	for _, p := range sol.Projects {
		if kindLanguage[p.Kind] != lang {
			continue
		}
		files, err := walker.Files(p)
		if err != nil {
			return nil, err
		}
		sp := source.Project{
			Name:   p.Name,
			Dir:    p.Dir,
			RelDir: sol.RelDir(p),
		}
		if p.Kind == manifest.KindGo {
			sp.ModulePath = p.Name
		}
		for _, f := range files {
			if l, ok := source.LanguageOf(f); ok && l == lang {
				sp.Files = append(sp.Files, f)
			}
		}
		out = append(out, sp)
	}
	return out, nil
}
