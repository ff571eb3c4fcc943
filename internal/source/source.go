// Package source is the parsing front-end of the extractor. It parses
// TypeScript and Go projects with tree-sitter, indexes the declared types,
// methods and functions, and answers extract.Oracle queries from that index.
//
// Resolution is static and best-effort: receivers are typed from declared
// types and initializers only, and anything declared outside the loaded
// projects stays unresolved.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/codekg/internal/extract"
)

// Language identifies a supported source language.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
)

// Languages lists the supported languages.
var Languages = []Language{LangTypeScript, LangGo}

// LanguageOf returns the language of a source file, or false for files the
// front-end does not read (declaration files and Go tests included).
func LanguageOf(p string) (Language, bool) {
	switch {
	case strings.HasSuffix(p, ".d.ts"):
		return "", false
	case strings.HasSuffix(p, ".ts"), strings.HasSuffix(p, ".tsx"):
		return LangTypeScript, true
	case strings.HasSuffix(p, "_test.go"):
		return "", false
	case strings.HasSuffix(p, ".go"):
		return LangGo, true
	}
	return "", false
}

// Project is one compilation unit to load.
type Project struct {
	// Name is the package or module name.
	Name string
	// Dir is the absolute project directory.
	Dir string
	// RelDir is Dir relative to the parent of the solution root, "/"-separated,
	// so its first segment is the root folder name.
	RelDir string
	// ModulePath is the Go module path.
	ModulePath string
	// Files are absolute paths of the project's source files.
	Files []string
}

// RelPath returns the solution-relative path of a file inside the project.
func (p Project) RelPath(abs string) string {
	rel, err := filepath.Rel(p.Dir, abs)
	if err != nil {
		rel = filepath.Base(abs)
	}
	return extract.NormalizePath(path.Join(p.RelDir, filepath.ToSlash(rel)))
}

// Skipped records a file that could not be loaded.
type Skipped struct {
	Path string
	Err  error
}

// Program is the loaded form of a set of projects of one language.
type Program struct {
	Language Language
	Files    []*extract.File
	Oracle   extract.Oracle
	Skipped  []Skipped
}

// builder turns parsed files of one language into syntax and index entries.
type builder interface {
	addFile(proj *Project, rel string, src []byte, root *tree_sitter.Node) *extract.File
	// finish runs after every file is added.
	finish()
}

// Frontend loads projects.
type Frontend struct {
	log *slog.Logger
}

// New returns a Frontend logging to log, or to slog.Default when nil.
func New(log *slog.Logger) *Frontend {
	if log == nil {
		log = slog.Default()
	}
	return &Frontend{log: log.With("component", "source")}
}

// Load parses every file of the projects and indexes them together, so that
// references between the projects resolve. Files that cannot be read are
// skipped and reported in Program.Skipped.
func (f *Frontend) Load(ctx context.Context, lang Language, projects []Project) (*Program, error) {
	tsLang, err := grammar(lang)
	if err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("source: set language %s: %w", lang, err)
	}

	var known []string
	for _, p := range projects {
		for _, file := range p.Files {
			known = append(known, p.RelPath(file))
		}
	}

	ix := newIndex()
	var b builder
	switch lang {
	case LangTypeScript:
		res := newImportResolver(known)
		for _, p := range projects {
			res.addWorkspace(p.Dir, p.RelDir)
		}
		b = newTSBuilder(ix, res)
	case LangGo:
		b = newGoBuilder(ix)
	}

	prog := &Program{Language: lang, Oracle: &oracle{ix: ix}}
	for i := range projects {
		p := &projects[i]
		for _, abs := range p.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rel := p.RelPath(abs)
			file, err := f.parseFile(parser, b, p, abs, rel)
			if err != nil {
				f.log.Warn("skipping file", "path", rel, "err", err)
				prog.Skipped = append(prog.Skipped, Skipped{Path: rel, Err: err})
				continue
			}
			prog.Files = append(prog.Files, file)
		}
	}
	b.finish()
	return prog, nil
}

func (f *Frontend) parseFile(parser *tree_sitter.Parser, b builder, p *Project, abs, rel string) (*extract.File, error) {
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", rel)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		f.log.Debug("syntax errors, extracting what parsed", "path", rel)
	}
	return b.addFile(p, rel, src, root), nil
}

func grammar(lang Language) (*tree_sitter.Language, error) {
	switch lang {
	case LangTypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case LangGo:
		return tree_sitter.NewLanguage(tree_sitter_go.Language()), nil
	default:
		return nil, fmt.Errorf("source: unsupported language: %s", lang)
	}
}

// ---------- Shared syntax helpers ----------

// text returns the source text of n, or "" for a nil node.
func text(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// namedChildren returns the named children of n.
func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// children returns all children of n, anonymous tokens included.
func children(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, n.ChildCount())
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// fieldNodes returns every child of n stored under field name.
func fieldNodes(n *tree_sitter.Node, name string) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()
	nodes := n.ChildrenByFieldName(name, cursor)
	out := make([]*tree_sitter.Node, len(nodes))
	for i := range nodes {
		out[i] = &nodes[i]
	}
	return out
}

// exprCollector builds the extract.Expr forest of a method body while
// recording its bindings in scope.
type exprCollector struct {
	src   []byte
	scope *methodScope
	// classify returns the expression kind of n and its receiver syntax, or
	// ok=false for nodes that are not constructions or calls.
	classify func(n *tree_sitter.Node) (kind extract.ExprKind, v *valueExpr, ok bool)
	// bind records a declaration made by n, if any.
	bind func(n *tree_sitter.Node)
}

// collect walks n in pre-order and returns the constructions and calls
// beneath it, each nesting the ones inside it.
func (c *exprCollector) collect(n *tree_sitter.Node) []*extract.Expr {
	var out []*extract.Expr
	for _, child := range namedChildren(n) {
		out = append(out, c.visit(child)...)
	}
	return out
}

func (c *exprCollector) visit(n *tree_sitter.Node) []*extract.Expr {
	c.bind(n)
	kind, v, ok := c.classify(n)
	if !ok {
		return c.collect(n)
	}
	e := &extract.Expr{
		Kind:   kind,
		Text:   compact(text(n, c.src)),
		Handle: &exprHandle{value: v, scope: c.scope},
	}
	e.Children = c.collect(n)
	return []*extract.Expr{e}
}

// compact shortens expression text for logs.
func compact(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

// modulePath returns the file path without its extension.
func modulePath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}
