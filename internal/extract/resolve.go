package extract

import (
	"log/slog"

	"github.com/dusk-indust/codekg/internal/graph"
)

// Drop names the kind of node or edge the extractor discarded because the
// oracle could not resolve it to something the graph models.
type Drop string

const (
	DropType      Drop = "type"      // declaration not a class or interface
	DropBase      Drop = "base"      // unresolved or disallowed base type
	DropMethod    Drop = "method"    // unresolved method declaration
	DropConstruct Drop = "construct" // constructed type not a class
	DropInvoke    Drop = "invoke"    // call target not a method
)

// resolvedFile is the outcome of the resolution phase: every node of the file
// that the oracle could identify, with references still unclassified by
// relationship.
type resolvedFile struct {
	path  string
	file  *graph.FileNode
	types []resolvedType
}

type resolvedType struct {
	node    graph.TypeNode
	bases   []graph.TypeNode
	methods []resolvedMethod
}

type resolvedMethod struct {
	node *graph.MethodNode
	refs []reference
}

// reference is a resolved construction or call inside a method body.
type reference struct {
	kind   ExprKind
	target graph.Node
}

// resolver runs the resolution phase for one file.
type resolver struct {
	oracle  Oracle
	log     *slog.Logger
	path    string
	dropped map[Drop]int
}

func (r *resolver) drop(kind Drop, subject string, err error) {
	r.dropped[kind]++
	r.log.Debug("reference dropped",
		"file", r.path, "kind", string(kind), "subject", subject, "err", err)
}

func (r *resolver) resolveFile(f *File) resolvedFile {
	rf := resolvedFile{path: r.path, file: NewFileNode(r.path)}
	for _, decl := range f.Types {
		if decl == nil || (decl.Kind != DeclClass && decl.Kind != DeclInterface) {
			continue
		}
		rt, ok := r.resolveType(decl)
		if ok {
			rf.types = append(rf.types, rt)
		}
	}
	return rf
}

func (r *resolver) resolveType(decl *TypeDecl) (resolvedType, bool) {
	sym, err := r.oracle.DeclaredType(decl)
	if err != nil {
		r.drop(DropType, decl.Name, err)
		return resolvedType{}, false
	}
	node := typeNode(sym, decl.Modifiers)
	if node == nil {
		r.drop(DropType, decl.Name, nil)
		return resolvedType{}, false
	}

	rt := resolvedType{node: node}
	for _, ref := range decl.Bases {
		base, err := r.oracle.TypeOf(ref)
		if err != nil {
			r.drop(DropBase, ref.Name, err)
			continue
		}
		if bn := typeNode(base, nil); bn != nil {
			rt.bases = append(rt.bases, bn)
		} else {
			r.drop(DropBase, ref.Name, nil)
		}
	}
	for _, m := range decl.Methods {
		if rm, ok := r.resolveMethod(m); ok {
			rt.methods = append(rt.methods, rm)
		}
	}
	return rt, true
}

func (r *resolver) resolveMethod(decl *MethodDecl) (resolvedMethod, bool) {
	sym, err := r.oracle.DeclaredMethod(decl)
	if err == nil && sym == nil {
		err = ErrUnresolved
	}
	if err != nil {
		r.drop(DropMethod, decl.Name, err)
		return resolvedMethod{}, false
	}
	rm := resolvedMethod{node: methodNode(sym, decl.Modifiers)}

	for _, e := range decl.Expressions() {
		switch e.Kind {
		case ExprConstruct:
			t, err := r.oracle.TypeOf(e)
			if err != nil {
				r.drop(DropConstruct, e.Text, err)
				continue
			}
			if c, ok := typeNode(t, nil).(*graph.ClassNode); ok {
				rm.refs = append(rm.refs, reference{kind: ExprConstruct, target: c})
			} else {
				r.drop(DropConstruct, e.Text, nil)
			}
		case ExprCall:
			s, err := r.oracle.InvokedSymbol(e)
			if err != nil {
				r.drop(DropInvoke, e.Text, err)
				continue
			}
			if m, ok := s.(*MethodSymbol); ok && m != nil {
				rm.refs = append(rm.refs, reference{kind: ExprCall, target: methodNode(m, nil)})
			} else {
				r.drop(DropInvoke, e.Text, nil)
			}
		}
	}
	return rm, true
}

// typeNode maps a resolved type to its graph node, or nil when the graph
// does not model its kind.
func typeNode(sym *TypeSymbol, modifiers []string) graph.TypeNode {
	if sym == nil {
		return nil
	}
	switch sym.Kind {
	case KindClass:
		return graph.NewClassNode(sym.FullName(), sym.Name, modifiers)
	case KindInterface:
		return graph.NewInterfaceNode(sym.FullName(), sym.Name, modifiers)
	default:
		return nil
	}
}

func methodNode(sym *MethodSymbol, modifiers []string) *graph.MethodNode {
	return graph.NewMethodNode(sym.FullName(), sym.Name, sym.Params, sym.ReturnType, modifiers)
}
