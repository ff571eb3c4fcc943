package extract

import (
	"errors"
	"strings"

	"github.com/dusk-indust/codekg/internal/graph"
)

// ErrUnresolved is returned by an Oracle that cannot resolve a node. The
// extractor drops the affected node or edge and carries on.
var ErrUnresolved = errors.New("symbol not resolved")

// Oracle is the semantic resolver of a front-end. Implementations must be
// safe for concurrent use once indexing is complete.
type Oracle interface {
	// DeclaredType resolves the symbol a type declaration introduces.
	DeclaredType(decl *TypeDecl) (*TypeSymbol, error)
	// DeclaredMethod resolves the symbol a method declaration introduces.
	DeclaredMethod(decl *MethodDecl) (*MethodSymbol, error)
	// TypeOf resolves the type of a *TypeRef or of a construction *Expr.
	TypeOf(node any) (*TypeSymbol, error)
	// InvokedSymbol resolves what a call expression invokes.
	InvokedSymbol(call *Expr) (Symbol, error)
}

// Namespace is one level of a namespace chain. Parent is nil at the top.
type Namespace struct {
	Name   string
	Parent *Namespace
}

// NewNamespace builds a chain from outermost to innermost segment and
// returns the innermost level, or nil for no segments.
func NewNamespace(segments ...string) *Namespace {
	var ns *Namespace
	for _, s := range segments {
		if s == "" {
			continue
		}
		ns = &Namespace{Name: s, Parent: ns}
	}
	return ns
}

// Qualify prefixes name with the namespace chain, innermost level last:
// "a.b.name". Folding stops at the first unnamed level.
func (ns *Namespace) Qualify(name string) string {
	parts := []string{name}
	for cur := ns; cur != nil && cur.Name != ""; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// String renders the chain as "a.b".
func (ns *Namespace) String() string {
	if ns == nil || ns.Name == "" {
		return ""
	}
	return ns.Parent.Qualify(ns.Name)
}

// TypeKind is the semantic kind of a resolved type.
type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindInterface TypeKind = "interface"
	KindOther     TypeKind = "other"
)

// Symbol is what an Oracle resolves an invocation to: *MethodSymbol,
// *TypeSymbol or *ValueSymbol.
type Symbol interface {
	symbol()
}

// TypeSymbol is a resolved type.
type TypeSymbol struct {
	Name      string
	Kind      TypeKind
	Namespace *Namespace
}

// FullName returns the namespace-qualified type name.
func (t *TypeSymbol) FullName() string {
	return t.Namespace.Qualify(t.Name)
}

// MethodSymbol is a resolved method.
type MethodSymbol struct {
	Name           string
	ContainingType *TypeSymbol
	Params         []graph.Param
	ReturnType     string
}

// FullName folds the containing type's namespace chain, the type name and the
// method name.
func (m *MethodSymbol) FullName() string {
	if m.ContainingType == nil {
		return m.Name
	}
	return m.ContainingType.Namespace.Qualify(m.ContainingType.Name + "." + m.Name)
}

// ValueSymbol is a callable value, such as a function-typed variable or a
// plain function outside any type. Calls through it produce no edge.
type ValueSymbol struct {
	Name string
}

func (*TypeSymbol) symbol()   {}
func (*MethodSymbol) symbol() {}
func (*ValueSymbol) symbol()  {}
