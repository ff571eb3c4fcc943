package extract

// DeclKind is the syntactic kind of a type declaration.
type DeclKind string

const (
	DeclClass     DeclKind = "class"
	DeclInterface DeclKind = "interface"
	DeclEnum      DeclKind = "enum"
	DeclAlias     DeclKind = "alias"
	DeclOther     DeclKind = "other"
)

// ExprKind classifies an expression for the method walker.
type ExprKind string

const (
	ExprConstruct ExprKind = "construct" // new T(), T{}, &T{}, new(T)
	ExprCall      ExprKind = "call"
	ExprOther     ExprKind = "other"
)

// File is the parsed form of one source file as handed to the extractor by a
// front-end. Handle fields are opaque to this package; the front-end uses them
// to find its own syntax again when the Oracle is asked about a node.
type File struct {
	// Path is the file path relative to the solution root's parent, so its
	// first segment is the root folder. See NormalizePath.
	Path  string
	Types []*TypeDecl
}

// TypeDecl is a type declaration in source order.
type TypeDecl struct {
	Kind      DeclKind
	Name      string
	Modifiers []string
	Bases     []*TypeRef
	Methods   []*MethodDecl
	Handle    any
}

// TypeRef is a reference to a type in a base list.
type TypeRef struct {
	Name   string
	Handle any
}

// MethodDecl is a method declared in a type, with its body expressions.
type MethodDecl struct {
	Name      string
	Modifiers []string
	Body      []*Expr
	Handle    any
}

// Expr is an expression inside a method body. Children are the expressions
// nested directly under it, closures included.
type Expr struct {
	Kind     ExprKind
	Text     string
	Children []*Expr
	Handle   any
}

// Walk visits e and every expression nested under it in pre-order, stopping
// early when fn returns false.
func (e *Expr) Walk(fn func(*Expr) bool) bool {
	stack := []*Expr{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		if !fn(cur) {
			return false
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return true
}

// Expressions returns every expression of the method body in source
// pre-order.
func (m *MethodDecl) Expressions() []*Expr {
	var out []*Expr
	for _, e := range m.Body {
		e.Walk(func(x *Expr) bool {
			out = append(out, x)
			return true
		})
	}
	return out
}
