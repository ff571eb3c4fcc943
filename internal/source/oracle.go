package source

import (
	"fmt"

	"github.com/dusk-indust/codekg/internal/extract"
)

// maxEvalDepth bounds receiver-type inference through chains of locals and
// calls, which can be cyclic ("a = a.next()").
const maxEvalDepth = 32

type valueKind int

const (
	valOther valueKind = iota
	valThis
	valSuper
	valIdent
	valMember // object.name
	valCall   // object(...) with arity arguments
	valNew    // new name(...), name{...}
)

// valueExpr is the part of an expression's syntax that receiver inference
// needs, captured while the tree is still open.
type valueExpr struct {
	kind   valueKind
	name   string
	object *valueExpr
	arity  int
}

// binding is what a parameter or local variable is known to hold: a declared
// type, or an initializer to infer one from.
type binding struct {
	typ  typeRef
	init *valueExpr
}

// methodScope holds the bindings visible inside one method body. Block
// scoping is flattened; a later declaration of the same name wins.
type methodScope struct {
	lex   *lexScope
	owner *typeInfo
	vars  map[string]binding
}

// exprHandle is stored in extract.Expr.Handle.
type exprHandle struct {
	value *valueExpr
	scope *methodScope
}

// oracle implements extract.Oracle over an index.
type oracle struct {
	ix *index
}

var _ extract.Oracle = (*oracle)(nil)

func (o *oracle) DeclaredType(decl *extract.TypeDecl) (*extract.TypeSymbol, error) {
	t, ok := decl.Handle.(*typeInfo)
	if !ok || t == nil {
		return nil, fmt.Errorf("type %s: %w", decl.Name, extract.ErrUnresolved)
	}
	return t.sym, nil
}

func (o *oracle) DeclaredMethod(decl *extract.MethodDecl) (*extract.MethodSymbol, error) {
	m, ok := decl.Handle.(*methodInfo)
	if !ok || m == nil {
		return nil, fmt.Errorf("method %s: %w", decl.Name, extract.ErrUnresolved)
	}
	return m.sym, nil
}

func (o *oracle) TypeOf(node any) (*extract.TypeSymbol, error) {
	var t *typeInfo
	switch n := node.(type) {
	case *extract.TypeRef:
		if ref, ok := n.Handle.(typeRef); ok {
			t = o.ix.lookupType(ref)
		}
	case *extract.Expr:
		if h, ok := n.Handle.(*exprHandle); ok && h.value.kind == valNew {
			t = o.ix.lookupType(typeRef{name: h.value.name, scope: h.scope.lex})
		}
	}
	if t == nil {
		return nil, fmt.Errorf("type of %v: %w", describe(node), extract.ErrUnresolved)
	}
	return t.sym, nil
}

func (o *oracle) InvokedSymbol(call *extract.Expr) (extract.Symbol, error) {
	h, ok := call.Handle.(*exprHandle)
	if !ok || h.value.kind != valCall {
		return nil, fmt.Errorf("call %s: %w", call.Text, extract.ErrUnresolved)
	}
	sym := o.callTarget(h.value, h.scope, 0)
	if sym == nil {
		return nil, fmt.Errorf("call %s: %w", call.Text, extract.ErrUnresolved)
	}
	return sym, nil
}

// callTarget resolves what call invokes: a method, a type (conversion), or
// a callable value.
func (o *oracle) callTarget(call *valueExpr, sc *methodScope, depth int) extract.Symbol {
	if m := o.calledMethod(call, sc, depth); m != nil {
		return m.sym
	}
	callee := call.object
	if callee == nil {
		return nil
	}
	switch callee.kind {
	case valIdent:
		if _, ok := sc.vars[callee.name]; ok {
			return &extract.ValueSymbol{Name: callee.name}
		}
		if f := o.ix.lookupFunc(callee.name, sc.lex); f != nil {
			return &extract.ValueSymbol{Name: f.name}
		}
		if t := o.ix.lookupType(typeRef{name: callee.name, scope: sc.lex}); t != nil {
			return t.sym
		}
	case valMember:
		if dotted, ok := dottedName(callee); ok {
			if f := o.ix.lookupFunc(dotted, sc.lex); f != nil {
				return &extract.ValueSymbol{Name: f.name}
			}
			if t := o.ix.lookupType(typeRef{name: dotted, scope: sc.lex}); t != nil {
				return t.sym
			}
		}
		if recv := o.typeOf(callee.object, sc, depth+1); recv != nil {
			if _, ok := o.ix.findField(recv, callee.name); ok {
				return &extract.ValueSymbol{Name: callee.name}
			}
		}
	}
	return nil
}

// calledMethod resolves a call to a declared method, if it is one.
func (o *oracle) calledMethod(call *valueExpr, sc *methodScope, depth int) *methodInfo {
	if depth > maxEvalDepth || call.object == nil {
		return nil
	}
	callee := call.object
	switch callee.kind {
	case valMember:
		recv := o.typeOf(callee.object, sc, depth+1)
		if recv == nil {
			return nil
		}
		return o.ix.findMethod(recv, callee.name, call.arity)
	case valSuper:
		// super(...) runs the base class constructor.
		if base := o.ix.firstClassBase(sc.owner); base != nil {
			return o.ix.findMethod(base, "constructor", call.arity)
		}
	case valIdent:
		// Unqualified calls inside a Go method never reach the receiver's
		// methods, and TypeScript requires "this.", so nothing to do.
	}
	return nil
}

// typeOf infers the declared type of a receiver expression.
func (o *oracle) typeOf(v *valueExpr, sc *methodScope, depth int) *typeInfo {
	if v == nil || depth > maxEvalDepth {
		return nil
	}
	switch v.kind {
	case valThis:
		return sc.owner
	case valSuper:
		return o.ix.firstClassBase(sc.owner)
	case valIdent:
		if b, ok := sc.vars[v.name]; ok {
			if !b.typ.empty() {
				return o.ix.lookupType(b.typ)
			}
			return o.typeOf(b.init, sc, depth+1)
		}
		// A type name used as a receiver: a static member access.
		return o.ix.lookupType(typeRef{name: v.name, scope: sc.lex})
	case valMember:
		if recv := o.typeOf(v.object, sc, depth+1); recv != nil {
			if ref, ok := o.ix.findField(recv, v.name); ok {
				return o.ix.lookupType(ref)
			}
			return nil
		}
		if dotted, ok := dottedName(v); ok {
			return o.ix.lookupType(typeRef{name: dotted, scope: sc.lex})
		}
	case valCall:
		if m := o.calledMethod(v, sc, depth+1); m != nil {
			return o.ix.lookupType(m.result)
		}
		if v.object != nil && (v.object.kind == valIdent || v.object.kind == valMember) {
			if dotted, ok := dottedName(v.object); ok {
				if f := o.ix.lookupFunc(dotted, sc.lex); f != nil {
					return o.ix.lookupType(f.result)
				}
				// A conversion T(x) has type T.
				return o.ix.lookupType(typeRef{name: dotted, scope: sc.lex})
			}
		}
	case valNew:
		return o.ix.lookupType(typeRef{name: v.name, scope: sc.lex})
	}
	return nil
}

// dottedName renders an identifier or a chain of member accesses on an
// identifier as "a.b.c".
func dottedName(v *valueExpr) (string, bool) {
	switch v.kind {
	case valIdent:
		return v.name, true
	case valMember:
		if v.object == nil {
			return "", false
		}
		head, ok := dottedName(v.object)
		if !ok {
			return "", false
		}
		return head + "." + v.name, true
	}
	return "", false
}

func describe(node any) string {
	switch n := node.(type) {
	case *extract.TypeRef:
		return n.Name
	case *extract.Expr:
		return n.Text
	default:
		return fmt.Sprintf("%T", node)
	}
}
