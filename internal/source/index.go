package source

import (
	"strings"

	"github.com/dusk-indust/codekg/internal/extract"
	"github.com/dusk-indust/codekg/internal/graph"
)

// index is the project-wide symbol table a front-end fills while parsing.
// It is written only during Load and read concurrently afterwards.
type index struct {
	types   map[string]*typeInfo   // by qualified name
	funcs   map[string]*funcInfo   // free functions, by qualified name
	modules map[string]*moduleInfo // TS module path or Go import path
}

func newIndex() *index {
	return &index{
		types:   make(map[string]*typeInfo),
		funcs:   make(map[string]*funcInfo),
		modules: make(map[string]*moduleInfo),
	}
}

// moduleInfo is a TypeScript module (one file) or a Go package.
type moduleInfo struct {
	key string
	ns  *extract.Namespace
	// name is the Go package name.
	name string
	// defaultExport is the TypeScript default-exported declaration, if any.
	defaultExport string
	// reexports maps names a TypeScript module re-exports to their origin;
	// stars lists modules re-exported wholesale.
	reexports map[string]importRef
	stars     []string
}

// typeRef is the unresolved spelling of a type plus the scope it was
// written in.
type typeRef struct {
	name  string
	scope *lexScope
}

func (r typeRef) empty() bool { return r.name == "" }

// typeInfo is a declared type.
type typeInfo struct {
	sym     *extract.TypeSymbol
	bases   []typeRef
	fields  map[string]typeRef
	methods map[string][]*methodInfo
}

func newTypeInfo(sym *extract.TypeSymbol) *typeInfo {
	return &typeInfo{
		sym:     sym,
		fields:  make(map[string]typeRef),
		methods: make(map[string][]*methodInfo),
	}
}

func (t *typeInfo) addMethod(m *methodInfo) {
	t.methods[m.sym.Name] = append(t.methods[m.sym.Name], m)
}

// methodInfo is a declared method.
type methodInfo struct {
	sym    *extract.MethodSymbol
	owner  *typeInfo
	result typeRef
}

// funcInfo is a function declared outside any type.
type funcInfo struct {
	name   string
	result typeRef
}

// lexScope is the name-lookup context of a declaration: its namespace, the
// module it lives in and the module's imports.
type lexScope struct {
	ns      *extract.Namespace
	module  *moduleInfo
	imports map[string]importRef
	// typeParams are generic parameters in scope; they never resolve.
	typeParams map[string]bool
}

// importRef binds a local alias to a module, or to one name exported by it.
type importRef struct {
	module string
	name   string // empty for the whole module
}

// child returns a scope nested in namespace ns with the same imports.
func (s *lexScope) child(ns *extract.Namespace) *lexScope {
	c := *s
	c.ns = ns
	return &c
}

// withTypeParams returns a scope that also shadows the given generic
// parameter names.
func (s *lexScope) withTypeParams(names []string) *lexScope {
	if len(names) == 0 {
		return s
	}
	c := *s
	c.typeParams = make(map[string]bool, len(s.typeParams)+len(names))
	for k := range s.typeParams {
		c.typeParams[k] = true
	}
	for _, n := range names {
		c.typeParams[n] = true
	}
	return &c
}

// lookupType resolves a type spelling. Unqualified names are searched from
// the innermost namespace out to the module, then among the imports.
// Qualified names ("pkg.Type", "ns.Type") go through an import alias or a
// namespace in scope.
func (ix *index) lookupType(ref typeRef) *typeInfo {
	if ref.empty() || ref.scope == nil {
		return nil
	}
	name, sc := ref.name, ref.scope
	if sc.typeParams[name] {
		return nil
	}

	head, rest, qualified := strings.Cut(name, ".")
	if qualified {
		if imp, ok := sc.imports[head]; ok {
			target := rest
			if imp.name != "" {
				target = imp.name + "." + rest
			}
			if t := ix.typeInModule(imp.module, target); t != nil {
				return t
			}
		}
	}
	if t := ix.searchNamespaces(name, sc); t != nil {
		return t
	}
	if !qualified {
		if imp, ok := sc.imports[name]; ok && imp.name != "" {
			return ix.typeInModule(imp.module, imp.name)
		}
	}
	return nil
}

// searchNamespaces looks name up in the scope's namespace and each enclosing
// one, stopping at the module's own namespace.
func (ix *index) searchNamespaces(name string, sc *lexScope) *typeInfo {
	var stop *extract.Namespace
	if sc.module != nil && sc.module.ns != nil {
		stop = sc.module.ns.Parent
	}
	for ns := sc.ns; ns != stop; ns = ns.Parent {
		if t, ok := ix.types[ns.Qualify(name)]; ok {
			return t
		}
		if ns == nil {
			break
		}
	}
	return nil
}

func (ix *index) typeInModule(module, name string) *typeInfo {
	return ix.typeInModuleSeen(module, name, make(map[string]bool))
}

// typeInModuleSeen follows re-exports, visiting each module once.
func (ix *index) typeInModuleSeen(module, name string, seen map[string]bool) *typeInfo {
	mod, ok := ix.modules[module]
	if !ok || seen[module] {
		return nil
	}
	seen[module] = true
	if name == "default" {
		name = mod.defaultExport
	}
	if t, ok := ix.types[mod.ns.Qualify(name)]; ok {
		return t
	}
	head, rest, qualified := strings.Cut(name, ".")
	if ref, ok := mod.reexports[head]; ok {
		target := ref.name
		switch {
		case target == "" && qualified:
			target = rest
		case qualified:
			target += "." + rest
		}
		if t := ix.typeInModuleSeen(ref.module, target, seen); t != nil {
			return t
		}
	}
	for _, star := range mod.stars {
		if t := ix.typeInModuleSeen(star, name, seen); t != nil {
			return t
		}
	}
	return nil
}

// lookupFunc resolves a free function by name in the scope's module or
// through an import.
func (ix *index) lookupFunc(name string, sc *lexScope) *funcInfo {
	if sc == nil {
		return nil
	}
	head, rest, qualified := strings.Cut(name, ".")
	if qualified {
		if imp, ok := sc.imports[head]; ok && imp.name == "" {
			if mod, ok := ix.modules[imp.module]; ok {
				return ix.funcs[mod.ns.Qualify(rest)]
			}
		}
		return nil
	}
	for ns := sc.ns; ns != nil; ns = ns.Parent {
		if f, ok := ix.funcs[ns.Qualify(name)]; ok {
			return f
		}
		if sc.module != nil && ns == sc.module.ns {
			break
		}
	}
	if imp, ok := sc.imports[name]; ok && imp.name != "" {
		if mod, ok := ix.modules[imp.module]; ok {
			return ix.funcs[mod.ns.Qualify(imp.name)]
		}
	}
	return nil
}

// findMethod looks a method up on t and then on its bases, breadth first in
// declaration order. When several overloads match by name, the one taking
// arity arguments is preferred.
func (ix *index) findMethod(t *typeInfo, name string, arity int) *methodInfo {
	seen := make(map[*typeInfo]bool)
	queue := []*typeInfo{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		if ms := cur.methods[name]; len(ms) > 0 {
			for _, m := range ms {
				if arity < 0 || len(m.sym.Params) == arity {
					return m
				}
			}
			return ms[0]
		}
		for _, b := range cur.bases {
			queue = append(queue, ix.lookupType(b))
		}
	}
	return nil
}

// findField returns the declared type of a field on t or its bases.
func (ix *index) findField(t *typeInfo, name string) (typeRef, bool) {
	seen := make(map[*typeInfo]bool)
	queue := []*typeInfo{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		if ref, ok := cur.fields[name]; ok {
			return ref, true
		}
		for _, b := range cur.bases {
			queue = append(queue, ix.lookupType(b))
		}
	}
	return typeRef{}, false
}

// firstClassBase returns the first base of t that is a class.
func (ix *index) firstClassBase(t *typeInfo) *typeInfo {
	if t == nil {
		return nil
	}
	for _, b := range t.bases {
		if bt := ix.lookupType(b); bt != nil && bt.sym.Kind == extract.KindClass {
			return bt
		}
	}
	return nil
}

// newMethodSymbol builds the symbol shared by a method's declaration and
// every call resolved to it.
func newMethodSymbol(owner *typeInfo, name string, params []graph.Param, result string) *extract.MethodSymbol {
	return &extract.MethodSymbol{
		Name:           name,
		ContainingType: owner.sym,
		Params:         params,
		ReturnType:     result,
	}
}
