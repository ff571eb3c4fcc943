package source

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codekg/internal/extract"
	"github.com/dusk-indust/codekg/internal/graph"
)

// tsBuilder builds syntax and index entries for TypeScript files. Each file
// is a module whose namespace is the project name followed by the file's
// path inside the project, without extension; namespace blocks nest below it.
type tsBuilder struct {
	ix  *index
	res *importResolver
}

func newTSBuilder(ix *index, res *importResolver) *tsBuilder {
	return &tsBuilder{ix: ix, res: res}
}

// tsFile is the per-file state of the TypeScript builder.
type tsFile struct {
	b    *tsBuilder
	src  []byte
	rel  string
	out  *extract.File
	mod  *moduleInfo
	root *lexScope
}

func (b *tsBuilder) addFile(proj *Project, rel string, src []byte, root *tree_sitter.Node) *extract.File {
	key := modulePath(rel)
	inProject := strings.TrimPrefix(strings.TrimPrefix(key, proj.RelDir), "/")

	var segments []string
	segments = append(segments, strings.Split(proj.Name, "/")...)
	segments = append(segments, strings.Split(inProject, "/")...)

	mod := &moduleInfo{key: key, ns: extract.NewNamespace(segments...), reexports: make(map[string]importRef)}
	b.ix.modules[key] = mod

	f := &tsFile{
		b:   b,
		src: src,
		rel: rel,
		out: &extract.File{Path: rel},
		mod: mod,
		root: &lexScope{
			ns:      mod.ns,
			module:  mod,
			imports: make(map[string]importRef),
		},
	}
	// Imports first: declarations may reference names imported further down.
	for _, n := range namedChildren(root) {
		switch n.Kind() {
		case "import_statement":
			f.importStatement(n)
		case "export_statement":
			f.reexport(n)
		}
	}
	f.declarations(root, f.root)
	return f.out
}

func (b *tsBuilder) finish() {}

// ---------- Imports and re-exports ----------

// moduleKey resolves an import specifier to a module key.
func (f *tsFile) moduleKey(spec *tree_sitter.Node) (string, bool) {
	s := strings.Trim(text(spec, f.src), "\"'`")
	if s == "" {
		return "", false
	}
	file, ok := f.b.res.resolveTS(s, f.rel)
	if !ok {
		return "", false
	}
	return modulePath(file), true
}

func (f *tsFile) importStatement(n *tree_sitter.Node) {
	key, ok := f.moduleKey(n.ChildByFieldName("source"))
	if !ok {
		return
	}
	for _, clause := range namedChildren(n) {
		if clause.Kind() != "import_clause" {
			continue
		}
		for _, c := range namedChildren(clause) {
			switch c.Kind() {
			case "identifier":
				f.root.imports[text(c, f.src)] = importRef{module: key, name: "default"}
			case "namespace_import":
				for _, id := range namedChildren(c) {
					if id.Kind() == "identifier" {
						f.root.imports[text(id, f.src)] = importRef{module: key}
					}
				}
			case "named_imports":
				for _, spec := range namedChildren(c) {
					if spec.Kind() != "import_specifier" {
						continue
					}
					name := text(spec.ChildByFieldName("name"), f.src)
					alias := name
					if a := spec.ChildByFieldName("alias"); a != nil {
						alias = text(a, f.src)
					}
					f.root.imports[alias] = importRef{module: key, name: name}
				}
			}
		}
	}
}

// reexport records "export { A as B } from './x'" and "export * from './x'".
func (f *tsFile) reexport(n *tree_sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	key, ok := f.moduleKey(source)
	if !ok {
		return
	}
	clause := firstOfKind(n, "export_clause")
	if clause == nil {
		if ns := firstOfKind(n, "namespace_export"); ns != nil {
			// export * as ns from './x'
			for _, id := range namedChildren(ns) {
				f.mod.reexports[text(id, f.src)] = importRef{module: key}
			}
			return
		}
		f.mod.stars = append(f.mod.stars, key)
		return
	}
	for _, spec := range namedChildren(clause) {
		if spec.Kind() != "export_specifier" {
			continue
		}
		name := text(spec.ChildByFieldName("name"), f.src)
		alias := name
		if a := spec.ChildByFieldName("alias"); a != nil {
			alias = text(a, f.src)
		}
		f.mod.reexports[alias] = importRef{module: key, name: name}
	}
}

// ---------- Declarations ----------

// declarations visits the statements of a module or namespace body.
func (f *tsFile) declarations(body *tree_sitter.Node, sc *lexScope) {
	for _, n := range namedChildren(body) {
		if n.Kind() != "export_statement" {
			f.declaration(n, sc, nil)
			continue
		}
		var mods []string
		isDefault := false
		for _, c := range children(n) {
			if c.Kind() == "default" {
				isDefault = true
			}
		}
		mods = append(mods, "export")
		if isDefault {
			mods = append(mods, "default")
		}
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			name := f.declaration(decl, sc, mods)
			if isDefault && name != "" && sc.ns == f.mod.ns {
				f.mod.defaultExport = name
			}
			continue
		}
		// export default Foo;
		if v := n.ChildByFieldName("value"); isDefault && v != nil && v.Kind() == "identifier" {
			f.mod.defaultExport = text(v, f.src)
		}
	}
}

// declaration handles one statement and returns the name it declares.
func (f *tsFile) declaration(n *tree_sitter.Node, sc *lexScope, mods []string) string {
	switch n.Kind() {
	case "class_declaration", "class":
		return f.typeDecl(n, sc, extract.DeclClass, mods)
	case "abstract_class_declaration":
		return f.typeDecl(n, sc, extract.DeclClass, append(mods, "abstract"))
	case "interface_declaration":
		return f.typeDecl(n, sc, extract.DeclInterface, mods)
	case "enum_declaration":
		return f.typeDecl(n, sc, extract.DeclEnum, mods)
	case "type_alias_declaration":
		return f.typeDecl(n, sc, extract.DeclAlias, mods)
	case "function_declaration", "generator_function_declaration", "function_signature":
		name := text(n.ChildByFieldName("name"), f.src)
		f.addFunc(name, n.ChildByFieldName("return_type"), sc)
		return name
	case "lexical_declaration", "variable_declaration":
		for _, d := range namedChildren(n) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			v := d.ChildByFieldName("value")
			if v != nil && (v.Kind() == "arrow_function" || v.Kind() == "function_expression") {
				f.addFunc(text(d.ChildByFieldName("name"), f.src), v.ChildByFieldName("return_type"), sc)
			}
		}
	case "expression_statement":
		for _, c := range namedChildren(n) {
			f.declaration(c, sc, mods)
		}
	case "internal_module", "module":
		name := n.ChildByFieldName("name")
		body := n.ChildByFieldName("body")
		if name == nil || body == nil || name.Kind() == "string" {
			return ""
		}
		ns := sc.ns
		for _, seg := range strings.Split(text(name, f.src), ".") {
			ns = &extract.Namespace{Name: strings.TrimSpace(seg), Parent: ns}
		}
		f.declarations(body, sc.child(ns))
	case "ambient_declaration":
		for _, c := range namedChildren(n) {
			f.declaration(c, sc, append(mods, "declare"))
		}
	}
	return ""
}

func (f *tsFile) addFunc(name string, ret *tree_sitter.Node, sc *lexScope) {
	if name == "" {
		return
	}
	f.b.ix.funcs[sc.ns.Qualify(name)] = &funcInfo{name: name, result: typeRef{name: f.resultTypeName(ret), scope: sc}}
}

var tsDeclKinds = map[extract.DeclKind]extract.TypeKind{
	extract.DeclClass:     extract.KindClass,
	extract.DeclInterface: extract.KindInterface,
	extract.DeclEnum:      extract.KindOther,
	extract.DeclAlias:     extract.KindOther,
}

// typeDecl indexes a class, interface, enum or type alias and appends its
// declaration to the file.
func (f *tsFile) typeDecl(n *tree_sitter.Node, sc *lexScope, kind extract.DeclKind, mods []string) string {
	name := text(n.ChildByFieldName("name"), f.src)
	if name == "" {
		return ""
	}
	sym := &extract.TypeSymbol{Name: name, Kind: tsDeclKinds[kind], Namespace: sc.ns}

	// Declaration merging: a second interface X adds to the first.
	t, ok := f.b.ix.types[sym.FullName()]
	if !ok || t.sym.Kind != sym.Kind {
		t = newTypeInfo(sym)
		f.b.ix.types[sym.FullName()] = t
	}

	decl := &extract.TypeDecl{Kind: kind, Name: name, Modifiers: mods, Handle: t}
	f.out.Types = append(f.out.Types, decl)
	if kind != extract.DeclClass && kind != extract.DeclInterface {
		return name
	}

	tsc := sc.withTypeParams(f.typeParams(n))
	for _, base := range f.bases(n) {
		ref := typeRef{name: base, scope: tsc}
		t.bases = append(t.bases, ref)
		decl.Bases = append(decl.Bases, &extract.TypeRef{Name: base, Handle: ref})
	}

	body := n.ChildByFieldName("body")
	for _, m := range namedChildren(body) {
		switch m.Kind() {
		case "method_definition", "method_signature", "abstract_method_signature":
			if md := f.method(m, t, tsc); md != nil {
				decl.Methods = append(decl.Methods, md)
			}
		case "public_field_definition", "property_signature":
			f.field(m, t, tsc)
		}
	}
	return name
}

func (f *tsFile) typeParams(n *tree_sitter.Node) []string {
	var names []string
	for _, p := range namedChildren(n.ChildByFieldName("type_parameters")) {
		if p.Kind() == "type_parameter" {
			names = append(names, text(p.ChildByFieldName("name"), f.src))
		}
	}
	return names
}

// bases returns the spelled names of extended and implemented types, in
// source order.
func (f *tsFile) bases(n *tree_sitter.Node) []string {
	var out []string
	add := func(t *tree_sitter.Node) {
		if name := f.typeName(t); name != "" {
			out = append(out, name)
		}
	}
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "class_heritage":
			for _, clause := range namedChildren(c) {
				switch clause.Kind() {
				case "extends_clause":
					for _, v := range fieldNodes(clause, "value") {
						add(v)
					}
				case "implements_clause":
					for _, t := range namedChildren(clause) {
						add(t)
					}
				}
			}
		case "extends_type_clause":
			for _, t := range namedChildren(c) {
				add(t)
			}
		}
	}
	return out
}

func (f *tsFile) field(n *tree_sitter.Node, t *typeInfo, sc *lexScope) {
	name := text(n.ChildByFieldName("name"), f.src)
	if name == "" {
		return
	}
	if typ := f.typeName(n.ChildByFieldName("type")); typ != "" {
		t.fields[name] = typeRef{name: typ, scope: sc}
		return
	}
	// Untyped field initialized with a construction: private repo = new Repo().
	if v := n.ChildByFieldName("value"); v != nil && v.Kind() == "new_expression" {
		if typ := f.typeName(v.ChildByFieldName("constructor")); typ != "" {
			t.fields[name] = typeRef{name: typ, scope: sc}
		}
	}
}

// ---------- Methods ----------

func (f *tsFile) method(n *tree_sitter.Node, owner *typeInfo, sc *lexScope) *extract.MethodDecl {
	nameNode := n.ChildByFieldName("name")
	name := text(nameNode, f.src)
	if name == "" {
		return nil
	}

	msc := sc.withTypeParams(f.typeParams(n))
	scope := &methodScope{lex: msc, owner: owner, vars: make(map[string]binding)}
	params := f.params(n.ChildByFieldName("parameters"), owner, scope)
	ret := n.ChildByFieldName("return_type")

	m := &methodInfo{
		sym:    newMethodSymbol(owner, name, params, typeText(text(ret, f.src))),
		owner:  owner,
		result: typeRef{name: f.resultTypeName(ret), scope: msc},
	}
	owner.addMethod(m)

	decl := &extract.MethodDecl{
		Name:      name,
		Modifiers: f.methodModifiers(n, nameNode),
		Handle:    m,
	}
	if body := n.ChildByFieldName("body"); body != nil {
		c := &exprCollector{src: f.src, scope: scope, classify: f.classify, bind: f.bind(scope)}
		decl.Body = c.collect(body)
	}
	return decl
}

// methodModifiers returns the modifier keywords written before the name.
func (f *tsFile) methodModifiers(n, name *tree_sitter.Node) []string {
	var mods []string
	for _, c := range children(n) {
		if c.StartByte() >= name.StartByte() {
			break
		}
		switch c.Kind() {
		case "accessibility_modifier":
			mods = append(mods, text(c, f.src))
		case "override_modifier":
			mods = append(mods, "override")
		case "static", "async", "abstract", "readonly", "declare":
			mods = append(mods, c.Kind())
		}
	}
	return mods
}

// params binds the parameters in scope and returns them in order.
// Constructor parameter properties also become fields of owner.
func (f *tsFile) params(list *tree_sitter.Node, owner *typeInfo, scope *methodScope) []graph.Param {
	var params []graph.Param
	for _, p := range namedChildren(list) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		name := text(p.ChildByFieldName("pattern"), f.src)
		typ := p.ChildByFieldName("type")
		params = append(params, graph.Param{Name: name, Type: typeText(text(typ, f.src))})

		ref := typeRef{name: f.typeName(typ), scope: scope.lex}
		scope.vars[name] = binding{typ: ref}
		if firstOfKind(p, "accessibility_modifier") != nil && !ref.empty() {
			owner.fields[name] = ref
		}
	}
	return params
}

// bind records local declarations and closure parameters met in a body.
func (f *tsFile) bind(scope *methodScope) func(n *tree_sitter.Node) {
	return func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "variable_declarator":
			name := n.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				return
			}
			b := binding{typ: typeRef{name: f.typeName(n.ChildByFieldName("type")), scope: scope.lex}}
			if v := n.ChildByFieldName("value"); v != nil {
				b.init = f.valueOf(v)
			}
			scope.vars[text(name, f.src)] = b
		case "required_parameter", "optional_parameter":
			name := text(n.ChildByFieldName("pattern"), f.src)
			scope.vars[name] = binding{typ: typeRef{name: f.typeName(n.ChildByFieldName("type")), scope: scope.lex}}
		}
	}
}

func (f *tsFile) classify(n *tree_sitter.Node) (extract.ExprKind, *valueExpr, bool) {
	switch n.Kind() {
	case "new_expression":
		return extract.ExprConstruct, &valueExpr{kind: valNew, name: f.typeName(n.ChildByFieldName("constructor"))}, true
	case "call_expression":
		return extract.ExprCall, f.valueOf(n), true
	}
	return "", nil, false
}

// valueOf captures the receiver-relevant shape of an expression.
func (f *tsFile) valueOf(n *tree_sitter.Node) *valueExpr {
	if n == nil {
		return &valueExpr{}
	}
	switch n.Kind() {
	case "this":
		return &valueExpr{kind: valThis}
	case "super":
		return &valueExpr{kind: valSuper}
	case "identifier":
		return &valueExpr{kind: valIdent, name: text(n, f.src)}
	case "member_expression":
		return &valueExpr{
			kind:   valMember,
			name:   text(n.ChildByFieldName("property"), f.src),
			object: f.valueOf(n.ChildByFieldName("object")),
		}
	case "call_expression":
		return &valueExpr{
			kind:   valCall,
			object: f.valueOf(n.ChildByFieldName("function")),
			arity:  len(namedChildren(n.ChildByFieldName("arguments"))),
		}
	case "new_expression":
		return &valueExpr{kind: valNew, name: f.typeName(n.ChildByFieldName("constructor"))}
	case "as_expression", "satisfies_expression":
		// x as T has type T.
		if kids := namedChildren(n); len(kids) == 2 {
			if t := f.typeName(kids[1]); t != "" {
				return &valueExpr{kind: valNew, name: t}
			}
		}
	case "parenthesized_expression", "non_null_expression", "await_expression":
		if kids := namedChildren(n); len(kids) > 0 {
			return f.valueOf(kids[0])
		}
	}
	return &valueExpr{}
}

// ---------- Types ----------

// typeName reduces a type or type-valued expression to the name lookup
// works on: generic arguments and annotations are stripped, anything that
// is not a named type yields "".
func (f *tsFile) typeName(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "type_identifier", "identifier":
		return text(n, f.src)
	case "nested_type_identifier", "member_expression", "nested_identifier":
		return strings.Join(strings.Fields(text(n, f.src)), "")
	case "generic_type":
		return f.typeName(n.ChildByFieldName("name"))
	case "type_annotation", "parenthesized_type", "readonly_type":
		if kids := namedChildren(n); len(kids) > 0 {
			return f.typeName(kids[0])
		}
	}
	return ""
}

// resultTypeName is typeName for return types, looking through Promise<T>.
func (f *tsFile) resultTypeName(ret *tree_sitter.Node) string {
	if ret == nil {
		return ""
	}
	t := ret
	if t.Kind() == "type_annotation" {
		if kids := namedChildren(t); len(kids) > 0 {
			t = kids[0]
		}
	}
	if t.Kind() == "generic_type" && f.typeName(t) == "Promise" {
		if args := namedChildren(t.ChildByFieldName("type_arguments")); len(args) > 0 {
			return f.typeName(args[0])
		}
	}
	return f.typeName(t)
}

// typeText renders a type annotation for display: ": Foo<Bar>" → "Foo<Bar>".
func typeText(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
	return strings.Join(strings.Fields(s), " ")
}

// firstOfKind returns the first child of n of the given kind.
func firstOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for _, c := range children(n) {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}
