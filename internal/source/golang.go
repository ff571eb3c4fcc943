package source

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codekg/internal/extract"
	"github.com/dusk-indust/codekg/internal/graph"
)

// goBuilder builds syntax and index entries for Go files. Each package is a
// module whose namespace is its import path. Methods are attached to their
// receiver types once every file is indexed, since a type and its methods
// may live in different files.
type goBuilder struct {
	ix    *index
	files []*goFile
}

func newGoBuilder(ix *index) *goBuilder {
	return &goBuilder{ix: ix}
}

// goFile is the per-file state kept until finish.
type goFile struct {
	src      []byte
	out      *extract.File
	pkg      *moduleInfo
	scope    *lexScope
	declared map[string]*extract.TypeDecl
	// unaliased imports, named after their package once all are known.
	imports []string
	methods []*goMethod
}

// goMethod is a method whose receiver type is not resolved yet.
type goMethod struct {
	recv   string
	params []graph.Param
	result string
	ref    typeRef
	decl   *extract.MethodDecl
	scope  *methodScope
}

func (b *goBuilder) addFile(proj *Project, rel string, src []byte, root *tree_sitter.Node) *extract.File {
	key := goImportPath(proj, rel)
	pkg, ok := b.ix.modules[key]
	if !ok {
		pkg = &moduleInfo{key: key, ns: extract.NewNamespace(key)}
		b.ix.modules[key] = pkg
	}

	f := &goFile{
		src: src,
		out: &extract.File{Path: rel},
		pkg: pkg,
		scope: &lexScope{
			ns:      pkg.ns,
			module:  pkg,
			imports: make(map[string]importRef),
		},
		declared: make(map[string]*extract.TypeDecl),
	}
	b.files = append(b.files, f)

	for _, n := range namedChildren(root) {
		switch n.Kind() {
		case "package_clause":
			for _, id := range namedChildren(n) {
				pkg.name = text(id, src)
			}
		case "import_declaration":
			f.importDecl(n)
		case "type_declaration":
			for _, spec := range namedChildren(n) {
				f.typeSpec(b.ix, spec)
			}
		case "function_declaration":
			name := text(n.ChildByFieldName("name"), src)
			if name != "" {
				b.ix.funcs[pkg.ns.Qualify(name)] = &funcInfo{name: name, result: f.resultRef(n.ChildByFieldName("result"), f.scope)}
			}
		case "method_declaration":
			f.methodDecl(n)
		}
	}
	return f.out
}

// finish names unaliased imports and attaches methods to their receivers.
func (b *goBuilder) finish() {
	for _, f := range b.files {
		for _, p := range f.imports {
			name := goPackageName(p)
			if mod, ok := b.ix.modules[p]; ok && mod.name != "" {
				name = mod.name
			}
			if _, taken := f.scope.imports[name]; !taken {
				f.scope.imports[name] = importRef{module: p}
			}
		}
	}
	for _, f := range b.files {
		for _, gm := range f.methods {
			b.attach(f, gm)
		}
	}
}

func (b *goBuilder) attach(f *goFile, gm *goMethod) {
	t, ok := b.ix.types[f.pkg.ns.Qualify(gm.recv)]
	if !ok {
		return
	}
	decl, ok := f.declared[gm.recv]
	if !ok {
		// Partial declaration: the type is declared in another file.
		decl = &extract.TypeDecl{
			Kind:      goDeclKind(t.sym.Kind),
			Name:      gm.recv,
			Modifiers: goModifiers(gm.recv),
			Handle:    t,
		}
		decl.Bases = baseRefs(t)
		f.declared[gm.recv] = decl
		f.out.Types = append(f.out.Types, decl)
	}

	m := &methodInfo{
		sym:    newMethodSymbol(t, gm.decl.Name, gm.params, gm.result),
		owner:  t,
		result: gm.ref,
	}
	t.addMethod(m)
	gm.decl.Handle = m
	gm.scope.owner = t
	decl.Methods = append(decl.Methods, gm.decl)
}

// goImportPath returns the import path of the package holding rel.
func goImportPath(proj *Project, rel string) string {
	mod := proj.ModulePath
	if mod == "" {
		mod = proj.Name
	}
	inProject := strings.TrimPrefix(strings.TrimPrefix(rel, proj.RelDir), "/")
	if dir := path.Dir(inProject); dir != "." {
		return mod + "/" + dir
	}
	return mod
}

func goDeclKind(k extract.TypeKind) extract.DeclKind {
	switch k {
	case extract.KindClass:
		return extract.DeclClass
	case extract.KindInterface:
		return extract.DeclInterface
	}
	return extract.DeclOther
}

func goModifiers(name string) []string {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return []string{"exported"}
	}
	return []string{"unexported"}
}

func baseRefs(t *typeInfo) []*extract.TypeRef {
	var refs []*extract.TypeRef
	for _, b := range t.bases {
		refs = append(refs, &extract.TypeRef{Name: b.name, Handle: b})
	}
	return refs
}

// ---------- Imports ----------

func (f *goFile) importDecl(n *tree_sitter.Node) {
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "import_spec":
			f.importSpec(c)
		case "import_spec_list":
			for _, spec := range namedChildren(c) {
				if spec.Kind() == "import_spec" {
					f.importSpec(spec)
				}
			}
		}
	}
}

func (f *goFile) importSpec(n *tree_sitter.Node) {
	p := strings.Trim(text(n.ChildByFieldName("path"), f.src), "\"`")
	if p == "" {
		return
	}
	name := n.ChildByFieldName("name")
	if name == nil {
		f.imports = append(f.imports, p)
		return
	}
	switch name.Kind() {
	case "package_identifier":
		f.scope.imports[text(name, f.src)] = importRef{module: p}
	}
	// Dot and blank imports bind no name.
}

// ---------- Types ----------

func (f *goFile) typeSpec(ix *index, spec *tree_sitter.Node) {
	name := text(spec.ChildByFieldName("name"), f.src)
	if name == "" {
		return
	}
	typ := spec.ChildByFieldName("type")

	kind, tkind := extract.DeclOther, extract.KindOther
	switch {
	case spec.Kind() == "type_alias":
		kind = extract.DeclAlias
	case typ != nil && typ.Kind() == "struct_type":
		kind, tkind = extract.DeclClass, extract.KindClass
	case typ != nil && typ.Kind() == "interface_type":
		kind, tkind = extract.DeclInterface, extract.KindInterface
	}

	sym := &extract.TypeSymbol{Name: name, Kind: tkind, Namespace: f.pkg.ns}
	t := newTypeInfo(sym)
	ix.types[sym.FullName()] = t

	decl := &extract.TypeDecl{Kind: kind, Name: name, Modifiers: goModifiers(name), Handle: t}
	f.declared[name] = decl
	f.out.Types = append(f.out.Types, decl)

	sc := f.scope.withTypeParams(f.typeParams(spec))
	switch tkind {
	case extract.KindClass:
		f.structBody(typ, t, sc)
	case extract.KindInterface:
		decl.Methods = f.interfaceBody(typ, t, sc)
	}
	decl.Bases = baseRefs(t)
}

func (f *goFile) typeParams(n *tree_sitter.Node) []string {
	var names []string
	for _, p := range namedChildren(n.ChildByFieldName("type_parameters")) {
		for _, id := range fieldNodes(p, "name") {
			names = append(names, text(id, f.src))
		}
	}
	return names
}

// structBody records fields; embedded fields are bases.
func (f *goFile) structBody(n *tree_sitter.Node, t *typeInfo, sc *lexScope) {
	for _, list := range namedChildren(n) {
		if list.Kind() != "field_declaration_list" {
			continue
		}
		for _, fd := range namedChildren(list) {
			if fd.Kind() != "field_declaration" {
				continue
			}
			ref := typeRef{name: f.typeName(fd.ChildByFieldName("type")), scope: sc}
			names := fieldNodes(fd, "name")
			if len(names) == 0 {
				if !ref.empty() {
					t.bases = append(t.bases, ref)
					// An embedded field is addressed by its type's name.
					t.fields[lastSegment(ref.name)] = ref
				}
				continue
			}
			for _, id := range names {
				t.fields[text(id, f.src)] = ref
			}
		}
	}
}

// interfaceBody records method elements and embedded interfaces.
func (f *goFile) interfaceBody(n *tree_sitter.Node, t *typeInfo, sc *lexScope) []*extract.MethodDecl {
	var decls []*extract.MethodDecl
	for _, el := range namedChildren(n) {
		switch el.Kind() {
		case "method_elem":
			name := text(el.ChildByFieldName("name"), f.src)
			if name == "" {
				continue
			}
			result := el.ChildByFieldName("result")
			m := &methodInfo{
				sym:    newMethodSymbol(t, name, f.params(el.ChildByFieldName("parameters"), nil, sc), typeText(text(result, f.src))),
				owner:  t,
				result: f.resultRef(result, sc),
			}
			t.addMethod(m)
			decls = append(decls, &extract.MethodDecl{Name: name, Modifiers: goModifiers(name), Handle: m})
		case "type_elem":
			// Unions (A | B) are constraints, not embeddings.
			if kids := namedChildren(el); len(kids) == 1 {
				if name := f.typeName(kids[0]); name != "" {
					t.bases = append(t.bases, typeRef{name: name, scope: sc})
				}
			}
		}
	}
	return decls
}

// ---------- Methods ----------

func (f *goFile) methodDecl(n *tree_sitter.Node) {
	name := text(n.ChildByFieldName("name"), f.src)
	recvList := namedChildren(n.ChildByFieldName("receiver"))
	if name == "" || len(recvList) == 0 {
		return
	}
	recv := recvList[0]
	recvType := recv.ChildByFieldName("type")
	recvName := f.typeName(recvType)
	if recvName == "" {
		return
	}

	// Receiver type parameters: func (l *List[T]) Push(v T).
	var typeParams []string
	if g := unwrapPointer(recvType); g != nil && g.Kind() == "generic_type" {
		for _, a := range namedChildren(g.ChildByFieldName("type_arguments")) {
			typeParams = append(typeParams, text(a, f.src))
		}
	}
	sc := f.scope.withTypeParams(typeParams)

	scope := &methodScope{lex: sc, vars: make(map[string]binding)}
	if id := recv.ChildByFieldName("name"); id != nil {
		scope.vars[text(id, f.src)] = binding{typ: typeRef{name: recvName, scope: sc}}
	}
	result := n.ChildByFieldName("result")
	gm := &goMethod{
		recv:   recvName,
		params: f.params(n.ChildByFieldName("parameters"), scope, sc),
		result: typeText(text(result, f.src)),
		ref:    f.resultRef(result, sc),
		decl:   &extract.MethodDecl{Name: name, Modifiers: goModifiers(name)},
		scope:  scope,
	}
	if body := n.ChildByFieldName("body"); body != nil {
		c := &exprCollector{src: f.src, scope: scope, classify: f.classify, bind: f.bind(scope)}
		gm.decl.Body = c.collect(body)
	}
	f.methods = append(f.methods, gm)
}

// params returns the parameters of a list in order, binding them in scope
// when one is given. "a, b int" yields two parameters.
func (f *goFile) params(list *tree_sitter.Node, scope *methodScope, sc *lexScope) []graph.Param {
	var params []graph.Param
	for _, p := range namedChildren(list) {
		if p.Kind() != "parameter_declaration" && p.Kind() != "variadic_parameter_declaration" {
			continue
		}
		typ := p.ChildByFieldName("type")
		typeStr := typeText(text(typ, f.src))
		if p.Kind() == "variadic_parameter_declaration" {
			typeStr = "..." + typeStr
		}
		names := fieldNodes(p, "name")
		if len(names) == 0 {
			params = append(params, graph.Param{Type: typeStr})
			continue
		}
		for _, id := range names {
			name := text(id, f.src)
			params = append(params, graph.Param{Name: name, Type: typeStr})
			if scope != nil && p.Kind() == "parameter_declaration" {
				scope.vars[name] = binding{typ: typeRef{name: f.typeName(typ), scope: sc}}
			}
		}
	}
	return params
}

// resultRef is the type a call's first result is inferred to have.
func (f *goFile) resultRef(result *tree_sitter.Node, sc *lexScope) typeRef {
	if result == nil {
		return typeRef{}
	}
	if result.Kind() == "parameter_list" {
		kids := namedChildren(result)
		if len(kids) == 0 {
			return typeRef{}
		}
		return typeRef{name: f.typeName(kids[0].ChildByFieldName("type")), scope: sc}
	}
	return typeRef{name: f.typeName(result), scope: sc}
}

// bind records local declarations and closure parameters met in a body.
func (f *goFile) bind(scope *methodScope) func(n *tree_sitter.Node) {
	return func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "short_var_declaration":
			f.bindPairs(scope, namedChildren(n.ChildByFieldName("left")), namedChildren(n.ChildByFieldName("right")), nil)
		case "var_spec":
			f.bindPairs(scope, fieldNodes(n, "name"), namedChildren(n.ChildByFieldName("value")), n.ChildByFieldName("type"))
		case "parameter_declaration":
			typ := n.ChildByFieldName("type")
			for _, id := range fieldNodes(n, "name") {
				scope.vars[text(id, f.src)] = binding{typ: typeRef{name: f.typeName(typ), scope: scope.lex}}
			}
		}
	}
}

// bindPairs binds names to values by position. With a single value for
// several names (v, err := f()) the first name takes the value.
func (f *goFile) bindPairs(scope *methodScope, names, values []*tree_sitter.Node, typ *tree_sitter.Node) {
	for i, id := range names {
		if id.Kind() != "identifier" {
			continue
		}
		b := binding{typ: typeRef{name: f.typeName(typ), scope: scope.lex}}
		switch {
		case len(values) == len(names):
			b.init = f.valueOf(values[i])
		case i == 0 && len(values) == 1:
			b.init = f.valueOf(values[0])
		}
		scope.vars[text(id, f.src)] = b
	}
}

func (f *goFile) classify(n *tree_sitter.Node) (extract.ExprKind, *valueExpr, bool) {
	switch n.Kind() {
	case "composite_literal":
		name := f.typeName(n.ChildByFieldName("type"))
		if name == "" {
			// Slice, map and anonymous struct literals construct nothing named.
			return "", nil, false
		}
		return extract.ExprConstruct, &valueExpr{kind: valNew, name: name}, true
	case "call_expression":
		v := f.valueOf(n)
		if v.kind == valNew {
			return extract.ExprConstruct, v, true
		}
		return extract.ExprCall, v, true
	}
	return "", nil, false
}

// valueOf captures the receiver-relevant shape of an expression.
func (f *goFile) valueOf(n *tree_sitter.Node) *valueExpr {
	if n == nil {
		return &valueExpr{}
	}
	switch n.Kind() {
	case "identifier":
		return &valueExpr{kind: valIdent, name: text(n, f.src)}
	case "selector_expression":
		return &valueExpr{
			kind:   valMember,
			name:   text(n.ChildByFieldName("field"), f.src),
			object: f.valueOf(n.ChildByFieldName("operand")),
		}
	case "call_expression":
		fn := n.ChildByFieldName("function")
		args := namedChildren(n.ChildByFieldName("arguments"))
		if fn != nil && fn.Kind() == "identifier" && text(fn, f.src) == "new" && len(args) == 1 {
			return &valueExpr{kind: valNew, name: f.typeName(args[0])}
		}
		return &valueExpr{kind: valCall, object: f.valueOf(fn), arity: len(args)}
	case "composite_literal":
		return &valueExpr{kind: valNew, name: f.typeName(n.ChildByFieldName("type"))}
	case "type_assertion_expression":
		return &valueExpr{kind: valNew, name: f.typeName(n.ChildByFieldName("type"))}
	case "unary_expression":
		return f.valueOf(n.ChildByFieldName("operand"))
	case "parenthesized_expression":
		if kids := namedChildren(n); len(kids) > 0 {
			return f.valueOf(kids[0])
		}
	}
	return &valueExpr{}
}

// typeName reduces a type to the name lookup works on: pointers and type
// arguments are stripped, unnamed types yield "".
func (f *goFile) typeName(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "type_identifier", "identifier":
		return text(n, f.src)
	case "qualified_type":
		return text(n.ChildByFieldName("package"), f.src) + "." + text(n.ChildByFieldName("name"), f.src)
	case "selector_expression":
		// new(pkg.T) parses its argument as an expression.
		if op := n.ChildByFieldName("operand"); op != nil && op.Kind() == "identifier" {
			return text(op, f.src) + "." + text(n.ChildByFieldName("field"), f.src)
		}
	case "generic_type":
		return f.typeName(n.ChildByFieldName("type"))
	case "pointer_type", "parenthesized_type":
		if kids := namedChildren(n); len(kids) > 0 {
			return f.typeName(kids[0])
		}
	}
	return ""
}

func unwrapPointer(n *tree_sitter.Node) *tree_sitter.Node {
	for n != nil && n.Kind() == "pointer_type" {
		kids := namedChildren(n)
		if len(kids) == 0 {
			return nil
		}
		n = kids[0]
	}
	return n
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
