package graph

import "fmt"

// Node is a vertex of the code knowledge graph. The set of implementations is
// closed: only the node types in this package satisfy it, so a type switch
// over Node covers every kind.
//
// Nodes are immutable values; the primary key is computed once at
// construction from the identity-defining fields.
type Node interface {
	Label() Label
	FullName() string
	Name() string
	// Pk is the deterministic primary key stores match on when merging.
	Pk() string
	// Properties returns the properties a store assigns on merge, pk included.
	Properties() map[string]any

	sealed()
}

// TypeNode is a declared type: *ClassNode or *InterfaceNode.
type TypeNode interface {
	Node
	Modifiers() string

	typeNode()
}

type base struct {
	fullName string
	name     string
	pk       string
}

func newBase(fullName, name string, identity ...string) base {
	return base{
		fullName: fullName,
		name:     name,
		pk:       derivePk(append([]string{fullName}, identity...)...),
	}
}

func (b base) FullName() string { return b.fullName }
func (b base) Name() string     { return b.name }
func (b base) Pk() string       { return b.pk }
func (base) sealed()            {}

func (b base) properties() map[string]any {
	return map[string]any{
		PropPk:       b.pk,
		PropFullName: b.fullName,
		PropName:     b.name,
	}
}

// codeBase adds declaration modifiers to base.
type codeBase struct {
	base
	modifiers string
}

func newCodeBase(fullName, name string, modifiers []string, identity ...string) codeBase {
	return codeBase{
		base:      newBase(fullName, name, identity...),
		modifiers: renderModifiers(modifiers),
	}
}

// Modifiers returns the rendered modifier list, e.g. "public, static".
func (c codeBase) Modifiers() string { return c.modifiers }

func (c codeBase) properties() map[string]any {
	props := c.base.properties()
	// A reference to a type or method carries no modifiers; leaving the key out
	// keeps a later merge from clearing what the declaration wrote.
	if c.modifiers != "" {
		props[PropModifiers] = c.modifiers
	}
	return props
}

// ---------- Code ----------

// ClassNode is a class declaration.
type ClassNode struct{ codeBase }

// NewClassNode returns a class node; modifiers may be nil for references.
func NewClassNode(fullName, name string, modifiers []string) *ClassNode {
	return &ClassNode{newCodeBase(fullName, name, modifiers)}
}

func (*ClassNode) Label() Label                 { return LabelClass }
func (n *ClassNode) Properties() map[string]any { return n.properties() }
func (*ClassNode) typeNode()                    {}

// InterfaceNode is an interface declaration.
type InterfaceNode struct{ codeBase }

// NewInterfaceNode returns an interface node; modifiers may be nil for references.
func NewInterfaceNode(fullName, name string, modifiers []string) *InterfaceNode {
	return &InterfaceNode{newCodeBase(fullName, name, modifiers)}
}

func (*InterfaceNode) Label() Label                 { return LabelInterface }
func (n *InterfaceNode) Properties() map[string]any { return n.properties() }
func (*InterfaceNode) typeNode()                    {}

// MethodNode is a method. Its primary key covers the full name, the parameter
// types and the return type, so overloads get distinct identities.
type MethodNode struct {
	codeBase
	params     []Param
	arguments  string
	returnType string
}

// NewMethodNode returns a method node.
func NewMethodNode(fullName, name string, params []Param, returnType string, modifiers []string) *MethodNode {
	ps := append([]Param(nil), params...)
	return &MethodNode{
		codeBase:   newCodeBase(fullName, name, modifiers, signature(ps), returnType),
		params:     ps,
		arguments:  renderArguments(ps),
		returnType: returnType,
	}
}

func (*MethodNode) Label() Label { return LabelMethod }

// Arguments returns the rendered parameter list, e.g. "int id, string name".
func (n *MethodNode) Arguments() string { return n.arguments }

// Params returns a copy of the parameters.
func (n *MethodNode) Params() []Param { return append([]Param(nil), n.params...) }

// ReturnType returns the declared return type.
func (n *MethodNode) ReturnType() string { return n.returnType }

func (n *MethodNode) Properties() map[string]any {
	props := n.properties()
	props[PropArguments] = n.arguments
	props[PropReturnType] = n.returnType
	return props
}

// ---------- Structure ----------

// FileNode is a source file. FullName is the normalized path.
type FileNode struct{ base }

// NewFileNode returns a file node.
func NewFileNode(fullName, name string) *FileNode {
	return &FileNode{newBase(fullName, name)}
}

func (*FileNode) Label() Label                 { return LabelFile }
func (n *FileNode) Properties() map[string]any { return n.properties() }

// FolderNode is a directory. FullName is the normalized path.
type FolderNode struct{ base }

// NewFolderNode returns a folder node.
func NewFolderNode(fullName, name string) *FolderNode {
	return &FolderNode{newBase(fullName, name)}
}

func (*FolderNode) Label() Label                 { return LabelFolder }
func (n *FolderNode) Properties() map[string]any { return n.properties() }

// ProjectNode is a compilation unit: an npm package or a Go module.
type ProjectNode struct{ base }

// NewProjectNode returns a project node.
func NewProjectNode(fullName, name string) *ProjectNode {
	return &ProjectNode{newBase(fullName, name)}
}

func (*ProjectNode) Label() Label                 { return LabelProject }
func (n *ProjectNode) Properties() map[string]any { return n.properties() }

// PackageNode is a versioned third-party dependency. The version is part of
// its identity.
type PackageNode struct {
	base
	version string
}

// NewPackageNode returns a package node.
func NewPackageNode(fullName, name, version string) *PackageNode {
	return &PackageNode{
		base:    newBase(fullName, name, version),
		version: version,
	}
}

func (*PackageNode) Label() Label { return LabelPackage }

// Version returns the package version.
func (n *PackageNode) Version() string { return n.version }

func (n *PackageNode) Properties() map[string]any {
	props := n.properties()
	props[PropVersion] = n.version
	return props
}

// Describe renders a node for logs and diagnostics, e.g. "Class(app.User)".
func Describe(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", n.Label(), n.FullName())
}
