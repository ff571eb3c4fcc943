package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidTriple is returned when a triple is missing an endpoint or
// connects labels its relationship type does not allow.
var ErrInvalidTriple = errors.New("invalid triple")

// Triple is a directed, typed relationship between two nodes.
// Use the constructors below; they only accept endpoint kinds the
// relationship allows.
type Triple struct {
	Source Node    `json:"-"`
	Type   RelType `json:"-"`
	Target Node    `json:"-"`
}

// Have links a type to one of its methods.
func Have(owner TypeNode, method *MethodNode) Triple {
	return Triple{Source: owner, Type: RelHave, Target: method}
}

// Invoke links a calling method to the method it calls.
func Invoke(caller, callee *MethodNode) Triple {
	return Triple{Source: caller, Type: RelInvoke, Target: callee}
}

// Construct links a method to a class it instantiates.
func Construct(method *MethodNode, class *ClassNode) Triple {
	return Triple{Source: method, Type: RelConstruct, Target: class}
}

// OfType links a type to a base class or implemented interface.
func OfType(derived, base TypeNode) Triple {
	return Triple{Source: derived, Type: RelOfType, Target: base}
}

// DeclaredAt links a type to the file declaring it.
func DeclaredAt(t TypeNode, file *FileNode) Triple {
	return Triple{Source: t, Type: RelDeclaredAt, Target: file}
}

// FileIncludedIn links a file to its containing folder.
func FileIncludedIn(file *FileNode, parent *FolderNode) Triple {
	return Triple{Source: file, Type: RelIncludedIn, Target: parent}
}

// FolderIncludedIn links a folder to its parent folder.
func FolderIncludedIn(folder, parent *FolderNode) Triple {
	return Triple{Source: folder, Type: RelIncludedIn, Target: parent}
}

// DependsOnProject links a project to another project of the same solution.
func DependsOnProject(project, dep *ProjectNode) Triple {
	return Triple{Source: project, Type: RelDependsOn, Target: dep}
}

// DependsOnPackage links a project to a third-party package.
func DependsOnPackage(project *ProjectNode, dep *PackageNode) Triple {
	return Triple{Source: project, Type: RelDependsOn, Target: dep}
}

// Validate checks that both endpoints are present and that the relationship
// allows their labels.
func (t Triple) Validate() error {
	if t.Source == nil || t.Target == nil {
		return fmt.Errorf("%w: %s with missing endpoint", ErrInvalidTriple, t.Type)
	}
	if !t.Type.Allows(t.Source.Label(), t.Target.Label()) {
		return fmt.Errorf("%w: %s cannot connect %s to %s",
			ErrInvalidTriple, t.Type, t.Source.Label(), t.Target.Label())
	}
	return nil
}

// Key identifies the edge for merging: relationship type plus both endpoint
// identities.
func (t Triple) Key() string {
	return fmt.Sprintf("%s|%s:%s|%s:%s",
		t.Type, t.Source.Label(), t.Source.Pk(), t.Target.Label(), t.Target.Pk())
}

// String renders the triple as "TYPE(Source, Target)".
func (t Triple) String() string {
	return fmt.Sprintf("%s(%s, %s)", t.Type, Describe(t.Source), Describe(t.Target))
}
