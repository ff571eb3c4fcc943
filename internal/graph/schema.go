package graph

// --- Enums ---

// Label identifies the kind of a node in the code knowledge graph. Labels are
// used verbatim as graph database node labels.
type Label string

const (
	LabelClass     Label = "Class"
	LabelInterface Label = "Interface"
	LabelMethod    Label = "Method"
	LabelFile      Label = "File"
	LabelFolder    Label = "Folder"
	LabelProject   Label = "Project"
	LabelPackage   Label = "Package"
)

// Labels lists every node label in schema order.
var Labels = []Label{
	LabelClass, LabelInterface, LabelMethod,
	LabelFile, LabelFolder,
	LabelProject, LabelPackage,
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// RelType classifies relationships between nodes.
type RelType string

const (
	RelHave       RelType = "HAVE"        // type -> method
	RelInvoke     RelType = "INVOKE"      // method -> method
	RelConstruct  RelType = "CONSTRUCT"   // method -> class
	RelOfType     RelType = "OF_TYPE"     // type -> type
	RelDeclaredAt RelType = "DECLARED_AT" // type -> file
	RelIncludedIn RelType = "INCLUDED_IN" // file/folder -> folder
	RelDependsOn  RelType = "DEPENDS_ON"  // project -> project/package
)

// RelTypes lists every relationship type in schema order.
var RelTypes = []RelType{
	RelHave, RelInvoke, RelConstruct, RelOfType,
	RelDeclaredAt, RelIncludedIn, RelDependsOn,
}

// Endpoint is an allowed (source label, target label) pair for a relationship.
type Endpoint struct {
	From Label
	To   Label
}

// relEndpoints is the closed set of label pairs each relationship may connect.
// Stores derive their relationship schema from it.
var relEndpoints = map[RelType][]Endpoint{
	RelHave: {
		{LabelClass, LabelMethod},
		{LabelInterface, LabelMethod},
	},
	RelInvoke: {
		{LabelMethod, LabelMethod},
	},
	RelConstruct: {
		{LabelMethod, LabelClass},
	},
	RelOfType: {
		{LabelClass, LabelClass},
		{LabelClass, LabelInterface},
		{LabelInterface, LabelInterface},
	},
	RelDeclaredAt: {
		{LabelClass, LabelFile},
		{LabelInterface, LabelFile},
	},
	RelIncludedIn: {
		{LabelFile, LabelFolder},
		{LabelFolder, LabelFolder},
	},
	RelDependsOn: {
		{LabelProject, LabelProject},
		{LabelProject, LabelPackage},
	},
}

// Endpoints returns the label pairs the relationship may connect.
func (r RelType) Endpoints() []Endpoint {
	return relEndpoints[r]
}

// Allows reports whether r may connect a from-labelled node to a to-labelled node.
func (r RelType) Allows(from, to Label) bool {
	for _, ep := range relEndpoints[r] {
		if ep.From == from && ep.To == to {
			return true
		}
	}
	return false
}

// Direction controls relationship traversal direction.
type Direction string

const (
	DirectionOut  Direction = "out"  // edges leaving the node
	DirectionIn   Direction = "in"   // edges entering the node
	DirectionBoth Direction = "both" // either
)

// --- Models ---

// Property keys shared by every store.
const (
	PropPk         = "pk"
	PropFullName   = "fullName"
	PropName       = "name"
	PropModifiers  = "modifiers"
	PropArguments  = "arguments"
	PropReturnType = "returnType"
	PropVersion    = "version"
)

// NodeRecord is a node as read back from a store.
type NodeRecord struct {
	Label      Label          `json:"label"`
	Pk         string         `json:"pk"`
	FullName   string         `json:"fullName"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgeRecord is a relationship as read back from a store.
type EdgeRecord struct {
	Type        RelType `json:"type"`
	SourceLabel Label   `json:"sourceLabel"`
	SourcePk    string  `json:"sourcePk"`
	TargetLabel Label   `json:"targetLabel"`
	TargetPk    string  `json:"targetPk"`
}

// NodeQuery filters nodes returned by Store.FindNodes. Zero fields match all.
type NodeQuery struct {
	Label Label  `json:"label,omitempty"`
	Name  string `json:"name,omitempty"` // substring of name, case-insensitive
	Limit int    `json:"limit,omitempty"`
}

// GraphStats summarizes a code knowledge graph.
type GraphStats struct {
	NodeCount int             `json:"nodeCount"`
	EdgeCount int             `json:"edgeCount"`
	Nodes     map[Label]int   `json:"nodes"`
	Edges     map[RelType]int `json:"edges"`
}
