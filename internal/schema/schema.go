// Package schema provides the schema node model used by the registry.
package schema

// Kind identifies the variant of a schema node.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindUnion   Kind = "union"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"

	// KindRef marks a node that carries no structure of its own, only the
	// id of the schema it stands in for. Reference nodes are leaves for
	// graph traversal, which is what makes cyclic schemas harmless.
	KindRef Kind = "ref"
)

// Node is a schema tree node. Exactly one variant's fields are meaningful,
// selected by Kind; metadata fields are valid on any variant.
type Node struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`

	// Metadata. Stripped before structural comparison.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Examples    []any  `json:"examples,omitempty"`
	Default     any    `json:"default,omitempty"`
	Comment     string `json:"comment,omitempty"`

	// KindObject
	Fields   map[string]*Node `json:"fields,omitempty"`
	Required []string         `json:"required,omitempty"`
	Open     bool             `json:"open,omitempty"` // additional properties permitted

	// KindArray
	Items *Node `json:"items,omitempty"`

	// KindUnion
	Variants []*Node `json:"variants,omitempty"`
	Ordered  bool    `json:"ordered,omitempty"` // branch order is load-bearing

	// KindRef
	Ref string `json:"ref,omitempty"`

	// Validation keywords the registry carries through to the engine
	// untouched (minLength, pattern, enum, ...).
	Constraints map[string]any `json:"constraints,omitempty"`
}

// Registrable is the capability a value must provide to be picked up by
// bulk discovery: a name, a kind tag, and access to its schema tree.
// Conformance is checked via type assertion, never by probing fields.
type Registrable interface {
	SchemaID() string
	SchemaKind() Kind
	SchemaNode() *Node
}

// SchemaID returns the id the node is registered under.
func (n *Node) SchemaID() string { return n.ID }

// SchemaKind returns the node's variant tag.
func (n *Node) SchemaKind() Kind { return n.Kind }

// SchemaNode returns the node itself.
func (n *Node) SchemaNode() *Node { return n }

var _ Registrable = (*Node)(nil)

// NewRef builds a reference node pointing at the schema named id. The
// target does not need to exist yet; only resolving the reference later
// can fail.
func NewRef(id string) *Node {
	return &Node{Kind: KindRef, Ref: id}
}

// NewObject builds an object node with the given fields.
func NewObject(id string, fields map[string]*Node, required ...string) *Node {
	return &Node{Kind: KindObject, ID: id, Fields: fields, Required: required}
}

// NewArray builds an array node with the given item schema.
func NewArray(id string, items *Node) *Node {
	return &Node{Kind: KindArray, ID: id, Items: items}
}

// NewUnion builds a union node over the given variants.
func NewUnion(id string, variants ...*Node) *Node {
	return &Node{Kind: KindUnion, ID: id, Variants: variants}
}

// Primitive builds a primitive node of the given kind.
func Primitive(kind Kind) *Node {
	return &Node{Kind: kind}
}

// IsRef reports whether the node is a reference marker.
func (n *Node) IsRef() bool { return n != nil && n.Kind == KindRef }

// Children returns the node's direct child schemas: object field values,
// the array item schema, and union variants. Reference nodes have no
// children.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindObject:
		if len(n.Fields) == 0 {
			return nil
		}
		children := make([]*Node, 0, len(n.Fields))
		for _, name := range sortedFieldNames(n.Fields) {
			children = append(children, n.Fields[name])
		}
		return children
	case KindArray:
		if n.Items == nil {
			return nil
		}
		return []*Node{n.Items}
	case KindUnion:
		return n.Variants
	default:
		return nil
	}
}
