package selector

import "golang.org/x/exp/maps"

// A TreeKind selects one of the parent/child topologies exposed by a node set,
// the matcher does not attach any meaning to it.
type TreeKind uint8

const (
	LogicalTree TreeKind = iota
	VisualTree
)

func (k TreeKind) String() string {
	switch k {
	case LogicalTree:
		return "logical"
	case VisualTree:
		return "visual"
	default:
		return "unknown"
	}
}

// Node is the read-only view of an element tree the matcher works on. Implementations
// must be comparable (pointers are), the matcher compares nodes with ==.
// Parent returns nil for roots.
type Node interface {
	TypeName() string
	NamespaceAlias() string //empty if the type is not qualified.
	ID() string
	HasClass(name string) bool
	Parent(kind TreeKind) Node
	Children(kind TreeKind) []Node

	// IsOfOrDerivedFrom reports whether the node's type is typeName or a subtype of it,
	// an empty namespaceURI matches any namespace.
	IsOfOrDerivedFrom(namespaceURI, typeName string) bool
}

// IndexedNode is implemented by nodes that know their index in the parent's children,
// the matcher uses it instead of scanning the sibling list.
type IndexedNode interface {
	Node
	IndexInParent(kind TreeKind) int
}

// NamespacedNode is implemented by nodes that may only carry a namespace alias, the matcher
// passes the URI it resolved for the alias so that the type hierarchy can be looked up by URI.
type NamespacedNode interface {
	Node
	IsOfOrDerivedFromIn(nodeNamespaceURI, namespaceURI, typeName string) bool
}

// Namespaces maps namespace aliases to URIs. The zero value and a nil *Namespaces
// are valid and resolve every alias to itself.
type Namespaces struct {
	Default string //URI of unqualified types.
	uris    map[string]string
}

func NewNamespaces(defaultURI string) *Namespaces {
	return &Namespaces{
		Default: defaultURI,
		uris:    map[string]string{},
	}
}

func (n *Namespaces) Add(alias, uri string) {
	if n.uris == nil {
		n.uris = map[string]string{}
	}
	n.uris[alias] = uri
}

// Lookup returns the URI bound to alias.
func (n *Namespaces) Lookup(alias string) (string, bool) {
	if n == nil {
		return "", false
	}
	uri, ok := n.uris[alias]
	return uri, ok
}

// Resolve returns the URI of alias: the default namespace for an empty alias, the alias
// itself if it is not declared.
func (n *Namespaces) Resolve(alias string) string {
	if alias == "" {
		if n == nil {
			return ""
		}
		return n.Default
	}
	if uri, ok := n.Lookup(alias); ok {
		return uri
	}
	return alias
}

// Aliases returns the declared aliases, the order is unspecified.
func (n *Namespaces) Aliases() []string {
	if n == nil {
		return nil
	}
	return maps.Keys(n.uris)
}

// siblingsOf returns the children of node's parent and the index of node in it,
// (nil, -1) is returned for roots.
func siblingsOf(kind TreeKind, node Node) ([]Node, int) {
	parent := node.Parent(kind)
	if parent == nil {
		return nil, -1
	}
	siblings := parent.Children(kind)

	if indexed, ok := node.(IndexedNode); ok {
		index := indexed.IndexInParent(kind)
		if index >= 0 && index < len(siblings) {
			return siblings, index
		}
	}

	for i, sibling := range siblings {
		if sibling == node {
			return siblings, i
		}
	}
	return nil, -1
}

func sameType(a, b Node) bool {
	return a.TypeName() == b.TypeName() && a.NamespaceAlias() == b.NamespaceAlias()
}
