package memtree

import (
	"strings"

	"github.com/treecss/treecss/internal/css/selector"
)

const treeKindCount = 2

// A Node is an in-memory element. Nodes are built with the With* and Append* methods
// and must not be modified while selectors are being matched against them.
type Node struct {
	typeName     string
	alias        string
	namespaceURI string
	id           string
	classes      []string
	registry     *TypeRegistry

	trees [treeKindCount]links
}

type links struct {
	parent   *Node
	index    int
	children []selector.Node
}

// New creates a node, typeName can be qualified with a namespace alias: "ui|Button".
func New(typeName string) *Node {
	n := &Node{typeName: typeName}
	if alias, name, ok := strings.Cut(typeName, "|"); ok {
		n.alias = alias
		n.typeName = name
	}
	return n
}

func (n *Node) WithNamespace(alias, uri string) *Node {
	n.alias = alias
	n.namespaceURI = uri
	return n
}

func (n *Node) WithID(id string) *Node {
	n.id = id
	return n
}

// WithClasses sets the class list from a whitespace-separated string.
func (n *Node) WithClasses(classList string) *Node {
	n.classes = strings.Fields(classList)
	return n
}

func (n *Node) WithRegistry(registry *TypeRegistry) *Node {
	n.registry = registry
	return n
}

// AppendChild adds child to the children of n in the given tree.
func (n *Node) AppendChild(kind selector.TreeKind, child *Node) *Node {
	if int(kind) >= treeKindCount {
		return n
	}
	tree := &n.trees[kind]
	child.trees[kind].parent = n
	child.trees[kind].index = len(tree.children)
	tree.children = append(tree.children, child)
	return n
}

// Append adds the children to n in both the logical and the visual tree.
func (n *Node) Append(children ...*Node) *Node {
	for _, child := range children {
		n.AppendChild(selector.LogicalTree, child)
		n.AppendChild(selector.VisualTree, child)
	}
	return n
}

func (n *Node) TypeName() string {
	return n.typeName
}

func (n *Node) NamespaceAlias() string {
	return n.alias
}

func (n *Node) NamespaceURI() string {
	return n.namespaceURI
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) Classes() []string {
	return n.classes[:len(n.classes):len(n.classes)]
}

func (n *Node) HasClass(name string) bool {
	for _, class := range n.classes {
		if class == name {
			return true
		}
	}
	return false
}

func (n *Node) Parent(kind selector.TreeKind) selector.Node {
	if int(kind) >= treeKindCount || n.trees[kind].parent == nil {
		return nil
	}
	return n.trees[kind].parent
}

func (n *Node) Children(kind selector.TreeKind) []selector.Node {
	if int(kind) >= treeKindCount {
		return nil
	}
	children := n.trees[kind].children
	return children[:len(children):len(children)]
}

func (n *Node) IndexInParent(kind selector.TreeKind) int {
	if int(kind) >= treeKindCount || n.trees[kind].parent == nil {
		return -1
	}
	return n.trees[kind].index
}

func (n *Node) IsOfOrDerivedFrom(namespaceURI, typeName string) bool {
	return n.IsOfOrDerivedFromIn(n.namespaceURI, namespaceURI, typeName)
}

// IsOfOrDerivedFromIn is like IsOfOrDerivedFrom, nodeNamespaceURI is the namespace of the node
// if it has no URI of its own (alias-only nodes, HTML elements).
func (n *Node) IsOfOrDerivedFromIn(nodeNamespaceURI, namespaceURI, typeName string) bool {
	if n.namespaceURI != "" {
		nodeNamespaceURI = n.namespaceURI
	}
	self := QualifiedName{NamespaceURI: nodeNamespaceURI, Name: n.typeName}
	if n.registry == nil {
		return self.is(namespaceURI, typeName)
	}
	return n.registry.IsOfOrDerivedFrom(self, namespaceURI, typeName)
}

// Walk calls fn for n and its descendants in document order.
func (n *Node) Walk(kind selector.TreeKind, fn func(node *Node, depth int)) {
	n.walk(kind, 0, fn)
}

func (n *Node) walk(kind selector.TreeKind, depth int, fn func(node *Node, depth int)) {
	fn(n, depth)
	for _, child := range n.Children(kind) {
		child.(*Node).walk(kind, depth+1, fn)
	}
}

// String returns a selector-like description of the node: ui|Button#ok.primary
func (n *Node) String() string {
	buf := &strings.Builder{}
	if n.alias != "" {
		buf.WriteString(n.alias)
		buf.WriteByte('|')
	}
	buf.WriteString(n.typeName)
	if n.id != "" {
		buf.WriteByte('#')
		buf.WriteString(n.id)
	}
	for _, class := range n.classes {
		buf.WriteByte('.')
		buf.WriteString(class)
	}
	return buf.String()
}

// Path returns the descriptions of the ancestors of n and of n, separated by " > ".
func (n *Node) Path(kind selector.TreeKind) string {
	if int(kind) >= treeKindCount {
		return n.String()
	}

	var parts []string
	for current := n; current != nil; current = current.trees[kind].parent {
		parts = append(parts, current.String())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
