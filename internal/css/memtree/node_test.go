package memtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/treecss/treecss/internal/css/selector"
)

func TestNode(t *testing.T) {

	t.Run("qualified type name", func(t *testing.T) {
		node := New("ui|Button")
		assert.Equal(t, "Button", node.TypeName())
		assert.Equal(t, "ui", node.NamespaceAlias())
		assert.Equal(t, "ui|Button", node.String())
	})

	t.Run("classes and id", func(t *testing.T) {
		node := New("Button").WithID("ok").WithClasses("  primary  large ")
		assert.Equal(t, []string{"primary", "large"}, node.Classes())
		assert.True(t, node.HasClass("primary"))
		assert.True(t, node.HasClass("large"))
		assert.False(t, node.HasClass("prim"))
		assert.Equal(t, "Button#ok.primary.large", node.String())
	})

	t.Run("root", func(t *testing.T) {
		node := New("Window")
		assert.Nil(t, node.Parent(selector.LogicalTree))
		assert.Nil(t, node.Parent(selector.VisualTree))
		assert.Equal(t, -1, node.IndexInParent(selector.LogicalTree))
		assert.Empty(t, node.Children(selector.LogicalTree))
	})

	t.Run("Append adds children to both trees", func(t *testing.T) {
		first := New("Label")
		second := New("Button")
		parent := New("StackLayout").Append(first, second)

		for _, kind := range []selector.TreeKind{selector.LogicalTree, selector.VisualTree} {
			assert.Equal(t, []selector.Node{first, second}, parent.Children(kind))
			assert.Equal(t, selector.Node(parent), second.Parent(kind))
			assert.Equal(t, 0, first.IndexInParent(kind))
			assert.Equal(t, 1, second.IndexInParent(kind))
		}
	})

	t.Run("AppendChild only affects a single tree", func(t *testing.T) {
		child := New("Border")
		parent := New("Window").AppendChild(selector.VisualTree, child)

		assert.Equal(t, selector.Node(parent), child.Parent(selector.VisualTree))
		assert.Nil(t, child.Parent(selector.LogicalTree))
		assert.Empty(t, parent.Children(selector.LogicalTree))
	})

	t.Run("Walk and Path", func(t *testing.T) {
		label := New("Label").WithClasses("title")
		window := New("Window").Append(New("StackLayout").Append(label, New("Button")))

		var visited []string
		window.Walk(selector.LogicalTree, func(node *Node, depth int) {
			visited = append(visited, node.TypeName())
			if node == label {
				assert.Equal(t, 2, depth)
			}
		})

		assert.Equal(t, []string{"Window", "StackLayout", "Label", "Button"}, visited)
		assert.Equal(t, "Window > StackLayout > Label.title", label.Path(selector.LogicalTree))
	})
}

func TestTypeRegistry(t *testing.T) {
	const uri = "urn:ui"

	registry := NewTypeRegistry()
	element := QualifiedName{NamespaceURI: uri, Name: "UIElement"}
	control := QualifiedName{NamespaceURI: uri, Name: "Control"}
	button := QualifiedName{NamespaceURI: uri, Name: "Button"}

	registry.Register(control, element)
	registry.Register(button, control)

	base, ok := registry.Base(button)
	assert.True(t, ok)
	assert.Equal(t, control, base)

	_, ok = registry.Base(element)
	assert.False(t, ok)

	assert.True(t, registry.IsOfOrDerivedFrom(button, uri, "Button"))
	assert.True(t, registry.IsOfOrDerivedFrom(button, uri, "Control"))
	assert.True(t, registry.IsOfOrDerivedFrom(button, uri, "UIElement"))
	assert.True(t, registry.IsOfOrDerivedFrom(button, "", "UIElement"))
	assert.False(t, registry.IsOfOrDerivedFrom(button, "urn:other", "UIElement"))
	assert.False(t, registry.IsOfOrDerivedFrom(element, uri, "Button"))

	t.Run("cyclic registrations", func(t *testing.T) {
		a := QualifiedName{Name: "A"}
		b := QualifiedName{Name: "B"}
		registry := NewTypeRegistry()
		registry.Register(a, b)
		registry.Register(b, a)

		assert.True(t, registry.IsOfOrDerivedFrom(a, "", "B"))
		assert.False(t, registry.IsOfOrDerivedFrom(a, "", "C"))
	})

	t.Run("node without registry", func(t *testing.T) {
		node := New("Button").WithNamespace("ui", uri)
		assert.True(t, node.IsOfOrDerivedFrom(uri, "Button"))
		assert.True(t, node.IsOfOrDerivedFrom("", "Button"))
		assert.False(t, node.IsOfOrDerivedFrom(uri, "Control"))
	})
}
