package memtree

import (
	"errors"
	"fmt"
	"io"

	"github.com/treecss/treecss/internal/css/selector"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNoRootElement = errors.New("document has no root element")

	//elements that are part of the logical tree but are never rendered.
	nonRenderedElements = map[atom.Atom]bool{
		atom.Head:     true,
		atom.Script:   true,
		atom.Style:    true,
		atom.Template: true,
		atom.Noscript: true,
	}
)

// FromHTML parses an HTML document and returns its root element (<html>). Every element
// is part of the logical tree, elements that are not rendered (and their descendants)
// are excluded from the visual tree. The element's namespace, if any, becomes the node's
// namespace alias.
func FromHTML(r io.Reader, registry *TypeRegistry) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rootElement *html.Node
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			rootElement = child
			break
		}
	}
	if rootElement == nil {
		return nil, ErrNoRootElement
	}

	return convertHTMLElement(rootElement, registry, true), nil
}

func convertHTMLElement(element *html.Node, registry *TypeRegistry, visual bool) *Node {
	node := New(element.Data).WithRegistry(registry)
	if element.Namespace != "" {
		node.alias = element.Namespace
	}

	for _, attr := range element.Attr {
		if attr.Namespace != "" {
			continue
		}
		switch attr.Key {
		case "id":
			node.WithID(attr.Val)
		case "class":
			node.WithClasses(attr.Val)
		}
	}

	for child := element.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		childVisual := visual && !nonRenderedElements[child.DataAtom]
		childNode := convertHTMLElement(child, registry, childVisual)

		node.AppendChild(selector.LogicalTree, childNode)
		if childVisual {
			node.AppendChild(selector.VisualTree, childNode)
		}
	}

	return node
}
