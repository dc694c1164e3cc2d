package selector

import (
	"errors"
	"fmt"
)

// A compound is a run of tokens with no combinator between them, all of them must match
// the same node.
type compound struct {
	combinator TokenKind //combinator linking the compound to the one on its left, 0 for the leftmost one.

	typeKind  TokenKind //0, TypeSelector, UniversalSelector or DerivedTypeSelector
	typeName  string
	namespace string

	ids     []string
	classes []string
	pseudos []pseudoClassMatcher
}

func buildCompounds(tokens []Token) ([]compound, error) {
	compounds := []compound{{}}

	for _, token := range tokens {
		current := &compounds[len(compounds)-1]

		switch token.Kind {
		case DescendantCombinator, ChildCombinator, AdjacentSiblingCombinator, GeneralSiblingCombinator:
			compounds = append(compounds, compound{combinator: token.Kind})
		case TypeSelector, UniversalSelector, DerivedTypeSelector:
			current.typeKind = token.Kind
			current.typeName = token.Text
			current.namespace = token.Namespace
		case IdSelector:
			current.ids = append(current.ids, token.Text)
		case ClassSelector:
			current.classes = append(current.classes, token.Text)
		case PseudoClass:
			matcher := pseudoClassMatcher{kind: pseudoClassKinds[token.Text]}
			if matcher.kind.takesFormula() {
				formula, err := ParseNthFormula(token.Argument)
				if err != nil {
					return nil, err
				}
				matcher.formula = formula
			}
			current.pseudos = append(current.pseudos, matcher)
		default:
			return nil, errors.New("invalid token")
		}
	}

	return compounds, nil
}

func (c *compound) matches(ns *Namespaces, kind TreeKind, node Node) bool {
	switch c.typeKind {
	case TypeSelector:
		if node.TypeName() != c.typeName {
			return false
		}
		if c.namespace != "" && ns.Resolve(node.NamespaceAlias()) != ns.Resolve(c.namespace) {
			return false
		}
	case UniversalSelector:
		if c.namespace != "" && ns.Resolve(node.NamespaceAlias()) != ns.Resolve(c.namespace) {
			return false
		}
	case DerivedTypeSelector:
		nodeNamespaceURI := ns.Resolve(node.NamespaceAlias())
		namespaceURI := ""
		if c.namespace != "" {
			namespaceURI = ns.Resolve(c.namespace)
		}

		//own type
		if node.TypeName() == c.typeName && (namespaceURI == "" || nodeNamespaceURI == namespaceURI) {
			break
		}
		if !isOfOrDerivedFrom(node, nodeNamespaceURI, namespaceURI, c.typeName) {
			return false
		}
	}

	for _, id := range c.ids {
		if node.ID() != id {
			return false
		}
	}

	for _, class := range c.classes {
		if !node.HasClass(class) {
			return false
		}
	}

	for _, pseudo := range c.pseudos {
		if !pseudo.matches(kind, node) {
			return false
		}
	}

	return true
}

type MatchResult struct {
	IsSuccess bool

	//Node that satisfied each compound selector, from left to right. The last element is
	//the matched node itself.
	MatchedNodes []Node
}

// Matches reports whether node matches the selector, it does not allocate.
func (s *Selector) Matches(ns *Namespaces, kind TreeKind, node Node) bool {
	return s.match(ns, kind, node, nil)
}

// Match is like Matches but also reports the nodes that satisfied each compound selector.
func (s *Selector) Match(ns *Namespaces, kind TreeKind, node Node) MatchResult {
	matched := make([]Node, len(s.compounds))
	if !s.match(ns, kind, node, matched) {
		return MatchResult{}
	}
	return MatchResult{IsSuccess: true, MatchedNodes: matched}
}

// match evaluates the compounds from right to left, each combinator selects the node
// the next compound on the left is tested against. The first satisfying node is kept.
func (s *Selector) match(ns *Namespaces, kind TreeKind, node Node, matched []Node) bool {
	if node == nil {
		return false
	}

	last := len(s.compounds) - 1
	if !s.compounds[last].matches(ns, kind, node) {
		return false
	}
	if matched != nil {
		matched[last] = node
	}

	current := node

	for i := last; i > 0; i-- {
		left := &s.compounds[i-1]
		var found Node

		switch s.compounds[i].combinator {
		case DescendantCombinator:
			for ancestor := current.Parent(kind); ancestor != nil; ancestor = ancestor.Parent(kind) {
				if left.matches(ns, kind, ancestor) {
					found = ancestor
					break
				}
			}
		case ChildCombinator:
			if parent := current.Parent(kind); parent != nil && left.matches(ns, kind, parent) {
				found = parent
			}
		case AdjacentSiblingCombinator:
			siblings, index := siblingsOf(kind, current)
			if index > 0 && left.matches(ns, kind, siblings[index-1]) {
				found = siblings[index-1]
			}
		case GeneralSiblingCombinator:
			siblings, index := siblingsOf(kind, current)
			for j := index - 1; j >= 0; j-- {
				if left.matches(ns, kind, siblings[j]) {
					found = siblings[j]
					break
				}
			}
		default:
			panic(fmt.Errorf("invalid combinator %s", s.compounds[i].combinator))
		}

		if found == nil {
			return false
		}
		current = found
		if matched != nil {
			matched[i-1] = current
		}
	}

	return true
}

func isOfOrDerivedFrom(node Node, nodeNamespaceURI, namespaceURI, typeName string) bool {
	if namespaced, ok := node.(NamespacedNode); ok {
		return namespaced.IsOfOrDerivedFromIn(nodeNamespaceURI, namespaceURI, typeName)
	}
	return node.IsOfOrDerivedFrom(namespaceURI, typeName)
}
