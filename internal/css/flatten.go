package css

import (
	"strings"
)

type flattener struct {
	diagnostics *diagnosticCollector
	rules       []CompiledRule
}

type deferredRule struct {
	rule           *Node
	parentSelector string
}

// flatten turns the nested rules of the stylesheet into a flat list of rules, the position of
// a rule in the list is its priority.
func (f *flattener) flatten(stylesheet *Node) []CompiledRule {
	for _, child := range stylesheet.Children {
		if child.Type == StyleRule {
			f.flattenRule(child, "")
		}
	}
	return f.rules
}

// flattenRule emits one rule per selector of the group of rule, each one followed by the
// nested rules without parent reference. A group without parent reference is expanded from
// its last selector to its first one. Nested rules with a parent reference are flattened after
// all the selectors of the group have been emitted.
func (f *flattener) flattenRule(rule *Node, parentSelector string) {
	group := rule.Children[0]
	selectors := group.Children

	if !hasParentReference(rule) {
		reversed := make([]*Node, len(selectors))
		for i, selector := range selectors {
			reversed[len(selectors)-1-i] = selector
		}
		selectors = reversed
	}

	declarations := ownDeclarations(rule)
	var deferred []deferredRule

	for _, selector := range selectors {
		combined, ok := f.combine(parentSelector, selector)
		if !ok {
			continue
		}

		f.rules = append(f.rules, CompiledRule{
			SelectorString: combined,
			Declarations:   append([]StyleDeclaration(nil), declarations...),
			Origin:         rule,
		})

		for _, child := range rule.Children[1:] {
			if child.Type != StyleRule {
				continue
			}
			if hasParentReference(child) {
				deferred = append(deferred, deferredRule{rule: child, parentSelector: combined})
			} else {
				f.flattenRule(child, combined)
			}
		}
	}

	for _, d := range deferred {
		f.flattenRule(d.rule, d.parentSelector)
	}
}

// combine returns the selector of a nested rule: the parent reference is replaced by the parent
// selector, selectors without parent reference are descendants of the parent.
func (f *flattener) combine(parentSelector string, selector *Node) (string, bool) {
	if !selector.HasParentReference() {
		if parentSelector == "" {
			return selector.Data, true
		}
		return parentSelector + " " + selector.Data, true
	}

	if parentSelector == "" {
		f.diagnostics.addAt(AmpersandWithoutParent, AMPERSAND_WITHOUT_PARENT_MSG+" ("+selector.Data+")", selector)
		return "", false
	}

	return strings.ReplaceAll(selector.Data, "&", parentSelector), true
}

func hasParentReference(rule *Node) bool {
	for _, selector := range rule.Children[0].Children {
		if selector.HasParentReference() {
			return true
		}
	}
	return false
}

func ownDeclarations(rule *Node) []StyleDeclaration {
	var declarations []StyleDeclaration
	for _, child := range rule.Children[1:] {
		if child.Type == Declaration {
			declarations = append(declarations, StyleDeclaration{
				Property: child.Data,
				Value:    child.Value,
			})
		}
	}
	return declarations
}
