package css

import "github.com/treecss/treecss/internal/css/selector"

// MatchingRules returns the rules whose selector matches node, in priority order.
// Rules with an invalid selector never match.
func (s *StyleSheet) MatchingRules(kind selector.TreeKind, node selector.Node) []*CompiledRule {
	var matching []*CompiledRule
	for i := range s.Rules {
		rule := &s.Rules[i]
		if rule.Selector != nil && rule.Selector.Matches(s.Namespaces, kind, node) {
			matching = append(matching, rule)
		}
	}
	return matching
}

// ComputeDeclarations merges the declarations of the rules matching node, the last value of a
// property wins. The declarations are ordered by the first appearance of their property.
func (s *StyleSheet) ComputeDeclarations(kind selector.TreeKind, node selector.Node) []StyleDeclaration {
	var declarations []StyleDeclaration
	indexes := map[string]int{}

	for _, rule := range s.MatchingRules(kind, node) {
		for _, declaration := range rule.Declarations {
			if index, ok := indexes[declaration.Property]; ok {
				declarations[index].Value = declaration.Value
				continue
			}
			indexes[declaration.Property] = len(declarations)
			declarations = append(declarations, declaration)
		}
	}
	return declarations
}
