package css

import (
	"fmt"
	"strings"
)

type variableScope struct {
	parent   *variableScope
	bindings map[string]*variableBinding
}

func newVariableScope(parent *variableScope) *variableScope {
	return &variableScope{
		parent:   parent,
		bindings: map[string]*variableBinding{},
	}
}

func (s *variableScope) lookup(name string) (*variableBinding, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if binding, ok := scope.bindings[name]; ok {
			return binding, true
		}
	}
	return nil, false
}

// bind applies a variable assignment to the scope: a non-default assignment always
// (re)binds the name, a default assignment only binds it if it is not visible.
func (s *variableScope) bind(assignment *Node) {
	if assignment.Default {
		if _, ok := s.lookup(assignment.Data); ok {
			return
		}
	}
	s.bindings[assignment.Data] = &variableBinding{
		assignment: assignment,
		scope:      s,
	}
}

type bindingState uint8

const (
	unresolved bindingState = iota
	resolving
	resolved
)

type variableBinding struct {
	assignment *Node
	scope      *variableScope //scope the value is evaluated in.
	state      bindingState
	value      string
}

// variableResolver substitutes variable references in declaration values. Each compilation
// uses its own resolver, the scope stack is discarded afterwards.
type variableResolver struct {
	diagnostics *diagnosticCollector
	root        *variableScope
	stack       []*variableScope
}

func newVariableResolver(diagnostics *diagnosticCollector) *variableResolver {
	return &variableResolver{diagnostics: diagnostics}
}

// resolve substitutes the variables of the declarations of the stylesheet in place and returns
// the resolved values of the top-level variables.
func (r *variableResolver) resolve(stylesheet *Node) map[string]string {
	r.root = newVariableScope(nil)
	r.stack = []*variableScope{r.root}

	for _, child := range stylesheet.Children {
		if child.Type == VariableAssignment {
			r.root.bind(child)
		}
	}

	WalkAST(stylesheet, func(node, parent *Node, ancestorChain []*Node, after bool) (AstTraversalAction, error) {
		switch node.Type {
		case StyleRule:
			scope := newVariableScope(r.current())
			for _, child := range node.Children {
				if child.Type == VariableAssignment {
					scope.bind(child)
				}
			}
			r.stack = append(r.stack, scope)
		case Declaration:
			value := r.substitute(node.Value, r.current(), node)
			if unquoted, ok := unquoteString(value); ok {
				value = unquoted
			}
			node.Value = value
			return PruneAstTraversal, nil
		case SelectorGroup, VariableAssignment, ImportDirective, NamespaceDirective, Comment:
			return PruneAstTraversal, nil
		}
		return ContinueAstTraversal, nil
	}, func(node, parent *Node, ancestorChain []*Node, after bool) (AstTraversalAction, error) {
		if node.Type == StyleRule {
			r.stack = r.stack[:len(r.stack)-1]
		}
		return ContinueAstTraversal, nil
	})

	values := make(map[string]string, len(r.root.bindings))
	for _, child := range stylesheet.Children {
		if child.Type != VariableAssignment {
			continue
		}
		name := child.Data
		if _, ok := values[name]; ok {
			continue
		}
		binding := r.root.bindings[name]
		values[name] = r.valueOf(binding)
	}
	return values
}

func (r *variableResolver) current() *variableScope {
	return r.stack[len(r.stack)-1]
}

func (r *variableResolver) valueOf(binding *variableBinding) string {
	switch binding.state {
	case resolved:
		return binding.value
	case resolving:
		//only reachable through a reference, the caller reports the cycle.
		return ""
	}

	binding.state = resolving
	binding.value = r.substitute(binding.assignment.Value, binding.scope, binding.assignment)
	binding.state = resolved
	return binding.value
}

// substitute replaces the $name references of text that are not inside a string literal,
// references are looked up from scope. Undefined and cyclic references are reported and left
// as is.
func (r *variableResolver) substitute(text string, scope *variableScope, node *Node) string {
	if strings.IndexByte(text, '$') < 0 {
		return text
	}

	buf := &strings.Builder{}
	var inString byte

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString != 0 {
			buf.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				buf.WriteByte(text[i])
			} else if c == inString {
				inString = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			inString = c
			buf.WriteByte(c)
			continue
		case '$':
		default:
			buf.WriteByte(c)
			continue
		}

		nameEnd := i + 1
		for nameEnd < len(text) && isVariableNameChar(text[nameEnd]) {
			nameEnd++
		}
		name := text[i+1 : nameEnd]
		if name == "" {
			buf.WriteByte(c)
			continue
		}

		reference := text[i:nameEnd]
		i = nameEnd - 1

		binding, ok := scope.lookup(name)
		if ok && binding.assignment == node && binding.scope.parent != nil {
			//a rule variable referring to its own name reads the enclosing binding.
			binding, ok = binding.scope.parent.lookup(name)
		}
		if !ok {
			r.diagnostics.addAt(UndefinedVariable, fmt.Sprintf("%s: $%s", ErrUndefinedVariable, name), node)
			buf.WriteString(reference)
			continue
		}

		if binding.state == resolving {
			r.diagnostics.addAt(CyclicVariableReference, fmt.Sprintf("%s: $%s", ErrCyclicVariableReference, name), node)
			buf.WriteString(reference)
			continue
		}

		buf.WriteString(r.valueOf(binding))
	}

	return buf.String()
}

func isVariableNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c >= 0x80
}
