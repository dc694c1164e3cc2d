package selector

type TokenKind uint8

const (
	TypeSelector TokenKind = iota + 1
	ClassSelector
	IdSelector
	UniversalSelector
	DerivedTypeSelector //^alias|Name
	PseudoClass
	DescendantCombinator
	ChildCombinator
	AdjacentSiblingCombinator
	GeneralSiblingCombinator
)

func (k TokenKind) IsCombinator() bool {
	switch k {
	case DescendantCombinator, ChildCombinator, AdjacentSiblingCombinator, GeneralSiblingCombinator:
		return true
	}
	return false
}

func (k TokenKind) String() string {
	switch k {
	case TypeSelector:
		return "TypeSelector"
	case ClassSelector:
		return "ClassSelector"
	case IdSelector:
		return "IdSelector"
	case UniversalSelector:
		return "UniversalSelector"
	case DerivedTypeSelector:
		return "DerivedTypeSelector"
	case PseudoClass:
		return "PseudoClass"
	case DescendantCombinator:
		return "DescendantCombinator"
	case ChildCombinator:
		return "ChildCombinator"
	case AdjacentSiblingCombinator:
		return "AdjacentSiblingCombinator"
	case GeneralSiblingCombinator:
		return "GeneralSiblingCombinator"
	default:
		return "InvalidToken"
	}
}

// A Token is a single element of a parsed selector. Compound selectors such as
// button.important are represented by adjacent tokens with no combinator between them.
type Token struct {
	Kind TokenKind

	//Name of the type, class, id or pseudo-class, "*" for the universal selector,
	//" ", ">", "+" or "~" for combinators.
	Text string

	Namespace string //namespace alias, only set for type, universal and derived type selectors.
	Argument  string //raw argument of functional pseudo-classes, e.g. "2n+1".
}

func (t Token) String() string {
	switch t.Kind {
	case TypeSelector, UniversalSelector:
		if t.Namespace != "" {
			return t.Namespace + "|" + t.Text
		}
		return t.Text
	case DerivedTypeSelector:
		if t.Namespace != "" {
			return "^" + t.Namespace + "|" + t.Text
		}
		return "^" + t.Text
	case ClassSelector:
		return "." + t.Text
	case IdSelector:
		return "#" + t.Text
	case PseudoClass:
		if t.Argument != "" {
			return ":" + t.Text + "(" + t.Argument + ")"
		}
		return ":" + t.Text
	case DescendantCombinator:
		return " "
	default:
		return t.Text
	}
}
