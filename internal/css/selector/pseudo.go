package selector

type pseudoClassKind uint8

const (
	firstChild pseudoClassKind = iota + 1
	lastChild
	onlyChild
	nthChild
	nthLastChild
	firstOfType
	lastOfType
	onlyOfType
	nthOfType
	nthLastOfType
)

var pseudoClassKinds = map[string]pseudoClassKind{
	"first-child":      firstChild,
	"last-child":       lastChild,
	"only-child":       onlyChild,
	"nth-child":        nthChild,
	"nth-last-child":   nthLastChild,
	"first-of-type":    firstOfType,
	"last-of-type":     lastOfType,
	"only-of-type":     onlyOfType,
	"nth-of-type":      nthOfType,
	"nth-last-of-type": nthLastOfType,
}

func (k pseudoClassKind) takesFormula() bool {
	switch k {
	case nthChild, nthLastChild, nthOfType, nthLastOfType:
		return true
	}
	return false
}

func (k pseudoClassKind) isOfType() bool {
	switch k {
	case firstOfType, lastOfType, onlyOfType, nthOfType, nthLastOfType:
		return true
	}
	return false
}

type pseudoClassMatcher struct {
	kind    pseudoClassKind
	formula NthFormula
}

func (m pseudoClassMatcher) matches(kind TreeKind, node Node) bool {
	pos, count := siblingPosition(kind, node, m.kind.isOfType())
	fromEnd := count - pos + 1

	switch m.kind {
	case firstChild, firstOfType:
		return pos == 1
	case lastChild, lastOfType:
		return fromEnd == 1
	case onlyChild, onlyOfType:
		return count == 1
	case nthChild, nthOfType:
		return m.formula.Matches(pos)
	case nthLastChild, nthLastOfType:
		return m.formula.Matches(fromEnd)
	}
	return false
}

// siblingPosition returns the 1-based position of node among its siblings and the number
// of siblings, only siblings of the same type are counted if ofType is true.
// A node without parent is its own only sibling.
func siblingPosition(kind TreeKind, node Node, ofType bool) (pos, count int) {
	siblings, index := siblingsOf(kind, node)
	if siblings == nil {
		return 1, 1
	}

	if !ofType {
		return index + 1, len(siblings)
	}

	for i, sibling := range siblings {
		if i != index && !sameType(sibling, node) {
			continue
		}
		count++
		if i == index {
			pos = count
		}
	}
	return pos, count
}
