package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// NthFormula is the parsed form of an+b expressions used by the :nth-* pseudo-classes.
type NthFormula struct {
	Factor   int //a
	Distance int //b
}

// ParseNthFormula parses an+b, an-b, even, odd and bare integers. Whitespace is ignored.
func ParseNthFormula(expr string) (NthFormula, error) {
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))

	switch s {
	case "":
		return NthFormula{}, fmt.Errorf("%w: empty nth expression", ErrInvalidSelector)
	case "even":
		return NthFormula{Factor: 2}, nil
	case "odd":
		return NthFormula{Factor: 2, Distance: 1}, nil
	}

	factorPart, distancePart, hasN := strings.Cut(s, "n")
	if !hasN {
		distance, err := parseSignedInt(s)
		if err != nil {
			return NthFormula{}, fmt.Errorf("%w: invalid nth expression %q", ErrInvalidSelector, expr)
		}
		return NthFormula{Distance: distance}, nil
	}

	var formula NthFormula

	switch factorPart {
	case "", "+":
		formula.Factor = 1
	case "-":
		formula.Factor = -1
	default:
		factor, err := parseSignedInt(factorPart)
		if err != nil {
			return NthFormula{}, fmt.Errorf("%w: invalid factor in nth expression %q", ErrInvalidSelector, expr)
		}
		formula.Factor = factor
	}

	if distancePart != "" {
		if distancePart[0] != '+' && distancePart[0] != '-' {
			return NthFormula{}, fmt.Errorf("%w: invalid nth expression %q", ErrInvalidSelector, expr)
		}
		distance, err := parseSignedInt(distancePart)
		if err != nil {
			return NthFormula{}, fmt.Errorf("%w: invalid distance in nth expression %q", ErrInvalidSelector, expr)
		}
		formula.Distance = distance
	}

	return formula, nil
}

func parseSignedInt(s string) (int, error) {
	digits := strings.TrimLeft(s, "+-")
	if digits == "" || len(s)-len(digits) > 1 {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}

// Matches reports whether the 1-based position pos is selected by the formula.
func (f NthFormula) Matches(pos int) bool {
	pos -= f.Distance
	factor := f.Factor

	if factor >= 0 {
		if pos < 0 {
			return false
		}
	} else {
		if pos > 0 {
			return false
		}
		pos = -pos
		factor = -factor
	}

	if factor == 0 {
		return pos == 0
	}
	return pos%factor == 0
}

func (f NthFormula) String() string {
	switch {
	case f.Factor == 0:
		return strconv.Itoa(f.Distance)
	case f.Distance == 0:
		return strconv.Itoa(f.Factor) + "n"
	case f.Distance > 0:
		return strconv.Itoa(f.Factor) + "n+" + strconv.Itoa(f.Distance)
	default:
		return strconv.Itoa(f.Factor) + "n" + strconv.Itoa(f.Distance)
	}
}
