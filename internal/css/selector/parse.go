package selector

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var (
	ErrInvalidSelector    = errors.New("invalid selector")
	ErrUnknownPseudoClass = errors.New("unknown pseudo-class")
)

// A Selector is a parsed selector, it is immutable and can be shared between goroutines.
type Selector struct {
	text      string
	tokens    []Token
	compounds []compound //left to right
}

// Parse parses a single selector (no comma-separated list).
func Parse(text string) (*Selector, error) {
	lexemes, err := lex(text)
	if err != nil {
		return nil, err
	}

	p := &selectorParser{
		text:    text,
		lexemes: lexemes,
	}

	if err := p.parse(); err != nil {
		return nil, err
	}

	compounds, err := buildCompounds(p.tokens)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", text, err)
	}

	return &Selector{
		text:      text,
		tokens:    p.tokens,
		compounds: compounds,
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Selector {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Selector) String() string {
	return s.text
}

// Tokens returns the matcher tokens in source order, the returned slice should not be modified.
func (s *Selector) Tokens() []Token {
	return s.tokens[:len(s.tokens):len(s.tokens)]
}

type lexeme struct {
	tt   css.TokenType
	data string
}

func lex(text string) ([]lexeme, error) {
	lexer := css.NewLexer(parse.NewInputString(text))
	var lexemes []lexeme

	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != io.EOF {
				return nil, fmt.Errorf("%w: %s", ErrInvalidSelector, err)
			}
			break
		}
		if tt == css.CommentToken {
			continue
		}
		lexemes = append(lexemes, lexeme{tt: tt, data: string(data)})
	}
	return lexemes, nil
}

type selectorParser struct {
	text    string
	lexemes []lexeme
	i       int

	tokens          []Token
	compoundStarted bool
}

func (p *selectorParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSelector, p.text, fmt.Sprintf(format, args...))
}

func (p *selectorParser) peek(offset int) (lexeme, bool) {
	if p.i+offset >= len(p.lexemes) {
		return lexeme{}, false
	}
	return p.lexemes[p.i+offset], true
}

func (p *selectorParser) isDelim(offset int, delim string) bool {
	l, ok := p.peek(offset)
	return ok && l.tt == css.DelimToken && l.data == delim
}

func (p *selectorParser) lastIsCombinator() bool {
	return len(p.tokens) > 0 && p.tokens[len(p.tokens)-1].Kind.IsCombinator()
}

func (p *selectorParser) parse() error {
	pendingWhitespace := false

	for p.i < len(p.lexemes) {
		l := p.lexemes[p.i]

		if l.tt == css.WhitespaceToken {
			pendingWhitespace = true
			p.i++
			continue
		}

		if l.tt == css.DelimToken && (l.data == ">" || l.data == "+" || l.data == "~") {
			if len(p.tokens) == 0 || p.lastIsCombinator() {
				return p.errorf("unexpected combinator %q", l.data)
			}
			kind := ChildCombinator
			switch l.data {
			case "+":
				kind = AdjacentSiblingCombinator
			case "~":
				kind = GeneralSiblingCombinator
			}
			p.tokens = append(p.tokens, Token{Kind: kind, Text: l.data})
			p.compoundStarted = false
			pendingWhitespace = false
			p.i++
			continue
		}

		if pendingWhitespace && len(p.tokens) > 0 && !p.lastIsCombinator() {
			p.tokens = append(p.tokens, Token{Kind: DescendantCombinator, Text: " "})
			p.compoundStarted = false
		}
		pendingWhitespace = false

		if err := p.parseSimpleSelector(); err != nil {
			return err
		}
		p.compoundStarted = true
	}

	if len(p.tokens) == 0 {
		return fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}
	if p.lastIsCombinator() {
		return p.errorf("selector ends with a combinator")
	}
	return nil
}

func (p *selectorParser) parseSimpleSelector() error {
	l := p.lexemes[p.i]

	switch l.tt {
	case css.IdentToken:
		return p.parseTypeSelector(false)
	case css.HashToken:
		p.tokens = append(p.tokens, Token{Kind: IdSelector, Text: l.data[1:]})
		p.i++
		return nil
	case css.ColonToken:
		return p.parsePseudoClass()
	case css.DelimToken:
		switch l.data {
		case "*":
			return p.parseTypeSelector(false)
		case "^":
			p.i++
			return p.parseTypeSelector(true)
		case ".":
			next, ok := p.peek(1)
			if !ok || next.tt != css.IdentToken {
				return p.errorf("'.' not followed by a class name")
			}
			p.tokens = append(p.tokens, Token{Kind: ClassSelector, Text: next.data})
			p.i += 2
			return nil
		case "&":
			return p.errorf("unresolved parent reference '&'")
		}
	case css.CommaToken:
		return p.errorf("selector lists are not supported")
	case css.LeftBracketToken:
		return p.errorf("attribute selectors are not supported")
	}

	return p.errorf("unexpected %q", l.data)
}

// parseTypeSelector parses name, alias|name, * and alias|*.
func (p *selectorParser) parseTypeSelector(derived bool) error {
	if p.compoundStarted {
		return p.errorf("a type selector should be the first element of a compound selector")
	}

	first, ok := p.peek(0)
	if !ok {
		return p.errorf("missing type name")
	}

	var namespace, name string

	if (first.tt == css.IdentToken) && p.isDelim(1, "|") {
		next, ok := p.peek(2)
		if !ok || !(next.tt == css.IdentToken || (next.tt == css.DelimToken && next.data == "*")) {
			return p.errorf("'|' not followed by a type name")
		}
		namespace = first.data
		name = next.data
		p.i += 3
	} else if first.tt == css.IdentToken || (first.tt == css.DelimToken && first.data == "*") {
		name = first.data
		p.i++
	} else {
		return p.errorf("missing type name")
	}

	kind := TypeSelector
	switch {
	case derived && name == "*":
		return p.errorf("'^' cannot be applied to the universal selector")
	case derived:
		kind = DerivedTypeSelector
	case name == "*":
		kind = UniversalSelector
	}

	p.tokens = append(p.tokens, Token{Kind: kind, Text: name, Namespace: namespace})
	return nil
}

func (p *selectorParser) parsePseudoClass() error {
	p.i++ //':'

	l, ok := p.peek(0)
	if !ok {
		return p.errorf("missing pseudo-class name")
	}

	switch l.tt {
	case css.IdentToken:
		name := strings.ToLower(l.data)
		kind, known := pseudoClassKinds[name]
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownPseudoClass, l.data)
		}
		if kind.takesFormula() {
			return p.errorf(":%s requires an argument", name)
		}
		p.tokens = append(p.tokens, Token{Kind: PseudoClass, Text: name})
		p.i++
		return nil
	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(l.data, "("))
		kind, known := pseudoClassKinds[name]
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownPseudoClass, name)
		}
		if !kind.takesFormula() {
			return p.errorf(":%s does not take an argument", name)
		}
		p.i++

		argument := &strings.Builder{}
		closed := false
		for p.i < len(p.lexemes) {
			arg := p.lexemes[p.i]
			p.i++
			if arg.tt == css.RightParenthesisToken {
				closed = true
				break
			}
			argument.WriteString(arg.data)
		}
		if !closed {
			return p.errorf("unterminated argument of :%s", name)
		}

		p.tokens = append(p.tokens, Token{Kind: PseudoClass, Text: name, Argument: strings.TrimSpace(argument.String())})
		return nil
	case css.ColonToken:
		return p.errorf("pseudo-elements are not supported")
	}

	return p.errorf("invalid pseudo-class")
}
