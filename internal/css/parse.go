package css

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Parse builds the syntax tree of a stylesheet. It never fails: unparseable fragments are
// reported as diagnostics and skipped up to the next ';' or the matching '}'.
func Parse(text string) (*Node, []Diagnostic) {
	collector := newDiagnosticCollector()
	root := parseFile(text, "", collector)
	return root, collector.diagnostics
}

func parseFile(text string, file string, diagnostics *diagnosticCollector) *Node {
	diagnostics.addSource(file, text)

	builder := &astBuilder{
		file:        file,
		textLen:     len(text),
		diagnostics: diagnostics,
	}
	builder.tokenize(text)

	return builder.parseStylesheet()
}

type lexeme struct {
	tt     css.TokenType
	data   string
	offset int
}

type astBuilder struct {
	file        string
	textLen     int
	lexemes     []lexeme
	i           int
	diagnostics *diagnosticCollector
}

func (b *astBuilder) tokenize(text string) {
	lexer := css.NewLexer(parse.NewInputString(stripLineComments(text)))
	offset := 0

	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != io.EOF {
				b.diagnostics.add(SyntaxError, err.Error(), b.file, offset)
			}
			return
		}

		if tt != css.CommentToken {
			b.lexemes = append(b.lexemes, lexeme{tt: tt, data: string(data), offset: offset})
		}
		offset += len(data)
	}
}

func (b *astBuilder) syntaxError(offset int, format string, args ...any) {
	b.diagnostics.add(SyntaxError, fmt.Sprintf(format, args...), b.file, offset)
}

func (b *astBuilder) offset() int {
	if b.i < len(b.lexemes) {
		return b.lexemes[b.i].offset
	}
	return b.textLen
}

func (b *astBuilder) parseStylesheet() *Node {
	root := &Node{
		Type:  Stylesheet,
		File:  b.file,
		Start: 0,
		End:   b.textLen,
	}
	b.parseBlockContents(root)
	return root
}

// parseBlockContents parses the content of the stylesheet or of a rule's block, the
// closing brace is consumed.
func (b *astBuilder) parseBlockContents(parent *Node) {
	topLevel := parent.Type == Stylesheet

	for b.i < len(b.lexemes) {
		l := b.lexemes[b.i]

		switch {
		case l.tt == css.WhitespaceToken, l.tt == css.SemicolonToken, l.tt == css.CDOToken, l.tt == css.CDCToken:
			b.i++
		case l.tt == css.RightBraceToken:
			b.i++
			if topLevel {
				b.syntaxError(l.offset, "unexpected '}'")
				continue
			}
			parent.End = l.offset + 1
			return
		case l.tt == css.AtKeywordToken:
			b.parseAtRule(parent)
		case l.tt == css.DelimToken && l.data == "$":
			b.parseVariableAssignment(parent)
		default:
			b.parseRuleOrDeclaration(parent)
		}
	}

	if !topLevel {
		b.syntaxError(parent.Start, "unterminated block")
		parent.End = b.textLen
	}
}

// collectStatement collects the lexemes up to the next ';', '{' or '}' that is not nested in
// parentheses or brackets. The terminator is not consumed, css.ErrorToken is returned as the
// terminator at the end of the input.
func (b *astBuilder) collectStatement() (lexemes []lexeme, terminator css.TokenType) {
	depth := 0

	for b.i < len(b.lexemes) {
		l := b.lexemes[b.i]

		switch l.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken:
			if depth == 0 || l.tt != css.SemicolonToken {
				return lexemes, l.tt
			}
		}

		lexemes = append(lexemes, l)
		b.i++
	}

	return lexemes, css.ErrorToken
}

// skipBlock skips a block whose opening brace has already been consumed.
func (b *astBuilder) skipBlock() {
	depth := 1
	for b.i < len(b.lexemes) {
		l := b.lexemes[b.i]
		b.i++

		switch l.tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (b *astBuilder) consumeTerminator(terminator css.TokenType) {
	if terminator == css.SemicolonToken {
		b.i++
	}
}

func (b *astBuilder) parseRuleOrDeclaration(parent *Node) {
	start := b.offset()
	prelude, terminator := b.collectStatement()

	if terminator == css.LeftBraceToken {
		b.i++ //'{'

		rule := &Node{
			Type:  StyleRule,
			File:  b.file,
			Start: start,
		}

		group := b.makeSelectorGroup(prelude, start)
		rule.Children = append(rule.Children, group)
		b.parseBlockContents(rule)

		if len(group.Children) == 0 {
			b.syntaxError(start, "missing selector")
			return
		}

		parent.Children = append(parent.Children, rule)
		return
	}

	b.consumeTerminator(terminator)

	if parent.Type == Stylesheet {
		b.syntaxError(start, "declarations are only allowed inside rules: %q", joinLexemes(prelude))
		return
	}

	declaration, ok := b.makeDeclaration(prelude, start)
	if ok {
		parent.Children = append(parent.Children, declaration)
	}
}

func (b *astBuilder) makeSelectorGroup(prelude []lexeme, start int) *Node {
	group := &Node{
		Type:  SelectorGroup,
		File:  b.file,
		Start: start,
		End:   start,
	}

	addSelector := func(lexemes []lexeme, end int) {
		text := joinLexemes(lexemes)
		if text == "" {
			b.syntaxError(end, "empty selector")
			return
		}

		selectorStart := end
		for _, l := range lexemes {
			if l.tt != css.WhitespaceToken {
				selectorStart = l.offset
				break
			}
		}

		group.Children = append(group.Children, &Node{
			Type:  SelectorToken,
			Data:  text,
			File:  b.file,
			Start: selectorStart,
			End:   end,
		})
	}

	depth := 0
	partStart := 0
	for i, l := range prelude {
		switch l.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				addSelector(prelude[partStart:i], l.offset)
				partStart = i + 1
			}
		}
	}

	if len(prelude) > 0 {
		end := lexemesEnd(prelude, start)
		addSelector(prelude[partStart:], end)
		group.End = end
	}

	return group
}

func (b *astBuilder) makeDeclaration(lexemes []lexeme, start int) (*Node, bool) {
	colonIndex := -1
	for i, l := range lexemes {
		if l.tt == css.ColonToken {
			colonIndex = i
			break
		}
	}

	if colonIndex < 0 {
		b.syntaxError(start, "invalid declaration %q: missing ':'", joinLexemes(lexemes))
		return nil, false
	}

	nameLexemes := trimWhitespace(lexemes[:colonIndex])
	if len(nameLexemes) == 0 {
		b.syntaxError(start, "missing property name")
		return nil, false
	}
	for _, l := range nameLexemes {
		if l.tt == css.WhitespaceToken {
			b.syntaxError(start, "invalid property name %q", joinLexemes(nameLexemes))
			return nil, false
		}
	}

	value := joinLexemes(lexemes[colonIndex+1:])
	if value == "" {
		b.syntaxError(start, "missing value for property %s", joinLexemes(nameLexemes))
		return nil, false
	}

	return &Node{
		Type:  Declaration,
		Data:  joinLexemes(nameLexemes),
		Value: value,
		File:  b.file,
		Start: start,
		End:   lexemesEnd(lexemes, start),
	}, true
}

func (b *astBuilder) parseVariableAssignment(parent *Node) {
	start := b.offset()
	b.i++ //'$'

	lexemes, terminator := b.collectStatement()
	if terminator == css.LeftBraceToken {
		b.i++
		b.skipBlock()
		b.syntaxError(start, "unexpected block after variable")
		return
	}
	b.consumeTerminator(terminator)

	if len(lexemes) < 2 || lexemes[0].tt != css.IdentToken {
		b.syntaxError(start, "invalid variable name")
		return
	}
	name := lexemes[0].data

	rest := trimWhitespace(lexemes[1:])
	if len(rest) == 0 || rest[0].tt != css.ColonToken {
		b.syntaxError(start, "missing ':' after variable $%s", name)
		return
	}
	valueLexemes := trimWhitespace(rest[1:])

	isDefault := false
	if n := len(valueLexemes); n >= 2 &&
		valueLexemes[n-2].tt == css.DelimToken && valueLexemes[n-2].data == "!" &&
		valueLexemes[n-1].tt == css.IdentToken && strings.EqualFold(valueLexemes[n-1].data, "default") {
		isDefault = true
		valueLexemes = valueLexemes[:n-2]
	}

	value := joinLexemes(valueLexemes)
	if value == "" {
		b.syntaxError(start, "missing value for variable $%s", name)
		return
	}

	parent.Children = append(parent.Children, &Node{
		Type:    VariableAssignment,
		Data:    name,
		Value:   value,
		Default: isDefault,
		File:    b.file,
		Start:   start,
		End:     lexemesEnd(lexemes, start),
	})
}

func (b *astBuilder) parseAtRule(parent *Node) {
	start := b.offset()
	keyword := strings.ToLower(b.lexemes[b.i].data)
	b.i++

	prelude, terminator := b.collectStatement()
	if terminator == css.LeftBraceToken {
		b.i++
		b.skipBlock()
		b.syntaxError(start, "unsupported at-rule %s", keyword)
		return
	}
	b.consumeTerminator(terminator)

	if parent.Type != Stylesheet {
		b.syntaxError(start, "%s is only allowed at the top level", keyword)
		return
	}

	end := lexemesEnd(prelude, start+len(keyword))

	switch keyword {
	case "@import":
		b.parseImport(parent, prelude, start, end)
	case "@namespace":
		b.parseNamespace(parent, prelude, start, end)
	default:
		b.syntaxError(start, "unsupported at-rule %s", keyword)
	}
}

func (b *astBuilder) parseImport(parent *Node, prelude []lexeme, start, end int) {
	var paths []string
	expectPath := true

	for i := 0; i < len(prelude); i++ {
		l := prelude[i]

		switch {
		case l.tt == css.WhitespaceToken:
			continue
		case l.tt == css.CommaToken && !expectPath:
			expectPath = true
			continue
		case !expectPath:
		case l.tt == css.StringToken:
			path, _ := unquoteString(l.data)
			paths = append(paths, path)
			expectPath = false
			continue
		case l.tt == css.URLToken:
			paths = append(paths, unquoteURL(l.data))
			expectPath = false
			continue
		case l.tt == css.FunctionToken && strings.EqualFold(l.data, "url(") &&
			i+2 < len(prelude) && prelude[i+1].tt == css.StringToken && prelude[i+2].tt == css.RightParenthesisToken:
			path, _ := unquoteString(prelude[i+1].data)
			paths = append(paths, path)
			expectPath = false
			i += 2
			continue
		}

		b.syntaxError(l.offset, "invalid @import: unexpected %q", l.data)
		return
	}

	if len(paths) == 0 || expectPath {
		b.syntaxError(start, "invalid @import: missing path")
		return
	}

	for _, path := range paths {
		if path == "" {
			b.syntaxError(start, "invalid @import: empty path")
			continue
		}
		parent.Children = append(parent.Children, &Node{
			Type:  ImportDirective,
			Value: path,
			File:  b.file,
			Start: start,
			End:   end,
		})
	}
}

func (b *astBuilder) parseNamespace(parent *Node, prelude []lexeme, start, end int) {
	significant := trimWhitespace(prelude)
	var alias string

	if len(significant) == 3 && significant[0].tt == css.IdentToken && significant[1].tt == css.WhitespaceToken {
		alias = significant[0].data
		significant = significant[2:]
	}

	if len(significant) != 1 {
		b.syntaxError(start, "invalid @namespace: %q", joinLexemes(prelude))
		return
	}

	var uri string
	switch significant[0].tt {
	case css.StringToken:
		uri, _ = unquoteString(significant[0].data)
	case css.URLToken:
		uri = unquoteURL(significant[0].data)
	default:
		b.syntaxError(start, "invalid @namespace: the namespace URI should be a string")
		return
	}

	parent.Children = append(parent.Children, &Node{
		Type:  NamespaceDirective,
		Data:  alias,
		Value: uri,
		File:  b.file,
		Start: start,
		End:   end,
	})
}

// joinLexemes concatenates the lexemes, whitespace is collapsed to a single space and
// leading and trailing whitespace is removed.
func joinLexemes(lexemes []lexeme) string {
	buf := &strings.Builder{}
	for _, l := range trimWhitespace(lexemes) {
		if l.tt == css.WhitespaceToken {
			buf.WriteByte(' ')
		} else {
			buf.WriteString(l.data)
		}
	}
	return buf.String()
}

func trimWhitespace(lexemes []lexeme) []lexeme {
	for len(lexemes) > 0 && lexemes[0].tt == css.WhitespaceToken {
		lexemes = lexemes[1:]
	}
	for len(lexemes) > 0 && lexemes[len(lexemes)-1].tt == css.WhitespaceToken {
		lexemes = lexemes[:len(lexemes)-1]
	}
	return lexemes
}

func lexemesEnd(lexemes []lexeme, defaultEnd int) int {
	if len(lexemes) == 0 {
		return defaultEnd
	}
	last := lexemes[len(lexemes)-1]
	return last.offset + len(last.data)
}

// unquoteString removes the quotes of a CSS string literal and its quote escapes,
// ok is false if s is not a terminated string literal.
func unquoteString(s string) (unquoted string, ok bool) {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return s, false
	}
	quote := s[0]
	inner := s[1 : len(s)-1]

	if strings.IndexByte(inner, '\\') < 0 {
		if strings.IndexByte(inner, quote) >= 0 {
			return s, false
		}
		return inner, true
	}

	buf := &strings.Builder{}
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) && (inner[i+1] == quote || inner[i+1] == '\\') {
			i++
			c = inner[i]
		} else if c == quote {
			return s, false
		}
		buf.WriteByte(c)
	}
	return buf.String(), true
}

func unquoteURL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSpace(s)
	if unquoted, ok := unquoteString(s); ok {
		return unquoted
	}
	return s
}

// stripLineComments replaces // comments with spaces, offsets are preserved.
// "//" inside url(...) or preceded by ':' (http://...) is kept.
func stripLineComments(text string) string {
	var buf []byte
	var inString byte
	inBlockComment := false
	inURL := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case inBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inString != 0:
			if c == '\\' {
				i++
			} else if c == inString || c == '\n' {
				inString = 0
			}
		case c == '"' || c == '\'':
			inString = c
		case inURL:
			if c == ')' {
				inURL = false
			}
		case (c == 'u' || c == 'U') && i+4 <= len(text) && strings.EqualFold(text[i:i+4], "url("):
			inURL = true
			i += 3
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			inBlockComment = true
			i++
		case c == '/' && i+1 < len(text) && text[i+1] == '/' && (i == 0 || text[i-1] != ':'):
			if buf == nil {
				buf = []byte(text)
			}
			for ; i < len(text) && text[i] != '\n' && text[i] != '\r'; i++ {
				buf[i] = ' '
			}
		}
	}

	if buf == nil {
		return text
	}
	return string(buf)
}
