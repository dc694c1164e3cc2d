package css

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
)

var (
	ErrSyntax                  = errors.New("syntax error")
	ErrAmpersandWithoutParent  = errors.New("ampersand without parent rule")
	ErrCyclicVariableReference = errors.New("cyclic variable reference")
	ErrUndefinedVariable       = errors.New("undefined variable")
	ErrImportNotFound          = errors.New("import not found")
	ErrImportCycle             = errors.New("import cycle")
	ErrInvalidSelector         = errors.New("invalid selector")
)

const AMPERSAND_WITHOUT_PARENT_MSG = "Ampersand found but no parent rule!"

type DiagnosticKind uint8

const (
	SyntaxError DiagnosticKind = iota + 1
	AmpersandWithoutParent
	CyclicVariableReference
	UndefinedVariable
	ImportNotFound
	ImportCycle
	InvalidSelector
)

func (k DiagnosticKind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case AmpersandWithoutParent:
		return "AmpersandWithoutParent"
	case CyclicVariableReference:
		return "CyclicVariableReference"
	case UndefinedVariable:
		return "UndefinedVariable"
	case ImportNotFound:
		return "ImportNotFound"
	case ImportCycle:
		return "ImportCycle"
	case InvalidSelector:
		return "InvalidSelector"
	default:
		return "UnknownDiagnostic"
	}
}

func (k DiagnosticKind) sentinel() error {
	switch k {
	case SyntaxError:
		return ErrSyntax
	case AmpersandWithoutParent:
		return ErrAmpersandWithoutParent
	case CyclicVariableReference:
		return ErrCyclicVariableReference
	case UndefinedVariable:
		return ErrUndefinedVariable
	case ImportNotFound:
		return ErrImportNotFound
	case ImportCycle:
		return ErrImportCycle
	case InvalidSelector:
		return ErrInvalidSelector
	default:
		return nil
	}
}

// A Diagnostic reports a problem found while compiling a stylesheet, diagnostics
// never stop the compilation. Err is one of the sentinel errors of this package and
// can be tested with errors.Is on the diagnostic itself.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Err     error

	Offset int
	Line   int //1-based, 0 if unknown.
	Column int //1-based, 0 if unknown.
	File   string
}

func (d Diagnostic) Error() string {
	position := d.Position()
	if position == "" {
		return d.Message
	}
	return position + ": " + d.Message
}

// Position returns file:line:column, parts that are not known are omitted.
func (d Diagnostic) Position() string {
	buf := &strings.Builder{}
	buf.WriteString(d.File)
	if d.Line > 0 {
		if buf.Len() > 0 {
			buf.WriteByte(':')
		}
		buf.WriteString(strconv.Itoa(d.Line))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(d.Column))
	}
	return buf.String()
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// diagnosticCollector accumulates the diagnostics of a compilation, positions are
// computed from the source texts it knows about.
type diagnosticCollector struct {
	diagnostics []Diagnostic
	sources     map[string]string //file -> text
}

func newDiagnosticCollector() *diagnosticCollector {
	return &diagnosticCollector{sources: map[string]string{}}
}

func (c *diagnosticCollector) addSource(file, text string) {
	c.sources[file] = text
}

func (c *diagnosticCollector) add(kind DiagnosticKind, message string, file string, offset int) {
	c.diagnostics = append(c.diagnostics, c.make(kind, message, file, offset))
}

func (c *diagnosticCollector) addAt(kind DiagnosticKind, message string, node *Node) {
	c.add(kind, message, node.File, node.Start)
}

func (c *diagnosticCollector) addAll(diagnostics []Diagnostic) {
	c.diagnostics = append(c.diagnostics, diagnostics...)
}

func (c *diagnosticCollector) make(kind DiagnosticKind, message string, file string, offset int) Diagnostic {
	d := Diagnostic{
		Kind:    kind,
		Message: message,
		Err:     kind.sentinel(),
		Offset:  offset,
		File:    file,
	}

	if text, ok := c.sources[file]; ok && offset <= len(text) {
		d.Line, d.Column, _ = parse.Position(strings.NewReader(text), offset)
	}
	return d
}
