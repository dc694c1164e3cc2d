package css

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/maruel/natural"
	"github.com/rs/zerolog"
	"github.com/treecss/treecss/internal/css/selector"
)

const (
	SOURCE_LOG_FIELD_NAME = "src"
	COMPILER_LOG_SRC      = "css-compiler"
)

// A StyleSheet is the result of a compilation: an ordered list of flat rules, a later rule
// overrides an earlier one when both apply to the same node.
type StyleSheet struct {
	Rules       []CompiledRule
	Diagnostics []Diagnostic

	//Aliases declared with @namespace, the default namespace is set by @namespace "uri"; or
	//by the compiler configuration.
	Namespaces *selector.Namespaces

	//Resolved values of the top-level variables.
	Variables map[string]string

	//Paths of the imported stylesheets, in import order.
	Imports []string
}

// Errors returns the messages of the diagnostics.
func (s *StyleSheet) Errors() []string {
	var errors []string
	for _, d := range s.Diagnostics {
		errors = append(errors, d.Message)
	}
	return errors
}

func (s *StyleSheet) HasDiagnostics() bool {
	return len(s.Diagnostics) > 0
}

// WriteCSS writes the namespace directives and the flat rules as plain CSS.
func (s *StyleSheet) WriteCSS(w io.Writer) error {
	buf := bufio.NewWriter(w)

	if s.Namespaces != nil {
		if s.Namespaces.Default != "" {
			fmt.Fprintf(buf, "@namespace %q;\n", s.Namespaces.Default)
		}

		aliases := s.Namespaces.Aliases()
		sort.Slice(aliases, func(i, j int) bool {
			return natural.Less(aliases[i], aliases[j])
		})
		for _, alias := range aliases {
			uri, _ := s.Namespaces.Lookup(alias)
			fmt.Fprintf(buf, "@namespace %s %q;\n", alias, uri)
		}
	}

	for i, rule := range s.Rules {
		if i != 0 || buf.Buffered() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(rule.SelectorString)
		buf.WriteString(" {\n")
		for _, declaration := range rule.Declarations {
			buf.WriteString("  ")
			buf.WriteString(declaration.Property)
			buf.WriteString(": ")
			buf.WriteString(declaration.Value)
			buf.WriteString(";\n")
		}
		buf.WriteString("}\n")
	}

	return buf.Flush()
}

type CompiledRule struct {
	SelectorString string
	Declarations   []StyleDeclaration

	Origin   *Node              //rule node the rule was emitted for.
	Selector *selector.Selector //nil if the selector is invalid.
}

type StyleDeclaration struct {
	Property string
	Value    string
}

type CompilerConfig struct {
	//Provider of imported stylesheets, if nil every import is reported as not found.
	TextProvider TextProvider

	//Namespace URI of unqualified types, a @namespace directive without alias overrides it.
	DefaultNamespace string

	Logger zerolog.Logger //ok if not set
}

// A Compiler compiles stylesheets, it holds no state between compilations and can be used by
// several goroutines.
type Compiler struct {
	provider         TextProvider
	defaultNamespace string
	logger           zerolog.Logger
}

func NewCompiler(config CompilerConfig) *Compiler {
	return &Compiler{
		provider:         config.TextProvider,
		defaultNamespace: config.DefaultNamespace,
		logger:           config.Logger.With().Str(SOURCE_LOG_FIELD_NAME, COMPILER_LOG_SRC).Logger(),
	}
}

// Compile compiles text, relative imports are resolved against the root of the text provider.
// Malformed text does not cause an error: problems are reported in the diagnostics of the
// returned stylesheet. The only errors are context errors.
func (c *Compiler) Compile(ctx context.Context, text string) (*StyleSheet, error) {
	return c.compile(ctx, text, "")
}

// CompileFile compiles the stylesheet at filePath, it is read with the text provider.
// Relative imports are resolved against the directory of filePath.
func (c *Compiler) CompileFile(ctx context.Context, filePath string) (*StyleSheet, error) {
	filePath = path.Clean(filePath)

	text, err := c.readFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return c.compile(ctx, text, filePath)
}

// ParseFile parses the stylesheet at filePath and splices its imports. Variables are not
// substituted and rules are not flattened.
func (c *Compiler) ParseFile(ctx context.Context, filePath string) (*Node, []Diagnostic, error) {
	filePath = path.Clean(filePath)

	text, err := c.readFile(ctx, filePath)
	if err != nil {
		return nil, nil, err
	}

	diagnostics := newDiagnosticCollector()
	root, _, err := c.parseAndSplice(ctx, text, filePath, diagnostics)
	if err != nil {
		return nil, nil, err
	}
	return root, diagnostics.diagnostics, nil
}

func (c *Compiler) readFile(ctx context.Context, filePath string) (string, error) {
	if c.provider == nil {
		return "", fmt.Errorf("%w: %s: no text provider", ErrImportNotFound, filePath)
	}
	return c.provider.Resolve(ctx, filePath)
}

// CompileText compiles text as if it were the content of filePath.
func (c *Compiler) CompileText(ctx context.Context, text string, filePath string) (*StyleSheet, error) {
	if filePath != "" {
		filePath = path.Clean(filePath)
	}
	return c.compile(ctx, text, filePath)
}

func (c *Compiler) compile(ctx context.Context, text string, filePath string) (*StyleSheet, error) {
	start := time.Now()
	diagnostics := newDiagnosticCollector()

	root, imports, err := c.parseAndSplice(ctx, text, filePath, diagnostics)
	if err != nil {
		return nil, err
	}

	variables := newVariableResolver(diagnostics).resolve(root)

	flattener := &flattener{diagnostics: diagnostics}
	rules := flattener.flatten(root)

	for i := range rules {
		rule := &rules[i]
		parsed, err := selector.Parse(rule.SelectorString)
		if err != nil {
			d := diagnostics.make(InvalidSelector, err.Error(), rule.Origin.File, rule.Origin.Start)
			d.Err = fmt.Errorf("%w: %w", ErrInvalidSelector, err)
			diagnostics.addAll([]Diagnostic{d})
			continue
		}
		rule.Selector = parsed
	}

	stylesheet := &StyleSheet{
		Rules:       rules,
		Diagnostics: diagnostics.diagnostics,
		Namespaces:  c.namespaces(root),
		Variables:   variables,
		Imports:     imports.importedFiles,
	}

	c.logger.Debug().
		Str("file", filePath).
		Int("rules", len(rules)).
		Int("imports", imports.importCount).
		Int("diagnostics", len(stylesheet.Diagnostics)).
		Dur("duration", time.Since(start)).
		Msg("stylesheet compiled")

	return stylesheet, nil
}

func (c *Compiler) parseAndSplice(ctx context.Context, text, filePath string, diagnostics *diagnosticCollector) (*Node, *importResolver, error) {
	root := parseFile(text, filePath, diagnostics)

	imports := &importResolver{
		ctx:         ctx,
		provider:    c.provider,
		diagnostics: diagnostics,
		logger:      c.logger,
	}
	if err := imports.resolveImports(root, filePath); err != nil {
		return nil, nil, err
	}
	return root, imports, nil
}

func (c *Compiler) namespaces(root *Node) *selector.Namespaces {
	namespaces := selector.NewNamespaces(c.defaultNamespace)

	for _, child := range root.Children {
		if child.Type != NamespaceDirective {
			continue
		}
		if child.Data == "" {
			namespaces.Default = child.Value
		} else {
			namespaces.Add(child.Data, child.Value)
		}
	}
	return namespaces
}
