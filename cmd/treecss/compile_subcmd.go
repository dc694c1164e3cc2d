package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/tdewolff/minify/v2"
	minifycss "github.com/tdewolff/minify/v2/css"
	"github.com/treecss/treecss/internal/config"
	"github.com/treecss/treecss/internal/css"
)

const (
	CSS_MIME_TYPE          = "text/css"
	HIGHLIGHTING_FORMATTER = "terminal256"
	HIGHLIGHTING_STYLE     = "monokai"
)

func newCompileCommand(state *cliState) *cobra.Command {
	var format string
	var strict bool
	var minifyOutput bool
	var highlight bool

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile a stylesheet and print its flat rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("format") {
				state.config.OutputFormat = format
			}
			if cmd.Flags().Changed("strict") {
				state.config.Strict = strict
			}
			if err := state.config.Validate(); err != nil {
				return err
			}

			path, err := stylesheetPath(args[0])
			if err != nil {
				return err
			}

			if state.config.OutputFormat == config.AST_OUTPUT_FORMAT {
				return printAST(cmd, state, path)
			}

			stylesheet, err := state.newCompiler().CompileFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			options := outputOptions{
				format:    state.config.OutputFormat,
				minify:    minifyOutput,
				highlight: highlight,
			}
			if err := writeStylesheet(state.outW, options, path, stylesheet); err != nil {
				return err
			}

			printDiagnostics(state.errW, state.colorProfile, stylesheet.Diagnostics)

			if state.config.Strict && stylesheet.HasDiagnostics() {
				return exitError{statusCode: ERROR_STATUS_CODE}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", config.DEFAULT_OUTPUT_FORMAT, "output format: json, yaml, css or ast (parse tree with imports spliced)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with a non-zero status if there are diagnostics")
	cmd.Flags().BoolVar(&minifyOutput, "minify", false, "minify the CSS output")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "highlight the CSS output")

	return cmd
}

func printAST(cmd *cobra.Command, state *cliState, path string) error {
	root, diagnostics, err := state.newCompiler().ParseFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	if err := root.WriteTo(state.outW); err != nil {
		return err
	}
	if _, err := io.WriteString(state.outW, "\n"); err != nil {
		return err
	}

	printDiagnostics(state.errW, state.colorProfile, diagnostics)

	if state.config.Strict && len(diagnostics) > 0 {
		return exitError{statusCode: ERROR_STATUS_CODE}
	}
	return nil
}

type stylesheetDTO struct {
	File             string            `json:"file,omitempty"`
	DefaultNamespace string            `json:"defaultNamespace,omitempty"`
	Namespaces       map[string]string `json:"namespaces,omitempty"`
	Variables        map[string]string `json:"variables,omitempty"`
	Rules            []ruleDTO         `json:"rules"`
	Diagnostics      []diagnosticDTO   `json:"diagnostics,omitempty"`
}

type ruleDTO struct {
	Selector        string           `json:"selector"`
	InvalidSelector bool             `json:"invalidSelector,omitempty"`
	Declarations    []declarationDTO `json:"declarations"`
}

type declarationDTO struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type diagnosticDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func newStylesheetDTO(path string, stylesheet *css.StyleSheet) stylesheetDTO {
	dto := stylesheetDTO{
		File:      path,
		Variables: stylesheet.Variables,
		Rules:     make([]ruleDTO, 0, len(stylesheet.Rules)),
	}

	if stylesheet.Namespaces != nil {
		dto.DefaultNamespace = stylesheet.Namespaces.Default

		for _, alias := range stylesheet.Namespaces.Aliases() {
			if dto.Namespaces == nil {
				dto.Namespaces = map[string]string{}
			}
			dto.Namespaces[alias], _ = stylesheet.Namespaces.Lookup(alias)
		}
	}

	for _, rule := range stylesheet.Rules {
		ruleDTO := ruleDTO{
			Selector:        rule.SelectorString,
			InvalidSelector: rule.Selector == nil,
			Declarations:    make([]declarationDTO, 0, len(rule.Declarations)),
		}
		for _, declaration := range rule.Declarations {
			ruleDTO.Declarations = append(ruleDTO.Declarations, declarationDTO{
				Property: declaration.Property,
				Value:    declaration.Value,
			})
		}
		dto.Rules = append(dto.Rules, ruleDTO)
	}

	for _, d := range stylesheet.Diagnostics {
		dto.Diagnostics = append(dto.Diagnostics, diagnosticDTO{
			Kind:    d.Kind.String(),
			Message: d.Message,
			File:    d.File,
			Line:    d.Line,
			Column:  d.Column,
		})
	}

	return dto
}

type outputOptions struct {
	format    string
	minify    bool //css only
	highlight bool //css only
}

func writeStylesheet(w io.Writer, options outputOptions, path string, stylesheet *css.StyleSheet) error {
	var (
		content []byte
		err     error
	)

	switch options.format {
	case config.CSS_OUTPUT_FORMAT:
		return writeCSS(w, options, stylesheet)
	case config.YAML_OUTPUT_FORMAT:
		content, err = yaml.Marshal(newStylesheetDTO(path, stylesheet))
	default:
		content, err = json.MarshalIndent(newStylesheetDTO(path, stylesheet), "", "  ")
		content = append(content, '\n')
	}

	if err != nil {
		return fmt.Errorf("failed to marshal the compiled stylesheet: %w", err)
	}

	_, err = w.Write(content)
	return err
}

func writeCSS(w io.Writer, options outputOptions, stylesheet *css.StyleSheet) error {
	buf := &bytes.Buffer{}
	if err := stylesheet.WriteCSS(buf); err != nil {
		return err
	}
	source := buf.String()

	if options.minify {
		m := minify.New()
		m.AddFunc(CSS_MIME_TYPE, minifycss.Minify)

		minified, err := m.String(CSS_MIME_TYPE, source)
		if err != nil {
			return fmt.Errorf("failed to minify the compiled stylesheet: %w", err)
		}
		source = minified + "\n"
	}

	if options.highlight {
		return quick.Highlight(w, source, "css", HIGHLIGHTING_FORMATTER, HIGHLIGHTING_STYLE)
	}

	_, err := io.WriteString(w, source)
	return err
}

func printDiagnostics(w io.Writer, profile termenv.Profile, diagnostics []css.Diagnostic) {
	kindStyle := profile.String().Foreground(profile.Color("1")).Bold()
	positionStyle := profile.String().Faint()

	for _, d := range diagnostics {
		if position := d.Position(); position != "" {
			fmt.Fprint(w, positionStyle.Styled(position+": "))
		}
		fmt.Fprintf(w, "%s: %s\n", kindStyle.Styled(d.Kind.String()), d.Message)
	}
}
