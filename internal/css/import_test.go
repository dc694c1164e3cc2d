package css

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
)

const DEFAULT_VARIABLES = `
$background: Red !default;
$foreground: Green !default;
`

func TestCompileImports(t *testing.T) {
	ctx := context.Background()

	t.Run("imported rules are inserted at the position of the directive", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{
				"/a.css": `.imported { Color: Red; }`,
			},
		})

		stylesheet, err := compiler.CompileText(ctx, `.first {} @import "a.css"; .main { Color: Blue; }`, "/main.css")
		if !assert.NoError(t, err) {
			return
		}
		assert.Empty(t, stylesheet.Diagnostics)
		assert.Equal(t, []string{".first", ".imported", ".main"}, selectorStrings(stylesheet))
	})

	t.Run("default variables imported before the local variables", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{"defaultVariables.scss": DEFAULT_VARIABLES},
		})

		stylesheet, err := compiler.Compile(ctx, `
			@import "defaultVariables.scss";
			$background: Blue;
			.a { Background: $background; Foreground: $foreground; }
		`)
		if !assert.NoError(t, err) {
			return
		}
		assert.Empty(t, stylesheet.Diagnostics)
		assert.Equal(t, "Blue", declarationValue(stylesheet.Rules[0], "Background"))
		assert.Equal(t, "Green", declarationValue(stylesheet.Rules[0], "Foreground"))
	})

	t.Run("local defaults declared before the import", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{"defaultVariables.scss": DEFAULT_VARIABLES},
		})

		stylesheet, err := compiler.Compile(ctx, `
			$background: Blue !default;
			@import "defaultVariables.scss";
			.a { Background: $background; }
		`)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "Blue", declarationValue(stylesheet.Rules[0], "Background"))
	})

	t.Run("local defaults declared after the import", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{"defaultVariables.scss": DEFAULT_VARIABLES},
		})

		stylesheet, err := compiler.Compile(ctx, `
			@import "defaultVariables.scss";
			$background: Blue !default;
			.a { Background: $background; }
		`)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "Red", declarationValue(stylesheet.Rules[0], "Background"))
	})

	t.Run("not found", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{"/b.css": `.b {}`},
		})

		stylesheet, err := compiler.CompileText(ctx, `@import "missing.css"; @import "b.css"; .a {}`, "/main.css")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, []string{".b", ".a"}, selectorStrings(stylesheet))

		if !assert.Len(t, stylesheet.Diagnostics, 1) {
			return
		}
		d := stylesheet.Diagnostics[0]
		assert.Equal(t, ImportNotFound, d.Kind)
		assert.True(t, errors.Is(d, ErrImportNotFound))
		assert.Contains(t, d.Message, "/missing.css")
		assert.Equal(t, "/main.css", d.File)
	})

	t.Run("no text provider", func(t *testing.T) {
		stylesheet := compileText(t, `@import "a.css"; .a {}`)

		assert.Equal(t, []string{".a"}, selectorStrings(stylesheet))
		if assert.Len(t, stylesheet.Diagnostics, 1) {
			assert.Equal(t, ImportNotFound, stylesheet.Diagnostics[0].Kind)
		}
	})

	t.Run("remote import", func(t *testing.T) {
		stylesheet := compileText(t, `@import "https://example.com/a.css";`)

		if assert.Len(t, stylesheet.Diagnostics, 1) {
			assert.Equal(t, ImportNotFound, stylesheet.Diagnostics[0].Kind)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{
				"/a.css": `@import "b.css"; .a {}`,
				"/b.css": `@import "a.css"; .b {}`,
			},
		})

		stylesheet, err := compiler.CompileFile(ctx, "/a.css")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, []string{".b", ".a"}, selectorStrings(stylesheet))

		if !assert.Len(t, stylesheet.Diagnostics, 1) {
			return
		}
		d := stylesheet.Diagnostics[0]
		assert.Equal(t, ImportCycle, d.Kind)
		assert.True(t, errors.Is(d, ErrImportCycle))
		assert.Equal(t, "import cycle: /a.css -> /b.css -> /a.css", d.Message)
		assert.Equal(t, "/b.css", d.File)
	})

	t.Run("self import", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{"/a.css": `@import "./a.css"; .a {}`},
		})

		stylesheet, err := compiler.CompileFile(ctx, "/a.css")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, []string{".a"}, selectorStrings(stylesheet))
		if assert.Len(t, stylesheet.Diagnostics, 1) {
			assert.Equal(t, ImportCycle, stylesheet.Diagnostics[0].Kind)
		}
	})

	t.Run("diagnostics of imported stylesheets", func(t *testing.T) {
		compiler := NewCompiler(CompilerConfig{
			TextProvider: MapTextProvider{
				"/styles/broken.css": ".a {\n  Color Red;\n}",
			},
		})

		stylesheet, err := compiler.CompileText(ctx, `@import "broken.css";`, "/styles/main.css")
		if !assert.NoError(t, err) {
			return
		}
		if !assert.Len(t, stylesheet.Diagnostics, 1) {
			return
		}
		d := stylesheet.Diagnostics[0]
		assert.Equal(t, SyntaxError, d.Kind)
		assert.Equal(t, "/styles/broken.css", d.File)
		assert.Equal(t, 2, d.Line)
		assert.Equal(t, 3, d.Column)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		compiler := NewCompiler(CompilerConfig{
			TextProvider: cancellingProvider{cancel: cancel},
		})

		stylesheet, err := compiler.Compile(ctx, `@import "a.css"; .a {}`)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, stylesheet)
	})
}

func TestCompileFile(t *testing.T) {
	ctx := context.Background()

	fls := memfs.New()
	util.WriteFile(fls, "/styles/main.css", []byte(`@import "parts/buttons.css"; .main { Color: $accent; }`), 0600)
	util.WriteFile(fls, "/styles/parts/buttons.css", []byte(`@import "../base.css"; Button { Color: $accent; }`), 0600)
	util.WriteFile(fls, "/styles/base.css", []byte(`$accent: Orange;`), 0600)

	compiler := NewCompiler(CompilerConfig{
		TextProvider: FilesystemTextProvider{FS: fls},
	})

	t.Run("relative imports", func(t *testing.T) {
		stylesheet, err := compiler.CompileFile(ctx, "/styles/main.css")
		if !assert.NoError(t, err) {
			return
		}

		assert.Empty(t, stylesheet.Diagnostics)
		assert.Equal(t, []string{"Button", ".main"}, selectorStrings(stylesheet))
		assert.Equal(t, "Orange", declarationValue(stylesheet.Rules[0], "Color"))
		assert.Equal(t, "Orange", declarationValue(stylesheet.Rules[1], "Color"))
		assert.Equal(t, "/styles/parts/buttons.css", stylesheet.Rules[0].Origin.File)
		assert.Equal(t, []string{"/styles/parts/buttons.css", "/styles/base.css"}, stylesheet.Imports)
	})

	t.Run("parse tree with imports spliced", func(t *testing.T) {
		root, diagnostics, err := compiler.ParseFile(ctx, "/styles/main.css")
		if !assert.NoError(t, err) {
			return
		}

		assert.Empty(t, diagnostics)
		assert.Equal(t, "$accent: Orange;\nButton {\n  Color: $accent;\n}\n.main {\n  Color: $accent;\n}", root.String())
	})

	t.Run("missing file", func(t *testing.T) {
		stylesheet, err := compiler.CompileFile(ctx, "/styles/missing.css")
		assert.ErrorIs(t, err, ErrImportNotFound)
		assert.Nil(t, stylesheet)
	})

	t.Run("no text provider", func(t *testing.T) {
		stylesheet, err := NewCompiler(CompilerConfig{}).CompileFile(ctx, "/styles/main.css")
		assert.ErrorIs(t, err, ErrImportNotFound)
		assert.Nil(t, stylesheet)
	})
}

func TestResolvePath(t *testing.T) {
	testCases := []struct {
		imported, importer, expected string
	}{
		{"a.css", "", "a.css"},
		{"./a.css", "", "a.css"},
		{"a.css", "/main.css", "/a.css"},
		{"a.css", "/styles/main.css", "/styles/a.css"},
		{"../a.css", "/styles/main.css", "/a.css"},
		{"/other/a.css", "/styles/main.css", "/other/a.css"},
		{"parts/a.css", "styles/main.css", "styles/parts/a.css"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.imported+" from "+testCase.importer, func(t *testing.T) {
			resolved, err := resolvePath(testCase.imported, testCase.importer)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, testCase.expected, resolved)
		})
	}

	t.Run("invalid paths", func(t *testing.T) {
		for _, imported := range []string{"", "http://example.com/a.css", "../a.css"} {
			_, err := resolvePath(imported, "main.css")
			assert.Error(t, err, imported)
		}
	})
}

type cancellingProvider struct {
	cancel context.CancelFunc
}

func (p cancellingProvider) Resolve(ctx context.Context, path string) (string, error) {
	p.cancel()
	return "", ctx.Err()
}
