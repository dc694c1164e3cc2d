package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bep/debounce"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/treecss/treecss/internal/cache"
	"github.com/treecss/treecss/internal/config"
	"github.com/treecss/treecss/internal/css"
)

const (
	MAIN_STYLESHEET = `
@import "colors.css";

.header {
	Color: $accent;
	Label { Weight: Bold; }
}
`
	COLORS_STYLESHEET = `$accent: Red;`

	DOCUMENT = `<html><head><style></style></head><body><div id="main" class="header"><label>a</label></div></body></html>`
)

// setupDir creates a directory containing an empty configuration file and the given files.
func setupDir(t *testing.T, files map[string]string) (dir string, configPath string) {
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")

	if !assert.NoError(t, os.WriteFile(configPath, nil, 0600)) {
		t.FailNow()
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if !assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0700)) {
			t.FailNow()
		}
		if !assert.NoError(t, os.WriteFile(path, []byte(content), 0600)) {
			t.FailNow()
		}
	}
	return
}

func runCommand(args ...string) (statusCode int, stdout, stderr string) {
	outW := &bytes.Buffer{}
	errW := &bytes.Buffer{}

	statusCode = _main(context.Background(), args, outW, errW)
	return statusCode, outW.String(), errW.String()
}

func TestCompileSubcommand(t *testing.T) {
	dir, configPath := setupDir(t, map[string]string{
		"main.css":    MAIN_STYLESHEET,
		"colors.css":  COLORS_STYLESHEET,
		"invalid.css": `.a { Color: $missing; }`,
	})

	t.Run("json", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		var output stylesheetDTO
		if !assert.NoError(t, json.Unmarshal([]byte(stdout), &output)) {
			return
		}

		assert.Equal(t, []ruleDTO{
			{Selector: ".header", Declarations: []declarationDTO{{Property: "Color", Value: "Red"}}},
			{Selector: ".header Label", Declarations: []declarationDTO{{Property: "Weight", Value: "Bold"}}},
		}, output.Rules)
		assert.Equal(t, map[string]string{"accent": "Red"}, output.Variables)
		assert.Empty(t, output.Diagnostics)
		assert.Empty(t, stderr)
	})

	t.Run("yaml", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", "--format", "yaml", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Contains(t, stdout, "selector: .header Label")
		assert.Contains(t, stdout, "property: Weight")
	})

	t.Run("css", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", "--format", "css", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Equal(t, ".header {\n  Color: Red;\n}\n\n.header Label {\n  Weight: Bold;\n}\n", stdout)
	})

	t.Run("ast", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", "--format", "ast", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Equal(t, "$accent: Red;\n.header {\n  Color: $accent;\n  Label {\n    Weight: Bold;\n  }\n}\n", stdout)
		assert.Empty(t, stderr)
	})

	t.Run("minified css", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", "--format", "css", "--minify", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Contains(t, stdout, ".header Label{")
		assert.NotContains(t, stdout, "  ")
	})

	t.Run("highlighted css", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", "--format", "css", "--highlight", filepath.Join(dir, "main.css"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Contains(t, stdout, "\x1b[")
		assert.Contains(t, stdout, "Label")
	})

	t.Run("diagnostics", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "compile", filepath.Join(dir, "invalid.css"))
		assert.Equal(t, 0, statusCode)
		assert.Contains(t, stdout, `"UndefinedVariable"`)
		assert.Contains(t, stderr, "invalid.css:1:6: UndefinedVariable: undefined variable: $missing")
	})

	t.Run("strict", func(t *testing.T) {
		statusCode, _, stderr := runCommand("--config", configPath, "compile", "--strict", filepath.Join(dir, "invalid.css"))
		assert.Equal(t, ERROR_STATUS_CODE, statusCode)
		assert.Contains(t, stderr, "UndefinedVariable")
	})

	t.Run("missing file", func(t *testing.T) {
		statusCode, _, stderr := runCommand("--config", configPath, "compile", filepath.Join(dir, "missing.css"))
		assert.Equal(t, ERROR_STATUS_CODE, statusCode)
		assert.Contains(t, stderr, "import not found")
	})

	t.Run("invalid format", func(t *testing.T) {
		statusCode, _, stderr := runCommand("--config", configPath, "compile", "--format", "xml", filepath.Join(dir, "main.css"))
		assert.Equal(t, ERROR_STATUS_CODE, statusCode)
		assert.Contains(t, stderr, "output-format")
	})

	t.Run("missing argument", func(t *testing.T) {
		statusCode, _, _ := runCommand("--config", configPath, "compile")
		assert.Equal(t, ERROR_STATUS_CODE, statusCode)
	})
}

func TestMatchSubcommand(t *testing.T) {
	dir, configPath := setupDir(t, map[string]string{
		"main.css":   MAIN_STYLESHEET + `style { Color: Blue; }`,
		"colors.css": COLORS_STYLESHEET,
		"page.html":  DOCUMENT,
	})

	t.Run("logical tree", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "match", filepath.Join(dir, "main.css"), filepath.Join(dir, "page.html"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Contains(t, stdout, "html > body > div#main.header\n  Color: Red\n")
		assert.Contains(t, stdout, "html > body > div#main.header > label\n")
		assert.Contains(t, stdout, "html > head > style\n  Color: Blue\n")
	})

	t.Run("visual tree, matched elements", func(t *testing.T) {
		statusCode, stdout, stderr := runCommand("--config", configPath, "match", "--tree", "visual", "--matched", filepath.Join(dir, "main.css"), filepath.Join(dir, "page.html"))
		if !assert.Equal(t, 0, statusCode, stderr) {
			return
		}

		assert.Equal(t, "html > body > div#main.header\n  Color: Red\n", stdout)
	})
}

type compilation struct {
	stylesheet *css.StyleSheet
	cached     bool
}

// startWatcher starts watching the stylesheet at path, next returns the result of the next
// compilation.
func startWatcher(t *testing.T, path string) (w *stylesheetWatcher, next func() (compilation, bool), stop func()) {
	compilations := make(chan compilation, 10)
	state := &cliState{logger: zerolog.Nop()}

	w = &stylesheetWatcher{
		path:     path,
		pattern:  "*.css",
		compiler: state.newCompiler(),
		cache:    cache.NewStylesheetCache(),
		debounce: debounce.New(100 * time.Millisecond),
		logger:   zerolog.Nop(),
		onCompiled: func(stylesheet *css.StyleSheet, cached bool) {
			compilations <- compilation{stylesheet, cached}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.watch(ctx)
	}()

	next = func() (compilation, bool) {
		select {
		case c := <-compilations:
			return c, true
		case <-time.After(5 * time.Second):
			assert.Fail(t, "timeout")
			return compilation{}, false
		}
	}

	stop = func() {
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			assert.Fail(t, "the watcher did not stop")
		}
	}

	return
}

func TestStylesheetWatcher(t *testing.T) {
	dir, _ := setupDir(t, map[string]string{
		"main.css":   MAIN_STYLESHEET,
		"colors.css": COLORS_STYLESHEET,
	})

	path, err := stylesheetPath(filepath.Join(dir, "main.css"))
	if !assert.NoError(t, err) {
		return
	}

	w, next, stop := startWatcher(t, path)
	defer stop()

	//initial compilation
	c, ok := next()
	if !ok {
		return
	}
	assert.False(t, c.cached)
	assert.Len(t, c.stylesheet.Rules, 2)
	assert.Equal(t, 1, w.cache.Len())

	//changes of the stylesheet
	for i, content := range []string{MAIN_STYLESHEET + ".footer {}", MAIN_STYLESHEET + ".footer {} .aside {}"} {
		if !assert.NoError(t, os.WriteFile(filepath.Join(dir, "main.css"), []byte(content), 0600)) {
			return
		}

		c, ok = next()
		if !ok {
			return
		}
		assert.False(t, c.cached)
		assert.Len(t, c.stylesheet.Rules, 3+i)
		assert.Equal(t, 1, w.cache.Len())
	}

	//change of an imported stylesheet
	if !assert.NoError(t, os.WriteFile(filepath.Join(dir, "colors.css"), []byte(`$accent: Blue;`), 0600)) {
		return
	}

	c, ok = next()
	if !ok {
		return
	}
	assert.False(t, c.cached)
	assert.Equal(t, "Blue", c.stylesheet.Rules[0].Declarations[0].Value)
	assert.Equal(t, 1, w.cache.Len())

	//removal of the stylesheet
	if !assert.NoError(t, os.Remove(filepath.Join(dir, "main.css"))) {
		return
	}

	c, ok = next()
	if !ok {
		return
	}
	assert.Nil(t, c.stylesheet)
	assert.Zero(t, w.cache.Len())
}

func TestStylesheetWatcherImportsInSubdirectories(t *testing.T) {
	dir, _ := setupDir(t, map[string]string{
		"main.css":            `@import "partials/colors.css"; .header { Color: $accent; }`,
		"partials/colors.css": COLORS_STYLESHEET,
	})

	path, err := stylesheetPath(filepath.Join(dir, "main.css"))
	if !assert.NoError(t, err) {
		return
	}

	_, next, stop := startWatcher(t, path)
	defer stop()

	c, ok := next()
	if !ok {
		return
	}
	if !assert.Len(t, c.stylesheet.Rules, 1) {
		return
	}
	assert.Equal(t, "Red", c.stylesheet.Rules[0].Declarations[0].Value)

	if !assert.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "colors.css"), []byte(`$accent: Blue;`), 0600)) {
		return
	}

	c, ok = next()
	if !ok {
		return
	}
	assert.False(t, c.cached)
	assert.Equal(t, "Blue", c.stylesheet.Rules[0].Declarations[0].Value)
}

func TestWatchedFiles(t *testing.T) {
	w := &stylesheetWatcher{path: "/styles/main.css", pattern: config.DEFAULT_WATCH_PATTERN}

	assert.True(t, w.isWatchedFile("/styles/main.css"))
	assert.True(t, w.isWatchedFile("/styles/colors.scss"))
	assert.False(t, w.isWatchedFile("/styles/main.css~"))
	assert.False(t, w.isWatchedFile("/styles/page.html"))

	w.pattern = "*.less"
	assert.True(t, w.isWatchedFile("/styles/main.css"))
	assert.False(t, w.isWatchedFile("/styles/colors.css"))
}
