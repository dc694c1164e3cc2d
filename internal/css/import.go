package css

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// importResolver splices imported stylesheets into the tree of the importing one.
// It is used for a single compilation.
type importResolver struct {
	ctx         context.Context
	provider    TextProvider
	diagnostics *diagnosticCollector
	logger      zerolog.Logger

	importerStack []string
	importCount   int
	importedFiles []string //without duplicates
}

// resolveImports replaces the import directives among the children of root by the top-level
// nodes of the imported stylesheets, in a single left-to-right pass. importerPath is the path
// of the stylesheet root was parsed from, it is empty for text that has no path.
// The only returned errors are context errors.
func (r *importResolver) resolveImports(root *Node, importerPath string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	//Add the importer to the importer stack.
	r.importerStack = append(r.importerStack, importerPath)
	defer func() {
		r.importerStack = r.importerStack[:len(r.importerStack)-1]
	}()

	hasImports := false
	for _, child := range root.Children {
		if child.IsImport() {
			hasImports = true
			break
		}
	}
	if !hasImports {
		return nil
	}

	children := make([]*Node, 0, len(root.Children))

	for _, child := range root.Children {
		if !child.IsImport() {
			children = append(children, child)
			continue
		}

		imported, err := r.resolveImport(child, importerPath)
		if err != nil {
			return err
		}
		children = append(children, imported...)
	}

	root.Children = children
	return nil
}

func (r *importResolver) resolveImport(directive *Node, importerPath string) ([]*Node, error) {
	importedPath, err := resolvePath(directive.Value, importerPath)
	if err != nil {
		r.diagnostics.addAt(ImportNotFound, err.Error(), directive)
		return nil, nil
	}

	for i, importer := range r.importerStack {
		if importer == importedPath {
			chain := append(r.importerStack[i:len(r.importerStack):len(r.importerStack)], importedPath)
			r.diagnostics.addAt(ImportCycle, "import cycle: "+strings.Join(chain, " -> "), directive)
			return nil, nil
		}
	}

	if r.provider == nil {
		r.diagnostics.addAt(ImportNotFound, fmt.Sprintf("%s: no text provider", importedPath), directive)
		return nil, nil
	}

	text, err := r.provider.Resolve(r.ctx, importedPath)
	if err != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		msg := err.Error()
		if !errors.Is(err, ErrImportNotFound) {
			msg = fmt.Sprintf("%s: %s", ErrImportNotFound, msg)
		}
		r.diagnostics.addAt(ImportNotFound, msg, directive)
		return nil, nil
	}

	r.importCount++
	if !slices.Contains(r.importedFiles, importedPath) {
		r.importedFiles = append(r.importedFiles, importedPath)
	}
	r.logger.Debug().Str("import", importedPath).Str("importer", importerPath).Msg("import resolved")

	importedRoot := parseFile(text, importedPath, r.diagnostics)
	if err := r.resolveImports(importedRoot, importedPath); err != nil {
		return nil, err
	}

	return importedRoot.Children, nil
}

// resolvePath resolves the path of an imported stylesheet, relative paths are relative to the
// directory of the importer. A relative path is returned if both paths are relative.
func resolvePath(importedPath string, importerPath string) (string, error) {
	err := checkValidPath(importedPath)
	if err != nil {
		return "", fmt.Errorf("import in %q: %w", importerPath, err)
	}

	var resolved string

	switch {
	case importedPath[0] == '/' || importerPath == "":
		resolved = path.Clean(importedPath)
	default:
		resolved = path.Join(path.Dir(importerPath), importedPath)
	}

	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", fmt.Errorf("import of %q in %q: the path escapes the base directory", importedPath, importerPath)
	}

	return resolved, nil
}

func checkValidPath(path string) error {
	if path == "" {
		return errors.New("empty file path")
	}

	if strings.Contains(path, "://") {
		return fmt.Errorf("%s: only local imports are supported", path)
	}
	return nil
}
