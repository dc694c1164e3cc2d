package css

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// A TextProvider returns the text of imported stylesheets. Paths are slash-separated, relative
// imports have already been joined with the directory of the importing stylesheet.
// ErrImportNotFound should be wrapped when there is no stylesheet at path.
type TextProvider interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// FilesystemTextProvider reads stylesheets from a billy filesystem.
type FilesystemTextProvider struct {
	FS billy.Filesystem
}

func (p FilesystemTextProvider) Resolve(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := util.ReadFile(p.FS, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrImportNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

// MapTextProvider serves stylesheets from memory, keys are paths.
type MapTextProvider map[string]string

func (m MapTextProvider) Resolve(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, ok := m[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrImportNotFound, path)
	}
	return text, nil
}
