package userscript

import (
	"fmt"
	"path/filepath"
	"strings"
)

// dirGuard confines script paths to an extension directory.
type dirGuard struct {
	root string // absolute, symlinks evaluated
}

func newDirGuard(dir string) (*dirGuard, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extension directory: %w", err)
	}
	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate extension directory symlinks: %w", err)
	}
	return &dirGuard{root: evalPath}, nil
}

// Resolve returns the absolute path of rel, rejecting anything that escapes
// the root either lexically or through a symlink.
func (g *dirGuard) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path '%s' must be relative", rel)
	}

	joined := filepath.Join(g.root, filepath.Clean(rel))
	if !g.contains(joined) {
		return "", fmt.Errorf("path '%s' is outside the extension directory", rel)
	}

	evalPath, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", rel, err)
	}
	if !g.contains(evalPath) {
		return "", fmt.Errorf("path '%s' links outside the extension directory", rel)
	}
	return evalPath, nil
}

func (g *dirGuard) contains(path string) bool {
	relPath, err := filepath.Rel(g.root, path)
	if err != nil {
		return false
	}
	return relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}
