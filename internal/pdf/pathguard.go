package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathGuard confines paths supplied by tool callers to one directory.
type PathGuard struct {
	root string
}

// NewPathGuard creates a guard for root.
func NewPathGuard(root string) (*PathGuard, error) {
	if root == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathGuard{root: filepath.Clean(abs)}, nil
}

// Root returns the guarded directory.
func (g *PathGuard) Root() string {
	return g.root
}

// Resolve returns the absolute form of path, which may be relative to the
// root, after checking that it stays inside the root. Symlinks are resolved
// before the check.
func (g *PathGuard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	target := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		target = resolved
	}
	root := g.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	if !within(abs, g.root) && !within(abs, root) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	if !within(target, g.root) && !within(target, root) {
		return "", fmt.Errorf("path resolves outside configured directory: %s", path)
	}
	return abs, nil
}

// ResolveDir is Resolve for directories; an empty path means the root.
func (g *PathGuard) ResolveDir(path string) (string, error) {
	if path == "" {
		return g.root, nil
	}
	dir, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}
	return dir, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
