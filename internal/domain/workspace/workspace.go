// Package workspace confines filesystem side effects to a single root
// directory fixed at process start. Every handler-visible path resolves to a
// descendant of the root, checked after normalization (".." collapse and
// symlink resolution), never before.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscapesRoot means the normalized path lands outside the root.
	ErrPathEscapesRoot = errors.New("path escapes workspace root")

	// ErrEmptyPath means no usable path was supplied.
	ErrEmptyPath = errors.New("empty path")
)

// Root is the single directory all file operations are confined to.
type Root struct {
	dir string
}

// New creates the root directory if needed and returns a Root whose own path
// is fully resolved, so later containment checks compare like with like.
func New(dir string) (Root, error) {
	if strings.TrimSpace(dir) == "" {
		return Root{}, fmt.Errorf("workspace: root: %w", ErrEmptyPath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("workspace: resolve %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return Root{}, fmt.Errorf("workspace: create root %q: %w", abs, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("workspace: resolve symlinks for %q: %w", abs, err)
	}
	return Root{dir: resolved}, nil
}

// Dir returns the absolute, symlink-resolved root path.
func (r Root) Dir() string {
	return r.dir
}

// Resolve joins p onto the root and verifies the result stays inside it.
// Leading separators are stripped so absolute-path override attempts become
// root-relative. The containment check runs twice: once on the lexically
// cleaned join, and again after resolving symlinks on the nearest existing
// ancestor, so a symlinked subdirectory cannot smuggle writes outside.
// The returned path is absolute; the target itself need not exist yet.
func (r Root) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrEmptyPath
	}

	rel := strings.TrimLeft(filepath.ToSlash(p), "/")
	joined := filepath.Join(r.dir, filepath.FromSlash(rel))

	if !r.contains(joined) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, p)
	}

	resolved, err := resolveExisting(joined)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve %q: %w", p, err)
	}
	if !r.contains(resolved) {
		return "", fmt.Errorf("%w: %q resolves to %q", ErrPathEscapesRoot, p, resolved)
	}

	return joined, nil
}

// WriteFileAtomic writes data to path by writing a temp file in the target
// directory and renaming it over the destination. A crash mid-write leaves
// either the old content or nothing, never a half-written target.
func (r Root) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if !r.contains(path) {
		return fmt.Errorf("%w: %q", ErrPathEscapesRoot, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create parents for %q: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".toolgate-*")
	if err != nil {
		return fmt.Errorf("workspace: create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("workspace: write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("workspace: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("workspace: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("workspace: rename into place: %w", err)
	}
	return nil
}

// contains reports whether path is r.dir or a descendant of it.
func (r Root) contains(path string) bool {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExisting resolves symlinks on the deepest existing ancestor of path
// and re-joins the not-yet-existing suffix. EvalSymlinks alone fails on paths
// that do not exist yet, which is the common case for new files.
func resolveExisting(path string) (string, error) {
	suffix := ""
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(cur, suffix), nil
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}
