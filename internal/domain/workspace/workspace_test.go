package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRoot(t *testing.T) Root {
	t.Helper()

	root, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return root
}

func TestNew_BlankDirRejected(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{"", "   "} {
		if _, err := New(dir); !errors.Is(err, ErrEmptyPath) {
			t.Errorf("New(%q) error = %v; want ErrEmptyPath", dir, err)
		}
	}
}

func TestResolve_RelativePathStaysInside(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)

	got, err := root.Resolve("notes/today.txt")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !strings.HasPrefix(got, root.Dir()) {
		t.Errorf("Resolve() = %q; want a descendant of %q", got, root.Dir())
	}
}

func TestResolve_TraversalRejected(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"a/../../../../etc/shadow",
		"a/b/../../../z",
	}
	for _, p := range cases {
		if _, err := root.Resolve(p); !errors.Is(err, ErrPathEscapesRoot) {
			t.Errorf("Resolve(%q) error = %v; want ErrPathEscapesRoot", p, err)
		}
	}
}

func TestResolve_AbsolutePathIsRootRelative(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)

	got, err := root.Resolve("/etc/passwd")
	if err != nil {
		t.Fatalf("Resolve(/etc/passwd) error = %v", err)
	}
	want := filepath.Join(root.Dir(), "etc", "passwd")
	if got != want {
		t.Errorf("Resolve(/etc/passwd) = %q; want %q", got, want)
	}
}

func TestResolve_EmptyPath(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)

	if _, err := root.Resolve("  "); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Resolve(blank) error = %v; want ErrEmptyPath", err)
	}
}

func TestResolve_SymlinkEscapeRejected(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	root := newTestRoot(t)

	link := filepath.Join(root.Dir(), "leak")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := root.Resolve("leak/secret.txt"); !errors.Is(err, ErrPathEscapesRoot) {
		t.Errorf("Resolve(through symlink) error = %v; want ErrPathEscapesRoot", err)
	}
}

func TestWriteFileAtomic_CreatesParentsAndWrites(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)
	target := filepath.Join(root.Dir(), "a", "b", "c.txt")

	if err := root.WriteFileAtomic(target, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q; want %q", got, "hello")
	}
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)
	target := filepath.Join(root.Dir(), "f.txt")

	if err := root.WriteFileAtomic(target, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write error = %v", err)
	}
	if err := root.WriteFileAtomic(target, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write error = %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "two" {
		t.Errorf("content = %q; want %q", got, "two")
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)
	target := filepath.Join(root.Dir(), "f.txt")
	if err := root.WriteFileAtomic(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	entries, err := os.ReadDir(root.Dir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".toolgate-") {
			t.Errorf("leftover temp file %q", e.Name())
		}
	}
}

func TestWriteFileAtomic_OutsideRootRejected(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t)
	outside := filepath.Join(t.TempDir(), "evil.txt")

	if err := root.WriteFileAtomic(outside, []byte("x"), 0o644); !errors.Is(err, ErrPathEscapesRoot) {
		t.Errorf("WriteFileAtomic(outside) error = %v; want ErrPathEscapesRoot", err)
	}
}
