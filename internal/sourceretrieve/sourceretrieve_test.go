package sourceretrieve

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRejectsOutsideScanRoot(t *testing.T) {
	scanRoot := t.TempDir()
	r := New(scanRoot, nil)
	if _, _, err := r.Resolve("../../etc/passwd"); err == nil {
		t.Fatal("Resolve() should reject a path escaping scan_root")
	}
}

func TestResolveRejectsExcludeGlob(t *testing.T) {
	scanRoot := t.TempDir()
	r := New(scanRoot, []string{"output/**", "*.pyc"})

	if _, _, err := r.Resolve("output/generated.py"); err == nil {
		t.Fatal("Resolve() should reject a path under an excluded tree")
	}
	if _, _, err := r.Resolve("foo.pyc"); err == nil {
		t.Fatal("Resolve() should reject a single-segment exclude match")
	}
	if _, rel, err := r.Resolve("pkg/foo.py"); err != nil || rel != "pkg/foo.py" {
		t.Errorf("Resolve() = %q, %v, want pkg/foo.py, nil", rel, err)
	}
}

func TestReadCachesContent(t *testing.T) {
	scanRoot := t.TempDir()
	path := filepath.Join(scanRoot, "a.py")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(scanRoot, nil)

	got, err := r.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "x = 1\n" {
		t.Errorf("Read() = %q", got)
	}

	// Mutate on disk; cached Read should still return the first value.
	if err := os.WriteFile(path, []byte("x = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got2, err := r.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got2 != "x = 1\n" {
		t.Errorf("Read() after mutation = %q, want cached %q", got2, "x = 1\n")
	}
}
