package fsys

import (
	"os"
	"path/filepath"
	"testing"
)

func testCreateWriteReadRemove(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "file.txt")

	f, err := fs.Create(p)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = f.Close()

	if e := fs.WriteFile(p, []byte("hello"), 0o644); e != nil {
		t.Fatalf("WriteFile failed: %v", e)
	}

	b, err := fs.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(b) != "hello" {
		t.Errorf("ReadFile = %q, want %q", string(b), "hello")
	}

	if e := fs.Remove(p); e != nil {
		t.Fatalf("Remove failed: %v", e)
	}
}

func testMkdirAllStat(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Join(root, "a/b/c"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := fs.Stat(filepath.Join(root, "a/b"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected directory, got file: %v", info.Name())
	}
}

func testRename(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	oldPath := filepath.Join(root, "old.txt")
	newPath := filepath.Join(root, "new.txt")

	if e := fs.WriteFile(oldPath, []byte("content"), 0o644); e != nil {
		t.Fatalf("WriteFile failed: %v", e)
	}
	if e := fs.Rename(oldPath, newPath); e != nil {
		t.Fatalf("Rename failed: %v", e)
	}

	ok, err := fs.Exists(newPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Errorf("renamed file %q does not exist", newPath)
	}

	ok, err = fs.Exists(oldPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Errorf("old path %q still exists after rename", oldPath)
	}
}

func testWalk(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	if e := fs.MkdirAll(filepath.Join(root, "w/x"), 0o755); e != nil {
		t.Fatalf("MkdirAll failed: %v", e)
	}
	if e := fs.WriteFile(filepath.Join(root, "w/x/z.txt"), []byte("z"), 0o644); e != nil {
		t.Fatalf("WriteFile failed: %v", e)
	}

	var seen int
	walkErr := fs.Walk(filepath.Join(root, "w"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			t.Fatalf("walk callback error: %v", err)
		}
		seen++
		return nil
	})
	if walkErr != nil {
		t.Fatalf("Walk failed: %v", walkErr)
	}
	if seen < 3 {
		t.Errorf("Walk saw %d entries, want >= 3", seen)
	}
}

// runSuite runs a battery of consistency tests against a Filesystem impl.
func runSuite(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	testCreateWriteReadRemove(t, fs, root)
	testMkdirAllStat(t, fs, root)
	testRename(t, fs, root)
	testWalk(t, fs, root)
}

func TestInMemoryFS_Suite(t *testing.T) {
	runSuite(t, NewInMemoryFS(), "/")
}

func TestOSFS_Suite(t *testing.T) {
	root := t.TempDir()
	runSuite(t, NewOSFS(root), "/")
}
