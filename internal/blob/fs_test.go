package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempFS(t)
	content := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
	if err := s.Write("item-1.png", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("item-1.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %v", got)
	}
	if !s.Exists("item-1.png") {
		t.Error("Exists = false after write")
	}
}

func TestWriteOverwrites(t *testing.T) {
	s := tempFS(t)
	_ = s.Write("k.bin", []byte("old"))
	if err := s.Write("k.bin", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("k.bin")
	if string(got) != "new" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write("a.bin", []byte("data")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".self-tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestDelete(t *testing.T) {
	s := tempFS(t)
	_ = s.Write("gone.bin", []byte("bye"))
	if err := s.Delete("gone.bin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("gone.bin") {
		t.Error("Exists = true after delete")
	}
	if _, err := s.Read("gone.bin"); err == nil {
		t.Error("expected error reading deleted blob")
	}
}

func TestTraversalRejected(t *testing.T) {
	s := tempFS(t)
	for _, key := range []string{"../escape.bin", "a/../../escape.bin", "/abs.bin", ""} {
		if err := s.Write(key, []byte("x")); err == nil {
			t.Errorf("Write(%q) accepted a path outside the root", key)
		}
		if _, err := s.Read(key); err == nil {
			t.Errorf("Read(%q) accepted a path outside the root", key)
		}
		if s.Exists(key) {
			t.Errorf("Exists(%q) = true", key)
		}
	}
}

func TestNewFSRequiresExistingDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
