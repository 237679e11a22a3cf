package receipts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	name, err := store.Save(context.Background(), "bill.JPG", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("stored name %q should keep a lowercased extension", name)
	}
	if strings.Contains(name, string(os.PathSeparator)) {
		t.Fatalf("stored name %q leaks path separators", name)
	}

	data, err := os.ReadFile(filepath.Join(store.dir, name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Fatalf("content mismatch: %q", data)
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.dir, name)); !os.IsNotExist(err) {
		t.Fatal("file survived Remove")
	}
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, err = store.Save(context.Background(), "receipt.pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Remove("does-not-exist.png"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestRemoveIgnoresPathComponents(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	outside := filepath.Join(dir, "..", "victim.txt")
	if err := os.WriteFile(outside, []byte("keep me"), 0644); err != nil {
		t.Fatalf("plant file: %v", err)
	}
	if err := store.Remove("../victim.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("Remove escaped the receipts directory")
	}
}
