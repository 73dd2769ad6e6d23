package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndExists(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	key, err := store.Write(context.Background(), "/backups/2026-01-01/1.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if key != "backups/2026-01-01/1.png" {
		t.Fatalf("unexpected key %q", key)
	}
	if !store.Exists(key) {
		t.Fatal("written key should exist")
	}
	data, _ := os.ReadFile(filepath.Join(store.BasePath(), "backups", "2026-01-01", "1.png"))
	if string(data) != "png" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b", ".."} {
		if _, err := sanitizeKey(key); err == nil {
			t.Errorf("sanitizeKey(%q) should fail", key)
		}
	}
}

func TestWriteReaderTooLarge(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	store.maxBytes = 4
	_, err := store.WriteReader(context.Background(), "big.bin", strings.NewReader("123456"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if store.Exists("big.bin") {
		t.Fatal("oversized artifact must not be committed")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteCancelled(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "a.txt", []byte("x")); err == nil {
		t.Fatal("expected context error")
	}
}
