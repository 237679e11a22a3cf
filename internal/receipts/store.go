// Package receipts stores uploaded receipt photos on the local filesystem.
// The database row is the authoritative record; this store only keeps the
// bytes the row's photo_file_name points at.
package receipts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the uploaded image under a random name, keeping the original
// extension. The returned name is what gets persisted on the transaction row.
func (s *Store) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	name := randomName() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(path)
		return "", err
	}
	return name, nil
}

// Remove deletes a stored receipt by name. Missing files are not an error:
// the row already stopped pointing at them.
func (s *Store) Remove(name string) error {
	// Stored names never contain separators; Base guards against a
	// corrupted row reaching into the filesystem.
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove receipt %s: %w", name, err)
	}
	return nil
}

func randomName() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "receipt_fallback"
	}
	return hex.EncodeToString(bytes)
}
