// Package fs implements imagestore.Store on the local filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"splitbill/internal/imagestore"
)

var _ imagestore.Store = (*Store)(nil)

// Store keeps receipt images as "<billID>.<ext>" files under a root
// directory. Not concurrent-writer safe beyond per-file creation.
type Store struct {
	root string
}

// New returns a filesystem-backed image store rooted at path, creating
// the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image root: %w", err)
	}
	return &Store{root: root}, nil
}

// sanitize rejects keys that could escape the root directory.
func sanitize(billID, ext string) (string, error) {
	if strings.TrimSpace(billID) == "" {
		return "", fmt.Errorf("empty bill id")
	}
	if strings.ContainsAny(billID, "/\\") || strings.Contains(billID, "..") {
		return "", fmt.Errorf("invalid bill id %q", billID)
	}
	if !imagestore.ValidExtension(ext) {
		return "", fmt.Errorf("unsupported image extension %q", ext)
	}
	return billID + "." + ext, nil
}

// Save stores the image bytes for a bill.
func (s *Store) Save(ctx context.Context, billID, ext string, data []byte) error {
	key, err := sanitize(billID, ext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// Find returns the stored key for the bill's image, trying each known
// extension.
func (s *Store) Find(ctx context.Context, billID string) (string, bool, error) {
	for _, ext := range imagestore.KnownExtensions {
		key, err := sanitize(billID, ext)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(filepath.Join(s.root, key)); err == nil {
			return key, true, nil
		} else if !os.IsNotExist(err) {
			return "", false, fmt.Errorf("stat image: %w", err)
		}
	}
	return "", false, nil
}

// Remove deletes the bill's image under any known extension.
func (s *Store) Remove(ctx context.Context, billID string) error {
	for _, ext := range imagestore.KnownExtensions {
		key, err := sanitize(billID, ext)
		if err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(s.root, key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove image: %w", err)
		}
	}
	return nil
}

// RemoveAll deletes every regular file under the root directory.
func (s *Store) RemoveAll(ctx context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read image root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}
