// Package storage defines the seam to the external blob store that
// keeps payment proof images.  The real store is an external
// collaborator; this package only owns the interface and a local-disk
// implementation used in development.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProofStore persists an uploaded payment proof and returns a stable
// reference URL to record on the order.
type ProofStore interface {
	Save(ctx context.Context, orderID uint64, contentType string, r io.Reader) (string, error)
}

// extensions maps accepted content types to file extensions.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// DiskProofStore writes proofs under a local directory.  File names are
// random so an uploaded proof can never collide with or overwrite
// another order's file.
type DiskProofStore struct {
	dir string
}

// NewDiskProofStore returns a store rooted at dir, creating it if
// needed.
func NewDiskProofStore(dir string) (*DiskProofStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &DiskProofStore{dir: dir}, nil
}

// Save streams the proof to disk and returns a file:// style reference.
func (s *DiskProofStore) Save(_ context.Context, orderID uint64, contentType string, r io.Reader) (string, error) {
	ext := extensions[contentType]
	name := fmt.Sprintf("order-%d-%s%s", orderID, uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	return "file://" + path, nil
}
