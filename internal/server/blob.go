package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrBadBlobID is returned for ids that would escape the upload directory.
var ErrBadBlobID = errors.New("invalid blob id")

// BlobStore writes uploaded bytes to a local directory and resolves them
// back for download. Blobs are named <id><ext>, where ext comes from the
// record's display name. The store never deletes anything: deleting a
// FileRecord leaves its blob behind, so orphaned blobs accumulate on
// disk. Known, accepted gap.
type BlobStore struct {
	dir string
}

// NewBlobStore creates the upload directory if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Path returns the on-disk location for an id + extension pair.
func (b *BlobStore) Path(id, ext string) string {
	return filepath.Join(b.dir, id+ext)
}

// Write copies r to the blob path for id+ext. The bytes land in a
// temp file first and are renamed into place, so a crashed upload never
// leaves a half-written blob under the final name.
func (b *BlobStore) Write(id, ext string, r io.Reader) (int64, error) {
	if !validBlobID(id) || !validBlobExt(ext) {
		return 0, ErrBadBlobID
	}

	tmp := filepath.Join(b.dir, id+ext+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("write blob: %w", err)
	}

	if err := os.Rename(tmp, b.Path(id, ext)); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("finalize blob: %w", err)
	}
	return n, nil
}

// Open returns the blob for reading. A missing blob surfaces as
// fs.ErrNotExist so the download handler can classify it as 404 rather
// than a storage fault.
func (b *BlobStore) Open(id, ext string) (*os.File, error) {
	if !validBlobID(id) || !validBlobExt(ext) {
		return nil, ErrBadBlobID
	}
	return os.Open(b.Path(id, ext))
}

// validBlobID rejects ids that contain path separators or traversal
// sequences. Ids are client-supplied, so they must never be able to name
// a file outside the upload directory.
func validBlobID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

func validBlobExt(ext string) bool {
	return !strings.ContainsAny(ext, `/\`)
}
