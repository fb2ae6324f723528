package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const tmpDirName = "tmp"

// LocalStore keeps blobs as flat files under a root directory. Locations are
// random UUIDs, so concurrent writers never contend for a name.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root, creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

func (s *LocalStore) Allocate() string {
	return uuid.NewString()
}

// Write streams r into location through a temp file and renames it into place.
func (s *LocalStore) Write(ctx context.Context, location string, r io.Reader) (WriteResult, error) {
	var zero WriteResult
	if s == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	dst, err := s.pathFromLocation(location)
	if err != nil {
		return zero, err
	}
	if _, err := os.Stat(dst); err == nil {
		return zero, fmt.Errorf("%w: %s", ErrExists, location)
	} else if !errors.Is(err, os.ErrNotExist) {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirName), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := newHash()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, err
	}

	return WriteResult{Location: location, SizeBytes: n, Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

// Open returns a reader for the blob at location.
func (s *LocalStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFromLocation(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return f, err
}

// Delete removes the blob at location. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, location string) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromLocation(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, location string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.pathFromLocation(location)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) List(ctx context.Context) ([]BlobInfo, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	out := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, BlobInfo{Location: entry.Name(), SizeBytes: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

var errStopWalk = errors.New("stop walk")

func (s *LocalStore) IsEmpty() (bool, error) {
	if s == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	empty := true
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		empty = false
		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return false, err
	}
	return empty, nil
}

func (s *LocalStore) pathFromLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("blob location is required")
	}
	if strings.HasPrefix(location, "/") || filepath.IsAbs(location) {
		return "", fmt.Errorf("blob location must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(location))
	if clean == "." || clean == tmpDirName || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob location")
	}
	if strings.HasPrefix(clean, tmpDirName+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob location")
	}
	return filepath.Join(s.root, clean), nil
}

// Checksum computes the size and checksum of r the same way Write does.
func Checksum(r io.Reader) (int64, string, error) {
	h := newHash()
	n, err := io.Copy(h, r)
	if err != nil {
		return n, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func newHash() hash.Hash {
	// blake2b.New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}
