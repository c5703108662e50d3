package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore holds recorded audio addressed by URI.
type BlobStore interface {
	// Stat returns the blob size. Missing blobs report an error matching
	// os.ErrNotExist.
	Stat(ctx context.Context, uri string) (int64, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Remove(ctx context.Context, uri string) error
}

// FileBlobStore resolves URIs to local files. Relative paths are joined to
// Dir; file:// URIs and absolute paths are used as-is.
type FileBlobStore struct {
	Dir string
}

// NewFileBlobStore returns a store rooted at dir.
func NewFileBlobStore(dir string) FileBlobStore {
	return FileBlobStore{Dir: dir}
}

func (s FileBlobStore) path(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", errors.New("empty recording uri")
	}
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("parse recording uri: %w", err)
		}
		return filepath.FromSlash(parsed.Path), nil
	}
	if filepath.IsAbs(uri) || s.Dir == "" {
		return uri, nil
	}
	return filepath.Join(s.Dir, uri), nil
}

func (s FileBlobStore) Stat(_ context.Context, uri string) (int64, error) {
	path, err := s.path(uri)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

func (s FileBlobStore) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path, err := s.path(uri)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s FileBlobStore) Remove(_ context.Context, uri string) error {
	path, err := s.path(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
