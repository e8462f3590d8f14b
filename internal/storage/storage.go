// Package storage stores downloaded documents in a gocloud bucket.
//
// A destination is either a local directory path or any gocloud bucket URL
// (file://, mem://, s3://, gs://). Local paths are opened through fileblob
// with sidecar metadata disabled, so the directory holds nothing but the
// documents themselves:
//
//	papers/
//	├── 2022-01/
//	│   └── Attention Is All You Need.pdf
//	└── 2022-02/
//
// Objects are only visible once completely written, which makes the
// presence of a key a reliable "already downloaded" record.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrEmptyDestination is returned when no destination is configured.
var ErrEmptyDestination = errors.New("storage: destination is empty")

// Store wraps a bucket holding downloaded documents.
type Store struct {
	bucket *blob.Bucket
	root   string
}

// Open opens the destination. A local directory is created if missing;
// failure to create it is returned as an error.
func Open(ctx context.Context, dest string) (*Store, error) {
	if dest == "" {
		return nil, ErrEmptyDestination
	}

	if strings.Contains(dest, "://") {
		bucket, err := blob.OpenBucket(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("open bucket %s: %w", dest, err)
		}
		return &Store{bucket: bucket, root: strings.TrimRight(dest, "/")}, nil
	}

	dir, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	bucket, err := blob.OpenBucket(ctx, fileURL(dir))
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", dir, err)
	}
	return &Store{bucket: bucket, root: dest}, nil
}

// New wraps an already opened bucket.
func New(bucket *blob.Bucket, root string) *Store {
	return &Store{bucket: bucket, root: root}
}

// fileURL builds a fileblob URL for dir that skips .attrs sidecar files.
func fileURL(dir string) string {
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive letters
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "metadata=skip"}
	return u.String()
}

// Exists reports whether key has been completely written.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return ok, nil
}

// Write streams r to key. The object only becomes visible if the whole
// stream is copied; on any error the write is aborted.
func (s *Store) Write(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts *blob.WriterOptions
	if contentType != "" {
		opts = &blob.WriterOptions{ContentType: contentType}
	}

	w, err := s.bucket.NewWriter(wctx, key, opts)
	if err != nil {
		return 0, fmt.Errorf("open writer %s: %w", key, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		cancel() // abort: Close must not commit a partial object
		w.Close()
		return n, fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("commit %s: %w", key, err)
	}
	return n, nil
}

// Location returns a human-readable location for key, for summaries.
func (s *Store) Location(key string) string {
	if strings.Contains(s.root, "://") {
		root, _, _ := strings.Cut(s.root, "?")
		return strings.TrimRight(root, "/") + "/" + key
	}
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Keys lists all keys under prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Bucket returns the underlying bucket.
func (s *Store) Bucket() *blob.Bucket {
	return s.bucket
}

// Close closes the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// MonthPrefix returns the key prefix that holds documents for month.
func MonthPrefix(month string) string {
	return path.Clean(month) + "/"
}
