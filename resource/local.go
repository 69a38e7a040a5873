package resource

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// LocalResource reads a file from the local filesystem.
type LocalResource struct {
	name string
	path string
}

// NewLocalResource builds a Resource backed by the file at path,
// registered under name.
func NewLocalResource(name, path string) *LocalResource {
	return &LocalResource{name: name, path: path}
}

func (r *LocalResource) Name() string { return r.name }

func (r *LocalResource) Fetch(ctx context.Context, conditional bool, meta Metadata) (io.ReadCloser, Metadata, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("resource: stat %s: %w", r.path, err)
	}
	mtime := info.ModTime().UTC()
	// The cache stores LastModified as float seconds, which drops
	// sub-microsecond precision; allow for that when comparing.
	if conditional && !mtime.After(meta.LastModified.Add(time.Microsecond)) {
		return nil, meta, ErrNotModified
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("resource: opening %s: %w", r.path, err)
	}
	_ = ctx
	return f, Metadata{LastModified: mtime, FetchTime: meta.FetchTime}, nil
}
