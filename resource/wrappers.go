package resource

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"time"
)

// TimeLimitedResource wraps another Resource and forces a not-modified
// result for conditional fetches made within Cooldown of the last
// successful fetch, regardless of what the wrapped resource reports.
type TimeLimitedResource struct {
	Inner    Resource
	Cooldown time.Duration
}

// NewTimeLimitedResource wraps inner so it is not re-fetched more often
// than every cooldown.
func NewTimeLimitedResource(inner Resource, cooldown time.Duration) *TimeLimitedResource {
	return &TimeLimitedResource{Inner: inner, Cooldown: cooldown}
}

func (r *TimeLimitedResource) Name() string { return r.Inner.Name() }

func (r *TimeLimitedResource) Fetch(ctx context.Context, conditional bool, meta Metadata) (io.ReadCloser, Metadata, error) {
	if conditional && !meta.FetchTime.IsZero() && meta.FetchTime != DateTimeMinUTC {
		if time.Since(meta.FetchTime) < r.Cooldown {
			return nil, meta, ErrNotModified
		}
	}
	return r.Inner.Fetch(ctx, conditional, meta)
}

// ZipEntryResource exposes a single member of a zip archive (itself
// produced by another Resource, typically a LocalResource or
// HTTPResource already cached to disk) as its own Resource.
type ZipEntryResource struct {
	name       string
	archivePath string
	entryName  string
}

// NewZipEntryResource builds a Resource reading entryName out of the
// zip archive at archivePath.
func NewZipEntryResource(name, archivePath, entryName string) *ZipEntryResource {
	return &ZipEntryResource{name: name, archivePath: archivePath, entryName: entryName}
}

func (r *ZipEntryResource) Name() string { return r.name }

func (r *ZipEntryResource) Fetch(ctx context.Context, conditional bool, meta Metadata) (io.ReadCloser, Metadata, error) {
	zr, err := zip.OpenReader(r.archivePath)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("resource: opening archive %s: %w", r.archivePath, err)
	}
	for _, f := range zr.File {
		if f.Name != r.entryName {
			continue
		}
		modTime := f.Modified.UTC()
		if conditional && !modTime.After(meta.LastModified) {
			zr.Close()
			return nil, meta, ErrNotModified
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, Metadata{}, fmt.Errorf("resource: opening %s in %s: %w", r.entryName, r.archivePath, err)
		}
		_ = ctx
		return &zipEntryReadCloser{ReadCloser: rc, archive: zr}, Metadata{LastModified: modTime, FetchTime: meta.FetchTime}, nil
	}
	zr.Close()
	return nil, Metadata{}, fmt.Errorf("resource: %s has no member %s", r.archivePath, r.entryName)
}

type zipEntryReadCloser struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntryReadCloser) Close() error {
	err1 := z.ReadCloser.Close()
	err2 := z.archive.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
