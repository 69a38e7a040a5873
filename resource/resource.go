// Package resource implements the fetch-and-cache layer for pipeline
// inputs: local files, HTTP downloads and thin wrappers over either,
// each with a JSON metadata sidecar enabling conditional re-fetches.
// Grounded on the HTTP client the teacher's downloader package used,
// generalized with cenkalti/backoff/v4 retry and archive/zip member
// access.
package resource

import (
	"context"
	"io"
	"time"

	"impuls.dev/impuls/impulserr"
)

// DateTimeMinUTC is the sentinel timestamp meaning "never fetched".
var DateTimeMinUTC = time.Unix(0, 0).UTC()

// Metadata is the persisted sidecar content for a cached resource.
type Metadata struct {
	LastModified time.Time         `json:"last_modified"`
	FetchTime    time.Time         `json:"fetch_time"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Resource is an abstract source of bytes that can report whether it has
// changed since it was last fetched.
type Resource interface {
	// Name is the key this resource is registered under, also used as
	// its filename within the workspace.
	Name() string
	// Fetch streams the resource's current content. If conditional is
	// true and the resource has not changed since meta.FetchTime,
	// Fetch returns ErrNotModified and a nil reader.
	Fetch(ctx context.Context, conditional bool, meta Metadata) (io.ReadCloser, Metadata, error)
}

// ErrNotModified is returned by Fetch when conditional is true and the
// upstream resource has not changed since meta.FetchTime. It is the same
// sentinel as impulserr.ErrInputNotModified so callers can use errors.Is
// against either name.
var ErrNotModified = impulserr.ErrInputNotModified
