package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPResource streams an HTTP GET response, carrying conditional
// request headers (If-Modified-Since/If-None-Match) from stored
// metadata and retrying transient failures with an exponential backoff,
// grounded on the teacher downloader's plain http.Client usage.
type HTTPResource struct {
	name    string
	url     string
	Headers map[string]string
	Client  *http.Client
	MaxSize int64
}

// NewHTTPResource builds a Resource that fetches url over HTTP,
// registered under name.
func NewHTTPResource(name, url string) *HTTPResource {
	return &HTTPResource{
		name:   name,
		url:    url,
		Client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (r *HTTPResource) Name() string { return r.name }

func (r *HTTPResource) Fetch(ctx context.Context, conditional bool, meta Metadata) (io.ReadCloser, Metadata, error) {
	var resp *http.Response

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("resource: building request for %s: %w", r.url, err))
		}
		for k, v := range r.Headers {
			req.Header.Set(k, v)
		}
		if conditional {
			if !meta.LastModified.IsZero() && meta.LastModified != DateTimeMinUTC {
				req.Header.Set("If-Modified-Since", meta.LastModified.Format(http.TimeFormat))
			}
			if etag := meta.Extra["etag"]; etag != "" {
				req.Header.Set("If-None-Match", etag)
			}
		}
		resp, err = r.Client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("resource: %s returned %d", r.url, resp.StatusCode)
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, Metadata{}, fmt.Errorf("resource: fetching %s: %w", r.url, err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, meta, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, Metadata{}, fmt.Errorf("resource: %s returned %d", r.url, resp.StatusCode)
	}

	lastModified := time.Now().UTC()
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			lastModified = t.UTC()
		}
	}
	extra := map[string]string{}
	if etag := resp.Header.Get("ETag"); etag != "" {
		extra["etag"] = etag
	}

	var body io.ReadCloser = resp.Body
	if r.MaxSize > 0 {
		body = &limitedReadCloser{r: io.LimitReader(resp.Body, r.MaxSize), c: resp.Body}
	}

	return body, Metadata{LastModified: lastModified, FetchTime: time.Now().UTC(), Extra: extra}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }
