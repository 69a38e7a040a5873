package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"impuls.dev/impuls/impulserr"
)

type sidecar struct {
	LastModified float64           `json:"last_modified"`
	FetchTime    float64           `json:"fetch_time"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func sidecarPath(workspace, name string) string {
	return filepath.Join(workspace, name+".metadata")
}

func contentPath(workspace, name string) string {
	return filepath.Join(workspace, name)
}

func loadMetadata(workspace, name string) Metadata {
	b, err := os.ReadFile(sidecarPath(workspace, name))
	if err != nil {
		return Metadata{LastModified: DateTimeMinUTC, FetchTime: DateTimeMinUTC}
	}
	var s sidecar
	if err := json.Unmarshal(b, &s); err != nil {
		return Metadata{LastModified: DateTimeMinUTC, FetchTime: DateTimeMinUTC}
	}
	meta := Metadata{Extra: s.Extra}
	meta.LastModified = unixFloatToTime(s.LastModified)
	meta.FetchTime = unixFloatToTime(s.FetchTime)
	return meta
}

func unixFloatToTime(secs float64) time.Time {
	if secs == 0 {
		return DateTimeMinUTC
	}
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}

func timeToUnixFloat(t time.Time) float64 {
	if t.IsZero() || t == DateTimeMinUTC {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func saveMetadata(workspace, name string, meta Metadata) error {
	s := sidecar{
		LastModified: timeToUnixFloat(meta.LastModified),
		FetchTime:    timeToUnixFloat(meta.FetchTime),
		Extra:        meta.Extra,
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(workspace, name), b, 0o644)
}

// CacheResources fetches every named resource into workspace,
// conditionally skipping those that have not changed since their
// recorded fetch time. changed is true if at least one resource was
// updated. It returns impulserr.ErrInputNotModified only when every
// resource was not-modified.
func CacheResources(ctx context.Context, resources map[string]Resource, workspace string) (map[string]ManagedResource, bool, error) {
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, false, fmt.Errorf("resource: creating workspace %s: %w", workspace, err)
	}

	out := make(map[string]ManagedResource, len(resources))
	changed := false
	anyModified := false

	for name, res := range resources {
		meta := loadMetadata(workspace, name)
		body, newMeta, err := res.Fetch(ctx, true, meta)
		if errors.Is(err, impulserr.ErrInputNotModified) {
			out[name] = ManagedResource{Path: contentPath(workspace, name), LastModified: meta.LastModified, FetchTime: meta.FetchTime}
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("resource: fetching %s: %w", name, err)
		}
		anyModified = true

		tmp := contentPath(workspace, name) + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			body.Close()
			return nil, false, fmt.Errorf("resource: creating %s: %w", tmp, err)
		}
		_, copyErr := io.Copy(f, body)
		body.Close()
		f.Close()
		if copyErr != nil {
			os.Remove(tmp)
			return nil, false, fmt.Errorf("resource: writing %s: %w", name, copyErr)
		}
		if err := os.Rename(tmp, contentPath(workspace, name)); err != nil {
			return nil, false, fmt.Errorf("resource: replacing %s: %w", name, err)
		}
		newMeta.FetchTime = time.Now().UTC()
		if err := saveMetadata(workspace, name, newMeta); err != nil {
			return nil, false, err
		}
		changed = true
		out[name] = ManagedResource{Path: contentPath(workspace, name), LastModified: newMeta.LastModified, FetchTime: newMeta.FetchTime}
	}

	if !changed && !anyModified {
		return out, false, impulserr.ErrInputNotModified
	}
	return out, changed, nil
}

// EnsureResourcesCached verifies every named resource already has
// cached content in workspace without fetching. Resources missing their
// cache are collected into a MultipleDataErrors instead of failing fast.
func EnsureResourcesCached(resources map[string]Resource, workspace string) (map[string]ManagedResource, error) {
	out := make(map[string]ManagedResource, len(resources))
	var collected impulserr.MultipleDataErrors

	for name := range resources {
		path := contentPath(workspace, name)
		if _, err := os.Stat(path); err != nil {
			collected.Add(impulserr.NewDataError("resource", name, "not cached in %s", workspace))
			continue
		}
		meta := loadMetadata(workspace, name)
		out[name] = ManagedResource{Path: path, LastModified: meta.LastModified, FetchTime: meta.FetchTime}
	}
	if collected.HasAny() {
		return nil, &collected
	}
	return out, nil
}

// PrepareResources dispatches to EnsureResourcesCached when fromCache is
// true, otherwise to CacheResources, translating ErrInputNotModified
// into proceed=false rather than propagating it as an error.
func PrepareResources(ctx context.Context, resources map[string]Resource, workspace string, fromCache bool) (map[string]ManagedResource, bool, error) {
	if fromCache {
		out, err := EnsureResourcesCached(resources, workspace)
		return out, true, err
	}
	out, _, err := CacheResources(ctx, resources, workspace)
	if errors.Is(err, impulserr.ErrInputNotModified) {
		return out, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
