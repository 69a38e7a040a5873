package resource

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
	"gopkg.in/yaml.v3"
)

// ManagedResource is a cheap handle to a resource's cached content on
// disk, with pure readers that never re-fetch.
type ManagedResource struct {
	Path         string
	LastModified time.Time
	FetchTime    time.Time
}

// Size returns the cached content's size in bytes.
func (m ManagedResource) Size() (int64, error) {
	info, err := os.Stat(m.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// OpenBinary opens the cached content for streaming reads.
func (m ManagedResource) OpenBinary() (io.ReadCloser, error) {
	return os.Open(m.Path)
}

// OpenText opens the cached content, stripping a UTF-8 BOM if present —
// GTFS feeds produced by Excel routinely carry one.
func (m ManagedResource) OpenText() (io.ReadCloser, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, err
	}
	return &bomStrippingReadCloser{r: bom.NewReader(f), c: f}, nil
}

type bomStrippingReadCloser struct {
	r io.Reader
	c io.Closer
}

func (b *bomStrippingReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bomStrippingReadCloser) Close() error                { return b.c.Close() }

// Bytes reads the entire cached content.
func (m ManagedResource) Bytes() ([]byte, error) {
	return os.ReadFile(m.Path)
}

// Text reads the entire cached content as a BOM-stripped string.
func (m ManagedResource) Text() (string, error) {
	f, err := m.OpenText()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	return string(b), err
}

// JSON decodes the cached content as JSON into v.
func (m ManagedResource) JSON(v interface{}) error {
	f, err := m.OpenBinary()
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

// YAML decodes the cached content as YAML into v.
func (m ManagedResource) YAML(v interface{}) error {
	f, err := m.OpenBinary()
	if err != nil {
		return err
	}
	defer f.Close()
	return yaml.NewDecoder(f).Decode(v)
}

func init() {
	// LazyCSVReader survives sloppy use of quotes, which real-world
	// GTFS feeds are full of. bom.NewReader strips a leading UTF-8 BOM.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// CSV decodes the cached content as a GTFS-style CSV file into a slice
// of T, using gocsv's struct-tag based unmarshalling.
func CSV[T any](m ManagedResource) ([]T, error) {
	f, err := m.OpenBinary()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []T
	if err := gocsv.Unmarshal(f, &out); err != nil {
		return nil, fmt.Errorf("resource: decoding %s as csv: %w", m.Path, err)
	}
	return out, nil
}
