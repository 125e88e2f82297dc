package blob

import (
	"context"
	"errors"
	"time"
)

// Object describes one stored physical object.
type Object struct {
	// URL is the immutable address of this object version.
	URL string `json:"url"`
	// Path is the bucket-relative key the object was created under.
	Path string `json:"path"`
	// UploadedAt is the backend creation timestamp.
	UploadedAt time.Time `json:"uploadedAt"`
}

// PutOptions control object creation.
type PutOptions struct {
	ContentType string
	// Overwrite requests in-place replacement at a stable path when the
	// backend supports it. Backends without true overwrite may create a
	// new object sharing the path prefix instead.
	Overwrite bool
	// NoCache asks the backend to disable edge/CDN caching of the object
	// so following reads observe the new content promptly.
	NoCache bool
}

// ErrNotFound is returned by Fetch when a URL no longer resolves to an
// object (deleted or replaced externally).
var ErrNotFound = errors.New("object not found")

// Client is the minimal object-store surface the document store builds on.
// Backends are assumed eventually consistent: a Put may not be visible to
// an immediately following List/Fetch from another process.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Put creates an object at path and returns its address.
	Put(ctx context.Context, path string, data []byte, opt PutOptions) (Object, error)

	// List returns up to limit objects whose path starts with prefix.
	// Order is backend-defined; callers needing recency must sort by
	// UploadedAt themselves. limit <= 0 means backend default.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)

	// Fetch downloads the object bytes at url. Every fetch is
	// cache-busted so intermediaries cannot serve a stale body for a
	// re-created URL. Returns ErrNotFound when the URL is dangling.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
