// Package docstore implements a last-writer-wins JSON document store on
// top of an eventually-consistent object store.
//
// Each logical key maps to the deterministic path "db/<key>.json". Writes
// overwrite that stable path with edge caching disabled, so every client
// converges on the same object. Reads resolve in two tiers: a caller
// supplied hint URL first (fast path), then an authoritative prefix
// listing ordered by creation time. A key with no resolvable object is a
// legitimate empty state, not an error.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/freightline/portal-services/internal/blob"
)

const (
	defaultPrefix    = "db/"
	defaultTimeout   = 10 * time.Second
	defaultListLimit = 100
)

// Document is the result of a read: the raw JSON value and the object URL
// it was served from. A nil Data means no document exists for the key —
// callers should cache URL as the hint for their next read.
type Document struct {
	Data json.RawMessage
	URL  string
}

// Exists reports whether the read found a document.
func (d Document) Exists() bool { return d.Data != nil }

// Config tunes a Store. Zero values fall back to defaults.
type Config struct {
	// Prefix is the path namespace for document objects.
	Prefix string
	// Timeout bounds each individual object-store call.
	Timeout time.Duration
	// ListLimit caps how many physical objects one resolution will scan.
	ListLimit int
}

// Store reads and writes JSON documents through an object store client.
// Stateless: any number of instances may run concurrently, correctness
// never depends on one instance's memory.
type Store struct {
	client    blob.Client
	prefix    string
	timeout   time.Duration
	listLimit int
}

// New creates a Store over the given object store client.
func New(client blob.Client, cfg Config) *Store {
	s := &Store{
		client:    client,
		prefix:    cfg.Prefix,
		timeout:   cfg.Timeout,
		listLimit: cfg.ListLimit,
	}
	if s.prefix == "" {
		s.prefix = defaultPrefix
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.listLimit <= 0 {
		s.listLimit = defaultListLimit
	}
	return s
}

// Path returns the deterministic object path for a key. The same string
// doubles as the listing prefix: backends without true overwrite create
// suffixed variants that still share it, and a longer key can never
// collide with a shorter one.
func (s *Store) Path(key string) string {
	return s.prefix + key + ".json"
}

// ValidateKey rejects keys the path derivation cannot represent safely.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: key must be a non-empty string", ErrInvalidInput)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: key must not start with '/'", ErrInvalidInput)
	case key == ".." || strings.Contains(key, "../") || strings.HasSuffix(key, "/.."):
		return fmt.Errorf("%w: key must not contain '..'", ErrInvalidInput)
	}
	return nil
}

// Write serializes value and creates the canonical object for key,
// overwriting the stable path with caching disabled so other clients
// observe the update promptly. Returns the new object URL for the caller
// to cache as a read hint.
//
// Concurrent writers race freely: the object with the latest creation
// time wins, regardless of request arrival order.
func (s *Store) Write(ctx context.Context, key string, value json.RawMessage) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if value == nil {
		// JSON null is a legal document; a missing value is not.
		return "", fmt.Errorf("%w: value is required", ErrInvalidInput)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return "", fmt.Errorf("%w: value is not valid JSON: %v", ErrInvalidInput, err)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	obj, err := s.client.Put(cctx, s.Path(key), buf.Bytes(), blob.PutOptions{
		ContentType: "application/json",
		Overwrite:   true,
		NoCache:     true,
	})
	if err != nil {
		return "", &StorageError{Op: "put", Err: err}
	}
	return obj.URL, nil
}

// Read resolves the current document for key.
//
// When hintURL is non-empty it is fetched first; a resolvable hint that
// decodes as JSON is returned as-is. Because writes always target the
// stable overwritten path, a resolvable hint for the key carries the
// canonical body (the fetch is cache-busted). A hint that fails for any
// reason falls back to the authoritative listing.
//
// Absence — no object under the key's prefix, or a canonical URL that no
// longer resolves — returns an empty Document and a nil error.
func (s *Store) Read(ctx context.Context, key, hintURL string) (Document, error) {
	if err := ValidateKey(key); err != nil {
		return Document{}, err
	}

	if hintURL != "" {
		data, err := s.fetch(ctx, hintURL)
		if err == nil && json.Valid(data) {
			return Document{Data: data, URL: hintURL}, nil
		}
		// stale, dangling or unreadable hint: fall through to listing
	}

	canonical, ok, err := s.resolve(ctx, key)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, nil
	}

	data, err := s.fetch(ctx, canonical.URL)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// deleted between listing and fetch: legitimately absent
			return Document{}, nil
		}
		return Document{}, &StorageError{Op: "fetch", Err: err}
	}
	if !json.Valid(data) {
		return Document{}, &DecodeError{URL: canonical.URL, Err: errors.New("body is not valid JSON")}
	}
	return Document{Data: data, URL: canonical.URL}, nil
}

// Superseded returns the non-canonical physical objects currently under
// key's prefix, oldest last. Reclamation is the business of an external
// lifecycle collaborator; the read and write paths never touch it.
func (s *Store) Superseded(ctx context.Context, key string) ([]blob.Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	objs, err := s.list(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(objs) <= 1 {
		return nil, nil
	}
	return objs[1:], nil
}

// Keys lists the distinct logical keys under keyPrefix, sorted. Physical
// variants of the same key (suffixed objects on backends without true
// overwrite) collapse to one entry.
func (s *Store) Keys(ctx context.Context, keyPrefix string) ([]string, error) {
	if strings.HasPrefix(keyPrefix, "/") || strings.Contains(keyPrefix, "..") {
		return nil, fmt.Errorf("%w: invalid key prefix", ErrInvalidInput)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	objs, err := s.client.List(cctx, s.prefix+keyPrefix, s.listLimit)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	seen := make(map[string]struct{}, len(objs))
	var keys []string
	for _, o := range objs {
		rel := strings.TrimPrefix(o.Path, s.prefix)
		key, _, ok := strings.Cut(rel, ".json")
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// resolve lists the key's prefix and picks the most recently created
// object as canonical. Equal timestamps break deterministically: stable
// sort, first-listed wins.
func (s *Store) resolve(ctx context.Context, key string) (blob.Object, bool, error) {
	objs, err := s.list(ctx, key)
	if err != nil {
		return blob.Object{}, false, err
	}
	if len(objs) == 0 {
		return blob.Object{}, false, nil
	}
	return objs[0], true, nil
}

func (s *Store) list(ctx context.Context, key string) ([]blob.Object, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	objs, err := s.client.List(cctx, s.Path(key), s.listLimit)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].UploadedAt.After(objs[j].UploadedAt)
	})
	return objs, nil
}

func (s *Store) fetch(ctx context.Context, url string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Fetch(cctx, url)
}
