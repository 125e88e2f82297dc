package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Client used by tests and dev mode. It mimics the
// traits the document store has to reconcile against: overwrites at a
// stable path keep the same URL, non-overwriting puts accumulate versioned
// objects under a shared path prefix, and deleted objects leave dangling
// URLs behind.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]*memObject // keyed by URL
	order   []*memObject          // insertion order, drives List
	seq     int
	now     time.Time
}

type memObject struct {
	url        string
	path       string
	data       []byte
	uploadedAt time.Time
}

// NewMemory returns an empty in-memory client.
func NewMemory(bucket string) *Memory {
	if bucket == "" {
		bucket = "test"
	}
	return &Memory{
		bucket:  bucket,
		objects: map[string]*memObject{},
		now:     time.Now().UTC().Truncate(time.Millisecond),
	}
}

// tick returns a strictly increasing timestamp so successive puts order
// deterministically even within one wall-clock millisecond.
func (m *Memory) tick() time.Time {
	m.now = m.now.Add(time.Millisecond)
	return m.now
}

func (m *Memory) stableURL(path string) string {
	return "mem://" + m.bucket + "/" + path
}

func (m *Memory) Put(ctx context.Context, path string, data []byte, opt PutOptions) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	obj := &memObject{path: path, data: append([]byte(nil), data...), uploadedAt: m.tick()}
	if opt.Overwrite {
		// stable path: same URL, prior versions gone
		obj.url = m.stableURL(path)
		m.removeLocked(func(o *memObject) bool { return o.path == path })
	} else {
		obj.url = fmt.Sprintf("%s#v%d", m.stableURL(path), m.seq)
	}
	m.objects[obj.url] = obj
	m.order = append(m.order, obj)
	return Object{URL: obj.url, Path: obj.path, UploadedAt: obj.uploadedAt}, nil
}

func (m *Memory) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Object
	for _, o := range m.order {
		if !strings.HasPrefix(o.path, prefix) {
			continue
		}
		out = append(out, Object{URL: o.url, Path: o.path, UploadedAt: o.uploadedAt})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[url]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), o.data...), nil
}

// Delete removes the object at url, leaving the URL dangling. Stands in
// for the external deletion collaborator.
func (m *Memory) Delete(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(func(o *memObject) bool { return o.url == url })
}

// Seed inserts an object with an explicit URL and timestamp. Tests use it
// to fabricate equal-timestamp races, corrupt bodies and legacy versioned
// objects that a live write path would not produce.
func (m *Memory) Seed(obj Object, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &memObject{url: obj.URL, path: obj.Path, data: append([]byte(nil), data...), uploadedAt: obj.UploadedAt}
	m.objects[o.url] = o
	m.order = append(m.order, o)
}

func (m *Memory) removeLocked(match func(*memObject) bool) {
	kept := m.order[:0]
	for _, o := range m.order {
		if match(o) {
			delete(m.objects, o.url)
			continue
		}
		kept = append(kept, o)
	}
	m.order = kept
}
