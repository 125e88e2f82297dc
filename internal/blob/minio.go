package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// noCacheControl is attached to objects written with PutOptions.NoCache so
// edge caches hand back the fresh body after an overwrite.
const noCacheControl = "no-store, no-cache, max-age=0"

// MinIO is a Client backed by a MinIO (or S3-compatible) bucket. Object
// URLs are plain path-style addresses, which requires the bucket to allow
// anonymous reads (the portal serves documents to browsers by URL).
type MinIO struct {
	client  *minio.Client
	bucket  string
	baseURL string
	httpc   *http.Client
}

// NewMinIO creates a MinIO-backed client and ensures the bucket exists.
func NewMinIO(cfg *MinIOConfig) (*MinIO, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	s := &MinIO{
		client:  mc,
		bucket:  cfg.Bucket,
		baseURL: scheme + "://" + cfg.Endpoint,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// objectURL builds the path-style address for a bucket key.
func (s *MinIO) objectURL(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + s.bucket + "/" + strings.Join(segs, "/")
}

// Put uploads data under key. MinIO overwrites stable paths in place, so
// PutOptions.Overwrite is the native behavior here.
func (s *MinIO) Put(ctx context.Context, key string, data []byte, opt PutOptions) (Object, error) {
	po := minio.PutObjectOptions{ContentType: opt.ContentType}
	if opt.NoCache {
		po.CacheControl = noCacheControl
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), po)
	if err != nil {
		return Object{}, err
	}
	uploaded := info.LastModified
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return Object{URL: s.objectURL(key), Path: key, UploadedAt: uploaded}, nil
}

// PutStream uploads from reader without buffering the whole payload.
// Used by the upload relay for binary files; not part of the Client
// interface the document store consumes.
func (s *MinIO) PutStream(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (Object, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, err
	}
	uploaded := info.LastModified
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return Object{URL: s.objectURL(key), Path: key, UploadedAt: uploaded}, nil
}

// List collects up to limit objects under prefix.
func (s *MinIO) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	var out []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, info.Err
		}
		out = append(out, Object{URL: s.objectURL(info.Key), Path: info.Key, UploadedAt: info.LastModified})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Fetch downloads the body at u with a unique cache-busting query
// parameter, so a CDN sitting in front of the bucket cannot serve a stale
// body for a path that was overwritten.
func (s *MinIO) Fetch(ctx context.Context, u string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("parse object url: %w", err)
	}
	q := parsed.Query()
	q.Set("t", fmt.Sprintf("%d", time.Now().UnixNano()))
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: status %d", parsed.Path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
