package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freightline/portal-services/internal/docstore"
	"github.com/freightline/portal-services/pkg/logger"
	"github.com/freightline/portal-services/pkg/metrics"
)

// StoreHandler exposes the document store over HTTP:
//
//	GET /document?key=<key>[&hintUrl=<url>]  -> 200 {"data": <json|null>, "url": <string|null>}
//	PUT /document {"key": ..., "data": ...}  -> 200 {"success": true, "url": <string>}
//
// "data": null means no document exists for the key — that is a success,
// not an error status. Responses are never cacheable: an empty answer can
// become a non-empty one moments later.
type StoreHandler struct {
	store *docstore.Store
}

func NewStoreHandler(s *docstore.Store) *StoreHandler {
	return &StoreHandler{store: s}
}

// Register wires the document endpoints and turns on 405 reporting for
// unsupported methods.
func (h *StoreHandler) Register(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method " + c.Request.Method + " Not Allowed"})
	})
	r.GET("/document", h.Get)
	r.PUT("/document", h.Put)
}

type documentResponse struct {
	Data json.RawMessage `json:"data"`
	URL  *string         `json:"url"`
}

type writeRequest struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Get resolves the current document for a key, optionally trying a
// client-cached hint URL first.
func (h *StoreHandler) Get(c *gin.Context) {
	noStore(c)

	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing "key" parameter.`})
		return
	}
	hint := c.Query("hintUrl")

	doc, err := h.store.Read(c.Request.Context(), key, hint)
	if err != nil {
		h.writeStoreError(c, key, err)
		metrics.DocumentReads.WithLabelValues("error").Inc()
		return
	}
	if !doc.Exists() {
		metrics.DocumentReads.WithLabelValues("empty").Inc()
		c.JSON(http.StatusOK, documentResponse{Data: nil, URL: nil})
		return
	}
	if hint != "" && doc.URL == hint {
		metrics.DocumentReads.WithLabelValues("hint_hit").Inc()
	} else {
		metrics.DocumentReads.WithLabelValues("fallback").Inc()
	}
	c.JSON(http.StatusOK, documentResponse{Data: doc.Data, URL: &doc.URL})
}

// Put stores a document and returns the new object URL, which the client
// should cache as the hint for its next read.
func (h *StoreHandler) Put(c *gin.Context) {
	noStore(c)

	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.DocumentWrites.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body.", "details": err.Error()})
		return
	}
	if req.Key == "" {
		metrics.DocumentWrites.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing "key" parameter.`})
		return
	}
	if req.Data == nil {
		metrics.DocumentWrites.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing "data" field.`})
		return
	}

	url, err := h.store.Write(c.Request.Context(), req.Key, req.Data)
	if err != nil {
		h.writeStoreError(c, req.Key, err)
		if errors.Is(err, docstore.ErrInvalidInput) {
			metrics.DocumentWrites.WithLabelValues("invalid").Inc()
		} else {
			metrics.DocumentWrites.WithLabelValues("error").Inc()
		}
		return
	}
	metrics.DocumentWrites.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
func (h *StoreHandler) writeStoreError(c *gin.Context, key string, err error) {
	var se *docstore.StorageError
	var de *docstore.DecodeError
	switch {
	case errors.Is(err, docstore.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &de):
		logger.Errorf("corrupt document for key %q at %s: %v", key, de.URL, de.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored document is corrupt.", "details": de.Error()})
	case errors.As(err, &se):
		logger.Errorf("storage %s failed for key %q: %v", se.Op, key, se.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage backend failure.", "details": se.Error()})
	default:
		logger.Errorf("document store error for key %q: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "details": err.Error()})
	}
}

// noStore disables intermediary caching of the API response itself.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
