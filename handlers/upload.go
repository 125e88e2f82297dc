package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freightline/portal-services/internal/blob"
	"github.com/freightline/portal-services/internal/uploadjobs"
	"github.com/freightline/portal-services/pkg/logger"
	"github.com/freightline/portal-services/pkg/metrics"
)

// Uploader is the streaming put the relay needs. *blob.MinIO satisfies it.
type Uploader interface {
	PutStream(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (blob.Object, error)
}

// RecordUpload persists relay metadata for a job. Nil disables the audit trail.
type RecordUpload func(ctx context.Context, pu *uploadjobs.PersistedUpload) error

// allowed destination prefixes for relayed binary uploads
var allowedUploadPaths = map[string]bool{
	"CVHC": true,
	"MBL":  true,
}

// UploadHandler relays raw binary payloads (CVs, bills of lading, ...)
// straight into object storage under a whitelisted path prefix. It is
// independent of the document store: nothing here is reconciled or
// versioned.
type UploadHandler struct {
	store  Uploader
	record RecordUpload
}

func NewUploadHandler(store Uploader, record RecordUpload) *UploadHandler {
	return &UploadHandler{store: store, record: record}
}

func (h *UploadHandler) Register(r *gin.Engine) {
	r.POST("/upload", h.Upload)
}

// Upload streams the request body to "<uploadPath>/<jobId>/<filename>".
func (h *UploadHandler) Upload(c *gin.Context) {
	filename := c.Query("filename")
	jobID := c.Query("jobId")
	uploadPath := c.Query("uploadPath")

	if filename == "" || jobID == "" || uploadPath == "" {
		metrics.UploadRelay.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Filename, JobId, and uploadPath query parameters are required."})
		return
	}
	if !allowedUploadPaths[uploadPath] {
		metrics.UploadRelay.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload path specified."})
		return
	}

	key := fmt.Sprintf("%s/%s/%s", uploadPath, jobID, filename)
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := h.store.PutStream(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, contentType)
	if err != nil {
		logger.Errorf("upload relay failed for %s: %v", key, err)
		metrics.UploadRelay.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file.", "details": err.Error()})
		return
	}

	if h.record != nil {
		pu := &uploadjobs.PersistedUpload{
			JobID:       jobID,
			UploadPath:  uploadPath,
			Filename:    filename,
			ObjectURL:   obj.URL,
			Size:        c.Request.ContentLength,
			ContentType: contentType,
		}
		if err := h.record(c.Request.Context(), pu); err != nil {
			// audit trail is best effort; the object is already stored
			logger.Warnf("failed to record upload %s: %v", key, err)
		}
	}

	metrics.UploadRelay.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("File %s uploaded successfully to %s for Job %s.", filename, uploadPath, jobID),
		"url":     obj.URL,
	})
}
