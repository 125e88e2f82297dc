package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightline/portal-services/internal/blob"
	"github.com/freightline/portal-services/internal/uploadjobs"
)

type fakeUploader struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (f *fakeUploader) PutStream(_ context.Context, key string, reader io.Reader, _ int64, contentType string) (blob.Object, error) {
	if f.err != nil {
		return blob.Object{}, f.err
	}
	f.key = key
	f.contentType = contentType
	b, err := io.ReadAll(reader)
	if err != nil {
		return blob.Object{}, err
	}
	f.data = b
	return blob.Object{URL: "mem://uploads/" + key, Path: key}, nil
}

func newUploadRouter(u Uploader, rec RecordUpload) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	NewUploadHandler(u, rec).Register(g)
	return g
}

func TestUploadRelay(t *testing.T) {
	fake := &fakeUploader{}
	g := newUploadRouter(fake, nil)

	payload := []byte("%PDF-1.4 fake body")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?filename=cv.pdf&jobId=J-42&uploadPath=CVHC", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/pdf")
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CVHC/J-42/cv.pdf", fake.key)
	assert.Equal(t, "application/pdf", fake.contentType)
	assert.Equal(t, payload, fake.data)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "mem://uploads/CVHC/J-42/cv.pdf", resp["url"])
}

func TestUploadRejectsMissingParams(t *testing.T) {
	g := newUploadRouter(&fakeUploader{}, nil)

	for _, target := range []string{
		"/upload",
		"/upload?filename=a.pdf&jobId=J1",
		"/upload?filename=a.pdf&uploadPath=MBL",
		"/upload?jobId=J1&uploadPath=MBL",
	} {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestUploadRejectsNonWhitelistedPath(t *testing.T) {
	fake := &fakeUploader{}
	g := newUploadRouter(fake, nil)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload?filename=a.pdf&jobId=J1&uploadPath=db", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fake.key, "nothing should reach storage")
}

func TestUploadStorageFailure(t *testing.T) {
	g := newUploadRouter(&fakeUploader{err: errors.New("quota exceeded")}, nil)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload?filename=a.pdf&jobId=J1&uploadPath=MBL", bytes.NewReader([]byte("x"))))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["details"], "quota exceeded")
}

func TestUploadRecordsAuditTrail(t *testing.T) {
	fake := &fakeUploader{}
	var recorded *uploadjobs.PersistedUpload
	g := newUploadRouter(fake, func(_ context.Context, pu *uploadjobs.PersistedUpload) error {
		recorded = pu
		return nil
	})

	payload := []byte("bill of lading")
	req := httptest.NewRequest(http.MethodPost, "/upload?filename=bol.pdf&jobId=J-7&uploadPath=MBL", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/pdf")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, recorded)
	assert.Equal(t, "J-7", recorded.JobID)
	assert.Equal(t, "MBL", recorded.UploadPath)
	assert.Equal(t, "bol.pdf", recorded.Filename)
	assert.Equal(t, "mem://uploads/MBL/J-7/bol.pdf", recorded.ObjectURL)
}

func TestUploadSucceedsWhenRecorderFails(t *testing.T) {
	fake := &fakeUploader{}
	g := newUploadRouter(fake, func(_ context.Context, _ *uploadjobs.PersistedUpload) error {
		return errors.New("mongo down")
	})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload?filename=a.pdf&jobId=J1&uploadPath=MBL", bytes.NewReader([]byte("x"))))
	assert.Equal(t, http.StatusOK, w.Code, "audit trail is best effort")
}
