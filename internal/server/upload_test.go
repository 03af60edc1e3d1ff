package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filegate/internal/config"
	"filegate/internal/model"
	"filegate/internal/queue"
	"filegate/internal/server"
	"filegate/internal/status"
	"filegate/internal/testutil"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47}

type testEnv struct {
	cfg     *config.Config
	store   *status.MemoryStore
	queue   *queue.Queue
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Address:          ":0",
		MaxFileSize:      10 << 20,
		UploadDir:        filepath.Join(t.TempDir(), "uploads"),
		TempDir:          t.TempDir(),
		UploadRateLimit:  1000,
		UploadRateWindow: time.Minute,
		ShutdownTimeout:  time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}
	store := status.NewMemoryStore()
	q := queue.New()
	srv := server.New(cfg, store, q, testutil.Logger())
	return &testEnv{cfg: cfg, store: store, queue: q, handler: srv.Routes()}
}

func (e *testEnv) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

type errorBody struct {
	Error             string   `json:"error"`
	FileSize          int64    `json:"fileSize"`
	SizeLimit         int64    `json:"sizeLimit"`
	AllowedExtensions []string `json:"allowedExtensions"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestUploadAccepted(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.upload(t, "a.png", pngHeader)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp struct {
		ProcessingID string `json:"processingId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	_, err := uuid.Parse(resp.ProcessingID)
	require.NoError(t, err, "processing id should be a uuid")

	// Record exists immediately, before any worker runs.
	rec, err := env.store.Get(resp.ProcessingID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, rec.State)
	assert.Equal(t, 1, env.queue.Len())
}

func TestUploadEmptyFile(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.upload(t, "a.png", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "File is empty.", decodeError(t, rr).Error)
	assert.Equal(t, 0, env.queue.Len(), "rejected uploads must not be enqueued")
}

func TestUploadTooLargeReportsExactSizes(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.MaxFileSize = 16 })
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 28)...)
	rr := env.upload(t, "a.png", content)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeError(t, rr)
	assert.Equal(t, int64(32), body.FileSize)
	assert.Equal(t, int64(16), body.SizeLimit)
	assert.Equal(t, "File size exceeds the limit of 16 B.", body.Error)
	assert.Equal(t, 0, env.queue.Len())
}

func TestUploadDisallowedExtension(t *testing.T) {
	env := newTestEnv(t, nil)
	// Content is irrelevant: the extension gate fires before any bytes are
	// inspected.
	rr := env.upload(t, "b.exe", []byte{0x4D, 0x5A, 0x90, 0x00})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeError(t, rr)
	assert.Equal(t, "File extension not allowed.", body.Error)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png", ".gif", ".pdf"}, body.AllowedExtensions)
	assert.Equal(t, 0, env.queue.Len())
}

func TestUploadSignatureMismatch(t *testing.T) {
	env := newTestEnv(t, nil)
	// Allowed extension, wrong leading bytes: must be rejected before
	// enqueueing, not accepted and not misreported as a bad extension.
	rr := env.upload(t, "a.png", []byte{0x00, 0x00, 0x00, 0x00})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "File signature does not match its extension.", decodeError(t, rr).Error)
	assert.Equal(t, 0, env.queue.Len())
}

func TestUploadMissingFilePart(t *testing.T) {
	env := newTestEnv(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No file provided.", decodeError(t, rr).Error)
}

func TestUploadRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.UploadRateLimit = 2
		cfg.UploadRateWindow = time.Minute
	})
	for i := 0; i < 2; i++ {
		rr := env.upload(t, "a.png", pngHeader)
		require.Equal(t, http.StatusAccepted, rr.Code, "request %d should pass", i+1)
	}
	rr := env.upload(t, "a.png", pngHeader)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", decodeError(t, rr).Error)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
