package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/plugin/store/memory"
)

type recordingObjects struct {
	keys []string
}

func (f *recordingObjects) SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error) {
	return storedURL, nil
}

func (f *recordingObjects) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://b.s3.amazonaws.com/" + key, nil
}

func (f *recordingObjects) Delete(ctx context.Context, storedURL string) error { return nil }

type stubDetector struct {
	tags model.TagCounts
}

func (d *stubDetector) DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error) {
	return d.tags.Clone(), nil
}

func (d *stubDetector) Name() string { return "stub" }

func newIngestRouter(t *testing.T, detected model.TagCounts) (*gin.Engine, *memory.Store, *recordingObjects) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	objects := &recordingObjects{}
	r := gin.New()
	MountRoutes(r, store, objects, &stubDetector{tags: detected})
	return r, store, objects
}

func postIngest(r *gin.Engine, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestStoresObjectAndRecord(t *testing.T) {
	r, store, objects := newIngestRouter(t, model.TagCounts{"crow": 2})

	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	w := postIngest(r, map[string]any{"file": payload, "filename": "sighting.jpg"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ID   string          `json:"id"`
		Tags model.TagCounts `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	require.Equal(t, model.TagCounts{"crow": 2}, body.Tags)

	require.Len(t, objects.keys, 1)

	rec, err := store.GetMedia(context.Background(), body.ID)
	require.NoError(t, err)
	require.Equal(t, model.MediaKindImage, rec.MediaType)
	require.Equal(t, "jpg", rec.Format)
	require.Equal(t, int64(len("fake image bytes")), rec.FileSize)
	require.Equal(t, "https://b.s3.amazonaws.com/"+objects.keys[0], rec.OriginalURL)
	require.True(t, rec.Detected)
}

func TestIngestKeepsProvidedOriginalURL(t *testing.T) {
	r, store, objects := newIngestRouter(t, nil)

	payload := base64.StdEncoding.EncodeToString([]byte("clip"))
	w := postIngest(r, map[string]any{
		"file":        payload,
		"filename":    "clip.mp4",
		"originalURL": "https://b.s3.amazonaws.com/raw_uploads/clip.mp4",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, objects.keys)

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	rec, err := store.GetMedia(context.Background(), body.ID)
	require.NoError(t, err)
	require.Equal(t, "https://b.s3.amazonaws.com/raw_uploads/clip.mp4", rec.OriginalURL)
	require.Equal(t, model.MediaKindVideo, rec.MediaType)
	require.False(t, rec.Detected)
}

func TestIngestRejectsUnknownExtension(t *testing.T) {
	r, _, _ := newIngestRouter(t, nil)

	payload := base64.StdEncoding.EncodeToString([]byte("data"))
	w := postIngest(r, map[string]any{"file": payload, "filename": "notes.txt"})
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestIngestRequiresFileAndFilename(t *testing.T) {
	r, _, _ := newIngestRouter(t, nil)

	w := postIngest(r, map[string]any{"filename": "a.jpg"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postIngest(r, map[string]any{"file": "aGVsbG8="})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postIngest(r, map[string]any{"file": "not base64!!", "filename": "a.jpg"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
