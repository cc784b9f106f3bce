package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/plugin/store/memory"
	"github.com/wildtrack/mediatag-service/internal/query"
	"github.com/wildtrack/mediatag-service/internal/tagging"
)

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeObjects) SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error) {
	return "signed:" + storedURL, nil
}

func (f *fakeObjects) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	return "https://b.s3.amazonaws.com/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, storedURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, storedURL)
	return nil
}

type fakeDetector struct {
	tags model.TagCounts
}

func (f *fakeDetector) DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error) {
	return f.tags.Clone(), nil
}

func (f *fakeDetector) Name() string { return "fake" }

func newTestRouter(t *testing.T, detected model.TagCounts) (*gin.Engine, *memory.Store, *fakeObjects) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	objects := &fakeObjects{}
	engine := query.New(store, objects, time.Hour)
	updater := tagging.NewUpdater(store)
	r := gin.New()
	MountRoutes(r, store, engine, updater, objects, &fakeDetector{tags: detected})
	return r, store, objects
}

func seedRecords(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r1",
		UploadTime:   time.Now().UTC(),
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		OriginalURL:  "https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
		Tags:         model.TagCounts{"crow": 3},
	}))
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r2",
		UploadTime:   time.Now().UTC(),
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/r2.jpg",
		OriginalURL:  "https://b.s3.amazonaws.com/raw_uploads/r2.jpg",
		Tags:         model.TagCounts{"owl": 1},
	}))
}

func doJSON(r *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSearchByID(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search?id=r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "signed:https://b.s3.amazonaws.com/thumbnails/r1.jpg", body["thumbnailURL"])
	require.Equal(t, map[string]any{"crow": float64(3)}, body["tags"])
}

func TestSearchByIDStripsQuotes(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, `/search?id="r1"`, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSearchByIDNotFound(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search?id=missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchByThumbnail(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search?thumbnailURL=https://b.s3.amazonaws.com/thumbnails/r2.jpg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "signed:https://b.s3.amazonaws.com/raw_uploads/r2.jpg", body["originalURL"])
}

func TestSearchByNumberedTagPairs(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search?tag1=crow&count1=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{
		"signed:https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		"signed:https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
	}, body["links"])
}

func TestSearchByTagNames(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search?tag=owl", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{
		"signed:https://b.s3.amazonaws.com/thumbnails/r2.jpg",
		"signed:https://b.s3.amazonaws.com/raw_uploads/r2.jpg",
	}, body["links"])
}

func TestSearchWithoutParams(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodGet, "/search", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchPOSTImplicitCounts(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/search", map[string]any{"crow": 2})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{
		"signed:https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		"signed:https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
	}, body["links"])
}

func TestModifyTagsAdd(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/modify-tags", map[string]any{
		"url":       []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		"operation": 1,
		"tags":      []string{"crow,2", "heron,1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{"signed:https://b.s3.amazonaws.com/thumbnails/r1.jpg"}, body["updated"])

	rec, err := store.GetMedia(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, model.TagCounts{"crow": 5, "heron": 1}, rec.Tags)
}

func TestModifyTagsSubtractToZeroRemovesTag(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/modify-tags", map[string]any{
		"url":       []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		"operation": 0,
		"tags":      []string{"crow,3"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := store.GetMedia(context.Background(), "r1")
	require.NoError(t, err)
	require.Empty(t, rec.Tags)
}

func TestModifyTagsValidation(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/modify-tags", map[string]any{
		"url":  []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		"tags": []string{"crow,1"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "operation")

	w = doJSON(r, http.MethodPost, "/modify-tags", map[string]any{
		"url":       []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		"operation": 1,
		"tags":      []string{"not-a-pair"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no valid tags")
}

func TestDeleteFilesRemovesRecordsAndObjects(t *testing.T) {
	r, store, objects := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/delete-files", map[string]any{
		"urls": []string{
			"https://b.s3.amazonaws.com/thumbnails/r1.jpg",
			"https://b.s3.amazonaws.com/raw_uploads/r2.jpg",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "Deletion completed", body["message"])
	require.Equal(t, []any{
		"https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		"https://b.s3.amazonaws.com/raw_uploads/r2.jpg",
	}, body["deleted"])

	ctx := context.Background()
	records, err := store.ScanMedia(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
	require.ElementsMatch(t, []string{
		"https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		"https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
		"https://b.s3.amazonaws.com/thumbnails/r2.jpg",
		"https://b.s3.amazonaws.com/raw_uploads/r2.jpg",
	}, objects.deleted)
}

func TestDeleteFilesSingleStringURL(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/delete-files", map[string]any{
		"thumbnailURL": "https://b.s3.amazonaws.com/thumbnails/r1.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"}, body["deleted"])

	records, err := store.ScanMedia(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "r2", records[0].ID)
}

func TestDeleteFilesURLMatchingTwoRecords(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	ctx := context.Background()
	// Two records share the same original URL.
	shared := "https://b.s3.amazonaws.com/raw_uploads/shared.jpg"
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r1",
		UploadTime:   time.Now().UTC(),
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		OriginalURL:  shared,
	}))
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:          "r2",
		UploadTime:  time.Now().UTC(),
		OriginalURL: shared,
	}))

	w := doJSON(r, http.MethodPost, "/delete-files", map[string]any{
		"urls": []string{shared},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	// Both records are gone, but the input URL appears once.
	require.Equal(t, []any{shared}, body["deleted"])

	records, err := store.ScanMedia(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestDeleteFilesRejectsMissingURLs(t *testing.T) {
	r, store, _ := newTestRouter(t, nil)
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/delete-files", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryByFileMatchesExactTagKeys(t *testing.T) {
	r, store, _ := newTestRouter(t, model.TagCounts{"crow": 1})
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/query-by-file", map[string]any{
		"file": "aGVsbG8=",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, []any{
		"signed:https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		"signed:https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
	}, body["links"])
}

func TestQueryByFileNoTagsDetected(t *testing.T) {
	r, store, _ := newTestRouter(t, model.TagCounts{})
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/query-by-file", map[string]any{
		"file": "aGVsbG8=",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no tags detected")
}

func TestQueryByFileRequiresFile(t *testing.T) {
	r, store, _ := newTestRouter(t, model.TagCounts{"crow": 1})
	seedRecords(t, store)

	w := doJSON(r, http.MethodPost, "/query-by-file", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
