package tagging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/plugin/store/memory"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r1",
		UploadTime:   time.Now().UTC(),
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		Tags:         model.TagCounts{"crow": 2},
	}))
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r2",
		UploadTime:   time.Now().UTC(),
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/r2.jpg",
	}))
	return store
}

func TestApplyAddCreatesAndSums(t *testing.T) {
	store := seedStore(t)
	updater := NewUpdater(store)
	ctx := context.Background()

	updated, err := updater.Apply(ctx,
		[]string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		model.TagCounts{"crow": 1, "owl": 3}, model.MergeAdd)
	require.NoError(t, err)
	require.Equal(t, []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"}, updated)

	rec, err := store.GetMedia(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, model.TagCounts{"crow": 3, "owl": 3}, rec.Tags)
}

func TestApplySubtractRemovesAtZero(t *testing.T) {
	store := seedStore(t)
	updater := NewUpdater(store)
	ctx := context.Background()

	updated, err := updater.Apply(ctx,
		[]string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"},
		model.TagCounts{"crow": 2, "heron": 1}, model.MergeSubtract)
	require.NoError(t, err)
	require.Len(t, updated, 1)

	rec, err := store.GetMedia(ctx, "r1")
	require.NoError(t, err)
	require.Empty(t, rec.Tags)
}

func TestApplyAddToRecordWithNoTags(t *testing.T) {
	store := seedStore(t)
	updater := NewUpdater(store)
	ctx := context.Background()

	updated, err := updater.Apply(ctx,
		[]string{"https://b.s3.amazonaws.com/thumbnails/r2.jpg"},
		model.TagCounts{"egret": 1}, model.MergeAdd)
	require.NoError(t, err)
	require.Len(t, updated, 1)

	rec, err := store.GetMedia(ctx, "r2")
	require.NoError(t, err)
	require.Equal(t, model.TagCounts{"egret": 1}, rec.Tags)
}

func TestApplySkipsUnknownURLs(t *testing.T) {
	store := seedStore(t)
	updater := NewUpdater(store)

	updated, err := updater.Apply(context.Background(),
		[]string{
			"https://b.s3.amazonaws.com/thumbnails/missing.jpg",
			"https://b.s3.amazonaws.com/thumbnails/r1.jpg",
		},
		model.TagCounts{"crow": 1}, model.MergeAdd)
	require.NoError(t, err)
	require.Equal(t, []string{"https://b.s3.amazonaws.com/thumbnails/r1.jpg"}, updated)
}
