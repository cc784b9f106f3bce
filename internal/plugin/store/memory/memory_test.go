package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

func testRecord(id string, tags model.TagCounts) *model.MediaRecord {
	return &model.MediaRecord{
		ID:           id,
		UploadTime:   time.Now().UTC(),
		MediaID:      id + ".jpg",
		MediaType:    model.MediaKindImage,
		Format:       "jpg",
		ThumbnailURL: "https://b.s3.amazonaws.com/thumbnails/" + id + ".jpg",
		OriginalURL:  "https://b.s3.amazonaws.com/raw_uploads/" + id + ".jpg",
		Tags:         tags,
	}
}

func receiveMedia(t *testing.T, ch <-chan registrystore.MediaEvent) registrystore.MediaEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for media event")
		return registrystore.MediaEvent{}
	}
}

func receiveUser(t *testing.T, ch <-chan registrystore.UserEvent) registrystore.UserEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for user event")
		return registrystore.UserEvent{}
	}
}

func TestMediaCRUDEmitsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	events, err := s.MediaEvents(ctx)
	require.NoError(t, err)

	rec := testRecord("m1", model.TagCounts{"crow": 2})
	require.NoError(t, s.PutMedia(ctx, rec))

	ev := receiveMedia(t, events)
	require.Equal(t, registrystore.EventInsert, ev.Type)
	require.Equal(t, "m1", ev.New.ID)
	require.Nil(t, ev.Old)

	require.NoError(t, s.UpdateMediaTags(ctx, "m1", model.TagCounts{"crow": 5}))
	ev = receiveMedia(t, events)
	require.Equal(t, registrystore.EventModify, ev.Type)
	require.Equal(t, model.TagCounts{"crow": 5}, ev.New.Tags)
	require.Equal(t, model.TagCounts{"crow": 2}, ev.Old.Tags)

	require.NoError(t, s.DeleteMedia(ctx, "m1"))
	ev = receiveMedia(t, events)
	require.Equal(t, registrystore.EventRemove, ev.Type)
	require.Equal(t, "m1", ev.Old.ID)

	var notFound *registrystore.NotFoundError
	_, err = s.GetMedia(ctx, "m1")
	require.ErrorAs(t, err, &notFound)
}

func TestScanMediaKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.PutMedia(ctx, testRecord(id, nil)))
	}
	records, err := s.ScanMedia(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "a", records[0].ID)
	require.Equal(t, "b", records[1].ID)
	require.Equal(t, "c", records[2].ID)
}

func TestScanMediaReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.PutMedia(ctx, testRecord("m1", model.TagCounts{"crow": 1})))

	records, err := s.ScanMedia(ctx)
	require.NoError(t, err)
	records[0].Tags["crow"] = 99

	rec, err := s.GetMedia(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, 1, rec.Tags["crow"])
}

func TestUserLifecycleEmitsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	events, err := s.UserEvents(ctx)
	require.NoError(t, err)

	user := &model.UserSubscription{Email: "a@example.com", InterestTags: []string{"crow"}}
	require.NoError(t, s.PutUser(ctx, user))
	ev := receiveUser(t, events)
	require.Equal(t, registrystore.EventInsert, ev.Type)
	require.Equal(t, "a@example.com", ev.New.Email)

	require.NoError(t, s.UpdateInterestTags(ctx, "a@example.com", []string{"crow", "owl"}))
	ev = receiveUser(t, events)
	require.Equal(t, registrystore.EventModify, ev.Type)
	require.Equal(t, []string{"crow"}, ev.Old.InterestTags)
	require.Equal(t, []string{"crow", "owl"}, ev.New.InterestTags)

	require.NoError(t, s.SetSubscriptionHandle(ctx, "a@example.com", "arn:1"))
	ev = receiveUser(t, events)
	require.Equal(t, registrystore.EventModify, ev.Type)
	require.Equal(t, "arn:1", ev.New.SubscriptionHandle)

	require.NoError(t, s.DeleteUser(ctx, "a@example.com"))
	ev = receiveUser(t, events)
	require.Equal(t, registrystore.EventRemove, ev.Type)
	require.Equal(t, "arn:1", ev.Old.SubscriptionHandle)
}

func TestFeedClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()
	events, err := s.MediaEvents(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-events:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("feed channel not closed after cancel")
	}

	// Writes after the subscriber is gone must not panic.
	require.NoError(t, s.PutMedia(context.Background(), testRecord("m2", nil)))
}
