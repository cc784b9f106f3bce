package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/plugin/store/memory"
	"github.com/wildtrack/mediatag-service/internal/query"
)

type signingStub struct{}

func (signingStub) SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error) {
	return "signed:" + storedURL, nil
}

func (signingStub) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	return "https://b.s3.amazonaws.com/" + key, nil
}

func (signingStub) Delete(ctx context.Context, storedURL string) error { return nil }

func startFanout(t *testing.T) (*memory.Store, *fakeNotifier, context.CancelFunc) {
	t.Helper()
	store := memory.New()
	notifier := &fakeNotifier{}
	engine := query.New(store, signingStub{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = NewNotificationFanout(store, notifier, engine).Start(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	return store, notifier, cancel
}

func TestFanoutPublishesOncePerTag(t *testing.T) {
	store, notifier, cancel := startFanout(t)
	defer cancel()
	ctx := context.Background()

	uploaded := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:           "r1",
		UploadTime:   uploaded,
		OriginalURL:  "https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
		AnnotatedURL: "https://b.s3.amazonaws.com/annotated/r1.jpg",
		Tags:         model.TagCounts{"crow": 2, "pigeon": 1},
	}))

	require.Eventually(t, func() bool {
		_, _, pubs := notifier.counts()
		return pubs == 2
	}, 2*time.Second, 10*time.Millisecond)

	msgs := notifier.published()
	tags := []string{msgs[0].Tag, msgs[1].Tag}
	require.ElementsMatch(t, []string{"crow", "pigeon"}, tags)
	for _, msg := range msgs {
		require.Equal(t, "Wildlife Alert: New Sighting", msg.Subject)
		require.Contains(t, msg.Body, "Species: "+msg.Tag)
		require.Contains(t, msg.Body, "Media ID: r1")
		require.Contains(t, msg.Body, "Time: 2026-03-14T09:30:00Z")
		require.Contains(t, msg.Body, "View Annotated Media: signed:https://b.s3.amazonaws.com/annotated/r1.jpg")
		require.Contains(t, msg.Body, "View Original Media: signed:https://b.s3.amazonaws.com/raw_uploads/r1.jpg")
	}
}

func TestFanoutIgnoresUntaggedMedia(t *testing.T) {
	store, notifier, cancel := startFanout(t)
	defer cancel()
	ctx := context.Background()

	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:          "r1",
		UploadTime:  time.Now().UTC(),
		OriginalURL: "https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
	}))

	time.Sleep(150 * time.Millisecond)
	_, _, pubs := notifier.counts()
	require.Equal(t, 0, pubs)
}

func TestFanoutIgnoresTagUpdates(t *testing.T) {
	store, notifier, cancel := startFanout(t)
	defer cancel()
	ctx := context.Background()

	require.NoError(t, store.PutMedia(ctx, &model.MediaRecord{
		ID:          "r1",
		UploadTime:  time.Now().UTC(),
		OriginalURL: "https://b.s3.amazonaws.com/raw_uploads/r1.jpg",
		Tags:        model.TagCounts{"crow": 1},
	}))
	require.Eventually(t, func() bool {
		_, _, pubs := notifier.counts()
		return pubs == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A MODIFY event must not publish again.
	require.NoError(t, store.UpdateMediaTags(ctx, "r1", model.TagCounts{"crow": 5}))
	time.Sleep(150 * time.Millisecond)
	_, _, pubs := notifier.counts()
	require.Equal(t, 1, pubs)
}
