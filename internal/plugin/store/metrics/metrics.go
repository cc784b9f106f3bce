package metrics

import (
	"context"
	"time"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/registry/store"
	"github.com/wildtrack/mediatag-service/internal/security"
)

// Wrap returns a Store that records StoreLatency for every operation.
func Wrap(inner store.Store) store.Store {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.Store
}

// observe is a no-op until InitMetrics has run.
func observe(op string, start time.Time) {
	if security.StoreLatency == nil {
		return
	}
	security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) GetMedia(ctx context.Context, id string) (*model.MediaRecord, error) {
	defer observe("get_media", time.Now())
	return m.inner.GetMedia(ctx, id)
}

func (m *metricsStore) ScanMedia(ctx context.Context) ([]model.MediaRecord, error) {
	defer observe("scan_media", time.Now())
	records, err := m.inner.ScanMedia(ctx)
	if err == nil && security.RecordsScanned != nil {
		security.RecordsScanned.Observe(float64(len(records)))
	}
	return records, err
}

func (m *metricsStore) PutMedia(ctx context.Context, rec *model.MediaRecord) error {
	defer observe("put_media", time.Now())
	return m.inner.PutMedia(ctx, rec)
}

func (m *metricsStore) UpdateMediaTags(ctx context.Context, id string, tags model.TagCounts) error {
	defer observe("update_media_tags", time.Now())
	return m.inner.UpdateMediaTags(ctx, id, tags)
}

func (m *metricsStore) DeleteMedia(ctx context.Context, id string) error {
	defer observe("delete_media", time.Now())
	return m.inner.DeleteMedia(ctx, id)
}

func (m *metricsStore) GetUser(ctx context.Context, email string) (*model.UserSubscription, error) {
	defer observe("get_user", time.Now())
	return m.inner.GetUser(ctx, email)
}

func (m *metricsStore) PutUser(ctx context.Context, sub *model.UserSubscription) error {
	defer observe("put_user", time.Now())
	return m.inner.PutUser(ctx, sub)
}

func (m *metricsStore) UpdateInterestTags(ctx context.Context, email string, tags []string) error {
	defer observe("update_interest_tags", time.Now())
	return m.inner.UpdateInterestTags(ctx, email, tags)
}

func (m *metricsStore) SetSubscriptionHandle(ctx context.Context, email, handle string) error {
	defer observe("set_subscription_handle", time.Now())
	return m.inner.SetSubscriptionHandle(ctx, email, handle)
}

func (m *metricsStore) ClearSubscriptionHandle(ctx context.Context, email string) error {
	defer observe("clear_subscription_handle", time.Now())
	return m.inner.ClearSubscriptionHandle(ctx, email)
}

func (m *metricsStore) DeleteUser(ctx context.Context, email string) error {
	defer observe("delete_user", time.Now())
	return m.inner.DeleteUser(ctx, email)
}
