package service

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

// SubscriptionReconciler keeps each user's topic subscription in sync with
// their interest tags. It consumes the user change feed: inserts with
// interest tags subscribe, interest changes resubscribe under the new filter
// policy, removals unsubscribe. Events that need no change (same tag set,
// order and case ignored) are skipped so the subscription is not churned.
type SubscriptionReconciler struct {
	feed     registrystore.ChangeFeed
	store    registrystore.UserStore
	notifier registrynotify.Notifier
}

func NewSubscriptionReconciler(feed registrystore.ChangeFeed, store registrystore.UserStore, notifier registrynotify.Notifier) *SubscriptionReconciler {
	return &SubscriptionReconciler{feed: feed, store: store, notifier: notifier}
}

// Start consumes user events until ctx is cancelled or the feed closes.
func (r *SubscriptionReconciler) Start(ctx context.Context) error {
	events, err := r.feed.UserEvents(ctx)
	if err != nil {
		return err
	}
	log.Info("Subscription reconciler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *SubscriptionReconciler) handle(ctx context.Context, ev registrystore.UserEvent) {
	switch ev.Type {
	case registrystore.EventInsert:
		if ev.New == nil || len(ev.New.InterestTags) == 0 {
			return
		}
		r.subscribe(ctx, ev.New)

	case registrystore.EventModify:
		if ev.New == nil {
			return
		}
		if ev.Old != nil && model.SameInterests(ev.Old.InterestTags, ev.New.InterestTags) {
			log.Debug("Interest tags unchanged, leaving subscription alone", "email", ev.Email())
			return
		}
		// A failed unsubscribe keeps the stored handle so the next interest
		// change retries against it instead of leaking the subscription.
		if handle := ev.Handle(); handle != "" {
			if !r.unsubscribe(ctx, ev.Email(), handle) {
				return
			}
		}
		if len(ev.New.InterestTags) > 0 {
			r.subscribe(ctx, ev.New)
		} else if ev.Handle() != "" {
			if err := r.store.ClearSubscriptionHandle(ctx, ev.Email()); err != nil {
				log.Error("Reconciler: clear subscription handle failed", "email", ev.Email(), "error", err)
			}
		}

	case registrystore.EventRemove:
		if handle := ev.Handle(); handle != "" {
			r.unsubscribe(ctx, ev.Email(), handle)
		}
	}
}

// subscribe creates the subscription and writes the handle back to the user
// record. On failure the stored handle is left as it was; the next interest
// change retries from that state.
func (r *SubscriptionReconciler) subscribe(ctx context.Context, user *model.UserSubscription) {
	handle, err := r.notifier.Subscribe(ctx, user.Email, user.InterestTags)
	if err != nil {
		log.Error("Reconciler: subscribe failed", "email", user.Email, "error", err)
		return
	}
	log.Info("Subscribed user", "email", user.Email, "tags", user.InterestTags, "handle", handle)
	if err := r.store.SetSubscriptionHandle(ctx, user.Email, handle); err != nil {
		log.Error("Reconciler: store subscription handle failed", "email", user.Email, "error", err)
	}
}

func (r *SubscriptionReconciler) unsubscribe(ctx context.Context, email, handle string) bool {
	if err := r.notifier.Unsubscribe(ctx, handle); err != nil {
		log.Error("Reconciler: unsubscribe failed", "email", email, "handle", handle, "error", err)
		return false
	}
	log.Info("Unsubscribed user", "email", email, "handle", handle)
	return true
}
