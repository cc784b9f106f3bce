package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/query"
	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
	"github.com/wildtrack/mediatag-service/internal/security"
)

const fanoutSubject = "Wildlife Alert: New Sighting"

// NotificationFanout publishes one message per distinct tag name whenever a
// tagged media record is inserted. Subscribers receive only the tags their
// filter policy names, so every tag gets its own message. Publishing is best
// effort per tag: one failed tag does not stop the others.
type NotificationFanout struct {
	feed     registrystore.ChangeFeed
	notifier registrynotify.Notifier
	engine   *query.Engine
}

func NewNotificationFanout(feed registrystore.ChangeFeed, notifier registrynotify.Notifier, engine *query.Engine) *NotificationFanout {
	return &NotificationFanout{feed: feed, notifier: notifier, engine: engine}
}

// Start consumes media events until ctx is cancelled or the feed closes.
func (f *NotificationFanout) Start(ctx context.Context) error {
	events, err := f.feed.MediaEvents(ctx)
	if err != nil {
		return err
	}
	log.Info("Notification fan-out started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.handle(ctx, ev)
		}
	}
}

func (f *NotificationFanout) handle(ctx context.Context, ev registrystore.MediaEvent) {
	if ev.Type != registrystore.EventInsert || ev.New == nil {
		return
	}
	rec := ev.New
	if len(rec.Tags) == 0 {
		log.Debug("No tags on new media, skipping fan-out", "id", rec.ID)
		return
	}

	annotated := f.engine.ResolveLink(ctx, rec.AnnotatedURL)
	original := f.engine.ResolveLink(ctx, rec.OriginalURL)

	for _, tag := range rec.Tags.Names() {
		msg := registrynotify.Message{
			Tag:     tag,
			Subject: fanoutSubject,
			Body:    fanoutBody(tag, rec.ID, rec.UploadTime, annotated, original),
		}
		if err := f.notifier.Publish(ctx, msg); err != nil {
			log.Error("Fan-out publish failed", "tag", tag, "id", rec.ID, "error", err)
			countPublished("error")
			continue
		}
		countPublished("ok")
	}
}

// countPublished is a no-op until InitMetrics has run.
func countPublished(outcome string) {
	if security.NotificationsPublished == nil {
		return
	}
	security.NotificationsPublished.WithLabelValues(outcome).Inc()
}

func fanoutBody(tag, id string, uploadTime time.Time, annotatedURL, originalURL string) string {
	var b strings.Builder
	b.WriteString("A new sighting has been detected!\n\n")
	fmt.Fprintf(&b, "Species: %s\n", tag)
	fmt.Fprintf(&b, "Media ID: %s\n", id)
	fmt.Fprintf(&b, "Time: %s\n", uploadTime.Format(time.RFC3339))
	if annotatedURL != "" {
		fmt.Fprintf(&b, "\nView Annotated Media: %s", annotatedURL)
	}
	if originalURL != "" {
		fmt.Fprintf(&b, "\nView Original Media: %s", originalURL)
	}
	b.WriteString("\n\nThank you for using the WildTrack alert service.")
	return b.String()
}
