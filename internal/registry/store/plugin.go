package store

import (
	"context"
	"fmt"

	"github.com/wildtrack/mediatag-service/internal/model"
)

// MediaStore is the record-store adapter for tagged media. Scan is a full
// table read: no secondary indexing is assumed, implementations paginate
// internally when the backend limits page size. Transient backend failures
// surface as BackendError; retry policy belongs to callers.
type MediaStore interface {
	GetMedia(ctx context.Context, id string) (*model.MediaRecord, error)
	ScanMedia(ctx context.Context) ([]model.MediaRecord, error)
	// PutMedia upserts the whole record.
	PutMedia(ctx context.Context, rec *model.MediaRecord) error
	// UpdateMediaTags replaces only the tags attribute of an existing record.
	UpdateMediaTags(ctx context.Context, id string, tags model.TagCounts) error
	DeleteMedia(ctx context.Context, id string) error
}

// UserStore holds per-user tag subscriptions keyed by email.
type UserStore interface {
	GetUser(ctx context.Context, email string) (*model.UserSubscription, error)
	PutUser(ctx context.Context, user *model.UserSubscription) error
	// UpdateInterestTags replaces only the interest-tag list.
	UpdateInterestTags(ctx context.Context, email string, tags []string) error
	// SetSubscriptionHandle and ClearSubscriptionHandle touch only the
	// derived subscription handle attribute. Only the reconciler calls them.
	SetSubscriptionHandle(ctx context.Context, email, handle string) error
	ClearSubscriptionHandle(ctx context.Context, email string) error
	DeleteUser(ctx context.Context, email string) error
}

// Store is the combined backend surface selected by --db-kind.
type Store interface {
	MediaStore
	UserStore
}

// ChangeFeed is implemented by stores that can stream record mutations.
// The serve command starts the reconciler and fan-out services only when the
// selected store provides one.
type ChangeFeed interface {
	// MediaEvents and UserEvents return channels closed when ctx is done.
	MediaEvents(ctx context.Context) (<-chan MediaEvent, error)
	UserEvents(ctx context.Context) (<-chan UserEvent, error)
}

// Loader creates a Store from the config carried in ctx.
type Loader func(ctx context.Context) (Store, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
