package store

import "github.com/wildtrack/mediatag-service/internal/model"

// EventType classifies a change-feed mutation.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventModify EventType = "MODIFY"
	EventRemove EventType = "REMOVE"
)

// MediaEvent is a mutation of a media record. New is nil for removals,
// Old is nil for inserts.
type MediaEvent struct {
	Type EventType
	New  *model.MediaRecord
	Old  *model.MediaRecord
}

// UserEvent is a mutation of a user subscription record.
type UserEvent struct {
	Type EventType
	New  *model.UserSubscription
	Old  *model.UserSubscription
}

// Email returns the subject email regardless of event type.
func (e UserEvent) Email() string {
	if e.New != nil {
		return e.New.Email
	}
	if e.Old != nil {
		return e.Old.Email
	}
	return ""
}

// Handle returns the last stored subscription handle visible on the event.
func (e UserEvent) Handle() string {
	if e.New != nil && e.New.SubscriptionHandle != "" {
		return e.New.SubscriptionHandle
	}
	if e.Old != nil {
		return e.Old.SubscriptionHandle
	}
	return ""
}
