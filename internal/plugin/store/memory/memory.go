package memory

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name:   "memory",
		Loader: load,
	})
}

func load(ctx context.Context) (registrystore.Store, error) {
	return New(), nil
}

// Store is an in-process backend with an in-process change feed. It backs
// local development and the test suite; scans return records in insertion
// order, which makes first-match semantics deterministic.
type Store struct {
	mu sync.Mutex

	media      map[string]*model.MediaRecord
	mediaOrder []string
	users      map[string]*model.UserSubscription

	mediaSubs []chan registrystore.MediaEvent
	userSubs  []chan registrystore.UserEvent
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		media: map[string]*model.MediaRecord{},
		users: map[string]*model.UserSubscription{},
	}
}

func (s *Store) GetMedia(ctx context.Context, id string) (*model.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.media[id]
	if !ok {
		return nil, &registrystore.NotFoundError{Resource: "media record", ID: id}
	}
	return cloneMedia(rec), nil
}

func (s *Store) ScanMedia(ctx context.Context) ([]model.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MediaRecord, 0, len(s.mediaOrder))
	for _, id := range s.mediaOrder {
		out = append(out, *cloneMedia(s.media[id]))
	}
	return out, nil
}

func (s *Store) PutMedia(ctx context.Context, rec *model.MediaRecord) error {
	if rec == nil || rec.ID == "" {
		return &registrystore.ValidationError{Field: "uniqueId", Message: "required"}
	}
	s.mu.Lock()
	old, existed := s.media[rec.ID]
	stored := cloneMedia(rec)
	s.media[rec.ID] = stored
	if !existed {
		s.mediaOrder = append(s.mediaOrder, rec.ID)
	}
	s.mu.Unlock()

	if existed {
		s.emitMedia(registrystore.MediaEvent{Type: registrystore.EventModify, New: cloneMedia(stored), Old: old})
	} else {
		s.emitMedia(registrystore.MediaEvent{Type: registrystore.EventInsert, New: cloneMedia(stored)})
	}
	return nil
}

func (s *Store) UpdateMediaTags(ctx context.Context, id string, tags model.TagCounts) error {
	s.mu.Lock()
	rec, ok := s.media[id]
	if !ok {
		s.mu.Unlock()
		return &registrystore.NotFoundError{Resource: "media record", ID: id}
	}
	old := cloneMedia(rec)
	rec.Tags = tags.Clone()
	updated := cloneMedia(rec)
	s.mu.Unlock()

	s.emitMedia(registrystore.MediaEvent{Type: registrystore.EventModify, New: updated, Old: old})
	return nil
}

func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	s.mu.Lock()
	rec, ok := s.media[id]
	if !ok {
		s.mu.Unlock()
		return &registrystore.NotFoundError{Resource: "media record", ID: id}
	}
	delete(s.media, id)
	for i, o := range s.mediaOrder {
		if o == id {
			s.mediaOrder = append(s.mediaOrder[:i], s.mediaOrder[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.emitMedia(registrystore.MediaEvent{Type: registrystore.EventRemove, Old: rec})
	return nil
}

func (s *Store) GetUser(ctx context.Context, email string) (*model.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: email}
	}
	return cloneUser(user), nil
}

func (s *Store) PutUser(ctx context.Context, user *model.UserSubscription) error {
	if user == nil || user.Email == "" {
		return &registrystore.ValidationError{Field: "email", Message: "required"}
	}
	s.mu.Lock()
	old, existed := s.users[user.Email]
	stored := cloneUser(user)
	s.users[user.Email] = stored
	s.mu.Unlock()

	if existed {
		s.emitUser(registrystore.UserEvent{Type: registrystore.EventModify, New: cloneUser(stored), Old: old})
	} else {
		s.emitUser(registrystore.UserEvent{Type: registrystore.EventInsert, New: cloneUser(stored)})
	}
	return nil
}

func (s *Store) UpdateInterestTags(ctx context.Context, email string, tags []string) error {
	return s.mutateUser(email, func(u *model.UserSubscription) {
		u.InterestTags = append([]string(nil), tags...)
	})
}

func (s *Store) SetSubscriptionHandle(ctx context.Context, email, handle string) error {
	return s.mutateUser(email, func(u *model.UserSubscription) {
		u.SubscriptionHandle = handle
	})
}

func (s *Store) ClearSubscriptionHandle(ctx context.Context, email string) error {
	return s.mutateUser(email, func(u *model.UserSubscription) {
		u.SubscriptionHandle = ""
	})
}

func (s *Store) DeleteUser(ctx context.Context, email string) error {
	s.mu.Lock()
	user, ok := s.users[email]
	if !ok {
		s.mu.Unlock()
		return &registrystore.NotFoundError{Resource: "user", ID: email}
	}
	delete(s.users, email)
	s.mu.Unlock()

	s.emitUser(registrystore.UserEvent{Type: registrystore.EventRemove, Old: user})
	return nil
}

func (s *Store) mutateUser(email string, mutate func(*model.UserSubscription)) error {
	s.mu.Lock()
	user, ok := s.users[email]
	if !ok {
		s.mu.Unlock()
		return &registrystore.NotFoundError{Resource: "user", ID: email}
	}
	old := cloneUser(user)
	mutate(user)
	updated := cloneUser(user)
	s.mu.Unlock()

	s.emitUser(registrystore.UserEvent{Type: registrystore.EventModify, New: updated, Old: old})
	return nil
}

// MediaEvents implements registrystore.ChangeFeed.
func (s *Store) MediaEvents(ctx context.Context) (<-chan registrystore.MediaEvent, error) {
	ch := make(chan registrystore.MediaEvent, 128)
	s.mu.Lock()
	s.mediaSubs = append(s.mediaSubs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.mediaSubs {
			if sub == ch {
				s.mediaSubs = append(s.mediaSubs[:i], s.mediaSubs[i+1:]...)
				break
			}
		}
		// Closed under the lock so emitMedia can never send afterwards.
		close(ch)
	}()
	return ch, nil
}

// UserEvents implements registrystore.ChangeFeed.
func (s *Store) UserEvents(ctx context.Context) (<-chan registrystore.UserEvent, error) {
	ch := make(chan registrystore.UserEvent, 128)
	s.mu.Lock()
	s.userSubs = append(s.userSubs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.userSubs {
			if sub == ch {
				s.userSubs = append(s.userSubs[:i], s.userSubs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (s *Store) emitMedia(ev registrystore.MediaEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.mediaSubs {
		select {
		case ch <- ev:
		default:
			log.Warn("Memory store: media event dropped, consumer lagging", "type", ev.Type)
		}
	}
}

func (s *Store) emitUser(ev registrystore.UserEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.userSubs {
		select {
		case ch <- ev:
		default:
			log.Warn("Memory store: user event dropped, consumer lagging", "type", ev.Type)
		}
	}
}

func cloneMedia(rec *model.MediaRecord) *model.MediaRecord {
	out := *rec
	out.Tags = rec.Tags.Clone()
	if rec.Duration != nil {
		d := *rec.Duration
		out.Duration = &d
	}
	return &out
}

func cloneUser(user *model.UserSubscription) *model.UserSubscription {
	out := *user
	out.InterestTags = append([]string(nil), user.InterestTags...)
	return &out
}
