package notify

import (
	"context"
	"fmt"
)

// Message is a single fan-out notification. Tag is the lowercase message
// attribute used by subscription filter policies.
type Message struct {
	Tag     string
	Subject string
	Body    string
}

// Notifier is the pub/sub collaborator: per-tag publishing plus filtered
// per-user subscriptions against a single topic.
type Notifier interface {
	// Publish sends one message to the topic.
	Publish(ctx context.Context, msg Message) error
	// Subscribe creates a subscription for endpoint restricted to the given
	// lowercase tags and returns its opaque handle.
	Subscribe(ctx context.Context, endpoint string, tags []string) (string, error)
	// Unsubscribe destroys the subscription behind handle.
	Unsubscribe(ctx context.Context, handle string) error
}

// Loader creates a Notifier from config.
type Loader func(ctx context.Context) (Notifier, error)

// Plugin represents a notifier plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a notifier plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered notifier plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named notifier plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown notifier %q; valid: %v", name, Names())
}
