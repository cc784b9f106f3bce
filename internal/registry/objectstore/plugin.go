package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ObjectStore is the storage-object collaborator behind the URL fields of a
// media record. Objects are addressed by the stored location URL
// (e.g. https://bucket.s3.region.amazonaws.com/key).
type ObjectStore interface {
	// SignURL exchanges a stored location URL for a time-limited read URL.
	SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error)
	// Put writes an object and returns its stored location URL.
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object a stored location URL points at.
	Delete(ctx context.Context, storedURL string) error
}

// Loader creates an ObjectStore from config.
type Loader func(ctx context.Context) (ObjectStore, error)

// Plugin represents an object store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an object store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered object store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named object store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown object store %q; valid: %v", name, Names())
}
