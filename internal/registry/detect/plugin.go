package detect

import (
	"context"
	"fmt"

	"github.com/wildtrack/mediatag-service/internal/model"
)

// Detector is the external detection-model collaborator. It maps raw media
// bytes to detected tag counts; the inference runtime itself is out of
// process and out of scope.
type Detector interface {
	// DetectTags returns the tag counts detected in the media payload.
	DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error)
	// Name returns the detector identifier for logging.
	Name() string
}

// Loader creates a Detector from config.
type Loader func(ctx context.Context) (Detector, error)

// Plugin represents a detector plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a detector plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered detector plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named detector plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown detector %q; valid: %v", name, Names())
}
