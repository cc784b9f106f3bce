// Package passthrough is an object store for local development: stored URLs
// are returned as-is and writes only pretend to land anywhere.
package passthrough

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
)

func init() {
	registryobjectstore.Register(registryobjectstore.Plugin{
		Name: "passthrough",
		Loader: func(ctx context.Context) (registryobjectstore.ObjectStore, error) {
			return &ObjectStore{}, nil
		},
	})
}

type ObjectStore struct{}

func (o *ObjectStore) SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error) {
	return storedURL, nil
}

func (o *ObjectStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	n, err := io.Copy(io.Discard, data)
	if err != nil {
		return "", fmt.Errorf("passthrough: drain upload: %w", err)
	}
	log.Debug("Passthrough object store discarded upload", "key", key, "bytes", n)
	return "passthrough://" + key, nil
}

func (o *ObjectStore) Delete(ctx context.Context, storedURL string) error {
	log.Debug("Passthrough object store ignoring delete", "url", storedURL)
	return nil
}
