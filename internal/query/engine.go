// Package query runs searches against the media store. All tag searches scan
// the full table and filter in memory; the matching rules (case-insensitive
// substring sums against thresholds) are not pushable into the store.
package query

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/model"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

type Engine struct {
	store   registrystore.MediaStore
	objects registryobjectstore.ObjectStore
	expiry  time.Duration
}

func New(store registrystore.MediaStore, objects registryobjectstore.ObjectStore, presignExpiry time.Duration) *Engine {
	return &Engine{store: store, objects: objects, expiry: presignExpiry}
}

// ResolveLink exchanges a stored location URL for a signed link. When signing
// fails the stored URL is returned as-is so results degrade to unsigned links
// rather than disappearing.
func (e *Engine) ResolveLink(ctx context.Context, storedURL string) string {
	if storedURL == "" {
		return ""
	}
	signed, err := e.objects.SignURL(ctx, storedURL, e.expiry)
	if err != nil {
		log.Warn("Falling back to stored URL", "url", storedURL, "error", err)
		return storedURL
	}
	return signed
}

// Links returns the record's resolved URLs in thumbnail, original, annotated
// order, skipping empty fields.
func (e *Engine) Links(ctx context.Context, rec *model.MediaRecord) []string {
	var links []string
	for _, stored := range rec.URLs() {
		if stored != "" {
			links = append(links, e.ResolveLink(ctx, stored))
		}
	}
	return links
}

// MediaSummary is the by-id search result: the signed thumbnail link plus the
// record's full tag multiset.
type MediaSummary struct {
	ThumbnailURL string          `json:"thumbnailURL"`
	Tags         model.TagCounts `json:"tags"`
}

func (e *Engine) ByID(ctx context.Context, id string) (*MediaSummary, error) {
	rec, err := e.store.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MediaSummary{
		ThumbnailURL: e.ResolveLink(ctx, rec.ThumbnailURL),
		Tags:         rec.Tags,
	}, nil
}

// ByThumbnail finds the record whose thumbnail URL matches exactly and
// returns a signed link to its original.
func (e *Engine) ByThumbnail(ctx context.Context, thumbnailURL string) (string, error) {
	records, err := e.store.ScanMedia(ctx)
	if err != nil {
		return "", err
	}
	for i := range records {
		if records[i].ThumbnailURL != thumbnailURL {
			continue
		}
		if records[i].OriginalURL == "" {
			return "", &registrystore.NotFoundError{Resource: "originalURL", ID: thumbnailURL}
		}
		return e.ResolveLink(ctx, records[i].OriginalURL), nil
	}
	return "", &registrystore.NotFoundError{Resource: "thumbnail", ID: thumbnailURL}
}

// ByTagCounts returns links for every record whose tags satisfy all the
// requested thresholds.
func (e *Engine) ByTagCounts(ctx context.Context, counts model.TagCounts) ([]string, error) {
	records, err := e.store.ScanMedia(ctx)
	if err != nil {
		return nil, err
	}
	links := []string{}
	for i := range records {
		if records[i].Tags.MatchesAll(counts) {
			links = append(links, e.Links(ctx, &records[i])...)
		}
	}
	return links, nil
}

// ByTagNames returns links for every record with at least one tag matching
// any of the requested names.
func (e *Engine) ByTagNames(ctx context.Context, names []string) ([]string, error) {
	records, err := e.store.ScanMedia(ctx)
	if err != nil {
		return nil, err
	}
	links := []string{}
	for i := range records {
		if records[i].Tags.MatchesAny(names) {
			links = append(links, e.Links(ctx, &records[i])...)
		}
	}
	return links, nil
}

// ByExactTags returns links for every record whose tag set contains all the
// given names as exact keys. Used for find-similar searches seeded by a
// detector run, where the names come from the same detector that wrote the
// stored tags.
func (e *Engine) ByExactTags(ctx context.Context, names []string) ([]string, error) {
	records, err := e.store.ScanMedia(ctx)
	if err != nil {
		return nil, err
	}
	links := []string{}
	for i := range records {
		if records[i].Tags.ContainsAllNames(names) {
			links = append(links, e.Links(ctx, &records[i])...)
		}
	}
	return links, nil
}
