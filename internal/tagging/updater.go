// Package tagging applies batch tag updates to media records.
package tagging

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

type Updater struct {
	store registrystore.MediaStore
}

func NewUpdater(store registrystore.MediaStore) *Updater {
	return &Updater{store: store}
}

// Apply merges the tag deltas into every record addressed by the given
// thumbnail URLs and returns the URLs that matched a record. A URL matches
// the first record whose thumbnailURL equals it exactly; unmatched URLs are
// skipped rather than failing the batch, and a failed write drops only that
// URL from the result.
//
// The read-merge-write is not guarded by a condition on the previous tag
// set: concurrent updates to the same record are last-write-wins.
func (u *Updater) Apply(ctx context.Context, urls []string, deltas model.TagCounts, op model.MergeOp) ([]string, error) {
	records, err := u.store.ScanMedia(ctx)
	if err != nil {
		return nil, err
	}

	updated := []string{}
	for _, url := range urls {
		rec := firstByThumbnail(records, url)
		if rec == nil {
			continue
		}
		tags := rec.Tags.Clone()
		if tags == nil {
			tags = model.TagCounts{}
		}
		tags.Merge(deltas, op)
		if err := u.store.UpdateMediaTags(ctx, rec.ID, tags); err != nil {
			log.Error("Tag update failed", "id", rec.ID, "url", url, "error", err)
			continue
		}
		rec.Tags = tags
		updated = append(updated, url)
	}
	return updated, nil
}

func firstByThumbnail(records []model.MediaRecord, url string) *model.MediaRecord {
	for i := range records {
		if records[i].ThumbnailURL == url {
			return &records[i]
		}
	}
	return nil
}
