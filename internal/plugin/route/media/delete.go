package media

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

// deleteFiles hard-deletes every record referencing any of the given URLs,
// then removes each record's storage objects. A URL may match several
// records; each input URL appears in the deleted set at most once. Object
// deletion is best-effort: a record whose row is gone but whose objects
// linger is preferable to the reverse.
func deleteFiles(c *gin.Context, store registrystore.MediaStore, objects registryobjectstore.ObjectStore) {
	var body struct {
		URLs         any `json:"urls"`
		ThumbnailURL any `json:"thumbnailURL"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	raw := body.URLs
	if raw == nil {
		raw = body.ThumbnailURL
	}
	urls, ok := normalizeURLList(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": `invalid or missing "urls" or "thumbnailURL"`})
		return
	}

	ctx := c.Request.Context()
	records, err := store.ScanMedia(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	deleted := []string{}
	seen := map[string]bool{}
	removed := map[string]bool{}
	for _, url := range urls {
		if strings.TrimSpace(url) == "" {
			continue
		}
		for i := range records {
			rec := &records[i]
			if removed[rec.ID] || !rec.ReferencesURL(url) {
				continue
			}
			if err := store.DeleteMedia(ctx, rec.ID); err != nil {
				log.Error("Delete record failed", "id", rec.ID, "url", url, "error", err)
				continue
			}
			removed[rec.ID] = true
			if !seen[url] {
				seen[url] = true
				deleted = append(deleted, url)
			}
			for _, stored := range rec.URLs() {
				if stored == "" {
					continue
				}
				if err := objects.Delete(ctx, stored); err != nil {
					log.Warn("Delete storage object failed", "url", stored, "error", err)
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deletion completed", "deleted": deleted})
}

// normalizeURLList accepts a single URL string or a list of them.
func normalizeURLList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case string:
		return []string{v}, true
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			urls = append(urls, s)
		}
		return urls, true
	default:
		return nil, false
	}
}
