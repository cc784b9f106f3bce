// Package alerts mounts the alert-subscription route. Posting interest tags
// upserts the user record; the subscription reconciler picks up the change
// event and syncs the topic subscription.
package alerts

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

// MountRoutes mounts the alert routes at the root path.
func MountRoutes(r *gin.Engine, store registrystore.UserStore) {
	r.POST("/sns-alert", func(c *gin.Context) { updateAlertTags(c, store) })
}

// updateAlertTags merges the posted tags into the user's interest set. The
// merge is a set union: tags are never removed here, only added.
func updateAlertTags(c *gin.Context, store registrystore.UserStore) {
	var req struct {
		Email  string   `json:"email"`
		Values []string `json:"values"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON in request body."})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or missing 'email' field."})
		return
	}
	if len(req.Values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or missing 'values' field. It must be a list."})
		return
	}

	ctx := c.Request.Context()
	user, err := store.GetUser(ctx, req.Email)
	var notFound *registrystore.NotFoundError
	switch {
	case errors.As(err, &notFound):
		merged := mergeTags(nil, req.Values)
		err = store.PutUser(ctx, &model.UserSubscription{Email: req.Email, InterestTags: merged})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update tags."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Tags updated successfully.", "tags": merged})

	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update tags."})

	default:
		merged := mergeTags(user.InterestTags, req.Values)
		if err := store.UpdateInterestTags(ctx, req.Email, merged); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update tags."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Tags updated successfully.", "tags": merged})
	}
}

func mergeTags(existing, incoming []string) []string {
	set := map[string]bool{}
	for _, tag := range existing {
		set[tag] = true
	}
	for _, tag := range incoming {
		set[tag] = true
	}
	merged := make([]string, 0, len(set))
	for tag := range set {
		merged = append(merged, tag)
	}
	sort.Strings(merged)
	return merged
}
