package media

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/query"
	"github.com/wildtrack/mediatag-service/internal/tagging"
)

// modifyTags merges tag deltas into the records addressed by thumbnail URL.
// The operation flag is an integer on the wire: 1 adds, 0 subtracts.
func modifyTags(c *gin.Context, engine *query.Engine, updater *tagging.Updater) {
	var req struct {
		URLs      []string `json:"url"`
		Operation *int     `json:"operation"`
		Tags      []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.URLs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `invalid or missing "url" list`})
		return
	}
	if req.Operation == nil || (*req.Operation != 0 && *req.Operation != 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": `invalid or missing "operation", must be 0 or 1`})
		return
	}
	if req.Tags == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `invalid or missing "tags" list`})
		return
	}

	deltas := model.ParseTagDeltas(req.Tags)
	if len(deltas) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid tags to add/remove"})
		return
	}

	op := model.MergeSubtract
	if *req.Operation == 1 {
		op = model.MergeAdd
	}
	updated, err := updater.Apply(c.Request.Context(), req.URLs, deltas, op)
	if err != nil {
		respondError(c, err)
		return
	}

	links := make([]string, 0, len(updated))
	for _, url := range updated {
		links = append(links, engine.ResolveLink(c.Request.Context(), url))
	}
	c.JSON(http.StatusOK, gin.H{"updated": links})
}
