package media

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/query"
)

func searchGET(c *gin.Context, engine *query.Engine) {
	req, err := query.ParseSearchGET(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	runSearch(c, engine, req)
}

func searchPOST(c *gin.Context, engine *query.Engine) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	req, err := query.ParseSearchPOST(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	runSearch(c, engine, req)
}

func runSearch(c *gin.Context, engine *query.Engine, req query.Request) {
	ctx := c.Request.Context()
	switch req.Mode {
	case query.ModeByID:
		summary, err := engine.ByID(ctx, req.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)

	case query.ModeByThumbnail:
		originalURL, err := engine.ByThumbnail(ctx, req.ThumbnailURL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"originalURL": originalURL})

	case query.ModeByTagCounts:
		links, err := engine.ByTagCounts(ctx, req.TagCounts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links})

	case query.ModeByTagNames:
		links, err := engine.ByTagNames(ctx, req.TagNames)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": query.ErrNoSearchParams.Error()})
	}
}
