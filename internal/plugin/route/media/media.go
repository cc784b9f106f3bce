// Package media mounts the media record routes: search, tag updates,
// detector-seeded lookups, and deletion.
package media

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/query"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
	"github.com/wildtrack/mediatag-service/internal/tagging"
)

// MountRoutes mounts the media routes at the root path.
func MountRoutes(r *gin.Engine, store registrystore.MediaStore, engine *query.Engine, updater *tagging.Updater, objects registryobjectstore.ObjectStore, detector registrydetect.Detector) {
	r.GET("/search", func(c *gin.Context) { searchGET(c, engine) })
	r.POST("/search", func(c *gin.Context) { searchPOST(c, engine) })
	r.POST("/modify-tags", func(c *gin.Context) { modifyTags(c, engine, updater) })
	r.POST("/query-by-file", func(c *gin.Context) { queryByFile(c, engine, detector) })
	r.POST("/delete-files", func(c *gin.Context) { deleteFiles(c, store, objects) })
}

// respondError maps store errors onto HTTP statuses: unknown ids and misses
// are 404, bad input is 400, everything else is a 500.
func respondError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
