package media

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/model"
	"github.com/wildtrack/mediatag-service/internal/query"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
)

// queryByFile runs the detector over an uploaded file and returns links for
// every record tagged with all the detected tag names. Detected names are
// matched as exact tag keys: records and query are both tagged by the same
// detector, so the names line up without fuzzy matching.
func queryByFile(c *gin.Context, engine *query.Engine, detector registrydetect.Detector) {
	var req struct {
		File      string `json:"file"`
		MediaType string `json:"mediaType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.File == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `missing or invalid "file" field`})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `missing or invalid "file" field`})
		return
	}

	kind := model.MediaKind(req.MediaType)
	if kind == "" {
		kind = model.MediaKindImage
	}
	detected, err := detector.DetectTags(c.Request.Context(), data, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(detected) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no tags detected in file"})
		return
	}

	links, err := engine.ByExactTags(c.Request.Context(), detected.Names())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}
