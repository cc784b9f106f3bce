// Package ingest mounts the media ingestion route: decode the upload, run
// the detector, store the object, and write the media record. The record
// insert surfaces on the change feed, which is what triggers notification
// fan-out.
package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

// MountRoutes mounts the ingest route at the root path.
func MountRoutes(r *gin.Engine, store registrystore.MediaStore, objects registryobjectstore.ObjectStore, detector registrydetect.Detector) {
	r.POST("/ingest", func(c *gin.Context) { ingestMedia(c, store, objects, detector) })
}

type ingestRequest struct {
	File         string `json:"file"`
	Filename     string `json:"filename"`
	MediaType    string `json:"mediaType"`
	OriginalURL  string `json:"originalURL"`
	AnnotatedURL string `json:"annotatedURL"`
	ThumbnailURL string `json:"thumbnailURL"`
}

func ingestMedia(c *gin.Context, store registrystore.MediaStore, objects registryobjectstore.ObjectStore, detector registrydetect.Detector) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.File == "" || req.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `"file" and "filename" are required`})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `invalid base64 in "file"`})
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(req.Filename), "."))
	kind := model.MediaKind(req.MediaType)
	if kind == "" {
		kind = model.MediaKindForExtension(ext)
	}
	if kind == "" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	ctx := c.Request.Context()
	tags, err := detector.DetectTags(ctx, data, kind)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "tag detection failed"})
		return
	}

	originalURL := req.OriginalURL
	if originalURL == "" {
		key := uuid.New().String()
		if ext != "" {
			key += "." + ext
		}
		originalURL, err = objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeFor(ext))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storing upload failed"})
			return
		}
	}

	uploadTime := time.Now().UTC()
	rec := &model.MediaRecord{
		ID:           uploadTime.Format(time.RFC3339Nano),
		UploadTime:   uploadTime,
		MediaID:      req.Filename,
		MediaType:    kind,
		Format:       ext,
		FileSize:     int64(len(data)),
		OriginalURL:  originalURL,
		AnnotatedURL: req.AnnotatedURL,
		ThumbnailURL: req.ThumbnailURL,
		Tags:         tags,
		Detected:     len(tags) > 0,
	}
	if err := store.PutMedia(ctx, rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storing record failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": rec.ID, "tags": rec.Tags})
}

func contentTypeFor(ext string) string {
	if ext == "" {
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
