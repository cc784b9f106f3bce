package model

import (
	"strings"
	"time"
)

// MediaKind is the coarse media category of an uploaded file.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// MediaKindForExtension maps a file extension to its media kind.
// Returns "" for unsupported extensions.
func MediaKindForExtension(ext string) MediaKind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg", "png":
		return MediaKindImage
	case "mp4", "avi", "mov":
		return MediaKindVideo
	case "wav", "mp3", "flac", "ogg":
		return MediaKindAudio
	default:
		return ""
	}
}

// MediaRecord is a tagged media file. The JSON field names are the persisted
// attribute names and are part of the wire/storage contract.
type MediaRecord struct {
	ID           string    `json:"uniqueId"               dynamodbav:"uniqueId"`
	UploadTime   time.Time `json:"uploadTime"             dynamodbav:"uploadTime"`
	MediaID      string    `json:"mediaID"                dynamodbav:"mediaID"`
	MediaType    MediaKind `json:"mediaType"              dynamodbav:"mediaType"`
	Format       string    `json:"format"                 dynamodbav:"format"`
	FileSize     int64     `json:"fileSize"               dynamodbav:"fileSize"`
	Duration     *float64  `json:"duration,omitempty"     dynamodbav:"duration,omitempty"`
	OriginalURL  string    `json:"originalURL"            dynamodbav:"originalURL"`
	AnnotatedURL string    `json:"annotatedURL,omitempty" dynamodbav:"annotatedURL,omitempty"`
	ThumbnailURL string    `json:"thumbnailURL,omitempty" dynamodbav:"thumbnailURL,omitempty"`
	Tags         TagCounts `json:"tags"                   dynamodbav:"tags"`
	Detected     bool      `json:"detected"               dynamodbav:"detected"`
	Deleted      bool      `json:"deleted"                dynamodbav:"deleted"`
}

// URLs returns the record's populated location references in the order
// thumbnail, original, annotated.
func (r *MediaRecord) URLs() []string {
	var urls []string
	for _, u := range []string{r.ThumbnailURL, r.OriginalURL, r.AnnotatedURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ReferencesURL reports whether any of the record's URL fields equals url.
func (r *MediaRecord) ReferencesURL(url string) bool {
	return url != "" &&
		(r.ThumbnailURL == url || r.OriginalURL == url || r.AnnotatedURL == url)
}

// UserSubscription is a user's tag-interest set and the derived handle of the
// pub/sub subscription currently representing it. SubscriptionHandle is never
// authoritative over InterestTags; only the reconciler writes it.
type UserSubscription struct {
	Email              string   `json:"email"                     dynamodbav:"email"`
	InterestTags       []string `json:"tags"                      dynamodbav:"tags"`
	SubscriptionHandle string   `json:"subscriptionArn,omitempty" dynamodbav:"subscriptionArn,omitempty"`
}

// InterestTagSet returns the case-folded interest tags as a set.
func (u *UserSubscription) InterestTagSet() map[string]bool {
	set := make(map[string]bool, len(u.InterestTags))
	for _, t := range u.InterestTags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}

// SameInterests reports whether two tag lists denote the same set,
// ignoring order, case, and duplicates.
func SameInterests(a, b []string) bool {
	as := (&UserSubscription{InterestTags: a}).InterestTagSet()
	bs := (&UserSubscription{InterestTags: b}).InterestTagSet()
	if len(as) != len(bs) {
		return false
	}
	for t := range as {
		if !bs[t] {
			return false
		}
	}
	return true
}
