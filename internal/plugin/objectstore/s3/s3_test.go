package s3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitObjectURL(t *testing.T) {
	bucket, key, err := splitObjectURL("https://wildtrack-media.s3.ap-southeast-2.amazonaws.com/raw_uploads/abc123.jpg")
	require.NoError(t, err)
	require.Equal(t, "wildtrack-media", bucket)
	require.Equal(t, "raw_uploads/abc123.jpg", key)
}

func TestSplitObjectURLNoRegion(t *testing.T) {
	bucket, key, err := splitObjectURL("https://wildtrack-media.s3.amazonaws.com/thumbs/abc123-thumb.jpg")
	require.NoError(t, err)
	require.Equal(t, "wildtrack-media", bucket)
	require.Equal(t, "thumbs/abc123-thumb.jpg", key)
}

func TestSplitObjectURLRejectsNonS3(t *testing.T) {
	_, _, err := splitObjectURL("https://example.com/some/file.jpg")
	require.Error(t, err)

	_, _, err = splitObjectURL("https://bucket.s3.amazonaws.com/")
	require.Error(t, err)
}
