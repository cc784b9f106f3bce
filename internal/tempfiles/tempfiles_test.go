package tempfiles

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpoolRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	spool, err := Spool(dir, "upload-*", strings.NewReader("payload"), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), spool.Size())

	data, err := io.ReadAll(spool)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	require.NoError(t, spool.Close())
	require.NoError(t, spool.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSpoolSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := Spool(dir, "upload-*", strings.NewReader("payload"), 3)
	require.ErrorContains(t, err, "size mismatch")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSpoolUnknownSize(t *testing.T) {
	spool, err := Spool(t.TempDir(), "upload-*", strings.NewReader("payload"), -1)
	require.NoError(t, err)
	defer spool.Close()
	require.Equal(t, int64(7), spool.Size())
}
