// Package tempfiles spools upload bodies to disk. S3 wants a seekable,
// length-known body, while ingest hands us a plain reader; the spool bridges
// the two without holding the payload in memory.
package tempfiles

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// SpoolFile is a spooled upload positioned at the start of its data. Close
// removes the backing file.
type SpoolFile struct {
	file *os.File
	size int64
	once sync.Once
}

// Spool copies data into a temp file under dir, creating dir if needed. When
// size is non-negative the copied length must match it exactly. The returned
// spool is rewound and ready to upload.
func Spool(dir, pattern string, data io.Reader, size int64) (*SpoolFile, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	written, err := io.Copy(f, data)
	if err != nil {
		removeFile(f)
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if size >= 0 && written != size {
		removeFile(f)
		return nil, fmt.Errorf("upload size mismatch: declared %d, read %d", size, written)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		removeFile(f)
		return nil, fmt.Errorf("rewind spool file: %w", err)
	}
	return &SpoolFile{file: f, size: written}, nil
}

// Size returns the number of bytes spooled.
func (s *SpoolFile) Size() int64 {
	return s.size
}

func (s *SpoolFile) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *SpoolFile) Seek(offset int64, whence int) (int64, error) {
	return s.file.Seek(offset, whence)
}

func (s *SpoolFile) Close() error {
	var closeErr error
	var removeErr error
	s.once.Do(func() {
		closeErr = s.file.Close()
		if err := os.Remove(s.file.Name()); err != nil && !os.IsNotExist(err) {
			removeErr = err
		}
	})
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}

func removeFile(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}
