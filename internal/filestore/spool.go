// Package filestore spools uploads to local disk while they are processed.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

// Spool writes uploads to a directory of short-lived files.
type Spool struct {
	basePath string
}

// NewSpool creates the spool directory. An empty basePath uses the OS temp dir.
func NewSpool(basePath string) (*Spool, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "statement-ingest")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}
	return &Spool{basePath: basePath}, nil
}

// File is one spooled upload.
type File struct {
	Path string
	Size int64
}

// Save copies r to a new file, keeping the extension of filename. More than
// limit bytes yields a too_large error and no file is left behind.
func (s *Spool) Save(filename string, r io.Reader, limit int64) (*File, error) {
	fullPath := filepath.Join(s.basePath, uuid.NewString()+filepath.Ext(filename))

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if n > limit {
		os.Remove(fullPath)
		return nil, domain.TooLargeError(n, limit)
	}
	return &File{Path: fullPath, Size: n}, nil
}

// ReadAll returns the spooled bytes.
func (f *File) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read spooled file: %w", err)
	}
	return data, nil
}

// Remove deletes the file. A file that is already gone is not an error.
func (f *File) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
