package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Archiver keeps a copy of every original upload in a bucket.
type Archiver struct {
	storage StorageService
	bucket  string
	now     func() time.Time
	newID   func() string
}

// NewArchiver returns an Archiver writing to bucket.
func NewArchiver(storage StorageService, bucket string) *Archiver {
	return &Archiver{
		storage: storage,
		bucket:  bucket,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Archive uploads data and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, userID, filename string, data []byte) (string, error) {
	object := ObjectName(userID, filename, a.now(), a.newID())
	if err := a.storage.UploadBytes(ctx, a.bucket, object, data); err != nil {
		return "", fmt.Errorf("Archive: uploading %s: %w", object, err)
	}
	return "gs://" + a.bucket + "/" + object, nil
}

// ObjectName lays archives out as statements/<user>/<YYYY-MM-DD>/<id>-<filename>.
func ObjectName(userID, filename string, at time.Time, id string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return path.Join("statements", userID, at.UTC().Format("2006-01-02"), id+"-"+base)
}
