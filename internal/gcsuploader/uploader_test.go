package gcsuploader

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockStorage struct {
	UploadBytesFunc func(ctx context.Context, bucket, object string, data []byte) error
}

func (m *mockStorage) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	return nil
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucket, object string, data []byte) error {
	return m.UploadBytesFunc(ctx, bucket, object, data)
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	return nil, nil
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/path/to/file.pdf", "bucket", "path/to/file.pdf", false},
		{"gs://bucket/file.csv", "bucket", "file.csv", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file.pdf", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("got %q %q", bucket, object)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/file.pdf": "file.pdf",
		"gs://bucket/file.json":       "file.json",
		"gs://bucket":                 "bucket",
	}
	for uri, want := range tests {
		if got := ExtractFilenameFromGCSURI(uri); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		filename string
		want     string
	}{
		{"statement.pdf", "statements/u1/2024-03-09/id-statement.pdf"},
		{"C:\\Users\\me\\jan.csv", "statements/u1/2024-03-09/id-jan.csv"},
		{"../../etc/passwd", "statements/u1/2024-03-09/id-passwd"},
	}
	for _, tt := range tests {
		if got := ObjectName("u1", tt.filename, at, "id"); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestArchiver_Archive(t *testing.T) {
	var gotBucket, gotObject string
	m := &mockStorage{UploadBytesFunc: func(ctx context.Context, bucket, object string, data []byte) error {
		gotBucket, gotObject = bucket, object
		return nil
	}}
	a := NewArchiver(m, "archive")
	a.now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "abc" }

	uri, err := a.Archive(context.Background(), "u1", "jan.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if gotBucket != "archive" || gotObject != "statements/u1/2024-01-02/abc-jan.pdf" {
		t.Errorf("uploaded to %s/%s", gotBucket, gotObject)
	}
	if uri != "gs://archive/statements/u1/2024-01-02/abc-jan.pdf" {
		t.Errorf("uri = %s", uri)
	}

	m.UploadBytesFunc = func(ctx context.Context, bucket, object string, data []byte) error {
		return errors.New("boom")
	}
	if _, err := a.Archive(context.Background(), "u1", "jan.pdf", nil); err == nil {
		t.Error("expected upload error")
	}
}
