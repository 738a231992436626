package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

type fileSource struct {
	path string
}

func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(_ context.Context) (*Poster, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read poster file %q: %w", s.path, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("poster file %q is empty", s.path)
	}

	return &Poster{
		Filename:    filepath.Base(s.path),
		ContentType: ContentTypeFor(s.path),
		Content:     content,
	}, nil
}

type objectSource struct {
	client *minio.Client
	bucket string
	key    string
}

func NewObjectSource(client *minio.Client, bucket, key string) Source {
	return &objectSource{client: client, bucket: strings.TrimSpace(bucket), key: key}
}

func (s *objectSource) Load(ctx context.Context) (*Poster, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if s.bucket == "" || s.key == "" {
		return nil, fmt.Errorf("s3 bucket and key are required")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", s.bucket, s.key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat object %s/%s: %w", s.bucket, s.key, err)
	}

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", s.bucket, s.key, err)
	}

	contentType := info.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(s.key)
	}

	return &Poster{
		Filename:    filepath.Base(s.key),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
