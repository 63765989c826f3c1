package storage

import (
	"context"
	"io"
	"strings"

	supabase "github.com/supabase-community/storage-go"
)

// Supabase stores blobs in a Supabase storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

func NewSupabase(projectURL, key, bucket string) *Supabase {
	if bucket == "" {
		bucket = DefaultBucket
	}
	client := supabase.NewClient(strings.TrimRight(projectURL, "/")+"/storage/v1", key, nil)
	return &Supabase{client: client, bucket: bucket}
}

func (s *Supabase) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := true
	options := supabase.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(s.bucket, path, body, options); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Supabase) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.bucket, path).SignedURL
}
