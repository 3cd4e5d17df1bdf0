package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"time"
)

const uploadTimeout = 180 * time.Second

// MediaStore turns generated bytes into an addressable URL.
type MediaStore interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// ObjectPath builds the storage path for a project's media object.
func ObjectPath(projectID, filename string) string {
	return path.Join("projects", projectID, filename)
}

// Supabase stores media in a Supabase Storage bucket over its REST API.
// Each upload is a single attempt.
type Supabase struct {
	url        string
	serviceKey string
	Bucket     string
	client     *http.Client
}

var _ MediaStore = (*Supabase)(nil)

func NewSupabase(url, serviceKey, bucket string) *Supabase {
	return &Supabase{
		url:        url,
		serviceKey: serviceKey,
		Bucket:     bucket,
		client: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Put uploads with x-upsert and returns the public URL.
func (s *Supabase) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.Bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	log.Printf("[Storage] Uploaded %s (%d bytes)", objectPath, len(data))
	return s.PublicURL(objectPath), nil
}

// PublicURL returns the public URL for an object
func (s *Supabase) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.Bucket, objectPath)
}

// truncate limits a string to maxLen characters for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
