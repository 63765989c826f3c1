// Package storage uploads respondent files and resolves their download URLs.
package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
)

// DefaultBucket holds files attached to questionnaire answers.
const DefaultBucket = "organization_descriptions"

// Blobs stores uploaded files by path.
type Blobs interface {
	// Upload writes body at path, replacing any existing object, and returns
	// the stored path.
	Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error)
	PublicURL(path string) string
}

// Memory keeps blobs in process. It serves local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]memoryObject{}}
}

func (m *Memory) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[path] = memoryObject{data: buf.Bytes(), contentType: contentType}
	m.mu.Unlock()
	return path, nil
}

func (m *Memory) PublicURL(path string) string {
	return m.baseURL + "/" + (&url.URL{Path: path}).EscapedPath()
}

// Object returns the stored bytes and content type at path.
func (m *Memory) Object(path string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[path]
	return o.data, o.contentType, ok
}
