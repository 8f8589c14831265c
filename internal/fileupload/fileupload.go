// Package fileupload resolves download URLs for files attached to submission
// answers. File storage itself lives in the host platform; this package only
// builds the URLs staff tooling links to.
package fileupload

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotConfigured means no file storage base URL was configured.
	ErrNotConfigured = errors.New("file upload storage is not configured")
	// ErrBadKey rejects malformed file keys.
	ErrBadKey = errors.New("invalid file key")
)

// Service resolves the download URL for an uploaded file key.
type Service interface {
	DownloadURL(key string) (string, error)
}

// BaseURLService builds download URLs by joining file keys onto a fixed base
// URL, the way the storage backend exposes them.
type BaseURLService struct {
	baseURL string
}

// NewBaseURLService creates a Service for files hosted under baseURL. An
// empty baseURL yields a service that reports ErrNotConfigured for every key.
func NewBaseURLService(baseURL string) *BaseURLService {
	return &BaseURLService{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BaseURLService) DownloadURL(key string) (string, error) {
	if s.baseURL == "" {
		return "", ErrNotConfigured
	}
	if err := validateKey(key); err != nil {
		return "", err
	}
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/"), nil
}

// validateKey accepts slash-separated keys whose segments are all non-empty
// and free of directory escapes.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrBadKey)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrBadKey, key)
		}
	}
	return nil
}
