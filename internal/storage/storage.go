package storage

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for file names that would escape the storage root
var ErrInvalidName = errors.New("invalid file name")

// localStorage keeps uploaded files on the local filesystem
type localStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new localStorage instance.
// basePath is the directory on disk, baseURL is the public prefix the directory is served under.
func NewLocalStorage(basePath, baseURL string) *localStorage {
	return &localStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// generatePath generates the full file path based on name and mediaType.
// Underscores in mediaType become path separators.
func (s *localStorage) generatePath(name, mediaType string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}

	typePath := strings.ReplaceAll(mediaType, "_", string(filepath.Separator))
	return filepath.Join(s.basePath, typePath, name), nil
}

// Create creates a new file and returns a WriteCloser
func (s *localStorage) Create(name, mediaType string) (io.WriteCloser, error) {
	fullPath, err := s.generatePath(name, mediaType)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	return os.Create(fullPath)
}

// Delete removes a file. Removing a file that does not exist is not an error.
func (s *localStorage) Delete(name, mediaType string) error {
	fullPath, err := s.generatePath(name, mediaType)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public path of a stored file
func (s *localStorage) URL(name, mediaType string) string {
	typePath := strings.ReplaceAll(mediaType, "_", "/")
	return s.baseURL + "/" + path.Join(typePath, name)
}

// FileServer serves the storage root under prefix.
// Directory listings are refused and browsers are told not to sniff the content type.
func (s *localStorage) FileServer(prefix string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(s.basePath)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
