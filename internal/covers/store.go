package covers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 100

// Store keeps cover image files on local disk.
type Store struct {
	dir      string
	mediaURL string
}

// NewStore creates a cover store at the specified directory. mediaURL is the
// public prefix the directory is served under.
func NewStore(dir, mediaURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	return &Store{dir: dir, mediaURL: mediaURL}, nil
}

// Save writes an image file atomically and returns the name it was stored
// under. An existing file is never overwritten: a numeric suffix is added
// to the name instead.
func (s *Store) Save(filename string, data []byte) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid cover filename %q", filename)
	}

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	name := filename
	for i := 1; i <= maxNameAttempts; i++ {
		// link fails when the target exists, unlike rename
		err := os.Link(tmpPath, filepath.Join(s.dir, name))
		if err == nil {
			return name, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return "", fmt.Errorf("no free name for %q", filename)
}

// Path returns the absolute location of a stored file.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(filename string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL returns the public URL of a stored file.
func (s *Store) URL(filename string) string {
	return s.mediaURL + filename
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}
