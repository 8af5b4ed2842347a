package unlock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one by-email.json index per content type under a data
// directory:
//
//	data/meditation-unlocks/by-email.json  # {"<email>": ["slug1", "all", ...]}
//	data/book-unlocks/by-email.json
//
// Reads of a missing file yield an empty index. Writes replace the whole
// file via temp-file + rename and are serialized behind a mutex, so
// concurrent requests within one process cannot lose updates.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *FileStore) indexPath(contentType string) string {
	return filepath.Join(s.dir, contentType+"-unlocks", "by-email.json")
}

// readIndex loads the by-email index for a content type. A missing file is
// an empty index, not an error.
func (s *FileStore) readIndex(contentType string) (map[string][]string, error) {
	data, err := os.ReadFile(s.indexPath(contentType))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("read unlock index for %s: %w", contentType, err)
	}

	index := map[string][]string{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse unlock index for %s: %w", contentType, err)
	}
	return index, nil
}

func (s *FileStore) writeIndex(contentType string, index map[string][]string) error {
	path := s.indexPath(contentType)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create unlock dir for %s: %w", contentType, err)
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode unlock index for %s: %w", contentType, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write unlock index for %s: %w", contentType, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace unlock index for %s: %w", contentType, err)
	}
	return nil
}

// RecordUnlock appends contentID to the email's list unless it is already
// present or the list already holds the All sentinel.
func (s *FileStore) RecordUnlock(_ context.Context, email, contentType, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(contentType)
	if err != nil {
		return err
	}

	key := normalizeEmail(email)
	list := index[key]
	for _, id := range list {
		if id == contentID || id == All {
			return nil
		}
	}

	index[key] = append(list, contentID)
	return s.writeIndex(contentType, index)
}

// IsUnlocked reports whether the email's list contains contentID or All.
func (s *FileStore) IsUnlocked(_ context.Context, email, contentType, contentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(contentType)
	if err != nil {
		return false, err
	}

	for _, id := range index[normalizeEmail(email)] {
		if id == contentID || id == All {
			return true, nil
		}
	}
	return false, nil
}

// Unlocks returns a copy of the email's unlocked ids.
func (s *FileStore) Unlocks(_ context.Context, email, contentType string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(contentType)
	if err != nil {
		return nil, err
	}

	list := index[normalizeEmail(email)]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}
