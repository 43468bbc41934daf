package throttle

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Record tracks the open/close history of one stream endpoint.
// A zero ClosedAt means the endpoint is still believed open.
type Record struct {
	OpenedAt time.Time `json:"opened_at,omitzero"`
	ClosedAt time.Time `json:"closed_at,omitzero"`
}

// Store persists the endpoint record map.
//
// Other processes may mutate the same backing store concurrently, so
// every write must be a merge over freshly loaded state, never a blind
// overwrite of unrelated keys. The Registry guarantees this by always
// calling Load immediately before Save under its own lock.
type Store interface {
	Load() (map[string]Record, error)
	Save(map[string]Record) error
}

// FileStore persists records as a flat JSON object at a single path.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath returns the conventional store location under the
// user cache directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "craftwatch", "stream-cooldowns.json"), nil
}

// Load reads the record map. A missing file is an empty map, not an error.
func (s *FileStore) Load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Record{}, nil
		}
		return nil, err
	}

	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save writes the record map atomically (temp file + rename).
func (s *FileStore) Save(records map[string]Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MemoryStore is an in-process Store used by tests and by callers that
// do not want cross-restart persistence.
type MemoryStore struct {
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

// Load returns a copy of the stored map.
func (s *MemoryStore) Load() (map[string]Record, error) {
	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored map.
func (s *MemoryStore) Save(records map[string]Record) error {
	out := make(map[string]Record, len(records))
	for k, v := range records {
		out[k] = v
	}
	s.records = out
	return nil
}
