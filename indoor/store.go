package indoor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// MaxRecentSearches is the number of recent searches kept.
const MaxRecentSearches = 5

// storeData is the on-disk shape of a Store.
type storeData struct {
	Recent    []string `json:"recentSearches"`
	Favorites []string `json:"favorites"`
}

// Store keeps recent searches and favorite locations, optionally persisted
// to a JSON file.
type Store struct {
	mu        sync.RWMutex
	recent    []string
	favorites []string
	path      string // empty disables persistence
}

// NewStore creates an in-memory store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithFile creates a store backed by path. An existing file is
// loaded; a missing or corrupt one starts empty.
func NewStoreWithFile(path string) *Store {
	s := &Store{path: path}
	if path == "" {
		return s
	}
	data, err := loadStoreFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: ignoring store file %s: %v", path, err)
		}
		return s
	}
	s.recent = data.Recent
	s.favorites = data.Favorites
	if len(s.recent) > MaxRecentSearches {
		s.recent = s.recent[:MaxRecentSearches]
	}
	return s
}

// AddRecent records a search term, newest first, without duplicates.
func (s *Store) AddRecent(term string) {
	if term == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recent := []string{term}
	for _, r := range s.recent {
		if r != term && len(recent) < MaxRecentSearches {
			recent = append(recent, r)
		}
	}
	s.recent = recent
	s.persistLocked()
}

// Recent returns the recent searches, newest first.
func (s *Store) Recent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.recent...)
}

// ClearRecent forgets all recent searches.
func (s *Store) ClearRecent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = nil
	s.persistLocked()
}

// ToggleFavorite adds or removes id and reports whether it is now a favorite.
func (s *Store) ToggleFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := true
	favs := make([]string, 0, len(s.favorites)+1)
	for _, f := range s.favorites {
		if f == id {
			on = false
			continue
		}
		favs = append(favs, f)
	}
	if on {
		favs = append(favs, id)
	}
	s.favorites = favs
	s.persistLocked()
	return on
}

// IsFavorite reports whether id is a favorite.
func (s *Store) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.favorites {
		if f == id {
			return true
		}
	}
	return false
}

// Favorites returns the favorite ids in the order they were added.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.favorites...)
}

// persistLocked writes the current state; the caller holds the write lock
// so files land in the same order as the mutations.
func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	data := storeData{Recent: s.recent, Favorites: s.favorites}
	if err := saveStoreFile(s.path, data); err != nil {
		log.Printf("warning: failed to save store: %v", err)
	}
}

// saveStoreFile writes store data to disk as JSON.
func saveStoreFile(path string, data storeData) error {
	if data.Recent == nil {
		data.Recent = []string{}
	}
	if data.Favorites == nil {
		data.Favorites = []string{}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// loadStoreFile reads store data from disk.
func loadStoreFile(path string) (storeData, error) {
	var data storeData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, err
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("unmarshal store: %w", err)
	}
	return data, nil
}
