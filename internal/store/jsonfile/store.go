// Package jsonfile provides JSON file-based stores for channel metadata and
// auto-follow activity.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

// ChannelsFile is the root JSON structure stored on disk.
type ChannelsFile struct {
	Channels []newsletter.CachedMetadata `json:"channels"`
}

// Store implements newsletter.MetadataStore using a JSON file for persistence.
type Store struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// New creates a new JSON file store at the given path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// List returns all cached channels.
func (s *Store) List(ctx context.Context) ([]newsletter.CachedMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	return file.Channels, nil
}

// Get returns a channel by ID. Returns ErrNotCached if not found.
func (s *Store) Get(ctx context.Context, id string) (newsletter.CachedMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return newsletter.CachedMetadata{}, err
	}

	for _, ch := range file.Channels {
		if ch.ID == id {
			return ch, nil
		}
	}

	return newsletter.CachedMetadata{}, newsletter.ErrNotCached
}

// Save creates or replaces the snapshot for md.ID.
func (s *Store) Save(ctx context.Context, md newsletter.Metadata) error {
	if md.ID == "" {
		return fmt.Errorf("save channel: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	entry := newsletter.CachedMetadata{Metadata: md, CachedAt: s.now()}

	found := false
	for i, existing := range file.Channels {
		if existing.ID == md.ID {
			file.Channels[i] = entry
			found = true
			break
		}
	}
	if !found {
		file.Channels = append(file.Channels, entry)
	}

	return s.save(file)
}

// Delete removes a channel by ID. Returns ErrNotCached if not found.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	for i, ch := range file.Channels {
		if ch.ID == id {
			file.Channels = append(file.Channels[:i], file.Channels[i+1:]...)
			return s.save(file)
		}
	}

	return newsletter.ErrNotCached
}

// load reads the channels file from disk.
// Returns empty ChannelsFile if file doesn't exist.
func (s *Store) load() (ChannelsFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ChannelsFile{}, nil
		}
		return ChannelsFile{}, fmt.Errorf("read channels file: %w", err)
	}

	if len(data) == 0 {
		return ChannelsFile{}, nil
	}

	var file ChannelsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ChannelsFile{}, fmt.Errorf("parse channels file: %w", err)
	}

	return file, nil
}

// save writes the channels file to disk atomically.
func (s *Store) save(file ChannelsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
