// Package voicestore persists per-user cloned voice IDs in a single JSON
// document. The file is read fully and rewritten fully on every mutation.
package voicestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Record struct {
	VoiceID   string    `json:"voice_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store backed by voices.json under dataDir.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, "voices.json")}, nil
}

// Save records voiceID for userID, overwriting any previous record.
func (s *Store) Save(userID, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.load()
	if err != nil {
		return err
	}
	voices[userID] = Record{VoiceID: voiceID, CreatedAt: time.Now().UTC()}
	return s.save(voices)
}

// Get returns the stored voice ID for userID, and whether one exists.
func (s *Store) Get(userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.load()
	if err != nil {
		return "", false, err
	}
	rec, ok := voices[userID]
	if !ok {
		return "", false, nil
	}
	return rec.VoiceID, true, nil
}

// Delete removes userID's record and reports whether one was present.
func (s *Store) Delete(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := voices[userID]; !ok {
		return false, nil
	}
	delete(voices, userID)
	if err := s.save(voices); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) load() (map[string]Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	voices := map[string]Record{}
	if err := json.Unmarshal(raw, &voices); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return voices, nil
}

func (s *Store) save(voices map[string]Record) error {
	raw, err := json.MarshalIndent(voices, "", "  ")
	if err != nil {
		return fmt.Errorf("encode voices: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
