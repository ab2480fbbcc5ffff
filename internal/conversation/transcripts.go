package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TranscriptStore reads and writes <dir>/<id>.json transcripts.
type TranscriptStore struct {
	fs  afero.Fs
	dir string
}

// NewTranscriptStore creates a store rooted at dir.
func NewTranscriptStore(fs afero.Fs, dir string) *TranscriptStore {
	return &TranscriptStore{fs: fs, dir: dir}
}

// Path returns the transcript file for id.
func (s *TranscriptStore) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load returns the transcript for id. The bool is false when none exists yet.
func (s *TranscriptStore) Load(id string) (*Conversation, bool, error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}
	data, err := afero.ReadFile(s.fs, s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, false, fmt.Errorf("parsing conversation %s: %w", id, err)
	}
	return &conv, true, nil
}

// Save writes the transcript for id, creating the directory when needed.
func (s *TranscriptStore) Save(id string, conv *Conversation) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating conversations dir: %w", err)
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conversation %s: %w", id, err)
	}
	if err := afero.WriteFile(s.fs, s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", id, err)
	}
	return nil
}
