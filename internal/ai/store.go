package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSystemTranscriptStore writes transcripts as a JSON document and a rendered markdown document into a directory.
// Transcripts are never read back; conversation state always starts empty
type FileSystemTranscriptStore struct {
	dir string // The directory keys will be relative to
}

func NewFileSystemTranscriptStore(dir string) FileSystemTranscriptStore {
	return FileSystemTranscriptStore{
		dir: dir,
	}
}

// Save writes <key>.json and <key>.md
func (fsts FileSystemTranscriptStore) Save(key string, value Transcript) error {
	err := os.MkdirAll(fsts.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	err = os.WriteFile(filepath.Join(fsts.dir, key+".json"), b, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	md, err := value.ToMarkdown()
	if err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	err = os.WriteFile(filepath.Join(fsts.dir, key+".md"), []byte(md), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
