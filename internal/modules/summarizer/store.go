package summarizer

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dywsy21/Cecilia/internal/models"
)

// Store persists processed-paper records on disk. Each topic gets its
// own directory; each paper is one JSON file named by the md5 of its
// id, so dedup state is scoped to the (topic, paper) pair.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) topicDir(topicKey string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(topicKey)
	return filepath.Join(s.dir, safe)
}

func (s *Store) entryPath(topicKey, paperID string) string {
	sum := md5.Sum([]byte(paperID))
	return filepath.Join(s.topicDir(topicKey), hex.EncodeToString(sum[:])+".json")
}

// IsProcessed reports whether the paper was already summarized for the
// topic.
func (s *Store) IsProcessed(topicKey, paperID string) bool {
	_, err := os.Stat(s.entryPath(topicKey, paperID))
	return err == nil
}

// MarkProcessed writes the processed record. The write goes through a
// temp file and rename so a crash never leaves a half-written entry.
func (s *Store) MarkProcessed(topicKey string, entry models.ProcessedEntry) error {
	dir := s.topicDir(topicKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("summarizer: create topic dir: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("summarizer: marshal entry: %w", err)
	}

	path := s.entryPath(topicKey, entry.PaperID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("summarizer: write entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("summarizer: commit entry: %w", err)
	}
	return nil
}

// Load returns the stored record for a paper, or false when none exists
// or the file is unreadable.
func (s *Store) Load(topicKey, paperID string) (models.ProcessedEntry, bool) {
	data, err := os.ReadFile(s.entryPath(topicKey, paperID))
	if err != nil {
		return models.ProcessedEntry{}, false
	}
	var entry models.ProcessedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.ProcessedEntry{}, false
	}
	return entry, true
}
