package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

// DefaultExportName is the file name used when the caller gives none.
func DefaultExportName(id string) string {
	return fmt.Sprintf("session_%s.json", id)
}

// Export writes the session transcript to path, replacing any existing file.
// An empty id exports the current session.
func (s *Store) Export(id, path string) error {
	sess, err := s.resolve(id)
	if err != nil {
		return err
	}

	transcript := chat.Transcript{
		Name:      sess.info.Name,
		CreatedAt: sess.info.CreatedAt,
		History:   sess.buffer.Snapshot(),
	}

	data, err := encodeTranscript(path, transcript)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create directory: %v", ErrWriteFailure, err)
		}
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	return nil
}

// Import loads an exported transcript into a new current session.
func (s *Store) Import(path string) (chat.Info, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is chosen by the operator
	if err != nil {
		return chat.Info{}, fmt.Errorf("%w: %s: %v", ErrCorruptTranscript, path, err)
	}

	var transcript chat.Transcript
	if isYAML(path) {
		err = yaml.Unmarshal(data, &transcript)
	} else {
		err = json.Unmarshal(data, &transcript)
	}
	if err != nil {
		return chat.Info{}, fmt.Errorf("%w: %s: %v", ErrCorruptTranscript, path, err)
	}

	for i, msg := range transcript.History {
		if msg.Role != chat.RoleUser && msg.Role != chat.RoleAssistant {
			return chat.Info{}, fmt.Errorf("%w: %s: message %d has role %q", ErrCorruptTranscript, path, i, msg.Role)
		}
	}

	createdAt := transcript.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	return s.insert(transcript.Name, s.now(), createdAt, transcript.History), nil
}

func encodeTranscript(path string, transcript chat.Transcript) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(transcript)
	}
	return json.MarshalIndent(transcript, "", "  ")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
