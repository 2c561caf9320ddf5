// Package opconfig manages the operating configuration document shared with
// the operator tool and the avatar clients. The file on disk is the source
// of truth; change detection is by modification time.
package opconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Work modes.
const (
	ModeManual        = "manual"
	ModeCollaboration = "collaboration"
	ModeAuto          = "auto"
)

// Known avatar commands. Anything else is handled as a free-form command.
const (
	CommandPlayPause = "play/pause"
	CommandStop      = "stop"
	CommandText      = "text"
)

// Acknowledgement results.
const (
	ResultSuccess = "success"
	ResultPending = "pending"
	ResultFailure = "failure"
)

// Response is an acknowledgement latch for an operator-issued change.
type Response struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// AvatarCommand is an operator command destined for the avatar clients.
type AvatarCommand struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// AvatarEvent describes a playback lifecycle event reported by a client.
type AvatarEvent struct {
	Event string `json:"event"`
	Type  string `json:"type"`
	Src   string `json:"src"`
}

// Document is the operating configuration file content.
type Document struct {
	WorkMode              string        `json:"work_mode"`
	AvatarCommand         AvatarCommand `json:"avatar_command"`
	AvatarEvent           AvatarEvent   `json:"avatar_event"`
	WorkModeResponse      Response      `json:"work_mode_response"`
	AvatarCommandResponse Response      `json:"avatar_command_response"`
	ServerHost            string        `json:"server_host"`
	ServerPort            int           `json:"server_port"`
}

// ResponseField names an acknowledgement latch in the document.
type ResponseField string

const (
	FieldWorkModeResponse      ResponseField = "work_mode_response"
	FieldAvatarCommandResponse ResponseField = "avatar_command_response"
)

// CorruptError indicates the document on disk could not be parsed.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("operating config corrupt: %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store reads and writes the operating configuration document.
type Store struct {
	path string

	mu      sync.Mutex
	doc     Document
	lastMod time.Time
}

// NewStore creates a store for the document at path. Call Load before use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func readDocument(path string) (Document, time.Time, error) {
	var doc Document

	info, err := os.Stat(path)
	if err != nil {
		return doc, time.Time{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, time.Time{}, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, time.Time{}, &CorruptError{Path: path, Err: err}
	}
	return doc, info.ModTime(), nil
}

// Load parses the document from disk. On parse failure the in-memory
// document is left untouched.
func (s *Store) Load() error {
	doc, mod, err := readDocument(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.lastMod = mod
	s.mu.Unlock()
	return nil
}

// Document returns a copy of the current in-memory document.
func (s *Store) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// RefreshIfChanged reloads the document if the file's modification time has
// changed since the last load. It returns true when a reload happened.
// No file content is read when the modification time is unchanged.
func (s *Store) RefreshIfChanged() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	unchanged := info.ModTime().Equal(s.lastMod)
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	if err := s.Load(); err != nil {
		return false, err
	}
	return true, nil
}

// WriteAcknowledgement sets a response latch and writes the document back.
// The file is re-read first so concurrent external edits to other fields
// are not clobbered, then replaced atomically.
func (s *Store) WriteAcknowledgement(field ResponseField, resp Response) error {
	return s.mutate(func(doc *Document) error {
		switch field {
		case FieldWorkModeResponse:
			doc.WorkModeResponse = resp
		case FieldAvatarCommandResponse:
			doc.AvatarCommandResponse = resp
		default:
			return fmt.Errorf("unknown response field: %q", field)
		}
		return nil
	})
}

// SetAvatarEvent records a client playback lifecycle event in the document.
// This is the side channel back into the reconciliation loop: the write
// bumps the file's modification time, so the next tick picks it up.
func (s *Store) SetAvatarEvent(ev AvatarEvent) error {
	return s.mutate(func(doc *Document) error {
		doc.AvatarEvent = ev
		return nil
	})
}

// SetAvatarCommand records an inbound command and re-arms its latch.
func (s *Store) SetAvatarCommand(cmd AvatarCommand) error {
	return s.mutate(func(doc *Document) error {
		doc.AvatarCommand = cmd
		doc.AvatarCommandResponse = Response{Result: ResultPending}
		return nil
	})
}

// SetWorkMode records an operator mode change and re-arms its latch.
func (s *Store) SetWorkMode(mode string) error {
	return s.mutate(func(doc *Document) error {
		doc.WorkMode = mode
		doc.WorkModeResponse = Response{Result: ResultPending}
		return nil
	})
}

// mutate re-reads the file, applies fn, and atomically replaces the file.
func (s *Store) mutate(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := readDocument(s.path)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	if err := writeDocument(s.path, doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// writeDocument writes the document to a temp file in the same directory and
// renames it over the target so readers never observe a partial write.
func writeDocument(path string, doc Document) error {
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal operating config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".opconfig-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
