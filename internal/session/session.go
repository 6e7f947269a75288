// Package session owns the mutable state persisted across runs: the
// identity-override map and the time slot of the last processed file. It is
// an explicit object created at process start and passed to the components
// that need it, replacing implicit global configuration.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Override is a persisted display-name/branch correction for an identifier.
type Override struct {
	DisplayName string `json:"display_name"`
	Branch      string `json:"branch"`
}

// State is the serialized form of a session.
type State struct {
	Overrides         map[string]Override `json:"identity_overrides"`
	LastProcessedSlot string              `json:"last_processed_slot,omitempty"`
}

// Session binds persisted state to its config file.
type Session struct {
	path  string
	state State
}

// Load reads the session state from path. A missing file yields an empty
// session; a corrupt file is reported.
func Load(path string) (*Session, error) {
	s := &Session{
		path:  path,
		state: State{Overrides: make(map[string]Override)},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session config: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse session config: %w", err)
	}
	if s.state.Overrides == nil {
		s.state.Overrides = make(map[string]Override)
	}
	return s, nil
}

// Save writes the session state back to its config file.
func (s *Session) Save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session config: %w", err)
	}
	return nil
}

// Resolve returns the persisted override for an identifier, if any.
func (s *Session) Resolve(identifier string) (displayName, branch string, ok bool) {
	o, ok := s.state.Overrides[identifier]
	if !ok {
		return "", "", false
	}
	return o.DisplayName, o.Branch, true
}

// SetOverride records an override. Maintained outside the ingest pipeline;
// the extractor only reads it.
func (s *Session) SetOverride(identifier string, o Override) {
	s.state.Overrides[identifier] = o
}

// SetLastProcessedSlot records the time slot in which the last successful
// ingest ran.
func (s *Session) SetLastProcessedSlot(slot string) {
	s.state.LastProcessedSlot = slot
}

// LastProcessedSlot returns the recorded slot, or "" when none.
func (s *Session) LastProcessedSlot() string {
	return s.state.LastProcessedSlot
}

// Reset clears all persisted state and rewrites the config file.
func (s *Session) Reset() error {
	s.state = State{Overrides: make(map[string]Override)}
	return s.Save()
}

// Path returns the config file location.
func (s *Session) Path() string {
	return s.path
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
