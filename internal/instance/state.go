// Package instance records where a running npcctl serves its control API
// so that remote commands can find it.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// FileName is the name of the state file inside the state directory
const FileName = "instance.json"

// ErrNotFound is returned when no live instance is recorded
var ErrNotFound = errors.New("no running npcctl instance found")

// State describes a running npcctl that serves the control API.
//
// State is not safe for concurrent use. The serving process writes it once
// at startup and removes it on shutdown.
type State struct {
	PID          int       `json:"pid"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	StartedAt    time.Time `json:"started_at"`
	SettingsFile string    `json:"settings_file"`
}

// URL returns the base URL of the recorded API
func (s *State) URL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// Path returns the state file path in dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write writes the state to dir/instance.json with owner-only permissions
func (s *State) Write(dir string) error {
	if s.PID <= 0 {
		return fmt.Errorf("invalid PID: %d", s.PID)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}
	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	f, err := os.OpenFile(Path(dir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing state file: %w", err)
	}
	return nil
}

// Load reads the state from dir. A missing file returns ErrNotFound.
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &s, nil
}

// LoadLive reads the state and checks that the recorded process is still
// alive. A stale file is removed and ErrNotFound returned.
func LoadLive(dir string) (*State, error) {
	s, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if !ProcessExists(s.PID) {
		_ = Remove(dir)
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes the state file. A missing file is not an error.
func Remove(dir string) error {
	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

// ProcessExists reports whether a process with the given PID is running
func ProcessExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}
