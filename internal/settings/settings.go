// Package settings persists the knock target between sessions as a
// small JSON record.
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gknock/config"
	kerr "gknock/internal/errors"
	"gknock/util"
)

// Settings is the persisted record.  The JSON keys are kept stable so
// existing files stay readable.
type Settings struct {
	Host        string `json:"host"`
	OpenPorts   string `json:"ports_str"`
	ClosePorts  string `json:"close_ports_str"`
	DelayMillis uint64 `json:"delay"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Host:        config.DefaultHost,
		OpenPorts:   config.DefaultOpenPorts,
		ClosePorts:  config.DefaultClosePorts,
		DelayMillis: DelayMillisOf(config.DefaultDelay),
	}
}

// MaxDelayMillis is the largest delay a time.Duration can hold.
const MaxDelayMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// Delay returns DelayMillis as a duration, saturating at MaxDelayMillis.
func (s Settings) Delay() time.Duration {
	return time.Duration(min(s.DelayMillis, MaxDelayMillis)) * time.Millisecond
}

// DelayMillisOf converts d for storage; negative durations become 0.
func DelayMillisOf(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}

// Apply copies the persisted target onto cfg.
func (s Settings) Apply(cfg *config.Config) {
	cfg.Host = s.Host
	cfg.OpenPorts = s.OpenPorts
	cfg.ClosePorts = s.ClosePorts
	cfg.Delay = s.Delay()
}

// FromConfig captures the knock target of cfg.
func FromConfig(cfg *config.Config) Settings {
	return Settings{
		Host:        cfg.Host,
		OpenPorts:   cfg.OpenPorts,
		ClosePorts:  cfg.ClosePorts,
		DelayMillis: DelayMillisOf(cfg.Delay),
	}
}

// Store loads and saves Settings.
type Store interface {
	// Load never fails: missing or unreadable state yields Defaults.
	Load() Settings
	Save(Settings) error
	Path() string
}

// DefaultPath returns <user config dir>/gknock/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "", kerr.WrapSettings("locate", "", kerr.ErrNoSettingsDir)
	}
	return filepath.Join(dir, "gknock", "config.json"), nil
}

// FileStore keeps Settings in a JSON file.  An empty path means no
// settings directory could be found: Load returns defaults and Save
// fails with ErrNoSettingsDir.
type FileStore struct {
	path   string
	logger *util.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *util.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the settings file.  When the file does not exist the
// defaults are returned and written out so the user has a file to
// edit.  A corrupt file is left untouched and defaults are returned.
// Fields absent from the file keep their default values.
func (s *FileStore) Load() Settings {
	def := Defaults()
	if s.path == "" {
		s.logger.Warn("no settings directory found; using built-in defaults in memory only")
		return def
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.Save(def); err != nil {
			s.logger.Warn("could not create default settings: %v", err)
		} else {
			s.logger.Verbose("created default settings at %s", s.path)
		}
		return def
	}
	if err != nil {
		s.logger.Warn("%v; using defaults", kerr.WrapSettings("read", s.path, err))
		return def
	}

	loaded := def
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("%v; using defaults", kerr.WrapSettings("decode", s.path, err))
		return def
	}
	if loaded.DelayMillis > MaxDelayMillis {
		err := fmt.Errorf("delay %d ms exceeds %d ms", loaded.DelayMillis, MaxDelayMillis)
		s.logger.Warn("%v; using defaults", kerr.WrapSettings("decode", s.path, err))
		return def
	}
	s.logger.Verbose("loaded settings from %s", s.path)
	return loaded
}

// Save writes st atomically, creating the parent directory if needed.
func (s *FileStore) Save(st Settings) error {
	if s.path == "" {
		return kerr.WrapSettings("locate", "", kerr.ErrNoSettingsDir)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerr.WrapSettings("mkdir", dir, err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return kerr.WrapSettings("encode", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return kerr.WrapSettings("write", s.path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return kerr.WrapSettings("write", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return kerr.WrapSettings("write", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return kerr.WrapSettings("write", s.path, err)
	}
	return nil
}
