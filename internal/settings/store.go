package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/ini.v1"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
)

// Keys in the Connection section
const (
	KeyServerIP      = "serverIP"
	KeyPort          = "port"
	KeyAuthKey       = "encryptedVkey"
	KeyProtocolIndex = "protocolIndex"
)

// Value wrappers written by the Qt settings backend of the previous client
const (
	byteArrayPrefix = "@ByteArray("
	stringPrefix    = "@String("
	wrapperSuffix   = ")"
)

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
}

func init() {
	// QSettings writes "key=value" without padding
	ini.PrettyFormat = false
}

// Defaults returns the settings used when the file or a key is missing
func Defaults() domain.ConnectionConfig {
	return domain.ConnectionConfig{
		ServerAddress: constants.DefaultServerAddress,
		Port:          constants.DefaultPort,
		AuthKey:       constants.DefaultAuthKey,
		ProtocolIndex: constants.DefaultProtocolIndex,
	}
}

// AppDir returns the directory containing the running executable
func AppDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Store reads and writes config.ini
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store for dir/config.ini. An empty dir means the
// executable's directory, falling back to the working directory.
func NewStore(dir string, logger *zap.Logger) *Store {
	if dir == "" {
		if appDir, err := AppDir(); err == nil {
			dir = appDir
		} else {
			dir = "."
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   filepath.Join(dir, constants.SettingsFile),
		logger: logger,
	}
}

// Path returns the settings file path
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the settings file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the settings. A missing file yields the defaults and no error.
// Missing keys take their individual defaults. An absent or empty auth key
// yields the default key rather than a decoded empty string.
//
// When the stored auth key cannot be decoded the default key is used and the
// returned error wraps domain.ErrInvalidConfig; the other fields are still
// valid in that case.
func (s *Store) Load() (domain.ConnectionConfig, error) {
	cfg := Defaults()

	if !s.Exists() {
		s.logger.Debug("settings file not found, using defaults", zap.String("path", s.path))
		return cfg, nil
	}

	f, err := ini.LoadSources(loadOptions, s.path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidConfig, s.path, err)
	}

	sec := f.Section(constants.SettingsSection)
	if sec.HasKey(KeyServerIP) {
		cfg.ServerAddress = unwrap(sec.Key(KeyServerIP).String())
	}
	if sec.HasKey(KeyPort) {
		cfg.Port = unwrap(sec.Key(KeyPort).String())
	}
	if sec.HasKey(KeyProtocolIndex) {
		// non-numeric values read as 0
		idx, err := strconv.Atoi(strings.TrimSpace(unwrap(sec.Key(KeyProtocolIndex).String())))
		if err != nil {
			idx = 0
		}
		cfg.ProtocolIndex = idx
	}

	if encoded := unwrap(sec.Key(KeyAuthKey).String()); encoded != "" {
		key, err := Deobfuscate(encoded)
		if err != nil {
			s.logger.Warn("stored auth key is malformed, using default", zap.String("path", s.path), zap.Error(err))
			return cfg, err
		}
		cfg.AuthKey = key
	}

	s.logger.Debug("settings loaded", zap.String("path", s.path))
	return cfg, nil
}

// Save writes every field and syncs the file before returning. An empty auth
// key is stored as an empty string. Sections and keys unknown to npcctl are
// preserved.
func (s *Store) Save(cfg domain.ConnectionConfig) error {
	f := s.loadForUpdate()

	sec := f.Section(constants.SettingsSection)
	sec.Key(KeyServerIP).SetValue(cfg.ServerAddress)
	sec.Key(KeyPort).SetValue(cfg.Port)
	if cfg.AuthKey == "" {
		sec.Key(KeyAuthKey).SetValue("")
	} else {
		sec.Key(KeyAuthKey).SetValue(byteArrayPrefix + Obfuscate(cfg.AuthKey) + wrapperSuffix)
	}
	sec.Key(KeyProtocolIndex).SetValue(strconv.Itoa(cfg.ProtocolIndex))

	if err := s.writeFile(f); err != nil {
		return err
	}
	s.logger.Debug("settings saved", zap.String("path", s.path))
	return nil
}

// loadForUpdate returns the current file contents, or an empty file when
// there is nothing readable to preserve
func (s *Store) loadForUpdate() *ini.File {
	if !s.Exists() {
		return ini.Empty(loadOptions)
	}
	f, err := ini.LoadSources(loadOptions, s.path)
	if err != nil {
		s.logger.Warn("existing settings file is unreadable, rewriting", zap.String("path", s.path), zap.Error(err))
		return ini.Empty(loadOptions)
	}
	return f
}

// writeFile replaces the settings file through a synced temp file in the
// same directory
func (s *Store) writeFile(f *ini.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", domain.ErrConfigWrite, dir, err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+constants.SettingsFile+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigWrite, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := f.WriteTo(tmp); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrConfigWrite, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", domain.ErrConfigWrite, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", domain.ErrConfigWrite, tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", domain.ErrConfigWrite, s.path, err)
	}
	committed = true
	return nil
}

// unwrap strips the @ByteArray(...) and @String(...) wrappers
func unwrap(v string) string {
	for _, prefix := range []string{byteArrayPrefix, stringPrefix} {
		if strings.HasPrefix(v, prefix) && strings.HasSuffix(v, wrapperSuffix) {
			return v[len(prefix) : len(v)-len(wrapperSuffix)]
		}
	}
	return v
}
