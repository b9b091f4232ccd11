package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/charliek/npcctl/internal/constants"
)

// LoadEnvFile reads a .env file and returns the variables as a map
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// MergeEnv merges multiple environment maps in order, with later maps taking precedence
func MergeEnv(envMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, env := range envMaps {
		for k, v := range env {
			result[k] = v
		}
	}
	return result
}

// ClientEnv loads the variables added to the client's environment.
// Inline env entries override those from the env file. Relative paths
// resolve against baseDir.
func (c ClientConfig) ClientEnv(baseDir string) (map[string]string, error) {
	var fileEnv map[string]string
	if c.EnvFile != "" {
		var err error
		fileEnv, err = LoadEnvFile(resolvePath(c.EnvFile, baseDir))
		if err != nil {
			return nil, fmt.Errorf("loading client env file: %w", err)
		}
	}
	return MergeEnv(fileEnv, c.Env), nil
}

// ResolveWorkDir returns the client's working directory, resolved against
// baseDir when relative. Empty stays empty (the current directory).
func (c ClientConfig) ResolveWorkDir(baseDir string) string {
	if c.WorkDir == "" {
		return ""
	}
	return resolvePath(c.WorkDir, baseDir)
}

// resolvePath resolves a potentially relative path against a base directory
func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindOptionsFile returns the first npcctl.yaml found in dirs, or the path
// it would have in the first dir when none exists
func FindOptionsFile(dirs ...string) string {
	candidates := []string{
		constants.DefaultOptionsFile,
		"npcctl.yml",
	}

	for _, dir := range dirs {
		for _, name := range candidates {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if len(dirs) == 0 {
		return constants.DefaultOptionsFile
	}
	return filepath.Join(dirs[0], constants.DefaultOptionsFile)
}

// IsLoopbackHost reports whether host only accepts local connections
func IsLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CheckFilePermissions checks if a file has secure permissions.
// On Unix-like systems, it verifies the file is not world-writable.
// Returns an error if the file has insecure permissions.
func CheckFilePermissions(path string) error {
	// Skip permission check on Windows
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	mode := info.Mode()

	// World-writable = others have write (0002)
	if mode.Perm()&0002 != 0 {
		return fmt.Errorf("options file %s has insecure permissions: world-writable files can be modified by any user. Please run: chmod o-w %s", path, path)
	}

	return nil
}
