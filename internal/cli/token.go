package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenEnvVar overrides the stored API token
const tokenEnvVar = "NPCCTL_API_TOKEN"

// npcctlDir returns the npcctl state directory path (~/.npcctl)
func npcctlDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".npcctl"
	}
	return filepath.Join(home, ".npcctl")
}

// tokenPath returns the path to the token file
func tokenPath() string {
	return filepath.Join(npcctlDir(), "token")
}

// generateToken generates a cryptographically secure random token
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// saveToken saves the token to path
func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	// Write token with restrictive permissions (owner read/write only)
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// loadToken loads the token from path
func loadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// serverToken returns the token the API should require: the environment
// override, or a fresh token written to path for local clients to pick up
func serverToken(path string) (string, error) {
	if token := os.Getenv(tokenEnvVar); token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	if err := saveToken(path, token); err != nil {
		return "", err
	}
	return token, nil
}

// clientToken returns the token for remote commands: the flag, then the
// environment, then the token file. Empty means none.
func clientToken(flag, path string) string {
	if flag != "" {
		return flag
	}
	if token := os.Getenv(tokenEnvVar); token != "" {
		return token
	}
	token, _ := loadToken(path) // may not exist
	return token
}
