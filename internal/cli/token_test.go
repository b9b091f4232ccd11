package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSaveLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	require.NoError(t, saveToken(path, "abc123"))
	got, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoadToken_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  tok\n"), 0600))

	got, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestServerToken(t *testing.T) {
	t.Run("environment wins and nothing is written", func(t *testing.T) {
		t.Setenv(tokenEnvVar, "from-env")
		path := filepath.Join(t.TempDir(), "token")

		token, err := serverToken(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", token)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("generated token is saved", func(t *testing.T) {
		t.Setenv(tokenEnvVar, "")
		path := filepath.Join(t.TempDir(), "token")

		token, err := serverToken(path)
		require.NoError(t, err)
		saved, err := loadToken(path)
		require.NoError(t, err)
		assert.Equal(t, token, saved)
	})
}

func TestClientToken_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, saveToken(path, "from-file"))

	t.Setenv(tokenEnvVar, "from-env")
	assert.Equal(t, "from-flag", clientToken("from-flag", path))
	assert.Equal(t, "from-env", clientToken("", path))

	t.Setenv(tokenEnvVar, "")
	assert.Equal(t, "from-file", clientToken("", path))
	assert.Equal(t, "", clientToken("", filepath.Join(t.TempDir(), "missing")))
}
