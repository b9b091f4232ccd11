package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("empty path returns nil", func(t *testing.T) {
		env, err := LoadEnvFile("")
		assert.NoError(t, err)
		assert.Nil(t, env)
	})

	t.Run("loads env file", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		err := os.WriteFile(envPath, []byte("FOO=bar\nBAZ=qux"), 0644)
		require.NoError(t, err)

		env, err := LoadEnvFile(envPath)
		require.NoError(t, err)
		assert.Equal(t, "bar", env["FOO"])
		assert.Equal(t, "qux", env["BAZ"])
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadEnvFile("nonexistent.env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestMergeEnv(t *testing.T) {
	t.Run("merges multiple maps", func(t *testing.T) {
		env1 := map[string]string{"A": "1", "B": "2"}
		env2 := map[string]string{"B": "3", "C": "4"}
		env3 := map[string]string{"C": "5"}

		result := MergeEnv(env1, env2, env3)
		assert.Equal(t, "1", result["A"])
		assert.Equal(t, "3", result["B"]) // env2 overrides
		assert.Equal(t, "5", result["C"]) // env3 overrides
	})

	t.Run("handles nil maps", func(t *testing.T) {
		env1 := map[string]string{"A": "1"}
		result := MergeEnv(nil, env1, nil)
		assert.Equal(t, "1", result["A"])
	})
}

func TestClientConfig_ClientEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client.env"), []byte("FROM_FILE=1\nSHARED=file\n"), 0644))

	t.Run("inline overrides file", func(t *testing.T) {
		c := ClientConfig{
			EnvFile: "client.env",
			Env:     map[string]string{"SHARED": "inline", "EXTRA": "x"},
		}
		env, err := c.ClientEnv(dir)
		require.NoError(t, err)
		assert.Equal(t, "1", env["FROM_FILE"])
		assert.Equal(t, "inline", env["SHARED"])
		assert.Equal(t, "x", env["EXTRA"])
	})

	t.Run("missing env file", func(t *testing.T) {
		c := ClientConfig{EnvFile: "missing.env"}
		_, err := c.ClientEnv(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client env file")
	})

	t.Run("no env configured", func(t *testing.T) {
		env, err := ClientConfig{}.ClientEnv(dir)
		require.NoError(t, err)
		assert.Empty(t, env)
	})
}

func TestClientConfig_ResolveWorkDir(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "abs")

	assert.Equal(t, "", ClientConfig{}.ResolveWorkDir(base))
	assert.Equal(t, filepath.Join(base, "run"), ClientConfig{WorkDir: "run"}.ResolveWorkDir(base))
	assert.Equal(t, abs, ClientConfig{WorkDir: abs}.ResolveWorkDir("/elsewhere"))
	assert.Equal(t, "run", ClientConfig{WorkDir: "run"}.ResolveWorkDir(""))
}

func TestFindOptionsFile(t *testing.T) {
	t.Run("finds yaml before yml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "npcctl.yml"), []byte{}, 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "npcctl.yaml"), []byte{}, 0644))
		assert.Equal(t, filepath.Join(dir, "npcctl.yaml"), FindOptionsFile(dir))
	})

	t.Run("searches dirs in order", func(t *testing.T) {
		first, second := t.TempDir(), t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(second, "npcctl.yml"), []byte{}, 0644))
		assert.Equal(t, filepath.Join(second, "npcctl.yml"), FindOptionsFile(first, second))
	})

	t.Run("defaults to first dir", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, filepath.Join(dir, "npcctl.yaml"), FindOptionsFile(dir, t.TempDir()))
	})

	t.Run("no dirs", func(t *testing.T) {
		assert.Equal(t, "npcctl.yaml", FindOptionsFile())
	})
}
