package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zap.NewNop())
}

func writeSettings(t *testing.T, s *Store, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0644))
}

func TestStore_MissingFileUsesDefaults(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.Exists())
	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "127.0.0.1", cfg.ServerAddress)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "test", cfg.AuthKey)
	assert.Equal(t, 0, cfg.ProtocolIndex)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := domain.ConnectionConfig{
		ServerAddress: "10.0.0.5",
		Port:          "9000",
		AuthKey:       "abc",
		ProtocolIndex: 1,
	}

	require.NoError(t, s.Save(want))
	assert.True(t, s.Exists())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "udp", got.Protocol())
}

func TestStore_RoundTripNonASCIIKey(t *testing.T) {
	s := newTestStore(t)
	want := domain.ConnectionConfig{
		ServerAddress: "vpn.example.com",
		Port:          "8024",
		AuthKey:       "clé-密钥",
		ProtocolIndex: 2,
	}

	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_FileFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(domain.ConnectionConfig{
		ServerAddress: "10.0.0.5",
		Port:          "9000",
		AuthKey:       "abc",
		ProtocolIndex: 1,
	}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "[Connection]")
	assert.Contains(t, content, "serverIP=10.0.0.5")
	assert.Contains(t, content, "port=9000")
	assert.Contains(t, content, "encryptedVkey=@ByteArray(DBs8)")
	assert.Contains(t, content, "protocolIndex=1")
	assert.NotContains(t, content, "abc")
}

func TestStore_EmptyAuthKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(domain.ConnectionConfig{
		ServerAddress: "10.0.0.5",
		Port:          "9000",
		AuthKey:       "",
	}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^encryptedVkey=\r?$`, string(data))

	// empty on disk reads back as the default key
	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.AuthKey)
}

func TestStore_MissingKeysUseDefaults(t *testing.T) {
	s := newTestStore(t)
	writeSettings(t, s, "[Connection]\nserverIP=192.168.1.2\n")

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.2", cfg.ServerAddress)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "test", cfg.AuthKey)
	assert.Equal(t, 0, cfg.ProtocolIndex)
}

func TestStore_LoadPlainAndWrappedValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{
			name:    "qt byte array wrapper",
			content: "[Connection]\nencryptedVkey=@ByteArray(" + Obfuscate("secret") + ")\n",
			wantKey: "secret",
		},
		{
			name:    "bare base64",
			content: "[Connection]\nencryptedVkey=" + Obfuscate("secret") + "\n",
			wantKey: "secret",
		},
		{
			name:    "empty wrapper",
			content: "[Connection]\nencryptedVkey=@ByteArray()\n",
			wantKey: "test",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			writeSettings(t, s, tt.content)

			cfg, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.AuthKey)
		})
	}
}

func TestStore_InvalidProtocolIndex(t *testing.T) {
	s := newTestStore(t)
	writeSettings(t, s, "[Connection]\nprotocolIndex=abc\n")

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ProtocolIndex)
}

func TestStore_OutOfRangeProtocolIndexKept(t *testing.T) {
	s := newTestStore(t)
	writeSettings(t, s, "[Connection]\nprotocolIndex=7\n")

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ProtocolIndex)
	assert.Equal(t, "tcp", cfg.Protocol())
}

func TestStore_MalformedAuthKey(t *testing.T) {
	s := newTestStore(t)
	writeSettings(t, s, "[Connection]\nserverIP=10.1.1.1\nencryptedVkey=@ByteArray(%%%)\n")

	cfg, err := s.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, "10.1.1.1", cfg.ServerAddress)
	assert.Equal(t, "test", cfg.AuthKey)
}

func TestStore_PreservesUnknownKeys(t *testing.T) {
	s := newTestStore(t)
	writeSettings(t, s, "[General]\ntheme=dark\n\n[Connection]\nserverIP=1.2.3.4\nautoConnect=true\n")

	require.NoError(t, s.Save(domain.ConnectionConfig{
		ServerAddress: "5.6.7.8",
		Port:          "9000",
		AuthKey:       "k",
	}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[General]")
	assert.Contains(t, content, "theme=dark")
	assert.Contains(t, content, "autoConnect=true")
	assert.Contains(t, content, "serverIP=5.6.7.8")
	assert.NotContains(t, content, "1.2.3.4")
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	require.NoError(t, s.Save(Defaults()))
	require.NoError(t, s.Save(Defaults()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.ini", entries[0].Name())
}

func TestStore_SaveFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced the same way on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	readonly := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(readonly, 0555))

	s := NewStore(readonly, zap.NewNop())
	err := s.Save(Defaults())
	assert.ErrorIs(t, err, domain.ErrConfigWrite)
}

func TestStore_Path(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)
	assert.Equal(t, filepath.Join(dir, "config.ini"), s.Path())
}

func TestAppDir(t *testing.T) {
	dir, err := AppDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
}
