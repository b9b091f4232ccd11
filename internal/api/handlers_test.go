package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/npcctl/internal/domain"
)

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	w := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	w := env.do(t, "GET", "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[StatusResponse](t, w)
	assert.Equal(t, "idle", resp.State)
	assert.Equal(t, "v1", resp.APIVersion)
	assert.Equal(t, env.store.Path(), resp.SettingsFile)
	assert.Zero(t, resp.PID)
}

func TestConnect(t *testing.T) {
	t.Run("uses stored settings", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})
		require.NoError(t, env.store.Save(domain.ConnectionConfig{
			ServerAddress: " 10.0.0.5 ",
			Port:          "9000",
			AuthKey:       "abc",
			ProtocolIndex: 1,
		}))

		w := env.do(t, "POST", "/api/v1/connect", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[StatusResponse](t, w)
		assert.Equal(t, "running", resp.State)
		require.Len(t, env.controller.started, 1)
		assert.Equal(t, domain.ConnectParams{
			ServerAddress: "10.0.0.5",
			Port:          "9000",
			AuthKey:       "abc",
			Protocol:      "udp",
		}, env.controller.started[0])
	})

	t.Run("body overrides without saving", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/connect", `{"server_address":"vpn.example.com","protocol":"kcp"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		require.Len(t, env.controller.started, 1)
		assert.Equal(t, "vpn.example.com", env.controller.started[0].ServerAddress)
		assert.Equal(t, "kcp", env.controller.started[0].Protocol)
		assert.False(t, env.store.Exists())
	})

	t.Run("save persists overrides", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/connect", `{"port":"7000","save":true}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		cfg, err := env.store.Load()
		require.NoError(t, err)
		assert.Equal(t, "7000", cfg.Port)
	})

	t.Run("already running", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})
		require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/v1/connect", "").Code)

		w := env.do(t, "POST", "/api/v1/connect", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domain.ErrCodeAlreadyRunning, decode[ErrorResponse](t, w).Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/connect", `{"auth_key":"  "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, domain.ErrCodeInvalidParams, resp.Code)
		assert.Contains(t, resp.Error, "auth key")
	})

	t.Run("unknown protocol", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/connect", `{"protocol":"quic"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, env.controller.started)
	})

	t.Run("unknown field", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/connect", `{"server":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", decode[ErrorResponse](t, w).Code)
	})

	t.Run("start errors map to status codes", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
			code   string
		}{
			{domain.NewProcessError(domain.ProcessErrorFailedToStart, domain.ErrExecutableNotFound), http.StatusInternalServerError, domain.ErrCodeExecutableNotFound},
			{domain.ErrStartTimeout, http.StatusGatewayTimeout, domain.ErrCodeStartTimeout},
			{fmt.Errorf("boom: %w", domain.ErrStartFailed), http.StatusInternalServerError, domain.ErrCodeStartFailed},
			{errors.New("secret internal detail"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		}
		for _, tt := range tests {
			env := newTestEnv(t, ServerConfig{})
			env.controller.startErr = tt.err

			w := env.do(t, "POST", "/api/v1/connect", "")
			assert.Equal(t, tt.status, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Error, "secret internal detail")
		}
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "POST", "/api/v1/disconnect", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domain.ErrCodeNotRunning, decode[ErrorResponse](t, w).Code)
		assert.Zero(t, env.controller.stops)
	})

	t.Run("running", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})
		require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/v1/connect", "").Code)

		w := env.do(t, "POST", "/api/v1/disconnect", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[SuccessResponse](t, w).Success)
		assert.Equal(t, 1, env.controller.stops)
	})
}

func TestSettings(t *testing.T) {
	t.Run("get defaults masks key", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "GET", "/api/v1/settings", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SettingsResponse](t, w)
		assert.Equal(t, "127.0.0.1", resp.ServerAddress)
		assert.Equal(t, "8080", resp.Port)
		assert.Equal(t, "**st", resp.AuthKey)
		assert.Equal(t, "tcp", resp.Protocol)
		assert.Empty(t, resp.Warning)
	})

	t.Run("put updates only given fields", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})

		w := env.do(t, "PUT", "/api/v1/settings", `{"server_address":"10.0.0.5","auth_key":"abc","protocol":"udp"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[SettingsResponse](t, w)
		assert.Equal(t, "*bc", resp.AuthKey)
		assert.Equal(t, 1, resp.ProtocolIndex)

		cfg, err := env.store.Load()
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionConfig{
			ServerAddress: "10.0.0.5",
			Port:          "8080",
			AuthKey:       "abc",
			ProtocolIndex: 1,
		}, cfg)
	})

	t.Run("malformed key reported as warning", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})
		require.NoError(t, writeFile(env.store.Path(), "[Connection]\nencryptedVkey=@ByteArray(%%%)\n"))

		w := env.do(t, "GET", "/api/v1/settings", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SettingsResponse](t, w)
		assert.Equal(t, "**st", resp.AuthKey)
		assert.NotEmpty(t, resp.Warning)
	})
}

func TestGetLogs(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	env.logs.System("starting npc client...")
	env.logs.Append(domain.SourceClient, domain.StreamStdout, "connected to server")
	env.logs.Append(domain.SourceClient, domain.StreamStderr, "dial failed")
	env.logs.Append(domain.SourceClient, domain.StreamStdout, "retrying")

	t.Run("all", func(t *testing.T) {
		resp := decode[LogsResponse](t, env.do(t, "GET", "/api/v1/logs", ""))
		assert.Equal(t, 4, resp.TotalCount)
		require.Len(t, resp.Logs, 4)
		assert.Equal(t, "system", resp.Logs[0].Stream)
		assert.Equal(t, uint64(1), resp.Logs[0].Seq)
	})

	t.Run("lines keeps the newest", func(t *testing.T) {
		resp := decode[LogsResponse](t, env.do(t, "GET", "/api/v1/logs?lines=2", ""))
		require.Len(t, resp.Logs, 2)
		assert.Equal(t, "dial failed", resp.Logs[0].Line)
		assert.Equal(t, "retrying", resp.Logs[1].Line)
		assert.Equal(t, 4, resp.TotalCount)
	})

	t.Run("stream filter", func(t *testing.T) {
		resp := decode[LogsResponse](t, env.do(t, "GET", "/api/v1/logs?stream=stderr", ""))
		require.Len(t, resp.Logs, 1)
		assert.Equal(t, "dial failed", resp.Logs[0].Line)
	})

	t.Run("pattern", func(t *testing.T) {
		resp := decode[LogsResponse](t, env.do(t, "GET", "/api/v1/logs?pattern=^conn&regex=true", ""))
		require.Len(t, resp.Logs, 1)
		assert.Equal(t, "connected to server", resp.Logs[0].Line)
	})

	t.Run("invalid regex", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/logs?pattern=[&regex=true", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domain.ErrCodeInvalidPattern, decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown stream", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/logs?stream=stdin", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
