package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/npcctl/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Options) {},
		},
		{
			name:    "port out of range",
			modify:  func(o *Options) { o.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "negative buffer",
			modify:  func(o *Options) { o.Logs.BufferSize = -1 },
			wantErr: "logs.buffer_size",
		},
		{
			name:    "blank executable",
			modify:  func(o *Options) { o.Client.Executable = "  " },
			wantErr: "client.executable",
		},
		{
			name:    "unknown encoding",
			modify:  func(o *Options) { o.Client.Encoding = "klingon-8" },
			wantErr: "client.encoding",
		},
		{
			name:    "zero timeout",
			modify:  func(o *Options) { o.Timeouts.Kill = "0s" },
			wantErr: "timeouts.kill: must be positive",
		},
		{
			name:    "bad duration",
			modify:  func(o *Options) { o.Timeouts.Terminate = "3 seconds" },
			wantErr: "timeouts.terminate",
		},
		{
			name:    "bad env name",
			modify:  func(o *Options) { o.Client.Env = map[string]string{"A=B": "x"} },
			wantErr: "client.env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.modify(opts)
			err := Validate(opts)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	opts := Default()
	opts.API.Port = -1
	opts.Timeouts.Start = "x"

	err := Validate(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.port")
	assert.Contains(t, err.Error(), "timeouts.start")
}

func TestValidateExecutable(t *testing.T) {
	assert.Nil(t, ValidateExecutable("npc"))
	err := ValidateExecutable("")
	require.NotNil(t, err)
	assert.Equal(t, "client.executable", err.Field)
}
