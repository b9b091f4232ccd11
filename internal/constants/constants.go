// Package constants provides shared configuration values used across the npcctl application.
package constants

import (
	"runtime"
	"time"
)

// Settings file defaults
const (
	// SettingsFile is the connection settings filename, kept next to the executable
	SettingsFile = "config.ini"

	// SettingsSection is the INI section holding connection settings
	SettingsSection = "Connection"

	// DefaultServerAddress is used when no server address is persisted
	DefaultServerAddress = "127.0.0.1"

	// DefaultPort is used when no port is persisted
	DefaultPort = "8080"

	// DefaultAuthKey is used when no auth key is persisted
	DefaultAuthKey = "test"

	// DefaultProtocolIndex selects the first protocol
	DefaultProtocolIndex = 0
)

// Options file defaults
const (
	// DefaultOptionsFile is the optional options filename
	DefaultOptionsFile = "npcctl.yaml"

	// DefaultAPIHost is the default host for the control API
	DefaultAPIHost = "127.0.0.1"

	// DefaultAPIPort is the default port for the control API
	DefaultAPIPort = 5566

	// DefaultDiagnosticsLog is the zap log file used while the TUI owns the terminal
	DefaultDiagnosticsLog = "npcctl.log"
)

// Timeout and duration defaults
const (
	// DefaultStartTimeout bounds the wait for the client to report itself started
	DefaultStartTimeout = 3000 * time.Millisecond

	// DefaultTerminateTimeout bounds the wait after a graceful termination request
	DefaultTerminateTimeout = 3000 * time.Millisecond

	// DefaultKillTimeout bounds the best-effort wait after a forced kill
	DefaultKillTimeout = 1000 * time.Millisecond

	// DefaultRequestTimeout is the default timeout for API requests
	DefaultRequestTimeout = 30 * time.Second

	// StatusMessageDuration is how long transient status messages stay visible
	StatusMessageDuration = 3 * time.Second
)

// Log configuration
const (
	// DefaultLogLimit is the default number of log lines to return
	DefaultLogLimit = 100

	// MaxLogLines is the maximum number of log lines that can be requested
	MaxLogLines = 10000
)

// Buffer sizes
const (
	// DefaultLogBufferSize is the default size for the log sink
	DefaultLogBufferSize = 5000

	// DefaultSubscriptionBuffer is the default size for subscription buffers
	DefaultSubscriptionBuffer = 100

	// ScannerBufferSize is the initial buffer size for log line scanning
	ScannerBufferSize = 64 * 1024 // 64KB

	// ScannerMaxBufferSize is the maximum buffer size for log line scanning
	ScannerMaxBufferSize = 1024 * 1024 // 1MB
)

// DefaultExecutable returns the client executable name for the host platform
func DefaultExecutable() string {
	if runtime.GOOS == "windows" {
		return "npc.exe"
	}
	return "npc"
}

// ANSI color codes for terminal output
var (
	// ColorReset resets the terminal color
	ColorReset = "\033[0m"

	// ColorDim is used for timestamps
	ColorDim = "\033[2m"

	// ColorCyan is used for npcctl's own lines
	ColorCyan = "\033[36m"

	// ColorBrightRed is used for stderr output
	ColorBrightRed = "\033[91m"
)
