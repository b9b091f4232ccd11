package api

import (
	"time"

	"github.com/charliek/npcctl/internal/domain"
)

// StatusResponse represents the response for GET /status
type StatusResponse struct {
	State         string                `json:"state"`
	PID           int                   `json:"pid,omitempty"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Cmd           string                `json:"cmd,omitempty"`
	LastExit      *ExitResponse         `json:"last_exit,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	Usage         *domain.ResourceUsage `json:"usage,omitempty"`
	SettingsFile  string                `json:"settings_file,omitempty"`
	APIVersion    string                `json:"api_version"`
}

// ExitResponse describes the last client exit
type ExitResponse struct {
	Code      int    `json:"code"`
	Status    string `json:"status"`
	At        string `json:"at"`
	Requested bool   `json:"requested"`
}

// SettingsResponse represents the persisted connection settings. The auth
// key is always masked.
type SettingsResponse struct {
	ServerAddress string `json:"server_address"`
	Port          string `json:"port"`
	AuthKey       string `json:"auth_key"`
	Protocol      string `json:"protocol"`
	ProtocolIndex int    `json:"protocol_index"`
	Warning       string `json:"warning,omitempty"`
}

// SettingsRequest is the body of PUT /settings and POST /connect. Omitted
// fields keep their stored values.
type SettingsRequest struct {
	ServerAddress *string `json:"server_address,omitempty"`
	Port          *string `json:"port,omitempty"`
	AuthKey       *string `json:"auth_key,omitempty"`
	Protocol      *string `json:"protocol,omitempty"`
}

// ConnectRequest is the optional body of POST /connect
type ConnectRequest struct {
	SettingsRequest
	// Save persists the effective settings before connecting
	Save bool `json:"save,omitempty"`
}

// LogsResponse represents the response for GET /logs
type LogsResponse struct {
	Logs          []LogEntryResponse `json:"logs"`
	FilteredCount int                `json:"filtered_count"`
	TotalCount    int                `json:"total_count"`
}

// LogEntryResponse represents a single log entry
type LogEntryResponse struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Stream    string `json:"stream"`
	Line      string `json:"line"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToStatusResponse converts domain.ProcessInfo to StatusResponse
func ToStatusResponse(info domain.ProcessInfo, settingsFile string) StatusResponse {
	resp := StatusResponse{
		State:         string(info.State),
		PID:           info.PID,
		UptimeSeconds: info.UptimeSeconds(),
		Cmd:           info.Cmd,
		LastError:     info.LastError,
		Usage:         info.Usage,
		SettingsFile:  settingsFile,
		APIVersion:    "v1",
	}
	if info.LastExit != nil {
		resp.LastExit = &ExitResponse{
			Code:      info.LastExit.Code,
			Status:    string(info.LastExit.Status),
			At:        info.LastExit.At.Format(time.RFC3339),
			Requested: info.LastExit.Requested,
		}
	}
	return resp
}

// ToSettingsResponse converts settings to their masked API form
func ToSettingsResponse(cfg domain.ConnectionConfig) SettingsResponse {
	return SettingsResponse{
		ServerAddress: cfg.ServerAddress,
		Port:          cfg.Port,
		AuthKey:       domain.MaskSecret(cfg.AuthKey),
		Protocol:      cfg.Protocol(),
		ProtocolIndex: cfg.ProtocolIndex,
	}
}

// ToLogEntryResponse converts domain.LogEntry to LogEntryResponse
func ToLogEntryResponse(entry domain.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		Seq:       entry.Seq,
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Source:    entry.Source,
		Stream:    string(entry.Stream),
		Line:      entry.Line,
	}
}

// Apply overlays the request fields onto cfg
func (r SettingsRequest) Apply(cfg domain.ConnectionConfig) (domain.ConnectionConfig, error) {
	if r.ServerAddress != nil {
		cfg.ServerAddress = *r.ServerAddress
	}
	if r.Port != nil {
		cfg.Port = *r.Port
	}
	if r.AuthKey != nil {
		cfg.AuthKey = *r.AuthKey
	}
	if r.Protocol != nil {
		idx := domain.ProtocolIndex(*r.Protocol)
		if idx < 0 {
			return cfg, fmtInvalidProtocol(*r.Protocol)
		}
		cfg.ProtocolIndex = idx
	}
	return cfg, nil
}
