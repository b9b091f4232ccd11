package domain

import "time"

// ProcessState represents the current state of the supervised client.
// The supervisor moves through these states during the client's lifecycle.
type ProcessState string

const (
	// ProcessStateIdle indicates no client process exists
	ProcessStateIdle ProcessState = "idle"
	// ProcessStateStarting indicates the client is being spawned
	ProcessStateStarting ProcessState = "starting"
	// ProcessStateRunning indicates the client is actively running
	ProcessStateRunning ProcessState = "running"
	// ProcessStateStopping indicates a stop was requested and is in progress
	ProcessStateStopping ProcessState = "stopping"
	// ProcessStateExited indicates the client exited on its own
	ProcessStateExited ProcessState = "exited"
	// ProcessStateCrashed indicates the client was killed by the OS or crashed
	ProcessStateCrashed ProcessState = "crashed"
	// ProcessStateFailedToStart indicates the last start attempt failed
	ProcessStateFailedToStart ProcessState = "failed_to_start"
)

// String returns the string representation of ProcessState
func (s ProcessState) String() string {
	return string(s)
}

// IsActive returns true while a process handle exists
func (s ProcessState) IsActive() bool {
	return s == ProcessStateStarting || s == ProcessStateRunning || s == ProcessStateStopping
}

// IsRunning returns true if the client is running
func (s ProcessState) IsRunning() bool {
	return s == ProcessStateRunning
}

// ExitStatus classifies how the client terminated
type ExitStatus string

const (
	// ExitNormal is a zero exit code
	ExitNormal ExitStatus = "normal"
	// ExitAbnormal is a non-zero exit code
	ExitAbnormal ExitStatus = "abnormal"
	// ExitCrash is termination by signal or OS exception
	ExitCrash ExitStatus = "crash"
)

// ExitInfo describes how the last client process ended
type ExitInfo struct {
	Code   int        `json:"code"`
	Status ExitStatus `json:"status"`
	At     time.Time  `json:"at"`
	// Requested is true when the exit followed a Stop call
	Requested bool `json:"requested"`
}

// ResourceUsage is a point-in-time sample of the client's resource use
type ResourceUsage struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

// ProcessInfo represents the runtime state of the supervised client
type ProcessInfo struct {
	State     ProcessState   `json:"state"`
	PID       int            `json:"pid"`
	StartedAt time.Time      `json:"started_at,omitempty"`
	Cmd       string         `json:"cmd,omitempty"`
	LastExit  *ExitInfo      `json:"last_exit,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	Usage     *ResourceUsage `json:"usage,omitempty"`
}

// UptimeSeconds returns the number of seconds the client has been running
func (p ProcessInfo) UptimeSeconds() int64 {
	if p.StartedAt.IsZero() || !p.State.IsActive() {
		return 0
	}
	return int64(time.Since(p.StartedAt).Seconds())
}

// StateChange is delivered to listeners whenever the supervisor changes state
type StateChange struct {
	From      ProcessState
	To        ProcessState
	Timestamp time.Time
	Exit      *ExitInfo
	Err       error
}
