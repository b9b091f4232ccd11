package domain

import (
	"fmt"
	"time"
)

// Stream represents the origin stream of a log line
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	// StreamSystem marks lines written by npcctl itself
	StreamSystem Stream = "system"
)

// String returns the string representation of Stream
func (s Stream) String() string {
	return string(s)
}

// Log sources
const (
	SourceApp    = "app"
	SourceClient = "npc"
)

// LogTimeLayout is the timestamp layout used when rendering log lines
const LogTimeLayout = "2006-01-02 15:04:05"

// StderrPrefix marks client stderr lines when rendered
const StderrPrefix = "stderr: "

// LogEntry represents a single line in the log sink
type LogEntry struct {
	// Seq is assigned by the sink and increases by one per entry
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Stream    Stream    `json:"stream"`
	Line      string    `json:"line"`
}

// Text returns the line with the stderr prefix applied
func (e LogEntry) Text() string {
	if e.Stream == StreamStderr {
		return StderrPrefix + e.Line
	}
	return e.Line
}

// String renders the entry as "[timestamp] text"
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp.Format(LogTimeLayout), e.Text())
}

// LogFilter defines criteria for filtering log entries
type LogFilter struct {
	Streams []Stream // Filter to specific streams
	Pattern string   // Filter by pattern match
	IsRegex bool     // If true, Pattern is a regex; otherwise substring match
}

// IsEmpty returns true if no filters are set
func (f LogFilter) IsEmpty() bool {
	return len(f.Streams) == 0 && f.Pattern == ""
}

// MatchesStream returns true if the stream matches the filter
func (f LogFilter) MatchesStream(s Stream) bool {
	if len(f.Streams) == 0 {
		return true
	}
	for _, want := range f.Streams {
		if want == s {
			return true
		}
	}
	return false
}

// LogStats contains statistics about the log buffer
type LogStats struct {
	TotalEntries int
	BufferSize   int
	Subscribers  int
}
