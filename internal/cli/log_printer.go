package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/charliek/npcctl/internal/api"
	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
)

// LogPrinter writes log entries as "[timestamp] text", coloring stderr and
// npcctl's own lines when color is enabled
type LogPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewLogPrinter creates a new LogPrinter
func NewLogPrinter(w io.Writer, color bool) *LogPrinter {
	return &LogPrinter{w: w, color: color}
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// PrintEntry prints a log entry from the local sink
func (lp *LogPrinter) PrintEntry(entry domain.LogEntry) {
	lp.print(entry.Timestamp, entry.Stream, entry.Text())
}

// PrintAPIEntry prints an API log entry response
func (lp *LogPrinter) PrintAPIEntry(entry api.LogEntryResponse) {
	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	e := domain.LogEntry{Stream: domain.Stream(entry.Stream), Line: entry.Line}
	lp.print(ts.Local(), e.Stream, e.Text())
}

func (lp *LogPrinter) print(ts time.Time, stream domain.Stream, text string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	stamp := "[" + ts.Format(domain.LogTimeLayout) + "]"
	if !lp.color {
		fmt.Fprintf(lp.w, "%s %s\n", stamp, text)
		return
	}

	color := ""
	switch stream {
	case domain.StreamStderr:
		color = constants.ColorBrightRed
	case domain.StreamSystem:
		color = constants.ColorCyan
	}
	if color == "" {
		fmt.Fprintf(lp.w, "%s%s%s %s\n", constants.ColorDim, stamp, constants.ColorReset, text)
		return
	}
	fmt.Fprintf(lp.w, "%s%s%s %s%s%s\n", constants.ColorDim, stamp, constants.ColorReset, color, text, constants.ColorReset)
}
