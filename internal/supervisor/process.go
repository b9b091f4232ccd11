package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
	"github.com/charliek/npcctl/internal/textenc"
)

// outputDrainTimeout is the maximum time to wait for output readers to finish
// after the client exits. Anything the client spawned may still hold the pipes
// open; we stop reading after this long.
const outputDrainTimeout = 2 * time.Second

// instance is one launch of the client. It owns the process handle from the
// moment the process starts until it has been reaped and its output drained.
type instance struct {
	proc      Process
	startedAt time.Time

	// done is closed after exit is set
	done chan struct{}
	exit *domain.ExitInfo

	// outputWg tracks completion of output reader goroutines
	outputWg sync.WaitGroup
}

func newInstance(proc Process) *instance {
	return &instance{
		proc:      proc,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// relay starts copying both output streams into the sink
func (in *instance) relay(sink *logs.Manager, dec *textenc.Decoder) {
	in.outputWg.Add(2)
	go func() {
		defer in.outputWg.Done()
		readOutput(in.proc.Stdout(), domain.StreamStdout, sink, dec)
	}()
	go func() {
		defer in.outputWg.Done()
		readOutput(in.proc.Stderr(), domain.StreamStderr, sink, dec)
	}()
}

// wait blocks until the process exits and its output is drained, then
// releases the output streams
func (in *instance) wait(sink *logs.Manager) domain.ExitInfo {
	code, status := exitDetails(in.proc.Wait())

	outputDone := make(chan struct{})
	go func() {
		in.outputWg.Wait()
		close(outputDone)
	}()

	select {
	case <-outputDone:
	case <-time.After(outputDrainTimeout):
		sink.System("output capture timed out (some client output may be missing)")
	}
	in.proc.Release()

	return domain.ExitInfo{
		Code:   code,
		Status: status,
		At:     time.Now(),
	}
}

// finish publishes the exit and closes done
func (in *instance) finish(exit domain.ExitInfo) {
	in.exit = &exit
	close(in.done)
}

// exited returns the exit info if the instance has finished
func (in *instance) exited() (*domain.ExitInfo, bool) {
	select {
	case <-in.done:
		exit := *in.exit
		return &exit, true
	default:
		return nil, false
	}
}

// readOutput reads from a stream and writes one sink entry per non-blank line
func readOutput(r io.Reader, stream domain.Stream, sink *logs.Manager, dec *textenc.Decoder) {
	if r == nil {
		return
	}

	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	scanner.Buffer(make([]byte, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)

	for scanner.Scan() {
		line := strings.TrimRightFunc(dec.Decode(scanner.Bytes()), unicode.IsSpace)
		if line == "" {
			continue
		}
		sink.Append(domain.SourceClient, stream, line)
	}

	// Release closes the streams after the drain timeout; that is not a read error
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		perr := domain.NewProcessError(domain.ProcessErrorRead, fmt.Errorf("%s: %w", stream, err))
		sink.System("process error: " + perr.Error())
	}
}

// describeExit renders an exit for the log, e.g. "abnormal exit, rc=1"
func describeExit(exit domain.ExitInfo) string {
	switch exit.Status {
	case domain.ExitNormal:
		return fmt.Sprintf("normal exit, rc=%d", exit.Code)
	case domain.ExitCrash:
		return fmt.Sprintf("crashed, rc=%d", exit.Code)
	default:
		return fmt.Sprintf("abnormal exit, rc=%d", exit.Code)
	}
}
