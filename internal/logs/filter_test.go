package logs

import (
	"strings"
	"testing"
	"time"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEntryWithStream(stream domain.Stream, line string) domain.LogEntry {
	return domain.LogEntry{
		Timestamp: time.Now(),
		Source:    domain.SourceClient,
		Stream:    stream,
		Line:      line,
	}
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.LogFilter
		entry  domain.LogEntry
		want   bool
	}{
		{
			name:   "empty filter",
			filter: domain.LogFilter{},
			entry:  makeEntry("anything"),
			want:   true,
		},
		{
			name:   "stream excluded",
			filter: domain.LogFilter{Streams: []domain.Stream{domain.StreamStderr}},
			entry:  makeEntryWithStream(domain.StreamStdout, "hello"),
			want:   false,
		},
		{
			name:   "substring",
			filter: domain.LogFilter{Pattern: "tunnel"},
			entry:  makeEntry("tunnel established"),
			want:   true,
		},
		{
			name:   "substring miss",
			filter: domain.LogFilter{Pattern: "tunnel"},
			entry:  makeEntry("heartbeat"),
			want:   false,
		},
		{
			name:   "regex",
			filter: domain.LogFilter{Pattern: `^conn(ect)?ed`, IsRegex: true},
			entry:  makeEntry("connected to 10.0.0.5"),
			want:   true,
		},
		{
			name:   "pattern sees stderr prefix",
			filter: domain.LogFilter{Pattern: "stderr: dial"},
			entry:  makeEntryWithStream(domain.StreamStderr, "dial tcp: refused"),
			want:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Matches(tt.entry))
		})
	}
}

func TestFilter_InvalidRegex(t *testing.T) {
	_, err := NewFilter(domain.LogFilter{Pattern: "[invalid", IsRegex: true})
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
}

func TestFilter_PatternTooLong(t *testing.T) {
	_, err := NewFilter(domain.LogFilter{Pattern: strings.Repeat("a", MaxPatternLength+1)})
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
}

func TestFilterEntriesLimit(t *testing.T) {
	entries := []domain.LogEntry{
		makeEntryWithStream(domain.StreamStdout, "1"),
		makeEntryWithStream(domain.StreamStderr, "2"),
		makeEntryWithStream(domain.StreamStdout, "3"),
		makeEntryWithStream(domain.StreamStdout, "4"),
	}

	t.Run("no filter no limit", func(t *testing.T) {
		result, total, err := FilterEntriesLimit(entries, domain.LogFilter{}, 0)
		require.NoError(t, err)
		assert.Len(t, result, 4)
		assert.Equal(t, 4, total)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		result, total, err := FilterEntriesLimit(entries, domain.LogFilter{Streams: []domain.Stream{domain.StreamStdout}}, 2)
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "3", result[0].Line)
		assert.Equal(t, "4", result[1].Line)
		assert.Equal(t, 3, total)
	})

	t.Run("pattern without limit", func(t *testing.T) {
		result, total, err := FilterEntriesLimit(entries, domain.LogFilter{Pattern: "stderr:"}, 0)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "2", result[0].Line)
		assert.Equal(t, 1, total)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		result, total, err := FilterEntriesLimit(entries, domain.LogFilter{Pattern: "zzz"}, 5)
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
		assert.Equal(t, 0, total)
	})

	t.Run("limit without filter", func(t *testing.T) {
		result, total, err := FilterEntriesLimit(entries, domain.LogFilter{}, 1)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "4", result[0].Line)
		assert.Equal(t, 4, total)
	})
}
