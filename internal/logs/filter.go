package logs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charliek/npcctl/internal/domain"
)

// MaxPatternLength is the maximum allowed length for filter patterns
const MaxPatternLength = 256

// Filter is a compiled LogFilter. Patterns match the rendered text, so
// "stderr:" finds stderr lines.
type Filter struct {
	streams []domain.Stream
	match   func(text string) bool
}

// NewFilter compiles filter. Bad or oversized patterns wrap ErrInvalidPattern.
func NewFilter(filter domain.LogFilter) (*Filter, error) {
	if len(filter.Pattern) > MaxPatternLength {
		return nil, fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidPattern, MaxPatternLength)
	}

	f := &Filter{streams: filter.Streams}
	switch {
	case filter.Pattern == "":
	case filter.IsRegex:
		re, err := regexp.Compile(filter.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
		}
		f.match = re.MatchString
	default:
		pattern := filter.Pattern
		f.match = func(text string) bool { return strings.Contains(text, pattern) }
	}
	return f, nil
}

// Matches reports whether entry passes the stream and pattern criteria
func (f *Filter) Matches(entry domain.LogEntry) bool {
	if !(domain.LogFilter{Streams: f.streams}).MatchesStream(entry.Stream) {
		return false
	}
	return f.match == nil || f.match(entry.Text())
}

// FilterEntries returns the entries matching filter, oldest first
func FilterEntries(entries []domain.LogEntry, filter domain.LogFilter) ([]domain.LogEntry, error) {
	result, _, err := FilterEntriesLimit(entries, filter, 0)
	return result, err
}

// FilterEntriesLimit returns the newest limit matching entries, oldest first,
// and the number of matches before limiting. A limit of 0 keeps every match.
func FilterEntriesLimit(entries []domain.LogEntry, filter domain.LogFilter, limit int) ([]domain.LogEntry, int, error) {
	if filter.IsEmpty() {
		if limit > 0 && len(entries) > limit {
			return entries[len(entries)-limit:], len(entries), nil
		}
		return entries, len(entries), nil
	}

	f, err := NewFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	// walk newest to oldest so only the kept tail is collected
	var kept []domain.LogEntry
	total := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if !f.Matches(entries[i]) {
			continue
		}
		total++
		if limit <= 0 || len(kept) < limit {
			kept = append(kept, entries[i])
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	if kept == nil {
		kept = []domain.LogEntry{}
	}
	return kept, total, nil
}
