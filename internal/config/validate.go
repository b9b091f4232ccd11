package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/textenc"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the options for errors
func Validate(opts *Options) error {
	var errs []ValidationError

	// Validate API config
	if opts.API.Port < 0 || opts.API.Port > 65535 {
		errs = append(errs, ValidationError{"api.port", fmt.Sprintf("must be between 0 and 65535, got %d", opts.API.Port)})
	}

	if opts.Logs.BufferSize < 0 {
		errs = append(errs, ValidationError{"logs.buffer_size", "must be non-negative"})
	}

	if err := ValidateExecutable(opts.Client.Executable); err != nil {
		errs = append(errs, *err)
	}

	if _, err := textenc.New(opts.Client.Encoding); err != nil {
		errs = append(errs, ValidationError{"client.encoding", err.Error()})
	}

	for field, value := range map[string]string{
		"timeouts.start":     opts.Timeouts.Start,
		"timeouts.terminate": opts.Timeouts.Terminate,
		"timeouts.kill":      opts.Timeouts.Kill,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, ValidationError{field, fmt.Sprintf("invalid duration %q", value)})
		} else if d <= 0 {
			errs = append(errs, ValidationError{field, "must be positive"})
		}
	}

	for name := range opts.Client.Env {
		if name == "" || strings.ContainsAny(name, "= \t\n") {
			errs = append(errs, ValidationError{"client.env", fmt.Sprintf("invalid variable name %q", name)})
		}
	}

	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		// map iteration above makes the order unstable
		sort.Strings(msgs)
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	return nil
}

// ValidateExecutable checks that the client executable setting is non-empty
func ValidateExecutable(name string) *ValidationError {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "client.executable", Message: "executable cannot be empty"}
	}
	return nil
}
