package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charliek/npcctl/internal/config"
	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
	"github.com/charliek/npcctl/internal/settings"
	"github.com/charliek/npcctl/internal/supervisor"
	"github.com/charliek/npcctl/internal/textenc"
)

// closeTimeout bounds the final stop when a command exits
const closeTimeout = 10 * time.Second

// environment is everything a command needs to run the client
type environment struct {
	options     *config.Options
	optionsPath string
	settingsDir string
	logger      *zap.Logger
	store       *settings.Store
	logs        *logs.Manager
	supervisor  *supervisor.Supervisor
}

// loadOptions reads the options file named by --options, or looks for
// npcctl.yaml next to the executable and then in the working directory
func loadOptions(g *globalOptions) (*config.Options, string, error) {
	if g.optionsPath != "" {
		opts, err := config.Load(g.optionsPath)
		return opts, g.optionsPath, err
	}

	var dirs []string
	if appDir, err := settings.AppDir(); err == nil {
		dirs = append(dirs, appDir)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	path := config.FindOptionsFile(dirs...)
	opts, err := config.LoadOrDefault(path)
	return opts, path, err
}

// resolveSettingsDir picks the config.ini directory: flag, then options,
// then the executable's directory
func resolveSettingsDir(g *globalOptions, opts *config.Options) string {
	if g.settingsDir != "" {
		return g.settingsDir
	}
	if opts.SettingsDir != "" {
		return opts.SettingsDir
	}
	if dir, err := settings.AppDir(); err == nil {
		return dir
	}
	return "."
}

// newLogger builds the diagnostics logger. An empty path logs to stderr.
func newLogger(verbose bool, level zapcore.Level, path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	} else {
		cfg.Encoding = "console"
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}

// newEnvironment loads the options and builds the store, sink and
// supervisor. With logToFile the diagnostics go to npcctl.log in the
// settings directory so they stay off a terminal owned by the TUI.
func newEnvironment(g *globalOptions, logToFile bool, level zapcore.Level) (*environment, error) {
	opts, optionsPath, err := loadOptions(g)
	if err != nil {
		return nil, fmt.Errorf("loading options: %w", err)
	}

	env := &environment{
		options:     opts,
		optionsPath: optionsPath,
		settingsDir: resolveSettingsDir(g, opts),
	}

	logPath := ""
	if logToFile {
		logPath = filepath.Join(env.settingsDir, constants.DefaultDiagnosticsLog)
	}
	env.logger, err = newLogger(g.verbose, level, logPath)
	if err != nil {
		// fall back to a logger that cannot fail to open
		env.logger, _ = zap.NewProduction()
		env.logger.Warn("diagnostics log unavailable", zap.String("path", logPath), zap.Error(err))
	}

	baseDir := filepath.Dir(optionsPath)
	clientEnv, err := opts.Client.ClientEnv(baseDir)
	if err != nil {
		return nil, env.abort(err)
	}
	dec, err := textenc.New(opts.Client.Encoding)
	if err != nil {
		return nil, env.abort(fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}

	env.store = settings.NewStore(env.settingsDir, env.logger.Named("settings"))
	env.logs = logs.NewManager(logs.ManagerConfig{
		BufferSize:         opts.Logs.BufferSize,
		SubscriptionBuffer: constants.DefaultSubscriptionBuffer,
	})

	supCfg := supervisor.Config{
		Executable:       opts.Client.Executable,
		WorkDir:          opts.Client.ResolveWorkDir(baseDir),
		Env:              clientEnv,
		StartTimeout:     opts.Timeouts.StartTimeout(),
		TerminateTimeout: opts.Timeouts.TerminateTimeout(),
		KillTimeout:      opts.Timeouts.KillTimeout(),
		Decoder:          dec,
	}
	env.supervisor = supervisor.New(supCfg, env.logs, supervisor.NewExecRunner(), env.logger.Named("supervisor"))

	env.logger.Debug("environment ready",
		zap.String("options", optionsPath),
		zap.String("settings", env.store.Path()),
		zap.String("encoding", dec.Name()),
	)
	return env, nil
}

// abort records err in the diagnostics log and flushes it before a failed
// newEnvironment returns
func (e *environment) abort(err error) error {
	e.logger.Error("environment setup failed", zap.String("options", e.optionsPath), zap.Error(err))
	_ = e.logger.Sync()
	return err
}

// loadSettings reads config.ini. A malformed auth key is reported in the
// sink and the default key is used.
func (e *environment) loadSettings() (domain.ConnectionConfig, error) {
	cfg, err := e.store.Load()
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidConfig) {
			return cfg, err
		}
		e.logs.System("warning: " + err.Error())
	}
	return cfg, nil
}

// Close stops the client and releases the supervisor and sink
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := e.supervisor.Close(ctx); err != nil {
		e.logger.Warn("closing supervisor", zap.Error(err))
	}
	e.logs.Close()
	_ = e.logger.Sync()
}
