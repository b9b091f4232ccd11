package cli

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/api"
	"github.com/charliek/npcctl/internal/config"
	"github.com/charliek/npcctl/internal/instance"
)

// apiShutdownTimeout bounds the graceful API shutdown
const apiShutdownTimeout = 5 * time.Second

// startAPI binds the control API and serves it in the background. The
// returned function shuts it down.
func startAPI(env *environment, cfg config.APIConfig) (func(), error) {
	serverCfg := api.ServerConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		AuthEnabled: cfg.AuthEnabled(),
	}
	if serverCfg.AuthEnabled {
		token, err := serverToken(tokenPath())
		if err != nil {
			return nil, err
		}
		serverCfg.Token = token
	}

	logger := env.logger.Named("api")
	handlers := api.NewHandlers(env.supervisor, env.store, env.logs, logger)
	server := api.NewServer(serverCfg, handlers, logger)
	if err := server.Listen(); err != nil {
		return nil, err
	}

	msg := "control api listening on http://" + server.Addr()
	if serverCfg.AuthEnabled {
		msg += " (bearer token required, see " + tokenPath() + ")"
	}
	env.logs.System(msg)
	recordInstance(server.Addr(), env.store.Path(), logger)

	go func() {
		if err := server.Serve(); err != nil {
			logger.Error("api server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("api shutdown", zap.Error(err))
		}
		if err := instance.Remove(npcctlDir()); err != nil {
			logger.Warn("removing instance state", zap.Error(err))
		}
	}, nil
}

// recordInstance writes the bound address for remote commands. Failure only
// means they need --addr.
func recordInstance(addr, settingsFile string, logger *zap.Logger) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		logger.Warn("parsing api address", zap.String("addr", addr), zap.Error(err))
		return
	}
	port, _ := strconv.Atoi(portStr)
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}

	state := &instance.State{
		PID:          os.Getpid(),
		Host:         host,
		Port:         port,
		StartedAt:    time.Now(),
		SettingsFile: settingsFile,
	}
	if err := state.Write(npcctlDir()); err != nil {
		logger.Warn("writing instance state", zap.Error(err))
	}
}
