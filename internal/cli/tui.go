package cli

import (
	"go.uber.org/zap/zapcore"

	"github.com/charliek/npcctl/internal/tui"
)

// runTUI runs the interactive front end until the user quits
func runTUI(g *globalOptions) error {
	env, err := newEnvironment(g, true, zapcore.InfoLevel)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.options.API.Enabled {
		shutdown, err := startAPI(env, env.options.API)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	return tui.Run(env.supervisor, env.store, env.logs, env.logger.Named("tui"))
}
