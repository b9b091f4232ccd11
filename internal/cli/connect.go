package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/charliek/npcctl/internal/domain"
)

// connectionFlags are the settings overrides shared by connect and config set
type connectionFlags struct {
	server   string
	port     string
	authKey  string
	protocol string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.server, "server", "s", "", "Server address")
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "Server port")
	cmd.Flags().StringVarP(&f.authKey, "vkey", "k", "", "Auth key")
	cmd.Flags().StringVarP(&f.protocol, "type", "t", "", "Protocol: tcp, udp or kcp")
}

func (f *connectionFlags) anyChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"server", "port", "vkey", "type"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// apply overlays the flags the user actually set onto cfg
func (f *connectionFlags) apply(cmd *cobra.Command, cfg domain.ConnectionConfig) (domain.ConnectionConfig, error) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerAddress = f.server
	}
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("vkey") {
		cfg.AuthKey = f.authKey
	}
	if flags.Changed("type") {
		idx := domain.ProtocolIndex(f.protocol)
		if idx < 0 {
			return cfg, fmt.Errorf("%w: unknown protocol %q", domain.ErrInvalidParams, f.protocol)
		}
		cfg.ProtocolIndex = idx
	}
	return cfg, nil
}

func newConnectCmd(g *globalOptions) *cobra.Command {
	var (
		conn    connectionFlags
		save    bool
		withAPI bool
		apiHost string
		apiPort int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Run the npc client in the foreground",
		Long: `Run the npc client with the stored settings, printing its output until
interrupted. Flags override the stored settings for this run; --save
persists them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(g, false, zapcore.WarnLevel)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			printer := NewLogPrinter(out, !noColor && isTerminal(out))
			remove := env.logs.AddListener(printer.PrintEntry)
			defer remove()

			cfg, err := env.loadSettings()
			if err != nil {
				return err
			}
			cfg, err = conn.apply(cmd, cfg)
			if err != nil {
				return err
			}
			if save {
				if err := env.store.Save(cfg); err != nil {
					return err
				}
				env.logs.System("config saved to " + env.store.Path())
			}

			apiCfg := env.options.API
			if cmd.Flags().Changed("api-host") {
				apiCfg.Host = apiHost
			}
			if cmd.Flags().Changed("api-port") {
				apiCfg.Port = apiPort
			}
			serving := withAPI || apiCfg.Enabled
			if serving {
				shutdown, err := startAPI(env, apiCfg)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ended := make(chan domain.StateChange, 1)
			removeState := env.supervisor.OnStateChange(func(change domain.StateChange) {
				if change.To == domain.ProcessStateExited || change.To == domain.ProcessStateCrashed {
					select {
					case ended <- change:
					default:
					}
				}
			})
			defer removeState()

			if err := env.supervisor.Start(ctx, cfg.Params()); err != nil {
				if !serving {
					return err
				}
				// the API can still be used to connect once the cause is fixed
			}

			if serving {
				<-ctx.Done()
				return nil
			}

			select {
			case <-ctx.Done():
				return nil
			case change := <-ended:
				if change.Exit != nil {
					return fmt.Errorf("npc client exited (%s, rc=%d)", change.Exit.Status, change.Exit.Code)
				}
				return fmt.Errorf("npc client exited")
			}
		},
	}

	conn.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Persist the effective settings before connecting")
	cmd.Flags().BoolVar(&withAPI, "api", false, "Serve the control API while connected")
	cmd.Flags().StringVar(&apiHost, "api-host", "", "Control API host (default from options)")
	cmd.Flags().IntVar(&apiPort, "api-port", 0, "Control API port (default from options)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}
