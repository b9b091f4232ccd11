package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/settings"
)

// openStore opens config.ini without starting anything else
func openStore(g *globalOptions) (*settings.Store, *zap.Logger, error) {
	opts, _, err := loadOptions(g)
	if err != nil {
		return nil, nil, fmt.Errorf("loading options: %w", err)
	}
	logger, err := newLogger(g.verbose, zapcore.WarnLevel, "")
	if err != nil {
		logger = zap.NewNop()
	}
	return settings.NewStore(resolveSettingsDir(g, opts), logger), logger, nil
}

// settingsView is the printable form of the settings
type settingsView struct {
	Path          string `json:"path"`
	Exists        bool   `json:"exists"`
	ServerAddress string `json:"server_address"`
	Port          string `json:"port"`
	AuthKey       string `json:"auth_key"`
	Protocol      string `json:"protocol"`
	ProtocolIndex int    `json:"protocol_index"`
	Warning       string `json:"warning,omitempty"`
}

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored connection settings",
	}

	var (
		showKey    bool
		jsonOutput bool
	)
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, logger, err := openStore(g)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := store.Load()
			view := settingsView{
				Path:          store.Path(),
				Exists:        store.Exists(),
				ServerAddress: cfg.ServerAddress,
				Port:          cfg.Port,
				AuthKey:       domain.MaskSecret(cfg.AuthKey),
				Protocol:      cfg.Protocol(),
				ProtocolIndex: cfg.ProtocolIndex,
			}
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					return err
				}
				view.Warning = err.Error()
			}
			if showKey {
				view.AuthKey = cfg.AuthKey
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "File:\t%s\n", view.Path)
			if !view.Exists {
				fmt.Fprintf(w, "\t(not found, showing defaults)\n")
			}
			fmt.Fprintf(w, "Server:\t%s\n", view.ServerAddress)
			fmt.Fprintf(w, "Port:\t%s\n", view.Port)
			fmt.Fprintf(w, "Auth key:\t%s\n", view.AuthKey)
			fmt.Fprintf(w, "Protocol:\t%s\n", view.Protocol)
			if view.Warning != "" {
				fmt.Fprintf(w, "Warning:\t%s\n", view.Warning)
			}
			return w.Flush()
		},
	}
	showCmd.Flags().BoolVar(&showKey, "show-key", false, "Print the auth key unmasked")
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	var conn connectionFlags
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change and save settings",
		Long:  "Change the given settings and save config.ini. Settings not named keep their stored values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !conn.anyChanged(cmd) {
				return errors.New("nothing to set: pass at least one of --server, --port, --vkey, --type")
			}
			store, logger, err := openStore(g)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := store.Load()
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				return err
			}
			cfg, err = conn.apply(cmd, cfg)
			if err != nil {
				return err
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config saved to %s\n", store.Path())
			return nil
		},
	}
	conn.register(setCmd)

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(g)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Path())
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd, pathCmd)
	return cmd
}
