// Package cli wires the settings store, the supervisor, the log sink, the
// TUI and the control API into the npcctl command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set during build
var Version = "dev"

// globalOptions holds the persistent flags
type globalOptions struct {
	settingsDir string
	optionsPath string
	verbose     bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "npcctl",
		Short: "Launcher for the npc tunneling client",
		Long: `npcctl launches and supervises the npc tunneling client. It supports:
  - Editing and persisting the connection settings (config.ini)
  - Starting and stopping a single npc process with bounded timeouts
  - Live, timestamped client output
  - An interactive TUI and a headless connect mode
  - An optional local HTTP control API`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.settingsDir, "settings-dir", "", "Directory holding config.ini (default: next to the executable)")
	pf.StringVar(&g.optionsPath, "options", "", "Options file (default: npcctl.yaml next to the executable or in the working directory)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetVersionTemplate("npcctl version {{.Version}}\n")

	rootCmd.AddCommand(
		newConnectCmd(g),
		newConfigCmd(g),
		newStatusCmd(),
		newDisconnectCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "npcctl version %s\n", Version)
		},
	}
}
