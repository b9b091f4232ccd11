package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/instance"
)

// remoteFlags select the running npcctl to talk to
type remoteFlags struct {
	addr  string
	token string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "", "Control API address (default: the running instance, or "+defaultAPIURL()+")")
	cmd.Flags().StringVar(&f.token, "token", "", "API token (default: $"+tokenEnvVar+" or the token file)")
}

func (f *remoteFlags) client() *Client {
	return NewClient(resolveAddr(f.addr, npcctlDir()), clientToken(f.token, tokenPath()))
}

func defaultAPIURL() string {
	return fmt.Sprintf("http://%s:%d", constants.DefaultAPIHost, constants.DefaultAPIPort)
}

// resolveAddr picks the API address: the flag, then the recorded live
// instance, then the default port on loopback
func resolveAddr(flag, stateDir string) string {
	if flag != "" {
		return flag
	}
	if state, err := instance.LoadLive(stateDir); err == nil {
		return state.URL()
	}
	return defaultAPIURL()
}

func newStatusCmd() *cobra.Command {
	var (
		remote     remoteFlags
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the client status of a running npcctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := remote.client().GetStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("%w (is npcctl running with the api enabled?)", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return json.NewEncoder(out).Encode(status)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "State:\t%s\n", status.State)
			if status.PID > 0 {
				fmt.Fprintf(w, "PID:\t%d\n", status.PID)
				fmt.Fprintf(w, "Uptime:\t%s\n", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
			}
			if status.Cmd != "" {
				fmt.Fprintf(w, "Command:\t%s\n", status.Cmd)
			}
			if status.Usage != nil {
				fmt.Fprintf(w, "Memory:\t%s\n", formatBytes(status.Usage.RSSBytes))
				fmt.Fprintf(w, "CPU:\t%.1f%%\n", status.Usage.CPUPercent)
			}
			if status.LastExit != nil {
				fmt.Fprintf(w, "Last exit:\t%s, rc=%d at %s\n", status.LastExit.Status, status.LastExit.Code, status.LastExit.At)
			}
			if status.LastError != "" {
				fmt.Fprintf(w, "Last error:\t%s\n", status.LastError)
			}
			fmt.Fprintf(w, "Settings:\t%s\n", status.SettingsFile)
			return w.Flush()
		},
	}
	remote.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDisconnectCmd() *cobra.Command {
	var remote remoteFlags
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Stop the client of a running npcctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := remote.client().Disconnect(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "npc client stopped")
			return nil
		},
	}
	remote.register(cmd)
	return cmd
}

func newLogsCmd() *cobra.Command {
	var (
		remote  remoteFlags
		params  LogParams
		follow  bool
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the log of a running npcctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := remote.client()
			out := cmd.OutOrStdout()
			printer := NewLogPrinter(out, !noColor && isTerminal(out))

			resp, err := client.GetLogs(cmd.Context(), params)
			if err != nil {
				return err
			}
			for _, entry := range resp.Logs {
				printer.PrintAPIEntry(entry)
			}
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return client.StreamLogs(ctx, params, printer.PrintAPIEntry)
		},
	}
	remote.register(cmd)
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&params.Lines, "lines", "n", constants.DefaultLogLimit, "Number of lines to print")
	cmd.Flags().StringVar(&params.Stream, "stream", "", "Only these streams (stdout,stderr,system)")
	cmd.Flags().StringVar(&params.Pattern, "pattern", "", "Only lines containing this text")
	cmd.Flags().BoolVar(&params.Regex, "regex", false, "Treat --pattern as a regular expression")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats a byte count with a binary unit
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
