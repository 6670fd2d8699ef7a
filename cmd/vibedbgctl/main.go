// Command vibedbgctl is the standalone CLI harness for the extension
// (component O): it exercises the full pipe protocol end-to-end without a
// running WinDbg host, by booting the extension controller (I) against a
// mock debugger adapter (C) and then talking to it as an ordinary pipe
// client, the same way an out-of-process AI assistant would.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibedbg/vibedbg/internal/config"
	"github.com/vibedbg/vibedbg/internal/debugger"
	"github.com/vibedbg/vibedbg/internal/extension"
	"github.com/vibedbg/vibedbg/internal/logging"
	"github.com/vibedbg/vibedbg/internal/output"
)

var (
	pipeName   string
	timeoutSec int
	formatStr  string
	configFile string

	ctl *extension.Controller
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vibedbgctl",
		Short: "vibedbgctl - standalone harness for the vibedbg debugger extension",
		Long: `vibedbgctl drives the vibedbg named-pipe protocol as a client, the same
way an out-of-process AI assistant would. It boots an in-process
extension controller against a mock debugger adapter, so it can be
exercised without a running WinDbg host.`,
		PersistentPreRunE:  startEmbeddedExtension,
		PersistentPostRunE: stopEmbeddedExtension,
	}

	rootCmd.PersistentFlags().StringVar(&pipeName, "pipe", `\\.\pipe\vibedbg_debug`, "named pipe to connect to")
	rootCmd.PersistentFlags().IntVar(&timeoutSec, "timeout", 10, "client timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&formatStr, "format", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (optional)")

	rootCmd.AddCommand(
		connectCmd(),
		disconnectCmd(),
		statusCmd(),
		executeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printer() *output.Printer {
	return output.NewPrinter(output.ParseFormat(formatStr))
}

func clientTimeout() time.Duration {
	return time.Duration(timeoutSec) * time.Second
}

// startEmbeddedExtension boots the controller against a mock adapter
// bound to pipeName, per spec.md §4.O: "the extension controller is
// started with a stub/mock debugger adapter in this mode." A fast
// heartbeat interval keeps `connect` responsive.
func startEmbeddedExtension(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	cfg.Pipe.Name = pipeName
	cfg.Pipe.HeartbeatInterval = 2 * time.Second
	logging.SetLevelFromString(cfg.Logging.Level)

	extension.InitMetrics(cfg)
	if err := extension.InitTracing(context.Background(), cfg); err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}

	ctl = extension.New(cfg, debugger.NewMock())
	if err := ctl.Init(context.Background()); err != nil {
		return fmt.Errorf("start extension: %w", err)
	}
	return nil
}

func stopEmbeddedExtension(cmd *cobra.Command, args []string) error {
	if ctl != nil {
		ctl.Shutdown()
	}
	return nil
}
