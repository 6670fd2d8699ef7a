package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vibedbg/vibedbg/internal/output"
	"github.com/vibedbg/vibedbg/internal/protocol"
	"github.com/vibedbg/vibedbg/internal/session"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Dial the pipe, wait for a heartbeat, and report the session snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer()
			client, err := dial(pipeName, clientTimeout())
			if err != nil {
				p.Error("%v", err)
				return err
			}
			defer client.Close()

			if _, err := client.waitForHeartbeat(clientTimeout()); err != nil {
				p.Error("%v", err)
				return err
			}

			p.Success("connected to %s", pipeName)
			return p.PrintSession(sessionView(true))
		},
	}
}

func disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Dial and cleanly close a connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer()
			client, err := dial(pipeName, clientTimeout())
			if err != nil {
				p.Error("%v", err)
				return err
			}
			if err := client.Close(); err != nil {
				p.Error("%v", err)
				return err
			}
			p.Success("disconnected from %s", pipeName)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Request a lightweight status command and print the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer()
			client, err := dial(pipeName, clientTimeout())
			if err != nil {
				p.Error("%v", err)
				return err
			}
			defer client.Close()

			resp, err := client.Execute("version")
			if err != nil {
				p.Error("%v", err)
				return err
			}
			return p.PrintSession(sessionView(resp.Success))
		},
	}
}

func executeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <command>",
		Short: "Send a Command envelope and print the Response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer()
			client, err := dial(pipeName, clientTimeout())
			if err != nil {
				p.Error("%v", err)
				return err
			}
			defer client.Close()

			resp, err := client.Execute(args[0])
			if err != nil {
				p.Error("%v", err)
				return err
			}
			return p.PrintCommandResult(viewFromResponse(resp))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and extension version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer()
			p.Info("vibedbgctl client version %s", clientVersion)

			client, err := dial(pipeName, clientTimeout())
			if err != nil {
				p.Warning("extension not reachable: %v", err)
				return nil
			}
			defer client.Close()

			resp, err := client.Execute("version")
			if err != nil {
				p.Warning("extension version query failed: %v", err)
				return nil
			}
			return p.PrintCommandResult(viewFromResponse(resp))
		},
	}
}

const clientVersion = "1.0.0"

// sessionView builds the CLI-facing session snapshot. ctl is the embedded
// controller's own stats/suggested-commands surface (§4.D), separate from
// the wire round-trip that confirmed connected.
func sessionView(connected bool) output.SessionView {
	stats := ctl.Stats()
	return output.SessionView{
		Connected:         connected,
		TargetRunning:     connected,
		SuggestedCommands: session.SuggestedCommands,
		Metadata: map[string]string{
			"total_commands": fmt.Sprintf("%d", stats.TotalCommands),
			"uptime":         stats.Uptime.String(),
		},
	}
}

func viewFromResponse(resp protocol.ResponsePayload) output.CommandResultView {
	return output.CommandResultView{
		RequestID:       resp.RequestID,
		Success:         resp.Success,
		Output:          resp.Output,
		ErrorMessage:    resp.ErrorMessage,
		ExecutionTimeMs: int64(resp.ExecutionTimeMS),
	}
}
