package main

import (
	"context"
	"os"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/cli"
	"github.com/aretw0/relay/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the support assistant in the terminal",
	Long: `Starts an interactive session. When the assistant wants to change customer data,
the pending tool calls are shown and the session waits: type 'y' to approve or explain
what should change instead.

Passing --session with an existing ID resumes it, including a pending approval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		customerID, _ := cmd.Flags().GetInt("customer")
		jsonMode, _ := cmd.Flags().GetBool("json")

		opts := cli.ChatOptions{
			SessionID:  sessionID,
			CustomerID: customerID,
			JSON:       jsonMode,
		}
		if !jsonMode {
			interactive := tui.IsInteractive(os.Stdout)
			if interactive {
				tui.PrintBanner(os.Stdout, relay.Version)
			}
			opts.Renderer = tui.NewRenderer(interactive, tui.Width(os.Stdout))
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		err = cli.RunChat(sigCtx, app, opts)
		if sig := sigCtx.Signal(); sig != nil {
			app.Logger.Info("chat interrupted", "signal", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("session", "", "Session ID to resume or create")
	chatCmd.Flags().Int("customer", 0, "Customer ID whose profile is loaded at session start")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
}
