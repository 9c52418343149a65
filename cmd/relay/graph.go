package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the execution graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the assistant graph. Edges into nodes that
wait for approval are dashed. With --session, the node the session resumes at is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		diagram, err := app.Engine.Mermaid(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("error rendering graph: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), diagram)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the pending node of this session")
}
