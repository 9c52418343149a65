package main

import (
	"fmt"
	"os"

	"github.com/aretw0/relay/internal/cli"
	"github.com/aretw0/relay/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay is a multi-assistant customer support engine",
	Long: `Relay routes a customer conversation between a primary assistant and specialist
assistants, runs their tools and pauses before sensitive changes until a human approves them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default relay.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("provider", "", "Completion provider: scripted, openai or anthropic")
	rootCmd.PersistentFlags().String("script", "", "Script replayed by the scripted provider")
	rootCmd.PersistentFlags().String("store", "", "Checkpoint store: memory, file or redis")
}

// loadConfig resolves the configuration, applying flags last.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"log-level": &cfg.Log.Level,
		"provider":  &cfg.Provider.Name,
		"script":    &cfg.Provider.Script,
		"store":     &cfg.Store.Kind,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads the configuration and wires the engine.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cfg, logger)
}
