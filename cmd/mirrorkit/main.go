package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirrorlab/mirrorkit"
	"github.com/mirrorlab/mirrorkit/internal/config"
	"github.com/mirrorlab/mirrorkit/internal/utils"
)

var (
	cfgPath   string
	serverURL string
	verbose   bool

	// session is shared by subcommands, wired in the root PersistentPreRunE
	session *mirrorkit.Session
)

var rootCmd = &cobra.Command{
	Use:     "mirrorkit",
	Short:   "Face-swap client for a local compute service",
	Version: mirrorkit.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.Service.BaseURL = serverURL
		}

		session, err = mirrorkit.NewSession(cfg, newLogger(verbose))
		return err
	},
}

func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ~/.config/mirrorkit/config.json)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "compute service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
