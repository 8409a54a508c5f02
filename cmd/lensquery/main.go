package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vbonduro/lensquery/internal/config"
	"github.com/vbonduro/lensquery/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lensquery",
		Short: "Multimodal query orchestrator for AR glasses",
		Long:  `Sends the wearer's prompt and camera frame to a vision provider and publishes the answer to the display, speech and diagnostic surfaces.`,
	}
	root.SilenceUsage = true
	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

// setup loads configuration and the logger shared by every subcommand.
func setup() (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, cleanup, nil
}
