package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/nft-metadata-parser/internal/app"
	"github.com/JakeFAU/nft-metadata-parser/internal/config"
	"github.com/JakeFAU/nft-metadata-parser/internal/logging"
)

// newApp is the application factory. It is a variable so tests can
// replace it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config) (runner, error) {
	return app.NewApp(ctx, cfg)
}

// runner is the slice of app behavior the command needs.
type runner interface {
	Run(ctx context.Context) error
	Close()
}

// newParseCmd creates and configures the 'parse' subcommand, which
// runs the ingestion loop and worker pool until interrupted.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Starts the metadata parse pipeline",
		Long: `Subscribes to the configured stream of token metadata references
and processes them with a fixed pool of concurrent workers until the
process is interrupted.`,
		RunE: runParseCommand,
	}
}

func runParseCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.InitLogger(cfg.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appInstance, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer appInstance.Close()

	if err := appInstance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run parser: %w", err)
	}

	logging.L.Info("Parse command finished.", zap.String("reason", "stream ended or interrupted"))
	return nil
}
