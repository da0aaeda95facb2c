// Package commands implements the ledger CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/99minutos/ledger-system/internal/infrastructure/config"
	"github.com/99minutos/ledger-system/pkg/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

// Execute runs the root command until it returns or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Marketplace balance ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			cfg = loaded
			log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: "ledger",
				Caller:  cfg.IsDevelopment(),
			})
			return nil
		},
	}

	root.AddCommand(serveCmd(), seedCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		if cfg != nil {
			log.Error().Err(err).Msg("command failed")
		} else {
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
		}
		return err
	}
	return nil
}
