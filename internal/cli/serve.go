package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/susu3304/lootsplit/internal/api"
	"github.com/susu3304/lootsplit/internal/bot"
	"github.com/susu3304/lootsplit/internal/commands"
	"github.com/susu3304/lootsplit/internal/config"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and web API",
		Long:  "Connect to the database, run migrations, then serve the Discord bot, the reminder worker and the HTTP API until interrupted. Configuration is read from the environment and .env.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := a.logger
			if cfg.Debug() && !a.verbose {
				if logger, err = newLogger(true); err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				a.logger = logger
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.RunMigrations(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			svc := lootsplit.NewService(database, logger)
			discordBot, err := bot.New(cfg.DiscordToken, commands.NewHandler(svc, database, logger), database, logger)
			if err != nil {
				return err
			}
			server := api.New(cfg, database, svc, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return discordBot.Run(gctx) })
			g.Go(func() error { return server.Start(gctx) })

			err = g.Wait()
			logger.Info("shut down", zap.Error(err))
			return err
		},
	}
}
