package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	garden "github.com/goliatone/go-garden"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, closeDB, err := openRepo(opts)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.Migrate(ctx); err != nil {
			return err
		}

		if opts.Server.Seed {
			if err := garden.SeedCatalog(ctx, repo.DB()); err != nil {
				return err
			}
		}

		store, closeCache, err := garden.NewSessionCache(ctx, opts.Cache)
		if err != nil {
			return err
		}
		defer closeCache()

		srv, err := garden.NewServer(opts, repo,
			garden.WithCacheStore(store),
			garden.WithServerLogger(logger),
		)
		if err != nil {
			return err
		}

		errc := make(chan error, 1)
		go func() {
			errc <- srv.Listen()
		}()

		select {
		case err := <-errc:
			srv.Close()
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", "timeout", opts.Server.ShutdownTimeout.String())

		timeout := opts.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}
