package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/prakriti/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "api")
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.newService(ctx)
			if err != nil {
				return err
			}
			srv := web.NewServer(svc, a.logger).HTTPServer(a.cfg.ListenAddr)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("starting server", "addr", a.cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutting down server", "timeout", a.cfg.ShutdownTimeout)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
