package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vbonduro/prakriti/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background photo assessment worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "worker")
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.RedisAddr == "" {
				return errors.New("REDIS_ADDR is required to run the worker")
			}
			svc, err := a.newService(ctx)
			if err != nil {
				return err
			}

			server := worker.NewServer(a.redisOpt(), a.cfg.WorkerConcurrency, a.logger)
			mux := worker.NewProcessor(svc, a.logger).Handler()

			if err := server.Start(mux); err != nil {
				return err
			}
			a.logger.Info("worker started", "concurrency", a.cfg.WorkerConcurrency)
			<-ctx.Done()
			server.Shutdown()
			a.logger.Info("worker stopped")
			return nil
		},
	}
}
