package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/prakriti/internal/config"
	"github.com/vbonduro/prakriti/internal/db"
	"github.com/vbonduro/prakriti/internal/store/pgstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			out := cmd.OutOrStdout()

			if cfg.DBDriver == "postgres" {
				pool, err := pgstore.Connect(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := pgstore.EnsureSchema(cmd.Context(), pool); err != nil {
					return err
				}
				fmt.Fprintln(out, "postgres schema is up to date")
				return nil
			}

			// Open applies pending migrations.
			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			version, dirty, err := db.Version(database)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sqlite schema at version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}
