package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
)

// demoReports are the sample sites shown on a fresh dashboard: one cleanup
// awaiting review and one site still waiting for cleanup.
func demoReports() []*domain.Report {
	return []*domain.Report{
		{
			Kind:        domain.KindBefore,
			Location:    &geo.Coordinate{Lat: 28.6139, Lng: 77.209},
			Description: "Heavy plastic waste near park",
			Contributor: "John D.",
		},
		{
			Kind:        domain.KindAfter,
			Location:    &geo.Coordinate{Lat: 28.6139, Lng: 77.209},
			Description: "Park cleaned",
			Contributor: "John D.",
		},
		{
			Kind:        domain.KindBefore,
			Location:    &geo.Coordinate{Lat: 28.6215, Lng: 77.215},
			Description: "Glass bottles on street",
			Contributor: "Sarah M.",
		},
	}
}

type seeder interface {
	Create(ctx context.Context, r *domain.Report) (*domain.Report, error)
	List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error)
}

// seed inserts the demo reports unless reports already exist and force is
// false. It returns the number of reports created.
func seed(ctx context.Context, repo seeder, force bool) (int, error) {
	existing, err := repo.List(ctx, domain.ReportFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 && !force {
		return 0, nil
	}

	n := 0
	for _, r := range demoReports() {
		if _, err := repo.Create(ctx, r); err != nil {
			return n, fmt.Errorf("failed to seed report: %w", err)
		}
		n++
	}
	return n, nil
}

func newSeedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo reports into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "seed")
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := seed(ctx, a.reports, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reports\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Seed even when reports already exist")
	return cmd
}
