package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/pairing"
)

// pairReports reads a JSON array of reports from r and writes the matched
// pairs for status to w as JSON.
func pairReports(r io.Reader, w io.Writer, status domain.Status, threshold float64) error {
	var reports []*domain.Report
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return fmt.Errorf("decode reports: %w", err)
	}

	pairs := pairing.NewMatcher(threshold).FindMatchingPairs(reports, status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pairs)
}

func newPairCmd() *cobra.Command {
	var (
		file      string
		status    string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair a JSON snapshot of reports offline",
		Long:  `Reads a JSON array of reports ("-" for stdin) and prints the before/after pairs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := domain.Status(status)
			if !st.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}

			in := cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return pairReports(in, cmd.OutOrStdout(), st, threshold)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "Path to a JSON array of reports")
	cmd.Flags().StringVar(&status, "status", string(domain.StatusPending), "Status to pair (pending or verified)")
	cmd.Flags().Float64Var(&threshold, "threshold", pairing.DefaultThresholdMeters, "Maximum before/after distance in meters")
	return cmd
}
