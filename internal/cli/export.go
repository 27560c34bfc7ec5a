package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/config"
	"secaware-training-service/internal/report"
)

// NewExportAnalyticsCmd writes the current analytics snapshot to an xlsx file.
func NewExportAnalyticsCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-analytics",
		Short: "Export the admin analytics snapshot as an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := openBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			snap, err := app.NewAnalytics(b.results, b.items, b.users).Snapshot(ctx)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := report.WriteAnalytics(w, snap); err != nil {
				return err
			}
			if out != "-" {
				log.Printf("analytics written to %s", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "analytics.xlsx", "output file, or - for stdout")
	return cmd
}
