package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/ingest"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

var importJSONPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load auction listings from a JSON export",
	Long:  "Backfill path for listing dumps too large for the audited pipeline. Requires the postgres driver; rows are merged by (source, lot_number).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importJSONPath)
		if err != nil {
			return eris.Wrap(err, "read listings file")
		}
		var listings []model.AuctionListing
		if err := json.Unmarshal(data, &listings); err != nil {
			return eris.Wrap(err, "parse listings file")
		}
		for i := range listings {
			if listings[i].DamageSeverity == "" {
				listings[i].DamageSeverity = ingest.ClassifyDamageSeverity(listings[i].DamageDescription)
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		pg, ok := st.(*store.PostgresStore)
		if !ok {
			return eris.New("bulk import requires the postgres store driver")
		}

		n, err := pg.BulkLoadAuctionListings(ctx, listings)
		if err != nil {
			return eris.Wrap(err, "bulk load listings")
		}

		zap.L().Info("import complete",
			zap.Int64("rows", n),
			zap.String("file", importJSONPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importJSONPath, "file", "", "path to JSON listings file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
