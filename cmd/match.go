package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/importiq/importiq-cli/internal/model"
)

var (
	matchLat      float64
	matchLng      float64
	matchRadius   float64
	matchUrgency  string
	matchServices string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find ranked service providers near a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if matchLat < -90 || matchLat > 90 || matchLng < -180 || matchLng > 180 {
			return eris.New("coordinate out of range")
		}
		urgency, err := model.ParseUrgency(matchUrgency)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		q := model.ProximityQuery{
			Latitude:    matchLat,
			Longitude:   matchLng,
			MaxRadiusKm: matchRadius,
			Urgency:     urgency,
		}
		for _, tag := range strings.Split(matchServices, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.RequiredServices = append(q.RequiredServices, tag)
			}
		}

		results, err := initEngine(st).FindProvidersNear(ctx, q)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	matchCmd.Flags().Float64Var(&matchLat, "lat", 0, "customer latitude")
	matchCmd.Flags().Float64Var(&matchLng, "lng", 0, "customer longitude")
	matchCmd.Flags().Float64Var(&matchRadius, "radius", 0, "max radius km (default 50)")
	matchCmd.Flags().StringVar(&matchUrgency, "urgency", "standard", "standard|urgent|emergency")
	matchCmd.Flags().StringVar(&matchServices, "services", "", "comma-separated required service tags")
	matchCmd.MarkFlagRequired("lat") //nolint:errcheck
	matchCmd.MarkFlagRequired("lng") //nolint:errcheck
	rootCmd.AddCommand(matchCmd)
}
