package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/importiq/importiq-cli/internal/discovery"
	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

var (
	discoverLat   float64
	discoverLng   float64
	discoverState string
	discoverLimit int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Provider discovery and verification queue",
}

var discoverRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the place directory and propose candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		pc, err := initPlaces()
		if err != nil {
			return err
		}

		job := discovery.NewJob(st, pc,
			cfg.Discovery.QueryTerms,
			cfg.Discovery.SearchRadiusKm,
			cfg.Discovery.SuitabilityCutoff,
			cfg.Discovery.RateLimitPerSecond,
		)
		rep, err := job.Run(ctx, geo.Point{Lat: discoverLat, Lng: discoverLng})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

var discoverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovery candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		filter := store.CandidateFilter{Limit: discoverLimit}
		if discoverState != "" {
			filter.State = model.CandidateState(discoverState)
		}
		candidates, err := st.ListCandidates(ctx, filter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	},
}

var discoverAdvanceCmd = &cobra.Command{
	Use:   "advance <candidate-id> <state>",
	Short: "Move a candidate through the verification state machine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, next := args[0], model.CandidateState(args[1])

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		candidates, err := st.ListCandidates(ctx, store.CandidateFilter{Limit: 1000})
		if err != nil {
			return err
		}
		for i := range candidates {
			if candidates[i].ID == id {
				return discovery.Advance(ctx, st, &candidates[i], next)
			}
		}
		return eris.Errorf("candidate %s not found", id)
	},
}

func init() {
	discoverRunCmd.Flags().Float64Var(&discoverLat, "lat", 0, "search center latitude")
	discoverRunCmd.Flags().Float64Var(&discoverLng, "lng", 0, "search center longitude")
	discoverRunCmd.MarkFlagRequired("lat") //nolint:errcheck
	discoverRunCmd.MarkFlagRequired("lng") //nolint:errcheck
	discoverListCmd.Flags().StringVar(&discoverState, "state", "", "filter by state")
	discoverListCmd.Flags().IntVar(&discoverLimit, "limit", 50, "max candidates")
	discoverCmd.AddCommand(discoverRunCmd)
	discoverCmd.AddCommand(discoverListCmd)
	discoverCmd.AddCommand(discoverAdvanceCmd)
	rootCmd.AddCommand(discoverCmd)
}
