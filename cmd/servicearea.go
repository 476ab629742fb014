package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/importiq/importiq-cli/internal/servicearea"
)

var (
	areaProviderID string
	areaBudgetMin  float64
)

var serviceAreaCmd = &cobra.Command{
	Use:   "servicearea",
	Short: "Rebuild a provider's reachability polygon",
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

		router := initRouter()
		if router == nil {
			return eris.New("routing API key is required (IMPORTIQ_ROUTING_KEY)")
		}

		b := servicearea.NewBuilder(st, router, cfg.ServiceArea.Angles, cfg.ServiceArea.RadiusSteps)
		wkt, err := b.Build(ctx, areaProviderID, areaBudgetMin)
		if err != nil {
			if eris.Is(err, servicearea.ErrUndetermined) {
				fmt.Println("undetermined: fewer than 3 points reachable within budget")
				return nil
			}
			return err
		}
		fmt.Println(wkt)
		return nil
	},
}

func init() {
	serviceAreaCmd.Flags().StringVar(&areaProviderID, "provider", "", "provider id")
	serviceAreaCmd.Flags().Float64Var(&areaBudgetMin, "budget", 45, "drive-time budget in minutes")
	serviceAreaCmd.MarkFlagRequired("provider") //nolint:errcheck
	rootCmd.AddCommand(serviceAreaCmd)
}
