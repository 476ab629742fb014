package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
)

var (
	availProviderID string
	availDay        string
	availStatus     string
	availCapacity   int
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Provider capacity snapshots",
}

var availabilitySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Record a provider's capacity for one weekday",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		day, err := model.ParseWeekday(availDay)
		if err != nil {
			return err
		}
		status, err := model.ParseDayStatus(availStatus)
		if err != nil {
			return err
		}
		if availCapacity < 0 || availCapacity > 100 {
			return eris.Errorf("capacity %d out of range [0,100]", availCapacity)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := st.GetProvider(ctx, availProviderID)
		if err != nil {
			return err
		}
		if p == nil {
			return eris.Errorf("provider %s not found", availProviderID)
		}

		snap := model.AvailabilitySnapshot{
			ProviderID:      p.ID,
			DayOfWeek:       day,
			CapacityPercent: availCapacity,
			Status:          status,
		}
		if err := st.SetAvailability(ctx, snap); err != nil {
			return err
		}
		zap.L().Info("availability recorded",
			zap.String("provider", p.ID),
			zap.String("day", day.String()),
			zap.String("status", string(status)),
			zap.Int("capacity_percent", availCapacity),
		)
		return nil
	},
}

var availabilityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a provider's capacity snapshots",
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

		snaps, err := st.GetAvailability(ctx, availProviderID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	},
}

func init() {
	availabilitySetCmd.Flags().StringVar(&availProviderID, "provider", "", "provider id")
	availabilitySetCmd.Flags().StringVar(&availDay, "day", "", "weekday name, e.g. monday")
	availabilitySetCmd.Flags().StringVar(&availStatus, "status", "open", "open, closing_soon, closed, busy, unknown")
	availabilitySetCmd.Flags().IntVar(&availCapacity, "capacity", 100, "free capacity percent")
	availabilitySetCmd.MarkFlagRequired("provider") //nolint:errcheck
	availabilitySetCmd.MarkFlagRequired("day")      //nolint:errcheck

	availabilityShowCmd.Flags().StringVar(&availProviderID, "provider", "", "provider id")
	availabilityShowCmd.MarkFlagRequired("provider") //nolint:errcheck

	availabilityCmd.AddCommand(availabilitySetCmd, availabilityShowCmd)
	rootCmd.AddCommand(availabilityCmd)
}
