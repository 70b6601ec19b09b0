package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/staybridge/booking-confirmation/internal/app"
	"github.com/staybridge/booking-confirmation/internal/config"
	"github.com/staybridge/booking-confirmation/internal/services"
)

func newBookingCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Inspect and resolve finalized bookings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <partner-order-id>",
		Short: "Print the stored reservation",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(verbose, func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			record, err := a.Orchestrator.GetReservation(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"reservation": record,
				"result":      services.ResultFromRecord(record),
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recheck <partner-order-id>",
		Short: "Ask the supplier again about a pending booking",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(verbose, func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			result, err := a.Orchestrator.RecheckBooking(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "events <partner-order-id>",
		Short: "Print the audit trail of a booking",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(verbose, func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			entries, err := a.Audits.ListByPartnerOrderID(ctx, args[0], "", 500)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep over pending bookings now",
		Args:  cobra.NoArgs,
		RunE: withApp(verbose, func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			summary, err := a.Cron.RunOnce(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		}),
	})

	return cmd
}

type appRunFunc func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error

// withApp loads configuration and wires the application around fn
func withApp(verbose *bool, fn appRunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := app.New(ctx, cfg, newLogger(*verbose))
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, a, cmd, args)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
