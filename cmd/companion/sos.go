package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/emergency"
)

var sosCmd = &cobra.Command{
	Use:   "sos",
	Short: "Trigger an emergency alert",
	Long: `Dispatches an emergency alert through the delivery cascade:
datastore first, then the backup function, then a local record. An alert
that cannot be delivered anywhere is queued for replay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reporter, _ := cmd.Flags().GetString("reporter")
		details, _ := cmd.Flags().GetString("details")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		if reporter == "" {
			return fmt.Errorf("must specify a reporter using --reporter")
		}

		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var known *emergency.Location
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			known = &emergency.Location{Latitude: lat, Longitude: lon}
		}

		res, err := a.dispatcher.Dispatch(ctx, reporter, details, known)
		if err != nil {
			return err
		}
		if res.Queued {
			fmt.Printf("Alert %s could not be delivered; queued for replay.\n", res.Alert.ID)
			return nil
		}
		fmt.Printf("Alert %s delivered via %s (city: %s).\n", res.Alert.ID, res.Channel, res.Alert.CityID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sosCmd)
	sosCmd.Flags().StringP("reporter", "r", "", "Reporter identifier")
	sosCmd.Flags().StringP("details", "d", "", "Optional details")
	sosCmd.Flags().Float64("lat", 0, "Known latitude")
	sosCmd.Flags().Float64("lon", 0, "Known longitude")
}
