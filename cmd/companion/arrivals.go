package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var arrivalsCmd = &cobra.Command{
	Use:   "arrivals <city>",
	Short: "Fetch normalized arrivals for a station",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetString("line")
		station, _ := cmd.Flags().GetString("station")
		if station == "" {
			return fmt.Errorf("must specify a station using --station")
		}

		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		city := args[0]
		source, ok := a.sources[city]
		if !ok {
			return fmt.Errorf("unsupported city %q (supported: chicago, nyc, dc, la)", city)
		}

		// Per-attempt timeouts and retries come from the source's
		// resilience envelope.
		arrivals, err := source.Arrivals(ctx, line, station)
		if err != nil {
			return fmt.Errorf("failed to fetch arrivals: %w", err)
		}
		if len(arrivals) == 0 {
			fmt.Println("No arrivals found")
			return nil
		}

		for _, arr := range arrivals {
			status := arr.Status
			if status == "" {
				status = arr.ArrivalTime
			}
			fmt.Printf("%-10s %-24s %-12s %s\n", arr.Line, arr.Destination, status, arr.Delay)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(arrivalsCmd)
	arrivalsCmd.Flags().StringP("line", "l", "", "Transit line (e.g. red)")
	arrivalsCmd.Flags().StringP("station", "s", "", "Station identifier (e.g. belmont)")
}
