package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Submit an incident report",
	Long: `Submits an incident report to the backend. When the backend is
unreachable the report is stored in the local offline queue and replayed
automatically once connectivity returns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reporter, _ := cmd.Flags().GetString("reporter")
		incidentType, _ := cmd.Flags().GetString("type")
		line, _ := cmd.Flags().GetString("line")
		location, _ := cmd.Flags().GetString("location")
		description, _ := cmd.Flags().GetString("description")

		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rec := report.IncidentReport{
			ReporterID:   reporter,
			IncidentType: incidentType,
			TransitLine:  line,
			LocationName: location,
			Description:  description,
		}
		res, err := a.reports.Submit(ctx, rec)
		if err != nil {
			return err
		}
		if res.Queued {
			fmt.Println("Backend unreachable; report queued locally and will be replayed.")
			return nil
		}
		fmt.Println("Report submitted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("reporter", "r", "", "Reporter identifier")
	reportCmd.Flags().StringP("type", "t", "", "Incident type (e.g. Harassment)")
	reportCmd.Flags().StringP("line", "l", "", "Transit line name")
	reportCmd.Flags().String("location", "", "Station or location name")
	reportCmd.Flags().StringP("description", "d", "", "What happened")
}
