package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Transit safety companion service",
	Long: `companion serves normalized real-time arrivals for supported metro
areas and handles incident reports and emergency alerts, queueing them
locally whenever the backend is unreachable.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
