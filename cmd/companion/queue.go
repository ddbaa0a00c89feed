package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and replay the offline queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reports waiting in the offline queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.queue.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("Offline queue is empty.")
			return nil
		}
		for _, r := range pending {
			fmt.Printf("%-28s %-9s %-8s attempts=%d\n", r.ID, r.Type, r.Status, r.Attempts)
		}
		fmt.Printf("%d report(s) queued.\n", len(pending))
		return nil
	},
}

var queueFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Attempt delivery of all queued reports now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		delivered, remaining, err := a.queue.Process(ctx, a.deliver)
		if err != nil {
			return err
		}
		fmt.Printf("Delivered %d report(s), %d remaining.\n", delivered, remaining)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueFlushCmd)
}
