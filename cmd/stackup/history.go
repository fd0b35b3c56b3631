package main

import (
	"fmt"
	"time"

	"github.com/casthouse/stackup/pkg/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent deployment outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		n, _ := cmd.Flags().GetInt("limit")

		store, err := history.Open(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		outcomes, err := store.Recent(n)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Println("No deployments recorded yet.")
			return nil
		}

		for _, o := range outcomes {
			mark := "✓"
			detail := ""
			if !o.Success {
				mark = "✗"
				detail = fmt.Sprintf(" (failed at %s)", o.FailedStage)
			}
			fmt.Printf("%s %s  %-12s %-24s %6s%s\n",
				mark,
				o.FinishedAt.Format("2006-01-02 15:04:05"),
				o.Environment,
				o.Domain,
				o.Elapsed().Round(time.Second),
				detail,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("data-dir", ".stackup", "Directory holding the deployment journal")
	historyCmd.Flags().IntP("limit", "n", 10, "Number of records to show")
}
