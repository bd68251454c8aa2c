package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/results"
)

func newHistoryCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history [name]",
		Short: "List the runs stored in a results database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := results.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			records, err := store.List(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				_, err := fmt.Fprintln(out, "no runs")
				return err
			}

			t := tablewriter.NewWriter(out)
			t.SetHeader([]string{"Name", "Time", "Binary", "Stop", "Cycles", "Retired", "IPC"})
			t.SetAutoFormatHeaders(false)
			for _, r := range records {
				stop := r.Stop
				if r.Error != "" {
					stop += ": " + r.Error
				}
				t.Append([]string{
					r.Name, r.Time.Format("2006-01-02 15:04:05"), r.Binary, stop,
					fmt.Sprint(r.Cycles), fmt.Sprint(r.Retired), fmt.Sprintf("%.4f", r.IPC),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "rvsim.db", "results database directory")
	return cmd
}
