package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tally/internal/replica"
	"tally/internal/store"
)

func newReplicasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replicas",
		Short: "List collection replica aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			replicas, err := replica.NewSource(st).List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(replicas) == 0 {
				fmt.Fprintln(out, "No collection replicas.")
				return nil
			}

			headers := []string{"ID", "Collection", "Store", "State", "Files", "Available", "Bytes"}
			rows := make([][]string, 0, len(replicas))
			for _, rep := range replicas {
				rows = append(rows, []string{
					strconv.FormatInt(rep.ID, 10),
					rep.Collection,
					rep.StoreName,
					string(rep.State),
					strconv.FormatInt(rep.FileCount, 10),
					strconv.FormatInt(rep.AvailableFiles, 10),
					humanize.IBytes(uint64(rep.Bytes)),
				})
			}

			// Tab-separated output keeps pipelines simple when stdout is
			// not a terminal.
			if !isTerminal(out) {
				fmt.Fprintln(out, strings.Join(headers, "\t"))
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
				return nil
			}

			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
				alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight,
			}))
			return nil
		},
	}
}
