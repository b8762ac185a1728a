package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tally/internal/heartbeat"
	"tally/internal/replica"
	"tally/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show live workers and backlog",
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

			registry, err := heartbeat.NewRegistry(st, replica.DaemonName, cfg.Heartbeat)
			if err != nil {
				return err
			}
			workers, err := registry.Workers(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := replica.NewSource(st).Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n\n", st.Path())

			if len(workers) == 0 {
				fmt.Fprintln(out, "No live workers.")
			} else {
				rows := make([][]string, 0, len(workers))
				for i, w := range workers {
					rows = append(rows, []string{
						strconv.Itoa(i),
						w.Hostname,
						strconv.Itoa(w.PID),
						shortWorker(w.Worker),
						humanize.Time(w.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Host", "PID", "Worker", "Last Beat"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Replicas", "Dirty", "Pending Markers", "Bytes", "Available"},
				[][]string{{
					strconv.FormatInt(stats.TotalReplicas, 10),
					strconv.FormatInt(stats.DirtyReplicas, 10),
					strconv.FormatInt(stats.PendingMarkers, 10),
					humanize.IBytes(uint64(stats.TotalBytes)),
					humanize.IBytes(uint64(stats.AvailableBytes)),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func shortWorker(worker string) string {
	if idx := strings.IndexByte(worker, '-'); idx > 0 {
		return worker[:idx]
	}
	if len(worker) > 8 {
		return worker[:8]
	}
	return worker
}
