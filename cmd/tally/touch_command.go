package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tally/internal/replica"
	"tally/internal/store"
)

func newTouchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <replica-id>...",
		Short: "Mark collection replicas dirty for reconciliation",
		Args:  cobra.MinimumNArgs(1),
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

			source := replica.NewSource(st)
			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid replica id %q", arg)
				}
				rep, err := source.GetReplica(cmd.Context(), id)
				if err != nil {
					return err
				}
				if rep == nil {
					return fmt.Errorf("replica %d not found", id)
				}
				if err := source.MarkDirty(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Marked replica %d (%s @ %s) for reconciliation\n", id, rep.Collection, rep.StoreName)
			}
			return nil
		},
	}
}
