package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/daemon"
	"tally/internal/heartbeat"
	"tally/internal/logging"
	"tally/internal/replica"
	"tally/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		once    bool
		threads int
		sleep   int
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation daemon",
		Long: `Run reconciliation loops against the shared replica database.

Each loop registers a heartbeat and claims a deterministic partition of the
dirty-replica backlog based on its rank among live workers. Additional
processes on other hosts pointing at the same database grow the fleet and
shrink each worker's share. With --once a single cycle executes and the
process exits, which suits cron-style scheduling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("threads") {
				threads = cfg.Daemon.Threads
			}
			if !cmd.Flags().Changed("sleep") {
				sleep = cfg.Daemon.SleepSeconds
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Daemon.Limit
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = logging.WithComponent(logger, replica.DaemonName)

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			registry, err := heartbeat.NewRegistry(st, replica.DaemonName, cfg.Heartbeat)
			if err != nil {
				return err
			}

			source := replica.NewSource(st)
			reconciler := replica.NewReconciler(source, replica.NewApplier(st), limit)

			// The stop signal is set by the OS interrupt handler and read
			// by every loop; a second signal force-kills via the default
			// disposition once Stop has been delivered.
			stop := daemon.NewStopSignal()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				sig, ok := <-sigCh
				if !ok {
					return
				}
				logger.Info("interrupt received, stopping loops", logging.String("signal", sig.String()))
				stop.Stop()
				signal.Stop(sigCh)
			}()

			return daemon.Run(cmd.Context(), st, registry, reconciler.RunCycle, stop, logger, daemon.Options{
				Once:          once,
				Threads:       threads,
				SleepTime:     time.Duration(sleep) * time.Second,
				PartitionWait: time.Duration(cfg.Daemon.PartitionWaitSeconds) * time.Second,
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Execute one cycle and exit")
	cmd.Flags().IntVar(&threads, "threads", 1, "Number of loops to run in this process")
	cmd.Flags().IntVar(&sleep, "sleep", 10, "Seconds to sleep once the partition backlog is drained")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum dirty replicas fetched per cycle (0 disables throttling)")
	return cmd
}
