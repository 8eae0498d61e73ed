package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/packetcomm/internal/daemon"
)

var (
	runDuration      time.Duration
	runStatsInterval time.Duration
	runPIDFile       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an endpoint and log received packets",
	Long: `Run an endpoint: open the configured transport, register every catalog
packet and poll for incoming frames at engine.poll_frequency_hz until
interrupted. SIGHUP reloads the log settings, poll frequency and stability
change rate.

Examples:
  packetcomm run -c packetcomm.yml                 # run until SIGINT/SIGTERM
  packetcomm run -c packetcomm.yml -d 30s          # run for 30 seconds
  packetcomm run -c packetcomm.yml --stats 5s      # log stability every 5 seconds`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if runDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runDuration)
			defer cancel()
		}

		d, err := daemon.New(configFile, runPIDFile, runStatsInterval)
		if err != nil {
			return err
		}
		if err := d.Start(); err != nil {
			return err
		}
		return d.Run(ctx)
	},
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "stop after this long (0 = until interrupted)")
	runCmd.Flags().DurationVar(&runStatsInterval, "stats", time.Second, "interval between stability log lines (0 disables)")
	runCmd.Flags().StringVar(&runPIDFile, "pid-file", "", "write the process ID to this file while running")
}
