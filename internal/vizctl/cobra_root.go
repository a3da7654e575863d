package vizctl

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Config carries the persistent flag values shared by every subcommand.
type Config struct {
	Addr   string
	LogLvl string
}

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command {
	return buildRootCmdWith(&Config{Addr: envStr("VIZCORE_ADDR", ":8080"), LogLvl: "info"})
}

// buildRootCmdWith constructs the Cobra command tree wired to the fn* actions.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "vizctl",
		Short:         "Inspect and exercise a running rendering core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("addr", cfg.Addr, "Address of the vizcored debug API (defaults VIZCORE_ADDR or :8080)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults VIZCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Print one diagnostic snapshot",
		Example: "  vizctl status\n  vizctl --addr :9090 status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnStatus(cfg)
		},
	}
	root.AddCommand(statusCmd)

	var watchInterval time.Duration
	watchCmd := &cobra.Command{
		Use:     "watch",
		Short:   "Poll the snapshot until interrupted",
		Example: "  vizctl watch\n  vizctl watch --interval 250ms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnWatch(cfg, watchInterval)
		},
	}
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Poll interval")
	root.AddCommand(watchCmd)

	var benchFrames, benchEntities int
	var benchFrame time.Duration
	benchCmd := &cobra.Command{
		Use:     "bench",
		Short:   "Run an in-process synthetic frame sequence and print the resulting snapshot",
		Example: "  vizctl bench\n  vizctl bench --frames 2000 --entities 1000 --frame 33ms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnBench(cfg, benchFrames, benchEntities, benchFrame)
		},
	}
	benchCmd.Flags().IntVar(&benchFrames, "frames", 600, "Frames to simulate")
	benchCmd.Flags().IntVar(&benchEntities, "entities", 300, "Synthetic entity count")
	benchCmd.Flags().DurationVar(&benchFrame, "frame", 16*time.Millisecond, "Simulated frame duration")
	root.AddCommand(benchCmd)

	return root
}

// Execute runs the CLI with the given arguments.
func Execute(args []string) {
	root := buildRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
