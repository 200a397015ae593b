// Package commands implements the flagcheck command line tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eluv-io/atomic-go/format/duration"
	"github.com/eluv-io/atomic-go/util/jsonutil"
	"github.com/eluv-io/atomic-go/util/racecheck"
)

var (
	configFile string
	logLevel   string
	logHandler string
	mode       string
	timeout    string
	cfg        = racecheck.DefaultConfig()
)

func init() {
	bindFlags(RootCmd.Flags())
}

func bindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configFile, "config", "c", "", "JSON config file, overridden by explicitly set flags")
	fs.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.StringVar(&logHandler, "log-handler", "text", "log handler: text, json, console")
	fs.StringVarP(&mode, "mode", "m", string(cfg.Mode), fmt.Sprintf("contention mode, one of %v", racecheck.Modes))
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "concurrent goroutines per round")
	fs.IntVarP(&cfg.Rounds, "rounds", "r", cfg.Rounds, "number of rounds")
	fs.IntVar(&cfg.Ops, "ops", cfg.Ops, "toggles per worker and round in toggle mode")
	fs.IntVar(&cfg.MaxSpins, "max-spins", cfg.MaxSpins, "CAS attempts before a spin loop gives up, 0 for unbounded")
	fs.Float64Var(&cfg.FailureRate, "failure-rate", cfg.FailureRate, "probability of spurious weak CAS failures [0, 1)")
	fs.StringVarP(&timeout, "timeout", "t", cfg.Timeout.String(), "max duration of a single round")
}

// RootCmd is the flagcheck root command.
var RootCmd = &cobra.Command{
	Use:   "flagcheck",
	Short: "Stress-test the atomic boolean flag",
	Long: `flagcheck lets a number of goroutines contend on a single atomic boolean
flag and verifies the outcome of every round: no lost updates for get-and-set,
a single winner for compare-and-set and toggle parity for toggle.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		return run(ctx, cmd.Flags(), cmd.OutOrStdout())
	},
}

func run(ctx context.Context, fs *pflag.FlagSet, out io.Writer) error {
	elog.SetDefault(&elog.Config{
		Level:   logLevel,
		Handler: logHandler,
	})

	c, err := resolveConfig(fs)
	if err != nil {
		return err
	}

	report, err := racecheck.Run(ctx, c)
	if report != nil {
		_, _ = fmt.Fprintln(out, jsonutil.MarshalString(report))
	}
	return err
}

// resolveConfig returns the run configuration: defaults, overridden by the
// config file if any, overridden by the flags that were set explicitly.
func resolveConfig(fs *pflag.FlagSet) (*racecheck.Config, error) {
	c := racecheck.DefaultConfig()
	if configFile != "" {
		err := jsonutil.UnmarshalFile(configFile, c)
		if err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "mode":
			c.Mode = racecheck.Mode(mode)
		case "workers":
			c.Workers = cfg.Workers
		case "rounds":
			c.Rounds = cfg.Rounds
		case "ops":
			c.Ops = cfg.Ops
		case "max-spins":
			c.MaxSpins = cfg.MaxSpins
		case "failure-rate":
			c.FailureRate = cfg.FailureRate
		case "timeout":
			var d duration.Spec
			d, err = duration.FromString(timeout)
			if err == nil {
				c.Timeout = d
			}
		}
	})
	if err != nil {
		return nil, errors.E("resolveConfig", errors.K.Invalid, err, "flag", "timeout")
	}
	return c, c.Validate()
}

// Execute runs the root command and exits with code 1 on failure.
func Execute() {
	start := time.Now()
	if err := RootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "flagcheck failed after %s: %v\n",
			duration.Spec(time.Since(start)).Round(), err)
		os.Exit(1)
	}
}
