package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/psim-dev/psim/sim/model"
	"github.com/psim-dev/psim/sim/trace"
)

var (
	configPath string // Path to the YAML model file
	seed       int64  // Seed override for the model's random streams
	logLevel   string // Log verbosity level
	dumpPath   string // Override for the data dump file
	traceLevel string // Message trace verbosity
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "psim",
	Short: "Process-oriented discrete-event simulator for client/server queueing networks",
}

// runCmd loads a model, runs it and prints the final report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation model",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, messages)", traceLevel)
		}

		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Failed to load model: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			logrus.Infof("CLI --seed %d overrides model seed %d", seed, cfg.Seed)
			cfg.Seed = seed
		}
		if cmd.Flags().Changed("dump") {
			if cfg.Dump == nil {
				logrus.Fatalf("--dump given but the model has no dump section to take a period from")
			}
			cfg.Dump.File = dumpPath
		}

		if err := runModel(cfg, os.Stdout, trace.TraceLevel(traceLevel)); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// validateCmd checks a model file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a simulation model for errors",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Invalid model: %v", err)
		}
		fmt.Printf("%s: %d clients, %d servers, run_time %g\n", configPath, len(cfg.Clients), len(cfg.Servers), cfg.RunTime)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runModel builds and runs cfg, writing the report to out. Dump rows go to
// the configured file, or to out when no file is named.
func runModel(cfg *model.Config, out io.Writer, level trace.TraceLevel) error {
	dumpOut := out
	if cfg.Dump != nil && cfg.Dump.File != "" {
		f, err := os.Create(cfg.Dump.File)
		if err != nil {
			return fmt.Errorf("creating dump file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logrus.Errorf("closing dump file: %v", err)
			}
		}()
		dumpOut = f
	}

	sys, err := model.NewSystem(cfg, dumpOut)
	if err != nil {
		return err
	}
	var st *trace.SimulationTrace
	if level == trace.TraceLevelMessages {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: level})
		sys.SetTrace(st)
	}
	sys.Run()
	if d := sys.Dump(); d != nil && d.Err() != nil {
		return fmt.Errorf("writing data dump: %w", d.Err())
	}
	fmt.Fprintln(out, "=== Simulation Report ===")
	if err := sys.WriteReport(out); err != nil {
		return err
	}
	if st != nil {
		return writeTraceSummary(out, trace.Summarize(st))
	}
	return nil
}

func writeTraceSummary(out io.Writer, s *trace.TraceSummary) error {
	_, err := fmt.Fprintf(out, "\n=== Message Trace Summary ===\nMessages: %d (requests %d, replies %d, refusals %d)\nRefusal rate: %.4f\nMean response: %.4f, max response: %.4f\n",
		s.TotalMessages, s.Requests, s.Replies, s.Refusals, s.RefusalRate, s.MeanResponse, s.MaxResponse)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(s.TargetDistribution) {
		if _, err := fmt.Fprintf(out, "  %s: %d requests\n", name, s.TargetDistribution[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to the YAML model file")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		_ = c.MarkFlagRequired("config")
	}
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the model's random streams (overrides the model file)")
	runCmd.Flags().StringVar(&dumpPath, "dump", "", "Write the data dump to this file instead of the one in the model")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Message trace level (none, messages); messages prints a trace summary")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
