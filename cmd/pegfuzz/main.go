package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pegfuzz/internal/trace"
	"pegfuzz/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "pegfuzz",
	Short: "Grammar-based program fuzzer",
	Long: `pegfuzz generates syntactically valid programs from a PEG grammar,
bounded by a maximum tree height, while tracking which grammar alternatives
have been covered.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
	PersistentPostRun: func(*cobra.Command, []string) { runCleanup() },
}

// cleanup releases the tracer and the profilers. It runs once, either
// after the command or on the error path in main.
var cleanup func()

// main registers subcommands and persistent flags and executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(fuzzCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(stringsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(versionCmd)

	addRootFlags(rootCmd)

	// первый сигнал завершает цикл генерации штатно, второй убивает процесс
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		dumpTraceRing(rootCmd)
		runCleanup()
		os.Exit(1)
	}
}

// addRootFlags registers the global flags.
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	cmd.PersistentFlags().Bool("quiet", false, "suppress [i] messages")
	cmd.PersistentFlags().Bool("timings", false, "show timing information")
	cmd.PersistentFlags().String("config", "", "path to pegfuzz.toml (default: search upwards)")
	addTraceFlags(cmd)
	addProfileFlags(cmd)
}

func preRun(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stderr)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		stopProfiling()
		return err
	}
	cleanup = func() {
		stopTracing()
		stopProfiling()
	}
	return nil
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

// dumpTraceRing prints the buffered trace events after a failure.
func dumpTraceRing(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		return
	}
	ring, ok := trace.RingOf(trace.FromContext(ctx))
	if !ok {
		return
	}
	fmt.Fprintln(os.Stderr, "trace: last events before the failure:")
	if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return term.IsTerminal(int(fd)) || isatty.IsCygwinTerminal(fd)
}
