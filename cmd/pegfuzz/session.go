package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pegfuzz/internal/config"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/observ"
	"pegfuzz/internal/trace"
)

// addCommonFlags registers the flags shared by the generating commands.
// Their defaults come from pegfuzz.toml, so a flag only counts when set.
func addCommonFlags(cmd *cobra.Command, withGrammar bool) {
	flags := cmd.Flags()
	if withGrammar {
		flags.String("grammar", "", "path to the grammar (YAML)")
	}
	flags.Uint64("seed", 0, "initial seed (default: current time)")
	flags.String("count", "1", "number of programs, or inf")
	flags.String("out", "", "file name pattern (#{MAX_HEIGHT}, #{INDEX}, #{SEED}, #{BATCH}); stdout when empty")
	flags.Int("batch-size", 1000, "programs per #{BATCH}")
	flags.String("format", "text", "output format (text|msgpack)")
	flags.String("find-bugs", "", "test command; programs that make it fail are kept")
	flags.Int("jobs", 1, "concurrent test commands")
	flags.String("entropy", "", "draw randomness from this file instead of a PRNG")
}

// loadConfig reads pegfuzz.toml (--config or the nearest one) and applies
// the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			cfg, err = config.Discover(wd)
		}
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	str := func(name string, dst *string) error {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
		return nil
	}
	num := func(name string, dst *int) error {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
		return nil
	}

	var count string
	errs := []error{
		str("grammar", &cfg.Grammar.Path),
		num("max-height", &cfg.Grammar.MaxHeight),
		str("count", &count),
		str("strategy", &cfg.Fuzz.Strategy),
		str("mode", &cfg.Fuzz.Mode),
		str("entropy", &cfg.Fuzz.Entropy),
		str("out", &cfg.Output.Pattern),
		num("batch-size", &cfg.Output.BatchSize),
		str("join", &cfg.Output.Separator),
		str("format", &cfg.Output.Format),
		str("find-bugs", &cfg.Triage.Command),
		num("jobs", &cfg.Triage.Jobs),
	}
	if err := errors.Join(errs...); err != nil {
		return config.Config{}, err
	}
	if count != "" {
		if cfg.Fuzz.Count, err = parseCount(count); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		if cfg.Fuzz.Seed, err = flags.GetUint64("seed"); err != nil {
			return config.Config{}, fmt.Errorf("failed to get seed flag: %w", err)
		}
		cfg.Fuzz.HasSeed = true
	}
	for _, name := range []string{"only-additional-coverage", "test-parse"} {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		if name == "test-parse" {
			cfg.Triage.TestParse = v
		} else {
			cfg.Fuzz.OnlyAdditionalCoverage = v
		}
	}
	if !cfg.Fuzz.HasSeed {
		cfg.Fuzz.Seed = uint64(time.Now().UnixMilli())
		cfg.Fuzz.HasSeed = true
	}
	return cfg, nil
}

func parseCount(s string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(s), "inf") {
		return -1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid --count value %q (expected a non-negative number or inf)", s)
	}
	return n, nil
}

// loadGrammar runs the load and graph phases.
func loadGrammar(cmd *cobra.Command, timer *observ.Timer, run *trace.Span, path string) (*grammar.Grammar, *graph.Graph, error) {
	var (
		gr *grammar.Grammar
		g  *graph.Graph
	)
	err := phase(cmd, timer, run, "load", func() (string, error) {
		var err error
		gr, err = grammar.LoadFile(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d symbols", len(gr.Symbols())), nil
	})
	if err != nil {
		return nil, nil, err
	}
	_ = phase(cmd, timer, run, "graph", func() (string, error) {
		g = graph.FromGrammar(gr)
		return fmt.Sprintf("%d nodes, %d alternatives", g.NumNodes(), g.NumAlts()), nil
	})
	return gr, g, nil
}

// phase measures fn and mirrors it as a trace span under run.
func phase(cmd *cobra.Command, timer *observ.Timer, run *trace.Span, name string, fn func() (string, error)) error {
	sp := trace.Begin(trace.FromContext(cmd.Context()), trace.ScopePhase, name, run.ID())
	var note string
	err := timer.Measure(name, func() (string, error) {
		var err error
		note, err = fn()
		return note, err
	})
	if err != nil {
		sp.WithExtra("error", err.Error())
	}
	sp.End(note)
	return err
}

// finishTimings prints the phase summary when --timings is set.
func finishTimings(cmd *cobra.Command, timer *observ.Timer) error {
	show, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if !show {
		return nil
	}
	return printTimings(cmd.ErrOrStderr(), timer)
}
