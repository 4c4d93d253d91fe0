package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pegfuzz/internal/trace"
)

// traceOptions are the persistent --trace* flags of one invocation.
type traceOptions struct {
	output    string
	level     string
	levelSet  bool
	mode      string
	ringSize  int
	heartbeat time.Duration
}

func addTraceFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("trace", "", "write trace events to this file (- is stderr, *.ndjson is NDJSON)")
	flags.String("trace-level", "off", "off|error|phase|detail|debug; phase when only --trace is given")
	flags.String("trace-mode", "stream", "stream|ring|both; the ring is dumped when a command fails")
	flags.Int("trace-ring-size", 4096, "events kept in the ring")
	flags.Duration("trace-heartbeat", 0, "heartbeat interval while a run is traced (0 is none)")
}

func readTraceOptions(flags *pflag.FlagSet) (traceOptions, error) {
	var (
		o    traceOptions
		errs []error
	)
	str := func(name string) string {
		v, err := flags.GetString(name)
		errs = append(errs, err)
		return v
	}
	o.output = str("trace")
	o.level = str("trace-level")
	o.mode = str("trace-mode")
	o.levelSet = flags.Changed("trace-level")
	var err error
	o.ringSize, err = flags.GetInt("trace-ring-size")
	errs = append(errs, err)
	o.heartbeat, err = flags.GetDuration("trace-heartbeat")
	errs = append(errs, err)
	for _, err := range errs {
		if err != nil {
			return traceOptions{}, fmt.Errorf("trace flags: %w", err)
		}
	}
	return o, nil
}

// resolveLevel parses --trace-level. Naming a trace file without a level
// records phases.
func (o traceOptions) resolveLevel() (trace.Level, error) {
	level, err := trace.ParseLevel(o.level)
	if err != nil {
		return trace.LevelOff, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff && o.output != "" && !o.levelSet {
		level = trace.LevelPhase
	}
	return level, nil
}

// setupTracing attaches the tracer selected by the trace flags to the
// command context and returns the function that closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	opts, err := readTraceOptions(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	level, err := opts.resolveLevel()
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(opts.mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: opts.output,
		RingSize:   opts.ringSize,
		Heartbeat:  opts.heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	var hb *trace.Heartbeat
	if opts.heartbeat > 0 {
		hb = trace.StartHeartbeat(tracer, opts.heartbeat)
	}
	started := time.Now()
	return func() { closeTracer(cmd, tracer, hb, started) }, nil
}

// closeTracer records how long the command ran, then flushes and closes.
func closeTracer(cmd *cobra.Command, tracer trace.Tracer, hb *trace.Heartbeat, started time.Time) {
	if hb != nil {
		hb.Stop()
	}
	elapsed := time.Since(started).Round(time.Millisecond)
	trace.Point(tracer, trace.ScopeRun, "exit", "after "+elapsed.String(), 0)
	for _, err := range []error{tracer.Flush(), tracer.Close()} {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}
}
