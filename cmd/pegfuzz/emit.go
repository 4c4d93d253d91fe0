package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pegfuzz/internal/config"
	"pegfuzz/internal/fuzzer"
	"pegfuzz/internal/output"
	"pegfuzz/internal/triage"
	"pegfuzz/internal/ui"
)

// emitter hands generated programs to the output sink or, with
// --find-bugs, to the triage tester in batches of Jobs programs.
type emitter struct {
	rep     *reporter
	sink    output.Sink
	tester  *triage.Tester
	pattern output.Pattern
	pending []triage.Case

	stats  ui.Event
	events chan<- ui.Event
}

func newEmitter(cmd *cobra.Command, cfg config.Config, maxHeight int, rep *reporter) (*emitter, error) {
	e := &emitter{
		rep:     rep,
		pattern: output.NewPattern(cfg.Output.Pattern, maxHeight, cfg.Output.BatchSize),
	}
	if cfg.Triage.Command != "" {
		tester, err := triage.New(cfg.Triage.Command, cfg.Triage.Jobs)
		if err != nil {
			return nil, fmt.Errorf("find-bugs: %w", err)
		}
		e.tester = tester
		return e, nil
	}
	sink, err := output.Open(output.Options{
		Format:  cfg.Output.Format,
		Pattern: e.pattern,
		Stdout:  cmd.OutOrStdout(),
		Session: uuid.New(),
	})
	if err != nil {
		return nil, err
	}
	e.sink = sink
	return e, nil
}

// attach routes progress and status lines to the UI.
func (e *emitter) attach(events chan<- ui.Event) {
	e.events = events
	e.rep.routeTo(func(line string) {
		e.stats.Note = line
		e.publish()
	})
}

func (e *emitter) publish() {
	if e.events == nil {
		return
	}
	e.events <- e.stats
	e.stats.Note = ""
}

func (e *emitter) emit(ctx context.Context, p output.Program) error {
	if e.tester != nil {
		e.pending = append(e.pending, triage.Case{
			Index:   p.Index,
			Seed:    p.Seed,
			File:    e.pattern.Expand(p.Index, p.Seed),
			Program: p.Text,
		})
		if len(e.pending) >= e.tester.Jobs {
			return e.flush(ctx)
		}
		return nil
	}
	name, err := e.sink.Emit(p)
	if err != nil {
		return err
	}
	if name != "" {
		e.stats.File = name
	}
	return nil
}

func (e *emitter) flush(ctx context.Context) error {
	if e.tester == nil || len(e.pending) == 0 {
		return nil
	}
	results, err := e.tester.Run(ctx, e.pending)
	e.pending = e.pending[:0]
	if err != nil {
		return fmt.Errorf("find-bugs: %w", err)
	}
	for _, r := range results {
		if r.Bug {
			e.stats.Bugs++
			e.stats.File = r.File
			e.rep.Infof("program triggers a bug => keep program")
		} else {
			e.rep.Infof("program does not trigger a bug => discard program")
		}
	}
	return nil
}

// close tests the last batch unless the run was interrupted.
func (e *emitter) close(ctx context.Context) error {
	if ctx.Err() == nil {
		if err := e.flush(ctx); err != nil {
			return err
		}
	}
	if e.sink != nil {
		return e.sink.Close()
	}
	return nil
}

// drive pulls loop until it is exhausted or ctx is cancelled.
func drive[R any](ctx context.Context, loop *fuzzer.Loop[R], handle func(r R) error) error {
	for ctx.Err() == nil {
		r, ok := loop.Next()
		if !ok {
			return nil
		}
		if err := handle(r); err != nil {
			return err
		}
	}
	return nil
}

// newLoop picks a fixed-count or endless loop; beforeEach reseeds. The
// loop ends before the next attempt once ctx is cancelled.
func newLoop[R any](ctx context.Context, count int, generate func() R, beforeEach func(attempt int)) *fuzzer.Loop[R] {
	var loop *fuzzer.Loop[R]
	if count < 0 {
		loop = fuzzer.Forever(generate, beforeEach)
	} else {
		loop = fuzzer.FixedCount(count, generate, beforeEach)
	}
	return loop.StopWhen(func() bool { return ctx.Err() != nil })
}
