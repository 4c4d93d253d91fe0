package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	infoPrefix = color.New(color.FgCyan).SprintFunc()
	warnPrefix = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// reporter prints the [i]/[!] status lines. While the progress UI owns the
// terminal the lines are routed to it instead.
type reporter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	notes func(string)
}

func newReporter(cmd *cobra.Command) (*reporter, error) {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return &reporter{out: cmd.ErrOrStderr(), quiet: quiet}, nil
}

func (r *reporter) Infof(format string, args ...any) {
	if r.quiet {
		return
	}
	r.line(infoPrefix("[i]"), format, args...)
}

// Warnf is never silenced by --quiet.
func (r *reporter) Warnf(format string, args ...any) {
	r.line(warnPrefix("[!]"), format, args...)
}

func (r *reporter) line(prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notes != nil {
		r.notes(prefix + " " + msg)
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", prefix, msg)
}

func (r *reporter) routeTo(notes func(string)) {
	r.mu.Lock()
	r.notes = notes
	r.mu.Unlock()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
