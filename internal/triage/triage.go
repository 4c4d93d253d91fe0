// Package triage runs an external test command on generated programs and
// keeps only the programs that make it fail.
package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"pegfuzz/internal/output"
	"pegfuzz/internal/trace"
)

// ErrEmptyCommand is returned by New for a blank command line.
var ErrEmptyCommand = errors.New("empty test command")

// Tester runs Command with the program file appended as last argument. A
// non-zero exit status means the program triggers a bug.
type Tester struct {
	Command []string
	Jobs    int
}

// New splits a shell-like command line.
func New(commandLine string, jobs int) (*Tester, error) {
	args, err := SplitArgs(commandLine)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return &Tester{Command: args, Jobs: max(jobs, 1)}, nil
}

// Case is one program to test.
type Case struct {
	Index   int
	Seed    uint64
	File    string
	Program string
}

// Result is the verdict for a Case.
type Result struct {
	Case
	Bug bool
}

// Test writes the program, runs the command and removes the file unless
// the command failed.
func (t *Tester) Test(ctx context.Context, c Case) (bug bool, err error) {
	sp := trace.Begin(trace.FromContext(ctx), trace.ScopeAttempt, "triage", trace.SpanFrom(ctx)).
		WithExtra("file", c.File)
	defer func() {
		switch {
		case err != nil:
			sp.End("error: " + err.Error())
		case bug:
			sp.End("bug")
		default:
			sp.End("pass")
		}
	}()
	if err := output.WriteFile(c.File, c.Program); err != nil {
		return false, err
	}
	args := append(append([]string(nil), t.Command[1:]...), c.File)
	cmd := exec.CommandContext(ctx, t.Command[0], args...)
	err = cmd.Run()
	if err == nil {
		if rmErr := os.Remove(c.File); rmErr != nil {
			return false, fmt.Errorf("discard %s: %w", c.File, rmErr)
		}
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return true, nil
	}
	return false, fmt.Errorf("run %s on %s: %w", t.Command[0], c.File, err)
}

// Run tests a batch with at most Jobs commands in flight. Results keep the
// order of cases. Cases that share a file run one after another in batch
// order, so a pattern without #{INDEX} or #{SEED} behaves as a sequential
// run would.
func (t *Tester) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))
	if len(cases) == 0 {
		return results, nil
	}
	groups := groupByFile(cases)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(max(t.Jobs, 1), len(groups)))
	for _, idxs := range groups {
		g.Go(func() error {
			for _, i := range idxs {
				bug, err := t.Test(gctx, cases[i])
				if err != nil {
					return err
				}
				// индексы групп не пересекаются, мьютекс не нужен
				results[i] = Result{Case: cases[i], Bug: bug}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// groupByFile returns case indices grouped by file, groups ordered by their
// first case.
func groupByFile(cases []Case) [][]int {
	pos := make(map[string]int, len(cases))
	var groups [][]int
	for i, c := range cases {
		k, ok := pos[c.File]
		if !ok {
			k = len(groups)
			pos[c.File] = k
			groups = append(groups, nil)
		}
		groups[k] = append(groups[k], i)
	}
	return groups
}

// SplitArgs splits a command line at unquoted blanks. Single quotes keep
// everything literally, double quotes and backslashes escape as in sh.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inArg = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in %q", quote, line)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash in %q", line)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
