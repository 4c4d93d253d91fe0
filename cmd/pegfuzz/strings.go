package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pegfuzz/internal/observ"
	"pegfuzz/internal/output"
	"pegfuzz/internal/randtext"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/trace"
)

var stringsCmd = &cobra.Command{
	Use:   "strings [flags]",
	Short: "Generate random character strings",
	Long: `Strings emits strings of random characters, a grammar-free baseline
for comparing against the grammar-based generators.`,
	Args: cobra.NoArgs,
	RunE: runStrings,
}

func init() {
	addStringsFlags(stringsCmd)
}

func addStringsFlags(cmd *cobra.Command) {
	addCommonFlags(cmd, false)
	cmd.Flags().Int("min", 0, "minimal number of characters")
	cmd.Flags().Int("max", 0, "maximal number of characters")
	cmd.Flags().String("chars", randtext.DefaultCharset, "character set, ranges like a-z allowed")
	_ = cmd.MarkFlagRequired("max")
}

func runStrings(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}
	minSize, maxSize, err := sizeFlags(cmd)
	if err != nil {
		return err
	}
	chars, err := cmd.Flags().GetString("chars")
	if err != nil {
		return fmt.Errorf("failed to get chars flag: %w", err)
	}
	charset, err := randtext.ParseCharset(chars)
	if err != nil {
		return err
	}
	rep, err := newReporter(cmd)
	if err != nil {
		return err
	}

	run := trace.Begin(trace.FromContext(cmd.Context()), trace.ScopeRun, "strings", 0)
	defer run.End("")
	timer := observ.NewTimer()

	src, err := rng.Open(cfg.Fuzz.Entropy, cfg.Fuzz.Seed)
	if err != nil {
		return err
	}
	gen := randtext.Strings(src)
	rep.Infof("initial seed: %d", cfg.Fuzz.Seed)

	em, err := newEmitter(cmd, cfg, 0, rep)
	if err != nil {
		return err
	}

	type program struct {
		text string
		err  error
	}
	seed := cfg.Fuzz.Seed
	ctx := cmd.Context()
	loop := newLoop(ctx, cfg.Fuzz.Count, func() program {
		text, err := gen.Generate(minSize, maxSize, charset)
		return program{text: text, err: err}
	}, func(attempt int) { src.Seed(seed + uint64(attempt)) })

	err = phase(cmd, timer, run, "generate", func() (string, error) {
		err := drive(ctx, loop, func(p program) error {
			if p.err != nil {
				return p.err
			}
			index := loop.Programs() - 1
			return em.emit(ctx, output.Program{Index: index, Seed: seed + uint64(index), Text: p.text})
		})
		if closeErr := em.close(ctx); err == nil {
			err = closeErr
		}
		return fmt.Sprintf("%d programs", loop.Programs()), err
	})
	if err != nil {
		return err
	}
	return finishTimings(cmd, timer)
}
