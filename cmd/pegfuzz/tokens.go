package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pegfuzz/internal/joiner"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/observ"
	"pegfuzz/internal/output"
	"pegfuzz/internal/randtext"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/token"
	"pegfuzz/internal/tokens"
	"pegfuzz/internal/trace"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [flags]",
	Short: "Generate random token sequences",
	Long: `Tokens ignores the productions of a grammar and emits sequences of
random tokens, joined so that they lex back to the same token kinds.`,
	Args: cobra.NoArgs,
	RunE: runTokens,
}

func init() {
	addTokensFlags(tokensCmd)
}

func addTokensFlags(cmd *cobra.Command) {
	addCommonFlags(cmd, true)
	cmd.Flags().Int("min", 0, "minimal number of tokens")
	cmd.Flags().Int("max", 0, "maximal number of tokens")
	cmd.Flags().String("join", " ", "separator inserted where adjacent tokens would merge")
	_ = cmd.MarkFlagRequired("max")
}

func sizeFlags(cmd *cobra.Command) (int, int, error) {
	minSize, err := cmd.Flags().GetInt("min")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get min flag: %w", err)
	}
	maxSize, err := cmd.Flags().GetInt("max")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get max flag: %w", err)
	}
	if maxSize < minSize {
		return 0, 0, fmt.Errorf("%w: value of '--max' must not be smaller than that of '--min'", randtext.ErrInvalidRange)
	}
	return minSize, maxSize, nil
}

func runTokens(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	minSize, maxSize, err := sizeFlags(cmd)
	if err != nil {
		return err
	}
	rep, err := newReporter(cmd)
	if err != nil {
		return err
	}

	run := trace.Begin(trace.FromContext(cmd.Context()), trace.ScopeRun, "tokens", 0)
	defer run.End("")
	timer := observ.NewTimer()

	gr, _, err := loadGrammar(cmd, timer, run, cfg.Grammar.Path)
	if err != nil {
		return err
	}
	lx, err := lexer.New(gr)
	if err != nil {
		return err
	}
	src, err := rng.Open(cfg.Fuzz.Entropy, cfg.Fuzz.Seed)
	if err != nil {
		return err
	}
	j := joiner.New(lx, cfg.Output.Separator)
	ts := randtext.Tokens(gr, tokens.NewRandom(lx, src), j, src)
	rep.Infof("initial seed: %d", cfg.Fuzz.Seed)

	em, err := newEmitter(cmd, cfg, 0, rep)
	if err != nil {
		return err
	}

	type program struct {
		toks []token.Token
		err  error
	}
	seed := cfg.Fuzz.Seed
	ctx := cmd.Context()
	loop := newLoop(ctx, cfg.Fuzz.Count, func() program {
		toks, err := ts.GenerateTokens(minSize, maxSize)
		return program{toks: toks, err: err}
	}, func(attempt int) { src.Seed(seed + uint64(attempt)) })

	err = phase(cmd, timer, run, "generate", func() (string, error) {
		err := drive(ctx, loop, func(p program) error {
			if p.err != nil {
				return p.err
			}
			index := loop.Programs() - 1
			return em.emit(ctx, output.Program{
				Index: index,
				Seed:  seed + uint64(index),
				Text:  j.Join(p.toks),
				Kinds: kindNames(gr, p.toks),
			})
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
