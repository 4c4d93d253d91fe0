package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"pegfuzz/internal/analysis"
	"pegfuzz/internal/config"
	"pegfuzz/internal/coverage"
	"pegfuzz/internal/cst"
	"pegfuzz/internal/fuzzer"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/joiner"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/observ"
	"pegfuzz/internal/output"
	"pegfuzz/internal/parser"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/selection"
	"pegfuzz/internal/token"
	"pegfuzz/internal/tokens"
	"pegfuzz/internal/trace"
	"pegfuzz/internal/ui"
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz [flags]",
	Short: "Generate programs from a grammar",
	Long: `Fuzz expands the start symbol of a grammar into random syntax trees no
taller than --max-height and prints the joined programs, writes them to
files, or keeps only those that make a test command fail.`,
	Args: cobra.NoArgs,
	RunE: runFuzz,
}

func init() {
	addFuzzFlags(fuzzCmd)
}

func addFuzzFlags(cmd *cobra.Command) {
	addCommonFlags(cmd, true)
	cmd.Flags().Int("max-height", 0, "maximum tree height")
	cmd.Flags().String("strategy", "random", "selection strategy expression, e.g. uncov(random, smallest(0.9))")
	cmd.Flags().String("mode", "tree", "generation mode (tree|tokens)")
	cmd.Flags().Bool("only-additional-coverage", false, "keep only programs that cover new alternatives")
	cmd.Flags().String("join", " ", "separator inserted where adjacent tokens would merge")
	cmd.Flags().Bool("test-parse", false, "re-lex and parse every program instead of printing it")
	cmd.Flags().Bool("print-graph", false, "print the grammar graph in DOT format")
	cmd.Flags().Bool("print-min-heights", false, "print the minimal height of every symbol")
	cmd.Flags().Bool("print-min-depths", false, "print the minimal depth of every symbol")
	addUIFlag(cmd)
}

// generated is one program of the fuzz loop.
type generated struct {
	text string
	toks []token.Token
}

func runFuzz(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Grammar.MaxHeight < 1 {
		return fmt.Errorf("a positive --max-height is required")
	}
	rep, err := newReporter(cmd)
	if err != nil {
		return err
	}

	tracer := trace.FromContext(cmd.Context())
	run := trace.Begin(tracer, trace.ScopeRun, "fuzz", 0).WithExtra("grammar", cfg.Grammar.Path)
	defer run.End("")
	timer := observ.NewTimer()

	gr, g, err := loadGrammar(cmd, timer, run, cfg.Grammar.Path)
	if err != nil {
		return err
	}
	if err := printRequested(cmd, g); err != nil {
		return err
	}
	_ = phase(cmd, timer, run, "analyses", func() (string, error) {
		reachable := analysis.Reachable(g, true)
		if names := unreachableSymbols(g, reachable); len(names) > 0 {
			rep.Warnf("WARNING: grammar graph contains unreachable nodes: %v", names)
		}
		minMax := analysis.MinMaxHeight(g, analysis.ReachableNodes(g, analysis.MinHeights(g)))
		if cfg.Grammar.MaxHeight < minMax {
			rep.Warnf("WARNING: 'maxHeight' of %d does not suffice to cover all nodes (requires a 'maxHeight' of at least %d)",
				cfg.Grammar.MaxHeight, minMax)
		}
		return "min-max height " + heightString(minMax), nil
	})

	s, err := newFuzzSession(cfg, gr, g, tracer)
	if err != nil {
		return err
	}
	rep.Infof("initial seed: %d", cfg.Fuzz.Seed)

	em, err := newEmitter(cmd, cfg, cfg.Grammar.MaxHeight, rep)
	if err != nil {
		return err
	}

	onStdout := cfg.Output.Pattern == "" && !cfg.Triage.TestParse

	err = phase(cmd, timer, run, "generate", func() (string, error) {
		work := func(ctx context.Context, events chan<- ui.Event) error {
			if events != nil {
				em.attach(events)
			}
			return s.loop(trace.WithSpan(ctx, run.ID()), cfg, em, rep)
		}
		var err error
		if uiModeOf(cmd).progressUI(onStdout, stdoutIsTerminal()) {
			err = runWithUI(cmd.Context(), "fuzzing "+cfg.Grammar.Path, work)
			em.rep.routeTo(nil)
		} else {
			err = work(cmd.Context(), nil)
		}
		return fmt.Sprintf("%d programs", s.programs), err
	})
	if err != nil {
		return err
	}

	attempts, programs := s.attempts, s.programs
	rep.Infof("required %d attempt%s for %d program%s", attempts, plural(attempts), programs, plural(programs))
	run.WithExtra("programs", strconv.Itoa(programs))
	return finishTimings(cmd, timer)
}

// fuzzSession wires the generator for one run of the fuzz command.
type fuzzSession struct {
	gr     *grammar.Grammar
	src    rng.Source
	lx     *lexer.Lexer
	joiner *joiner.Joiner
	cov    *coverage.Alternatives
	fz     *fuzzer.Fuzzer
	parser *parser.Parser
	tracer trace.Tracer

	attempts int
	programs int
}

func newFuzzSession(cfg config.Config, gr *grammar.Grammar, g *graph.Graph, tracer trace.Tracer) (*fuzzSession, error) {
	src, err := rng.Open(cfg.Fuzz.Entropy, cfg.Fuzz.Seed)
	if err != nil {
		return nil, err
	}
	lx, err := lexer.New(gr)
	if err != nil {
		return nil, err
	}
	cov := coverage.New(g)
	strategy, err := selection.Parse(cfg.Fuzz.Strategy, selection.Env{Graph: g, Coverage: cov, Source: src})
	if err != nil {
		return nil, err
	}
	fz, err := fuzzer.New(g, cfg.Grammar.MaxHeight, fuzzer.Options{
		Tokens:   tokens.NewRandom(lx, src),
		Strategy: strategy,
		Coverage: cov,
		Tracer:   tracer,
	})
	if err != nil {
		return nil, err
	}
	s := &fuzzSession{
		gr:     gr,
		src:    src,
		lx:     lx,
		joiner: joiner.New(lx, cfg.Output.Separator),
		cov:    cov,
		fz:     fz,
		tracer: tracer,
	}
	if cfg.Triage.TestParse {
		s.parser = parser.New(gr)
	}
	return s, nil
}

func (s *fuzzSession) generator(mode string) func() generated {
	if mode == config.ModeTokens {
		return func() generated {
			toks := s.fz.GenerateTokens()
			return generated{text: s.joiner.Join(toks), toks: toks}
		}
	}
	return func() generated {
		tree := s.fz.Generate()
		return generated{text: s.joiner.JoinTree(tree), toks: cst.Tokens(tree)}
	}
}

func (s *fuzzSession) loop(ctx context.Context, cfg config.Config, em *emitter, rep *reporter) error {
	seed := cfg.Fuzz.Seed
	parent := trace.SpanFrom(ctx)
	loop := newLoop(ctx, cfg.Fuzz.Count, s.generator(cfg.Fuzz.Mode), func(attempt int) {
		s.src.Seed(seed + uint64(attempt))
		trace.Point(s.tracer, trace.ScopeAttempt, "attempt", "seed "+strconv.FormatUint(seed+uint64(attempt), 10), parent)
	})
	if cfg.Fuzz.OnlyAdditionalCoverage {
		loop = fuzzer.OnlyAdditionalCoverage(s.cov, loop)
	}

	em.stats = ui.Event{Target: cfg.Fuzz.Count, Total: s.cov.TotalCount()}
	err := drive(ctx, loop, func(p generated) error {
		index := loop.Programs() - 1
		progSeed := seed + uint64(loop.Attempts()-1)
		s.attempts, s.programs = loop.Attempts(), loop.Programs()
		em.stats.Attempts, em.stats.Programs = s.attempts, s.programs
		em.stats.Covered = s.cov.CoveredCount()

		if s.parser != nil {
			if err := s.check(p.text); err != nil {
				em.stats.ParseFailures++
				rep.Warnf("parsing failed for seed %d: %s", progSeed, err)
			}
		}
		if cfg.Output.Pattern != "" || s.parser == nil {
			if err := em.emit(ctx, output.Program{Index: index, Seed: progSeed, Text: p.text, Kinds: kindNames(s.gr, p.toks)}); err != nil {
				return err
			}
		}
		if em.events == nil {
			rep.Infof("covered %3d of %3d alternatives", s.cov.CoveredCount(), s.cov.TotalCount())
		}
		em.publish()
		return nil
	})
	if closeErr := em.close(ctx); err == nil {
		err = closeErr
	}
	em.stats.Covered = s.cov.CoveredCount()
	em.publish()
	return err
}

// check re-lexes the joined text, so joiner mistakes surface as well.
func (s *fuzzSession) check(text string) error {
	toks, err := s.lx.Lex(text, false)
	if err != nil {
		return err
	}
	return s.parser.Parse(toks)
}

func kindNames(gr *grammar.Grammar, toks []token.Token) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if !t.IsEOF() {
			out = append(out, gr.Name(t.Kind))
		}
	}
	return out
}

func unreachableSymbols(g *graph.Graph, reachable []bool) []string {
	var names []string
	for id := range g.Nodes() {
		n := g.Node(id)
		if n.Kind == graph.Choice && n.Symbol != nil && !reachable[id] {
			names = append(names, n.Symbol.Name)
		}
	}
	return names
}

func heightString(h int) string {
	if h == analysis.Unknown {
		return "inf"
	}
	return strconv.Itoa(h)
}

// printRequested handles --print-graph and the --print-min-* flags.
func printRequested(cmd *cobra.Command, g *graph.Graph) error {
	flags := cmd.Flags()
	if v, _ := flags.GetBool("print-graph"); v {
		if err := g.WriteDot(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	if v, _ := flags.GetBool("print-min-heights"); v {
		printSymbolValues(cmd.ErrOrStderr(), g, analysis.MinHeights(g))
	}
	if v, _ := flags.GetBool("print-min-depths"); v {
		printSymbolValues(cmd.ErrOrStderr(), g, analysis.MinDepths(g))
	}
	return nil
}

func printSymbolValues(w io.Writer, g *graph.Graph, values []int) {
	for id := range g.Nodes() {
		n := g.Node(id)
		if n.Kind == graph.Choice && n.Symbol != nil {
			fmt.Fprintf(w, "%30s: %s\n", n.Symbol.Name, heightString(values[id]))
		}
	}
}
