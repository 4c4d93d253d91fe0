// Package config loads pegfuzz.toml, the per-project defaults for the
// command-line tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name searched for by Find.
const FileName = "pegfuzz.toml"

var (
	// ErrMissingGrammar indicates that neither the file nor the flags name a grammar.
	ErrMissingGrammar = errors.New("no grammar given")
	// ErrInvalidValue wraps every other validation failure.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Generation modes.
const (
	ModeTree   = "tree"
	ModeTokens = "tokens"
)

// Output formats.
const (
	FormatText    = "text"
	FormatMsgpack = "msgpack"
)

// Config is the merged view of pegfuzz.toml.
type Config struct {
	// Path is the file the values were read from, empty for defaults.
	Path string `toml:"-"`

	Grammar GrammarSection `toml:"grammar"`
	Fuzz    FuzzSection    `toml:"fuzz"`
	Output  OutputSection  `toml:"output"`
	Triage  TriageSection  `toml:"triage"`
}

type GrammarSection struct {
	Path      string `toml:"path"`
	MaxHeight int    `toml:"max_height"`
}

type FuzzSection struct {
	Seed    uint64 `toml:"seed"`
	HasSeed bool   `toml:"-"`
	// Count is the number of programs, negative for no limit.
	Count                  int    `toml:"count"`
	Strategy               string `toml:"strategy"`
	Mode                   string `toml:"mode"`
	OnlyAdditionalCoverage bool   `toml:"only_additional_coverage"`
	Entropy                string `toml:"entropy"`
}

type OutputSection struct {
	Pattern   string `toml:"pattern"`
	BatchSize int    `toml:"batch_size"`
	Separator string `toml:"separator"`
	Format    string `toml:"format"`
}

type TriageSection struct {
	Command   string `toml:"command"`
	Jobs      int    `toml:"jobs"`
	TestParse bool   `toml:"test_parse"`
}

// Default returns the values used when nothing is configured.
func Default() Config {
	return Config{
		Fuzz: FuzzSection{
			Count:    1,
			Strategy: "random",
			Mode:     ModeTree,
		},
		Output: OutputSection{
			BatchSize: 1000,
			Separator: " ",
			Format:    FormatText,
		},
		Triage: TriageSection{Jobs: 1},
	}
}

// Find walks up from startDir to locate pegfuzz.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults. A relative grammar path is resolved
// against the directory of the file.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalidValue, strings.Join(keys, ", "))
	}
	cfg.Path = path
	cfg.Fuzz.HasSeed = meta.IsDefined("fuzz", "seed")
	if p := strings.TrimSpace(cfg.Grammar.Path); p != "" && !filepath.IsAbs(p) {
		cfg.Grammar.Path = filepath.Join(filepath.Dir(path), filepath.FromSlash(p))
	}
	return cfg, nil
}

// Discover loads the nearest pegfuzz.toml above startDir, or the defaults
// when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the merged values after flags were applied.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Grammar.Path) == "" {
		return ErrMissingGrammar
	}
	return c.ValidateOutput()
}

// ValidateOutput is Validate for tools that need no grammar.
func (c *Config) ValidateOutput() error {
	var errs []error
	if c.Grammar.MaxHeight < 0 {
		errs = append(errs, fmt.Errorf("%w: max_height %d", ErrInvalidValue, c.Grammar.MaxHeight))
	}
	switch c.Fuzz.Mode {
	case ModeTree, ModeTokens:
	default:
		errs = append(errs, fmt.Errorf("%w: mode %q (want %s or %s)", ErrInvalidValue, c.Fuzz.Mode, ModeTree, ModeTokens))
	}
	switch c.Output.Format {
	case FormatText, FormatMsgpack:
	default:
		errs = append(errs, fmt.Errorf("%w: format %q (want %s or %s)", ErrInvalidValue, c.Output.Format, FormatText, FormatMsgpack))
	}
	if c.Output.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("%w: batch_size %d", ErrInvalidValue, c.Output.BatchSize))
	}
	if c.Triage.Jobs < 1 {
		errs = append(errs, fmt.Errorf("%w: jobs %d", ErrInvalidValue, c.Triage.Jobs))
	}
	if c.Triage.Command != "" && c.Output.Pattern == "" {
		errs = append(errs, fmt.Errorf("%w: triage.command requires output.pattern", ErrInvalidValue))
	}
	if c.Triage.Command != "" && c.Output.Format != FormatText {
		errs = append(errs, fmt.Errorf("%w: triage.command requires the %s format", ErrInvalidValue, FormatText))
	}
	return errors.Join(errs...)
}
