// Package output writes generated programs: plain text to stdout or to
// files named by a pattern, or msgpack records.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Placeholders understood by Pattern.
const (
	PlaceMaxHeight = "#{MAX_HEIGHT}"
	PlaceIndex     = "#{INDEX}"
	PlaceSeed      = "#{SEED}"
	PlaceBatch     = "#{BATCH}"
)

// Pattern expands file-name templates.
type Pattern struct {
	raw       string
	maxHeight int
	batchSize int
}

// NewPattern returns a pattern. batchSize groups indices for #{BATCH}.
func NewPattern(raw string, maxHeight, batchSize int) Pattern {
	return Pattern{raw: raw, maxHeight: maxHeight, batchSize: max(batchSize, 1)}
}

// IsZero reports whether no pattern was given.
func (p Pattern) IsZero() bool { return p.raw == "" }

// Expand substitutes every placeholder for the program at index.
func (p Pattern) Expand(index int, seed uint64) string {
	r := strings.NewReplacer(
		PlaceMaxHeight, strconv.Itoa(p.maxHeight),
		PlaceIndex, strconv.Itoa(index),
		PlaceSeed, strconv.FormatUint(seed, 10),
		PlaceBatch, strconv.Itoa(index/p.batchSize),
	)
	return r.Replace(p.raw)
}

// WriteFile writes content to name, creating parent directories.
func WriteFile(name, content string) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// Record is one generated program in the msgpack format.
type Record struct {
	Session string   `msgpack:"session"`
	Index   int      `msgpack:"index"`
	Seed    uint64   `msgpack:"seed"`
	Program string   `msgpack:"program"`
	Kinds   []string `msgpack:"kinds,omitempty"`
}

// Program is what a generator hands to a Sink.
type Program struct {
	Index int
	Seed  uint64
	Text  string
	// Kinds are the token names, when known.
	Kinds []string
}

// Sink receives the programs of a session in order.
type Sink interface {
	// Emit stores p and returns the file written, empty for streams.
	Emit(p Program) (string, error)
	Close() error
}

// Options select the sink built by Open.
type Options struct {
	Format  string // "text" or "msgpack"
	Pattern Pattern
	Stdout  io.Writer
	Session uuid.UUID
}

// Open returns the sink matching opts.
func Open(opts Options) (Sink, error) {
	switch opts.Format {
	case "", "text":
		if opts.Pattern.IsZero() {
			return &textStream{w: bufio.NewWriter(opts.Stdout)}, nil
		}
		return &textFiles{pattern: opts.Pattern}, nil
	case "msgpack":
		if opts.Pattern.IsZero() {
			bw := bufio.NewWriter(opts.Stdout)
			return &recordStream{bw: bw, enc: msgpack.NewEncoder(bw), session: opts.Session.String()}, nil
		}
		return &recordFiles{pattern: opts.Pattern, session: opts.Session.String()}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

type textStream struct {
	w *bufio.Writer
}

func (s *textStream) Emit(p Program) (string, error) {
	if _, err := s.w.WriteString(p.Text); err != nil {
		return "", err
	}
	// flush per program so that interleaving with stderr stays readable
	if err := s.w.WriteByte('\n'); err != nil {
		return "", err
	}
	return "", s.w.Flush()
}

func (s *textStream) Close() error { return s.w.Flush() }

type textFiles struct {
	pattern Pattern
}

func (s *textFiles) Emit(p Program) (string, error) {
	name := s.pattern.Expand(p.Index, p.Seed)
	return name, WriteFile(name, p.Text)
}

func (s *textFiles) Close() error { return nil }

func record(session string, p Program) *Record {
	return &Record{Session: session, Index: p.Index, Seed: p.Seed, Program: p.Text, Kinds: p.Kinds}
}

type recordStream struct {
	bw      *bufio.Writer
	enc     *msgpack.Encoder
	session string
}

func (s *recordStream) Emit(p Program) (string, error) {
	if err := s.enc.Encode(record(s.session, p)); err != nil {
		return "", fmt.Errorf("encode record %d: %w", p.Index, err)
	}
	return "", nil
}

func (s *recordStream) Close() error { return s.bw.Flush() }

type recordFiles struct {
	pattern Pattern
	session string
}

func (s *recordFiles) Emit(p Program) (string, error) {
	name := s.pattern.Expand(p.Index, p.Seed)
	data, err := msgpack.Marshal(record(s.session, p))
	if err != nil {
		return "", fmt.Errorf("encode record %d: %w", p.Index, err)
	}
	return name, WriteFile(name, string(data))
}

func (s *recordFiles) Close() error { return nil }

// ReadRecords decodes a stream written by the msgpack sink.
func ReadRecords(r io.Reader) ([]Record, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var out []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
