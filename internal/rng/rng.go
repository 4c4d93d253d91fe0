// Package rng provides the seedable random sources shared by every random
// decision of a fuzzing session.
package rng

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/coinexchain/randsrc"
)

// Source is the random-number capability threaded through generation.
// Implementations are not safe for concurrent use.
type Source interface {
	// Intn returns a uniform value in [0, n). n must be positive.
	Intn(n int) int
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Bool returns a fair coin flip.
	Bool() bool
	// Seed resets the source; equal seeds give equal sequences.
	Seed(seed uint64)
}

const seedMix = 0x9e3779b97f4a7c15

// PCG is the default in-memory source.
type PCG struct {
	pcg *rand.PCG
	r   *rand.Rand
}

// New returns a PCG source seeded with seed.
func New(seed uint64) *PCG {
	pcg := rand.NewPCG(seed, seed^seedMix)
	return &PCG{pcg: pcg, r: rand.New(pcg)}
}

func (p *PCG) Intn(n int) int   { return p.r.IntN(n) }
func (p *PCG) Float64() float64 { return p.r.Float64() }
func (p *PCG) Bool() bool       { return p.r.Uint64()&1 == 1 }
func (p *PCG) Seed(seed uint64) { p.pcg.Seed(seed, seed^seedMix) }

// File draws its entropy from a file (for example a corpus recorded by an
// external fuzzer), mixed with the seed. Reseeding rewinds the file.
type File struct {
	path string
	src  randsrc.RandSrc
}

// NewFile opens an entropy file.
func NewFile(path string, seed uint64) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("entropy file: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("entropy file is empty")
	}
	f := &File{path: path}
	f.Seed(seed)
	return f, nil
}

func (f *File) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Errorf("rng: invalid argument to Intn: %d", n))
	}
	return int(f.src.GetUint64() % uint64(n))
}

func (f *File) Float64() float64 {
	return float64(f.src.GetUint64()>>11) / (1 << 53)
}

func (f *File) Bool() bool { return f.src.GetBool() }

func (f *File) Seed(seed uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	f.src = randsrc.NewRandSrcFromFileWithSeed(f.path, buf[:])
}

// Open returns a file-backed source when path is set, a PCG source
// otherwise.
func Open(path string, seed uint64) (Source, error) {
	if path == "" {
		return New(seed), nil
	}
	return NewFile(path, seed)
}
