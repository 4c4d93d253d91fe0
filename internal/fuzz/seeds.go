package fuzztests

import (
	"testing"
)

const (
	minFuzzHeight = 4  // минимальная высота для ExprGrammar
	heightSpread  = 10 // высоты из [minFuzzHeight, minFuzzHeight+heightSpread)
)

// strategies are indexed by the fuzzed selector byte.
var strategies = []string{
	"random",
	"uniform()",
	"smallest(0.5)",
	"smallest(1.0, uniform)",
	"uncov(random, random)",
	"reachesUncov(random, smallest)",
	"reachesUncov(uniform, random, false)",
}

func strategyFor(selector uint8) string {
	return strategies[int(selector)%len(strategies)]
}

func heightFor(h uint8) int {
	return minFuzzHeight + int(h)%heightSpread
}

func addGeneratorSeeds(f *testing.F) {
	for i := range strategies {
		f.Add(uint64(i*7919), uint8(i), uint8(i))
	}
	// пограничные случаи: минимальная высота и максимальный seed
	f.Add(uint64(0), uint8(0), uint8(0))
	f.Add(^uint64(0), uint8(heightSpread-1), uint8(len(strategies)-1))
}
