package fuzzer

import (
	"iter"

	"pegfuzz/internal/coverage"
)

// Infinite is the count of a loop that never stops on its own.
const Infinite = -1

// Loop is a lazy, pull-based sequence of generated programs. Attempts
// counts generation calls, Programs counts yielded values.
type Loop[R any] struct {
	pull     func() (R, bool)
	attempts func() int
	programs int
	stop     func() bool
}

// Next generates the next program. ok is false once the loop is done.
func (l *Loop[R]) Next() (r R, ok bool) {
	r, ok = l.pull()
	if ok {
		l.programs++
	}
	return r, ok
}

// All ranges over the remaining programs.
func (l *Loop[R]) All() iter.Seq[R] {
	return func(yield func(R) bool) {
		for {
			r, ok := l.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Attempts returns the number of generation calls so far.
func (l *Loop[R]) Attempts() int { return l.attempts() }

// Programs returns the number of programs yielded so far.
func (l *Loop[R]) Programs() int { return l.programs }

// StopWhen makes the loop end before any attempt for which done reports
// true. Filters built on top of l see the end as exhaustion of l, so they
// stop as well even while they skip attempts.
func (l *Loop[R]) StopWhen(done func() bool) *Loop[R] {
	l.stop = done
	return l
}

func (l *Loop[R]) stopped() bool { return l.stop != nil && l.stop() }

// FixedCount yields count programs (or runs forever for Infinite).
// beforeEach, if set, runs before every attempt with the attempt's
// zero-based index; callers typically reseed their random source there.
func FixedCount[R any](count int, generate func() R, beforeEach func(attempt int)) *Loop[R] {
	attempts := 0
	l := &Loop[R]{attempts: func() int { return attempts }}
	l.pull = func() (R, bool) {
		if (count != Infinite && l.programs >= count) || l.stopped() {
			var zero R
			return zero, false
		}
		if beforeEach != nil {
			beforeEach(attempts)
		}
		attempts++
		return generate(), true
	}
	return l
}

// Forever is FixedCount with an Infinite count.
func Forever[R any](generate func() R, beforeEach func(attempt int)) *Loop[R] {
	return FixedCount(Infinite, generate, beforeEach)
}

// OnlyAdditionalCoverage filters base down to the attempts that covered at
// least one new alternative. It stops as soon as cov is complete, or when
// base is exhausted; attempts are those of base.
func OnlyAdditionalCoverage[R any](cov *coverage.Alternatives, base *Loop[R]) *Loop[R] {
	l := &Loop[R]{attempts: base.Attempts}
	l.pull = func() (R, bool) {
		var zero R
		if cov.IsFullyCovered() {
			return zero, false
		}
		for !l.stopped() {
			before := cov.CoveredCount()
			r, ok := base.Next()
			if !ok {
				return zero, false
			}
			if cov.CoveredCount() > before {
				return r, true
			}
		}
		return zero, false
	}
	return l
}
