package main

import (
	"io"

	"pegfuzz/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer) error {
	if out == nil || timer == nil {
		return nil
	}
	return timer.WriteSummary(out)
}
