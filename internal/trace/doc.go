// Package trace records what a fuzzing session is doing: run and phase
// boundaries, every generation attempt and, at the debug level, every
// alternative picked by the generator.
//
// # Usage
//
//	pegfuzz fuzz --trace=- --trace-level=detail grammar.yaml
//
// # Tracers
//
//   - Nop: tracing disabled
//   - StreamTracer: writes each event as it happens (text or NDJSON)
//   - RingTracer: keeps the last N events, dumped when a run fails
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Each level admits the scopes up to a bound:
//
//   - LevelError: nothing while running, ring dumps only
//   - LevelPhase: ScopeRun and ScopePhase (load, analyses, generate)
//   - LevelDetail: also ScopeAttempt (one per generated program)
//   - LevelDebug: also ScopeChoice (one per expanded choice)
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "analyses", 0)
//	defer span.End("")
package trace
