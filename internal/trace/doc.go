// Package trace is the diagnostic side-channel of the materializer.
//
// Materialize calls, their stages and every formatter attempt are reported
// as trace events, so a build that hangs on a formatter or keeps rewriting
// the same file can be diagnosed without a debugger.
//
// # Usage
//
//	expander materialize --trace=- --trace-level=detail --name foo gen.rs
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when a command fails
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: warnings only (e.g. formatter fell back to raw text)
//   - LevelPhase: materialize calls and their stages
//   - LevelDetail: formatter strategy attempts
//   - LevelDebug: everything, including lock traffic
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "format", parentID)
//	defer span.End("")
package trace
