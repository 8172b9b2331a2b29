package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"expander/internal/trace"
)

var (
	// ErrUnavailable: the strategy cannot run here (binary missing, not compiled in).
	ErrUnavailable = errors.New("formatter unavailable")
	// ErrFormatterFailed: the strategy ran and rejected the input or crashed.
	ErrFormatterFailed = errors.New("formatter failed")
	// ErrParse: the built-in printer could not tokenize or balance the input.
	ErrParse = errors.New("cannot parse input")
	// ErrFormatFailed: every strategy failed and fallback is not allowed.
	ErrFormatFailed = errors.New("formatting failed")
)

// StrategyRaw names the unformatted passthrough.
const StrategyRaw = "raw"

// Strategy formats text. Implementations must not modify src.
type Strategy interface {
	Name() string
	Format(ctx context.Context, src []byte) ([]byte, error)
}

// Attempt records one strategy run.
type Attempt struct {
	Strategy string
	Err      error
	Duration time.Duration
}

// Output is the pipeline result.
type Output struct {
	Text     []byte
	Strategy string // strategy that produced Text, or StrategyRaw
	Fallback bool   // every strategy failed and raw text was kept
	Attempts []Attempt
}

// Error is returned when every strategy failed and fallback is disabled.
type Error struct {
	Attempts []Attempt
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(ErrFormatFailed.Error())
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", a.Strategy, a.Err)
	}
	return b.String()
}

// Unwrap exposes ErrFormatFailed and every attempt's cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrFormatFailed)
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Pipeline runs strategies in order; the first success wins.
type Pipeline struct {
	Strategies []Strategy
	// Diagnostics receives the fallback warning when the context carries no
	// enabled tracer. Nil means os.Stderr.
	Diagnostics io.Writer
}

// New builds the default chain for policy: the built-in printer, then the
// external formatter.
func New(policy Policy) *Pipeline {
	strategies := builtinStrategies()
	strategies = append(strategies, External{
		Binary:  policy.formatter(),
		Channel: policy.Channel,
		Edition: policy.Edition,
	})
	return &Pipeline{Strategies: strategies}
}

// Run formats src with the default chain for policy.
func Run(ctx context.Context, src []byte, policy Policy) (Output, error) {
	return New(policy).Run(ctx, src, policy)
}

// Run formats src according to policy. The returned text never aliases src.
func (p *Pipeline) Run(ctx context.Context, src []byte, policy Policy) (Output, error) {
	if !policy.Enabled {
		return Output{Text: bytes.Clone(src), Strategy: StrategyRaw}, nil
	}
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	attempts := make([]Attempt, 0, len(p.Strategies))
	for _, s := range p.Strategies {
		if err := ctx.Err(); err != nil {
			return Output{Attempts: attempts}, err
		}
		span := trace.Begin(tracer, trace.ScopeStrategy, s.Name(), parent)
		start := time.Now()
		text, err := s.Format(ctx, src)
		attempts = append(attempts, Attempt{Strategy: s.Name(), Err: err, Duration: time.Since(start)})
		if err == nil {
			span.End("ok")
			return Output{Text: text, Strategy: s.Name(), Attempts: attempts}, nil
		}
		span.End(err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{Attempts: attempts}, ctxErr
		}
	}

	if policy.AllowFailure {
		p.warn(tracer, "keeping unformatted text: "+summarize(attempts), parent)
		return Output{Text: bytes.Clone(src), Strategy: StrategyRaw, Fallback: true, Attempts: attempts}, nil
	}
	return Output{Attempts: attempts}, &Error{Attempts: attempts}
}

// warn reports a fallback on the context tracer, or on a stream tracer at
// LevelError when tracing is off so the fallback is never silent.
func (p *Pipeline) warn(tracer trace.Tracer, msg string, parent uint64) {
	if tracer.Enabled() {
		trace.Warn(tracer, "format", msg, parent)
		return
	}
	w := p.Diagnostics
	if w == nil {
		w = os.Stderr
	}
	st := trace.NewStreamTracer(w, trace.LevelError, trace.FormatText)
	trace.Warn(st, "format", msg, parent)
	_ = st.Flush()
}

func summarize(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no strategies"
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return strings.Join(parts, "; ")
}
