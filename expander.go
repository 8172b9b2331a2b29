// Package expander materializes generated source text into content-addressed
// files and hands back a reference that splices them into the build.
//
// The destination is <dir>/<name>-<12 hex>.<ext>, where the hex is taken from
// a BLAKE3 digest of the exact bytes written. Identical requests therefore map
// to one path, different content never collides, and concurrent writers of one
// path (threads or processes) coordinate through an advisory lock on it.
package expander

import (
	"context"
	"os"
	"path/filepath"

	"expander/internal/digest"
	"expander/internal/format"
	"expander/internal/observ"
	"expander/internal/outfile"
	"expander/internal/reference"
	"expander/internal/trace"
)

// DefaultExt is the output file extension when Config.Ext is empty.
const DefaultExt = "rs"

// Request is one piece of generated text under a logical base name.
type Request struct {
	Name string
	Text []byte // never modified
}

// Config controls a materialize call. The zero value writes unformatted
// text atomically with the default extension.
type Config struct {
	Dry       bool    // return the text itself, touch nothing
	Verbose   bool    // trace to stderr when no tracer is enabled
	Comment   *string // header rendered as "/* <comment> */\n"
	Format    format.Policy
	Ext       string
	WriteMode outfile.Mode
	Tracer    trace.Tracer // nil: taken from the context
}

// WithComment returns a copy of c with the header comment set.
func (c Config) WithComment(comment string) Config {
	c.Comment = &comment
	return c
}

// Extension returns the output file extension, DefaultExt when unset.
func (c Config) Extension() string {
	if c.Ext == "" {
		return DefaultExt
	}
	return c.Ext
}

// Header returns the bytes written above the text, nil without a comment.
func (c Config) Header() []byte {
	if c.Comment == nil {
		return nil
	}
	return []byte("/* " + *c.Comment + " */\n")
}

func (c Config) tracer(ctx context.Context) (trace.Tracer, func()) {
	t := c.Tracer
	if t == nil {
		t = trace.FromContext(ctx)
	}
	if c.Verbose && !t.Enabled() {
		st := trace.NewStreamTracer(os.Stderr, trace.LevelDetail, trace.FormatText)
		return st, func() { _ = st.Flush() }
	}
	return t, func() {}
}

// Result describes a materialized request.
type Result struct {
	Reference string // include!("<path>"), or the text itself when dry
	Path      string
	Written   bool   // this call wrote the file
	Waited    bool   // a concurrent writer held the file; this call waited
	Formatter string // strategy that produced the body
	Timings   observ.Report
}

// String returns the reference.
func (r Result) String() string { return r.Reference }

// Materialize formats req, writes it under dir and returns the reference.
func Materialize(ctx context.Context, dir string, req Request, cfg Config) (Result, error) {
	if cfg.Dry {
		return Result{Reference: string(req.Text)}, nil
	}

	tracer, flush := cfg.tracer(ctx)
	defer flush()
	call := trace.Begin(tracer, trace.ScopeCall, "materialize:"+req.Name, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(trace.WithTracer(ctx, tracer), call)

	timer := observ.NewTimer()
	res, err := materialize(ctx, tracer, call, dir, req, cfg, timer)
	res.Timings = timer.Report()
	if err != nil {
		call.End(err.Error())
		return res, err
	}
	call.WithExtra("path", res.Path).End(outcome(res))
	return res, nil
}

func outcome(r Result) string {
	if r.Waited {
		return "waited"
	}
	return "wrote"
}

func materialize(ctx context.Context, tracer trace.Tracer, call *trace.Span, dir string, req Request, cfg Config, timer *observ.Timer) (Result, error) {
	base, err := digest.CleanBase(req.Name)
	if err != nil {
		return Result{}, &Error{Op: OpName, Path: req.Name, Err: err}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, &Error{Op: OpWrite, Path: dir, Err: err}
	}

	stage := trace.Begin(tracer, trace.ScopeStage, "format", call.ID())
	idx := timer.Begin("format")
	out, err := format.Run(trace.WithSpan(ctx, stage), req.Text, cfg.Format)
	timer.End(idx, out.Strategy)
	stage.End(out.Strategy)
	if err != nil {
		return Result{}, &Error{Op: OpFormat, Err: err}
	}

	header := cfg.Header()
	stage = trace.Begin(tracer, trace.ScopeStage, "digest", call.ID())
	idx = timer.Begin("digest")
	d := digest.Sum(header, out.Text)
	path := filepath.Join(absDir, digest.Name(base, d, cfg.Extension()))
	timer.End(idx, digest.Suffix(d))
	stage.End(digest.Suffix(d))

	stage = trace.Begin(tracer, trace.ScopeStage, "write", call.ID())
	idx = timer.Begin("write")
	o, err := outfile.Write(path, header, out.Text, cfg.WriteMode)
	if err != nil {
		timer.End(idx, "failed")
		stage.End(err.Error())
		return Result{}, &Error{Op: OpWrite, Path: path, Err: err}
	}
	res := Result{
		Reference: reference.Include(path),
		Path:      path,
		Written:   o.Written,
		Waited:    o.Waited,
		Formatter: out.Strategy,
	}
	timer.End(idx, outcome(res))
	stage.End(outcome(res))
	trace.Point(tracer, trace.ScopeIO, outcome(res), path, call.ID())
	return res, nil
}

// WriteTo materializes req under dir and returns only the reference.
func WriteTo(ctx context.Context, dir string, req Request, cfg Config) (string, error) {
	res, err := Materialize(ctx, dir, req, cfg)
	if err != nil {
		return "", err
	}
	return res.Reference, nil
}

// WriteToOutDir materializes req under $OUT_DIR.
func WriteToOutDir(ctx context.Context, req Request, cfg Config) (string, error) {
	if cfg.Dry {
		return string(req.Text), nil
	}
	dir, ok := os.LookupEnv("OUT_DIR")
	if !ok || dir == "" {
		return "", &Error{Op: OpWrite, Err: ErrNoOutDir}
	}
	return WriteTo(ctx, dir, req, cfg)
}

// MaybeWriteTo is WriteTo for generators that can fail: a generation error
// is never written, it becomes a compile_error! reference instead.
func MaybeWriteTo(ctx context.Context, dir string, req Request, genErr error, cfg Config) (string, error) {
	if genErr != nil {
		return reference.CompileError(genErr.Error()), nil
	}
	return WriteTo(ctx, dir, req, cfg)
}

// MaybeWriteToOutDir is MaybeWriteTo under $OUT_DIR.
func MaybeWriteToOutDir(ctx context.Context, req Request, genErr error, cfg Config) (string, error) {
	if genErr != nil {
		return reference.CompileError(genErr.Error()), nil
	}
	return WriteToOutDir(ctx, req, cfg)
}
