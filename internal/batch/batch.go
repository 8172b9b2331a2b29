// Package batch materializes many requests in one process.
//
// Requests arrive as a msgpack stream of Frames and leave as a stream of
// Replies in the same order, whatever order the workers finish in. A
// failed request is reported in its Reply and does not stop the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"expander"
)

// Frame is one request on the wire.
type Frame struct {
	ID   uint64 `msgpack:"id"`
	Name string `msgpack:"name"`
	Text []byte `msgpack:"text"`
	// Error marks a generation that failed upstream; it is answered with
	// compile_error! and nothing is written.
	Error string `msgpack:"error,omitempty"`
}

// Reply answers the Frame with the same ID.
type Reply struct {
	ID        uint64 `msgpack:"id"`
	Reference string `msgpack:"reference"`
	Path      string `msgpack:"path,omitempty"`
	Written   bool   `msgpack:"written"`
	Waited    bool   `msgpack:"waited"`
	Formatter string `msgpack:"formatter,omitempty"`
	Error     string `msgpack:"error,omitempty"`
}

// ReadFrames decodes frames from r until EOF.
func ReadFrames(r io.Reader) ([]Frame, error) {
	dec := msgpack.NewDecoder(r)
	var frames []Frame
	for {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return frames, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
}

// WriteFrames encodes frames to w.
func WriteFrames(w io.Writer, frames []Frame) error {
	enc := msgpack.NewEncoder(w)
	for i := range frames {
		if err := enc.Encode(&frames[i]); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// ReadReplies decodes replies from r until EOF.
func ReadReplies(r io.Reader) ([]Reply, error) {
	dec := msgpack.NewDecoder(r)
	var replies []Reply
	for {
		var rep Reply
		if err := dec.Decode(&rep); err != nil {
			if errors.Is(err, io.EOF) {
				return replies, nil
			}
			return replies, fmt.Errorf("reply %d: %w", len(replies), err)
		}
		replies = append(replies, rep)
	}
}

// WriteReplies encodes replies to w.
func WriteReplies(w io.Writer, replies []Reply) error {
	enc := msgpack.NewEncoder(w)
	for i := range replies {
		if err := enc.Encode(&replies[i]); err != nil {
			return fmt.Errorf("reply %d: %w", i, err)
		}
	}
	return nil
}

// Options configures Run.
type Options struct {
	Dir      string
	Jobs     int // <= 0 means GOMAXPROCS
	Config   expander.Config
	Progress ProgressSink // optional
}

// Run materializes frames with at most Jobs in flight. replies[i] answers
// frames[i]. The error is non-nil only when ctx is cancelled.
func Run(ctx context.Context, frames []Frame, opt Options) ([]Reply, error) {
	jobs := opt.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	sink := opt.Progress
	if sink == nil {
		sink = nopSink{}
	}
	for i := range frames {
		sink.OnEvent(Event{Index: i, Name: frames[i].Name, Status: StatusQueued})
	}

	replies := make([]Reply, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := &frames[i]
			sink.OnEvent(Event{Index: i, Name: f.Name, Status: StatusWorking})
			start := time.Now()
			replies[i] = runOne(gctx, f, opt)
			ev := Event{Index: i, Name: f.Name, Status: StatusDone, Elapsed: time.Since(start)}
			switch {
			case replies[i].Error != "":
				ev.Status = StatusError
				ev.Err = errors.New(replies[i].Error)
			case replies[i].Waited:
				ev.Status = StatusWaited
			}
			sink.OnEvent(ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return replies, err
	}
	return replies, ctx.Err()
}

func runOne(ctx context.Context, f *Frame, opt Options) Reply {
	rep := Reply{ID: f.ID}
	req := expander.Request{Name: f.Name, Text: f.Text}
	if f.Error != "" {
		ref, err := expander.MaybeWriteTo(ctx, opt.Dir, req, errors.New(f.Error), opt.Config)
		if err != nil {
			rep.Error = err.Error()
		}
		rep.Reference = ref
		return rep
	}
	res, err := expander.Materialize(ctx, opt.Dir, req, opt.Config)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Reference = res.Reference
	rep.Path = res.Path
	rep.Written = res.Written
	rep.Waited = res.Waited
	rep.Formatter = res.Formatter
	return rep
}
