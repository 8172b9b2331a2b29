package batch

import "time"

// Status captures the progress of one request.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusWaited  Status = "waited" // another writer produced the file
	StatusError   Status = "error"
)

// Event reports progress for the request at Index.
type Event struct {
	Index   int
	Name    string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Run calls it from many goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events to a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent implements ProgressSink.
func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
