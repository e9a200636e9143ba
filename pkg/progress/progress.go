// Package progress defines the status reporting capability used during long
// conversions. Reporters are fire-and-forget: they must not fail and must not
// block the caller for long.
package progress

import (
	"sync"
)

// DefaultInterval is the number of records between progress reports
const DefaultInterval uint64 = 10000

// Reporter receives progress notifications. total is zero when the size of
// the run is not known yet.
type Reporter interface {
	Report(total, current uint64, message string)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(total, current uint64, message string)

// Report calls f
func (f ReporterFunc) Report(total, current uint64, message string) {
	f(total, current, message)
}

type nopReporter struct{}

func (nopReporter) Report(uint64, uint64, string) {}

// Nop discards every report
var Nop Reporter = nopReporter{}

// Multi fans a report out to every non-nil reporter in order
func Multi(reporters ...Reporter) Reporter {
	list := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil && r != Nop {
			list = append(list, r)
		}
	}
	switch len(list) {
	case 0:
		return Nop
	case 1:
		return list[0]
	}
	return multiReporter(list)
}

type multiReporter []Reporter

func (m multiReporter) Report(total, current uint64, message string) {
	for _, r := range m {
		r.Report(total, current, message)
	}
}

// Event is one captured report
type Event struct {
	Total   uint64
	Current uint64
	Message string
}

// Recorder keeps every report it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report records the event
func (r *Recorder) Report(total, current uint64, message string) {
	r.mu.Lock()
	r.events = append(r.events, Event{Total: total, Current: current, Message: message})
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event, if any
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}
