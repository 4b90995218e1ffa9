// Package conntable owns in-flight connection-attempt records keyed by
// descriptor. The invariant "every descriptor in the table is registered
// in the multiplexer, and vice versa" is enforced by the engine calling
// Insert and the multiplexer's Register together, never one without the
// other.
package conntable

import (
	"time"
)

// State is a connection attempt's place in its lifecycle
// (Pending -> Connected | Failed).
type State int

const (
	Pending State = iota
	Connected
	Failed
)

// Record is owned exclusively by the Table until it is removed and its
// socket closed by the caller.
type Record struct {
	FD        int
	Port      uint16
	StartTime time.Time
	State     State
}

// Deadline returns the instant this record's per-attempt timeout expires.
func (r *Record) Deadline(timeout time.Duration) time.Time {
	return r.StartTime.Add(timeout)
}

// Table is a map of descriptor to in-flight Record, pre-sized by New;
// Insert does not enforce a capacity. |table| <= concurrency holds
// because the engine never inserts more than one batch; it is not
// concurrency-safe — the engine is its only caller, always from its own
// goroutine.
type Table struct {
	records map[int]*Record
}

// New returns an empty Table sized for up to capacity concurrent records.
func New(capacity int) *Table {
	return &Table{records: make(map[int]*Record, capacity)}
}

// Insert adds a new Pending record for fd. Callers must register fd with
// the multiplexer in the same breath — see the package doc invariant.
func (t *Table) Insert(fd int, port uint16, start time.Time) *Record {
	r := &Record{FD: fd, Port: port, StartTime: start, State: Pending}
	t.records[fd] = r
	return r
}

// Get returns the record for fd, if any.
func (t *Table) Get(fd int) (*Record, bool) {
	r, ok := t.records[fd]
	return r, ok
}

// Remove deletes the record for fd. It does not close the socket or touch
// the multiplexer — callers must do both around this call.
func (t *Table) Remove(fd int) {
	delete(t.records, fd)
}

// Len returns the number of in-flight records.
func (t *Table) Len() int {
	return len(t.records)
}

// All returns every in-flight record. Order is unspecified (map iteration).
func (t *Table) All() []*Record {
	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	return out
}

// NearestDeadline returns max(0, min over the table of (deadline - now)),
// the poll_timeout the engine passes to the multiplexer's Wait. If the
// table is empty it returns 0.
func (t *Table) NearestDeadline(timeout time.Duration, now time.Time) time.Duration {
	if len(t.records) == 0 {
		return 0
	}
	var nearest time.Duration = -1
	for _, r := range t.records {
		remaining := r.Deadline(timeout).Sub(now)
		if nearest < 0 || remaining < nearest {
			nearest = remaining
		}
	}
	if nearest < 0 {
		return 0
	}
	return nearest
}

// Expired returns the records whose deadline has passed as of now.
func (t *Table) Expired(timeout time.Duration, now time.Time) []*Record {
	var out []*Record
	for _, r := range t.records {
		if !now.Before(r.Deadline(timeout)) {
			out = append(out, r)
		}
	}
	return out
}
