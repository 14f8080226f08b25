package metrics

import "time"

// Recorder is the union of the acceptor and responder event hooks.
// *Collector and *telemetry.ConnectionMetrics both satisfy it.
type Recorder interface {
	RecordAccepted()
	RecordRejected(reason string)
	RecordAcceptError()
	HandlerStarted(wait time.Duration)
	HandlerDone(d time.Duration)
	RecordResponse(status int, size int)
}

// Tee returns a Recorder forwarding every event to each of rs in order.
// nil entries are skipped.
func Tee(rs ...Recorder) Recorder {
	out := make(tee, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

type tee []Recorder

func (t tee) RecordAccepted() {
	for _, r := range t {
		r.RecordAccepted()
	}
}

func (t tee) RecordRejected(reason string) {
	for _, r := range t {
		r.RecordRejected(reason)
	}
}

func (t tee) RecordAcceptError() {
	for _, r := range t {
		r.RecordAcceptError()
	}
}

func (t tee) HandlerStarted(wait time.Duration) {
	for _, r := range t {
		r.HandlerStarted(wait)
	}
}

func (t tee) HandlerDone(d time.Duration) {
	for _, r := range t {
		r.HandlerDone(d)
	}
}

func (t tee) RecordResponse(status int, size int) {
	for _, r := range t {
		r.RecordResponse(status, size)
	}
}
