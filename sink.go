package strudel

import "fmt"

// EventSink receives timeline events in timestamp order. The sink owns the
// actual sound rendering; the core only pushes one notification per scheduled
// hit and never calls back.
type EventSink interface {
	PlayEvent(e TimelineEvent) error
	Close() error
}

// Play pushes the timeline into the sink, one event at a time in timestamp
// order. Playback stops at the first sink error; there are no retries, the
// caller decides whether to rebuild and play again.
func (tl Timeline) Play(sink EventSink) error {
	for _, e := range tl {
		if err := sink.PlayEvent(e); err != nil {
			return fmt.Errorf("playing event at %v s failed: %v", e.Time, err)
		}
	}
	return nil
}
