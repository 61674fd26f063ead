package strudel

import (
	"errors"
	"fmt"
	"sort"
)

type (
	// TimelineEvent is one fully resolved hit: absolute time in seconds from
	// the start of the timeline, the sounding identity, and the parameter
	// snapshot with the master gain and room already applied.
	TimelineEvent struct {
		Time       float64 // seconds from the start of the timeline
		Duration   float64 // seconds
		Sound      string  // the pattern token that triggered the event
		Instrument string  // the track's instrument; empty for sample tracks
		Variant    int     // -1 when absent
		Params     Params
	}

	// Timeline is the time-ordered event sequence of a finite rendering
	// window. It is built fresh on every request and never mutated in place;
	// any tempo or parameter change means building a new one.
	Timeline []TimelineEvent
)

// ErrNoTracks is returned when a timeline is requested from a composition
// with no registered tracks.
var ErrNoTracks = errors.New("composition has no tracks")

// TempoError reports an unplayable tempo configuration.
type TempoError struct {
	BPM           int
	BeatsPerCycle int
}

func (e *TempoError) Error() string {
	return fmt.Sprintf("invalid tempo: BPM %v, beats per cycle %v (both should be > 0)", e.BPM, e.BeatsPerCycle)
}

// Timeline renders numCycles cycles of the composition into one absolute-time
// ordered event sequence. overrides replaces track parameters key-by-key for
// this build only, keyed by track name; nil leaves all tracks at their
// defaults. Events with exactly equal timestamps keep track registration
// order, so two builds of the same composition are identical. The master gain
// multiplies every event's gain at build time and is never baked into the
// stored tracks; the master room acts as a send floor under each track's own
// room amount. On failure no partial timeline is returned.
func (c *Composition) Timeline(numCycles int, overrides map[string]map[string]float64) (Timeline, error) {
	if c.BPM < 1 || c.BeatsPerCycle < 1 {
		return nil, &TempoError{BPM: c.BPM, BeatsPerCycle: c.BeatsPerCycle}
	}
	if len(c.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	if numCycles < 0 {
		return nil, fmt.Errorf("cannot render %v cycles", numCycles)
	}
	master := c.Gain
	if master == 0 {
		master = 1
	}
	secondsPerCycle := c.SecondsPerCycle()
	timeline := make(Timeline, 0, numCycles*len(c.Tracks))
	for cycle := 0; cycle < numCycles; cycle++ {
		for i := range c.Tracks {
			track := &c.Tracks[i]
			for _, e := range track.RenderCycle(cycle, overrides[track.Name]) {
				params := e.Params
				params.Gain *= master
				if params.Room < c.Room {
					params.Room = c.Room
				}
				timeline = append(timeline, TimelineEvent{
					Time:       (float64(cycle) + e.Offset) * secondsPerCycle,
					Duration:   e.Duration * secondsPerCycle,
					Sound:      e.Sound,
					Instrument: track.Sound,
					Variant:    e.Variant,
					Params:     params,
				})
			}
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Time < timeline[j].Time
	})
	return timeline, nil
}
