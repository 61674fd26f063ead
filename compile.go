package strudel

// Event is one compiled hit of a pattern. Offset and Duration are fractions
// of the cycle, so an event starting on the third quarter of a four slot
// cycle has Offset 0.75 and Duration 0.25.
type Event struct {
	Offset   float64 // start within the cycle, in [0,1)
	Duration float64 // fraction of the cycle the event occupies
	Sound    string
	Variant  int // -1 when the token had no variant suffix
}

// Compile resolves the pattern for the given cycle into events. Every one of
// the N top-level tokens occupies exactly 1/N of the cycle; groups occupy one
// such slot regardless of how many members they have. Rests produce no event,
// so silence is the absence of an event rather than a zero-gain one. Compile
// is a pure function: the same pattern and cycle always yield the same events
// and the pattern is never modified.
func (p Pattern) Compile(cycle int) []Event {
	n := len(p)
	if n == 0 {
		return nil
	}
	events := make([]Event, 0, n)
	for i, token := range p {
		events = token.compile(events, cycle, float64(i)/float64(n), 1/float64(n))
	}
	return events
}

func (t Token) compile(events []Event, cycle int, offset, duration float64) []Event {
	switch t.Kind {
	case Hit:
		k := t.Repeat
		if k < 1 {
			k = 1
		}
		for r := 0; r < k; r++ {
			events = append(events, Event{
				Offset:   offset + duration*float64(r)/float64(k),
				Duration: duration / float64(k),
				Sound:    t.Sound,
				Variant:  t.Variant,
			})
		}
	case Alternation:
		if l := len(t.Children); l > 0 {
			// pure function of the cycle index; negative indices wrap
			child := t.Children[((cycle%l)+l)%l]
			events = child.compile(events, cycle, offset, duration)
		}
	case Subdivision:
		l := len(t.Children)
		for i, child := range t.Children {
			events = child.compile(events, cycle, offset+duration*float64(i)/float64(l), duration/float64(l))
		}
	}
	return events
}
