package strudel_test

import (
	"errors"
	"testing"

	strudel "github.com/bjpl/learn-strudel"
)

func mustTrack(t *testing.T, name, sound, pattern string, params strudel.Params) strudel.Track {
	t.Helper()
	track, err := strudel.NewTrack(name, sound, pattern, params)
	if err != nil {
		t.Fatalf("NewTrack(%q) returned error: %v", pattern, err)
	}
	return track
}

func TestTimelineTimes(t *testing.T) {
	// 120 BPM with 2 beats per cycle makes each cycle exactly one second
	composition, err := strudel.NewComposition(120, 2,
		mustTrack(t, "kick", "", "bd ~ ~ bd", strudel.Params{Gain: 1}))
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	timeline, err := composition.Timeline(2, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	expected := []float64{0, 0.75, 1, 1.75}
	if len(timeline) != len(expected) {
		t.Fatalf("got %v events, expected %v", len(timeline), len(expected))
	}
	for i, e := range timeline {
		if e.Time != expected[i] {
			t.Errorf("event %v at %v s, expected %v s", i, e.Time, expected[i])
		}
		if e.Duration != 0.25 {
			t.Errorf("event %v duration %v s, expected 0.25 s", i, e.Duration)
		}
	}
}

func TestTimelineOrderAndTieBreak(t *testing.T) {
	composition, err := strudel.NewComposition(120, 2,
		mustTrack(t, "kick", "", "bd ~ bd ~", strudel.Params{Gain: 1}),
		mustTrack(t, "hats", "", "hh*4", strudel.Params{Gain: 0.6}))
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	timeline, err := composition.Timeline(3, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].Time < timeline[i-1].Time {
			t.Fatalf("timeline not sorted at event %v: %v < %v", i, timeline[i].Time, timeline[i-1].Time)
		}
		if timeline[i].Time == timeline[i-1].Time && timeline[i-1].Sound != "bd" {
			t.Fatalf("tie at %v s should keep track registration order, got %q before %q", timeline[i].Time, timeline[i-1].Sound, timeline[i].Sound)
		}
	}
	// both renders of the same composition are identical
	again, err := composition.Timeline(3, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	for i := range timeline {
		if timeline[i] != again[i] {
			t.Fatalf("two renders differ at event %v: %#v vs %#v", i, timeline[i], again[i])
		}
	}
}

func TestTimelineMasterGainAndRoom(t *testing.T) {
	track := mustTrack(t, "lead", "square", "c4", strudel.Params{Gain: 0.5, Room: 0.2})
	composition, err := strudel.NewComposition(120, 4, track)
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	composition.Gain = 0.8
	composition.Room = 0.5
	timeline, err := composition.Timeline(1, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("got %v events, expected 1", len(timeline))
	}
	if timeline[0].Params.Gain != 0.5*0.8 {
		t.Errorf("master gain not applied, got %v", timeline[0].Params.Gain)
	}
	if timeline[0].Params.Room != 0.5 {
		t.Errorf("master room should floor the track room, got %v", timeline[0].Params.Room)
	}
	if timeline[0].Instrument != "square" || timeline[0].Sound != "c4" {
		t.Errorf("event identity wrong: %#v", timeline[0])
	}
	// master gain is recomputed per build, never baked into the track
	if composition.Tracks[0].Params.Gain != 0.5 {
		t.Fatalf("master gain leaked into track params: %v", composition.Tracks[0].Params.Gain)
	}
	composition.Gain = 0.1
	timeline, err = composition.Timeline(1, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	if timeline[0].Params.Gain != 0.5*0.1 {
		t.Errorf("changed master gain not picked up, got %v", timeline[0].Params.Gain)
	}
}

func TestTimelineOverridesByTrackName(t *testing.T) {
	composition, err := strudel.NewComposition(120, 4,
		mustTrack(t, "kick", "", "bd", strudel.Params{Gain: 1.2}),
		mustTrack(t, "hats", "", "hh", strudel.Params{Gain: 0.6}))
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	timeline, err := composition.Timeline(1, map[string]map[string]float64{"hats": {"gain": 0.1}})
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	for _, e := range timeline {
		switch e.Sound {
		case "bd":
			if e.Params.Gain != 1.2 {
				t.Errorf("kick gain changed by an override for another track: %v", e.Params.Gain)
			}
		case "hh":
			if e.Params.Gain != 0.1 {
				t.Errorf("hats override not applied: %v", e.Params.Gain)
			}
		}
	}
	if composition.Tracks[1].Params.Gain != 0.6 {
		t.Fatalf("override leaked into the track: %v", composition.Tracks[1].Params.Gain)
	}
}

func TestTimelineFailures(t *testing.T) {
	empty := strudel.Composition{BPM: 120, BeatsPerCycle: 4}
	if _, err := empty.Timeline(1, nil); !errors.Is(err, strudel.ErrNoTracks) {
		t.Fatalf("empty composition should fail with ErrNoTracks, got %v", err)
	}
	composition, err := strudel.NewComposition(120, 4, mustTrack(t, "kick", "", "bd", strudel.Params{Gain: 1}))
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	composition.BPM = 0
	_, err = composition.Timeline(1, nil)
	var tempoErr *strudel.TempoError
	if !errors.As(err, &tempoErr) {
		t.Fatalf("zero BPM should fail with a TempoError, got %v", err)
	}
	if tempoErr.BPM != 0 || tempoErr.BeatsPerCycle != 4 {
		t.Fatalf("TempoError fields wrong: %#v", tempoErr)
	}
}

type recordingSink struct {
	events []strudel.TimelineEvent
	closed bool
}

func (s *recordingSink) PlayEvent(e strudel.TimelineEvent) error {
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestTimelinePlay(t *testing.T) {
	composition, err := strudel.NewComposition(120, 2, mustTrack(t, "kick", "", "bd ~ bd ~", strudel.Params{Gain: 1}))
	if err != nil {
		t.Fatalf("NewComposition returned error: %v", err)
	}
	timeline, err := composition.Timeline(2, nil)
	if err != nil {
		t.Fatalf("Timeline returned error: %v", err)
	}
	sink := &recordingSink{}
	if err := timeline.Play(sink); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if len(sink.events) != len(timeline) {
		t.Fatalf("sink received %v events, expected %v", len(sink.events), len(timeline))
	}
	for i := 1; i < len(sink.events); i++ {
		if sink.events[i].Time < sink.events[i-1].Time {
			t.Fatalf("sink received events out of order at %v", i)
		}
	}
}
