package strudel

import "errors"

type (
	// Params are the mixing parameters of a track. The zero value is a silent
	// track; compositions are expected to set at least Gain.
	Params struct {
		Gain     float64 `yaml:",omitempty"` // linear gain, >= 0
		Lowpass  float64 `yaml:",omitempty"` // low-pass cutoff in Hz; 0 means no filter
		Highpass float64 `yaml:",omitempty"` // high-pass cutoff in Hz; 0 means no filter
		Pan      float64 `yaml:",omitempty"` // stereo position, -1 (left) .. 1 (right)
		Room     float64 `yaml:",omitempty"` // reverb send, 0 .. 1
		Delay    float64 `yaml:",omitempty"` // delay send, 0 .. 1
		Velocity float64 `yaml:",omitempty"` // note velocity scale; 0 is treated as 1
	}

	// Track binds one Pattern to an instrument and its mixing parameters.
	// Sound is the instrument that plays the pattern tokens as notes, e.g.
	// "sawtooth" or "piano"; when Sound is empty each token names a sample
	// directly, the way s("bd sd") does. Tracks are immutable after
	// composition build time: parameter overrides produce new snapshots and
	// never alter the original.
	Track struct {
		Name    string `yaml:",omitempty"`
		Sound   string `yaml:",omitempty"`
		Pattern Pattern
		Params  Params `yaml:",flow"`
	}

	// TrackEvent is a compiled event together with the parameter snapshot it
	// should be played with.
	TrackEvent struct {
		Event
		Params Params
	}
)

// NewTrack parses the mini-notation pattern and binds it into a Track.
func NewTrack(name, sound, pattern string, params Params) (Track, error) {
	p, err := Parse(pattern)
	if err != nil {
		return Track{}, err
	}
	return Track{Name: name, Sound: sound, Pattern: p, Params: params}, nil
}

func (t *Track) Copy() Track {
	return Track{Name: t.Name, Sound: t.Sound, Pattern: t.Pattern.Copy(), Params: t.Params}
}

// RenderCycle compiles the track's pattern for one cycle and attaches the
// effective parameters: the track's own values, with the override map winning
// key-by-key. Keys are the lowercase field names ("gain", "lowpass",
// "highpass", "pan", "room", "delay", "velocity"); unknown keys are ignored.
func (t *Track) RenderCycle(cycle int, overrides map[string]float64) []TrackEvent {
	params := t.Params.WithOverrides(overrides)
	events := t.Pattern.Compile(cycle)
	ret := make([]TrackEvent, 0, len(events))
	for _, e := range events {
		ret = append(ret, TrackEvent{Event: e, Params: params})
	}
	return ret
}

// WithOverrides returns a copy of p with the named values replaced. p itself
// is not modified, so the track defaults survive the call.
func (p Params) WithOverrides(overrides map[string]float64) Params {
	for key, value := range overrides {
		switch key {
		case "gain":
			p.Gain = value
		case "lowpass":
			p.Lowpass = value
		case "highpass":
			p.Highpass = value
		case "pan":
			p.Pan = value
		case "room":
			p.Room = value
		case "delay":
			p.Delay = value
		case "velocity":
			p.Velocity = value
		}
	}
	return p
}

func (p *Params) check() error {
	if p.Gain < 0 {
		return errors.New("gain cannot be negative")
	}
	if p.Lowpass < 0 || p.Highpass < 0 {
		return errors.New("filter cutoffs cannot be negative")
	}
	if p.Pan < -1 || p.Pan > 1 {
		return errors.New("pan should be in the range -1 .. 1")
	}
	if p.Room < 0 || p.Room > 1 {
		return errors.New("room should be in the range 0 .. 1")
	}
	if p.Delay < 0 || p.Delay > 1 {
		return errors.New("delay should be in the range 0 .. 1")
	}
	if p.Velocity < 0 {
		return errors.New("velocity cannot be negative")
	}
	return nil
}
