package strudel

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Composition is the top-level aggregate: tempo, the registered tracks in
// play order, and the master parameters. BeatsPerCycle sets how many beats
// one pattern cycle spans, so the cycle rate in cycles per second is
// (BPM/60)/BeatsPerCycle, matching the setcps(bpm/60/beats) convention of the
// live-coding scripts. Compositions are immutable after construction; all
// queries build fresh values.
type Composition struct {
	Name          string `yaml:",omitempty"`
	BPM           int
	BeatsPerCycle int
	Gain          float64 `yaml:",omitempty"` // master gain; 0 is treated as unity
	Room          float64 `yaml:",omitempty"` // master reverb send floor, 0 .. 1
	Tracks        []Track
}

// NewComposition validates and aggregates the given tracks, in registration
// order, into a Composition.
func NewComposition(bpm, beatsPerCycle int, tracks ...Track) (Composition, error) {
	c := Composition{BPM: bpm, BeatsPerCycle: beatsPerCycle, Tracks: tracks}
	if err := c.Validate(); err != nil {
		return Composition{}, err
	}
	return c, nil
}

func (c *Composition) Copy() Composition {
	tracks := make([]Track, len(c.Tracks))
	for i, t := range c.Tracks {
		tracks[i] = t.Copy()
	}
	return Composition{Name: c.Name, BPM: c.BPM, BeatsPerCycle: c.BeatsPerCycle, Gain: c.Gain, Room: c.Room, Tracks: tracks}
}

func (c *Composition) Validate() error {
	if c.BPM < 1 || c.BeatsPerCycle < 1 {
		return &TempoError{BPM: c.BPM, BeatsPerCycle: c.BeatsPerCycle}
	}
	if c.Gain < 0 {
		return errors.New("master gain cannot be negative")
	}
	if c.Room < 0 || c.Room > 1 {
		return errors.New("master room should be in the range 0 .. 1")
	}
	for i, t := range c.Tracks {
		if len(t.Pattern) == 0 {
			return fmt.Errorf("track %v has an empty pattern", trackLabel(i, &t))
		}
		if err := t.Params.check(); err != nil {
			return fmt.Errorf("track %v: %v", trackLabel(i, &t), err)
		}
	}
	return nil
}

// SecondsPerCycle returns the wall-clock duration of one pattern cycle.
func (c *Composition) SecondsPerCycle() float64 {
	return float64(c.BeatsPerCycle) * 60 / float64(c.BPM)
}

func trackLabel(index int, t *Track) string {
	if t.Name != "" {
		return fmt.Sprintf("%q", t.Name)
	}
	return fmt.Sprintf("#%v", index)
}

// ReadComposition unmarshals a yaml composition document and validates it.
func ReadComposition(data []byte) (Composition, error) {
	var c Composition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Composition{}, fmt.Errorf("could not unmarshal composition: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Composition{}, err
	}
	return c, nil
}

// Bytes marshals the composition into its yaml document form.
func (c *Composition) Bytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("could not marshal composition: %v", err)
	}
	return data, nil
}
