// Package midi renders timelines into Standard MIDI Files. It is an
// EventSink for callers that want to hand a composition to a DAW or a
// hardware sequencer instead of a live-coding environment: sample tracks go
// to the General MIDI percussion channel, pitched tracks get one channel per
// instrument, and the mixing parameters map to note velocities and MIDI
// controllers.
package midi

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	strudel "github.com/bjpl/learn-strudel"
)

const (
	ticksPerBeat      = 960
	percussionChannel = 9
)

// General MIDI percussion keys for the sample names the compositions use.
// Variant suffixes offset the key, so conga:0, conga:1 and conga:2 become the
// mute high, open high and low congas.
var percussionKeys = map[string]uint8{
	"bd":     36,
	"rim":    37,
	"sd":     38,
	"cp":     39,
	"lt":     41,
	"hh":     42,
	"oh":     46,
	"crash":  49,
	"ride":   51,
	"cb":     56,
	"bongo":  60,
	"conga":  62,
	"tim":    65,
	"shaker": 70,
	"clave":  75,
	"metal":  80,
}

// fallbackKey is used for sample names with no General MIDI counterpart, e.g.
// the amen and glitch loops.
const fallbackKey = 37

// Sink collects timeline events and renders them into an in-memory Standard
// MIDI File. Events must arrive in timestamp order, which Timeline.Play
// guarantees.
type Sink struct {
	bpm      int
	channels map[string]uint8          // instrument name -> allocated channel
	controls map[uint8]map[uint8]uint8 // channel -> controller -> last sent value
	events   []channelEvent
}

type channelEvent struct {
	tick    uint32
	channel uint8
	// note offs and controller changes sort before note ons on the same tick
	prio int
	msg  midi.Message
}

// NewSink returns a sink that stamps the file with the given tempo.
func NewSink(bpm int) *Sink {
	return &Sink{
		bpm:      bpm,
		channels: map[string]uint8{},
		controls: map[uint8]map[uint8]uint8{},
	}
}

// PlayEvent converts one timeline event into note on/off messages. Events
// whose effective gain rounds to silence are dropped rather than sent as
// zero-velocity notes.
func (s *Sink) PlayEvent(e strudel.TimelineEvent) error {
	key, channel, err := s.resolve(e)
	if err != nil {
		return err
	}
	vel := velocity(e.Params)
	if vel == 0 {
		return nil
	}
	onTick := s.tick(e.Time)
	offTick := s.tick(e.Time + e.Duration)
	if offTick <= onTick {
		offTick = onTick + 1
	}
	s.sendControls(onTick, channel, e.Params)
	s.add(onTick, channel, 1, midi.NoteOn(channel, key, vel))
	s.add(offTick, channel, 0, midi.NoteOff(channel, key))
	return nil
}

func (s *Sink) Close() error {
	return nil
}

// SMF assembles the collected events into a Standard MIDI File: one tempo
// track followed by one track per used channel, in channel order.
func (s *Sink) SMF() (*smf.SMF, error) {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerBeat)
	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(s.bpm)))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fmt.Errorf("adding the tempo track failed: %v", err)
	}
	for _, channel := range s.usedChannels() {
		events := make([]channelEvent, 0, len(s.events))
		for _, e := range s.events {
			if e.channel == channel {
				events = append(events, e)
			}
		}
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return events[i].prio < events[j].prio
		})
		var track smf.Track
		last := uint32(0)
		for _, e := range events {
			track.Add(e.tick-last, e.msg)
			last = e.tick
		}
		track.Close(0)
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("adding the track for channel %v failed: %v", channel, err)
		}
	}
	return sm, nil
}

func (s *Sink) tick(seconds float64) uint32 {
	return uint32(math.Round(seconds * float64(s.bpm) / 60 * ticksPerBeat))
}

func (s *Sink) add(tick uint32, channel uint8, prio int, msg midi.Message) {
	s.events = append(s.events, channelEvent{tick: tick, channel: channel, prio: prio, msg: msg})
}

func (s *Sink) usedChannels() []uint8 {
	seen := map[uint8]bool{}
	var channels []uint8
	for _, e := range s.events {
		if !seen[e.channel] {
			seen[e.channel] = true
			channels = append(channels, e.channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// resolve maps an event to its MIDI key and channel. Sample tracks play on
// the percussion channel; each pitched instrument gets the next free channel.
func (s *Sink) resolve(e strudel.TimelineEvent) (key, channel uint8, err error) {
	if e.Instrument == "" {
		key, ok := percussionKeys[e.Sound]
		if !ok {
			key = fallbackKey
		}
		if e.Variant > 0 {
			key += uint8(e.Variant)
		}
		return key, percussionChannel, nil
	}
	key, err = noteNameToKey(e.Sound)
	if err != nil {
		return 0, 0, err
	}
	channel, ok := s.channels[e.Instrument]
	if !ok {
		next := uint8(len(s.channels))
		if next >= percussionChannel {
			next++
		}
		if next > 15 {
			return 0, 0, fmt.Errorf("out of MIDI channels for instrument %q", e.Instrument)
		}
		s.channels[e.Instrument] = next
		channel = next
	}
	return key, channel, nil
}

// sendControls emits controller changes for the event's parameters, but only
// when a value differs from what the channel last saw. Lowpass goes to CC 74
// (brightness), pan to CC 10, room to CC 91 (reverb send) and delay to CC 93.
func (s *Sink) sendControls(tick uint32, channel uint8, p strudel.Params) {
	if p.Lowpass > 0 {
		s.sendControl(tick, channel, 74, scaled(p.Lowpass/8000))
	}
	s.sendControl(tick, channel, 10, uint8(math.Round((p.Pan+1)/2*127)))
	s.sendControl(tick, channel, 91, scaled(p.Room))
	s.sendControl(tick, channel, 93, scaled(p.Delay))
}

func (s *Sink) sendControl(tick uint32, channel, controller, value uint8) {
	sent := s.controls[channel]
	if sent == nil {
		sent = map[uint8]uint8{}
		s.controls[channel] = sent
	}
	if previous, ok := sent[controller]; ok && previous == value {
		return
	}
	sent[controller] = value
	s.add(tick, channel, 0, midi.ControlChange(channel, controller, value))
}

func scaled(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 127
	}
	return uint8(math.Round(v * 127))
}

func velocity(p strudel.Params) uint8 {
	scale := p.Velocity
	if scale == 0 {
		scale = 1
	}
	v := int(math.Round(100 * p.Gain * scale))
	if v < 1 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}

var noteOffsets = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// noteNameToKey converts a note name like c4, eb2 or f#3 into a MIDI key,
// with c4 = 60.
func noteNameToKey(name string) (uint8, error) {
	if name == "" {
		return 0, fmt.Errorf("empty note name")
	}
	semitone, ok := noteOffsets[name[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	rest := name[1:]
	if len(rest) > 1 {
		switch rest[0] {
		case '#', 's':
			semitone++
			rest = rest[1:]
		case 'b':
			semitone--
			rest = rest[1:]
		}
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	key := (octave+1)*12 + semitone
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("note %q is outside the MIDI range", name)
	}
	return uint8(key), nil
}
