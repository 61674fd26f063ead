// Package export turns a composition back into runnable Strudel source, the
// script form the live-coding environment pastes in: a setcps tempo header,
// one const per track with its parameter chain, and a final stack(...).
package export

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"

	strudel "github.com/bjpl/learn-strudel"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type Exporter struct {
	Template *template.Template
}

// New returns an exporter using the default script template.
func New() (*Exporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("could not create templates: %v", err)
	}
	return &Exporter{Template: tmpl}, nil
}

type (
	scriptTrack struct {
		Var     string
		Sound   string
		Pattern string
		Params  strudel.Params
	}

	scriptData struct {
		Name          string
		BPM           int
		BeatsPerCycle int
		Gain          float64
		Room          float64
		Tracks        []scriptTrack
		Vars          []string
	}
)

// Script renders the composition into Strudel source. The composition is
// validated first, so the emitted script is always playable.
func (e *Exporter) Script(c strudel.Composition) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	data := scriptData{
		Name:          c.Name,
		BPM:           c.BPM,
		BeatsPerCycle: c.BeatsPerCycle,
		Gain:          c.Gain,
		Room:          c.Room,
	}
	for i := range c.Tracks {
		t := &c.Tracks[i]
		v := varName(t.Name, i)
		data.Tracks = append(data.Tracks, scriptTrack{
			Var:     v,
			Sound:   t.Sound,
			Pattern: t.Pattern.String(),
			Params:  t.Params,
		})
		data.Vars = append(data.Vars, v)
	}
	var buf bytes.Buffer
	if err := e.Template.ExecuteTemplate(&buf, "strudel.js.tmpl", &data); err != nil {
		return "", fmt.Errorf("could not execute the script template: %v", err)
	}
	return buf.String(), nil
}

// varName turns a track name into a javascript identifier, falling back to
// trackN when the name is empty or yields nothing usable.
func varName(name string, index int) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("track%v", index)
	}
	return b.String()
}
