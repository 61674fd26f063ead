// Package presets ships ready-made demo compositions, one per style. They
// double as non-trivial test material for the pattern compiler and the
// timeline builder.
package presets

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	strudel "github.com/bjpl/learn-strudel"
)

//go:embed compositions/*.yml
var compositionFS embed.FS

// Names lists the available presets in alphabetical order.
func Names() []string {
	entries, err := fs.ReadDir(compositionFS, "compositions")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names
}

// Load reads and validates one preset composition. Unknown yaml fields in a
// preset are an error, so typos in the shipped files cannot silently drop
// parameters.
func Load(name string) (strudel.Composition, error) {
	data, err := compositionFS.ReadFile("compositions/" + name + ".yml")
	if err != nil {
		return strudel.Composition{}, fmt.Errorf("no preset called %q", name)
	}
	var c strudel.Composition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return strudel.Composition{}, fmt.Errorf("preset %q is broken: %v", name, err)
	}
	if err := c.Validate(); err != nil {
		return strudel.Composition{}, fmt.Errorf("preset %q is broken: %v", name, err)
	}
	return c, nil
}
