package score

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/leandrodaf/buzzer/sdk/contracts"
	"gopkg.in/yaml.v3"
)

// fileFormat is the YAML layout of a score file:
//
//	notes:
//	  F#4: 370
//	melodies:
//	  - id: ode_to_joy
//	    name: Ode to Joy
//	    bpm: 120
//	    steps: ["E4:1", "E4:1", "F4:1", "G4:1", "REST:2"]
type fileFormat struct {
	Notes    map[string]uint16 `yaml:"notes"`
	Melodies []fileMelody      `yaml:"melodies"`
}

type fileMelody struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	BPM   int      `yaml:"bpm"`
	Steps []string `yaml:"steps"`
}

// LoadFile reads a YAML score file on top of the default table.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open score file: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode parses a YAML score document. Notes are merged over the default
// frequencies and melodies are added after the built-in ones.
func Decode(r io.Reader) (*Table, error) {
	var doc fileFormat
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode score: %w", err)
	}

	t := NewTable(Frequencies)
	for name, hz := range doc.Notes {
		t.SetFrequency(contracts.Note(name), hz)
	}
	for _, m := range builtin {
		if err := t.Add(m); err != nil {
			return nil, err
		}
	}

	for _, fm := range doc.Melodies {
		m := contracts.Melody{ID: fm.ID, Name: fm.Name, BPM: fm.BPM}
		for i, raw := range fm.Steps {
			step, err := ParseStep(raw)
			if err != nil {
				return nil, fmt.Errorf("melody %q step %d: %w", fm.ID, i, err)
			}
			m.Steps = append(m.Steps, step)
		}
		if err := t.Add(m); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseStep parses "NOTE:beats". A bare "NOTE" lasts one beat.
func ParseStep(raw string) (contracts.Step, error) {
	name, beats, found := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return contracts.Step{}, fmt.Errorf("empty step %q", raw)
	}
	step := contracts.Step{Note: contracts.Note(name), Beats: 1}
	if found {
		n, err := strconv.Atoi(strings.TrimSpace(beats))
		if err != nil {
			return contracts.Step{}, fmt.Errorf("step %q: %w", raw, err)
		}
		step.Beats = n
	}
	return step, nil
}
