// Package config loads the buzzer application configuration from a YAML file
// and environment variables and turns it into controller options.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is matched by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables that override the file.
const (
	EnvPort     = "BUZZER_PORT"
	EnvBaud     = "BUZZER_BAUD"
	EnvLogLevel = "BUZZER_LOG_LEVEL"
)

// Config is the application configuration.
type Config struct {
	Port         string        `yaml:"port"`
	Baud         int           `yaml:"baud"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	PullUp       bool          `yaml:"pull_up"`
	Sampling     time.Duration `yaml:"sampling_interval"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	BuzzerPin uint8         `yaml:"buzzer_pin"`
	Debounce  time.Duration `yaml:"debounce"`
	Score     string        `yaml:"score"` // Optional score file merged over the built-in table.

	Dispatch string   `yaml:"dispatch"` // per-source, cyclic or stepper.
	Buttons  []Button `yaml:"buttons"`  // per-source bindings.
	Trigger  *Input   `yaml:"trigger"`  // Source of cyclic and stepper modes.
	Cycle    []Entry  `yaml:"cycle"`

	Scale    string        `yaml:"scale"` // Melody walked by the stepper.
	StepTone time.Duration `yaml:"step_tone"`

	MIDI MIDI `yaml:"midi"`
}

// Input describes one trigger source.
type Input struct {
	Kind      string  `yaml:"kind"`    // digital, analog or midi.
	Pin       uint8   `yaml:"pin"`     // Pin number, or note number for midi.
	Trigger   string  `yaml:"trigger"` // active-low, active-high or threshold.
	Threshold float64 `yaml:"threshold"`
}

// Entry is a melody with an optional tempo override and indicator LED.
type Entry struct {
	Melody string `yaml:"melody"`
	BPM    int    `yaml:"bpm"`
	LED    *uint8 `yaml:"led"`
}

// Button binds an input to a melody.
type Button struct {
	Input `yaml:",inline"`
	Entry `yaml:",inline"`
}

// MIDI selects a MIDI pad whose keys can be used as inputs.
type MIDI struct {
	Enabled    bool   `yaml:"enabled"`
	Device     int    `yaml:"device"`
	ClientName string `yaml:"client_name"`
}

func led(pin uint8) *uint8 { return &pin }

// Default returns the two-button setup: a button on D2 plays Twinkle Twinkle
// Little Star with the LED on D4, a button on D3 plays Happy Birthday with
// the LED on D5. Both buttons are wired to ground with the internal pull-up.
func Default() *Config {
	return &Config{
		Port:         "/dev/ttyACM0",
		Baud:         57600,
		ReadyTimeout: 5 * time.Second,
		PullUp:       true,
		LogLevel:     "info",
		BuzzerPin:    8,
		Debounce:     200 * time.Millisecond,
		Dispatch:     contracts.PerSource.String(),
		Buttons: []Button{
			{
				Input: Input{Kind: "digital", Pin: 2, Trigger: "active-low"},
				Entry: Entry{Melody: score.TwinkleStar, LED: led(4)},
			},
			{
				Input: Input{Kind: "digital", Pin: 3, Trigger: "active-low"},
				Entry: Entry{Melody: score.HappyBirthday, LED: led(5)},
			},
		},
		Scale:    score.CMajorScale,
		StepTone: 500 * time.Millisecond,
	}
}

// LoadEnv loads .env style files into the process environment. Missing files
// are skipped; with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path over Default, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads a YAML document over Default without applying the environment.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides the port, baud rate and log level from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		c.Port = v
	}
	if v := os.Getenv(EnvBaud); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvBaud, v)
		}
		c.Baud = baud
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports every problem found, wrapped in ErrInvalidConfig. Melody
// ids are checked later against the score table.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Port == "" {
		add("port is required")
	}
	if c.Baud <= 0 {
		add("baud must be positive, got %d", c.Baud)
	}
	if c.Debounce < 0 {
		add("debounce must not be negative")
	}
	if !knownLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q", c.LogLevel)
	}

	dispatch, err := ParseDispatch(c.Dispatch)
	if err != nil {
		add("%v", err)
	}

	checkInput := func(name string, in Input) {
		if _, err := in.trigger(); err != nil {
			add("%s: %v", name, err)
		}
		if in.Threshold < 0 || in.Threshold > 1 {
			add("%s: threshold %v outside 0..1", name, in.Threshold)
		}
	}
	checkEntry := func(name string, e Entry) {
		if e.Melody == "" {
			add("%s: melody is required", name)
		}
		if e.BPM < 0 {
			add("%s: bpm must not be negative", name)
		}
	}

	switch dispatch {
	case contracts.PerSource:
		if len(c.Buttons) == 0 {
			add("per-source dispatch needs at least one button")
		}
		for i, b := range c.Buttons {
			name := fmt.Sprintf("buttons[%d]", i)
			checkInput(name, b.Input)
			checkEntry(name, b.Entry)
		}
	case contracts.Cyclic, contracts.Stepper:
		if c.Trigger == nil {
			add("%s dispatch needs a trigger", dispatch)
		} else {
			checkInput("trigger", *c.Trigger)
		}
		if dispatch == contracts.Cyclic && len(c.Cycle) == 0 {
			add("cyclic dispatch needs at least one cycle entry")
		}
		for i, e := range c.Cycle {
			checkEntry(fmt.Sprintf("cycle[%d]", i), e)
		}
		if dispatch == contracts.Stepper && c.Scale == "" {
			add("stepper dispatch needs a scale")
		}
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// ParseDispatch parses "per-source", "cyclic" or "stepper". Empty means per-source.
func ParseDispatch(name string) (contracts.DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "per-source":
		return contracts.PerSource, nil
	case "cyclic":
		return contracts.Cyclic, nil
	case "stepper":
		return contracts.Stepper, nil
	default:
		return 0, fmt.Errorf("unknown dispatch mode %q", name)
	}
}

func (in Input) source() (contracts.Source, error) {
	src := contracts.Source{Pin: contracts.PinID(in.Pin)}
	switch strings.ToLower(in.Kind) {
	case "", "digital":
		src.Kind = contracts.Digital
	case "analog":
		src.Kind = contracts.Analog
	case "midi":
		src.Kind = contracts.MIDINote
	default:
		return src, fmt.Errorf("unknown input kind %q", in.Kind)
	}
	return src, nil
}

func (in Input) trigger() (contracts.Trigger, error) {
	src, err := in.source()
	if err != nil {
		return contracts.Trigger{}, err
	}
	t := contracts.Trigger{Source: src, Threshold: in.Threshold}

	switch strings.ToLower(in.Trigger) {
	case "":
		// Digital buttons are wired to ground. MIDI keys fire on any velocity.
		switch src.Kind {
		case contracts.Digital:
			t.Mode = contracts.ActiveLow
		case contracts.Analog:
			t.Mode = contracts.Threshold
		case contracts.MIDINote:
			t.Mode = contracts.Threshold
			if t.Threshold == 0 {
				t.Threshold = contracts.NoteStartThreshold
			}
		default:
			t.Mode = contracts.ActiveHigh
		}
	case "active-low":
		t.Mode = contracts.ActiveLow
	case "active-high":
		t.Mode = contracts.ActiveHigh
	case "threshold":
		t.Mode = contracts.Threshold
	default:
		return t, fmt.Errorf("unknown trigger %q", in.Trigger)
	}
	return t, nil
}

func (e Entry) binding(t contracts.Trigger) contracts.Binding {
	b := contracts.Binding{Trigger: t, MelodyID: e.Melody, BPM: e.BPM}
	if e.LED != nil {
		pin := contracts.PinID(*e.LED)
		b.Indicator = &pin
	}
	return b
}

var knownLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true, "fatal": true,
}

// Level returns the configured log level.
func (c *Config) Level() contracts.LogLevel {
	return contracts.ParseLogLevel(strings.ToLower(c.LogLevel))
}

// UsesMIDI reports whether any configured input is a MIDI note.
func (c *Config) UsesMIDI() bool {
	if c.Trigger != nil && strings.EqualFold(c.Trigger.Kind, "midi") {
		return true
	}
	for _, b := range c.Buttons {
		if strings.EqualFold(b.Kind, "midi") {
			return true
		}
	}
	return false
}

// Options builds the controller options for the dispatch mode. The config
// must have passed Validate.
func (c *Config) Options() ([]contracts.Option, error) {
	opts := []contracts.Option{
		contracts.WithLogLevel(c.Level()),
		contracts.WithBuzzerPin(contracts.PinID(c.BuzzerPin)),
		contracts.WithDebounce(c.Debounce),
		contracts.WithStepTone(c.StepTone),
	}

	dispatch, err := ParseDispatch(c.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch dispatch {
	case contracts.PerSource:
		bindings := make([]contracts.Binding, 0, len(c.Buttons))
		for _, b := range c.Buttons {
			t, err := b.trigger()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
			bindings = append(bindings, b.binding(t))
		}
		opts = append(opts, contracts.WithPerSource(bindings...))

	case contracts.Cyclic, contracts.Stepper:
		if c.Trigger == nil {
			return nil, fmt.Errorf("%w: %s dispatch needs a trigger", ErrInvalidConfig, dispatch)
		}
		t, err := c.Trigger.trigger()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if dispatch == contracts.Stepper {
			opts = append(opts, contracts.WithStepper(t, c.Scale))
			break
		}
		cycle := make([]contracts.Binding, 0, len(c.Cycle))
		for _, e := range c.Cycle {
			cycle = append(cycle, e.binding(contracts.Trigger{}))
		}
		opts = append(opts, contracts.WithCycle(t, cycle...))
	}
	return opts, nil
}
