package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leandrodaf/buzzer/internal/controller"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildOptions(t *testing.T, cfg *Config) contracts.ControllerOptions {
	t.Helper()
	opts, err := cfg.Options()
	require.NoError(t, err)

	var out contracts.ControllerOptions
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts := buildOptions(t, cfg)
	assert.Equal(t, contracts.PerSource, opts.Dispatch)
	assert.Equal(t, contracts.PinID(8), opts.BuzzerPin)
	assert.Equal(t, 200*time.Millisecond, opts.Debounce)
	assert.Equal(t, contracts.InfoLevel, opts.LogLevel)
	require.Len(t, opts.Bindings, 2)

	twinkle := opts.Bindings[0]
	assert.Equal(t, contracts.Source{Kind: contracts.Digital, Pin: 2}, twinkle.Trigger.Source)
	assert.Equal(t, contracts.ActiveLow, twinkle.Trigger.Mode)
	assert.Equal(t, score.TwinkleStar, twinkle.MelodyID)
	require.NotNil(t, twinkle.Indicator)
	assert.Equal(t, contracts.PinID(4), *twinkle.Indicator)

	birthday := opts.Bindings[1]
	assert.Equal(t, contracts.PinID(3), birthday.Trigger.Source.Pin)
	assert.Equal(t, score.HappyBirthday, birthday.MelodyID)
	assert.Equal(t, contracts.PinID(5), *birthday.Indicator)
}

func TestDecode_Cyclic(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
port: COM9
debounce: 150ms
dispatch: cyclic
trigger:
  kind: analog
  pin: 0
  threshold: 0.6
cycle:
  - melody: twinkle_star
    led: 13
  - melody: happy_birthday
    bpm: 90
    led: 12
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "COM9", cfg.Port)
	assert.Equal(t, 57600, cfg.Baud)

	opts := buildOptions(t, cfg)
	assert.Equal(t, contracts.Cyclic, opts.Dispatch)
	assert.Equal(t, 150*time.Millisecond, opts.Debounce)
	require.NotNil(t, opts.CycleTrigger)
	assert.Equal(t, contracts.Trigger{
		Source:    contracts.Source{Kind: contracts.Analog, Pin: 0},
		Mode:      contracts.Threshold,
		Threshold: 0.6,
	}, *opts.CycleTrigger)
	require.Len(t, opts.Cycle, 2)
	assert.Equal(t, score.HappyBirthday, opts.Cycle[1].MelodyID)
	assert.Equal(t, 90, opts.Cycle[1].BPM)
	assert.Equal(t, contracts.PinID(12), *opts.Cycle[1].Indicator)
}

func TestDecode_StepperWithMIDI(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
dispatch: stepper
trigger: {kind: midi, pin: 60}
step_tone: 300ms
midi:
  enabled: true
  device: 1
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.UsesMIDI())
	assert.Equal(t, 1, cfg.MIDI.Device)

	opts := buildOptions(t, cfg)
	assert.Equal(t, contracts.Stepper, opts.Dispatch)
	assert.Equal(t, score.CMajorScale, opts.ScaleID)
	assert.Equal(t, 300*time.Millisecond, opts.StepTone)
	assert.Equal(t, contracts.Threshold, opts.CycleTrigger.Mode)
	assert.Equal(t, contracts.MIDINote, opts.CycleTrigger.Source.Kind)
}

func TestMIDITriggerFiresOnSoftKeys(t *testing.T) {
	trigger, err := Input{Kind: "midi", Pin: 60}.trigger()
	require.NoError(t, err)

	assert.True(t, controller.Pressed(trigger, 1.0/127), "velocity 1")
	assert.True(t, controller.Pressed(trigger, 40.0/127), "velocity 40")
	assert.True(t, controller.Pressed(trigger, 1), "velocity 127")
	assert.False(t, controller.Pressed(trigger, 0), "note end")

	trigger, err = Input{Kind: "midi", Pin: 60, Threshold: 0.5}.trigger()
	require.NoError(t, err)
	assert.False(t, controller.Pressed(trigger, 40.0/127), "explicit threshold is kept")
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("prot: COM3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"no port", func(c *Config) { c.Port = "" }, []string{"port is required"}},
		{"bad baud", func(c *Config) { c.Baud = 0 }, []string{"baud must be positive"}},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, []string{`unknown log_level "loud"`}},
		{"bad dispatch", func(c *Config) { c.Dispatch = "random" }, []string{`unknown dispatch mode "random"`}},
		{"no buttons", func(c *Config) { c.Buttons = nil }, []string{"at least one button"}},
		{
			"bad button",
			func(c *Config) {
				c.Buttons[0].Kind = "touch"
				c.Buttons[1].Melody = ""
			},
			[]string{`buttons[0]: unknown input kind "touch"`, "buttons[1]: melody is required"},
		},
		{"cyclic without trigger", func(c *Config) { c.Dispatch = "cyclic" }, []string{"needs a trigger", "at least one cycle entry"}},
		{
			"stepper without scale",
			func(c *Config) {
				c.Dispatch = "stepper"
				c.Trigger = &Input{Kind: "digital", Pin: 2, Trigger: "sideways"}
				c.Scale = ""
			},
			[]string{`trigger: unknown trigger "sideways"`, "needs a scale"},
		},
		{
			"threshold range",
			func(c *Config) { c.Buttons[0].Threshold = 1.5 },
			[]string{"threshold 1.5 outside 0..1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buzzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: /dev/ttyUSB0\nlog_level: warn\n"), 0o644))

	t.Setenv(EnvPort, "COM9")
	t.Setenv(EnvBaud, "115200")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "COM9", cfg.Port)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, contracts.DebugLevel, cfg.Level())
}

func TestLoad_BadBaudEnv(t *testing.T) {
	t.Setenv(EnvBaud, "fast")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BUZZER_PORT=/dev/ttyACM1\n"), 0o644))

	// godotenv never overrides variables that are already set.
	t.Setenv(EnvPort, "")
	require.NoError(t, os.Unsetenv(EnvPort))

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "/dev/ttyACM1", os.Getenv(EnvPort))
}

func TestParseDispatch(t *testing.T) {
	for name, want := range map[string]contracts.DispatchMode{
		"":           contracts.PerSource,
		"per-source": contracts.PerSource,
		"Cyclic":     contracts.Cyclic,
		" stepper ":  contracts.Stepper,
	} {
		got, err := ParseDispatch(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDispatch("shuffle")
	assert.Error(t, err)
}
