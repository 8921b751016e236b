package score

import "github.com/leandrodaf/buzzer/sdk/contracts"

// Built-in melody ids.
const (
	TwinkleStar   = "twinkle_star"
	HappyBirthday = "happy_birthday"
	CMajorScale   = "c_major_scale"
)

// Frequencies is the default note table in whole hertz.
var Frequencies = map[contracts.Note]uint16{
	"C4": 261, "D4": 294, "E4": 330, "F4": 349,
	"G4": 392, "A4": 440, "B4": 494, "C5": 523,
	"D5": 587, "E5": 659, "F5": 698, "G5": 784,
	"A5": 880, "B5": 988, "C6": 1047,
	contracts.Rest: 0,
}

var builtin = []contracts.Melody{
	{
		ID:   TwinkleStar,
		Name: "Twinkle Twinkle Little Star",
		BPM:  100,
		Steps: []contracts.Step{
			{Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "G4", Beats: 1}, {Note: "G4", Beats: 1},
			{Note: "A4", Beats: 1}, {Note: "A4", Beats: 1}, {Note: "G4", Beats: 2},
			{Note: "F4", Beats: 1}, {Note: "F4", Beats: 1}, {Note: "E4", Beats: 1}, {Note: "E4", Beats: 1},
			{Note: "D4", Beats: 1}, {Note: "D4", Beats: 1}, {Note: "C4", Beats: 2},
			{Note: "G4", Beats: 1}, {Note: "G4", Beats: 1}, {Note: "F4", Beats: 1}, {Note: "F4", Beats: 1},
			{Note: "E4", Beats: 1}, {Note: "E4", Beats: 1}, {Note: "D4", Beats: 2},
			{Note: "G4", Beats: 1}, {Note: "G4", Beats: 1}, {Note: "F4", Beats: 1}, {Note: "F4", Beats: 1},
			{Note: "E4", Beats: 1}, {Note: "E4", Beats: 1}, {Note: "D4", Beats: 2},
		},
	},
	{
		ID:   HappyBirthday,
		Name: "Happy Birthday",
		BPM:  120,
		Steps: []contracts.Step{
			{Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "D4", Beats: 2}, {Note: "C4", Beats: 2}, {Note: "F4", Beats: 2}, {Note: "E4", Beats: 4},
			{Note: contracts.Rest, Beats: 2},
			{Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "D4", Beats: 2}, {Note: "C4", Beats: 2}, {Note: "G4", Beats: 2}, {Note: "F4", Beats: 4},
			{Note: contracts.Rest, Beats: 2},
			{Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "C5", Beats: 2}, {Note: "A4", Beats: 2}, {Note: "F4", Beats: 2}, {Note: "E4", Beats: 2}, {Note: "D4", Beats: 4},
			{Note: contracts.Rest, Beats: 2},
			{Note: "B4", Beats: 1}, {Note: "B4", Beats: 1}, {Note: "A4", Beats: 2}, {Note: "F4", Beats: 2}, {Note: "G4", Beats: 2}, {Note: "F4", Beats: 4},
		},
	},
	{
		ID:    CMajorScale,
		Name:  "C major scale",
		BPM:   96,
		Steps: []contracts.Step{{Note: "C4", Beats: 1}, {Note: "D4", Beats: 1}, {Note: "E4", Beats: 1}, {Note: "F4", Beats: 1}, {Note: "G4", Beats: 1}, {Note: "A4", Beats: 1}, {Note: "B4", Beats: 1}, {Note: "C5", Beats: 1}},
	},
}

// Default returns a fresh table with the default frequencies and built-in melodies.
func Default() *Table {
	t := NewTable(Frequencies)
	for _, m := range builtin {
		if err := t.Add(m); err != nil {
			panic("score: invalid built-in melody: " + err.Error())
		}
	}
	return t
}
