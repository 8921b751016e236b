package buzzer

import (
	"github.com/leandrodaf/buzzer/internal/controller"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

// NewController creates a melody controller on board with the specified options.
// It applies default options and validates the bindings against lib.
//
// Returns:
//   - contracts.Controller: A controller ready to Start.
//   - error: An error if a binding names an unknown melody or the dispatch mode is incomplete.
func NewController(board contracts.Board, lib contracts.ScoreLibrary, opts ...contracts.Option) (contracts.Controller, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	ctrl, err := controller.New(board, lib, options)
	if err != nil {
		return nil, err
	}

	return ctrl, nil
}

// DefaultScore returns the built-in note table and melodies.
func DefaultScore() contracts.ScoreLibrary {
	return score.Default()
}

// LoadScore reads a YAML score file on top of the built-in table.
func LoadScore(path string) (contracts.ScoreLibrary, error) {
	return score.LoadFile(path)
}
