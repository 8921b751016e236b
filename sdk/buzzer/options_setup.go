package buzzer

import (
	"time"

	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

const (
	DefaultBuzzerPin contracts.PinID = 8
	DefaultDebounce                  = 200 * time.Millisecond
	DefaultStepTone                  = 500 * time.Millisecond
)

// applyDefaultOptions sets default values for ControllerOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ControllerOptions, error) {
	options := &contracts.ControllerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.BuzzerPin == 0 {
		options.BuzzerPin = DefaultBuzzerPin
	}
	if options.Debounce == 0 {
		options.Debounce = DefaultDebounce
	}
	if options.StepTone == 0 {
		options.StepTone = DefaultStepTone
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
