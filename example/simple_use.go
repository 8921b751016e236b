package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/leandrodaf/buzzer/internal/firmata"
	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/buzzer"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

func main() {
	log := logger.NewZapLogger()

	port := "/dev/ttyACM0"
	if len(os.Args) > 1 {
		port = os.Args[1]
	}

	board, err := firmata.Open(port, firmata.DefaultBaud, 5*time.Second,
		firmata.WithLogger(log),
		firmata.WithSamplingInterval(10*time.Millisecond))
	if err != nil {
		log.Error("Failed to open board", log.Field().Error("error", err))
		return
	}
	defer board.Close()

	// A potentiometer on A0 cycles Idle -> Twinkle -> Happy Birthday -> Idle.
	pot := contracts.Trigger{
		Source:    contracts.Source{Kind: contracts.Analog, Pin: 0},
		Mode:      contracts.Threshold,
		Threshold: 0.5,
	}
	led13, led12 := contracts.PinID(13), contracts.PinID(12)

	ctrl, err := buzzer.NewController(board, buzzer.DefaultScore(),
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithCycle(pot,
			contracts.Binding{MelodyID: score.TwinkleStar, Indicator: &led13},
			contracts.Binding{MelodyID: score.HappyBirthday, Indicator: &led12},
		),
		contracts.WithSessionEndHook(func(r contracts.SessionReport) {
			fmt.Printf("%s %s after %s\n", r.MelodyID, r.Outcome, r.Ended.Sub(r.Started).Round(time.Millisecond))
		}),
	)
	if err != nil {
		log.Error("Failed to create controller", log.Field().Error("error", err))
		return
	}

	if err := ctrl.Start(); err != nil {
		log.Error("Failed to start controller", log.Field().Error("error", err))
		return
	}
	defer ctrl.Stop()

	fmt.Println("Turn the potentiometer past half way to cycle melodies... Press Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
