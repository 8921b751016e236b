package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/leandrodaf/buzzer/sdk/buzzer"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the controller and play melodies on button presses",
	Long: `Open the board, register the configured inputs and play the bound
melody on every accepted press. A press while a melody plays interrupts it.
Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runController(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runController(ctx context.Context) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	lib, err := loadScore(cfg)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, contracts.WithLogger(log))

	board, err := openBoard(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, board.Close())
	}()

	if cfg.MIDI.Enabled || cfg.UsesMIDI() {
		var in contracts.MIDIInput
		in, err = buzzer.NewMIDIInput(cfg.MIDI.ClientName, log)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, in.Close())
		}()
		if err := in.SelectDevice(cfg.MIDI.Device); err != nil {
			return fmt.Errorf("select MIDI device %d: %w", cfg.MIDI.Device, err)
		}
		opts = append(opts, contracts.WithInputNotifier(in))
	}

	ctrl, err := buzzer.NewController(board, lib, opts...)
	if err != nil {
		return err
	}
	if err := ctrl.Start(); err != nil {
		return multierr.Combine(err, ctrl.Stop())
	}

	log.Info("Waiting for presses; Ctrl+C to exit", log.Field().String("port", cfg.Port))
	<-ctx.Done()

	log.Info("Shutting down")
	return ctrl.Stop()
}
