package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/leandrodaf/buzzer/internal/player"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var (
	playRepeat int
	playPause  time.Duration
	playBPM    int
)

var playCmd = &cobra.Command{
	Use:   "play <melody>",
	Short: "Play one melody in a loop",
	Long: `Play a melody from the score table, wait, and play it again.
--repeat 0 loops until Ctrl+C, which also cuts the current note short.

Examples:
  buzzer play twinkle_star
  buzzer play happy_birthday --repeat 1 --bpm 90`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return playLoop(ctx, args[0])
	},
}

func init() {
	playCmd.Flags().IntVarP(&playRepeat, "repeat", "r", 0, "number of times to play; 0 loops forever")
	playCmd.Flags().DurationVar(&playPause, "pause", 3*time.Second, "pause between repetitions")
	playCmd.Flags().IntVar(&playBPM, "bpm", 0, "tempo; 0 uses the melody's own")
	rootCmd.AddCommand(playCmd)
}

func playLoop(ctx context.Context, melodyID string) (err error) {
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

	m, ok := lib.Melody(melodyID)
	if !ok {
		return fmt.Errorf("unknown melody %q, see 'buzzer list'", melodyID)
	}
	bpm := player.Tempo(playBPM, m.BPM)
	if playRepeat < 0 {
		return fmt.Errorf("--repeat must not be negative")
	}

	board, err := openBoard(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, board.Close())
	}()

	p := player.New(board, lib, contracts.PinID(cfg.BuzzerPin), log)
	for i := 1; playRepeat == 0 || i <= playRepeat; i++ {
		log.Info("Playing melody",
			log.Field().String("melody", m.Name),
			log.Field().Int("bpm", bpm),
			log.Field().Int("round", i))

		outcome, err := p.Play(ctx, m, bpm, nil)
		if err != nil {
			return err
		}
		if outcome == contracts.Cancelled {
			log.Info("Playback interrupted")
			return nil
		}
		if playRepeat != 0 && i == playRepeat {
			break
		}

		log.Info("Waiting before the next round", log.Field().Duration("pause", playPause))
		select {
		case <-ctx.Done():
			log.Info("Playback interrupted")
			return nil
		case <-time.After(playPause):
		}
	}
	return nil
}
