package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leandrodaf/buzzer/internal/config"
	"github.com/leandrodaf/buzzer/internal/firmata"
	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var (
	// Global flags
	configPath string
	envFile    string
	portFlag   string
	levelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "buzzer",
	Short: "Play melodies on a Firmata board's buzzer",
	Long: `buzzer drives a piezo buzzer on an Arduino running Firmata with the
tone sysex extension. Buttons, potentiometers or MIDI pad keys start and
interrupt melodies.

Configuration is read from a YAML file (--config), then BUZZER_PORT,
BUZZER_BAUD and BUZZER_LOG_LEVEL from the environment or a .env file,
then the flags below.

Examples:
  # Two buttons on D2 and D3, board on COM9
  buzzer run --port COM9

  # Loop Happy Birthday three times with a one second pause
  buzzer play happy_birthday --repeat 3 --pause 1s`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial port of the board (overrides config and BUZZER_PORT)")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "debug, info, warn or error")
}

// loadConfig resolves the configuration for a command.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (contracts.Logger, error) {
	log := logger.NewZapLogger()
	log.SetLevel(cfg.Level())
	if cfg.LogFile != "" {
		if err := log.SetDestination(contracts.FileLog, cfg.LogFile); err != nil {
			return nil, err
		}
	}
	return log, nil
}

func loadScore(cfg *config.Config) (*score.Table, error) {
	if cfg.Score == "" {
		return score.Default(), nil
	}
	return score.LoadFile(cfg.Score)
}

// boardConn is a board that owns a connection.
type boardConn interface {
	contracts.Board
	Close() error
}

// openBoard is replaced in tests.
var openBoard = func(cfg *config.Config, log contracts.Logger) (boardConn, error) {
	opts := []firmata.Option{firmata.WithLogger(log)}
	if cfg.PullUp {
		opts = append(opts, firmata.WithPullUp())
	}
	if cfg.Sampling > 0 {
		opts = append(opts, firmata.WithSamplingInterval(cfg.Sampling))
	}
	timeout := cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	board, err := firmata.Open(cfg.Port, cfg.Baud, timeout, opts...)
	if err != nil {
		return nil, err
	}
	return board, nil
}
