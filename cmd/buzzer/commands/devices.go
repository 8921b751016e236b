package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leandrodaf/buzzer/sdk/buzzer"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI input devices usable as trigger sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		in, err := buzzer.NewMIDIInput(cfg.MIDI.ClientName, log)
		if err != nil {
			return err
		}
		defer in.Close()

		devices, err := in.ListDevices()
		if err != nil {
			return err
		}
		for i, d := range devices {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s, %s)\n", i, d.Name, d.EntityName, d.Manufacturer)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
