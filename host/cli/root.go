// Package cli builds the quadpwm-host command tree
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quadpwm/core"
	"quadpwm/host/config"
	"quadpwm/host/log"
	"quadpwm/host/serial"
	"quadpwm/host/sim"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
	DeviceOptionName   = "device"
	BaudOptionName     = "baud"
	SimulateOptionName = "simulate"
)

// options shared by every subcommand
type options struct {
	cfg        *config.Config
	configPath string
	logLevel   string
	device     string
	baud       int
	simulate   bool
}

func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{cfg: config.NewDefaultConfig()}
	cmd := &cobra.Command{
		Use:           "quadpwm-host",
		Short:         "Check a quadpwm board over its serial link",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	flags.StringVar(&opts.configPath, ConfigOptionName, config.DefaultConfigPath(), "Config file")
	flags.StringVar(&opts.device, DeviceOptionName, "", "Serial device, overrides the config file")
	flags.IntVar(&opts.baud, BaudOptionName, 0, "Baud rate, overrides the config file")
	flags.BoolVar(&opts.simulate, SimulateOptionName, false, "Talk to an in-memory simulated board")

	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newBulkCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	return cmd
}

func (o *options) load(stderr io.Writer) error {
	o.cfg.SetPath(o.configPath)
	if err := o.cfg.Load(); err != nil {
		return err
	}
	if o.logLevel != "" {
		o.cfg.LogLevel = o.logLevel
	}
	if o.device != "" {
		o.cfg.Serial.Device = o.device
	}
	if o.baud != 0 {
		o.cfg.Serial.Baud = o.baud
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	return log.Init(stderr, o.cfg.LogLevel)
}

// open connects to the board, or to a simulated one
func (o *options) open() (serial.Port, error) {
	if o.simulate {
		log.Info("using simulated board at %d Hz", o.cfg.Frequency)
		d, err := sim.NewDevice(core.Hertz(o.cfg.Frequency), o.cfg.BulkSize)
		if core.IsInexact(err) {
			log.Warning("%v", err)
		} else if err != nil {
			return nil, err
		}
		return d, nil
	}
	log.Info("opening %s at %d baud", o.cfg.Serial.Device, o.cfg.Serial.Baud)
	return serial.Open(&serial.Config{
		Device:      o.cfg.Serial.Device,
		Baud:        o.cfg.Serial.Baud,
		ReadTimeout: o.cfg.Serial.ReadTimeout,
	})
}
