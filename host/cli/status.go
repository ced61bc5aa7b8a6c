package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quadpwm/core"
	"quadpwm/host/monitor"
)

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Read the engine status and verify the quarter-period shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := opts.open()
			if err != nil {
				return err
			}
			defer port.Close()

			s, err := monitor.NewClient(port).Status()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), s)
			if err := monitor.Verify(s, core.Hertz(opts.cfg.Frequency)); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verification: OK")
			return nil
		},
	}
}

func printStatus(w io.Writer, s core.Status) {
	fmt.Fprintf(w, "state:      %s\n", s.State)
	fmt.Fprintf(w, "frequency:  %d Hz requested, %d Hz achieved\n", s.Requested, s.Achieved)
	fmt.Fprintf(w, "max duty:   %d (reload %d)\n", s.MaxDuty, s.Reload)
	fmt.Fprintf(w, "reference:  %d\n", s.Reference)
	fmt.Fprintf(w, "standard:   %d\n", s.Standard)
	fmt.Fprintf(w, "extended:   %d (grouped %t)\n", s.Extended, s.Grouped)
	fmt.Fprintf(w, "enable:     0x%08X\n", uint32(s.Enable))
}
