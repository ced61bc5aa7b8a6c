package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quadpwm/host/monitor"
)

const SizeOptionName = "size"

func newBulkCommand(opts *options) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Measure link throughput with the 0xDEADBEEF test stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size > 0 {
				opts.cfg.BulkSize = size
			}
			port, err := opts.open()
			if err != nil {
				return err
			}
			defer port.Close()

			res, err := monitor.NewClient(port).Bulk(opts.cfg.BulkSize)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total data received: %d bytes\n", res.Bytes)
			fmt.Fprintf(out, "Speed: %.2f MB/s\n", res.MBps())
			if err != nil {
				fmt.Fprintln(out, "Data validation: FAILURE")
				return err
			}
			fmt.Fprintln(out, "Data validation: SUCCESS")
			return nil
		},
	}
	cmd.Flags().IntVar(&size, SizeOptionName, 0, "Bytes to read, overrides the config file")
	return cmd
}
