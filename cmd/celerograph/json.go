package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiancaiamao/celerograph"
)

func (a *app) newJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "json <csv file or directory>",
		Short: "Convert Celero CSV results to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := celerograph.LoadPath(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = celerograph.JSONFileName(args[0])
			}
			if err := celerograph.WriteJSONFile(out, agg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Writing JSON:", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default is the input path with a .json extension)")
	return cmd
}
