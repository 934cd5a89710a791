package cmd

import (
	"github.com/spf13/cobra"
)

var dumpOpts struct {
	dimension string
	limit     int
	seed      bool
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the logical view of a dimension and the raw store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ha, err := buildArray()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if dumpOpts.seed {
			if err := seedDemo(ha, out); err != nil {
				return err
			}
		}

		names := []string{dumpOpts.dimension}
		if dumpOpts.dimension == "" {
			names = names[:0]
			for _, d := range ha.ListDimensions() {
				names = append(names, d.Name)
			}
		}

		for _, name := range names {
			if err := printDimension(ha, name, out); err != nil {
				return err
			}
		}

		printRaw(ha, out, dumpOpts.limit)

		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOpts.dimension, "dimension", "d", "",
		"dimension to dump (default: all)")
	dumpCmd.Flags().IntVar(&dumpOpts.limit, "limit", 0,
		"maximum number of raw cells to print (0: all)")
	dumpCmd.Flags().BoolVar(&dumpOpts.seed, "seed", true,
		"write the demonstration data first")
	rootCmd.AddCommand(dumpCmd)
}
