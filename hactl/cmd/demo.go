package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rf-peixoto/hyperarray/accesslog"
	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/rf-peixoto/hyperarray/hyperarray"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write real and decoy data, poke the trap and dump everything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ha, err := buildArray()
		if err != nil {
			return err
		}

		return runDemo(ha, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func buildArray(recorders ...accesslog.Recorder) (*hyperarray.HyperArray, error) {
	layout, err := loadLayout()
	if err != nil {
		return nil, err
	}

	b, err := layout.Builder()
	if err != nil {
		return nil, err
	}

	recorders = append(recorders, accesslog.NewLoggerRecorder(logger))

	return b.WithLogger(logger).WithRecorders(recorders...).Build()
}

// demoRoles picks the first dimension of each role.
type demoRoles struct {
	real, decoy, trap string
}

func findRoles(ha *hyperarray.HyperArray) demoRoles {
	var r demoRoles

	for _, d := range ha.ListDimensions() {
		switch {
		case d.Role == dimension.RoleReal && r.real == "":
			r.real = d.Name
		case d.Role == dimension.RoleDecoy && r.decoy == "":
			r.decoy = d.Name
		case d.Role == dimension.RoleTrap && r.trap == "":
			r.trap = d.Name
		}
	}

	return r
}

// seedDemo writes the demonstration data. Dimensions missing from the layout
// are skipped.
func seedDemo(ha *hyperarray.HyperArray, out io.Writer) error {
	roles := findRoles(ha)

	writes := []struct {
		dim     string
		x, y, z int
		value   any
	}{
		{roles.real, 1, 1, 1, "SECRET_PAYLOAD"},
		{roles.real, 2, 2, 2, 1337},
		{roles.decoy, 1, 1, 1, "HARmless dummy"},
		{roles.decoy, 2, 2, 2, 0},
		{roles.decoy, 0, 0, 0, "RANDOM_NOISE"},
		{roles.trap, 1, 1, 1, "TRAP_VALUE"},
	}

	for _, w := range writes {
		if w.dim == "" {
			continue
		}

		if err := ha.SelectDimension(w.dim); err != nil {
			return err
		}

		err := ha.Set(w.x, w.y, w.z, w.value)
		if errors.Is(err, hyperarray.ErrTrapAccess) {
			fmt.Fprintf(out, "[TRAP] Caught trap write: %v\n", err)
			continue
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func runDemo(ha *hyperarray.HyperArray, out io.Writer) error {
	fmt.Fprintln(out, "Dimensions:")
	for _, d := range ha.ListDimensions() {
		fmt.Fprintf(out, "  - %s (%s)\n", d.Name, d.Role)
	}
	fmt.Fprintln(out)

	if err := seedDemo(ha, out); err != nil {
		return err
	}

	for _, d := range ha.ListDimensions() {
		fmt.Fprintf(out, "\nReading (1,1,1) in %s:\n", d.Name)

		if err := ha.SelectDimension(d.Name); err != nil {
			return err
		}

		v, err := ha.Get(1, 1, 1)
		if errors.Is(err, hyperarray.ErrTrapAccess) {
			fmt.Fprintf(out, "  [TRAP] Caught trap read: %v\n", err)
			continue
		}

		if err != nil {
			return err
		}

		fmt.Fprintf(out, "  -> %v\n", v)
	}

	for _, d := range ha.ListDimensions() {
		if err := printDimension(ha, d.Name, out); err != nil {
			return err
		}
	}

	printRaw(ha, out, 10)
	printLog(ha, out)

	return nil
}

func printDimension(ha *hyperarray.HyperArray, name string, out io.Writer) error {
	cells, err := ha.DumpDimension(name)
	if errors.Is(err, hyperarray.ErrTrapAccess) {
		fmt.Fprintf(out, "\n[TRAP] Caught trap dump: %v\n", err)
		return nil
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nLogical view of %s:\n", name)
	for _, c := range cells {
		fmt.Fprintf(out, "  %s -> %#v\n", c.Coord, c.Value)
	}

	return nil
}

func printRaw(ha *hyperarray.HyperArray, out io.Writer, limit int) {
	fmt.Fprintln(out, "\nRaw physical storage (addr -> value):")
	for i, c := range ha.DumpStorageRaw() {
		if limit > 0 && i >= limit {
			break
		}

		fmt.Fprintf(out, "  0x%x -> %#v\n", c.Address, c.Value)
	}
}

func printLog(ha *hyperarray.HyperArray, out io.Writer) {
	fmt.Fprintln(out, "\nAccess log:")
	for _, r := range ha.AccessLog() {
		fmt.Fprintf(out, "  %s\n", r)
	}
}
