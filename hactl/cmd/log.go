package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rf-peixoto/hyperarray/accesslog"
	"github.com/rf-peixoto/hyperarray/datarecording"
	"github.com/spf13/cobra"
)

var logOpts struct {
	db        string
	trapped   bool
	dimension string
	limit     int
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the access log recorded by serve --record.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if logOpts.db == "" {
			return errors.New("--db is required")
		}

		// Opening a missing file would create an empty database.
		if _, err := os.Stat(logOpts.db); err != nil {
			return err
		}

		reader := datarecording.NewReader(logOpts.db)
		defer reader.Close()

		reader.MapTable(accesslog.TableName, accesslog.AccessEntry{})

		params := datarecording.QueryParams{
			OrderBy: "Seq",
			Limit:   logOpts.limit,
		}

		var where []string
		if logOpts.trapped {
			where = append(where, "Trapped = ?")
			params.Args = append(params.Args, true)
		}

		if logOpts.dimension != "" {
			where = append(where, "Dimension = ?")
			params.Args = append(params.Args, logOpts.dimension)
		}

		params.Where = strings.Join(where, " AND ")

		results, total, err := reader.Query(
			cmd.Context(), accesslog.TableName, params)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range results {
			e := r.(*accesslog.AccessEntry)

			fmt.Fprintf(out, "#%d %s %s @ (%d,%d,%d) -> %s",
				e.Seq, e.Op, e.Dimension, e.X, e.Y, e.Z, e.Address)
			if e.Trapped {
				fmt.Fprint(out, " [trapped]")
			}
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "%d of %d records\n", len(results), total)

		return nil
	},
}

func init() {
	logCmd.Flags().StringVar(&logOpts.db, "db", "",
		"recording file written by serve --record (<name>.sqlite3)")
	logCmd.Flags().BoolVar(&logOpts.trapped, "trapped", false,
		"only print trapped accesses")
	logCmd.Flags().StringVarP(&logOpts.dimension, "dimension", "d", "",
		"only print accesses to this dimension")
	logCmd.Flags().IntVar(&logOpts.limit, "limit", 0,
		"maximum number of records to print (0: all)")
	rootCmd.AddCommand(logCmd)
}
