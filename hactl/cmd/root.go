// Package cmd provides the command-line interface for hyperarray.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rf-peixoto/hyperarray/hyperarray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Environment variables read after the env file is loaded. Flags win over
// them.
const (
	envLayout   = "HYPERARRAY_LAYOUT"
	envPort     = "HYPERARRAY_PORT"
	envLogLevel = "HYPERARRAY_LOG_LEVEL"
	envRecord   = "HYPERARRAY_RECORD"
)

type rootOptions struct {
	envFile    string
	layoutPath string
	logLevel   string
}

var (
	rootOpts rootOptions
	logger   = logrus.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hactl",
	Short: "hactl builds and inspects hyperarrays.",
	Long: `hactl builds a hyperarray from a layout file, ` +
		`runs the real/decoy/trap demonstration and serves the array ` +
		`for inspection over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvironment,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.envFile, "env", ".env",
		"env file to load before reading "+envLayout+" and friends")
	rootCmd.PersistentFlags().StringVar(&rootOpts.layoutPath, "layout", "",
		"YAML layout file (default: 4x4x4 real/decoy/trap)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadEnvironment(cmd *cobra.Command, _ []string) error {
	err := godotenv.Load(rootOpts.envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if !cmd.Flags().Changed("layout") {
		rootOpts.layoutPath = os.Getenv(envLayout)
	}

	if !cmd.Flags().Changed("log-level") {
		rootOpts.logLevel = os.Getenv(envLogLevel)
	}

	logger.SetOutput(cmd.ErrOrStderr())

	if rootOpts.logLevel != "" {
		level, err := logrus.ParseLevel(rootOpts.logLevel)
		if err != nil {
			return err
		}

		logger.SetLevel(level)
	}

	return nil
}

func loadLayout() (hyperarray.Layout, error) {
	if rootOpts.layoutPath == "" {
		return hyperarray.DefaultLayout(), nil
	}

	return hyperarray.LoadLayout(rootOpts.layoutPath)
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		logger.WithField("variable", name).Warn("ignoring non-numeric value")
		return fallback
	}

	return n
}
