package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/rf-peixoto/hyperarray/accesslog"
	"github.com/rf-peixoto/hyperarray/datarecording"
	"github.com/rf-peixoto/hyperarray/hyperarray"
	"github.com/rf-peixoto/hyperarray/monitoring"
	"github.com/spf13/cobra"
)

var serveOpts struct {
	port   int
	open   bool
	seed   bool
	record string
}

// awaitShutdown blocks until the server should stop.
var awaitShutdown = func(_ *monitoring.Monitor, _ string) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	<-stop
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a hyperarray for inspection over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed("port") {
			serveOpts.port = envInt(envPort, serveOpts.port)
		}

		if !cmd.Flags().Changed("record") {
			serveOpts.record = os.Getenv(envRecord)
		}

		var recorders []accesslog.Recorder

		closeRecorder := func() {}
		defer func() { closeRecorder() }()

		if serveOpts.record != "" {
			dataRecorder := datarecording.New(serveOpts.record)
			closeRecorder = func() {
				if err := dataRecorder.Close(); err != nil {
					logger.WithError(err).Error("cannot close recording")
				}
			}

			recorders = append(recorders, accesslog.NewDBRecorder(dataRecorder))
		}

		ha, err := buildArray(recorders...)
		if err != nil {
			return err
		}

		if serveOpts.seed {
			if err := seedDemo(ha, cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		m := monitoring.NewMonitor(ha).
			WithLogger(logger).
			WithPortNumber(serveOpts.port)

		url, err := m.StartServer()
		if err != nil {
			return err
		}

		if serveOpts.open {
			if err := browser.OpenURL(url + "/api/inspect"); err != nil {
				logger.WithError(err).Warn("cannot open browser")
			}
		}

		awaitShutdown(m, url)

		logger.Info("shutting down")

		// Handlers may still be recording until the lock is taken.
		return m.Do(func(_ *hyperarray.HyperArray) error {
			closeRecorder()
			closeRecorder = func() {}

			return nil
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveOpts.port, "port", "p", 0,
		"port to listen on (0: random, env "+envPort+")")
	serveCmd.Flags().BoolVar(&serveOpts.open, "open", false,
		"open the inspection page in a browser")
	serveCmd.Flags().BoolVar(&serveOpts.seed, "seed", false,
		"write the demonstration data before serving")
	serveCmd.Flags().StringVar(&serveOpts.record, "record", "",
		"record the access log into <name>.sqlite3 (env "+envRecord+")")
	rootCmd.AddCommand(serveCmd)
}
