package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/rf-peixoto/hyperarray/monitoring"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func resetFlags(cmds ...*cobra.Command) {
	reset := func(f *pflag.Flag) {
		Expect(f.Value.Set(f.DefValue)).To(Succeed())
		f.Changed = false
	}

	for _, c := range cmds {
		c.PersistentFlags().VisitAll(reset)
		c.Flags().VisitAll(reset)
	}
}

func freePort() int {
	l, err := net.Listen("tcp", ":0")
	Expect(err).NotTo(HaveOccurred())
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

var _ = Describe("hactl", func() {
	var (
		dir    string
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	run := func(args ...string) error {
		rootCmd.SetArgs(args)
		rootCmd.SetOut(stdout)
		rootCmd.SetErr(stderr)
		return rootCmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		resetFlags(rootCmd, demoCmd, dumpCmd, serveCmd, logCmd)
	})

	It("should run the demonstration", func() {
		Expect(run("demo", "--env", filepath.Join(dir, "missing.env"))).To(Succeed())

		out := stdout.String()
		Expect(out).To(ContainSubstring("  - real (real)"))
		Expect(out).To(ContainSubstring("[TRAP] Caught trap write"))
		Expect(out).To(ContainSubstring("[TRAP] Caught trap read"))
		Expect(out).To(ContainSubstring(`-> SECRET_PAYLOAD`))
		Expect(out).To(ContainSubstring(`-> HARmless dummy`))
		Expect(out).To(ContainSubstring("Raw physical storage"))
		Expect(out).To(ContainSubstring("WRITE trap @ (1,1,1)"))
		Expect(out).To(ContainSubstring("[trapped]"))
	})

	It("should dump a single dimension from a layout file", func() {
		layout := filepath.Join(dir, "layout.yaml")
		Expect(os.WriteFile(layout, []byte(`
shape: {x: 3, y: 3, z: 3}
dimensions:
  - {name: vault, role: real}
  - {name: chaff, role: decoy}
`), 0o600)).To(Succeed())

		err := run("dump", "--env", filepath.Join(dir, "missing.env"),
			"--layout", layout, "--dimension", "vault")
		Expect(err).NotTo(HaveOccurred())

		out := stdout.String()
		Expect(out).To(ContainSubstring("Logical view of vault:"))
		Expect(out).To(ContainSubstring(`(1,1,1) -> "SECRET_PAYLOAD"`))
		Expect(out).NotTo(ContainSubstring("Logical view of chaff:"))
	})

	It("should read the layout from the env file", func() {
		layout := filepath.Join(dir, "layout.yaml")
		Expect(os.WriteFile(layout, []byte(`
shape: {x: 3, y: 3, z: 3}
dimensions:
  - {name: only, role: real}
`), 0o600)).To(Succeed())

		envFile := filepath.Join(dir, "test.env")
		Expect(os.WriteFile(envFile,
			[]byte(envLayout+"="+layout+"\n"), 0o600)).To(Succeed())
		DeferCleanup(os.Unsetenv, envLayout)

		Expect(run("dump", "--env", envFile)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("Logical view of only:"))
	})

	It("should fail on an unknown dimension", func() {
		err := run("dump", "--env", filepath.Join(dir, "missing.env"),
			"--dimension", "nowhere")
		Expect(err).To(HaveOccurred())
	})

	It("should reject an invalid log level", func() {
		err := run("demo", "--env", filepath.Join(dir, "missing.env"),
			"--log-level", "loud")
		Expect(err).To(HaveOccurred())
	})

	It("should report trap dumps when dumps respect the trap policy", func() {
		layout := filepath.Join(dir, "layout.yaml")
		Expect(os.WriteFile(layout, []byte(`
shape: {x: 4, y: 4, z: 4}
dimensions:
  - {name: real, role: real}
  - {name: decoy, role: decoy}
  - {name: trap, role: trap}
dump_respects_trap_policy: true
`), 0o600)).To(Succeed())

		env := filepath.Join(dir, "missing.env")

		Expect(run("demo", "--env", env, "--layout", layout)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring(
			`[TRAP] Caught trap dump: trap dimension accessed: dump of "trap"`))
		Expect(stdout.String()).To(ContainSubstring("Logical view of decoy:"))
		Expect(stdout.String()).To(ContainSubstring("Access log:"))

		stdout.Reset()
		resetFlags(rootCmd, demoCmd, dumpCmd, serveCmd, logCmd)

		Expect(run("dump", "--env", env, "--layout", layout)).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("[TRAP] Caught trap dump"))
		Expect(stdout.String()).To(ContainSubstring("Raw physical storage"))
	})

	It("should serve, record accesses and read them back", func() {
		env := filepath.Join(dir, "missing.env")
		record := filepath.Join(dir, "session")

		port := freePort()
		Expect(os.Setenv(envPort, strconv.Itoa(port))).To(Succeed())
		DeferCleanup(os.Unsetenv, envPort)

		original := awaitShutdown
		DeferCleanup(func() { awaitShutdown = original })

		var (
			servedURL string
			dims      []dimension.Dimension
		)

		awaitShutdown = func(m *monitoring.Monitor, url string) {
			servedURL = url

			rsp, err := http.Get(url + "/api/dimensions")
			Expect(err).NotTo(HaveOccurred())
			defer rsp.Body.Close()
			Expect(rsp.StatusCode).To(Equal(http.StatusOK))
			Expect(json.NewDecoder(rsp.Body).Decode(&dims)).To(Succeed())

			rec := httptest.NewRecorder()
			m.Router().ServeHTTP(rec, httptest.NewRequest(
				http.MethodGet, "/api/cell/trap/1/1/1", nil))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		}

		Expect(run("serve", "--env", env, "--seed", "--record", record)).
			To(Succeed())
		Expect(servedURL).To(HaveSuffix(":" + strconv.Itoa(port)))
		Expect(dims).To(HaveLen(3))
		Expect(stdout.String()).To(ContainSubstring("[TRAP] Caught trap write"))

		stdout.Reset()
		resetFlags(rootCmd, demoCmd, dumpCmd, serveCmd, logCmd)

		Expect(run("log", "--env", env, "--db", record+".sqlite3")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("#1 WRITE real @ (1,1,1)"))
		Expect(stdout.String()).To(ContainSubstring("7 of 7 records"))

		stdout.Reset()
		resetFlags(rootCmd, demoCmd, dumpCmd, serveCmd, logCmd)

		Expect(run("log", "--env", env, "--db", record+".sqlite3", "--trapped")).
			To(Succeed())
		out := stdout.String()
		Expect(out).To(ContainSubstring("#6 WRITE trap @ (1,1,1)"))
		Expect(out).To(ContainSubstring("#7 READ trap @ (1,1,1)"))
		Expect(out).NotTo(ContainSubstring("real @"))
		Expect(out).To(ContainSubstring("2 of 2 records"))
	})

	It("should refuse to read a missing recording", func() {
		err := run("log", "--env", filepath.Join(dir, "missing.env"),
			"--db", filepath.Join(dir, "none.sqlite3"))
		Expect(err).To(HaveOccurred())
		Expect(filepath.Join(dir, "none.sqlite3")).NotTo(BeAnExistingFile())
	})
})
