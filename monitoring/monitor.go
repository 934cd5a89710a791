// Package monitoring serves the state of a hyperarray over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rf-peixoto/hyperarray/addressing"
	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/rf-peixoto/hyperarray/hyperarray"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

// Monitor turns a hyperarray into a server that external tools can inspect.
//
// The hyperarray itself has no locking. The monitor owns a mutex and every
// handler holds it while touching the array. Callers that keep using the
// array after StartServer must go through Do.
type Monitor struct {
	lock       sync.Mutex
	array      *hyperarray.HyperArray
	portNumber int
	sessionID  string
	logger     *logrus.Logger

	registry *prometheus.Registry
	metrics  *MetricsRecorder
}

// NewMonitor creates a monitor for the array and attaches an access counter
// to it.
func NewMonitor(array *hyperarray.HyperArray) *Monitor {
	m := &Monitor{
		array:     array,
		sessionID: xid.New().String(),
		logger:    logrus.New(),
		registry:  prometheus.NewRegistry(),
	}

	m.metrics = NewMetricsRecorder(m.registry)
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "hyperarray",
			Name:      "stored_cells",
			Help:      "Number of written physical addresses.",
		},
		func() float64 { return float64(m.array.StoredCells()) },
	))

	array.AddRecorder(m.metrics)

	return m
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 fall
// back to a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warnf("Port number %d is not allowed. "+
			"Using a random port instead.", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *logrus.Logger) *Monitor {
	m.logger = logger
	return m
}

// SessionID identifies this monitor instance.
func (m *Monitor) SessionID() string {
	return m.sessionID
}

// Metrics returns the access counter attached to the array.
func (m *Monitor) Metrics() *MetricsRecorder {
	return m.metrics
}

// Do runs fn while holding the monitor lock.
func (m *Monitor) Do(fn func(array *hyperarray.HyperArray) error) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	return fn(m.array)
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/session", m.session).Methods(http.MethodGet)
	r.HandleFunc("/api/dimensions", m.listDimensions).Methods(http.MethodGet)
	r.HandleFunc("/api/dimension/{name}", m.dumpDimension).
		Methods(http.MethodGet)
	r.HandleFunc("/api/raw", m.dumpRaw).Methods(http.MethodGet)
	r.HandleFunc("/api/log", m.accessLog).Methods(http.MethodGet)
	r.HandleFunc("/api/cell/{dim}/{x}/{y}/{z}", m.getCell).
		Methods(http.MethodGet)
	r.HandleFunc("/api/cell/{dim}/{x}/{y}/{z}", m.setCell).
		Methods(http.MethodPut)
	r.HandleFunc("/api/inspect", m.inspect).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.Handle("/metrics", m.locked(promhttp.HandlerFor(
		m.registry, promhttp.HandlerOpts{})))

	return r
}

// StartServer starts serving in the background and returns the URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.logger.WithFields(logrus.Fields{
		"url":     url,
		"session": m.sessionID,
	}).Info("Monitoring hyperarray")

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			m.logger.WithError(err).Error("monitor server stopped")
		}
	}()

	return url, nil
}

func (m *Monitor) locked(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.lock.Lock()
		defer m.lock.Unlock()

		h.ServeHTTP(w, r)
	})
}

func (m *Monitor) session(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, map[string]string{"session": m.sessionID})
}

func (m *Monitor) listDimensions(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	dims := m.array.ListDimensions()
	m.lock.Unlock()

	m.writeJSON(w, dims)
}

func (m *Monitor) dumpDimension(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.lock.Lock()
	cells, err := m.array.DumpDimension(name)
	m.lock.Unlock()

	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, cells)
}

type rawCellRsp struct {
	Address string `json:"address"`
	Value   any    `json:"value"`
}

func (m *Monitor) dumpRaw(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	cells := m.array.DumpStorageRaw()
	m.lock.Unlock()

	rsp := make([]rawCellRsp, 0, len(cells))
	for _, c := range cells {
		rsp = append(rsp, rawCellRsp{
			Address: fmt.Sprintf("0x%x", c.Address),
			Value:   c.Value,
		})
	}

	m.writeJSON(w, rsp)
}

type recordRsp struct {
	Seq       uint64           `json:"seq"`
	Op        string           `json:"op"`
	Dimension string           `json:"dimension"`
	Role      dimension.Role   `json:"role"`
	Coord     addressing.Coord `json:"coord"`
	Address   string           `json:"address"`
	Trapped   bool             `json:"trapped"`
}

func (m *Monitor) accessLog(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	records := m.array.AccessLog()
	m.lock.Unlock()

	rsp := make([]recordRsp, 0, len(records))
	for _, rec := range records {
		rsp = append(rsp, recordRsp{
			Seq:       rec.Seq,
			Op:        rec.Op.String(),
			Dimension: rec.Dimension,
			Role:      rec.Role,
			Coord:     rec.Coord,
			Address:   fmt.Sprintf("0x%x", rec.Address),
			Trapped:   rec.Trapped,
		})
	}

	m.writeJSON(w, rsp)
}

type cellRsp struct {
	Dimension string           `json:"dimension"`
	Coord     addressing.Coord `json:"coord"`
	Value     any              `json:"value"`
	Empty     bool             `json:"empty"`
}

func parseCoord(vars map[string]string) (addressing.Coord, error) {
	var c addressing.Coord

	fields := []struct {
		name string
		dst  *int
	}{{"x", &c.X}, {"y", &c.Y}, {"z", &c.Z}}

	for _, f := range fields {
		n, err := strconv.Atoi(vars[f.name])
		if err != nil {
			return c, fmt.Errorf("invalid %s: %w", f.name, err)
		}

		*f.dst = n
	}

	return c, nil
}

func (m *Monitor) getCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c, err := parseCoord(vars)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.lock.Lock()
	value, err := m.selectAnd(vars["dim"], func() (any, error) {
		return m.array.Get(c.X, c.Y, c.Z)
	})
	m.lock.Unlock()

	if err != nil {
		m.writeError(w, err)
		return
	}

	rsp := cellRsp{Dimension: vars["dim"], Coord: c}
	if addressing.IsEmpty(value) {
		rsp.Empty = true
	} else {
		rsp.Value = value
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) setCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c, err := parseCoord(vars)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.lock.Lock()
	_, err = m.selectAnd(vars["dim"], func() (any, error) {
		return nil, m.array.Set(c.X, c.Y, c.Z, string(body))
	})
	m.lock.Unlock()

	if err != nil {
		m.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// selectAnd must be called with the lock held.
func (m *Monitor) selectAnd(
	dim string,
	fn func() (any, error),
) (any, error) {
	err := m.array.SelectDimension(dim)
	if err != nil {
		return nil, err
	}

	return fn()
}

type inspection struct {
	SessionID  string
	Shape      addressing.Extents
	Dimensions []dimension.Dimension
	Stored     int
	Accesses   int
}

func (m *Monitor) inspect(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	in := &inspection{
		SessionID:  m.sessionID,
		Shape:      m.array.Shape(),
		Dimensions: m.array.ListDimensions(),
		Stored:     m.array.StoredCells(),
		Accesses:   len(m.array.AccessLog()),
	}
	m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(in)
	serializer.SetMaxDepth(2)

	buf := bytes.NewBuffer(nil)

	err := serializer.Serialize(buf)
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, buf.Bytes())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()

	process, err := process.NewProcess(int32(pid))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memorySize, err := process.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, hyperarray.ErrTrapAccess):
		status = http.StatusForbidden
	case errors.Is(err, hyperarray.ErrUnknownDimension):
		status = http.StatusNotFound
	case errors.Is(err, hyperarray.ErrOutOfBounds):
		status = http.StatusBadRequest
	}

	m.logger.WithError(err).WithField("status", status).Debug("request failed")

	http.Error(w, err.Error(), status)
}

// writeJSON answers 500 when v cannot be encoded, e.g. a stored NaN.
func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.writeError(w, fmt.Errorf("encoding response: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	m.write(w, data)
}

func (m *Monitor) write(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		m.logger.WithError(err).Warn("failed to write response")
	}
}
