package monitoring

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rf-peixoto/hyperarray/dimension"
	"github.com/rf-peixoto/hyperarray/hyperarray"
	"github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		array  *hyperarray.HyperArray
		m      *Monitor
		router *mux.Router
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()

		b, err := hyperarray.DefaultLayout().Builder()
		Expect(err).NotTo(HaveOccurred())

		array, err = b.WithLogger(logger).Build()
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor(array).WithLogger(logger)
		router = m.Router()
	})

	It("should list dimensions", func() {
		rec := do(http.MethodGet, "/api/dimensions", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var dims []dimension.Dimension
		Expect(json.Unmarshal(rec.Body.Bytes(), &dims)).To(Succeed())
		Expect(dims).To(Equal(array.ListDimensions()))
	})

	It("should write and read cells", func() {
		rec := do(http.MethodPut, "/api/cell/real/1/1/1", "SECRET_PAYLOAD")
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = do(http.MethodGet, "/api/cell/real/1/1/1", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp cellRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Value).To(Equal("SECRET_PAYLOAD"))
		Expect(rsp.Empty).To(BeFalse())
	})

	It("should report empty cells", func() {
		rec := do(http.MethodGet, "/api/cell/decoy/0/0/0", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp cellRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Empty).To(BeTrue())
	})

	It("should forbid trap accesses and still log them", func() {
		rec := do(http.MethodPut, "/api/cell/trap/1/1/1", "x")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = do(http.MethodGet, "/api/log", "")
		var records []recordRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Trapped).To(BeTrue())
		Expect(records[0].Op).To(Equal("WRITE"))

		Expect(testutil.ToFloat64(
			m.Metrics().Count("WRITE", "trap", "trapped"))).To(Equal(1.0))
	})

	It("should map errors to status codes", func() {
		Expect(do(http.MethodGet, "/api/cell/nowhere/0/0/0", "").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/cell/real/9/0/0", "").Code).
			To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/api/cell/real/a/0/0", "").Code).
			To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/api/dimension/nowhere", "").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should dump dimensions and raw storage", func() {
		do(http.MethodPut, "/api/cell/real/2/2/2", "1337")
		do(http.MethodPut, "/api/cell/decoy/2/2/2", "0")

		rec := do(http.MethodGet, "/api/dimension/real", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var cells []hyperarray.LogicalCell
		Expect(json.Unmarshal(rec.Body.Bytes(), &cells)).To(Succeed())
		Expect(cells).To(HaveLen(1))
		Expect(cells[0].Value).To(Equal("1337"))

		rec = do(http.MethodGet, "/api/raw", "")
		var raw []rawCellRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &raw)).To(Succeed())
		Expect(raw).To(HaveLen(2))
		Expect(raw[0].Address).To(HavePrefix("0x"))
	})

	It("should count accesses made through Do", func() {
		err := m.Do(func(a *hyperarray.HyperArray) error {
			if err := a.SelectDimension("real"); err != nil {
				return err
			}
			return a.Set(0, 0, 0, "v")
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(testutil.ToFloat64(
			m.Metrics().Count("WRITE", "real", "ok"))).To(Equal(1.0))
	})

	It("should expose prometheus metrics", func() {
		do(http.MethodGet, "/api/cell/real/0/0/0", "")

		rec := do(http.MethodGet, "/metrics", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("hyperarray_accesses_total"))
		Expect(rec.Body.String()).To(ContainSubstring("hyperarray_stored_cells"))
	})

	It("should gauge stored cells", func() {
		do(http.MethodPut, "/api/cell/real/0/0/0", "a")
		do(http.MethodPut, "/api/cell/real/0/0/0", "b")
		do(http.MethodPut, "/api/cell/decoy/0/0/0", "c")

		rec := do(http.MethodGet, "/metrics", "")
		Expect(rec.Body.String()).To(ContainSubstring("hyperarray_stored_cells 2"))
	})

	It("should answer 500 for values that cannot be encoded", func() {
		err := m.Do(func(a *hyperarray.HyperArray) error {
			if err := a.SelectDimension("real"); err != nil {
				return err
			}
			if err := a.Set(0, 0, 0, math.NaN()); err != nil {
				return err
			}
			return a.Set(1, 0, 0, make(chan int))
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(do(http.MethodGet, "/api/dimension/real", "").Code).
			To(Equal(http.StatusInternalServerError))
		Expect(do(http.MethodGet, "/api/raw", "").Code).
			To(Equal(http.StatusInternalServerError))
		Expect(do(http.MethodGet, "/api/cell/real/0/0/0", "").Code).
			To(Equal(http.StatusInternalServerError))

		Expect(do(http.MethodGet, "/api/dimensions", "").Code).
			To(Equal(http.StatusOK))
	})

	It("should report the session", func() {
		rec := do(http.MethodGet, "/api/session", "")
		Expect(rec.Body.String()).To(ContainSubstring(m.SessionID()))
	})

	It("should inspect the array", func() {
		rec := do(http.MethodGet, "/api/inspect", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should fall back to a random port for low port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should serve over a listener", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(url + "/api/dimensions")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
