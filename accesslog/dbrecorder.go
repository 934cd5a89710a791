package accesslog

import (
	"fmt"

	"github.com/rf-peixoto/hyperarray/datarecording"
)

// TableName is the table the DBRecorder writes to.
const TableName = "hyperarray_access"

// AccessEntry is the row layout of the access table. The address is stored
// as hex text since SQLite integers are signed.
type AccessEntry struct {
	Seq       uint64
	Op        string
	Dimension string
	Role      string
	X         int
	Y         int
	Z         int
	Address   string
	Trapped   bool
}

// DBRecorder stores records into a DataRecorder.
type DBRecorder struct {
	dataRecorder datarecording.DataRecorder
}

// NewDBRecorder creates the access table and returns a recorder writing to
// it.
func NewDBRecorder(dataRecorder datarecording.DataRecorder) *DBRecorder {
	dataRecorder.CreateTable(TableName, AccessEntry{})

	return &DBRecorder{dataRecorder: dataRecorder}
}

// Record buffers the record in the data recorder.
func (r *DBRecorder) Record(rec Record) {
	r.dataRecorder.InsertData(TableName, AccessEntry{
		Seq:       rec.Seq,
		Op:        rec.Op.String(),
		Dimension: rec.Dimension,
		Role:      rec.Role.String(),
		X:         rec.Coord.X,
		Y:         rec.Coord.Y,
		Z:         rec.Coord.Z,
		Address:   fmt.Sprintf("0x%016x", rec.Address),
		Trapped:   rec.Trapped,
	})
}

// Flush writes buffered records to the database.
func (r *DBRecorder) Flush() {
	r.dataRecorder.Flush()
}
