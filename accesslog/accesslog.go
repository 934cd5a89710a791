// Package accesslog keeps the append-only audit trail of hyperarray accesses.
package accesslog

import (
	"fmt"

	"github.com/rf-peixoto/hyperarray/addressing"
	"github.com/rf-peixoto/hyperarray/dimension"
)

// Op is the kind of an access.
type Op int

// Access kinds.
const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// A Record describes one get or set attempt.
type Record struct {
	Seq       uint64           `json:"seq"`
	Op        Op               `json:"op"`
	Dimension string           `json:"dimension"`
	Role      dimension.Role   `json:"role"`
	Coord     addressing.Coord `json:"coord"`
	Address   uint64           `json:"address"`
	Trapped   bool             `json:"trapped"`
}

func (r Record) String() string {
	s := fmt.Sprintf("#%d %s %s @ %s -> 0x%x",
		r.Seq, r.Op, r.Dimension, r.Coord, r.Address)
	if r.Trapped {
		s += " [trapped]"
	}

	return s
}

// A Recorder receives every record appended to a Log.
type Recorder interface {
	Record(r Record)
}

// Log is an ordered sequence of records. Records are never changed or
// removed once appended.
type Log struct {
	records   []Record
	nextSeq   uint64
	recorders []Recorder
}

// NewLog creates an empty log that forwards records to the recorders.
func NewLog(recorders ...Recorder) *Log {
	return &Log{
		nextSeq:   1,
		recorders: recorders,
	}
}

// AddRecorder registers another recorder. It only sees records appended after
// the call.
func (l *Log) AddRecorder(r Recorder) {
	l.recorders = append(l.recorders, r)
}

// Append adds a record and returns it with its sequence number filled in.
func (l *Log) Append(
	op Op,
	dim dimension.Dimension,
	coord addressing.Coord,
	address uint64,
	trapped bool,
) Record {
	r := Record{
		Seq:       l.nextSeq,
		Op:        op,
		Dimension: dim.Name,
		Role:      dim.Role,
		Coord:     coord,
		Address:   address,
		Trapped:   trapped,
	}

	l.nextSeq++
	l.records = append(l.records, r)

	for _, rec := range l.recorders {
		rec.Record(r)
	}

	return r
}

// Records returns a copy of all records in insertion order.
func (l *Log) Records() []Record {
	records := make([]Record, len(l.records))
	copy(records, l.records)

	return records
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.records)
}
