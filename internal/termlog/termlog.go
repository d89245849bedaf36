// Package termlog reads terminal execution logs.
//
// A log is a CSV file with a header row naming the columns
// time_started, type, running_time, tx_running_time, think_time_ms and
// is_rbk. Rows are ordered by time_started.
package termlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tpccharness/api/reportapi"
)

var (
	ErrMalformedRow = errors.New("malformed log row")
	ErrEmpty        = errors.New("log file has no records")
)

// Record is a single executed transaction.
type Record struct {
	TimeStarted   uint64
	Type          reportapi.TxType
	RunningTime   uint32 // full cycle, kept for completeness
	TxRunningTime uint32
	ThinkTimeMS   uint32
	IsRollback    bool
}

// CycleFinishTime is the end of the transaction execution plus the think
// time that follows it.
func (r *Record) CycleFinishTime() uint64 {
	return r.TimeStarted + uint64(r.TxRunningTime) + uint64(r.ThinkTimeMS)
}

const (
	colTimeStarted = iota
	colType
	colRunningTime
	colTxRunningTime
	colThinkTime
	colIsRbk
	numColumns
)

var Header = []string{"time_started", "type", "running_time", "tx_running_time", "think_time_ms", "is_rbk"}

var headerAliases = map[string]int{
	"time_started":    colTimeStarted,
	"type":            colType,
	"typ":             colType,
	"running_time":    colRunningTime,
	"tx_running_time": colTxRunningTime,
	"think_time_ms":   colThinkTime,
	"is_rbk":          colIsRbk,
}

// Reader decodes records from a terminal log.
type Reader struct {
	csv  *csv.Reader
	cols [numColumns]int
	line int
}

func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	rd := &Reader{csv: cr, line: 1}
	for i := range rd.cols {
		rd.cols[i] = -1
	}
	for i, name := range header {
		col, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		rd.cols[col] = i
	}
	for col, idx := range rd.cols {
		if idx < 0 {
			return nil, fmt.Errorf("%w: header is missing column %q", ErrMalformedRow, Header[col])
		}
	}
	return rd, nil
}

// Read returns the next record, or io.EOF at the end of the log.
func (rd *Reader) Read() (rec Record, err error) {
	row, err := rd.csv.Read()
	rd.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, rd.line, err)
	}

	rec, err = rd.decode(row)
	if err != nil {
		return rec, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, rd.line, err)
	}
	return rec, nil
}

func (rd *Reader) Line() int { return rd.line }

func (rd *Reader) decode(row []string) (rec Record, err error) {
	field := func(col int) string {
		return strings.TrimSpace(row[rd.cols[col]])
	}
	for _, idx := range rd.cols {
		if idx >= len(row) {
			return rec, fmt.Errorf("expected at least %d fields, got %d", idx+1, len(row))
		}
	}

	if rec.TimeStarted, err = strconv.ParseUint(field(colTimeStarted), 10, 64); err != nil {
		return rec, fmt.Errorf("time_started: %w", err)
	}
	if rec.Type, err = reportapi.ParseTxType(field(colType)); err != nil {
		return rec, err
	}
	if rec.RunningTime, err = parseMillis(field(colRunningTime)); err != nil {
		return rec, fmt.Errorf("running_time: %w", err)
	}
	if rec.TxRunningTime, err = parseMillis(field(colTxRunningTime)); err != nil {
		return rec, fmt.Errorf("tx_running_time: %w", err)
	}
	if rec.ThinkTimeMS, err = parseMillis(field(colThinkTime)); err != nil {
		return rec, fmt.Errorf("think_time_ms: %w", err)
	}
	if rec.IsRollback, err = strconv.ParseBool(field(colIsRbk)); err != nil {
		return rec, fmt.Errorf("is_rbk: %w", err)
	}
	return rec, nil
}

func parseMillis(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// FirstRecord opens the log at path and decodes only its first record.
func FirstRecord(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	rd, err := NewReader(f)
	if err != nil {
		return Record{}, err
	}
	rec, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return rec, ErrEmpty
	}
	return rec, err
}

// ForEach decodes every record of the log at path in file order. Decoding
// stops at the first malformed row or when fn returns an error.
func ForEach(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd, err := NewReader(f)
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return nil
		}
		return err
	}

	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Writer encodes records in the log format.
type Writer struct {
	csv *csv.Writer
	row []string
}

func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	return &Writer{csv: cw, row: make([]string, numColumns)}, nil
}

func (w *Writer) Write(rec Record) error {
	w.row[colTimeStarted] = strconv.FormatUint(rec.TimeStarted, 10)
	w.row[colType] = rec.Type.String()
	w.row[colRunningTime] = strconv.FormatUint(uint64(rec.RunningTime), 10)
	w.row[colTxRunningTime] = strconv.FormatUint(uint64(rec.TxRunningTime), 10)
	w.row[colThinkTime] = strconv.FormatUint(uint64(rec.ThinkTimeMS), 10)
	w.row[colIsRbk] = strconv.FormatBool(rec.IsRollback)
	return w.csv.Write(w.row)
}

// Flush writes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
