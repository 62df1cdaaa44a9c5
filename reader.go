package celerograph

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// A Reader reads Celero result tables.
//
// Its API is modeled on bufio.Scanner: call Scan until it returns false,
// then check Err. The first row is the header; rows repeating the header
// (several reports appended to one file) are skipped.
type Reader struct {
	csv      *csv.Reader
	fileName string

	header       bool
	group        int
	experiment   int
	problemSpace int
	features     [NumFeatures]int
	width        int

	rec Record
	err error
}

// NewReader returns a Reader reading from r. fileName is recorded in
// every Record and in errors.
func NewReader(r io.Reader, fileName string) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr, fileName: fileName}
}

// Scan advances to the next record and reports whether there is one.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			if !r.header {
				r.err = &ParseError{File: r.fileName, Err: errors.New("missing header row")}
			}
			return false
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			r.err = &ParseError{File: r.fileName, Line: line, Err: err}
			return false
		}
		line, _ := r.csv.FieldPos(0)
		if !r.header {
			if r.err = r.parseHeader(row, line); r.err != nil {
				return false
			}
			continue
		}
		if len(row) >= 2 && isColumnName(row[0]) && isColumnName(row[1]) {
			continue
		}
		if r.err = r.parseRow(row, line); r.err != nil {
			return false
		}
		return true
	}
}

func (r *Reader) parseHeader(row []string, line int) error {
	r.group, r.experiment, r.problemSpace = -1, -1, -1
	for i := range r.features {
		r.features[i] = -1
	}
	for i, name := range row {
		name = strings.TrimSpace(name)
		switch {
		case strings.EqualFold(name, ColumnGroup):
			r.group = i
		case strings.EqualFold(name, ColumnExperiment):
			r.experiment = i
		case strings.EqualFold(name, ColumnProblemSpace):
			r.problemSpace = i
		default:
			if f, err := ParseFeature(name); err == nil {
				r.features[f] = i
			}
		}
	}

	missing := func(col string) error {
		return &ParseError{File: r.fileName, Line: line, Column: col, Err: errors.New("missing required column")}
	}
	if r.group < 0 {
		return missing(ColumnGroup)
	}
	if r.experiment < 0 {
		return missing(ColumnExperiment)
	}
	r.width = max(r.group, r.experiment)
	for f, i := range r.features {
		if i < 0 {
			return missing(Feature(f).String())
		}
		r.width = max(r.width, i)
	}
	r.width++
	r.header = true
	return nil
}

func (r *Reader) parseRow(row []string, line int) error {
	if len(row) < r.width {
		return &ParseError{
			File: r.fileName,
			Line: line,
			Err:  fmt.Errorf("row has %d fields, want at least %d", len(row), r.width),
		}
	}
	r.rec = Record{
		Group:      strings.TrimSpace(row[r.group]),
		Experiment: strings.TrimSpace(row[r.experiment]),
		File:       r.fileName,
	}
	if r.problemSpace >= 0 && r.problemSpace < len(row) {
		s := strings.TrimSpace(row[r.problemSpace])
		if s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return &ParseError{File: r.fileName, Line: line, Column: ColumnProblemSpace, Value: s, Err: err}
			}
			r.rec.ProblemSpace = v
		}
	}
	for f, i := range r.features {
		s := strings.TrimSpace(row[i])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return &ParseError{File: r.fileName, Line: line, Column: Feature(f).String(), Value: s, Err: errNotNumber}
		}
		r.rec.Values[f] = v
	}
	return nil
}

var errNotNumber = errors.New("not a number")

// Record returns the record read by the last successful Scan. The
// returned value is a copy owned by the caller.
func (r *Reader) Record() *Record {
	rec := r.rec
	return &rec
}

// Err returns the error that stopped Scan, or nil at a clean end of input.
func (r *Reader) Err() error {
	return r.err
}
