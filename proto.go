package celerograph

import (
	"fmt"
	"strings"
)

// Celero table column names.
const (
	ColumnGroup        = "Group"
	ColumnExperiment   = "Experiment"
	ColumnProblemSpace = "Problem Space"
	ColumnSamples      = "Samples"
	ColumnIterations   = "Iterations"
	ColumnFailure      = "Failure"
	ColumnVariance     = "Variance"
	ColumnStddev       = "Standard Deviation"
	ColumnSkewness     = "Skewness"
	ColumnKurtosis     = "Kurtosis"
	ColumnZScore       = "Z Score"
)

// Feature is one of the six measurements charted for every experiment.
type Feature int

const (
	Baseline Feature = iota
	IterationTime
	IterationsPerSec
	MinTime
	MaxTime
	MeanTime

	NumFeatures = 6
)

var featureNames = [NumFeatures]string{
	Baseline:         "Baseline",
	IterationTime:    "us/Iteration",
	IterationsPerSec: "Iterations/sec",
	MinTime:          "Min (us)",
	MaxTime:          "Max (us)",
	MeanTime:         "Mean (us)",
}

// Features lists the measurements in the order reports show them.
var Features = [NumFeatures]Feature{
	Baseline,
	MeanTime,
	MinTime,
	MaxTime,
	IterationTime,
	IterationsPerSec,
}

// String returns the Celero column header of f.
func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	return featureNames[f]
}

// ParseFeature maps a column header to its Feature, ignoring case and
// surrounding spaces.
func ParseFeature(name string) (Feature, error) {
	name = strings.TrimSpace(name)
	for i, n := range featureNames {
		if strings.EqualFold(n, name) {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q", name)
}

func (f Feature) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= NumFeatures {
		return nil, fmt.Errorf("invalid feature %d", int(f))
	}
	return []byte(featureNames[f]), nil
}

func (f *Feature) UnmarshalText(text []byte) error {
	v, err := ParseFeature(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Record is one row of a Celero result table.
type Record struct {
	Group        string
	Experiment   string
	ProblemSpace int64
	File         string
	Values       [NumFeatures]float64
}

// Value returns the measurement of feature f.
func (r *Record) Value(f Feature) float64 {
	return r.Values[f]
}

// ParseError reports a malformed input table.
type ParseError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	if e.Column != "" {
		fmt.Fprintf(&b, "column %q: ", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, "value %q: ", e.Value)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// isColumnName reports whether s names a known Celero column.
func isColumnName(s string) bool {
	s = strings.TrimSpace(s)
	for _, n := range []string{ColumnGroup, ColumnExperiment, ColumnProblemSpace,
		ColumnSamples, ColumnIterations, ColumnFailure, ColumnVariance,
		ColumnStddev, ColumnSkewness, ColumnKurtosis, ColumnZScore} {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	_, err := ParseFeature(s)
	return err == nil
}
