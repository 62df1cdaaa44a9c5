package celerograph

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Group,Experiment,Problem Space,Samples,Iterations,Failure,Baseline,us/Iteration,Iterations/sec,Min (us),Max (us),Mean (us),Variance,Standard Deviation,Skewness,Kurtosis,Z Score\n"

func readAll(t *testing.T, input string) ([]*Record, error) {
	t.Helper()
	r := NewReader(strings.NewReader(input), "test.csv")
	var recs []*Record
	for r.Scan() {
		recs = append(recs, r.Record())
	}
	return recs, r.Err()
}

func TestReader(t *testing.T) {
	recs, err := readAll(t, header+
		"Sort,Insertion,64,10,100,0,1,5,200000,4,7,5,0.1,0.3,0,0,0\n"+
		"Sort, Merge, 64, 10, 100, 0, 0.8, 4, 250000, 3, 6, 4, 0.1, 0.3, 0, 0, 0\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, &Record{
		Group:        "Sort",
		Experiment:   "Insertion",
		ProblemSpace: 64,
		File:         "test.csv",
		Values: [NumFeatures]float64{
			Baseline:         1,
			IterationTime:    5,
			IterationsPerSec: 200000,
			MinTime:          4,
			MaxTime:          7,
			MeanTime:         5,
		},
	}, recs[0])
	assert.Equal(t, "Merge", recs[1].Experiment)
	assert.Equal(t, 0.8, recs[1].Value(Baseline))
	assert.Equal(t, 250000.0, recs[1].Value(IterationsPerSec))
}

func TestReaderColumnOrder(t *testing.T) {
	recs, err := readAll(t,
		"mean (us),EXPERIMENT,baseline,Min (us),Max (us),group,Iterations/sec,us/iteration\n"+
			"5,Insertion,1,4,7,Sort,200000,5.5\n")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "Sort", r.Group)
	assert.Equal(t, "Insertion", r.Experiment)
	assert.Equal(t, int64(0), r.ProblemSpace)
	assert.Equal(t, 5.0, r.Value(MeanTime))
	assert.Equal(t, 5.5, r.Value(IterationTime))
}

func TestReaderRepeatedHeader(t *testing.T) {
	recs, err := readAll(t, header+
		"Sort,Insertion,0,10,100,0,1,5,200000,4,7,5,0.1,0.3,0,0,0\n"+
		"\n"+
		header+
		"Search,Linear,0,10,100,0,1,5,200000,4,7,5,0.1,0.3,0,0,0\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Sort", recs[0].Group)
	assert.Equal(t, "Search", recs[1].Group)
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column string
		value  string
	}{
		{
			name:  "empty",
			input: "",
		},
		{
			name:   "missing group",
			input:  "Experiment,Baseline,us/Iteration,Iterations/sec,Min (us),Max (us),Mean (us)\n",
			line:   1,
			column: "Group",
		},
		{
			name:   "missing feature",
			input:  "Group,Experiment,Baseline,us/Iteration,Iterations/sec,Min (us),Max (us)\n",
			line:   1,
			column: "Mean (us)",
		},
		{
			name:   "not a number",
			input:  header + "Sort,Insertion,0,10,100,0,1,fast,200000,4,7,5,0.1,0.3,0,0,0\n",
			line:   2,
			column: "us/Iteration",
			value:  "fast",
		},
		{
			name:   "empty value",
			input:  header + "Sort,Insertion,0,10,100,0,1,5,200000,4,7,,0.1,0.3,0,0,0\n",
			line:   2,
			column: "Mean (us)",
		},
		{
			name:   "bad problem space",
			input:  header + "Sort,Insertion,big,10,100,0,1,5,200000,4,7,5,0.1,0.3,0,0,0\n",
			line:   2,
			column: "Problem Space",
			value:  "big",
		},
		{
			name:   "NaN",
			input:  header + "Sort,Insertion,0,10,100,0,NaN,5,200000,4,7,5,0.1,0.3,0,0,0\n",
			line:   2,
			column: "Baseline",
			value:  "NaN",
		},
		{
			name:   "infinity",
			input:  header + "Sort,Insertion,0,10,100,0,1,5,inf,4,7,5,0.1,0.3,0,0,0\n",
			line:   2,
			column: "Iterations/sec",
			value:  "inf",
		},
		{
			name:   "out of range",
			input:  header + "Sort,Insertion,0,10,100,0,1,5,200000,4,1e999,5,0.1,0.3,0,0,0\n",
			line:   2,
			column: "Max (us)",
			value:  "1e999",
		},
		{
			name:  "short row",
			input: header + "Sort,Insertion,0,10\n",
			line:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAll(t, tt.input)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %T", err)
			assert.Equal(t, "test.csv", perr.File)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.column, perr.Column)
			assert.Equal(t, tt.value, perr.Value)
		})
	}
}

func TestReaderStopsAtError(t *testing.T) {
	r := NewReader(strings.NewReader(header+
		"Sort,Insertion,0,10,100,0,1,5,200000,4,7,5,0.1,0.3,0,0,0\n"+
		"Sort,Merge,0,10,100,0,x,4,250000,3,6,4,0.1,0.3,0,0,0\n"+
		"Sort,Quick,0,10,100,0,0.5,2,500000,1,3,2,0.1,0.3,0,0,0\n"), "test.csv")
	assert.True(t, r.Scan())
	assert.False(t, r.Scan())
	assert.False(t, r.Scan())
	assert.ErrorIs(t, r.Err(), errNotNumber)
	assert.Contains(t, r.Err().Error(), `test.csv:3: column "Baseline": value "x"`)
}

func TestFeature(t *testing.T) {
	for f := Feature(0); f < NumFeatures; f++ {
		got, err := ParseFeature(strings.ToUpper(f.String()))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFeature("Variance")
	assert.Error(t, err)
	assert.Equal(t, "Feature(9)", Feature(9).String())

	var f Feature
	require.NoError(t, f.UnmarshalText([]byte("Iterations/sec")))
	assert.Equal(t, IterationsPerSec, f)
	text, err := MeanTime.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Mean (us)", string(text))
}
