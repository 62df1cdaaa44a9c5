package celerograph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectString(t *testing.T, input string) *Aggregate {
	t.Helper()
	agg, err := Collect(NewReader(strings.NewReader(input), "test.csv"))
	require.NoError(t, err)
	return agg
}

func TestAggregateSortExample(t *testing.T) {
	agg := collectString(t, header+
		"Sort,Insertion,0,10,100,0,1.0,5,200000,4,7,5,0,0,0,0,0\n"+
		"Sort,Merge,0,10,100,0,0.8,4,250000,3,6,4,0,0,0,0,0\n")

	require.Equal(t, 1, agg.Len())
	g := agg.Group("Sort")
	require.NotNil(t, g)
	assert.Equal(t, "test.csv", g.File)
	assert.Equal(t, []string{"Insertion", "Merge"}, g.Experiments())

	want := map[Feature][2]float64{
		Baseline:         {1.0, 0.8},
		IterationTime:    {5, 4},
		IterationsPerSec: {200000, 250000},
		MinTime:          {4, 3},
		MaxTime:          {7, 6},
		MeanTime:         {5, 4},
	}
	for f, v := range want {
		assert.Equal(t, []Sample{{Experiment: "Insertion", Value: v[0]}, {Experiment: "Merge", Value: v[1]}}, g.Samples(f), "%v", f)
	}
	assert.NoError(t, agg.Validate())
}

func TestAggregateOrder(t *testing.T) {
	agg := collectString(t, header+
		"B,z,0,1,1,0,1,1,1,1,1,1,0,0,0,0,0\n"+
		"A,y,0,1,1,0,2,2,2,2,2,2,0,0,0,0,0\n"+
		"B,a,0,1,1,0,3,3,3,3,3,3,0,0,0,0,0\n"+
		"B,z,64,1,1,0,4,4,4,4,4,4,0,0,0,0,0\n")

	var names []string
	for _, g := range agg.Groups() {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"B", "A"}, names)

	b := agg.Group("B")
	assert.Equal(t, []string{"z", "a"}, b.Experiments())
	for f := Feature(0); f < NumFeatures; f++ {
		assert.Equal(t, []Sample{
			{Experiment: "z", ProblemSpace: 0, Value: 1},
			{Experiment: "z", ProblemSpace: 64, Value: 4},
			{Experiment: "a", ProblemSpace: 0, Value: 3},
		}, b.Samples(f), "%v", f)
	}
	assert.Equal(t, []string{"z (0)", "z (64)", "a (0)"}, b.Labels(MeanTime))
	assert.Equal(t, []string{"y"}, agg.Group("A").Labels(MeanTime))
	assert.Nil(t, agg.Group("C"))
}

func TestAggregateMergeMatchesConcatenation(t *testing.T) {
	combined, err := Collect(&Files{Paths: []string{"testdata/sort.csv", "testdata/search.csv"}})
	require.NoError(t, err)

	sortAgg, err := Collect(&Files{Paths: []string{"testdata/sort.csv"}})
	require.NoError(t, err)
	searchAgg, err := Collect(&Files{Paths: []string{"testdata/search.csv"}})
	require.NoError(t, err)
	sortAgg.Merge(searchAgg)

	assert.Equal(t, combined.Groups(), sortAgg.Groups())

	appended, err := Collect(&Files{Paths: []string{"testdata/appended.csv"}})
	require.NoError(t, err)
	require.Equal(t, 2, appended.Len())
	for _, g := range combined.Groups() {
		assert.Equal(t, g.Features, appended.Group(g.Name).Features)
	}
}

func TestMergeKeepsExperimentsTogether(t *testing.T) {
	a := collectString(t, header+
		"Sort,Insertion,64,1,1,0,1,1,1,1,1,1,0,0,0,0,0\n"+
		"Sort,Merge,64,1,1,0,2,2,2,2,2,2,0,0,0,0,0\n")
	b := collectString(t, header+
		"Sort,Insertion,128,1,1,0,3,3,3,3,3,3,0,0,0,0,0\n"+
		"Sort,Quick,128,1,1,0,4,4,4,4,4,4,0,0,0,0,0\n")
	a.Merge(b)

	want := collectString(t, header+
		"Sort,Insertion,64,1,1,0,1,1,1,1,1,1,0,0,0,0,0\n"+
		"Sort,Merge,64,1,1,0,2,2,2,2,2,2,0,0,0,0,0\n"+
		"Sort,Insertion,128,1,1,0,3,3,3,3,3,3,0,0,0,0,0\n"+
		"Sort,Quick,128,1,1,0,4,4,4,4,4,4,0,0,0,0,0\n")
	assert.Equal(t, want.Groups(), a.Groups())
	assert.Equal(t, []string{"Insertion (64)", "Insertion (128)", "Merge (64)", "Quick (128)"}, a.Group("Sort").Labels(Baseline))
	assert.NoError(t, a.Validate())
}

func TestMergeSameGroup(t *testing.T) {
	a := collectString(t, header+"Sort,Insertion,0,1,1,0,1,5,2,4,7,5,0,0,0,0,0\n")
	b := collectString(t, header+"Sort,Merge,0,1,1,0,0.8,4,3,3,6,4,0,0,0,0,0\n")
	a.Merge(b)
	require.Equal(t, 1, a.Len())
	assert.Equal(t, []string{"Insertion", "Merge"}, a.Group("Sort").Experiments())
	assert.NoError(t, a.Validate())
}

func TestValidate(t *testing.T) {
	agg := collectString(t, header+"Sort,Insertion,0,1,1,0,1,5,2,4,7,5,0,0,0,0,0\n")
	g := agg.Group("Sort")
	g.Features[MaxTime] = append(g.Features[MaxTime], Sample{Experiment: "Merge", Value: 1})
	assert.ErrorContains(t, agg.Validate(), "Max (us) has 2 samples")

	g.Features[MaxTime] = []Sample{{Experiment: "Merge", Value: 1}}
	assert.ErrorContains(t, agg.Validate(), `Max (us) sample 0 is "Merge (0)"`)

	g.Features[MaxTime] = []Sample{{Experiment: "Insertion", ProblemSpace: 64, Value: 7}}
	assert.ErrorContains(t, agg.Validate(), `Max (us) sample 0 is "Insertion (64)", want "Insertion (0)"`)
}

func TestCollectAbortsOnError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(header+"Sort,Merge,0,1,1,0,0.8,4,n/a,3,6,4,0,0,0,0,0\n"), 0o644))

	agg, err := Collect(&Files{Paths: []string{"testdata/sort.csv", bad}})
	assert.Nil(t, agg)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, bad, perr.File)
	assert.Equal(t, "Iterations/sec", perr.Column)

	_, err = Collect(&Files{Paths: []string{filepath.Join(dir, "missing.csv")}})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAggregateJSON(t *testing.T) {
	agg, err := LoadPath("testdata/sort.csv")
	require.NoError(t, err)

	data, err := json.Marshal(agg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"Sort"`)
	assert.Contains(t, string(data), `"Mean (us)":[{"experiment":"Insertion","problem_space":0,"value":5},{"experiment":"Merge","problem_space":0,"value":4}]`)

	again, err := json.Marshal(agg)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	var back Aggregate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, agg.Groups(), back.Groups())
}
