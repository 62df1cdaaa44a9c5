package celerograph

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	DefaultPrefix = "celero_benchmark"
	DefaultIndex  = "index.html"
)

// ReportOptions controls the naming and sizing of generated documents.
type ReportOptions struct {
	Prefix string
	Index  string
	// Width and Height of every chart, as CSS lengths. Two charts of the
	// default width fit on one row.
	Width  string
	Height string
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Index == "" {
		o.Index = DefaultIndex
	}
	if o.Width == "" {
		o.Width = "45vw"
	}
	if o.Height == "" {
		o.Height = "360px"
	}
	return o
}

// chartIDs name the echarts instance of each feature; the rendered page
// binds them to goecharts_<id>.
var chartIDs = [NumFeatures]string{
	Baseline:         "baseline",
	IterationTime:    "iteration_time",
	IterationsPerSec: "iterations_per_sec",
	MinTime:          "min_time",
	MaxTime:          "max_time",
	MeanTime:         "mean_time",
}

func newFeatureBar(g *Group, f Feature, o ReportOptions) *charts.Bar {
	samples := g.Samples(f)
	labels := g.Labels(f)
	data := make([]opts.BarData, 0, len(samples))
	for i, s := range samples {
		data = append(data, opts.BarData{Name: labels[i], Value: s.Value})
	}
	xName := "Experiment"
	if g.spansProblemSpaces() {
		xName = "Experiment (problem space)"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:   o.Width,
			Height:  o.Height,
			ChartID: chartIDs[f],
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Benchmark group: %s - %s", g.Name, f),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: f.String()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithLegendOpts(opts.Legend{Show: false}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries(f.String(), data)
	return bar
}

// NewReport lays out the six feature charts of g on a page, two per row.
// The first chart carries the toolbox; the charts are connected so that
// its actions apply to all of them.
func NewReport(g *Group, o ReportOptions) *components.Page {
	o = o.withDefaults()

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Benchmark results for '%s'", g.Name)
	page.SetLayout(components.PageFlexLayout)

	instances := make([]string, 0, NumFeatures)
	for i, f := range Features {
		bar := newFeatureBar(g, f, o)
		if i == 0 {
			bar.SetGlobalOptions(charts.WithToolboxOpts(opts.Toolbox{
				Show: true,
				Feature: &opts.ToolBoxFeature{
					SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: true},
					DataZoom:    &opts.ToolBoxFeatureDataZoom{Show: true},
					DataView:    &opts.ToolBoxFeatureDataView{Show: true},
					Restore:     &opts.ToolBoxFeatureRestore{Show: true},
				},
			}))
		}
		instances = append(instances, "goecharts_"+chartIDs[f])
		if i == len(Features)-1 {
			bar.AddJSFuncs(fmt.Sprintf("echarts.connect([%s]);", strings.Join(instances, ", ")))
		}
		page.AddCharts(bar)
	}
	return page
}

// ReportFileName names the document of group.
func ReportFileName(prefix, group string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + sanitizeName(group) + ".html"
}

func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		" ", "_",
		":", "_",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	return replacer.Replace(s)
}

// Document is a rendered report held in memory until written.
type Document struct {
	Group   string
	Name    string
	Content []byte
}

// uniqueName returns name, or name with a _2, _3, ... suffix when it is
// already taken, and marks the result as taken.
func uniqueName(taken map[string]bool, name string) string {
	base := strings.TrimSuffix(name, ".html")
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s_%d.html", base, n)
	}
	taken[name] = true
	return name
}

// RenderReports renders one document per group of a, in group order.
// Groups whose names sanitize to the same file name get numbered names.
func RenderReports(a *Aggregate, o ReportOptions) ([]Document, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	o = o.withDefaults()
	taken := map[string]bool{o.Index: true}
	docs := make([]Document, 0, a.Len())
	for _, g := range a.Groups() {
		var buf bytes.Buffer
		if err := NewReport(g, o).Render(&buf); err != nil {
			return nil, fmt.Errorf("render group %q: %w", g.Name, err)
		}
		docs = append(docs, Document{
			Group:   g.Name,
			Name:    uniqueName(taken, ReportFileName(o.Prefix, g.Name)),
			Content: buf.Bytes(),
		})
	}
	return docs, nil
}

// WriteDocuments writes docs into dir.
func WriteDocuments(dir string, docs []Document) error {
	for _, d := range docs {
		p := filepath.Join(dir, d.Name)
		if err := os.WriteFile(p, d.Content, 0o644); err != nil {
			return err
		}
		log.Printf("wrote %s", p)
	}
	return nil
}

// Generate renders the reports and the index of a into dir and returns
// the names of the written files, index last.
func Generate(a *Aggregate, dir string, o ReportOptions) ([]string, error) {
	o = o.withDefaults()
	docs, err := RenderReports(a, o)
	if err != nil {
		return nil, err
	}
	var index bytes.Buffer
	if err := WriteIndex(&index, IndexEntries(a, docs)); err != nil {
		return nil, err
	}
	docs = append(docs, Document{Name: o.Index, Content: index.Bytes()})

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := WriteDocuments(dir, docs); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names, nil
}
