package celerograph

import (
	"io"

	"github.com/google/safehtml/template"
	"golang.org/x/perf/benchstat"
)

// IndexEntry is one line of the index page.
type IndexEntry struct {
	Group       string
	File        string
	Experiments int
	Fastest     string
	FastestMean string
}

// IndexEntries pairs each group of a with its rendered document.
func IndexEntries(a *Aggregate, docs []Document) []IndexEntry {
	res := make([]IndexEntry, 0, len(docs))
	for _, d := range docs {
		g := a.Group(d.Group)
		if g == nil {
			continue
		}
		e := IndexEntry{
			Group:       g.Name,
			File:        d.Name,
			Experiments: len(g.Experiments()),
		}
		if s, ok := fastest(g); ok {
			e.Fastest = g.Label(s)
			// Celero reports microseconds.
			ns := s.Value * 1e3
			e.FastestMean = benchstat.NewScaler(ns, "ns/op")(ns)
		}
		res = append(res, e)
	}
	return res
}

// fastest returns the sample with the lowest mean time, the first one
// on ties.
func fastest(g *Group) (Sample, bool) {
	ss := g.Samples(MeanTime)
	if len(ss) == 0 {
		return Sample{}, false
	}
	best := ss[0]
	for _, s := range ss[1:] {
		if s.Value < best.Value {
			best = s
		}
	}
	return best, true
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Celero benchmark reports</title>
</head>
<body>
<h1>Celero benchmark reports</h1>
<table>
<tr><th>Group</th><th>Experiments</th><th>Fastest (mean)</th></tr>
{{- range .}}
<tr><td><a href="{{.File}}">{{.Group}}</a></td><td>{{.Experiments}}</td><td>{{if .Fastest}}{{.Fastest}} ({{.FastestMean}}){{end}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

// WriteIndex writes a page linking every entry, in order.
func WriteIndex(w io.Writer, entries []IndexEntry) error {
	return indexTmpl.Execute(w, entries)
}
