package celerograph

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Sample is one experiment's value of a feature at one problem space.
type Sample struct {
	Experiment   string  `json:"experiment"`
	ProblemSpace int64   `json:"problem_space"`
	Value        float64 `json:"value"`
}

// Group holds the samples of one benchmark group, per feature. Samples of
// one experiment are kept together, experiments in the order they were
// first read and each experiment's samples in read order.
type Group struct {
	Name     string
	File     string
	Features [NumFeatures][]Sample
}

// Samples returns the samples of feature f.
func (g *Group) Samples(f Feature) []Sample {
	return g.Features[f]
}

// Experiments returns the distinct experiment labels of g in first-seen order.
func (g *Group) Experiments() []string {
	seen := make(map[string]bool)
	var res []string
	for _, s := range g.Features[Baseline] {
		if seen[s.Experiment] {
			continue
		}
		seen[s.Experiment] = true
		res = append(res, s.Experiment)
	}
	return res
}

// spansProblemSpaces reports whether g has samples at more than one
// problem space.
func (g *Group) spansProblemSpaces() bool {
	ss := g.Features[Baseline]
	for i := 1; i < len(ss); i++ {
		if ss[i].ProblemSpace != ss[0].ProblemSpace {
			return true
		}
	}
	return false
}

func sampleLabel(s Sample, withSpace bool) string {
	if withSpace {
		return fmt.Sprintf("%s (%d)", s.Experiment, s.ProblemSpace)
	}
	return s.Experiment
}

// Label names s on a chart axis: the experiment, followed by the problem
// space when g has several.
func (g *Group) Label(s Sample) string {
	return sampleLabel(s, g.spansProblemSpaces())
}

// Labels returns the axis labels of feature f, one per sample.
func (g *Group) Labels(f Feature) []string {
	withSpace := g.spansProblemSpaces()
	ss := g.Features[f]
	res := make([]string, 0, len(ss))
	for _, s := range ss {
		res = append(res, sampleLabel(s, withSpace))
	}
	return res
}

// insertSample puts s after the last sample of the same experiment, or
// at the end for a new experiment.
func insertSample(ss []Sample, s Sample) []Sample {
	for i := len(ss) - 1; i >= 0; i-- {
		if ss[i].Experiment == s.Experiment {
			return slices.Insert(ss, i+1, s)
		}
	}
	return append(ss, s)
}

func (g *Group) add(r *Record) {
	for f := range g.Features {
		g.Features[f] = insertSample(g.Features[f], Sample{
			Experiment:   r.Experiment,
			ProblemSpace: r.ProblemSpace,
			Value:        r.Values[f],
		})
	}
}

// Aggregate maps group names to their samples. Groups keep the order in
// which they were first read.
type Aggregate struct {
	groups map[string]*Group
	order  []string
}

func NewAggregate() *Aggregate {
	return &Aggregate{groups: make(map[string]*Group)}
}

// Add folds r into a, creating r's group on first sight.
func (a *Aggregate) Add(r *Record) {
	g, ok := a.groups[r.Group]
	if !ok {
		g = &Group{Name: r.Group, File: r.File}
		a.groups[r.Group] = g
		a.order = append(a.order, r.Group)
	}
	g.add(r)
}

// Merge adds the groups and samples of other to a, in other's order, as
// if other's records had been read after a's.
func (a *Aggregate) Merge(other *Aggregate) {
	for _, name := range other.order {
		og := other.groups[name]
		g, ok := a.groups[name]
		if !ok {
			g = &Group{Name: og.Name, File: og.File}
			a.groups[name] = g
			a.order = append(a.order, name)
		}
		for f := range g.Features {
			for _, s := range og.Features[f] {
				g.Features[f] = insertSample(g.Features[f], s)
			}
		}
	}
}

// Groups returns the groups in first-seen order.
func (a *Aggregate) Groups() []*Group {
	res := make([]*Group, 0, len(a.order))
	for _, name := range a.order {
		res = append(res, a.groups[name])
	}
	return res
}

// Group returns the named group, or nil.
func (a *Aggregate) Group(name string) *Group {
	return a.groups[name]
}

func (a *Aggregate) Len() int {
	return len(a.order)
}

// Validate checks that every feature of a group carries the same
// experiments and problem spaces in the same order.
func (a *Aggregate) Validate() error {
	for _, g := range a.Groups() {
		ref := g.Features[Baseline]
		for f := 1; f < NumFeatures; f++ {
			ss := g.Features[f]
			if len(ss) != len(ref) {
				return fmt.Errorf("group %q: %v has %d samples, %v has %d",
					g.Name, Feature(f), len(ss), Baseline, len(ref))
			}
			for i := range ss {
				if ss[i].Experiment != ref[i].Experiment || ss[i].ProblemSpace != ref[i].ProblemSpace {
					return fmt.Errorf("group %q: %v sample %d is %q, want %q",
						g.Name, Feature(f), i, sampleLabel(ss[i], true), sampleLabel(ref[i], true))
				}
			}
		}
	}
	return nil
}

// Collect drains s into a new Aggregate. Any error from s aborts the
// whole collection.
func Collect(s RecordScanner) (*Aggregate, error) {
	a := NewAggregate()
	for s.Scan() {
		a.Add(s.Record())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

type jsonGroup struct {
	Name     string               `json:"name"`
	File     string               `json:"file,omitempty"`
	Features map[Feature][]Sample `json:"features"`
}

type jsonAggregate struct {
	Groups []jsonGroup `json:"groups"`
}

func (a *Aggregate) MarshalJSON() ([]byte, error) {
	out := jsonAggregate{Groups: make([]jsonGroup, 0, len(a.order))}
	for _, g := range a.Groups() {
		jg := jsonGroup{Name: g.Name, File: g.File, Features: make(map[Feature][]Sample, NumFeatures)}
		for f, ss := range g.Features {
			jg.Features[Feature(f)] = ss
		}
		out.Groups = append(out.Groups, jg)
	}
	return json.Marshal(out)
}

func (a *Aggregate) UnmarshalJSON(data []byte) error {
	var in jsonAggregate
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = *NewAggregate()
	for _, jg := range in.Groups {
		g := &Group{Name: jg.Name, File: jg.File}
		for f, ss := range jg.Features {
			g.Features[f] = ss
		}
		a.groups[g.Name] = g
		a.order = append(a.order, g.Name)
	}
	return a.Validate()
}
