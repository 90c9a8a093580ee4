// Copyright 2021 The LegDB Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compile lowers logical query steps into physical steps.
//
// Compilation is a peephole rewrite: windows of one step and then of two steps slide over
// the sequence, and the first rule of the table matching a window replaces it. A rule that
// fuses steps keeps the window in place, so the new step may fuse with its next neighbor.
package compile

import (
	"fmt"
	"os"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/step"
)

var debugCompiler = os.Getenv("LEGDB_DEBUG_COMPILER") == "true"

// Mode tells the rewrite loop how to continue after a rule matched.
type Mode int

const (
	// Advance moves the window one step to the right.
	Advance Mode = iota
	// Fuse retries the window at the same position.
	Fuse
)

func (m Mode) String() string {
	if m == Fuse {
		return "fuse"
	}
	return "advance"
}

// Rule rewrites a window of Size steps into a single step.
type Rule struct {
	Name string
	Size int
	Mode Mode
	// Rewrite returns a replacement step, or false if the window does not match.
	Rewrite func(c *Compiler, w []step.Step) (step.Step, bool)
}

// Rules is the rewrite table in priority order.
var Rules = []Rule{
	{Name: "source", Size: 1, Mode: Advance, Rewrite: lowerSource},
	{Name: "edge_in", Size: 1, Mode: Advance, Rewrite: lowerEdgeIn},
	{Name: "edge_out", Size: 1, Mode: Advance, Rewrite: lowerEdgeOut},
	{Name: "edge_all", Size: 1, Mode: Advance, Rewrite: lowerEdgeAll},
	{Name: "filter_get", Size: 2, Mode: Fuse, Rewrite: fuseFilterGet},
	{Name: "filter_has", Size: 2, Mode: Fuse, Rewrite: fuseFilterHas},
	{Name: "filter_edge_in", Size: 2, Mode: Fuse, Rewrite: fuseFilterEdgeIn},
	{Name: "filter_edge_out", Size: 2, Mode: Fuse, Rewrite: fuseFilterEdgeOut},
	{Name: "filter_edge_all", Size: 2, Mode: Fuse, Rewrite: fuseFilterEdgeAll},
}

// maxWindow is the largest window size in Rules.
const maxWindow = 2

// Compiler compiles logical chains for a particular edge collection.
type Compiler struct {
	// EdgeKind is the collection edge traversals are lowered to.
	EdgeKind graph.Kind
	// Rules overrides the default rewrite table.
	Rules []Rule
}

// New creates a compiler that lowers edge traversals to the given edge kind.
func New(edgeKind graph.Kind) *Compiler {
	return &Compiler{EdgeKind: edgeKind}
}

// Compile compiles steps with the default compiler.
func Compile(steps []step.Step) ([]step.Step, error) {
	return New(graph.EdgeKind).Compile(steps)
}

// Compile rewrites steps into a physical plan. The input is not modified.
//
// The first step must be a Source or an already compiled physical step; any other leading
// logical step is a usage error. Steps that match no rule are passed through unchanged.
// Compiling a compiled plan returns an equal plan.
func (c *Compiler) Compile(steps []step.Step) ([]step.Step, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: cannot compile an empty chain", graph.ErrUsage)
	}
	switch steps[0].(type) {
	case step.Source, step.Physical:
	default:
		return nil, fmt.Errorf("%w: chain must start with a source, got %v", graph.ErrUsage, steps[0])
	}
	if !c.EdgeKind.IsEdge() {
		return nil, fmt.Errorf("%w: %q is not an edge kind", graph.ErrUsage, c.EdgeKind.Name)
	}
	rules := c.Rules
	if rules == nil {
		rules = Rules
	}
	out := append([]step.Step(nil), steps...)
	for size := 1; size <= maxWindow; size++ {
		for i := 0; i+size <= len(out); {
			r, s, ok := c.match(rules, size, out[i:i+size])
			if !ok {
				i++
				continue
			}
			if debugCompiler || clog.V(2) {
				clog.Infof("compile: %s(%s): %s -> %v", r.Name, r.Mode, step.Format(out[i:i+size]), s)
			}
			out = splice(out, i, size, s)
			if r.Mode != Fuse {
				i++
			}
		}
	}
	return out, nil
}

func (c *Compiler) match(rules []Rule, size int, w []step.Step) (*Rule, step.Step, bool) {
	for i := range rules {
		r := &rules[i]
		if r.Size != size {
			continue
		}
		if s, ok := r.Rewrite(c, w); ok {
			return r, s, true
		}
	}
	return nil, nil, false
}

func splice(steps []step.Step, i, n int, s step.Step) []step.Step {
	out := make([]step.Step, 0, len(steps)-n+1)
	out = append(out, steps[:i]...)
	out = append(out, s)
	return append(out, steps[i+n:]...)
}

func lowerSource(_ *Compiler, w []step.Step) (step.Step, bool) {
	s, ok := w[0].(step.Source)
	if !ok {
		return nil, false
	}
	return step.Filter{Kind: s.Kind, Attrs: graph.Attrs{}}, true
}

func lowerEdgeIn(c *Compiler, w []step.Step) (step.Step, bool) {
	s, ok := w[0].(step.EdgeIn)
	if !ok {
		return nil, false
	}
	return step.EdgeScanIn{Kind: c.EdgeKind, Attrs: s.Attrs.Copy()}, true
}

func lowerEdgeOut(c *Compiler, w []step.Step) (step.Step, bool) {
	s, ok := w[0].(step.EdgeOut)
	if !ok {
		return nil, false
	}
	return step.EdgeScanOut{Kind: c.EdgeKind, Attrs: s.Attrs.Copy()}, true
}

func lowerEdgeAll(c *Compiler, w []step.Step) (step.Step, bool) {
	s, ok := w[0].(step.EdgeAll)
	if !ok {
		return nil, false
	}
	return step.EdgeScanAll{Kind: c.EdgeKind, Attrs: s.Attrs.Copy()}, true
}

func fuseFilterGet(_ *Compiler, w []step.Step) (step.Step, bool) {
	f, ok := w[0].(step.Filter)
	if !ok {
		return nil, false
	}
	g, ok := w[1].(step.Get)
	if !ok {
		return nil, false
	}
	out := step.PointGet{
		Kind:   f.Kind,
		IDs:    uniqueIDs(g.IDs),
		Anchor: f.Anchor,
	}
	if len(f.Attrs) != 0 {
		out.Attrs = f.Attrs.Copy()
	}
	return out, true
}

// uniqueIDs drops repeated ids, keeping the first occurrence of each.
func uniqueIDs(ids []graph.ID) []graph.ID {
	seen := make(map[graph.ID]struct{}, len(ids))
	out := make([]graph.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func fuseFilterHas(_ *Compiler, w []step.Step) (step.Step, bool) {
	f, ok := w[0].(step.Filter)
	if !ok {
		return nil, false
	}
	h, ok := w[1].(step.Has)
	if !ok {
		return nil, false
	}
	return step.Filter{Kind: f.Kind, Attrs: f.Attrs.Merge(h.Attrs), Anchor: f.Anchor}, true
}

// nodeFilter matches a plain node filter that can be pushed into an edge endpoint index.
func nodeFilter(s step.Step) (step.Filter, bool) {
	f, ok := s.(step.Filter)
	if !ok || !f.Kind.IsNode() || f.Anchor != nil {
		return step.Filter{}, false
	}
	return f, true
}

func anchored(f step.Filter, dir graph.Endpoint, kind graph.Kind, attrs graph.Attrs) step.Filter {
	return step.Filter{
		Kind:   kind,
		Attrs:  graph.Attrs{}.Merge(attrs),
		Anchor: &step.Anchor{Dir: dir, Kind: f.Kind, Attrs: f.Attrs.Copy()},
	}
}

func fuseFilterEdgeIn(_ *Compiler, w []step.Step) (step.Step, bool) {
	f, ok := nodeFilter(w[0])
	if !ok {
		return nil, false
	}
	e, ok := w[1].(step.EdgeScanIn)
	if !ok {
		return nil, false
	}
	return anchored(f, graph.End, e.Kind, e.Attrs), true
}

func fuseFilterEdgeOut(_ *Compiler, w []step.Step) (step.Step, bool) {
	f, ok := nodeFilter(w[0])
	if !ok {
		return nil, false
	}
	e, ok := w[1].(step.EdgeScanOut)
	if !ok {
		return nil, false
	}
	return anchored(f, graph.Start, e.Kind, e.Attrs), true
}

func fuseFilterEdgeAll(_ *Compiler, w []step.Step) (step.Step, bool) {
	f, ok := nodeFilter(w[0])
	if !ok {
		return nil, false
	}
	e, ok := w[1].(step.EdgeScanAll)
	if !ok {
		return nil, false
	}
	return step.Union{Steps: []step.Physical{
		anchored(f, graph.End, e.Kind, e.Attrs),
		anchored(f, graph.Start, e.Kind, e.Attrs),
	}}, true
}
