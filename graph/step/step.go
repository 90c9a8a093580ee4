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

// Package step defines the steps a query chain is made of.
//
// Logical steps express traversal intent as authored by a query builder. Physical steps
// express store-level access; they are produced by the compiler and know how to open a page
// cursor over a snapshot. Both sets are closed: only the types of this package implement Step.
package step

import (
	"strings"

	"github.com/ldtoolkit/legdb/graph"
)

// Step is either a logical or a physical step. Steps are immutable once constructed.
type Step interface {
	String() string
	isStep()
}

// Executable is a step that can be evaluated against a snapshot.
type Executable interface {
	Step
	// Iterate opens a fresh cursor over the snapshot. Cursors are never shared
	// between evaluations.
	Iterate(snap graph.Snapshot, pageSize int) graph.Cursor
}

// Physical is a store-facing step produced by compilation.
type Physical interface {
	Executable
	isPhysical()
}

// Logical steps.

// Source declares the root collection to scan. It must be the first step of a chain.
type Source struct {
	Kind graph.Kind
}

// Get restricts the current set to entities with the given identifiers.
type Get struct {
	IDs []graph.ID
}

// Has restricts the current set to entities matching all attributes.
type Has struct {
	Attrs graph.Attrs
}

// EdgeIn follows incoming edges of the current node set.
type EdgeIn struct {
	Attrs graph.Attrs
}

// EdgeOut follows outgoing edges of the current node set.
type EdgeOut struct {
	Attrs graph.Attrs
}

// EdgeAll follows edges of the current node set in both directions.
type EdgeAll struct {
	Attrs graph.Attrs
}

func (Source) isStep()  {}
func (Get) isStep()     {}
func (Has) isStep()     {}
func (EdgeIn) isStep()  {}
func (EdgeOut) isStep() {}
func (EdgeAll) isStep() {}

func (s Source) String() string  { return s.Kind.Name }
func (s Get) String() string     { return "get(" + formatIDs(s.IDs) + ")" }
func (s Has) String() string     { return "has(" + s.Attrs.String() + ")" }
func (s EdgeIn) String() string  { return "edge_in(" + s.Attrs.String() + ")" }
func (s EdgeOut) String() string { return "edge_out(" + s.Attrs.String() + ")" }
func (s EdgeAll) String() string { return "edge_all(" + s.Attrs.String() + ")" }

// Physical steps.

// Anchor restricts edges to those whose Dir endpoint is a node of Kind matching Attrs.
//
// It is kept apart from the edge attribute filter, so a user attribute named "start" or "end"
// never collides with an endpoint constraint.
type Anchor struct {
	Dir   graph.Endpoint
	Kind  graph.Kind
	Attrs graph.Attrs
}

func (a Anchor) String() string {
	return a.Dir.String() + "=" + a.Kind.Name + "{" + a.Attrs.String() + "}"
}

// Filter scans the attribute index of a kind for entries matching Attrs.
// For edge kinds an optional Anchor pushes a node filter down to the adjacency index.
type Filter struct {
	Kind   graph.Kind
	Attrs  graph.Attrs
	Anchor *Anchor
}

// PointGet looks up exact identifiers. Attrs and Anchor, when set, are checked on
// every entity found.
type PointGet struct {
	Kind   graph.Kind
	IDs    []graph.ID
	Attrs  graph.Attrs
	Anchor *Anchor
}

// EdgeScanIn scans edges whose end node is bound from upstream.
type EdgeScanIn struct {
	Kind  graph.Kind
	Attrs graph.Attrs
}

// EdgeScanOut scans edges whose start node is bound from upstream.
type EdgeScanOut struct {
	Kind  graph.Kind
	Attrs graph.Attrs
}

// EdgeScanAll scans edges whose end or start node is bound from upstream.
type EdgeScanAll struct {
	Kind  graph.Kind
	Attrs graph.Attrs
}

// Union concatenates outputs of sub-steps for the same binding. It does not deduplicate.
type Union struct {
	Steps []Physical
}

func (Filter) isStep()      {}
func (PointGet) isStep()    {}
func (EdgeScanIn) isStep()  {}
func (EdgeScanOut) isStep() {}
func (EdgeScanAll) isStep() {}
func (Union) isStep()       {}

func (Filter) isPhysical()      {}
func (PointGet) isPhysical()    {}
func (EdgeScanIn) isPhysical()  {}
func (EdgeScanOut) isPhysical() {}
func (EdgeScanAll) isPhysical() {}
func (Union) isPhysical()       {}

func (s Filter) String() string {
	args := []string{s.Kind.Name}
	if s.Anchor != nil {
		args = append(args, s.Anchor.String())
	}
	if len(s.Attrs) != 0 {
		args = append(args, s.Attrs.String())
	}
	return "filter(" + strings.Join(args, ", ") + ")"
}

func (s PointGet) String() string {
	args := []string{s.Kind.Name}
	if len(s.IDs) != 0 {
		args = append(args, formatIDs(s.IDs))
	}
	if s.Anchor != nil {
		args = append(args, s.Anchor.String())
	}
	if len(s.Attrs) != 0 {
		args = append(args, s.Attrs.String())
	}
	return "point_get(" + strings.Join(args, ", ") + ")"
}

func (s EdgeScanIn) String() string  { return edgeScanString("edge_scan_in", s.Kind, s.Attrs) }
func (s EdgeScanOut) String() string { return edgeScanString("edge_scan_out", s.Kind, s.Attrs) }
func (s EdgeScanAll) String() string { return edgeScanString("edge_scan_all", s.Kind, s.Attrs) }

func (s Union) String() string {
	parts := make([]string, 0, len(s.Steps))
	for _, sub := range s.Steps {
		parts = append(parts, sub.String())
	}
	return "union(" + strings.Join(parts, ", ") + ")"
}

func edgeScanString(name string, kind graph.Kind, attrs graph.Attrs) string {
	if len(attrs) == 0 {
		return name + "(" + kind.Name + ")"
	}
	return name + "(" + kind.Name + ", " + attrs.String() + ")"
}

func formatIDs(ids []graph.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, graph.FormatValue(id))
	}
	return strings.Join(parts, ", ")
}

// Format renders a sequence of steps joined by dots.
func Format(steps []Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ".")
}

// IsLogical reports whether a step was authored by a builder and not produced by compilation.
func IsLogical(s Step) bool {
	_, ok := s.(Physical)
	return !ok
}
