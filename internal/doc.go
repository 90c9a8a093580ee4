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

package internal

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/query"
)

// Document is a graph serialized as YAML or JSON:
//
//	nodes:
//	  - {id: a, attrs: {type: person}}
//	edges:
//	  - {id: e1, start: a, end: b, attrs: {rel: knows}}
//	indexes:
//	  - {kind: node, attr: type}
//
// An empty kind means the configured node or edge kind.
type Document struct {
	Nodes   []Node  `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Edges   []Edge  `yaml:"edges,omitempty" json:"edges,omitempty"`
	Indexes []Index `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

type Node struct {
	ID    graph.ID    `yaml:"id,omitempty" json:"id,omitempty"`
	Kind  string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Attrs graph.Attrs `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

type Edge struct {
	ID    graph.ID    `yaml:"id,omitempty" json:"id,omitempty"`
	Kind  string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Start graph.ID    `yaml:"start" json:"start"`
	End   graph.ID    `yaml:"end" json:"end"`
	Attrs graph.Attrs `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// Index requests an attribute index. Class is "node" (default) or "edge".
type Index struct {
	Kind  string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Class string `yaml:"class,omitempty" json:"class,omitempty"`
	Attr  string `yaml:"attr" json:"attr"`
}

// Record converts an entity to its document form.
func Record(e graph.Entity) interface{} {
	if e.IsEdge() {
		return Edge{ID: e.ID, Kind: e.Kind.Name, Start: e.Start, End: e.End, Attrs: e.Attrs}
	}
	return Node{ID: e.ID, Kind: e.Kind.Name, Attrs: e.Attrs}
}

// Add appends an entity to the document.
func (d *Document) Add(e graph.Entity) {
	switch r := Record(e).(type) {
	case Node:
		d.Nodes = append(d.Nodes, r)
	case Edge:
		d.Edges = append(d.Edges, r)
	}
}

func kindOf(name string, def graph.Kind) graph.Kind {
	if name == "" {
		return def
	}
	return graph.Kind{Name: name, Class: def.Class}
}

// Entities returns all nodes and edges of the document, nodes first.
func (d *Document) Entities(opts query.Options) ([]graph.Entity, error) {
	opts = withKinds(opts)
	out := make([]graph.Entity, 0, len(d.Nodes)+len(d.Edges))
	for _, n := range d.Nodes {
		out = append(out, graph.NewNode(kindOf(n.Kind, opts.NodeKind), n.ID, n.Attrs))
	}
	for _, e := range d.Edges {
		out = append(out, graph.NewEdge(kindOf(e.Kind, opts.EdgeKind), e.ID, e.Start, e.End, e.Attrs))
	}
	for i, e := range out {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return out, nil
}

func (ind Index) kind(opts query.Options) (graph.Kind, error) {
	switch ind.Class {
	case "", graph.NodeClass.String():
		return kindOf(ind.Kind, opts.NodeKind), nil
	case graph.EdgeClass.String():
		return kindOf(ind.Kind, opts.EdgeKind), nil
	}
	return graph.Kind{}, fmt.Errorf("unknown entity class %q", ind.Class)
}

func withKinds(opts query.Options) query.Options {
	def := query.DefaultOptions()
	if opts.NodeKind.Name == "" {
		opts.NodeKind = def.NodeKind
	}
	if opts.EdgeKind.Name == "" {
		opts.EdgeKind = def.EdgeKind
	}
	return opts
}

// ReadDocument decodes a YAML or JSON graph document.
func ReadDocument(r io.Reader) (*Document, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err == io.EOF {
		return &d, nil
	} else if err != nil {
		return nil, fmt.Errorf("cannot decode graph document: %w", err)
	}
	return &d, nil
}

// WriteDocument creates the indexes of the document and puts its entities into w
// in batches. It returns the number of written entities.
func WriteDocument(ctx context.Context, w graph.Writer, d *Document, opts query.Options, batch int) (int, error) {
	opts = withKinds(opts)
	ents, err := d.Entities(opts)
	if err != nil {
		return 0, err
	}
	for _, ind := range d.Indexes {
		k, err := ind.kind(opts)
		if err != nil {
			return 0, err
		}
		if err = w.EnsureIndex(ctx, k, ind.Attr); err != nil {
			return 0, err
		}
	}
	if batch <= 0 {
		batch = len(ents)
	}
	n := 0
	for len(ents) > 0 {
		b := batch
		if b > len(ents) {
			b = len(ents)
		}
		if _, err := w.Put(ctx, ents[:b]...); err != nil {
			return n, err
		}
		n += b
		ents = ents[b:]
		if clog.V(2) {
			clog.Infof("wrote %d entities", n)
		}
	}
	return n, nil
}
