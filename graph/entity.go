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

// Package graph defines the entity model of legdb and the narrow interfaces through which
// the query core talks to a store: snapshots, entity iterators and page cursors.
package graph

import "fmt"

// Class is the abstract classification of an entity kind.
type Class uint8

const (
	NodeClass Class = iota + 1
	EdgeClass
)

func (c Class) String() string {
	switch c {
	case NodeClass:
		return "node"
	case EdgeClass:
		return "edge"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Kind names a collection of entities of one class, similar to a table.
type Kind struct {
	Name  string
	Class Class
}

var (
	// NodeKind is the node collection used when none is configured.
	NodeKind = Kind{Name: "node", Class: NodeClass}
	// EdgeKind is the edge collection used when none is configured.
	EdgeKind = Kind{Name: "edge", Class: EdgeClass}
)

// NewNodeKind returns a node kind with the given collection name.
func NewNodeKind(name string) Kind { return Kind{Name: name, Class: NodeClass} }

// NewEdgeKind returns an edge kind with the given collection name.
func NewEdgeKind(name string) Kind { return Kind{Name: name, Class: EdgeClass} }

func (k Kind) IsNode() bool { return k.Class == NodeClass }
func (k Kind) IsEdge() bool { return k.Class == EdgeClass }
func (k Kind) String() string {
	return k.Name
}

// ID identifies an entity within its kind.
type ID string

// Endpoint selects one end of a directed edge.
type Endpoint uint8

const (
	// Start is the node an edge leaves. Out edges are scanned by it.
	Start Endpoint = iota + 1
	// End is the node an edge points to. In edges are scanned by it.
	End
)

func (d Endpoint) String() string {
	switch d {
	case Start:
		return "start"
	case End:
		return "end"
	}
	return fmt.Sprintf("endpoint(%d)", uint8(d))
}

// Opposite returns the other end of an edge.
func (d Endpoint) Opposite() Endpoint {
	switch d {
	case Start:
		return End
	case End:
		return Start
	}
	return d
}

// Entity is a node or an edge. Start and End are only set for edges.
type Entity struct {
	ID    ID
	Kind  Kind
	Attrs Attrs
	Start ID
	End   ID
}

// NewNode creates a node entity.
func NewNode(kind Kind, id ID, attrs Attrs) Entity {
	return Entity{ID: id, Kind: kind, Attrs: attrs}
}

// NewEdge creates an edge entity going from start to end.
func NewEdge(kind Kind, id ID, start, end ID, attrs Attrs) Entity {
	return Entity{ID: id, Kind: kind, Attrs: attrs, Start: start, End: end}
}

func (e Entity) IsNode() bool { return e.Kind.IsNode() }
func (e Entity) IsEdge() bool { return e.Kind.IsEdge() }

// Endpoint returns the node id on the given end of an edge.
// It returns an empty id for nodes.
func (e Entity) Endpoint(d Endpoint) ID {
	if !e.IsEdge() {
		return ""
	}
	switch d {
	case Start:
		return e.Start
	case End:
		return e.End
	}
	return ""
}

// Validate checks that an entity is well-formed enough to be stored.
func (e Entity) Validate() error {
	switch e.Kind.Class {
	case NodeClass:
		if e.Start != "" || e.End != "" {
			return fmt.Errorf("%w: node %q has endpoints", ErrInvalidEntity, e.ID)
		}
	case EdgeClass:
		if e.Start == "" || e.End == "" {
			return fmt.Errorf("%w: edge %q must have both endpoints", ErrInvalidEntity, e.ID)
		}
	default:
		return fmt.Errorf("%w: unknown class of kind %q", ErrInvalidEntity, e.Kind.Name)
	}
	if e.Kind.Name == "" {
		return fmt.Errorf("%w: empty kind name", ErrInvalidEntity)
	}
	return e.Attrs.Validate()
}

func (e Entity) String() string {
	if e.IsEdge() {
		return fmt.Sprintf("%s(%s: %s->%s %s)", e.Kind.Name, e.ID, e.Start, e.End, e.Attrs)
	}
	return fmt.Sprintf("%s(%s %s)", e.Kind.Name, e.ID, e.Attrs)
}

// IDs returns identifiers of entities in order.
func IDs(ents []Entity) []ID {
	out := make([]ID, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.ID)
	}
	return out
}
