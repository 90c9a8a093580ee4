// Package graphmock provides in-memory stand-ins for stores and cursors, for use in tests.
package graphmock

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ldtoolkit/legdb/graph"
)

var (
	_ graph.Store    = &Store{}
	_ graph.Snapshot = &Store{}
	_ graph.Cursor   = &Cursor{}
)

// Calls counts snapshot accesses.
type Calls struct {
	Scan     int
	Get      int
	Adjacent int
}

// Store is a mocked entity store that keeps entities in insertion order.
// It is its own snapshot; reads see writes made after the snapshot was taken.
type Store struct {
	mu    sync.Mutex
	Data  []graph.Entity
	Calls Calls
}

// New creates a mock store with given entities.
func New(ents ...graph.Entity) *Store {
	return &Store{Data: append([]graph.Entity(nil), ents...)}
}

func (s *Store) Type() string { return "mockstore" }

func (s *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) { return s, nil }

func (s *Store) Close() error { return nil }

func (s *Store) Put(ctx context.Context, ents ...graph.Entity) ([]graph.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]graph.ID, 0, len(ents))
	for _, e := range ents {
		if e.ID == "" {
			e.ID = graph.ID(uuid.NewString())
		}
		if err := e.Validate(); err != nil {
			return ids, err
		}
		replaced := false
		for i, cur := range s.Data {
			if cur.Kind == e.Kind && cur.ID == e.ID {
				s.Data[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			s.Data = append(s.Data, e)
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, kind graph.Kind, ids ...graph.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	del := make(map[graph.ID]bool, len(ids))
	for _, id := range ids {
		del[id] = true
	}
	out := s.Data[:0]
	for _, e := range s.Data {
		if e.Kind == kind && del[e.ID] {
			continue
		}
		out = append(out, e)
	}
	s.Data = out
	return nil
}

func (s *Store) EnsureIndex(ctx context.Context, kind graph.Kind, attr string) error { return nil }

func (s *Store) snapshot() []graph.Entity {
	return append([]graph.Entity(nil), s.Data...)
}

func (s *Store) Scan(ctx context.Context, kind graph.Kind, attrs graph.Attrs) graph.Iterator {
	s.mu.Lock()
	s.Calls.Scan++
	data := s.snapshot()
	s.mu.Unlock()
	var out []graph.Entity
	for _, e := range data {
		if e.Kind == kind && e.Attrs.Match(attrs) {
			out = append(out, e)
		}
	}
	return graph.NewSlice(out)
}

func (s *Store) Get(ctx context.Context, kind graph.Kind, ids []graph.ID) graph.Iterator {
	s.mu.Lock()
	s.Calls.Get++
	data := s.snapshot()
	s.mu.Unlock()
	var out []graph.Entity
	for _, id := range ids {
		for _, e := range data {
			if e.Kind == kind && e.ID == id {
				out = append(out, e)
				break
			}
		}
	}
	return graph.NewSlice(out)
}

func (s *Store) Adjacent(ctx context.Context, kind graph.Kind, dir graph.Endpoint, nodes []graph.ID, attrs graph.Attrs) graph.Iterator {
	s.mu.Lock()
	s.Calls.Adjacent++
	data := s.snapshot()
	s.mu.Unlock()
	var out []graph.Entity
	for _, id := range nodes {
		for _, e := range data {
			if e.Kind == kind && e.Endpoint(dir) == id && e.Attrs.Match(attrs) {
				out = append(out, e)
			}
		}
	}
	return graph.NewSlice(out)
}

func (s *Store) Kinds(ctx context.Context) ([]graph.Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[graph.Kind]bool)
	var out []graph.Kind
	for _, e := range s.Data {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			out = append(out, e.Kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Cursor is a scripted cursor that records every call made to it.
//
// Pages returns the result set for a binding. Before the first Bind the binding is nil.
type Cursor struct {
	Pages func(in []graph.Entity) [][]graph.Entity
	// Err, if set, is returned by NextPage once FailAfter pages were served.
	Err       error
	FailAfter int

	Resets    int
	Binds     int
	NextPages int
	Closed    bool
	Bound     [][]graph.Entity

	in     []graph.Entity
	pages  [][]graph.Entity
	pos    int
	served int
	ready  bool
}

// Static returns a cursor that yields the same pages for any binding.
func Static(pages ...[]graph.Entity) *Cursor {
	return &Cursor{Pages: func([]graph.Entity) [][]graph.Entity { return pages }}
}

func (c *Cursor) Reset(ctx context.Context) error {
	c.Resets++
	c.ready = false
	return nil
}

func (c *Cursor) Bind(ctx context.Context, in []graph.Entity) error {
	c.Binds++
	c.Bound = append(c.Bound, in)
	c.in = in
	c.ready = false
	return nil
}

func (c *Cursor) NextPage(ctx context.Context) ([]graph.Entity, error) {
	c.NextPages++
	if c.Err != nil && c.served >= c.FailAfter {
		return nil, c.Err
	}
	if !c.ready {
		c.pages = nil
		if c.Pages != nil {
			for _, p := range c.Pages(c.in) {
				if len(p) != 0 {
					c.pages = append(c.pages, p)
				}
			}
		}
		c.pos = 0
		c.ready = true
	}
	if c.pos >= len(c.pages) {
		return nil, nil
	}
	p := c.pages[c.pos]
	c.pos++
	c.served++
	return p, nil
}

func (c *Cursor) Close() error {
	c.Closed = true
	return nil
}
