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

package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/ldtoolkit/legdb/graph"
)

var (
	// ErrParse is returned for malformed chain text.
	ErrParse = errors.New("query: parse error")
	// ErrParseMore is returned when chain text ends in the middle of a step.
	ErrParseMore = errors.New("query: more input required")
)

// Parse reads a chain in its textual form, as printed by Chain.String:
//
//	node.has(type="person").edge_out(rel="knows")
//	source("person").get("a", "b")
//
// The leading name is a kind: the configured edge kind name selects the edge kind,
// any other name selects a node kind of that name.
func Parse(text string, opts Options) (*Chain, error) {
	c := New(opts)
	p := newParser(text)
	if p.tok == scanner.EOF {
		return nil, p.more()
	}
	if p.tok != scanner.Ident {
		return nil, p.errorf("expected a kind name, got %s", scanner.TokenString(p.tok))
	}
	name := p.text()
	p.next()
	if name == "source" && p.tok == '(' {
		p.next()
		var err error
		if name, err = p.name(); err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
	}
	c = c.Source(c.opts.KindByName(name))
	for p.tok == '.' {
		p.next()
		if p.tok == scanner.EOF {
			return nil, p.more()
		}
		if p.tok != scanner.Ident {
			return nil, p.errorf("expected a step name, got %s", scanner.TokenString(p.tok))
		}
		op := p.text()
		p.next()
		if err := p.expect('('); err != nil {
			return nil, err
		}
		switch op {
		case "source":
			name, err := p.name()
			if err != nil {
				return nil, err
			}
			c = c.Source(c.opts.KindByName(name))
		case "get":
			ids, err := p.ids()
			if err != nil {
				return nil, err
			}
			c = c.Get(ids...)
		case "has", "edge_in", "edge_out", "edge_all":
			attrs, err := p.attrs()
			if err != nil {
				return nil, err
			}
			switch op {
			case "has":
				c = c.Has(attrs)
			case "edge_in":
				c = c.EdgeIn(attrs)
			case "edge_out":
				c = c.EdgeOut(attrs)
			case "edge_all":
				c = c.EdgeAll(attrs)
			}
		default:
			return nil, p.errorf("unknown step %q", op)
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if p.err != nil {
			return nil, p.err
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.tok != scanner.EOF {
		return nil, p.errorf("unexpected %s", scanner.TokenString(p.tok))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// KindByName resolves a kind name the way chain text does: the configured edge kind
// name selects the edge kind, any other name a node kind.
func (o Options) KindByName(name string) graph.Kind {
	switch name {
	case o.EdgeKind.Name:
		return o.EdgeKind
	case o.NodeKind.Name:
		return o.NodeKind
	}
	return graph.NewNodeKind(name)
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func newParser(text string) *parser {
	p := &parser{}
	p.s.Init(strings.NewReader(text))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err != nil {
			return
		}
		if strings.Contains(msg, "not terminated") {
			p.err = fmt.Errorf("%w: %s: %s", ErrParseMore, s.Position, msg)
			return
		}
		p.err = fmt.Errorf("%w: %s: %s", ErrParse, s.Position, msg)
	}
	p.next()
	return p
}

func (p *parser) next()        { p.tok = p.s.Scan() }
func (p *parser) text() string { return p.s.TokenText() }

func (p *parser) errorf(format string, args ...interface{}) error {
	if p.err != nil {
		return p.err
	}
	return fmt.Errorf("%w: %s: %s", ErrParse, p.s.Position, fmt.Sprintf(format, args...))
}

func (p *parser) more() error {
	if p.err != nil {
		return p.err
	}
	return ErrParseMore
}

func (p *parser) expect(r rune) error {
	if p.tok == scanner.EOF {
		return p.more()
	}
	if p.tok != r {
		return p.errorf("expected %s, got %s", scanner.TokenString(r), scanner.TokenString(p.tok))
	}
	p.next()
	return nil
}

// name reads an identifier or a quoted string.
func (p *parser) name() (string, error) {
	switch p.tok {
	case scanner.Ident:
		s := p.text()
		p.next()
		return s, nil
	case scanner.String, scanner.RawString:
		s, err := strconv.Unquote(p.text())
		if err != nil {
			return "", p.errorf("%v", err)
		}
		p.next()
		return s, nil
	case scanner.EOF:
		return "", p.more()
	}
	return "", p.errorf("expected a name, got %s", scanner.TokenString(p.tok))
}

func (p *parser) value() (interface{}, error) {
	neg := false
	if p.tok == '-' {
		neg = true
		p.next()
	}
	text := p.text()
	switch p.tok {
	case scanner.Int:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.next()
		if neg {
			v = -v
		}
		return v, nil
	case scanner.Float:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.next()
		if neg {
			v = -v
		}
		return v, nil
	case scanner.EOF:
		return nil, p.more()
	}
	if neg {
		return nil, p.errorf("expected a number, got %s", scanner.TokenString(p.tok))
	}
	switch p.tok {
	case scanner.String, scanner.RawString:
		return p.name()
	case scanner.Ident:
		var v interface{}
		switch text {
		case "true":
			v = true
		case "false":
			v = false
		case "null":
			v = nil
		default:
			return nil, p.errorf("unexpected identifier %q", text)
		}
		p.next()
		return v, nil
	}
	return nil, p.errorf("expected a value, got %s", scanner.TokenString(p.tok))
}

func (p *parser) ids() ([]graph.ID, error) {
	var ids []graph.ID
	for p.tok != ')' {
		if len(ids) != 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, p.errorf("null is not an id")
		}
		ids = append(ids, graph.ID(fmt.Sprint(v)))
	}
	return ids, nil
}

func (p *parser) attrs() (graph.Attrs, error) {
	attrs := graph.Attrs{}
	for p.tok != ')' {
		if len(attrs) != 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		k, err := p.name()
		if err != nil {
			return nil, err
		}
		if err := p.expect('='); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		attrs[k] = v
	}
	return attrs, nil
}
