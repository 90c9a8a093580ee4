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

package graph

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Attrs maps attribute names to JSON-like values.
//
// Values are compared in their normalized protobuf form, thus 1 and 1.0 are the same value.
// An Attrs value that was handed to a step or stored must not be mutated.
type Attrs map[string]interface{}

// Copy returns a shallow copy of attributes. Copy of a nil map is nil.
func (a Attrs) Copy() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new map with attributes of both maps. Values of b win on key collision.
func (a Attrs) Merge(b Attrs) Attrs {
	out := make(Attrs, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Keys returns sorted attribute names.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Match reports whether every attribute in filter is present in a with an equal value.
// An empty filter matches anything.
func (a Attrs) Match(filter Attrs) bool {
	for k, want := range filter {
		got, ok := a[k]
		if !ok || !ValueEqual(got, want) {
			return false
		}
	}
	return true
}

// Equal reports whether both maps have the same keys with equal values.
func (a Attrs) Equal(b Attrs) bool {
	return len(a) == len(b) && a.Match(b)
}

func (a Attrs) String() string {
	var sb strings.Builder
	for i, k := range a.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(FormatValue(a[k]))
	}
	return sb.String()
}

// FormatValue renders a value in the textual chain syntax.
func FormatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case ID:
		return strconv.Quote(string(v))
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return fmt.Sprint(v)
}

// NewValue converts a Go value to its normalized protobuf representation.
func NewValue(v interface{}) (*structpb.Value, error) {
	switch t := v.(type) {
	case ID:
		v = string(t)
	case Attrs:
		v = map[string]interface{}(t)
	}
	return structpb.NewValue(v)
}

// ValueEqual compares two attribute values after normalization.
// Values that cannot be normalized are compared structurally.
func ValueEqual(a, b interface{}) bool {
	va, err := NewValue(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	vb, err := NewValue(b)
	if err != nil {
		return false
	}
	return proto.Equal(va, vb)
}

var keyMarshal = proto.MarshalOptions{Deterministic: true}

// ValueKey returns a canonical binary encoding of a value, suitable for index keys.
// Equal values always produce equal keys.
func ValueKey(v interface{}) ([]byte, error) {
	pv, err := NewValue(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported attribute value %#v: %w", v, err)
	}
	return keyMarshal.Marshal(pv)
}

// Validate checks that all values can be stored.
func (a Attrs) Validate() error {
	for k, v := range a {
		if k == "" {
			return fmt.Errorf("%w: empty attribute name", ErrInvalidEntity)
		}
		if _, err := NewValue(v); err != nil {
			return fmt.Errorf("%w: attribute %q: %v", ErrInvalidEntity, k, err)
		}
	}
	return nil
}
