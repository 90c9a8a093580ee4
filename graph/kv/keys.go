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

package kv

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ldtoolkit/legdb/graph"
)

var (
	metaBucket  = []byte("meta")
	kindsBucket = []byte("kinds")

	keyVersion  = []byte("version")
	keyIndexAll = []byte("index_all")
)

const (
	entityPrefix  = "e"
	indexPrefix   = "i"
	adjPrefix     = "a"
	indexesPrefix = "x"
)

// bucketName builds a bucket name from a type prefix and hex-encoded parts,
// thus names never contain a separator of the flat keyspace.
func bucketName(typ string, parts ...string) []byte {
	n := len(typ)
	for _, p := range parts {
		n += 1 + 2*len(p)
	}
	b := make([]byte, 0, n)
	b = append(b, typ...)
	for _, p := range parts {
		b = append(b, ':')
		b = append(b, hex.EncodeToString([]byte(p))...)
	}
	return b
}

func classPart(c graph.Class) string {
	return string(rune('0' + c))
}

func entityBucket(k graph.Kind) []byte {
	return bucketName(entityPrefix, classPart(k.Class), k.Name)
}

func indexBucket(k graph.Kind, attr string) []byte {
	return bucketName(indexPrefix, classPart(k.Class), k.Name, attr)
}

func indexesBucket(k graph.Kind) []byte {
	return bucketName(indexesPrefix, classPart(k.Class), k.Name)
}

func adjBucket(k graph.Kind, dir graph.Endpoint) []byte {
	return bucketName(adjPrefix, k.Name, dir.String())
}

func kindKey(k graph.Kind) []byte {
	b := make([]byte, 0, len(k.Name)+1)
	b = append(b, byte(k.Class))
	return append(b, k.Name...)
}

func parseKindKey(b []byte) (graph.Kind, error) {
	if len(b) < 2 {
		return graph.Kind{}, fmt.Errorf("kv: invalid kind key: %x", b)
	}
	k := graph.Kind{Class: graph.Class(b[0]), Name: string(b[1:])}
	if !k.IsNode() && !k.IsEdge() {
		return graph.Kind{}, fmt.Errorf("kv: invalid kind class: %d", b[0])
	}
	return k, nil
}

// prefixKey returns a length-prefixed copy of p, so that a key made of it followed by an id
// never collides with keys of other prefixes.
func prefixKey(p []byte) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(p)))
	out := make([]byte, 0, n+len(p))
	out = append(out, buf[:n]...)
	return append(out, p...)
}

func prefixedID(pref []byte, id graph.ID) []byte {
	out := make([]byte, 0, len(pref)+len(id))
	out = append(out, pref...)
	return append(out, id...)
}

// indexPrefixKey is the key prefix of all entities with a given attribute value.
func indexPrefixKey(v interface{}) ([]byte, error) {
	vk, err := graph.ValueKey(v)
	if err != nil {
		return nil, err
	}
	return prefixKey(vk), nil
}

// adjPrefixKey is the key prefix of all edges attached to a given node.
func adjPrefixKey(node graph.ID) []byte {
	return prefixKey([]byte(node))
}

var docMarshal = proto.MarshalOptions{Deterministic: true}

const (
	docAttrs = "attrs"
	docStart = "start"
	docEnd   = "end"
)

// encodeEntity serializes attributes and endpoints of an entity.
// Kind and id are part of the key and are not stored.
func encodeEntity(e graph.Entity) ([]byte, error) {
	fields := make(map[string]*structpb.Value, 3)
	attrs := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(e.Attrs))}
	for k, v := range e.Attrs {
		pv, err := graph.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", graph.ErrInvalidEntity, k, err)
		}
		attrs.Fields[k] = pv
	}
	fields[docAttrs] = structpb.NewStructValue(attrs)
	if e.IsEdge() {
		fields[docStart] = structpb.NewStringValue(string(e.Start))
		fields[docEnd] = structpb.NewStringValue(string(e.End))
	}
	return docMarshal.Marshal(&structpb.Struct{Fields: fields})
}

func decodeEntity(kind graph.Kind, id graph.ID, data []byte) (graph.Entity, error) {
	var doc structpb.Struct
	if err := proto.Unmarshal(data, &doc); err != nil {
		return graph.Entity{}, fmt.Errorf("kv: cannot decode %s %q: %w", kind, id, err)
	}
	e := graph.Entity{ID: id, Kind: kind}
	if a := doc.Fields[docAttrs].GetStructValue(); a != nil && len(a.Fields) != 0 {
		e.Attrs = graph.Attrs(a.AsMap())
	}
	if kind.IsEdge() {
		e.Start = graph.ID(doc.Fields[docStart].GetStringValue())
		e.End = graph.ID(doc.Fields[docEnd].GetStringValue())
	}
	return e, nil
}

func encodeInt(v int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

func asInt64(b []byte, empty int64) (int64, error) {
	if len(b) == 0 {
		return empty, nil
	} else if len(b) != 8 {
		return 0, fmt.Errorf("unexpected int size: %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// IndexBucket returns the name of the bucket with the index of an attribute.
func IndexBucket(k graph.Kind, attr string) []byte {
	return indexBucket(k, attr)
}
