package graphtest

import (
	"github.com/ldtoolkit/legdb/graph"
)

var (
	nk = graph.NodeKind
	ek = graph.EdgeKind
)

// Letters returns a complete directed graph over 26 nodes, one per lowercase letter.
//
// Node "c" has attributes c, ord_c_mod_2, ord_c_mod_3 and ord_c_mod_4, computed from the
// character code. Edge "a-b" goes from node "a" to node "b" with weight w equal to the
// difference of character codes of its end and start. Self loops are included.
func Letters() []graph.Entity {
	var ents []graph.Entity
	for c := 'a'; c <= 'z'; c++ {
		ents = append(ents, graph.NewNode(nk, graph.ID(string(c)), graph.Attrs{
			"c":           string(c),
			"ord_c_mod_2": int(c) % 2,
			"ord_c_mod_3": int(c) % 3,
			"ord_c_mod_4": int(c) % 4,
		}))
	}
	for s := 'a'; s <= 'z'; s++ {
		for e := 'a'; e <= 'z'; e++ {
			ents = append(ents, graph.NewEdge(ek, LetterEdge(s, e), graph.ID(string(s)), graph.ID(string(e)), graph.Attrs{
				"w": float64(e - s),
			}))
		}
	}
	return ents
}

// LetterEdge returns the id of an edge of the Letters graph.
func LetterEdge(start, end rune) graph.ID {
	return graph.ID(string(start) + "-" + string(end))
}

// People returns a small social graph: two persons who know each other one way,
// and a city both of them live in.
func People() []graph.Entity {
	return []graph.Entity{
		graph.NewNode(nk, "n1", graph.Attrs{"type": "person", "name": "ann"}),
		graph.NewNode(nk, "n2", graph.Attrs{"type": "person", "name": "bob"}),
		graph.NewNode(nk, "n3", graph.Attrs{"type": "city", "name": "oslo"}),
		graph.NewEdge(ek, "e1", "n1", "n2", graph.Attrs{"rel": "knows"}),
		graph.NewEdge(ek, "e2", "n1", "n3", graph.Attrs{"rel": "lives_in"}),
		graph.NewEdge(ek, "e3", "n2", "n3", graph.Attrs{"rel": "lives_in", "since": 2019}),
	}
}

// Endpoints returns a graph where user attributes are named like edge endpoints.
func Endpoints() []graph.Entity {
	return []graph.Entity{
		graph.NewNode(nk, "a", graph.Attrs{"start": "yes", "end": "no"}),
		graph.NewNode(nk, "b", graph.Attrs{"start": "no", "end": "yes"}),
		graph.NewEdge(ek, "ab", "a", "b", graph.Attrs{"start": "a", "end": "b"}),
		graph.NewEdge(ek, "ba", "b", "a", graph.Attrs{"start": "b", "end": "a"}),
	}
}
