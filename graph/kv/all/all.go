// Package all registers all KV store backends.
package all

import (
	_ "github.com/ldtoolkit/legdb/graph/kv/badger"
	_ "github.com/ldtoolkit/legdb/graph/kv/bolt"
	_ "github.com/ldtoolkit/legdb/graph/kv/leveldb"
	_ "github.com/ldtoolkit/legdb/graph/kv/sqlkv"
)
