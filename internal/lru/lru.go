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

// Package lru implements a fixed-size cache with least-recently-used eviction.
package lru

import (
	"container/list"
	"sync"
)

// Cache implements an LRU cache. It is safe for concurrent use.
// A cache with a non-positive size stores nothing.
type Cache struct {
	mu       sync.Mutex
	cache    map[string]*list.Element
	priority *list.List
	maxSize  int
}

type entry struct {
	key   string
	value interface{}
}

func New(size int) *Cache {
	return &Cache{
		maxSize:  size,
		priority: list.New(),
		cache:    make(map[string]*list.Element),
	}
}

// Put adds a value to the cache, replacing the previous value for the key.
func (lru *Cache) Put(key string, value interface{}) {
	if lru.maxSize <= 0 {
		return
	}
	lru.mu.Lock()
	defer lru.mu.Unlock()
	if el, ok := lru.cache[key]; ok {
		el.Value = entry{key: key, value: value}
		lru.priority.MoveToFront(el)
		return
	}
	if len(lru.cache) >= lru.maxSize {
		last := lru.priority.Remove(lru.priority.Back())
		delete(lru.cache, last.(entry).key)
	}
	lru.cache[key] = lru.priority.PushFront(entry{key: key, value: value})
}

func (lru *Cache) Del(key string) {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	e := lru.cache[key]
	if e == nil {
		return
	}
	delete(lru.cache, key)
	lru.priority.Remove(e)
}

func (lru *Cache) Get(key string) (interface{}, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	if element, ok := lru.cache[key]; ok {
		lru.priority.MoveToFront(element)
		return element.Value.(entry).value, true
	}
	return nil, false
}

// Len returns the number of cached values.
func (lru *Cache) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return len(lru.cache)
}

// Purge drops all values.
func (lru *Cache) Purge() {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	lru.cache = make(map[string]*list.Element)
	lru.priority.Init()
}
