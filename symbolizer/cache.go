// seehuhn.de/go/portray - rendering of styled geospatial data
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package symbolizer compiles style symbolizers into reusable runtime
// descriptors.
//
// Compilation happens at most once per symbolizer instance.  The compiled
// descriptor records the capability used to find a renderer, and computes
// margins and visibility for individual candidates.
package symbolizer

import (
	"errors"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/portray/style"
)

var (
	// ErrCompile is returned for symbolizers which cannot be compiled.
	// The failure is remembered, so later lookups fail without retrying.
	ErrCompile = errors.New("symbolizer compilation failed")

	// ErrUnusable is returned by Cached.Evaluate when a compiled symbolizer
	// cannot be realised.
	ErrUnusable = errors.New("symbolizer is unusable")
)

// Cache maps symbolizer instances to their compiled form.  It is safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[style.Symbolizer]*entry

	compilations atomic.Int64
}

type entry struct {
	once sync.Once
	c    *Cached
	err  error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[style.Symbolizer]*entry)}
}

// Get returns the compiled form of sym.  Repeated calls with the same
// symbolizer return the same *Cached, even when called concurrently.
// The owner names the rule sym belongs to; it is only used in messages.
func (k *Cache) Get(sym style.Symbolizer, owner string) (*Cached, error) {
	if sym == nil {
		return nil, ErrCompile
	}

	k.mu.Lock()
	e := k.entries[sym]
	if e == nil {
		e = &entry{}
		k.entries[sym] = e
	}
	k.mu.Unlock()

	e.once.Do(func() {
		k.compilations.Add(1)
		e.c, e.err = compile(sym, owner)
	})
	return e.c, e.err
}

// Invalidate removes the entry for sym.  The next call to Get compiles sym
// again.
func (k *Cache) Invalidate(sym style.Symbolizer) {
	k.mu.Lock()
	delete(k.entries, sym)
	k.mu.Unlock()
}

// Compilations returns the number of compilations performed so far.
func (k *Cache) Compilations() int64 {
	return k.compilations.Load()
}

// Len returns the number of cached symbolizers.
func (k *Cache) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
