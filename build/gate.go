/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package build

import "sync"

// gate allows at most one in-flight build per entry point. Every request
// takes a ticket; a build whose ticket is no longer the newest is skipped
// before it starts and its results are discarded if it already ran.
type gate struct {
	mu     sync.Mutex
	latest map[string]uint64
	locks  map[string]*sync.Mutex
}

func newGate() *gate {
	return &gate{
		latest: make(map[string]uint64),
		locks:  make(map[string]*sync.Mutex),
	}
}

// ticket registers a new request for name and returns its ticket.
func (g *gate) ticket(name string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[name]++
	return g.latest[name]
}

// superseded reports whether a newer request for name exists.
func (g *gate) superseded(name string, ticket uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[name] != ticket
}

func (g *gate) lock(name string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[name]
	if !ok {
		l = &sync.Mutex{}
		g.locks[name] = l
	}
	return l
}

// run executes fn unless the ticket was superseded while waiting for the
// entry's previous build. It reports whether fn ran.
func (g *gate) run(name string, ticket uint64, fn func() error) (bool, error) {
	l := g.lock(name)
	l.Lock()
	defer l.Unlock()
	if g.superseded(name, ticket) {
		return false, nil
	}
	return true, fn()
}
