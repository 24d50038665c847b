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

package style

import "fmt"

// Filter selects the candidates a rule applies to.
type Filter interface {
	Match(c Candidate) bool
}

// Equals matches candidates where the named property, converted to a
// string, equals Value.
type Equals struct {
	Property string
	Value    string
}

// Match implements the Filter interface.
func (f Equals) Match(c Candidate) bool {
	if c == nil {
		return false
	}
	v, ok := c.Property(f.Property)
	return ok && fmt.Sprint(v) == f.Value
}

// Between matches candidates where the named property is a number in the
// half-open range [Min, Max).
type Between struct {
	Property string
	Min, Max float64
}

// Match implements the Filter interface.
func (f Between) Match(c Candidate) bool {
	x, ok := Float(Property{Name: f.Property}, c, 0)
	return ok && x >= f.Min && x < f.Max
}

// All matches candidates which pass every filter in the list.
type All []Filter

// Match implements the Filter interface.
func (f All) Match(c Candidate) bool {
	for _, g := range f {
		if !g.Match(c) {
			return false
		}
	}
	return true
}

// Not inverts a filter.
type Not struct {
	Filter Filter
}

// Match implements the Filter interface.
func (f Not) Match(c Candidate) bool {
	return !f.Filter.Match(c)
}
