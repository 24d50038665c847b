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

import (
	"fmt"
	"strconv"
)

// Candidate is the object a style is evaluated against, usually a feature.
type Candidate interface {
	// Property returns the value of the named attribute.
	Property(name string) (any, bool)
}

// Expression computes a value from a candidate.  Evaluation is a pure
// function of the candidate.  The candidate may be nil, in which case only
// constant expressions have a value.
type Expression interface {
	Evaluate(c Candidate) (any, bool)
}

// Literal is a constant expression.
type Literal struct {
	Value any
}

// Evaluate implements the Expression interface.
func (l Literal) Evaluate(Candidate) (any, bool) {
	return l.Value, l.Value != nil
}

// Property reads an attribute of the candidate.
type Property struct {
	Name string
}

// Evaluate implements the Expression interface.
func (p Property) Evaluate(c Candidate) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.Property(p.Name)
}

// Linear computes Scale*X + Offset.
type Linear struct {
	X      Expression
	Scale  float64
	Offset float64
}

// Evaluate implements the Expression interface.
func (l Linear) Evaluate(c Candidate) (any, bool) {
	v, ok := toFloat(l.X, c)
	if !ok {
		return nil, false
	}
	return l.Scale*v + l.Offset, true
}

// Number returns a constant expression with value x.
func Number(x float64) Expression {
	return Literal{Value: x}
}

// IsConstant reports whether e has the same value for every candidate.
// A nil expression counts as constant.
func IsConstant(e Expression) bool {
	switch e := e.(type) {
	case nil, Literal:
		return true
	case Linear:
		return IsConstant(e.X)
	default:
		return false
	}
}

// Float evaluates e as a number.  If e is nil, def is returned.
// The second return value is false if e has no numeric value for c.
func Float(e Expression, c Candidate, def float64) (float64, bool) {
	if e == nil {
		return def, true
	}
	return toFloat(e, c)
}

func toFloat(e Expression, c Candidate) (float64, bool) {
	v, ok := e.Evaluate(c)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		x, err := strconv.ParseFloat(v, 64)
		return x, err == nil
	default:
		return 0, false
	}
}

// String evaluates e as a string.
func String(e Expression, c Candidate) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Evaluate(c)
	if !ok {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}
