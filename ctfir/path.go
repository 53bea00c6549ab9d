// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfir

import (
	"fmt"
	"strconv"
	"strings"
)

//go:generate stringer -type=Scope

// A Scope names one of the six dynamic scopes a field path can be
// rooted at. A relative path that does not resolve in its own scope
// is tried in the scopes declared before it, nearest first.
type Scope int

const (
	ScopePacketHeader Scope = iota
	ScopePacketContext
	ScopeEventHeader
	ScopeEventCommonContext
	ScopeEventSpecContext
	ScopeEventPayload
	NumScopes
)

// CurrentElement is the field path index sentinel that descends into
// the element of an array or sequence instead of selecting a member.
const CurrentElement int64 = -1

// A FieldPath locates a field type inside a dynamic scope's root
// type. Each index selects a structure member or variant option;
// CurrentElement descends into an array or sequence element.
type FieldPath struct {
	Root    Scope
	Indexes []int64
}

func (p *FieldPath) String() string {
	var b strings.Builder
	b.WriteString(p.Root.String())
	for _, i := range p.Indexes {
		b.WriteByte('.')
		if i == CurrentElement {
			b.WriteByte('*')
		} else {
			b.WriteString(strconv.FormatInt(i, 10))
		}
	}
	return b.String()
}

// LookupPath walks p's indexes from the given scope root type and
// returns the type it lands on.
func LookupPath(root FieldType, p *FieldPath) (FieldType, error) {
	if root == nil {
		return nil, fmt.Errorf("ctfir: path %s has no root type", p)
	}
	ft := root
	for _, i := range p.Indexes {
		next, err := FieldAt(ft, i)
		if err != nil {
			return nil, fmt.Errorf("ctfir: walking path %s: %w", p, err)
		}
		ft = next
	}
	return ft, nil
}
