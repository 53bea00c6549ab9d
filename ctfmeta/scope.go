// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import (
	"fmt"

	"github.com/aclements/go-ctf/ctfir"
)

// Declaration scopes are the lexical environments of TSDL: the root
// scope, plus one nested scope per trace/stream/event block and per
// struct or variant body. A scope maps names to field types. The four
// TSDL namespaces (type aliases, structs, variants, enums) share a
// single map per scope; names carry a one-character prefix so they
// cannot collide.

const (
	prefixAlias   = 'a'
	prefixStruct  = 's'
	prefixVariant = 'v'
	prefixEnum    = 'e'
)

type declScope struct {
	parent *declScope
	types  map[string]ctfir.FieldType
}

func newDeclScope(parent *declScope) *declScope {
	return &declScope{parent: parent, types: make(map[string]ctfir.FieldType)}
}

func scopedName(prefix byte, name string) string {
	return string(prefix) + "#" + name
}

// register binds a name in this (innermost) scope. Rebinding a name
// already bound in the same scope is an error; shadowing an outer
// scope is not.
func (s *declScope) register(prefix byte, name string, ft ctfir.FieldType) error {
	key := scopedName(prefix, name)
	if _, ok := s.types[key]; ok {
		return fmt.Errorf("%w: %q already declared in this scope", ErrInvalidMetadata, name)
	}
	s.types[key] = ft
	return nil
}

// lookup finds a name, walking outward at most maxLevels scopes (-1
// for unlimited). It returns nil if the name is unbound.
func (s *declScope) lookup(prefix byte, name string, maxLevels int) ctfir.FieldType {
	key := scopedName(prefix, name)
	for cur := s; cur != nil && maxLevels != 0; cur = cur.parent {
		if ft, ok := cur.types[key]; ok {
			return ft
		}
		maxLevels--
	}
	return nil
}
