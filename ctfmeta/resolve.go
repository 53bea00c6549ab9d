// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import (
	"fmt"
	"strings"

	"github.com/aclements/go-ctf/ctfir"
)

// Field-path resolution turns the dot-delimited references of TSDL
// (`trace.packet.header.stream_id`, `event.fields.len`, or a bare
// relative `len`) into indexed paths into the dynamic scope type
// trees.

// absolutePrefixes maps the absolute TSDL scope prefixes to dynamic
// scopes. Longer prefixes are matched first.
var absolutePrefixes = []struct {
	tokens []string
	scope  ctfir.Scope
}{
	{[]string{"trace", "packet", "header"}, ctfir.ScopePacketHeader},
	{[]string{"stream", "packet", "context"}, ctfir.ScopePacketContext},
	{[]string{"stream", "event", "header"}, ctfir.ScopeEventHeader},
	{[]string{"stream", "event", "context"}, ctfir.ScopeEventCommonContext},
	{[]string{"event", "context"}, ctfir.ScopeEventSpecContext},
	{[]string{"event", "fields"}, ctfir.ScopeEventPayload},
}

// A resolveFrame is one level of the type stack maintained while a
// scope root tree is walked: the compound type being walked and the
// index of the child currently being visited (CurrentElement for
// array and sequence levels).
type resolveFrame struct {
	typ   ctfir.FieldType
	index int64
}

// A resolveContext carries everything a path lookup needs: the root
// types of each dynamic scope as far as they exist yet, the scope
// whose tree is being walked, and the current type stack within it.
type resolveContext struct {
	scopes   [ctfir.NumScopes]ctfir.FieldType
	curScope ctfir.Scope
	stack    []resolveFrame
}

func (c *resolveContext) push(ft ctfir.FieldType, index int64) {
	c.stack = append(c.stack, resolveFrame{ft, index})
}

func (c *resolveContext) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *resolveContext) setIndex(i int64) {
	c.stack[len(c.stack)-1].index = i
}

// resolvePath resolves a dotted path name against the context and
// returns the field path it denotes.
func (c *resolveContext) resolvePath(name string) (*ctfir.FieldPath, error) {
	tokens := strings.Split(name, ".")
	for _, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("%w: empty component in path %q", ErrInvalidMetadata, name)
		}
	}

	if tokens[0] == "env" {
		return nil, fmt.Errorf("%w: cannot resolve trace environment reference %q", ErrNotImplemented, name)
	}

	// Absolute paths descend from the named scope root.
	for _, p := range absolutePrefixes {
		if !hasPrefix(tokens, p.tokens) {
			continue
		}
		root := c.scopes[p.scope]
		if root == nil {
			return nil, fmt.Errorf("%w: path %q refers to a scope this trace does not declare", ErrInvalidMetadata, name)
		}
		indexes, err := descend(root, tokens[len(p.tokens):])
		if err != nil {
			return nil, fmt.Errorf("%w: path %q: %v", ErrInvalidMetadata, name, err)
		}
		return &ctfir.FieldPath{Root: p.scope, Indexes: indexes}, nil
	}

	// Relative: try each type stack frame from the innermost out.
	// A hit in frame k keeps the indexes of the frames below it as
	// the prefix of the final path.
	for k := len(c.stack) - 1; k >= 0; k-- {
		indexes, err := descend(c.stack[k].typ, tokens)
		if err != nil {
			continue
		}
		var full []int64
		for i := 0; i < k; i++ {
			full = append(full, c.stack[i].index)
		}
		full = append(full, indexes...)
		return &ctfir.FieldPath{Root: c.curScope, Indexes: full}, nil
	}

	// Fall back to earlier scopes, most recent first.
	for s := c.curScope - 1; s >= ctfir.ScopePacketHeader; s-- {
		root := c.scopes[s]
		if root == nil {
			continue
		}
		indexes, err := descend(root, tokens)
		if err != nil {
			continue
		}
		return &ctfir.FieldPath{Root: s, Indexes: indexes}, nil
	}

	return nil, fmt.Errorf("%w: cannot resolve field reference %q", ErrInvalidMetadata, name)
}

func hasPrefix(tokens, prefix []string) bool {
	if len(tokens) <= len(prefix) {
		return false
	}
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}

// descend matches a token list against a type, producing path
// indexes. A token selects a structure member or variant option by
// name; array and sequence levels contribute a CurrentElement index
// without consuming a token.
func descend(ft ctfir.FieldType, tokens []string) ([]int64, error) {
	var indexes []int64
	cur := ft
	for len(tokens) > 0 {
		switch cur.Kind() {
		case ctfir.KindStruct, ctfir.KindVariant:
			i, ok := ctfir.FieldIndexByName(cur, tokens[0])
			if !ok {
				return nil, fmt.Errorf("no member %q", tokens[0])
			}
			indexes = append(indexes, i)
			next, err := ctfir.FieldAt(cur, i)
			if err != nil {
				return nil, err
			}
			cur = next
			tokens = tokens[1:]
		case ctfir.KindArray, ctfir.KindSequence:
			indexes = append(indexes, ctfir.CurrentElement)
			next, err := ctfir.FieldAt(cur, ctfir.CurrentElement)
			if err != nil {
				return nil, err
			}
			cur = next
		default:
			return nil, fmt.Errorf("%q is not a compound field", tokens[0])
		}
	}
	return indexes, nil
}
