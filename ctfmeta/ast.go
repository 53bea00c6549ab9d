// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

// This file is the contract between an external TSDL parser and the
// metadata visitor. The node vocabulary is fixed: root, trace, clock,
// env, stream, event, typedef, typealias, ctf-expression,
// type-specifier-list, type-specifier, type-declarator, struct,
// variant, enum and unary-expression. The visitor consumes these
// nodes; it never sees TSDL source text.

// A Node is any TSDL AST node.
type Node interface{}

// A Root is a whole metadata document: root-level declarations and
// the trace/clock/env/stream/event blocks, in source order.
type Root struct {
	Decls []Node
}

// A TraceBlock is a `trace { ... }` block. Entries are *CTFExpr,
// *Typedef and *Typealias nodes.
type TraceBlock struct {
	Entries []Node
}

// A ClockBlock is a `clock { ... }` block of *CTFExpr entries.
type ClockBlock struct {
	Entries []Node
}

// An EnvBlock is an `env { ... }` block of *CTFExpr entries.
type EnvBlock struct {
	Entries []Node
}

// A StreamBlock is a `stream { ... }` block.
type StreamBlock struct {
	Entries []Node
}

// An EventBlock is an `event { ... }` block.
type EventBlock struct {
	Entries []Node
}

// A Typedef is a `typedef` declaration: one type specifier list and
// one or more declarators naming aliases for it.
type Typedef struct {
	Spec        *TypeSpecList
	Declarators []*TypeDeclarator
}

// A Typealias is a `typealias target := alias` declaration.
type Typealias struct {
	TargetSpec       *TypeSpecList
	TargetDeclarator *TypeDeclarator // may be nil
	AliasSpec        *TypeSpecList
	AliasDeclarator  *TypeDeclarator // abstract: no name, pointers only
}

// A TypeDecl is a plain declaration: a member declaration inside a
// struct or variant body, or a root-level naked type-specifier-list
// declaration (which registers the named struct/variant/enum it
// contains). Declarators is empty in the naked form.
type TypeDecl struct {
	Spec        *TypeSpecList
	Declarators []*TypeDeclarator
}

// A CTFExpr is a `left = right` attribute or a `left := type` type
// assignment. Exactly one of Right and RightType is set.
type CTFExpr struct {
	Left      []*UnaryExpr
	Right     []*UnaryExpr
	RightType *TypeSpecList
}

// UnaryKind discriminates UnaryExpr payloads.
type UnaryKind int

const (
	UnaryUnsigned UnaryKind = iota
	UnarySigned
	UnaryString
)

// LinkKind is the connector between a unary expression and the one
// before it in a chain.
type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkDot
	LinkArrow
	LinkDotDotDot
)

// A UnaryExpr is one element of a unary expression chain such as
// `stream.packet.context.len` or a lone constant.
type UnaryExpr struct {
	Kind UnaryKind
	U    uint64
	I    int64
	S    string // string literal or identifier
	Link LinkKind
}

// A TypeSpecList is an ordered list of type specifiers. Each entry is
// a *TypeSpecifier word or one of *IntegerSpec, *FloatSpec,
// *StringSpec, *StructSpec, *VariantSpec, *EnumSpec.
type TypeSpecList struct {
	Specs []Node
}

// A TypeSpecifier is a bare specifier word: `unsigned`, `int`,
// `const`, or an alias name.
type TypeSpecifier struct {
	Name string
}

// An IntegerSpec is an `integer { ... }` declaration.
type IntegerSpec struct {
	Attrs []*CTFExpr
}

// A FloatSpec is a `floating_point { ... }` declaration.
type FloatSpec struct {
	Attrs []*CTFExpr
}

// A StringSpec is a `string` or `string { ... }` declaration.
type StringSpec struct {
	Attrs []*CTFExpr
}

// A StructSpec is a `struct` declaration: named reference, named
// definition, or anonymous definition. Entries are *TypeDecl,
// *Typedef and *Typealias nodes. MinAlign is the `align(N)`
// attribute, 0 if absent.
type StructSpec struct {
	Name     string
	HasBody  bool
	Entries  []Node
	MinAlign uint64
}

// A VariantSpec is a `variant` declaration. Tag is the `<tag>`
// reference, empty for untagged.
type VariantSpec struct {
	Name    string
	Tag     string
	HasBody bool
	Entries []Node
}

// An EnumSpec is an `enum` declaration. A nil Container means the
// `int` alias.
type EnumSpec struct {
	Name      string
	HasBody   bool
	Container *TypeSpecList
	Entries   []*EnumEntry
}

// An EnumEntry is one enumerator: a label with an optional value or
// `lo ... hi` range. Values are signed; the container's signedness
// decides how they are compared at decode time.
type EnumEntry struct {
	Label    string
	HasValue bool
	IsRange  bool
	Lo, Hi   int64
}

// A TypeDeclarator combines pointer and array suffixes with a
// declared name. The name is empty for abstract declarators (alias
// targets). Array suffixes appear outermost first.
type TypeDeclarator struct {
	Pointers int
	Name     string
	Lengths  []ArrayLength
}

// An ArrayLength is one array suffix: a constant for fixed arrays or
// a dotted field reference for sequences.
type ArrayLength struct {
	IsConst bool
	Const   uint64
	Ref     string
}
