// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aclements/go-ctf/ctfir"
)

// AST construction helpers standing in for the external TSDL parser.

func uid(s string) *UnaryExpr  { return &UnaryExpr{Kind: UnaryString, S: s} }
func ucst(n uint64) *UnaryExpr { return &UnaryExpr{Kind: UnaryUnsigned, U: n} }

func lhs(parts ...string) []*UnaryExpr {
	out := make([]*UnaryExpr, len(parts))
	for i, p := range parts {
		out[i] = uid(p)
		if i > 0 {
			out[i].Link = LinkDot
		}
	}
	return out
}

func attrS(key, value string) *CTFExpr {
	return &CTFExpr{Left: lhs(key), Right: []*UnaryExpr{uid(value)}}
}

func attrU(key string, n uint64) *CTFExpr {
	return &CTFExpr{Left: lhs(key), Right: []*UnaryExpr{ucst(n)}}
}

func typeAssign(keyParts []string, tsl *TypeSpecList) *CTFExpr {
	return &CTFExpr{Left: lhs(keyParts...), RightType: tsl}
}

func words(ws ...string) *TypeSpecList {
	specs := make([]Node, len(ws))
	for i, w := range ws {
		specs[i] = &TypeSpecifier{Name: w}
	}
	return &TypeSpecList{Specs: specs}
}

func intTSL(attrs ...*CTFExpr) *TypeSpecList {
	return &TypeSpecList{Specs: []Node{&IntegerSpec{Attrs: attrs}}}
}

func structTSL(entries ...Node) *TypeSpecList {
	return &TypeSpecList{Specs: []Node{&StructSpec{HasBody: true, Entries: entries}}}
}

func member(tsl *TypeSpecList, name string, lengths ...ArrayLength) *TypeDecl {
	return &TypeDecl{
		Spec:        tsl,
		Declarators: []*TypeDeclarator{{Name: name, Lengths: lengths}},
	}
}

func alias(name string, target *TypeSpecList) *Typealias {
	return &Typealias{TargetSpec: target, AliasSpec: words(name)}
}

func beInt(size uint64) *TypeSpecList {
	return intTSL(attrU("size", size), attrS("byte_order", "be"))
}

// testRoot builds the metadata of a small but complete trace: packet
// header with magic and stream_id, packet context with sizes, event
// header with id, and one event whose payload has a sequence and a
// tagged variant.
func testRoot() *Root {
	enumSpec := &TypeSpecList{Specs: []Node{&EnumSpec{
		HasBody:   true,
		Container: words("u8"),
		Entries: []*EnumEntry{
			{Label: "A"},
			{Label: "B"},
		},
	}}}
	variantSpec := &TypeSpecList{Specs: []Node{&VariantSpec{
		HasBody: true,
		Tag:     "kind",
		Entries: []Node{
			member(beInt(16), "A"),
			member(intTSL(attrU("size", 32), attrS("byte_order", "le")), "B"),
		},
	}}}

	return &Root{Decls: []Node{
		&ClockBlock{Entries: []Node{
			attrS("name", "monotonic"),
			attrU("freq", 1000000000),
		}},
		alias("u8", intTSL(attrU("size", 8))),
		alias("u16", beInt(16)),
		alias("u32", beInt(32)),
		&EnvBlock{Entries: []Node{
			attrS("hostname", "box"),
			attrU("tracer_major", 2),
			attrS("some_custom_key", "ignored"),
		}},
		&TraceBlock{Entries: []Node{
			attrU("major", 1),
			attrU("minor", 8),
			attrS("byte_order", "be"),
			attrS("uuid", "2a6422d0-6cee-11e0-8c08-cb07d7b3a564"),
			typeAssign([]string{"packet", "header"}, structTSL(
				member(words("u32"), "magic"),
				member(words("u8"), "stream_id"),
			)),
		}},
		&StreamBlock{Entries: []Node{
			attrU("id", 0),
			typeAssign([]string{"packet", "context"}, structTSL(
				member(words("u32"), "packet_size"),
				member(words("u32"), "content_size"),
			)),
			typeAssign([]string{"event", "header"}, structTSL(
				member(words("u8"), "id"),
			)),
		}},
		&EventBlock{Entries: []Node{
			attrS("name", "stuff"),
			attrU("id", 0),
			attrU("stream_id", 0),
			typeAssign([]string{"fields"}, structTSL(
				member(words("u8"), "len"),
				member(words("u16"), "data", ArrayLength{Ref: "len"}),
				&TypeDecl{Spec: enumSpec, Declarators: []*TypeDeclarator{{Name: "kind"}}},
				&TypeDecl{Spec: variantSpec, Declarators: []*TypeDeclarator{{Name: "v"}}},
			)),
		}},
	}}
}

func TestVisitFullTrace(t *testing.T) {
	trace, err := Visit(testRoot(), nil)
	require.NoError(t, err)
	require.True(t, trace.Frozen())

	require.Equal(t, uint64(1), trace.Major)
	require.Equal(t, uint64(8), trace.Minor)
	require.Equal(t, ctfir.ByteOrderBigEndian, trace.Order)
	require.True(t, trace.HasUUID)
	require.Equal(t, "2a6422d0-6cee-11e0-8c08-cb07d7b3a564", trace.UUID.String())

	require.NotNil(t, trace.Clock())
	require.Equal(t, "monotonic", trace.Clock().Name)

	require.Equal(t, "box", trace.Environment["hostname"])
	require.Equal(t, int64(2), trace.Environment["tracer_major"])
	_, ok := trace.Environment["some_custom_key"]
	require.False(t, ok, "unknown env keys are ignored")

	header := trace.PacketHeaderType()
	require.NotNil(t, header)
	require.True(t, header.Frozen())
	magic := header.FieldByIndex(0).Type.(*ctfir.IntType)
	require.Equal(t, ctfir.MeaningMagic, magic.Meaning)
	streamID := header.FieldByIndex(1).Type.(*ctfir.IntType)
	require.Equal(t, ctfir.MeaningStreamClassID, streamID.Meaning)

	sc := trace.StreamClassByID(0)
	require.NotNil(t, sc)
	pc := sc.PacketContextType()
	require.Equal(t, ctfir.MeaningPacketTotalSize, pc.FieldByIndex(0).Type.(*ctfir.IntType).Meaning)
	require.Equal(t, ctfir.MeaningPacketContentSize, pc.FieldByIndex(1).Type.(*ctfir.IntType).Meaning)
	require.Equal(t, ctfir.MeaningEventClassID, sc.EventHeaderType().FieldByIndex(0).Type.(*ctfir.IntType).Meaning)

	ec := sc.EventClassByID(0)
	require.NotNil(t, ec)
	require.Equal(t, "stuff", ec.Name)
	payload := ec.PayloadType()
	require.Equal(t, 4, payload.NumFields())

	// The sequence resolved to its sibling len.
	seq := payload.FieldByIndex(1).Type.(*ctfir.SequenceType)
	require.NotNil(t, seq.LengthPath)
	require.Equal(t, ctfir.ScopeEventPayload, seq.LengthPath.Root)
	require.Equal(t, []int64{0}, seq.LengthPath.Indexes)
	require.NotNil(t, seq.LengthType)
	require.NotEqual(t, ctfir.NoStoredValue, seq.LengthType.StoredValueIndex)

	// The variant resolved to the kind enumeration.
	vt := payload.FieldByIndex(3).Type.(*ctfir.VariantType)
	require.NotNil(t, vt.TagPath)
	require.Equal(t, []int64{2}, vt.TagPath.Indexes)
	require.NotNil(t, vt.TagType)
	require.True(t, vt.TagType.HasLabel("A"))
	require.NotEqual(t, ctfir.NoStoredValue, vt.TagType.Container.StoredValueIndex)

	require.Equal(t, 2, trace.StoredValueCount())

	// Integer defaults.
	u16 := payload.FieldByIndex(1).Type.(*ctfir.SequenceType).Elem.(*ctfir.IntType)
	require.Equal(t, uint(16), u16.Size)
	require.Equal(t, ctfir.ByteOrderBigEndian, u16.Order)
	require.Equal(t, 10, u16.Base)
}

func TestVisitIntegerDefaultsAndAttrs(t *testing.T) {
	root := &Root{Decls: []Node{
		alias("weird", intTSL(
			attrU("size", 27),
			attrS("base", "hex"),
			attrS("encoding", "ASCII"),
			attrS("signed", "true"),
		)),
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "le"),
			typeAssign([]string{"packet", "header"}, structTSL(
				member(words("weird"), "w"),
			)),
		}},
	}}
	trace, err := Visit(root, nil)
	require.NoError(t, err)
	w := trace.PacketHeaderType().FieldByIndex(0).Type.(*ctfir.IntType)
	require.Equal(t, uint(27), w.Size)
	require.Equal(t, uint64(1), w.Align, "non-byte-multiple sizes are bit packed")
	require.Equal(t, 16, w.Base)
	require.Equal(t, ctfir.EncodingASCII, w.Encoding)
	require.True(t, w.Signed)
	require.Equal(t, ctfir.ByteOrderLittleEndian, w.Order, "byte order defaults to the trace")
}

func TestVisitClockMap(t *testing.T) {
	root := &Root{Decls: []Node{
		&ClockBlock{Entries: []Node{attrS("name", "mono")}},
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
			typeAssign([]string{"packet", "header"}, structTSL(
				member(intTSL(
					attrU("size", 64),
					&CTFExpr{Left: lhs("map"), Right: lhs("clock", "mono", "value")},
				), "timestamp"),
			)),
		}},
	}}
	trace, err := Visit(root, nil)
	require.NoError(t, err)
	ts := trace.PacketHeaderType().FieldByIndex(0).Type.(*ctfir.IntType)
	require.NotNil(t, ts.MappedClock)
	require.Equal(t, "mono", ts.MappedClock.Name)
}

func TestVisitEnumAutoValues(t *testing.T) {
	root := &Root{Decls: []Node{
		alias("u8", intTSL(attrU("size", 8))),
		&TypeDecl{Spec: &TypeSpecList{Specs: []Node{&EnumSpec{
			Name:      "state",
			HasBody:   true,
			Container: words("u8"),
			Entries: []*EnumEntry{
				{Label: "ZERO"},
				{Label: "FIVE", HasValue: true, Lo: 5},
				{Label: "SIX"},
				{Label: "RANGE", HasValue: true, IsRange: true, Lo: 10, Hi: 20},
				{Label: "NEXT"},
			},
		}}}},
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
			typeAssign([]string{"packet", "header"}, structTSL(
				member(&TypeSpecList{Specs: []Node{&EnumSpec{Name: "state"}}}, "s"),
			)),
		}},
	}}
	trace, err := Visit(root, nil)
	require.NoError(t, err)
	en := trace.PacketHeaderType().FieldByIndex(0).Type.(*ctfir.EnumType)
	want := []ctfir.EnumMapping{
		{Label: "ZERO", Lo: 0, Hi: 0},
		{Label: "FIVE", Lo: 5, Hi: 5},
		{Label: "SIX", Lo: 6, Hi: 6},
		{Label: "RANGE", Lo: 10, Hi: 20},
		{Label: "NEXT", Lo: 21, Hi: 21},
	}
	require.Equal(t, want, en.Mappings)
}

func TestVisitTypedefArray(t *testing.T) {
	root := &Root{Decls: []Node{
		alias("u8", intTSL(attrU("size", 8))),
		&Typedef{
			Spec:        words("u8"),
			Declarators: []*TypeDeclarator{{Name: "pair", Lengths: []ArrayLength{{IsConst: true, Const: 2}}}},
		},
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
			typeAssign([]string{"packet", "header"}, structTSL(
				member(words("pair"), "p", ArrayLength{IsConst: true, Const: 3}),
			)),
		}},
	}}
	trace, err := Visit(root, nil)
	require.NoError(t, err)
	outer := trace.PacketHeaderType().FieldByIndex(0).Type.(*ctfir.ArrayType)
	require.Equal(t, uint64(3), outer.Length)
	inner := outer.Elem.(*ctfir.ArrayType)
	require.Equal(t, uint64(2), inner.Length)
	require.Equal(t, ctfir.KindInt, inner.Elem.Kind())
}

func TestVisitPointerDeclarator(t *testing.T) {
	root := &Root{Decls: []Node{
		alias("u64", intTSL(attrU("size", 64))),
		&Typealias{
			TargetSpec:      intTSL(attrU("size", 64)),
			AliasSpec:       words("unsigned", "long"),
			AliasDeclarator: &TypeDeclarator{Pointers: 1},
		},
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
			typeAssign([]string{"packet", "header"}, structTSL(
				&TypeDecl{
					Spec:        words("unsigned", "long"),
					Declarators: []*TypeDeclarator{{Name: "ptr", Pointers: 1}},
				},
			)),
		}},
	}}
	trace, err := Visit(root, nil)
	require.NoError(t, err)
	ptr := trace.PacketHeaderType().FieldByIndex(0).Type.(*ctfir.IntType)
	require.Equal(t, 16, ptr.Base, "pointer instances display in hexadecimal")
	require.Equal(t, uint(64), ptr.Size)
}

func visitErrorRoot(mutate func(*Root)) *Root {
	root := testRoot()
	if mutate != nil {
		mutate(root)
	}
	return root
}

func TestVisitErrors(t *testing.T) {
	tests := []struct {
		name   string
		root   *Root
		target error
	}{
		{
			"missing integer size",
			&Root{Decls: []Node{
				alias("bad", intTSL(attrS("byte_order", "be"))),
				&TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
					typeAssign([]string{"packet", "header"}, structTSL(member(words("bad"), "x"))),
				}},
			}},
			ErrInvalidMetadata,
		},
		{
			"oversized integer",
			&Root{Decls: []Node{
				alias("big", intTSL(attrU("size", 65))),
				&TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
					typeAssign([]string{"packet", "header"}, structTSL(member(words("big"), "x"))),
				}},
			}},
			ErrNotImplemented,
		},
		{
			"duplicate integer attribute",
			&Root{Decls: []Node{
				alias("dup", intTSL(attrU("size", 8), attrU("size", 16))),
				&TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
					typeAssign([]string{"packet", "header"}, structTSL(member(words("dup"), "x"))),
				}},
			}},
			ErrInvalidMetadata,
		},
		{
			"native trace byte order",
			&Root{Decls: []Node{
				&TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "native"),
				}},
			}},
			ErrInvalidMetadata,
		},
		{
			"missing byte order",
			&Root{Decls: []Node{
				&TraceBlock{Entries: []Node{attrU("major", 1), attrU("minor", 8)}},
			}},
			ErrInvalidMetadata,
		},
		{
			"missing major",
			&Root{Decls: []Node{
				&TraceBlock{Entries: []Node{attrU("minor", 8), attrS("byte_order", "be")}},
			}},
			ErrInvalidMetadata,
		},
		{
			"multiple trace blocks",
			visitErrorRoot(func(r *Root) {
				r.Decls = append(r.Decls, &TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
				}})
			}),
			ErrInvalidMetadata,
		},
		{
			"second clock",
			visitErrorRoot(func(r *Root) {
				r.Decls = append(r.Decls, &ClockBlock{Entries: []Node{attrS("name", "other")}})
			}),
			ErrNotImplemented,
		},
		{
			"unknown type",
			&Root{Decls: []Node{
				&TraceBlock{Entries: []Node{
					attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
					typeAssign([]string{"packet", "header"}, structTSL(member(words("mystery"), "x"))),
				}},
			}},
			ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Visit(tt.root, nil)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestVisitSequenceTargetMustBeUnsigned(t *testing.T) {
	root := testRoot()
	// Make len signed.
	eb := root.Decls[len(root.Decls)-1].(*EventBlock)
	fields := eb.Entries[3].(*CTFExpr).RightType.Specs[0].(*StructSpec)
	fields.Entries[0] = member(intTSL(attrU("size", 8), attrS("signed", "true")), "len")
	_, err := Visit(root, nil)
	require.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestVisitVariantOptionNotInEnum(t *testing.T) {
	root := testRoot()
	eb := root.Decls[len(root.Decls)-1].(*EventBlock)
	fields := eb.Entries[3].(*CTFExpr).RightType.Specs[0].(*StructSpec)
	vspec := fields.Entries[3].(*TypeDecl).Spec.Specs[0].(*VariantSpec)
	vspec.Entries = append(vspec.Entries, member(beInt(16), "C"))
	_, err := Visit(root, nil)
	require.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestVisitUntaggedVariantTypedef(t *testing.T) {
	root := &Root{Decls: []Node{
		alias("u8", intTSL(attrU("size", 8))),
		&Typedef{
			Spec: &TypeSpecList{Specs: []Node{&VariantSpec{
				HasBody: true,
				Entries: []Node{member(words("u8"), "A")},
			}}},
			Declarators: []*TypeDeclarator{{Name: "bad"}},
		},
		&TraceBlock{Entries: []Node{
			attrU("major", 1), attrU("minor", 8), attrS("byte_order", "be"),
		}},
	}}
	_, err := Visit(root, nil)
	require.ErrorIs(t, err, ErrNotImplemented)
}
