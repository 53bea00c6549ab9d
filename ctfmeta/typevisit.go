// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import (
	"fmt"
	"strings"

	"github.com/aclements/go-ctf/ctfir"
)

// Lowering of type-specifier lists and declarators to ctfir field
// types.

// visitTypeSpecList lowers a type specifier list: a primitive or
// compound declaration block if the list contains one, otherwise an
// alias reference assembled from the specifier words.
func (v *visitor) visitTypeSpecList(tsl *TypeSpecList) (ctfir.FieldType, error) {
	for _, spec := range tsl.Specs {
		switch s := spec.(type) {
		case *IntegerSpec:
			return v.visitInteger(s)
		case *FloatSpec:
			return v.visitFloat(s)
		case *StringSpec:
			return v.visitString(s)
		case *StructSpec:
			return v.visitStruct(s)
		case *VariantSpec:
			return v.visitVariant(s)
		case *EnumSpec:
			return v.visitEnum(s)
		}
	}

	name, err := specString(tsl)
	if err != nil {
		return nil, err
	}
	ft := v.scope.lookup(prefixAlias, name, -1)
	if ft == nil {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMetadata, name)
	}
	return ft.Clone(), nil
}

// specString flattens a list of bare specifier words into the alias
// name they form, such as "unsigned long". The const qualifier does
// not participate in alias names.
func specString(tsl *TypeSpecList) (string, error) {
	var words []string
	for _, spec := range tsl.Specs {
		w, ok := spec.(*TypeSpecifier)
		if !ok {
			return "", fmt.Errorf("%w: unexpected declaration in type specifier list", ErrInvalidMetadata)
		}
		if w.Name == "const" {
			continue
		}
		words = append(words, w.Name)
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty type specifier list", ErrInvalidMetadata)
	}
	return strings.Join(words, " "), nil
}

// fieldByteOrder maps a byte_order attribute value at field level.
// native means the trace byte order here; it is only rejected at
// trace level.
func (v *visitor) fieldByteOrder(value string) (ctfir.ByteOrder, error) {
	switch value {
	case "be":
		return ctfir.ByteOrderBigEndian, nil
	case "le":
		return ctfir.ByteOrderLittleEndian, nil
	case "network":
		return ctfir.ByteOrderNetwork, nil
	case "native":
		return v.order, nil
	}
	return 0, fmt.Errorf("%w: invalid byte_order value %q", ErrInvalidMetadata, value)
}

var baseNames = map[string]int{
	"binary": 2, "b": 2,
	"octal": 8, "oct": 8, "o": 8,
	"decimal": 10, "dec": 10, "d": 10, "i": 10, "u": 10,
	"hexadecimal": 16, "hex": 16, "x": 16, "X": 16, "p": 16,
}

var encodingNames = map[string]ctfir.Encoding{
	"none":  ctfir.EncodingNone,
	"UTF8":  ctfir.EncodingUTF8,
	"utf8":  ctfir.EncodingUTF8,
	"utf-8": ctfir.EncodingUTF8,
	"UTF-8": ctfir.EncodingUTF8,
	"ASCII": ctfir.EncodingASCII,
	"ascii": ctfir.EncodingASCII,
}

func (v *visitor) visitInteger(spec *IntegerSpec) (*ctfir.IntType, error) {
	var (
		size     uint64
		hasSize  bool
		signed   bool
		order    = v.order
		align    uint64
		hasAlign bool
		base     = 10
		encoding = ctfir.EncodingNone
		clock    *ctfir.Clock
	)

	seen := make(map[string]bool)
	for _, attr := range spec.Attrs {
		key, err := exprKey(attr)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate integer attribute %q", ErrInvalidMetadata, key)
		}
		seen[key] = true

		switch key {
		case "signed":
			signed, err = exprBool(attr)
		case "byte_order":
			var s string
			if s, err = exprString(attr); err == nil {
				order, err = v.fieldByteOrder(s)
			}
		case "size":
			size, err = exprUnsigned(attr)
			hasSize = true
		case "align":
			align, err = exprUnsigned(attr)
			hasAlign = true
		case "base":
			base, err = v.visitIntegerBase(attr)
		case "encoding":
			var s string
			if s, err = exprString(attr); err == nil {
				var ok bool
				if encoding, ok = encodingNames[s]; !ok {
					err = fmt.Errorf("%w: invalid encoding %q", ErrInvalidMetadata, s)
				}
			}
		case "map":
			clock, err = v.visitClockMap(attr)
		default:
			v.log.Warn("ignoring unknown integer attribute", zapKey(key))
		}
		if err != nil {
			return nil, err
		}
	}

	if !hasSize {
		return nil, fmt.Errorf("%w: integer declaration has no size", ErrInvalidMetadata)
	}
	if size > 64 {
		return nil, fmt.Errorf("%w: %d-bit integers are not supported", ErrNotImplemented, size)
	}
	it, err := ctfir.NewIntType(uint(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	it.Signed = signed
	it.Order = order
	it.Base = base
	it.Encoding = encoding
	it.MappedClock = clock
	if hasAlign {
		if align == 0 || align&(align-1) != 0 {
			return nil, fmt.Errorf("%w: integer alignment %d is not a power of two", ErrInvalidMetadata, align)
		}
		it.Align = align
	}
	return it, nil
}

func (v *visitor) visitIntegerBase(attr *CTFExpr) (int, error) {
	if len(attr.Right) == 1 && attr.Right[0].Kind == UnaryString {
		if b, ok := baseNames[attr.Right[0].S]; ok {
			return b, nil
		}
		return 0, fmt.Errorf("%w: invalid base %q", ErrInvalidMetadata, attr.Right[0].S)
	}
	n, err := exprUnsigned(attr)
	if err != nil {
		return 0, err
	}
	switch n {
	case 2, 8, 10, 16:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: invalid base %d", ErrInvalidMetadata, n)
}

// visitClockMap handles `map = clock.NAME.value`.
func (v *visitor) visitClockMap(attr *CTFExpr) (*ctfir.Clock, error) {
	ref, err := unaryDotted(attr.Right)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(ref, ".")
	if len(parts) != 3 || parts[0] != "clock" || parts[2] != "value" {
		return nil, fmt.Errorf("%w: invalid clock mapping %q", ErrInvalidMetadata, ref)
	}
	c := v.trace.Clock()
	if c == nil || c.Name != parts[1] {
		return nil, fmt.Errorf("%w: clock mapping %q refers to an unknown clock", ErrInvalidMetadata, ref)
	}
	return c, nil
}

func (v *visitor) visitFloat(spec *FloatSpec) (*ctfir.FloatType, error) {
	var (
		expDig, mantDig       uint64
		hasExpDig, hasMantDig bool
		order                 = v.order
		align                 uint64
		hasAlign              bool
	)

	seen := make(map[string]bool)
	for _, attr := range spec.Attrs {
		key, err := exprKey(attr)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate floating point attribute %q", ErrInvalidMetadata, key)
		}
		seen[key] = true

		switch key {
		case "exp_dig":
			expDig, err = exprUnsigned(attr)
			hasExpDig = true
		case "mant_dig":
			mantDig, err = exprUnsigned(attr)
			hasMantDig = true
		case "byte_order":
			var s string
			if s, err = exprString(attr); err == nil {
				order, err = v.fieldByteOrder(s)
			}
		case "align":
			align, err = exprUnsigned(attr)
			hasAlign = true
		default:
			v.log.Warn("ignoring unknown floating point attribute", zapKey(key))
		}
		if err != nil {
			return nil, err
		}
	}

	if !hasExpDig || !hasMantDig {
		return nil, fmt.Errorf("%w: floating point declaration needs exp_dig and mant_dig", ErrInvalidMetadata)
	}
	ft, err := ctfir.NewFloatType(uint(expDig), uint(mantDig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	ft.Order = order
	if hasAlign {
		if align == 0 || align&(align-1) != 0 {
			return nil, fmt.Errorf("%w: floating point alignment %d is not a power of two", ErrInvalidMetadata, align)
		}
		ft.Align = align
	}
	return ft, nil
}

func (v *visitor) visitString(spec *StringSpec) (*ctfir.StringType, error) {
	encoding := ctfir.EncodingUTF8
	seen := make(map[string]bool)
	for _, attr := range spec.Attrs {
		key, err := exprKey(attr)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate string attribute %q", ErrInvalidMetadata, key)
		}
		seen[key] = true

		if key != "encoding" {
			v.log.Warn("ignoring unknown string attribute", zapKey(key))
			continue
		}
		s, err := exprString(attr)
		if err != nil {
			return nil, err
		}
		var ok bool
		if encoding, ok = encodingNames[s]; !ok {
			return nil, fmt.Errorf("%w: invalid encoding %q", ErrInvalidMetadata, s)
		}
	}
	return ctfir.NewStringType(encoding), nil
}

func (v *visitor) visitStruct(spec *StructSpec) (*ctfir.StructType, error) {
	if !spec.HasBody {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: anonymous struct without body", ErrInvalidMetadata)
		}
		ft := v.scope.lookup(prefixStruct, spec.Name, -1)
		if ft == nil {
			return nil, fmt.Errorf("%w: unknown struct %q", ErrInvalidMetadata, spec.Name)
		}
		return ft.Clone().(*ctfir.StructType), nil
	}

	minAlign := spec.MinAlign
	if minAlign == 0 {
		minAlign = 1
	}
	st, err := ctfir.NewStructType(minAlign)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	v.pushScope()
	defer v.popScope()
	for _, entry := range spec.Entries {
		switch e := entry.(type) {
		case *Typedef:
			err = v.visitTypedef(e)
		case *Typealias:
			err = v.visitTypealias(e)
		case *TypeDecl:
			err = v.visitMemberDecl(e, func(name string, ft ctfir.FieldType) error {
				if addErr := st.AddField(name, ft); addErr != nil {
					return fmt.Errorf("%w: %v", ErrInvalidMetadata, addErr)
				}
				return nil
			})
		default:
			err = fmt.Errorf("%w: unexpected node in struct body", ErrInvalidMetadata)
		}
		if err != nil {
			return nil, err
		}
	}

	if spec.Name != "" {
		if err := v.scope.parent.register(prefixStruct, spec.Name, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (v *visitor) visitVariant(spec *VariantSpec) (*ctfir.VariantType, error) {
	if !spec.HasBody {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: anonymous variant without body", ErrInvalidMetadata)
		}
		ft := v.scope.lookup(prefixVariant, spec.Name, -1)
		if ft == nil {
			return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidMetadata, spec.Name)
		}
		vt := ft.Clone().(*ctfir.VariantType)
		if spec.Tag != "" {
			vt.TagName = spec.Tag
		}
		return vt, nil
	}

	vt := ctfir.NewVariantType(spec.Tag)

	v.pushScope()
	defer v.popScope()
	for _, entry := range spec.Entries {
		var err error
		switch e := entry.(type) {
		case *Typedef:
			err = v.visitTypedef(e)
		case *Typealias:
			err = v.visitTypealias(e)
		case *TypeDecl:
			err = v.visitMemberDecl(e, func(name string, ft ctfir.FieldType) error {
				if addErr := vt.AddOption(name, ft); addErr != nil {
					return fmt.Errorf("%w: %v", ErrInvalidMetadata, addErr)
				}
				return nil
			})
		default:
			err = fmt.Errorf("%w: unexpected node in variant body", ErrInvalidMetadata)
		}
		if err != nil {
			return nil, err
		}
	}

	if spec.Name != "" {
		if err := v.scope.parent.register(prefixVariant, spec.Name, vt); err != nil {
			return nil, err
		}
	}
	return vt, nil
}

func (v *visitor) visitEnum(spec *EnumSpec) (*ctfir.EnumType, error) {
	if !spec.HasBody {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: anonymous enum without body", ErrInvalidMetadata)
		}
		ft := v.scope.lookup(prefixEnum, spec.Name, -1)
		if ft == nil {
			return nil, fmt.Errorf("%w: unknown enum %q", ErrInvalidMetadata, spec.Name)
		}
		return ft.Clone().(*ctfir.EnumType), nil
	}

	var container ctfir.FieldType
	var err error
	if spec.Container == nil {
		// An enum with no explicit container uses the int alias.
		container = v.scope.lookup(prefixAlias, "int", -1)
		if container == nil {
			return nil, fmt.Errorf("%w: enum has no container and no int alias is declared", ErrInvalidMetadata)
		}
		container = container.Clone()
	} else {
		container, err = v.visitTypeSpecList(spec.Container)
		if err != nil {
			return nil, err
		}
	}
	it, ok := container.(*ctfir.IntType)
	if !ok {
		return nil, fmt.Errorf("%w: enum container is not an integer type", ErrInvalidMetadata)
	}

	et, err := ctfir.NewEnumType(it)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	last := int64(-1)
	for _, entry := range spec.Entries {
		lo, hi := entry.Lo, entry.Hi
		if !entry.HasValue {
			lo = last + 1
			hi = lo
		} else if !entry.IsRange {
			hi = lo
		}
		if err := et.AddMapping(entry.Label, uint64(lo), uint64(hi)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		last = hi
	}

	if spec.Name != "" {
		if err := v.scope.register(prefixEnum, spec.Name, et); err != nil {
			return nil, err
		}
	}
	return et, nil
}

// visitMemberDecl lowers one member declaration, calling add once per
// declarator. A declaration with no declarators only introduces the
// named type it contains.
func (v *visitor) visitMemberDecl(decl *TypeDecl, add func(string, ctfir.FieldType) error) error {
	if len(decl.Declarators) == 0 {
		_, err := v.visitTypeSpecList(decl.Spec)
		return err
	}
	if add == nil {
		return fmt.Errorf("%w: unexpected declarator outside a struct or variant body", ErrInvalidMetadata)
	}
	for _, d := range decl.Declarators {
		if d.Name == "" {
			return fmt.Errorf("%w: member declarator has no name", ErrInvalidMetadata)
		}
		ft, err := v.visitTypeDeclarator(decl.Spec, d)
		if err != nil {
			return err
		}
		if err := add(d.Name, ft); err != nil {
			return err
		}
	}
	return nil
}

// visitTypeDeclarator lowers one declarator against a specifier
// list: the base type, a hexadecimal integer copy for pointer
// declarators, and array/sequence nesting for array suffixes.
func (v *visitor) visitTypeDeclarator(spec *TypeSpecList, d *TypeDeclarator) (ctfir.FieldType, error) {
	var base ctfir.FieldType
	if d.Pointers > 0 {
		// A pointer declarator requires the exact "spec *..."
		// string to be a registered alias resolving to an
		// integer; the instance is that integer displayed in
		// hexadecimal.
		name, err := specString(spec)
		if err != nil {
			return nil, err
		}
		name += strings.Repeat(" *", d.Pointers)
		ft := v.scope.lookup(prefixAlias, name, -1)
		if ft == nil {
			return nil, fmt.Errorf("%w: unknown pointer type %q", ErrInvalidMetadata, name)
		}
		it, ok := ft.(*ctfir.IntType)
		if !ok {
			return nil, fmt.Errorf("%w: pointer type %q is not an integer", ErrInvalidMetadata, name)
		}
		hexIt := it.Clone().(*ctfir.IntType)
		hexIt.Base = 16
		base = hexIt
	} else {
		var err error
		base, err = v.visitTypeSpecList(spec)
		if err != nil {
			return nil, err
		}
	}

	// Array suffixes nest outer-to-inner.
	ft := base
	for i := len(d.Lengths) - 1; i >= 0; i-- {
		l := d.Lengths[i]
		if l.IsConst {
			ft = ctfir.NewArrayType(l.Const, ft)
		} else {
			if l.Ref == "" {
				return nil, fmt.Errorf("%w: sequence length is empty", ErrInvalidMetadata)
			}
			ft = ctfir.NewSequenceType(l.Ref, ft)
		}
	}
	return ft, nil
}

// visitTypedef registers one alias per declarator.
func (v *visitor) visitTypedef(td *Typedef) error {
	if err := checkUntaggedVariant(td.Spec); err != nil {
		return err
	}
	for _, d := range td.Declarators {
		if d.Name == "" {
			return fmt.Errorf("%w: typedef declarator has no name", ErrInvalidMetadata)
		}
		ft, err := v.visitTypeDeclarator(td.Spec, d)
		if err != nil {
			return err
		}
		if err := v.scope.register(prefixAlias, d.Name, ft); err != nil {
			return err
		}
	}
	return nil
}

// visitTypealias registers the alias name built from the alias
// specifier words and pointer stars.
func (v *visitor) visitTypealias(ta *Typealias) error {
	if err := checkUntaggedVariant(ta.TargetSpec); err != nil {
		return err
	}
	d := ta.TargetDeclarator
	if d == nil {
		d = &TypeDeclarator{}
	}
	ft, err := v.visitTypeDeclarator(ta.TargetSpec, d)
	if err != nil {
		return err
	}

	name, err := specString(ta.AliasSpec)
	if err != nil {
		return err
	}
	if ta.AliasDeclarator != nil {
		name += strings.Repeat(" *", ta.AliasDeclarator.Pointers)
	}
	return v.scope.register(prefixAlias, name, ft)
}

// checkUntaggedVariant rejects untagged variant bodies used as
// typedef or typealias targets; there is no way to bind their tag
// later.
func checkUntaggedVariant(tsl *TypeSpecList) error {
	for _, spec := range tsl.Specs {
		if vs, ok := spec.(*VariantSpec); ok && vs.HasBody && vs.Tag == "" {
			return fmt.Errorf("%w: untagged variant as alias target", ErrNotImplemented)
		}
	}
	return nil
}
