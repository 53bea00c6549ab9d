// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfir

import "fmt"

//go:generate stringer -type=Kind,ByteOrder,Encoding,Meaning

// Kind identifies the concrete type of a FieldType.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindEnum
	KindString
	KindStruct
	KindArray
	KindSequence
	KindVariant
)

// ByteOrder is the byte order of an integer or floating point field.
//
// ByteOrderNative is only meaningful while metadata is being visited;
// the visitor replaces it with the trace byte order, so a resolved
// type tree never contains it.
type ByteOrder int

const (
	ByteOrderNative ByteOrder = iota
	ByteOrderLittleEndian
	ByteOrderBigEndian
	// ByteOrderNetwork is big endian by another name. It is kept
	// distinct so metadata can be reproduced, but decodes
	// identically to ByteOrderBigEndian.
	ByteOrderNetwork
)

// Encoding is the character encoding of a string field or the
// encoding hint of an integer field. An 8-bit integer with an ASCII
// or UTF-8 encoding turns arrays and sequences of it into text.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingASCII
	EncodingUTF8
)

// Meaning tags an integer field type whose decoded value the
// notification iterator must mirror into its own state, such as the
// packet magic number or the stream class ID. It is assigned while
// stream and event classes are built, based on well-known field
// names.
type Meaning int

const (
	MeaningNone Meaning = iota
	MeaningEventClassID
	MeaningStreamClassID
	MeaningDataStreamID
	MeaningMagic
	MeaningPacketTotalSize
	MeaningPacketContentSize
	MeaningPacketBeginTime
	MeaningPacketEndTime
	MeaningPacketCounter
	MeaningDiscardedEventCounter
)

// NoStoredValue is the StoredValueIndex of an integer type no
// sequence or variant refers to.
const NoStoredValue = -1

// A FieldType describes the binary layout of one field. The concrete
// types are IntType, FloatType, EnumType, StringType, StructType,
// ArrayType, SequenceType and VariantType; consumers dispatch on Kind
// or with a type switch.
type FieldType interface {
	Kind() Kind

	// Alignment returns the type's alignment in bits. It is
	// always a power of two.
	Alignment() uint64

	// Freeze marks the type and everything it reaches immutable.
	// Mutating a frozen compound type is an error.
	Freeze()

	Frozen() bool

	// Clone returns an unfrozen deep copy. Instantiating a type
	// from a declaration scope clones it so that every use site
	// owns its own Meaning and StoredValueIndex slots.
	Clone() FieldType
}

// An IntType is an integer field type of 1 to 64 bits.
type IntType struct {
	Size     uint // bits
	Signed   bool
	Order    ByteOrder
	Base     int // display base: 2, 8, 10 or 16
	Encoding Encoding

	// MappedClock, if non-nil, makes every decoded value of this
	// type an update of the iterator's default clock.
	MappedClock *Clock

	// Align is the alignment in bits.
	Align uint64

	// Meaning and StoredValueIndex are filled in while classes
	// are built and sequence/variant references are resolved.
	Meaning          Meaning
	StoredValueIndex int

	frozen bool
}

// NewIntType returns an unsigned, base-10, trace-byte-order integer
// type of the given size in bits. Byte-multiple sizes are byte
// aligned, every other size is bit packed.
func NewIntType(size uint) (*IntType, error) {
	if size == 0 || size > 64 {
		return nil, fmt.Errorf("ctfir: invalid integer size %d", size)
	}
	align := uint64(1)
	if size%8 == 0 {
		align = 8
	}
	return &IntType{
		Size:             size,
		Order:            ByteOrderNative,
		Base:             10,
		Align:            align,
		StoredValueIndex: NoStoredValue,
	}, nil
}

func (t *IntType) Kind() Kind        { return KindInt }
func (t *IntType) Alignment() uint64 { return t.Align }
func (t *IntType) Freeze()           { t.frozen = true }
func (t *IntType) Frozen() bool      { return t.frozen }

func (t *IntType) Clone() FieldType {
	c := *t
	c.frozen = false
	return &c
}

// A FloatType is an IEEE 754 binary floating point field type. Only
// the 32-bit (8+24) and 64-bit (11+53) layouts can be decoded.
type FloatType struct {
	ExpDig  uint // exponent bits
	MantDig uint // mantissa bits, including the implied leading bit
	Order   ByteOrder
	Align   uint64

	frozen bool
}

func NewFloatType(expDig, mantDig uint) (*FloatType, error) {
	if expDig == 0 || mantDig == 0 || expDig+mantDig > 64 {
		return nil, fmt.Errorf("ctfir: invalid floating point layout %d+%d", expDig, mantDig)
	}
	align := uint64(1)
	if (expDig+mantDig)%8 == 0 {
		align = 8
	}
	return &FloatType{ExpDig: expDig, MantDig: mantDig, Order: ByteOrderNative, Align: align}, nil
}

func (t *FloatType) Kind() Kind        { return KindFloat }
func (t *FloatType) Alignment() uint64 { return t.Align }
func (t *FloatType) Freeze()           { t.frozen = true }
func (t *FloatType) Frozen() bool      { return t.frozen }

func (t *FloatType) Clone() FieldType {
	c := *t
	c.frozen = false
	return &c
}

// An EnumMapping maps a label to an inclusive value range. Lo and Hi
// hold the raw container bits; whether they compare as signed follows
// the container type.
type EnumMapping struct {
	Label  string
	Lo, Hi uint64
}

// An EnumType is an integer container plus an ordered list of label
// mappings. Overlapping ranges and duplicate labels are permitted;
// lookups by value return the first match in declaration order.
type EnumType struct {
	Container *IntType
	Mappings  []EnumMapping

	frozen bool
}

func NewEnumType(container *IntType) (*EnumType, error) {
	if container == nil {
		return nil, fmt.Errorf("ctfir: enumeration requires an integer container")
	}
	return &EnumType{Container: container}, nil
}

func (t *EnumType) Kind() Kind        { return KindEnum }
func (t *EnumType) Alignment() uint64 { return t.Container.Alignment() }
func (t *EnumType) Frozen() bool      { return t.frozen }

func (t *EnumType) Freeze() {
	t.frozen = true
	t.Container.Freeze()
}

func (t *EnumType) Clone() FieldType {
	c := &EnumType{
		Container: t.Container.Clone().(*IntType),
		Mappings:  make([]EnumMapping, len(t.Mappings)),
	}
	copy(c.Mappings, t.Mappings)
	return c
}

// AddMapping appends a label range.
func (t *EnumType) AddMapping(label string, lo, hi uint64) error {
	if t.frozen {
		return fmt.Errorf("ctfir: enumeration type is frozen")
	}
	t.Mappings = append(t.Mappings, EnumMapping{label, lo, hi})
	return nil
}

// contains reports whether value falls in m under the signedness of
// the container.
func (m *EnumMapping) contains(value uint64, signed bool) bool {
	if signed {
		return int64(m.Lo) <= int64(value) && int64(value) <= int64(m.Hi)
	}
	return m.Lo <= value && value <= m.Hi
}

// MappingByValue returns the index of the first mapping containing
// value, or -1.
func (t *EnumType) MappingByValue(value uint64) int {
	for i := range t.Mappings {
		if t.Mappings[i].contains(value, t.Container.Signed) {
			return i
		}
	}
	return -1
}

// HasLabel reports whether any mapping uses the given label.
func (t *EnumType) HasLabel(label string) bool {
	for i := range t.Mappings {
		if t.Mappings[i].Label == label {
			return true
		}
	}
	return false
}

// A StringType is a null-terminated byte string.
type StringType struct {
	Encoding Encoding

	frozen bool
}

func NewStringType(enc Encoding) *StringType {
	return &StringType{Encoding: enc}
}

func (t *StringType) Kind() Kind        { return KindString }
func (t *StringType) Alignment() uint64 { return 8 }
func (t *StringType) Freeze()           { t.frozen = true }
func (t *StringType) Frozen() bool      { return t.frozen }

func (t *StringType) Clone() FieldType {
	c := *t
	c.frozen = false
	return &c
}

// A NamedType is one member of a structure or one option of a
// variant.
type NamedType struct {
	Name string
	Type FieldType
}

// A StructType is an ordered list of uniquely named members.
type StructType struct {
	MinAlign uint64

	fields []NamedType
	byName map[string]int
	frozen bool
}

func NewStructType(minAlign uint64) (*StructType, error) {
	if minAlign == 0 || minAlign&(minAlign-1) != 0 {
		return nil, fmt.Errorf("ctfir: structure alignment %d is not a power of two", minAlign)
	}
	return &StructType{MinAlign: minAlign, byName: make(map[string]int)}, nil
}

func (t *StructType) Kind() Kind   { return KindStruct }
func (t *StructType) Frozen() bool { return t.frozen }

// Alignment is the largest alignment of any member, but at least
// MinAlign.
func (t *StructType) Alignment() uint64 {
	align := t.MinAlign
	for i := range t.fields {
		if a := t.fields[i].Type.Alignment(); a > align {
			align = a
		}
	}
	return align
}

func (t *StructType) Freeze() {
	t.frozen = true
	for i := range t.fields {
		t.fields[i].Type.Freeze()
	}
}

func (t *StructType) Clone() FieldType {
	c := &StructType{
		MinAlign: t.MinAlign,
		fields:   make([]NamedType, len(t.fields)),
		byName:   make(map[string]int, len(t.byName)),
	}
	for i := range t.fields {
		c.fields[i] = NamedType{t.fields[i].Name, t.fields[i].Type.Clone()}
		c.byName[t.fields[i].Name] = i
	}
	return c
}

// AddField appends a named member. Member names are unique within the
// structure.
func (t *StructType) AddField(name string, ft FieldType) error {
	if t.frozen {
		return fmt.Errorf("ctfir: structure type is frozen")
	}
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("ctfir: duplicate structure member %q", name)
	}
	t.byName[name] = len(t.fields)
	t.fields = append(t.fields, NamedType{name, ft})
	return nil
}

// NumFields returns the member count.
func (t *StructType) NumFields() int { return len(t.fields) }

// FieldByIndex returns the i-th member.
func (t *StructType) FieldByIndex(i int) NamedType { return t.fields[i] }

// An ArrayType is a fixed-length run of one element type.
type ArrayType struct {
	Length uint64
	Elem   FieldType

	frozen bool
}

func NewArrayType(length uint64, elem FieldType) *ArrayType {
	return &ArrayType{Length: length, Elem: elem}
}

func (t *ArrayType) Kind() Kind        { return KindArray }
func (t *ArrayType) Alignment() uint64 { return t.Elem.Alignment() }
func (t *ArrayType) Frozen() bool      { return t.frozen }

func (t *ArrayType) Freeze() {
	t.frozen = true
	t.Elem.Freeze()
}

func (t *ArrayType) Clone() FieldType {
	return &ArrayType{Length: t.Length, Elem: t.Elem.Clone()}
}

// A SequenceType is a variable-length run of one element type. Its
// length is the decoded value of another field, named by LengthName
// in TSDL and located by LengthPath once the metadata visitor has
// resolved it. LengthType is the resolved target, always an unsigned
// integer.
type SequenceType struct {
	Elem       FieldType
	LengthName string
	LengthPath *FieldPath
	LengthType *IntType

	frozen bool
}

func NewSequenceType(lengthName string, elem FieldType) *SequenceType {
	return &SequenceType{Elem: elem, LengthName: lengthName}
}

func (t *SequenceType) Kind() Kind        { return KindSequence }
func (t *SequenceType) Alignment() uint64 { return t.Elem.Alignment() }
func (t *SequenceType) Frozen() bool      { return t.frozen }

func (t *SequenceType) Freeze() {
	t.frozen = true
	t.Elem.Freeze()
}

func (t *SequenceType) Clone() FieldType {
	c := &SequenceType{Elem: t.Elem.Clone(), LengthName: t.LengthName}
	if t.LengthPath != nil {
		p := *t.LengthPath
		p.Indexes = append([]int64(nil), t.LengthPath.Indexes...)
		c.LengthPath = &p
	}
	// LengthType points into another scope's tree and is not part
	// of this clone.
	c.LengthType = t.LengthType
	return c
}

// A VariantType is a set of named options selected at decode time by
// the value of a tag enumeration located elsewhere in the trace. The
// tag is named by TagName in TSDL; TagPath and TagType are filled in
// by resolution. Every option name must be a label of the tag
// enumeration.
type VariantType struct {
	TagName string
	TagPath *FieldPath
	TagType *EnumType

	options []NamedType
	byName  map[string]int
	frozen  bool
}

func NewVariantType(tagName string) *VariantType {
	return &VariantType{TagName: tagName, byName: make(map[string]int)}
}

func (t *VariantType) Kind() Kind   { return KindVariant }
func (t *VariantType) Frozen() bool { return t.frozen }

// Alignment of a variant is 1; each option aligns itself when it is
// read.
func (t *VariantType) Alignment() uint64 { return 1 }

func (t *VariantType) Freeze() {
	t.frozen = true
	for i := range t.options {
		t.options[i].Type.Freeze()
	}
}

func (t *VariantType) Clone() FieldType {
	c := &VariantType{
		TagName: t.TagName,
		options: make([]NamedType, len(t.options)),
		byName:  make(map[string]int, len(t.byName)),
	}
	for i := range t.options {
		c.options[i] = NamedType{t.options[i].Name, t.options[i].Type.Clone()}
		c.byName[t.options[i].Name] = i
	}
	if t.TagPath != nil {
		p := *t.TagPath
		p.Indexes = append([]int64(nil), t.TagPath.Indexes...)
		c.TagPath = &p
	}
	c.TagType = t.TagType
	return c
}

// AddOption appends a named option. Option names are unique within
// the variant.
func (t *VariantType) AddOption(name string, ft FieldType) error {
	if t.frozen {
		return fmt.Errorf("ctfir: variant type is frozen")
	}
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("ctfir: duplicate variant option %q", name)
	}
	t.byName[name] = len(t.options)
	t.options = append(t.options, NamedType{name, ft})
	return nil
}

// NumOptions returns the option count.
func (t *VariantType) NumOptions() int { return len(t.options) }

// OptionByIndex returns the i-th option.
func (t *VariantType) OptionByIndex(i int) NamedType { return t.options[i] }

// OptionByTagValue returns the index of the option selected by a tag
// container value, or -1. The first enumeration mapping whose range
// contains the value wins.
func (t *VariantType) OptionByTagValue(value uint64) int {
	if t.TagType == nil {
		return -1
	}
	m := t.TagType.MappingByValue(value)
	if m < 0 {
		return -1
	}
	i, ok := t.byName[t.TagType.Mappings[m].Label]
	if !ok {
		return -1
	}
	return i
}

// ElementCount returns the number of child slots of a compound type:
// the member count of a structure, the fixed length of an array, and
// 1 for sequences and variants (a single dynamically selected
// element). Basic types have no element count.
func ElementCount(ft FieldType) (int64, error) {
	switch t := ft.(type) {
	case *StructType:
		return int64(t.NumFields()), nil
	case *ArrayType:
		return int64(t.Length), nil
	case *SequenceType, *VariantType:
		return 1, nil
	}
	return 0, fmt.Errorf("ctfir: %v type has no element count", ft.Kind())
}

// FieldAt returns the type of the i-th child of a compound type. For
// arrays and sequences this is the element type regardless of i
// (including the CurrentElement sentinel); for variants it is the
// i-th option's type, which is how resolved field paths address
// variant contents.
func FieldAt(ft FieldType, i int64) (FieldType, error) {
	switch t := ft.(type) {
	case *StructType:
		if i < 0 || i >= int64(t.NumFields()) {
			return nil, fmt.Errorf("ctfir: structure member index %d out of range", i)
		}
		return t.fields[i].Type, nil
	case *ArrayType:
		return t.Elem, nil
	case *SequenceType:
		return t.Elem, nil
	case *VariantType:
		if i < 0 || i >= int64(t.NumOptions()) {
			return nil, fmt.Errorf("ctfir: variant option index %d out of range", i)
		}
		return t.options[i].Type, nil
	}
	return nil, fmt.Errorf("ctfir: %v type has no child fields", ft.Kind())
}

// FieldIndexByName returns the index of a structure member or variant
// option.
func FieldIndexByName(ft FieldType, name string) (int64, bool) {
	switch t := ft.(type) {
	case *StructType:
		if i, ok := t.byName[name]; ok {
			return int64(i), true
		}
	case *VariantType:
		if i, ok := t.byName[name]; ok {
			return int64(i), true
		}
	}
	return -1, false
}

// BasicSizeBits returns the fixed bit size of a basic type: the size
// of an integer, exponent+mantissa of a float, the container size of
// an enumeration, and 8 (one byte at a time) for strings.
func BasicSizeBits(ft FieldType) (uint64, error) {
	switch t := ft.(type) {
	case *IntType:
		return uint64(t.Size), nil
	case *FloatType:
		return uint64(t.ExpDig + t.MantDig), nil
	case *EnumType:
		return uint64(t.Container.Size), nil
	case *StringType:
		return 8, nil
	}
	return 0, fmt.Errorf("ctfir: %v type has no basic size", ft.Kind())
}
