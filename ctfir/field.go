// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfir

import "fmt"

// A Field is a runtime value instance of a FieldType. The concrete
// types mirror the field type kinds. Fields form an ownership tree;
// the notification iterator roots one tree per dynamic scope.
type Field interface {
	Type() FieldType
}

// NewField returns a default-initialized field tree for ft.
// Structure and array fields are created with all their children;
// sequence fields start empty until SetLength is called; variant
// fields have no current field until an option is selected.
func NewField(ft FieldType) Field {
	switch t := ft.(type) {
	case *IntType:
		return &IntField{typ: t}
	case *FloatType:
		return &FloatField{typ: t}
	case *EnumType:
		return &EnumField{typ: t, Container: &IntField{typ: t.Container}}
	case *StringType:
		return &StringField{typ: t}
	case *StructType:
		f := &StructField{typ: t, fields: make([]Field, t.NumFields())}
		for i := range f.fields {
			f.fields[i] = NewField(t.fields[i].Type)
		}
		return f
	case *ArrayType:
		f := &ArrayField{typ: t, elems: make([]Field, t.Length)}
		for i := range f.elems {
			f.elems[i] = NewField(t.Elem)
		}
		return f
	case *SequenceType:
		return &SequenceField{typ: t}
	case *VariantType:
		return &VariantField{typ: t, selected: -1}
	}
	panic(fmt.Sprintf("ctfir: unknown field type %T", ft))
}

// An IntField holds a decoded integer or enumeration container
// value. The raw container bits are kept in a uint64; Signed and
// Unsigned interpret them per the type's signedness.
type IntField struct {
	typ *IntType
	raw uint64
}

func (f *IntField) Type() FieldType   { return f.typ }
func (f *IntField) IntType() *IntType { return f.typ }

func (f *IntField) SetUnsigned(v uint64) { f.raw = v }
func (f *IntField) SetSigned(v int64)    { f.raw = uint64(v) }

func (f *IntField) Unsigned() uint64 { return f.raw }
func (f *IntField) Signed() int64    { return int64(f.raw) }

// An EnumField is the container integer of an enumeration.
type EnumField struct {
	typ       *EnumType
	Container *IntField
}

func (f *EnumField) Type() FieldType { return f.typ }

// Label returns the first enumeration label matching the container
// value.
func (f *EnumField) Label() (string, bool) {
	i := f.typ.MappingByValue(f.Container.Unsigned())
	if i < 0 {
		return "", false
	}
	return f.typ.Mappings[i].Label, true
}

// A FloatField holds a decoded floating point value.
type FloatField struct {
	typ   *FloatType
	value float64
}

func (f *FloatField) Type() FieldType    { return f.typ }
func (f *FloatField) SetValue(v float64) { f.value = v }
func (f *FloatField) Value() float64     { return f.value }

// A StringField accumulates the bytes of a null-terminated string or
// of a text array/sequence. The terminator is not stored.
type StringField struct {
	typ FieldType
	b   []byte
}

func (f *StringField) Type() FieldType { return f.typ }

func (f *StringField) Append(b []byte)   { f.b = append(f.b, b...) }
func (f *StringField) AppendByte(c byte) { f.b = append(f.b, c) }
func (f *StringField) Clear()            { f.b = f.b[:0] }
func (f *StringField) Value() string     { return string(f.b) }
func (f *StringField) Len() int          { return len(f.b) }

// NewTextField returns a StringField used as the synthetic value of
// a text array or sequence. ft is the array or sequence type the
// string stands in for.
func NewTextField(ft FieldType) *StringField { return &StringField{typ: ft} }

// A StructField holds one child per structure member, in member
// order.
type StructField struct {
	typ    *StructType
	fields []Field
}

func (f *StructField) Type() FieldType { return f.typ }

// At returns the i-th member's field.
func (f *StructField) At(i int) Field { return f.fields[i] }

// ByName returns a member's field by name, or nil.
func (f *StructField) ByName(name string) Field {
	i, ok := f.typ.byName[name]
	if !ok {
		return nil
	}
	return f.fields[i]
}

// SetAt replaces the i-th member's field. The iterator uses this to
// install synthetic text fields.
func (f *StructField) SetAt(i int, child Field) { f.fields[i] = child }

// An ArrayField holds a fixed number of element fields.
type ArrayField struct {
	typ   *ArrayType
	elems []Field
}

func (f *ArrayField) Type() FieldType { return f.typ }
func (f *ArrayField) Len() int        { return len(f.elems) }
func (f *ArrayField) At(i int) Field  { return f.elems[i] }

// SetAt replaces the i-th element field.
func (f *ArrayField) SetAt(i int, child Field) { f.elems[i] = child }

// A SequenceField holds a run of element fields whose count is only
// known at decode time.
type SequenceField struct {
	typ   *SequenceType
	elems []Field
}

func (f *SequenceField) Type() FieldType { return f.typ }
func (f *SequenceField) Len() int        { return len(f.elems) }
func (f *SequenceField) At(i int) Field  { return f.elems[i] }

// SetAt replaces the i-th element field.
func (f *SequenceField) SetAt(i int, child Field) { f.elems[i] = child }

// SetLength sizes the sequence and default-initializes its elements.
func (f *SequenceField) SetLength(n int64) error {
	if n < 0 {
		return fmt.Errorf("ctfir: negative sequence length %d", n)
	}
	f.elems = make([]Field, n)
	for i := range f.elems {
		f.elems[i] = NewField(f.typ.Elem)
	}
	return nil
}

// A VariantField holds the field of the currently selected option.
type VariantField struct {
	typ      *VariantType
	selected int
	field    Field
}

func (f *VariantField) Type() FieldType { return f.typ }

// Select picks option i and creates its field.
func (f *VariantField) Select(i int) error {
	if i < 0 || i >= f.typ.NumOptions() {
		return fmt.Errorf("ctfir: variant option index %d out of range", i)
	}
	f.selected = i
	f.field = NewField(f.typ.options[i].Type)
	return nil
}

// SelectedIndex returns the selected option index, or -1.
func (f *VariantField) SelectedIndex() int { return f.selected }

// Current returns the selected option's field. It fails until Select
// has been called.
func (f *VariantField) Current() (Field, error) {
	if f.field == nil {
		return nil, fmt.Errorf("ctfir: variant has no selected option")
	}
	return f.field, nil
}

// SetCurrent replaces the selected option's field. The iterator uses
// this to install synthetic text fields.
func (f *VariantField) SetCurrent(child Field) { f.field = child }
