// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctfbtr reads binary fields described by a ctfir type tree
// out of caller-supplied buffers.
//
// The reader is a resumable state machine with no knowledge of CTF
// scopes or packets. A Start call walks as much of the type tree as
// the buffer allows, invoking one callback per decoded primitive and
// bracketing callbacks around compound types. When the buffer runs
// out mid-walk, Start returns ErrNeedMoreBytes and the caller resumes
// with Continue on a refilled buffer; an atom cut by the boundary is
// reassembled internally in a stitch buffer.
package ctfbtr // import "github.com/aclements/go-ctf/ctfbtr"

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-ctf/ctfir"
)

// ErrNeedMoreBytes is returned by Start and Continue when the current
// buffer is exhausted before the type tree has been fully read. The
// caller refills the buffer and calls Continue.
var ErrNeedMoreBytes = errors.New("ctfbtr: need more bytes")

// Callbacks is the fixed record of functions the reader drives while
// it walks a type tree. Every callback receives the originating field
// type. A nil callback is simply not invoked; SequenceLength and
// VariantSelectedType must be non-nil if the tree contains sequences
// or variants. Any error returned from a callback aborts the read.
type Callbacks struct {
	// One call per fully decoded primitive. Enumerations are
	// delivered through SignedInt or UnsignedInt with the
	// enumeration type as originating type.
	SignedInt   func(v int64, t ctfir.FieldType) error
	UnsignedInt func(v uint64, t ctfir.FieldType) error
	Float       func(v float64, t *ctfir.FloatType) error

	// Null-terminated strings arrive as StringBegin, one String
	// per contiguous chunk, then StringEnd. Character arrays and
	// sequences arrive as StringBegin, one UnsignedInt per byte,
	// then StringEnd, all inside their compound bracket.
	StringBegin func(t ctfir.FieldType) error
	String      func(b []byte, t ctfir.FieldType) error
	StringEnd   func(t ctfir.FieldType) error

	CompoundBegin func(t ctfir.FieldType) error
	CompoundEnd   func(t ctfir.FieldType) error

	// SequenceLength is queried once when a sequence's compound
	// begins. A negative length is an error.
	SequenceLength func(t *ctfir.SequenceType) (int64, error)

	// VariantSelectedType is queried once when a variant's
	// compound begins. Returning a nil type aborts the read.
	VariantSelectedType func(t *ctfir.VariantType) (ctfir.FieldType, error)
}

type state int

const (
	stateAlignCompound state = iota
	stateAlignBasic
	stateReadBasic
	stateNext
	stateDone
)

type frame struct {
	typ    ctfir.FieldType
	index  int64
	length int64

	// selected is the option type of a variant frame.
	selected ctfir.FieldType

	// textual marks a character array/sequence frame.
	textual bool
}

// A Reader walks one type tree per Start call.
type Reader struct {
	cb Callbacks

	buf     []byte
	headBit uint64 // cursor bit offset within buf

	packetBit uint64 // absolute cursor bit offset within the packet

	state state
	stack []frame
	cur   ctfir.FieldType // type being aligned or read

	// Stitch buffer for an atom spanning buffer refills.
	// stitchOff is the atom's bit offset within stitch; the
	// accumulated tail always ends on a byte boundary because a
	// stash consumes its buffer to the end.
	stitch     [16]byte
	stitchBits uint64
	stitchOff  uint64

	consumed uint64 // bits consumed by the current call
}

// New returns a Reader driving the given callbacks.
func New(cb Callbacks) *Reader {
	return &Reader{cb: cb, state: stateDone}
}

// BitOffset returns the reader's absolute bit offset within the
// current packet.
func (r *Reader) BitOffset() uint64 { return r.packetBit }

// Start begins reading one instance of ft from buf. offset is the
// starting bit offset within buf; packetOffset is the starting
// absolute bit offset within the packet, which anchors alignment. It
// returns the number of bits consumed. A nil error means the whole
// type was read; ErrNeedMoreBytes means the caller must refill and
// call Continue.
func (r *Reader) Start(ft ctfir.FieldType, buf []byte, offset, packetOffset uint64) (uint64, error) {
	r.buf = buf
	r.headBit = offset
	r.packetBit = packetOffset
	r.stack = r.stack[:0]
	r.stitchBits = 0
	r.cur = ft
	if isCompound(ft) {
		r.state = stateAlignCompound
	} else {
		r.state = stateAlignBasic
	}
	return r.run()
}

// Continue resumes a read that returned ErrNeedMoreBytes with a new
// buffer. The new buffer begins on the byte boundary where the
// previous one ended.
func (r *Reader) Continue(buf []byte) (uint64, error) {
	r.buf = buf
	r.headBit = 0
	return r.run()
}

func isCompound(ft ctfir.FieldType) bool {
	switch ft.Kind() {
	case ctfir.KindStruct, ctfir.KindArray, ctfir.KindSequence, ctfir.KindVariant:
		return true
	}
	return false
}

func (r *Reader) availBits() uint64 {
	return uint64(len(r.buf))*8 - r.headBit
}

func (r *Reader) advance(bits uint64) {
	r.headBit += bits
	r.packetBit += bits
	r.consumed += bits
}

func (r *Reader) run() (uint64, error) {
	r.consumed = 0
	for {
		var err error
		switch r.state {
		case stateDone:
			return r.consumed, nil
		case stateAlignCompound:
			err = r.alignCompound()
		case stateAlignBasic:
			err = r.alignBasic()
		case stateReadBasic:
			err = r.readBasic()
		case stateNext:
			err = r.next()
		}
		if err != nil {
			return r.consumed, err
		}
	}
}

// skipPadding consumes padding bits up to the next multiple of align
// within the packet. Padding may span buffer refills; no stitching is
// needed because skipped bits carry no value.
func (r *Reader) skipPadding(align uint64) error {
	pad := (align - r.packetBit%align) % align
	if pad == 0 {
		return nil
	}
	avail := r.availBits()
	if avail >= pad {
		r.advance(pad)
		return nil
	}
	r.advance(avail)
	return ErrNeedMoreBytes
}

func (r *Reader) alignCompound() error {
	if err := r.skipPadding(r.cur.Alignment()); err != nil {
		return err
	}
	return r.enterCompound()
}

func (r *Reader) enterCompound() error {
	if err := r.call(r.cb.CompoundBegin, r.cur); err != nil {
		return err
	}

	f := frame{typ: r.cur}
	switch t := r.cur.(type) {
	case *ctfir.StructType:
		f.length = int64(t.NumFields())
	case *ctfir.ArrayType:
		f.length = int64(t.Length)
		f.textual = isTextElem(t.Elem)
	case *ctfir.SequenceType:
		if r.cb.SequenceLength == nil {
			return fmt.Errorf("ctfbtr: sequence %q has no length callback", t.LengthName)
		}
		n, err := r.cb.SequenceLength(t)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("ctfbtr: sequence %q has negative length %d", t.LengthName, n)
		}
		f.length = n
		f.textual = isTextElem(t.Elem)
	case *ctfir.VariantType:
		if r.cb.VariantSelectedType == nil {
			return fmt.Errorf("ctfbtr: variant %q has no selection callback", t.TagName)
		}
		sel, err := r.cb.VariantSelectedType(t)
		if err != nil {
			return err
		}
		if sel == nil {
			return fmt.Errorf("ctfbtr: variant %q selected no option", t.TagName)
		}
		f.selected = sel
		f.length = 1
	}

	if f.textual {
		if err := r.call(r.cb.StringBegin, r.cur); err != nil {
			return err
		}
	}
	r.stack = append(r.stack, f)
	r.state = stateNext
	return nil
}

// isTextElem reports whether an array/sequence element turns the
// compound into text: an 8-bit integer with a character encoding.
func isTextElem(elem ctfir.FieldType) bool {
	it, ok := elem.(*ctfir.IntType)
	return ok && it.Size == 8 && it.Encoding != ctfir.EncodingNone
}

func (r *Reader) alignBasic() error {
	if err := r.skipPadding(r.cur.Alignment()); err != nil {
		return err
	}
	r.state = stateReadBasic
	r.stitchBits = 0
	if _, ok := r.cur.(*ctfir.StringType); ok {
		if err := r.call(r.cb.StringBegin, r.cur); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readBasic() error {
	switch t := r.cur.(type) {
	case *ctfir.IntType:
		v, err := r.readAtom(uint(t.Size), t.Order)
		if err != nil {
			return err
		}
		if t.Signed {
			err = r.callSigned(signExtend(v, uint(t.Size)), t)
		} else {
			err = r.callUnsigned(v, t)
		}
		if err != nil {
			return err
		}
	case *ctfir.EnumType:
		c := t.Container
		v, err := r.readAtom(uint(c.Size), c.Order)
		if err != nil {
			return err
		}
		if c.Signed {
			err = r.callSigned(signExtend(v, uint(c.Size)), t)
		} else {
			err = r.callUnsigned(v, t)
		}
		if err != nil {
			return err
		}
	case *ctfir.FloatType:
		size := t.ExpDig + t.MantDig
		raw, err := r.readAtom(uint(size), t.Order)
		if err != nil {
			return err
		}
		var v float64
		switch size {
		case 32:
			v = float64(math.Float32frombits(uint32(raw)))
		case 64:
			v = math.Float64frombits(raw)
		default:
			return fmt.Errorf("ctfbtr: cannot decode %d-bit floating point field", size)
		}
		if r.cb.Float != nil {
			if err := r.cb.Float(v, t); err != nil {
				return err
			}
		}
	case *ctfir.StringType:
		return r.readString(t)
	default:
		return fmt.Errorf("ctfbtr: cannot read %v type as a basic field", r.cur.Kind())
	}
	return r.finishBasic()
}

// finishBasic advances past a completed basic field to its parent's
// next child.
func (r *Reader) finishBasic() error {
	if len(r.stack) == 0 {
		r.state = stateDone
		return nil
	}
	r.stack[len(r.stack)-1].index++
	r.state = stateNext
	return nil
}

// readAtom decodes one integer or floating point atom of n bits,
// stitching across buffer refills as needed.
func (r *Reader) readAtom(n uint, order ctfir.ByteOrder) (uint64, error) {
	if order == ctfir.ByteOrderNative {
		return 0, fmt.Errorf("ctfbtr: unresolved native byte order")
	}

	if r.stitchBits > 0 {
		// Resuming a cut atom.
		need := uint64(n) - r.stitchBits
		avail := r.availBits()
		take := need
		if take > avail {
			take = avail
		}
		end := r.stitchOff + r.stitchBits // always byte aligned
		nbytes := (take + 7) / 8
		copy(r.stitch[end/8:], r.buf[:nbytes])
		r.stitchBits += take
		r.advance(take)
		if r.stitchBits < uint64(n) {
			return 0, ErrNeedMoreBytes
		}
		v := readBits(r.stitch[:], r.stitchOff, n, order)
		r.stitchBits = 0
		return v, nil
	}

	avail := r.availBits()
	if avail >= uint64(n) {
		v := readBits(r.buf, r.headBit, n, order)
		r.advance(uint64(n))
		return v, nil
	}

	// The atom is cut by the buffer boundary: stash what is here.
	r.stitchOff = r.headBit % 8
	copy(r.stitch[:], r.buf[r.headBit/8:])
	r.stitchBits = avail
	r.advance(avail)
	return 0, ErrNeedMoreBytes
}

// readString scans a null-terminated string. The cursor is byte
// aligned here and stays byte aligned.
func (r *Reader) readString(t *ctfir.StringType) error {
	if r.availBits() == 0 {
		return ErrNeedMoreBytes
	}
	window := r.buf[r.headBit/8:]
	term := -1
	for i, c := range window {
		if c == 0 {
			term = i
			break
		}
	}
	if term < 0 {
		if err := r.call2(r.cb.String, window, t); err != nil {
			return err
		}
		r.advance(uint64(len(window)) * 8)
		return ErrNeedMoreBytes
	}
	if term > 0 {
		if err := r.call2(r.cb.String, window[:term], t); err != nil {
			return err
		}
	}
	r.advance(uint64(term+1) * 8)
	if err := r.call(r.cb.StringEnd, t); err != nil {
		return err
	}
	return r.finishBasic()
}

func (r *Reader) next() error {
	if len(r.stack) == 0 {
		r.state = stateDone
		return nil
	}
	top := &r.stack[len(r.stack)-1]
	if top.index == top.length {
		return r.leaveCompound()
	}

	var child ctfir.FieldType
	switch t := top.typ.(type) {
	case *ctfir.StructType:
		child = t.FieldByIndex(int(top.index)).Type
	case *ctfir.ArrayType:
		child = t.Elem
	case *ctfir.SequenceType:
		child = t.Elem
	case *ctfir.VariantType:
		child = top.selected
	}

	r.cur = child
	if isCompound(child) {
		r.state = stateAlignCompound
	} else {
		r.state = stateAlignBasic
	}
	return nil
}

func (r *Reader) leaveCompound() error {
	top := r.stack[len(r.stack)-1]
	if top.textual {
		if err := r.call(r.cb.StringEnd, top.typ); err != nil {
			return err
		}
	}
	if err := r.call(r.cb.CompoundEnd, top.typ); err != nil {
		return err
	}
	r.stack = r.stack[:len(r.stack)-1]
	if len(r.stack) == 0 {
		r.state = stateDone
		return nil
	}
	r.stack[len(r.stack)-1].index++
	r.state = stateNext
	return nil
}

func (r *Reader) callSigned(v int64, t ctfir.FieldType) error {
	if r.cb.SignedInt == nil {
		return nil
	}
	return r.cb.SignedInt(v, t)
}

func (r *Reader) callUnsigned(v uint64, t ctfir.FieldType) error {
	if r.cb.UnsignedInt == nil {
		return nil
	}
	return r.cb.UnsignedInt(v, t)
}

func (r *Reader) call(f func(ctfir.FieldType) error, t ctfir.FieldType) error {
	if f == nil {
		return nil
	}
	return f(t)
}

func (r *Reader) call2(f func([]byte, ctfir.FieldType) error, b []byte, t ctfir.FieldType) error {
	if f == nil {
		return nil
	}
	return f(b, t)
}
