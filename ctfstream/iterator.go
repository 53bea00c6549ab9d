// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctfstream decodes CTF data streams into notifications.
//
// An Iterator walks one data stream delivered by a Medium, decoding
// packet headers, packet contexts and events against a frozen ctfir
// trace, and yields StreamBegin, PacketBegin, Event, PacketEnd and
// StreamEnd notifications in order. Decoding is resumable: a medium
// that has no bytes right now returns ErrAgain and the iterator
// resumes exactly where it stopped on the next call.
package ctfstream // import "github.com/aclements/go-ctf/ctfstream"

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/aclements/go-ctf/ctfbtr"
	"github.com/aclements/go-ctf/ctfir"
)

// packetMagic is the value every packet header magic field must
// carry.
const packetMagic = 0xC1FC1FC1

// requestSize is the byte count requested from the medium at a time.
const requestSize = 4096

// Options configures an Iterator.
type Options struct {
	// Logger receives debug information about packet boundaries. Nil
	// means no logging.
	Logger *zap.Logger
}

type iterState int

const (
	stateInit iterState = iota
	statePacketHeaderBegin
	statePacketHeaderContinue
	stateAfterPacketHeader
	statePacketContextBegin
	statePacketContextContinue
	stateAfterPacketContext
	stateEmitStreamBegin
	stateEmitPacketBegin
	stateCheckContent
	stateEventHeaderBegin
	stateEventHeaderContinue
	stateAfterEventHeader
	stateEventCommonContextBegin
	stateEventCommonContextContinue
	stateEventSpecContextBegin
	stateEventSpecContextContinue
	stateEventPayloadBegin
	stateEventPayloadContinue
	stateEmitEvent
	stateEmitPacketEnd
	stateSkipPadding
	stateEmitStreamEnd
	stateDone
)

// A fieldFrame locates where the next decoded child lands in the
// field tree under construction: a compound field and the index of
// its next child.
type fieldFrame struct {
	field ctfir.Field
	index int
}

// An Iterator decodes one data stream into notifications.
//
// Typical usage is
//
//	it := ctfstream.NewIterator(trace, medium, nil)
//	for it.Next() {
//	    switch n := it.Notification.(type) {
//	      ...
//	    }
//	}
//	if err := it.Err(); err != nil { ... }
//
// Next returning false with a nil Err means the stream ended cleanly.
// An Err of ErrAgain is retryable: call Next again later and decoding
// resumes where it stopped.
type Iterator struct {
	// The current notification. Valid after Next returns true.
	Notification Notification

	trace  *ctfir.Trace
	medium Medium
	btr    *ctfbtr.Reader
	log    *zap.Logger

	state iterState
	err   error

	// Current buffer window from the medium, and the bit offset
	// of the cursor within it.
	buf     []byte
	headBit uint64

	// cursorBit is the absolute bit offset within the current
	// packet.
	cursorBit uint64

	sc          *ctfir.StreamClass
	ec          *ctfir.EventClass
	stream      *Stream
	packet      *Packet
	streamBegun bool

	dscopes    [ctfir.NumScopes]ctfir.Field
	curScope   ctfir.Scope
	fieldStack []fieldFrame

	// Values mirrored from integer meanings while decoding the
	// current packet. -1 means not seen.
	curStreamClassID int64
	curDataStreamID  int64
	curEventClassID  int64
	expTotalBits     int64
	expContentBits   int64

	beginTime, endTime       uint64
	hasBeginTime, hasEndTime bool
	discarded                uint64
	hasDiscarded             bool
	seqNum                   uint64
	hasSeqNum                bool

	defClock     uint64
	storedValues []uint64

	// Text assembly state: the string field currently receiving
	// bytes, if any.
	curText     *ctfir.StringField
	textSawZero bool
}

// NewIterator returns an iterator decoding medium m against a frozen
// trace.
func NewIterator(trace *ctfir.Trace, m Medium, opts *Options) *Iterator {
	log := zap.NewNop()
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}
	it := &Iterator{
		trace:        trace,
		medium:       m,
		log:          log,
		state:        stateInit,
		storedValues: make([]uint64, trace.StoredValueCount()),
	}
	it.btr = ctfbtr.New(ctfbtr.Callbacks{
		SignedInt:           it.onSignedInt,
		UnsignedInt:         it.onUnsignedInt,
		Float:               it.onFloat,
		StringBegin:         it.onStringBegin,
		String:              it.onString,
		StringEnd:           it.onStringEnd,
		CompoundBegin:       it.onCompoundBegin,
		CompoundEnd:         it.onCompoundEnd,
		SequenceLength:      it.onSequenceLength,
		VariantSelectedType: it.onVariantSelectedType,
	})
	return it
}

// Err returns the error that stopped the iterator. ErrAgain is
// retryable; a nil error after Next returns false means clean end of
// stream.
func (it *Iterator) Err() error {
	return it.err
}

// Next advances to the next notification. It returns true with
// Notification set, or false at end of stream, on ErrAgain, or on a
// fatal error; consult Err to tell these apart.
func (it *Iterator) Next() bool {
	if it.err != nil {
		if !errors.Is(it.err, ErrAgain) {
			return false
		}
		it.err = nil
	}
	for {
		n, err := it.step()
		if err != nil {
			it.err = err
			return false
		}
		if n != nil {
			it.Notification = n
			return true
		}
		if it.state == stateDone {
			return false
		}
	}
}

func (it *Iterator) step() (Notification, error) {
	switch it.state {
	case stateInit:
		it.state = statePacketHeaderBegin
		return nil, nil

	case statePacketHeaderBegin:
		return nil, it.packetBegin()
	case statePacketHeaderContinue:
		return nil, it.dscopeContinue(statePacketHeaderContinue, stateAfterPacketHeader)
	case stateAfterPacketHeader:
		return nil, it.afterPacketHeader()

	case statePacketContextBegin:
		var pc *ctfir.StructType
		if it.sc != nil {
			pc = it.sc.PacketContextType()
		}
		return nil, it.dscopeBegin(ctfir.ScopePacketContext, pc, statePacketContextContinue, stateAfterPacketContext)
	case statePacketContextContinue:
		return nil, it.dscopeContinue(statePacketContextContinue, stateAfterPacketContext)
	case stateAfterPacketContext:
		return nil, it.afterPacketContext()

	case stateEmitStreamBegin:
		it.streamBegun = true
		it.state = stateEmitPacketBegin
		return &StreamBegin{Stream: it.stream}, nil
	case stateEmitPacketBegin:
		it.log.Debug("packet begins",
			zap.Int64("totalSizeBits", it.packet.TotalSizeBits),
			zap.Int64("contentSizeBits", it.packet.ContentSizeBits))
		it.state = stateCheckContent
		return &PacketBegin{Packet: it.packet}, nil

	case stateCheckContent:
		return nil, it.checkContent()

	case stateEventHeaderBegin:
		it.clearEventScopes()
		var eh *ctfir.StructType
		if it.sc != nil {
			eh = it.sc.EventHeaderType()
		}
		return nil, it.dscopeBegin(ctfir.ScopeEventHeader, eh, stateEventHeaderContinue, stateAfterEventHeader)
	case stateEventHeaderContinue:
		return nil, it.dscopeContinue(stateEventHeaderContinue, stateAfterEventHeader)
	case stateAfterEventHeader:
		return nil, it.afterEventHeader()

	case stateEventCommonContextBegin:
		return nil, it.dscopeBegin(ctfir.ScopeEventCommonContext, it.sc.EventContextType(), stateEventCommonContextContinue, stateEventSpecContextBegin)
	case stateEventCommonContextContinue:
		return nil, it.dscopeContinue(stateEventCommonContextContinue, stateEventSpecContextBegin)

	case stateEventSpecContextBegin:
		return nil, it.dscopeBegin(ctfir.ScopeEventSpecContext, it.ec.ContextType(), stateEventSpecContextContinue, stateEventPayloadBegin)
	case stateEventSpecContextContinue:
		return nil, it.dscopeContinue(stateEventSpecContextContinue, stateEventPayloadBegin)

	case stateEventPayloadBegin:
		return nil, it.dscopeBegin(ctfir.ScopeEventPayload, it.ec.PayloadType(), stateEventPayloadContinue, stateEmitEvent)
	case stateEventPayloadContinue:
		return nil, it.dscopeContinue(stateEventPayloadContinue, stateEmitEvent)

	case stateEmitEvent:
		n := &Event{
			Class:         it.ec,
			ClockValue:    it.defClock,
			Header:        it.dscopes[ctfir.ScopeEventHeader],
			CommonContext: it.dscopes[ctfir.ScopeEventCommonContext],
			SpecContext:   it.dscopes[ctfir.ScopeEventSpecContext],
			Payload:       it.dscopes[ctfir.ScopeEventPayload],
			Packet:        it.packet,
		}
		it.state = stateCheckContent
		return n, nil

	case stateEmitPacketEnd:
		it.state = stateSkipPadding
		return &PacketEnd{Packet: it.packet}, nil

	case stateSkipPadding:
		return nil, it.skipPadding()

	case stateEmitStreamEnd:
		it.state = stateDone
		if !it.streamBegun {
			return nil, nil
		}
		return &StreamEnd{Stream: it.stream}, nil
	}
	return nil, nil
}

func (it *Iterator) availBits() uint64 {
	return uint64(len(it.buf))*8 - it.headBit
}

func (it *Iterator) bufEmpty() bool {
	return it.availBits() == 0
}

func (it *Iterator) advance(bits uint64) {
	it.headBit += bits
	it.cursorBit += bits
}

// refill replaces the exhausted buffer window with fresh bytes from
// the medium. io.EOF and ErrAgain pass through for the caller to
// interpret; other medium errors are wrapped.
func (it *Iterator) refill() error {
	b, err := it.medium.RequestBytes(requestSize)
	if err != nil {
		if err == io.EOF || errors.Is(err, ErrAgain) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMedium, err)
	}
	if len(b) == 0 {
		return fmt.Errorf("%w: medium returned an empty buffer", ErrMedium)
	}
	it.buf = b
	it.headBit = 0
	return nil
}

// resetPacket clears all per-packet decoding state.
func (it *Iterator) resetPacket() {
	it.cursorBit = 0
	it.expTotalBits = -1
	it.expContentBits = -1
	it.curStreamClassID = -1
	it.curDataStreamID = -1
	it.curEventClassID = -1
	it.hasBeginTime, it.hasEndTime = false, false
	it.hasDiscarded, it.hasSeqNum = false, false
	it.packet = nil
	it.ec = nil
	it.fieldStack = it.fieldStack[:0]
	it.curText = nil
	for i := range it.dscopes {
		it.dscopes[i] = nil
	}
}

// packetBegin starts a new packet: it verifies byte alignment,
// detects end of stream, then begins the packet header dscope.
func (it *Iterator) packetBegin() error {
	if it.headBit%8 != 0 {
		return fmt.Errorf("%w: packet does not begin on a byte boundary", ErrInvalidStream)
	}
	if it.bufEmpty() {
		if err := it.refill(); err != nil {
			if err == io.EOF {
				it.state = stateEmitStreamEnd
				return nil
			}
			return err
		}
	}
	it.resetPacket()
	it.log.Debug("starting packet")
	return it.dscopeBegin(ctfir.ScopePacketHeader, it.trace.PacketHeaderType(), statePacketHeaderContinue, stateAfterPacketHeader)
}

// dscopeBegin starts decoding one dynamic scope. A nil type skips
// straight to afterState.
func (it *Iterator) dscopeBegin(scope ctfir.Scope, st *ctfir.StructType, contState, afterState iterState) error {
	if st == nil {
		it.dscopes[scope] = nil
		it.state = afterState
		return nil
	}
	it.curScope = scope
	it.fieldStack = it.fieldStack[:0]
	it.curText = nil
	it.dscopes[scope] = ctfir.NewField(st)
	consumed, err := it.btr.Start(st, it.buf, it.headBit, it.cursorBit)
	it.advance(consumed)
	return it.handleDecodeResult(err, contState, afterState)
}

// dscopeContinue refills the buffer and resumes the in-progress
// dscope decode.
func (it *Iterator) dscopeContinue(contState, afterState iterState) error {
	if err := it.refill(); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: stream ends inside the %v scope", ErrInvalidStream, it.curScope)
		}
		return err
	}
	consumed, err := it.btr.Continue(it.buf)
	it.advance(consumed)
	return it.handleDecodeResult(err, contState, afterState)
}

func (it *Iterator) handleDecodeResult(err error, contState, afterState iterState) error {
	switch {
	case err == nil:
		it.state = afterState
		return nil
	case errors.Is(err, ctfbtr.ErrNeedMoreBytes):
		it.state = contState
		return nil
	default:
		return err
	}
}

func (it *Iterator) afterPacketHeader() error {
	sc, err := it.resolveStreamClass()
	if err != nil {
		return err
	}
	if it.sc != nil && sc != it.sc {
		return fmt.Errorf("%w: packet cites stream class %d, previous packets cite %d",
			ErrInvalidStream, sc.ID, it.sc.ID)
	}
	it.sc = sc

	if err := it.checkUUID(); err != nil {
		return err
	}
	it.state = statePacketContextBegin
	return nil
}

func (it *Iterator) resolveStreamClass() (*ctfir.StreamClass, error) {
	if it.curStreamClassID >= 0 {
		sc := it.trace.StreamClassByID(uint64(it.curStreamClassID))
		if sc == nil {
			return nil, fmt.Errorf("%w: unknown stream class ID %d", ErrInvalidStream, it.curStreamClassID)
		}
		return sc, nil
	}
	if it.trace.NumStreamClasses() == 1 {
		return it.trace.StreamClassByIndex(0), nil
	}
	return nil, fmt.Errorf("%w: packet header does not identify a stream class", ErrInvalidStream)
}

// checkUUID compares a decoded packet header uuid field against the
// trace UUID.
func (it *Iterator) checkUUID() error {
	if !it.trace.HasUUID {
		return nil
	}
	header, ok := it.dscopes[ctfir.ScopePacketHeader].(*ctfir.StructField)
	if !ok {
		return nil
	}
	af, ok := header.ByName("uuid").(*ctfir.ArrayField)
	if !ok || af.Len() != 16 {
		return nil
	}
	var got [16]byte
	for i := 0; i < 16; i++ {
		intf, ok := af.At(i).(*ctfir.IntField)
		if !ok {
			return nil
		}
		got[i] = byte(intf.Unsigned())
	}
	if got != it.trace.UUID {
		return fmt.Errorf("%w: packet uuid %x does not match trace uuid %v", ErrInvalidStream, got, it.trace.UUID)
	}
	return nil
}

func (it *Iterator) afterPacketContext() error {
	total, content := it.expTotalBits, it.expContentBits
	if total < 0 && content >= 0 {
		return fmt.Errorf("%w: packet declares a content size but no total size", ErrInvalidStream)
	}
	if content < 0 {
		content = total
	}
	if total >= 0 && content > total {
		return fmt.Errorf("%w: content size %d exceeds total size %d", ErrInvalidStream, content, total)
	}
	it.expTotalBits, it.expContentBits = total, content

	s, err := it.medium.Stream(it.sc, it.curDataStreamID)
	if err != nil {
		if errors.Is(err, ErrInvalidStream) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMedium, err)
	}
	if s == nil {
		return fmt.Errorf("%w: medium returned no stream", ErrMedium)
	}
	if it.stream != nil && s != it.stream {
		return fmt.Errorf("%w: medium changed the stream handle mid-sequence", ErrInvalidStream)
	}
	it.stream = s

	it.packet = &Packet{
		Stream:             s,
		Header:             it.dscopes[ctfir.ScopePacketHeader],
		Context:            it.dscopes[ctfir.ScopePacketContext],
		TotalSizeBits:      total,
		ContentSizeBits:    content,
		BeginTime:          it.beginTime,
		HasBeginTime:       it.hasBeginTime,
		EndTime:            it.endTime,
		HasEndTime:         it.hasEndTime,
		DiscardedEvents:    it.discarded,
		HasDiscardedEvents: it.hasDiscarded,
		SeqNum:             it.seqNum,
		HasSeqNum:          it.hasSeqNum,
	}
	if !it.streamBegun {
		it.state = stateEmitStreamBegin
	} else {
		it.state = stateEmitPacketBegin
	}
	return nil
}

// checkContent decides, before each event, whether the packet
// content is exhausted.
func (it *Iterator) checkContent() error {
	content := it.expContentBits
	if content >= 0 {
		switch {
		case int64(it.cursorBit) > content:
			return fmt.Errorf("%w: decoded %d bits past the packet content", ErrInvalidStream, int64(it.cursorBit)-content)
		case int64(it.cursorBit) == content:
			it.state = stateEmitPacketEnd
		default:
			it.state = stateEventHeaderBegin
		}
		return nil
	}

	// Unknown content size: the packet extends to the end of the
	// stream data.
	if it.bufEmpty() {
		if err := it.refill(); err != nil {
			if err == io.EOF {
				it.state = stateEmitPacketEnd
				return nil
			}
			return err
		}
	}
	it.state = stateEventHeaderBegin
	return nil
}

func (it *Iterator) clearEventScopes() {
	it.curEventClassID = -1
	it.ec = nil
	for _, s := range []ctfir.Scope{ctfir.ScopeEventHeader, ctfir.ScopeEventCommonContext, ctfir.ScopeEventSpecContext, ctfir.ScopeEventPayload} {
		it.dscopes[s] = nil
	}
}

func (it *Iterator) afterEventHeader() error {
	var ec *ctfir.EventClass
	if it.curEventClassID >= 0 {
		ec = it.sc.EventClassByID(uint64(it.curEventClassID))
		if ec == nil {
			return fmt.Errorf("%w: unknown event class ID %d", ErrInvalidStream, it.curEventClassID)
		}
	} else if it.sc.NumEventClasses() == 1 {
		ec = it.sc.EventClassByIndex(0)
	} else {
		return fmt.Errorf("%w: event header does not identify an event class", ErrInvalidStream)
	}
	it.ec = ec
	it.state = stateEventCommonContextBegin
	return nil
}

// skipPadding consumes the padding between the packet content and
// its total size.
func (it *Iterator) skipPadding() error {
	total := it.expTotalBits
	for total >= 0 && int64(it.cursorBit) < total {
		if it.bufEmpty() {
			if err := it.refill(); err != nil {
				if err == io.EOF {
					return fmt.Errorf("%w: stream ends inside packet padding", ErrInvalidStream)
				}
				return err
			}
		}
		take := uint64(total) - it.cursorBit
		if avail := it.availBits(); take > avail {
			take = avail
		}
		it.advance(take)
	}
	it.state = statePacketHeaderBegin
	return nil
}

// BTR callbacks. These route decoded values into the field tree of
// the current dynamic scope and mirror tagged integers into iterator
// state.

func (it *Iterator) topFrame() *fieldFrame {
	return &it.fieldStack[len(it.fieldStack)-1]
}

// borrowChild returns the field the next decoded item lands in.
func (it *Iterator) borrowChild() (ctfir.Field, error) {
	top := it.topFrame()
	switch f := top.field.(type) {
	case *ctfir.StructField:
		return f.At(top.index), nil
	case *ctfir.ArrayField:
		return f.At(top.index), nil
	case *ctfir.SequenceField:
		return f.At(top.index), nil
	case *ctfir.VariantField:
		return f.Current()
	}
	return nil, fmt.Errorf("ctfstream: cannot borrow child of %T", it.topFrame().field)
}

// setChild replaces the child the frame currently points at.
func setChild(frame *fieldFrame, child ctfir.Field) {
	switch f := frame.field.(type) {
	case *ctfir.StructField:
		f.SetAt(frame.index, child)
	case *ctfir.ArrayField:
		f.SetAt(frame.index, child)
	case *ctfir.SequenceField:
		f.SetAt(frame.index, child)
	case *ctfir.VariantField:
		f.SetCurrent(child)
	}
}

func (it *Iterator) onCompoundBegin(t ctfir.FieldType) error {
	if len(it.fieldStack) == 0 {
		it.fieldStack = append(it.fieldStack, fieldFrame{field: it.dscopes[it.curScope]})
		return nil
	}
	child, err := it.borrowChild()
	if err != nil {
		return err
	}
	it.fieldStack = append(it.fieldStack, fieldFrame{field: child})
	return nil
}

func (it *Iterator) onCompoundEnd(t ctfir.FieldType) error {
	it.fieldStack = it.fieldStack[:len(it.fieldStack)-1]
	if len(it.fieldStack) > 0 {
		it.topFrame().index++
	}
	return nil
}

func (it *Iterator) onStringBegin(t ctfir.FieldType) error {
	if t.Kind() == ctfir.KindString {
		child, err := it.borrowChild()
		if err != nil {
			return err
		}
		sf, ok := child.(*ctfir.StringField)
		if !ok {
			return fmt.Errorf("ctfstream: string value for %T field", child)
		}
		sf.Clear()
		it.curText = sf
		return nil
	}

	// A character array or sequence: replace the compound's field
	// with a synthetic string.
	text := ctfir.NewTextField(t)
	n := len(it.fieldStack)
	it.fieldStack[n-1].field = text
	setChild(&it.fieldStack[n-2], text)
	it.curText = text
	it.textSawZero = false
	return nil
}

func (it *Iterator) onString(b []byte, t ctfir.FieldType) error {
	it.curText.Append(b)
	return nil
}

func (it *Iterator) onStringEnd(t ctfir.FieldType) error {
	if t.Kind() == ctfir.KindString {
		it.topFrame().index++
	}
	it.curText = nil
	return nil
}

func (it *Iterator) onUnsignedInt(v uint64, t ctfir.FieldType) error {
	if err := it.handleIntValue(v, t); err != nil {
		return err
	}
	if it.curText != nil && t.Kind() == ctfir.KindInt {
		// A byte of a character array/sequence. Accumulation
		// stops at the terminator; the remaining bytes are
		// still consumed by the reader.
		if v == 0 {
			it.textSawZero = true
		} else if !it.textSawZero {
			it.curText.AppendByte(byte(v))
		}
		return nil
	}

	child, err := it.borrowChild()
	if err != nil {
		return err
	}
	switch f := child.(type) {
	case *ctfir.IntField:
		f.SetUnsigned(v)
	case *ctfir.EnumField:
		f.Container.SetUnsigned(v)
	default:
		return fmt.Errorf("ctfstream: unsigned integer value for %T field", child)
	}
	it.topFrame().index++
	return nil
}

func (it *Iterator) onSignedInt(v int64, t ctfir.FieldType) error {
	if err := it.handleIntValue(uint64(v), t); err != nil {
		return err
	}
	child, err := it.borrowChild()
	if err != nil {
		return err
	}
	switch f := child.(type) {
	case *ctfir.IntField:
		f.SetSigned(v)
	case *ctfir.EnumField:
		f.Container.SetSigned(v)
	default:
		return fmt.Errorf("ctfstream: signed integer value for %T field", child)
	}
	it.topFrame().index++
	return nil
}

func (it *Iterator) onFloat(v float64, t *ctfir.FloatType) error {
	child, err := it.borrowChild()
	if err != nil {
		return err
	}
	f, ok := child.(*ctfir.FloatField)
	if !ok {
		return fmt.Errorf("ctfstream: floating point value for %T field", child)
	}
	f.SetValue(v)
	it.topFrame().index++
	return nil
}

// handleIntValue mirrors a decoded integer into iterator state: its
// meaning slot, its stored-value slot, and the default clock.
func (it *Iterator) handleIntValue(v uint64, t ctfir.FieldType) error {
	var intT *ctfir.IntType
	switch ty := t.(type) {
	case *ctfir.IntType:
		intT = ty
	case *ctfir.EnumType:
		intT = ty.Container
	default:
		return nil
	}

	switch intT.Meaning {
	case ctfir.MeaningNone:
	case ctfir.MeaningMagic:
		if v != packetMagic {
			return fmt.Errorf("%w: bad packet magic number %#x", ErrInvalidStream, v)
		}
	case ctfir.MeaningStreamClassID:
		it.curStreamClassID = int64(v)
	case ctfir.MeaningDataStreamID:
		it.curDataStreamID = int64(v)
	case ctfir.MeaningEventClassID:
		it.curEventClassID = int64(v)
	case ctfir.MeaningPacketTotalSize:
		it.expTotalBits = int64(v)
	case ctfir.MeaningPacketContentSize:
		it.expContentBits = int64(v)
	case ctfir.MeaningPacketBeginTime:
		it.beginTime, it.hasBeginTime = v, true
	case ctfir.MeaningPacketEndTime:
		it.endTime, it.hasEndTime = v, true
	case ctfir.MeaningDiscardedEventCounter:
		it.discarded, it.hasDiscarded = v, true
	case ctfir.MeaningPacketCounter:
		it.seqNum, it.hasSeqNum = v, true
	}

	if intT.StoredValueIndex != ctfir.NoStoredValue {
		it.storedValues[intT.StoredValueIndex] = v
	}

	if intT.MappedClock != nil {
		it.updateClock(v, uint(intT.Size))
	}
	return nil
}

// updateClock folds a clock-mapped integer into the 64-bit default
// clock. A full-width value overwrites it; a narrower value replaces
// the low bits, wrapping the high bits forward when the new low bits
// are smaller than the old ones.
func (it *Iterator) updateClock(v uint64, size uint) {
	if size == 64 {
		it.defClock = v
		return
	}
	mask := uint64(1)<<size - 1
	low := it.defClock & mask
	cur := it.defClock &^ mask
	if v < low {
		cur += uint64(1) << size
	}
	it.defClock = cur | v
}

func (it *Iterator) onSequenceLength(t *ctfir.SequenceType) (int64, error) {
	if t.LengthType == nil || t.LengthType.StoredValueIndex == ctfir.NoStoredValue {
		return 0, fmt.Errorf("ctfstream: sequence %q has no resolved length", t.LengthName)
	}
	n := int64(it.storedValues[t.LengthType.StoredValueIndex])
	if f, ok := it.topFrame().field.(*ctfir.SequenceField); ok && !isTextElem(t.Elem) {
		if err := f.SetLength(n); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (it *Iterator) onVariantSelectedType(t *ctfir.VariantType) (ctfir.FieldType, error) {
	if t.TagType == nil || t.TagType.Container.StoredValueIndex == ctfir.NoStoredValue {
		return nil, fmt.Errorf("ctfstream: variant %q has no resolved tag", t.TagName)
	}
	tag := it.storedValues[t.TagType.Container.StoredValueIndex]
	i := t.OptionByTagValue(tag)
	if i < 0 {
		return nil, fmt.Errorf("%w: variant tag value %d matches no option of %q", ErrInvalidStream, tag, t.TagName)
	}
	vf, ok := it.topFrame().field.(*ctfir.VariantField)
	if !ok {
		return nil, fmt.Errorf("ctfstream: variant selection for %T field", it.topFrame().field)
	}
	if err := vf.Select(i); err != nil {
		return nil, err
	}
	return t.OptionByIndex(i).Type, nil
}

// isTextElem mirrors the reader's text-compound rule.
func isTextElem(elem ctfir.FieldType) bool {
	intT, ok := elem.(*ctfir.IntType)
	return ok && intT.Size == 8 && intT.Encoding != ctfir.EncodingNone
}
