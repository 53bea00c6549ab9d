// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfstream

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aclements/go-ctf/ctfir"
)

// bytesMedium serves a byte slice in fixed-size chunks.
type bytesMedium struct {
	data  []byte
	off   int
	chunk int

	streams streamCache
}

func newBytesMedium(data []byte, chunk int) *bytesMedium {
	return &bytesMedium{data: data, chunk: chunk}
}

func (m *bytesMedium) RequestBytes(max int) ([]byte, error) {
	if m.off >= len(m.data) {
		return nil, io.EOF
	}
	n := max
	if m.chunk > 0 && n > m.chunk {
		n = m.chunk
	}
	if m.off+n > len(m.data) {
		n = len(m.data) - m.off
	}
	b := m.data[m.off : m.off+n]
	m.off += n
	return b, nil
}

func (m *bytesMedium) Stream(sc *ctfir.StreamClass, id int64) (*Stream, error) {
	return m.streams.Stream(sc, id)
}

// againMedium injects an ErrAgain before every successful request.
type againMedium struct {
	inner *bytesMedium
	again bool
}

func (m *againMedium) RequestBytes(max int) ([]byte, error) {
	m.again = !m.again
	if m.again {
		return nil, ErrAgain
	}
	return m.inner.RequestBytes(max)
}

func (m *againMedium) Stream(sc *ctfir.StreamClass, id int64) (*Stream, error) {
	return m.inner.Stream(sc, id)
}

func beInt(t *testing.T, size uint) *ctfir.IntType {
	t.Helper()
	it, err := ctfir.NewIntType(size)
	require.NoError(t, err)
	it.Order = ctfir.ByteOrderBigEndian
	return it
}

func leInt(t *testing.T, size uint) *ctfir.IntType {
	t.Helper()
	it, err := ctfir.NewIntType(size)
	require.NoError(t, err)
	it.Order = ctfir.ByteOrderLittleEndian
	return it
}

func newStruct(t *testing.T, members ...interface{}) *ctfir.StructType {
	t.Helper()
	st, err := ctfir.NewStructType(1)
	require.NoError(t, err)
	for i := 0; i < len(members); i += 2 {
		require.NoError(t, st.AddField(members[i].(string), members[i+1].(ctfir.FieldType)))
	}
	return st
}

// buildTrace assembles a single-stream, single-event-class trace.
// Any of the layout structs may be nil.
func buildTrace(t *testing.T, header, context, eventHeader, payload *ctfir.StructType) *ctfir.Trace {
	t.Helper()
	tr := ctfir.NewTrace()
	tr.Order = ctfir.ByteOrderBigEndian
	tr.Major, tr.Minor = 1, 8
	if header != nil {
		require.NoError(t, tr.SetPacketHeaderType(header))
	}
	sc := ctfir.NewStreamClass()
	if context != nil {
		require.NoError(t, sc.SetPacketContextType(context))
	}
	if eventHeader != nil {
		require.NoError(t, sc.SetEventHeaderType(eventHeader))
	}
	require.NoError(t, tr.AddStreamClass(sc))
	ec := ctfir.NewEventClass(0, "stuff")
	require.NoError(t, ec.SetPayloadType(payload))
	require.NoError(t, sc.AddEventClass(ec))
	tr.Freeze()
	return tr
}

func magicInt(t *testing.T) *ctfir.IntType {
	m := beInt(t, 32)
	m.Meaning = ctfir.MeaningMagic
	return m
}

func sizeInts(t *testing.T) (*ctfir.IntType, *ctfir.IntType) {
	total := beInt(t, 32)
	total.Meaning = ctfir.MeaningPacketTotalSize
	content := beInt(t, 32)
	content.Meaning = ctfir.MeaningPacketContentSize
	return total, content
}

func eventIDInt(t *testing.T) *ctfir.IntType {
	id := beInt(t, 8)
	id.Meaning = ctfir.MeaningEventClassID
	return id
}

// collect drains the iterator, retrying on ErrAgain.
func collect(t *testing.T, it *Iterator) []Notification {
	t.Helper()
	var out []Notification
	for {
		if it.Next() {
			out = append(out, it.Notification)
			continue
		}
		if errors.Is(it.Err(), ErrAgain) {
			continue
		}
		return out
	}
}

// singleEventTrace is the minimal single-event layout: a magic-only
// packet header, a sizes-only packet context, a one-byte event header
// and a u32 little-endian payload.
func singleEventTrace(t *testing.T) *ctfir.Trace {
	total, content := sizeInts(t)
	return buildTrace(t,
		newStruct(t, "magic", magicInt(t)),
		newStruct(t, "packet_size", total, "content_size", content),
		newStruct(t, "id", eventIDInt(t)),
		newStruct(t, "n", leInt(t, 32)),
	)
}

// singleEventBytes is one 160-bit packet: header 32, context 64,
// event header 8, payload 32, padding 24.
var singleEventBytes = []byte{
	0xC1, 0xFC, 0x1F, 0xC1, // magic
	0x00, 0x00, 0x00, 0xA0, // packet_size = 160
	0x00, 0x00, 0x00, 0x88, // content_size = 136
	0x00,                   // event ID 0
	0x2A, 0x00, 0x00, 0x00, // n = 42 LE
	0x00, 0x00, 0x00, // padding
}

func TestSingleEventPacket(t *testing.T) {
	tr := singleEventTrace(t)
	it := NewIterator(tr, newBytesMedium(singleEventBytes, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Len(t, ns, 5)

	require.IsType(t, &StreamBegin{}, ns[0])
	pb := ns[1].(*PacketBegin)
	require.Equal(t, int64(160), pb.Packet.TotalSizeBits)
	require.Equal(t, int64(136), pb.Packet.ContentSizeBits)
	hdr := pb.Packet.Header.(*ctfir.StructField)
	require.Equal(t, uint64(0xC1FC1FC1), hdr.ByName("magic").(*ctfir.IntField).Unsigned())

	ev := ns[2].(*Event)
	require.Equal(t, uint64(0), ev.Class.ID)
	payload := ev.Payload.(*ctfir.StructField)
	require.Equal(t, uint64(42), payload.ByName("n").(*ctfir.IntField).Unsigned())

	require.IsType(t, &PacketEnd{}, ns[3])
	require.IsType(t, &StreamEnd{}, ns[4])
}

func TestSingleEventPacketOneByteChunks(t *testing.T) {
	// The same stream fed one byte at a time exercises every
	// stitch and refill path and decodes identically.
	tr := singleEventTrace(t)
	it := NewIterator(tr, newBytesMedium(singleEventBytes, 1), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Len(t, ns, 5)
	ev := ns[2].(*Event)
	require.Equal(t, uint64(42), ev.Payload.(*ctfir.StructField).ByName("n").(*ctfir.IntField).Unsigned())
}

func TestAgainPropagation(t *testing.T) {
	tr := singleEventTrace(t)
	m := &againMedium{inner: newBytesMedium(singleEventBytes, 4)}
	it := NewIterator(tr, m, nil)

	sawAgain := false
	var ns []Notification
	for {
		if it.Next() {
			ns = append(ns, it.Notification)
			continue
		}
		if errors.Is(it.Err(), ErrAgain) {
			sawAgain = true
			continue
		}
		break
	}
	require.NoError(t, it.Err())
	require.True(t, sawAgain, "medium again must surface through the iterator")
	require.Len(t, ns, 5)
	require.Equal(t, uint64(42),
		ns[2].(*Event).Payload.(*ctfir.StructField).ByName("n").(*ctfir.IntField).Unsigned())
}

func TestVariantSelection(t *testing.T) {
	tr := ctfir.NewTrace()
	tr.Order = ctfir.ByteOrderBigEndian

	kindC := beInt(t, 8)
	kindC.StoredValueIndex = tr.AllocStoredValue()
	kind, err := ctfir.NewEnumType(kindC)
	require.NoError(t, err)
	require.NoError(t, kind.AddMapping("A", 0, 0))
	require.NoError(t, kind.AddMapping("B", 1, 1))

	vt := ctfir.NewVariantType("kind")
	require.NoError(t, vt.AddOption("A", beInt(t, 16)))
	require.NoError(t, vt.AddOption("B", leInt(t, 32)))
	vt.TagType = kind
	vt.TagPath = &ctfir.FieldPath{Root: ctfir.ScopeEventPayload, Indexes: []int64{0}}

	payload := newStruct(t, "kind", kind, "v", vt)

	sc := ctfir.NewStreamClass()
	require.NoError(t, tr.AddStreamClass(sc))
	ec := ctfir.NewEventClass(0, "v")
	require.NoError(t, ec.SetPayloadType(payload))
	require.NoError(t, sc.AddEventClass(ec))
	tr.Freeze()

	it := NewIterator(tr, newBytesMedium([]byte{0x01, 0xAA, 0xBB, 0xCC, 0xDD}, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Len(t, ns, 5)

	ev := ns[2].(*Event)
	pf := ev.Payload.(*ctfir.StructField)
	label, ok := pf.ByName("kind").(*ctfir.EnumField).Label()
	require.True(t, ok)
	require.Equal(t, "B", label)
	vf := pf.ByName("v").(*ctfir.VariantField)
	require.Equal(t, 1, vf.SelectedIndex())
	cur, err := vf.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(0xDDCCBBAA), cur.(*ctfir.IntField).Unsigned())
}

func TestSequenceLength(t *testing.T) {
	tr := ctfir.NewTrace()
	tr.Order = ctfir.ByteOrderBigEndian

	lenT := beInt(t, 8)
	lenT.StoredValueIndex = tr.AllocStoredValue()
	seq := ctfir.NewSequenceType("len", beInt(t, 16))
	seq.LengthType = lenT
	seq.LengthPath = &ctfir.FieldPath{Root: ctfir.ScopeEventPayload, Indexes: []int64{0}}
	payload := newStruct(t, "len", lenT, "data", seq)

	sc := ctfir.NewStreamClass()
	require.NoError(t, tr.AddStreamClass(sc))
	ec := ctfir.NewEventClass(0, "seq")
	require.NoError(t, ec.SetPayloadType(payload))
	require.NoError(t, sc.AddEventClass(ec))
	tr.Freeze()

	it := NewIterator(tr, newBytesMedium([]byte{3, 0, 1, 0, 2, 0, 3}, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())

	ev := ns[2].(*Event)
	data := ev.Payload.(*ctfir.StructField).ByName("data").(*ctfir.SequenceField)
	require.Equal(t, 3, data.Len())
	for i, want := range []uint64{1, 2, 3} {
		require.Equal(t, want, data.At(i).(*ctfir.IntField).Unsigned())
	}
}

func TestClockWrap(t *testing.T) {
	tr := ctfir.NewTrace()
	tr.Order = ctfir.ByteOrderBigEndian
	clock := ctfir.NewClock("mono")
	require.NoError(t, tr.SetClock(clock))

	total, content := sizeInts(t)
	ts, err := ctfir.NewIntType(27)
	require.NoError(t, err)
	ts.Order = ctfir.ByteOrderBigEndian
	ts.MappedClock = clock

	context := newStruct(t, "packet_size", total, "content_size", content)
	payload := newStruct(t, "ts", ts)

	sc := ctfir.NewStreamClass()
	require.NoError(t, sc.SetPacketContextType(context))
	require.NoError(t, tr.AddStreamClass(sc))
	ec := ctfir.NewEventClass(0, "tick")
	require.NoError(t, ec.SetPayloadType(payload))
	require.NoError(t, sc.AddEventClass(ec))
	tr.Freeze()

	// context 64 bits, then two 27-bit timestamps 0x7FFFFFF and
	// 0x0000001 packed back to back, then padding to 128 bits.
	data := []byte{
		0x00, 0x00, 0x00, 0x80, // packet_size = 128
		0x00, 0x00, 0x00, 0x76, // content_size = 118
		0xFF, 0xFF, 0xFF, 0xE0, 0x00, 0x00, 0x04,
		0x00,
	}
	it := NewIterator(tr, newBytesMedium(data, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Len(t, ns, 6) // stream begin, packet begin, 2 events, packet end, stream end

	require.Equal(t, uint64(0x07FFFFFF), ns[2].(*Event).ClockValue)
	require.Equal(t, uint64(0x08000001), ns[3].(*Event).ClockValue,
		"a smaller narrow value advances the clock past the wrap")
}

func TestPaddingSkipBetweenPackets(t *testing.T) {
	total, content := sizeInts(t)
	tr := buildTrace(t,
		nil,
		newStruct(t, "packet_size", total, "content_size", content),
		nil,
		newStruct(t, "unused", beInt(t, 8)),
	)

	// Two empty packets: total 128 bits, content 64 bits, so 64
	// bits of padding each.
	packet := []byte{
		0x00, 0x00, 0x00, 0x80,
		0x00, 0x00, 0x00, 0x40,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	data := append(append([]byte(nil), packet...), packet...)

	it := NewIterator(tr, newBytesMedium(data, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Len(t, ns, 6)
	require.IsType(t, &StreamBegin{}, ns[0])
	require.IsType(t, &PacketBegin{}, ns[1])
	require.IsType(t, &PacketEnd{}, ns[2])
	require.IsType(t, &PacketBegin{}, ns[3])
	require.IsType(t, &PacketEnd{}, ns[4])
	require.IsType(t, &StreamEnd{}, ns[5])
}

func TestTextFields(t *testing.T) {
	name := beInt(t, 8)
	name.Encoding = ctfir.EncodingUTF8
	payload := newStruct(t,
		"tag", ctfir.NewArrayType(4, name),
		"msg", ctfir.NewStringType(ctfir.EncodingUTF8),
	)
	tr := buildTrace(t, nil, nil, nil, payload)

	data := []byte{'o', 'k', 0, 'x', 'h', 'i', 0}
	it := NewIterator(tr, newBytesMedium(data, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())

	pf := ns[2].(*Event).Payload.(*ctfir.StructField)
	require.Equal(t, "ok", pf.ByName("tag").(*ctfir.StringField).Value(),
		"text accumulation stops at the terminator")
	require.Equal(t, "hi", pf.ByName("msg").(*ctfir.StringField).Value())
}

func TestMagicMismatch(t *testing.T) {
	tr := singleEventTrace(t)
	bad := append([]byte(nil), singleEventBytes...)
	bad[0] = 0xDE
	it := NewIterator(tr, newBytesMedium(bad, 0), nil)
	for it.Next() {
	}
	require.ErrorIs(t, it.Err(), ErrInvalidStream)
}

func TestContentExceedsTotal(t *testing.T) {
	tr := singleEventTrace(t)
	bad := append([]byte(nil), singleEventBytes...)
	bad[11] = 0xFF // content_size = 0x000000FF > total
	it := NewIterator(tr, newBytesMedium(bad, 0), nil)
	for it.Next() {
	}
	require.ErrorIs(t, it.Err(), ErrInvalidStream)
}

func TestTruncatedField(t *testing.T) {
	tr := singleEventTrace(t)
	it := NewIterator(tr, newBytesMedium(singleEventBytes[:6], 0), nil)
	for it.Next() {
	}
	require.ErrorIs(t, it.Err(), ErrInvalidStream)
}

func TestUnknownEventClass(t *testing.T) {
	tr := singleEventTrace(t)
	bad := append([]byte(nil), singleEventBytes...)
	bad[12] = 9 // event ID with no class
	it := NewIterator(tr, newBytesMedium(bad, 0), nil)
	for it.Next() {
	}
	require.ErrorIs(t, it.Err(), ErrInvalidStream)
}

func TestEmptyStream(t *testing.T) {
	tr := singleEventTrace(t)
	it := NewIterator(tr, newBytesMedium(nil, 0), nil)
	require.False(t, it.Next())
	require.NoError(t, it.Err(), "an empty medium is a clean end with no notifications")
}

func TestUUIDCheck(t *testing.T) {
	u8 := beInt(t, 8)
	header := newStruct(t,
		"magic", magicInt(t),
		"uuid", ctfir.NewArrayType(16, u8),
	)
	payload := newStruct(t, "n", beInt(t, 8))
	tr := buildTrace(t, header, nil, nil, payload)
	tr.HasUUID = true
	for i := range tr.UUID {
		tr.UUID[i] = byte(i)
	}

	data := []byte{0xC1, 0xFC, 0x1F, 0xC1}
	for i := 0; i < 16; i++ {
		data = append(data, byte(i))
	}
	data = append(data, 0x07)
	it := NewIterator(tr, newBytesMedium(data, 0), nil)
	ns := collect(t, it)
	require.NoError(t, it.Err())
	require.Equal(t, uint64(7),
		ns[2].(*Event).Payload.(*ctfir.StructField).ByName("n").(*ctfir.IntField).Unsigned())

	// Flip one uuid byte and the packet is rejected.
	bad := append([]byte(nil), data...)
	bad[5] ^= 0xFF
	it = NewIterator(tr, newBytesMedium(bad, 0), nil)
	for it.Next() {
	}
	require.ErrorIs(t, it.Err(), ErrInvalidStream)
}
