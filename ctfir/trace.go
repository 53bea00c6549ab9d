// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfir

import (
	"fmt"

	"github.com/google/uuid"
)

// A Trace is the root of the class IR: byte order, environment,
// clock, packet header layout and stream classes. It is immutable
// once Freeze has been called; frozen traces may be shared read-only
// by any number of iterators.
type Trace struct {
	Major, Minor uint64
	UUID         uuid.UUID
	HasUUID      bool

	// Order is the trace byte order. Never ByteOrderNative in a
	// visited trace.
	Order ByteOrder

	// Environment holds the env block. Values are string or
	// int64.
	Environment map[string]interface{}

	packetHeader  *StructType
	clock         *Clock
	streamClasses []*StreamClass
	streamByID    map[uint64]*StreamClass
	storedValues  int
	frozen        bool
}

func NewTrace() *Trace {
	return &Trace{
		Environment: make(map[string]interface{}),
		streamByID:  make(map[uint64]*StreamClass),
	}
}

func (t *Trace) Frozen() bool { return t.frozen }

// Freeze makes the trace and every class and type it owns immutable.
func (t *Trace) Freeze() {
	t.frozen = true
	if t.packetHeader != nil {
		t.packetHeader.Freeze()
	}
	if t.clock != nil {
		t.clock.frozen = true
	}
	for _, sc := range t.streamClasses {
		sc.freeze()
	}
}

// SetPacketHeaderType sets the trace packet header layout. The type
// freezes immediately.
func (t *Trace) SetPacketHeaderType(st *StructType) error {
	if t.frozen {
		return fmt.Errorf("ctfir: trace is frozen")
	}
	st.Freeze()
	t.packetHeader = st
	return nil
}

func (t *Trace) PacketHeaderType() *StructType { return t.packetHeader }

// SetClock installs the trace's clock. Only a single clock per trace
// is supported.
func (t *Trace) SetClock(c *Clock) error {
	if t.frozen {
		return fmt.Errorf("ctfir: trace is frozen")
	}
	if t.clock != nil {
		return fmt.Errorf("ctfir: trace already has clock %q", t.clock.Name)
	}
	t.clock = c
	return nil
}

// Clock returns the trace clock, or nil.
func (t *Trace) Clock() *Clock { return t.clock }

// AddStreamClass registers a stream class under its ID.
func (t *Trace) AddStreamClass(sc *StreamClass) error {
	if t.frozen {
		return fmt.Errorf("ctfir: trace is frozen")
	}
	if _, ok := t.streamByID[sc.ID]; ok {
		return fmt.Errorf("ctfir: duplicate stream class ID %d", sc.ID)
	}
	sc.trace = t
	t.streamByID[sc.ID] = sc
	t.streamClasses = append(t.streamClasses, sc)
	return nil
}

func (t *Trace) NumStreamClasses() int                 { return len(t.streamClasses) }
func (t *Trace) StreamClassByIndex(i int) *StreamClass { return t.streamClasses[i] }

func (t *Trace) StreamClassByID(id uint64) *StreamClass { return t.streamByID[id] }

// AllocStoredValue reserves one stored-value slot and returns its
// index. Slots hold integers that sequences and variants consult
// during decoding.
func (t *Trace) AllocStoredValue() int {
	i := t.storedValues
	t.storedValues++
	return i
}

// StoredValueCount returns the number of reserved stored-value slots.
func (t *Trace) StoredValueCount() int { return t.storedValues }

// A StreamClass describes one class of data streams: its per-packet
// context layout and per-event header and context layouts, plus the
// event classes that can occur in its packets.
type StreamClass struct {
	ID    uint64
	HasID bool

	packetContext *StructType
	eventHeader   *StructType
	eventContext  *StructType // stream-wide event context

	trace        *Trace
	eventClasses []*EventClass
	eventByID    map[uint64]*EventClass
	frozen       bool
}

func NewStreamClass() *StreamClass {
	return &StreamClass{eventByID: make(map[uint64]*EventClass)}
}

func (sc *StreamClass) Trace() *Trace { return sc.trace }

func (sc *StreamClass) freeze() {
	sc.frozen = true
	for _, st := range []*StructType{sc.packetContext, sc.eventHeader, sc.eventContext} {
		if st != nil {
			st.Freeze()
		}
	}
	for _, ec := range sc.eventClasses {
		ec.freeze()
	}
}

// SetPacketContextType sets the packet context layout and freezes it.
func (sc *StreamClass) SetPacketContextType(st *StructType) error {
	if sc.frozen {
		return fmt.Errorf("ctfir: stream class is frozen")
	}
	st.Freeze()
	sc.packetContext = st
	return nil
}

// SetEventHeaderType sets the event header layout and freezes it.
func (sc *StreamClass) SetEventHeaderType(st *StructType) error {
	if sc.frozen {
		return fmt.Errorf("ctfir: stream class is frozen")
	}
	st.Freeze()
	sc.eventHeader = st
	return nil
}

// SetEventContextType sets the stream-wide event context layout and
// freezes it.
func (sc *StreamClass) SetEventContextType(st *StructType) error {
	if sc.frozen {
		return fmt.Errorf("ctfir: stream class is frozen")
	}
	st.Freeze()
	sc.eventContext = st
	return nil
}

func (sc *StreamClass) PacketContextType() *StructType { return sc.packetContext }
func (sc *StreamClass) EventHeaderType() *StructType   { return sc.eventHeader }
func (sc *StreamClass) EventContextType() *StructType  { return sc.eventContext }

// AddEventClass registers an event class under its ID.
func (sc *StreamClass) AddEventClass(ec *EventClass) error {
	if sc.frozen {
		return fmt.Errorf("ctfir: stream class is frozen")
	}
	if _, ok := sc.eventByID[ec.ID]; ok {
		return fmt.Errorf("ctfir: duplicate event class ID %d", ec.ID)
	}
	ec.stream = sc
	if ec.context != nil {
		ec.context.Freeze()
	}
	if ec.payload != nil {
		ec.payload.Freeze()
	}
	sc.eventByID[ec.ID] = ec
	sc.eventClasses = append(sc.eventClasses, ec)
	return nil
}

func (sc *StreamClass) NumEventClasses() int                { return len(sc.eventClasses) }
func (sc *StreamClass) EventClassByIndex(i int) *EventClass { return sc.eventClasses[i] }

func (sc *StreamClass) EventClassByID(id uint64) *EventClass { return sc.eventByID[id] }

// An EventClass describes one kind of event: its name, its optional
// per-event context layout and its payload layout.
type EventClass struct {
	ID   uint64
	Name string

	context *StructType
	payload *StructType

	stream *StreamClass
	frozen bool
}

func NewEventClass(id uint64, name string) *EventClass {
	return &EventClass{ID: id, Name: name}
}

func (ec *EventClass) StreamClass() *StreamClass { return ec.stream }

func (ec *EventClass) freeze() { ec.frozen = true }

// SetContextType sets the event-specific context layout.
func (ec *EventClass) SetContextType(st *StructType) error {
	if ec.frozen {
		return fmt.Errorf("ctfir: event class is frozen")
	}
	ec.context = st
	return nil
}

// SetPayloadType sets the payload layout.
func (ec *EventClass) SetPayloadType(st *StructType) error {
	if ec.frozen {
		return fmt.Errorf("ctfir: event class is frozen")
	}
	ec.payload = st
	return nil
}

func (ec *EventClass) ContextType() *StructType { return ec.context }
func (ec *EventClass) PayloadType() *StructType { return ec.payload }

// ScopeType returns the root field type of a dynamic scope for a
// given (trace, stream class, event class) combination. Any of the
// three may be nil; missing scopes return nil.
func ScopeType(t *Trace, sc *StreamClass, ec *EventClass, scope Scope) FieldType {
	// A nil *StructType inside a FieldType interface would not
	// compare equal to nil, so each case returns explicitly.
	switch scope {
	case ScopePacketHeader:
		if t == nil || t.packetHeader == nil {
			return nil
		}
		return t.packetHeader
	case ScopePacketContext:
		if sc == nil || sc.packetContext == nil {
			return nil
		}
		return sc.packetContext
	case ScopeEventHeader:
		if sc == nil || sc.eventHeader == nil {
			return nil
		}
		return sc.eventHeader
	case ScopeEventCommonContext:
		if sc == nil || sc.eventContext == nil {
			return nil
		}
		return sc.eventContext
	case ScopeEventSpecContext:
		if ec == nil || ec.context == nil {
			return nil
		}
		return ec.context
	case ScopeEventPayload:
		if ec == nil || ec.payload == nil {
			return nil
		}
		return ec.payload
	}
	return nil
}

// A Clock describes the single per-trace clock. Clock-mapped integer
// fields update the iterator's reconstructed clock value as they are
// decoded.
type Clock struct {
	Name        string
	UUID        uuid.UUID
	HasUUID     bool
	Description string

	// Frequency in Hz. 1000000000 means cycles are nanoseconds.
	Frequency uint64

	Precision     uint64
	OffsetSeconds int64
	OffsetCycles  uint64
	Absolute      bool

	frozen bool
}

func NewClock(name string) *Clock {
	return &Clock{Name: name, Frequency: 1000000000}
}

func (c *Clock) Frozen() bool { return c.frozen }
