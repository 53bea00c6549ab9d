// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfstream

import "github.com/aclements/go-ctf/ctfir"

// A Notification is one element of the decoded stream. Determine
// which kind it is with a type switch. Within one iterator the order
// is fixed: a StreamBegin, then for each packet one PacketBegin, the
// packet's Events, and one PacketEnd, then a StreamEnd.
type Notification interface {
	notification()
}

// A Packet is one decoded packet: its header and context field trees
// plus the framing and snapshot values drawn from them. Sizes are in
// bits; -1 means the metadata does not declare them.
type Packet struct {
	Stream *Stream

	// Header and Context are the decoded packet header and packet
	// context structures. Either may be nil if the trace does not
	// declare them.
	Header  ctfir.Field
	Context ctfir.Field

	TotalSizeBits   int64
	ContentSizeBits int64

	BeginTime, EndTime       uint64
	HasBeginTime, HasEndTime bool
	DiscardedEvents          uint64
	HasDiscardedEvents       bool
	SeqNum                   uint64
	HasSeqNum                bool
}

// A StreamBegin notification precedes the first PacketBegin of a
// stream.
type StreamBegin struct {
	Stream *Stream
}

// A PacketBegin notification carries a fully decoded packet header
// and context.
type PacketBegin struct {
	Packet *Packet
}

// An Event notification is one decoded event. Header and the two
// context fields are nil when the metadata does not declare them.
type Event struct {
	Class *ctfir.EventClass

	// ClockValue is the reconstructed default clock value at this
	// event, 0 if the trace has no clock.
	ClockValue uint64

	Header        ctfir.Field
	CommonContext ctfir.Field
	SpecContext   ctfir.Field
	Payload       ctfir.Field

	Packet *Packet
}

// A PacketEnd notification closes the current packet.
type PacketEnd struct {
	Packet *Packet
}

// A StreamEnd notification follows the last PacketEnd at end of
// stream.
type StreamEnd struct {
	Stream *Stream
}

func (*StreamBegin) notification() {}
func (*PacketBegin) notification() {}
func (*Event) notification()       {}
func (*PacketEnd) notification()   {}
func (*StreamEnd) notification()   {}
