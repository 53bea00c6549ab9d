// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctfmeta lowers a TSDL abstract syntax tree into the ctfir
// intermediate representation.
//
// The TSDL lexer and parser are external; this package consumes the
// AST node vocabulary defined in ast.go. Visiting follows a fixed
// order: trace byte order, clock blocks, root type declarations, env
// blocks, the trace block, stream blocks, then event blocks. Sequence
// lengths and variant tags are resolved into field paths as each
// scope root tree is completed.
package ctfmeta // import "github.com/aclements/go-ctf/ctfmeta"

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aclements/go-ctf/ctfir"
)

// Options configures a Visit call.
type Options struct {
	// Logger receives warnings about ignored metadata. Nil means
	// no logging.
	Logger *zap.Logger
}

// Visit lowers a metadata AST into a frozen trace IR.
//
// On error the returned trace is nil and any partially constructed
// types are discarded; the declaration scope stack does not leak
// across calls.
func Visit(root *Root, opts *Options) (*ctfir.Trace, error) {
	log := zap.NewNop()
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}
	v := &visitor{
		log:   log,
		trace: ctfir.NewTrace(),
		scope: newDeclScope(nil),
	}
	if err := v.visitRoot(root); err != nil {
		return nil, err
	}
	v.trace.Freeze()
	return v.trace, nil
}

type visitor struct {
	log   *zap.Logger
	trace *ctfir.Trace
	order ctfir.ByteOrder
	scope *declScope

	hasMajor, hasMinor bool
}

func zapKey(key string) zap.Field { return zap.String("key", key) }

func (v *visitor) pushScope() { v.scope = newDeclScope(v.scope) }
func (v *visitor) popScope()  { v.scope = v.scope.parent }

func (v *visitor) visitRoot(root *Root) error {
	// The trace byte order comes first: every other declaration
	// may depend on it.
	if err := v.findByteOrder(root); err != nil {
		return err
	}

	// Clock blocks next, so integer clock mappings resolve.
	for _, decl := range root.Decls {
		if cb, ok := decl.(*ClockBlock); ok {
			if err := v.visitClock(cb); err != nil {
				return err
			}
		}
	}

	// Root-level type declarations, in source order.
	for _, decl := range root.Decls {
		var err error
		switch d := decl.(type) {
		case *Typedef:
			err = v.visitTypedef(d)
		case *Typealias:
			err = v.visitTypealias(d)
		case *TypeDecl:
			err = v.visitMemberDecl(d, nil)
		}
		if err != nil {
			return err
		}
	}

	for _, decl := range root.Decls {
		if eb, ok := decl.(*EnvBlock); ok {
			if err := v.visitEnv(eb); err != nil {
				return err
			}
		}
	}

	traceSeen := false
	for _, decl := range root.Decls {
		if tb, ok := decl.(*TraceBlock); ok {
			if traceSeen {
				return fmt.Errorf("%w: multiple trace blocks", ErrInvalidMetadata)
			}
			traceSeen = true
			if err := v.visitTrace(tb); err != nil {
				return err
			}
		}
	}
	if !traceSeen {
		return fmt.Errorf("%w: missing trace block", ErrInvalidMetadata)
	}

	for _, decl := range root.Decls {
		if sb, ok := decl.(*StreamBlock); ok {
			if err := v.visitStream(sb); err != nil {
				return err
			}
		}
	}
	for _, decl := range root.Decls {
		if eb, ok := decl.(*EventBlock); ok {
			if err := v.visitEvent(eb); err != nil {
				return err
			}
		}
	}

	if v.trace.PacketHeaderType() == nil && v.trace.NumStreamClasses() > 1 {
		return fmt.Errorf("%w: multi-stream trace without a packet header", ErrInvalidMetadata)
	}
	return nil
}

// findByteOrder extracts trace.byte_order ahead of every other
// visit. native is rejected at trace level.
func (v *visitor) findByteOrder(root *Root) error {
	for _, decl := range root.Decls {
		tb, ok := decl.(*TraceBlock)
		if !ok {
			continue
		}
		for _, entry := range tb.Entries {
			e, ok := entry.(*CTFExpr)
			if !ok || e.RightType != nil {
				continue
			}
			key, err := exprKey(e)
			if err != nil || key != "byte_order" {
				continue
			}
			value, err := exprString(e)
			if err != nil {
				return err
			}
			switch value {
			case "be", "network":
				v.order = ctfir.ByteOrderBigEndian
			case "le":
				v.order = ctfir.ByteOrderLittleEndian
			case "native":
				return fmt.Errorf("%w: byte_order cannot be native at trace level", ErrInvalidMetadata)
			default:
				return fmt.Errorf("%w: invalid trace byte_order %q", ErrInvalidMetadata, value)
			}
			v.trace.Order = v.order
			return nil
		}
	}
	return fmt.Errorf("%w: missing trace.byte_order", ErrInvalidMetadata)
}

func (v *visitor) visitClock(cb *ClockBlock) error {
	var c *ctfir.Clock
	name := ""
	pending := make(map[string]*CTFExpr)
	for _, entry := range cb.Entries {
		e, ok := entry.(*CTFExpr)
		if !ok {
			return fmt.Errorf("%w: unexpected node in clock block", ErrInvalidMetadata)
		}
		key, err := exprKey(e)
		if err != nil {
			return err
		}
		if _, ok := pending[key]; ok {
			return fmt.Errorf("%w: duplicate clock attribute %q", ErrInvalidMetadata, key)
		}
		pending[key] = e
		if key == "name" {
			if name, err = exprString(e); err != nil {
				return err
			}
		}
	}
	if name == "" {
		return fmt.Errorf("%w: clock has no name", ErrInvalidMetadata)
	}
	c = ctfir.NewClock(name)

	for key, e := range pending {
		var err error
		switch key {
		case "name":
			// Done above.
		case "uuid":
			var s string
			if s, err = exprString(e); err == nil {
				var u uuid.UUID
				if u, err = uuid.Parse(s); err != nil {
					err = fmt.Errorf("%w: invalid clock uuid %q", ErrInvalidMetadata, s)
				} else {
					c.UUID = u
					c.HasUUID = true
				}
			}
		case "description":
			c.Description, err = exprString(e)
		case "freq":
			c.Frequency, err = exprUnsigned(e)
		case "precision":
			c.Precision, err = exprUnsigned(e)
		case "offset_s":
			c.OffsetSeconds, err = exprSigned(e)
		case "offset":
			c.OffsetCycles, err = exprUnsigned(e)
		case "absolute":
			c.Absolute, err = exprBool(e)
		default:
			v.log.Warn("ignoring unknown clock attribute", zapKey(key))
		}
		if err != nil {
			return err
		}
	}

	if err := v.trace.SetClock(c); err != nil {
		return fmt.Errorf("%w: only one clock per trace is supported", ErrNotImplemented)
	}
	return nil
}

// envKeys is the set of trace environment keys this reader stores.
var envKeys = map[string]bool{
	"hostname": true, "domain": true, "sysname": true,
	"kernel_release": true, "kernel_version": true,
	"tracer_name": true, "tracer_major": true, "tracer_minor": true,
	"tracer_patchlevel": true, "trace_name": true,
	"trace_creation_datetime": true, "trace_buffering_scheme": true,
	"procname": true, "vpid": true,
}

func (v *visitor) visitEnv(eb *EnvBlock) error {
	for _, entry := range eb.Entries {
		e, ok := entry.(*CTFExpr)
		if !ok {
			return fmt.Errorf("%w: unexpected node in env block", ErrInvalidMetadata)
		}
		key, err := exprKey(e)
		if err != nil {
			return err
		}
		if !envKeys[key] {
			v.log.Warn("ignoring unknown environment entry", zapKey(key))
			continue
		}
		if len(e.Right) == 1 && e.Right[0].Kind == UnaryString {
			v.trace.Environment[key] = e.Right[0].S
			continue
		}
		n, err := exprSigned(e)
		if err != nil {
			return fmt.Errorf("%w: environment entry %q is neither string nor integer", ErrInvalidMetadata, key)
		}
		v.trace.Environment[key] = n
	}
	return nil
}

func (v *visitor) visitTrace(tb *TraceBlock) error {
	v.pushScope()
	defer v.popScope()

	var packetHeader *ctfir.StructType
	seen := make(map[string]bool)
	for _, entry := range tb.Entries {
		var err error
		switch e := entry.(type) {
		case *Typedef:
			err = v.visitTypedef(e)
		case *Typealias:
			err = v.visitTypealias(e)
		case *CTFExpr:
			var key string
			if key, err = exprKey(e); err != nil {
				break
			}
			if seen[key] {
				err = fmt.Errorf("%w: duplicate trace attribute %q", ErrInvalidMetadata, key)
				break
			}
			seen[key] = true
			switch key {
			case "byte_order":
				// Validated by findByteOrder.
			case "major":
				v.trace.Major, err = exprUnsigned(e)
				v.hasMajor = true
			case "minor":
				v.trace.Minor, err = exprUnsigned(e)
				v.hasMinor = true
			case "uuid":
				var s string
				if s, err = exprString(e); err == nil {
					var u uuid.UUID
					if u, err = uuid.Parse(s); err != nil {
						err = fmt.Errorf("%w: invalid trace uuid %q", ErrInvalidMetadata, s)
					} else {
						v.trace.UUID = u
						v.trace.HasUUID = true
					}
				}
			case "packet.header":
				packetHeader, err = v.visitScopeRoot(e, "trace.packet.header")
			default:
				v.log.Warn("ignoring unknown trace attribute", zapKey(key))
			}
		default:
			err = fmt.Errorf("%w: unexpected node in trace block", ErrInvalidMetadata)
		}
		if err != nil {
			return err
		}
	}

	if !v.hasMajor || !v.hasMinor {
		return fmt.Errorf("%w: trace block needs major and minor", ErrInvalidMetadata)
	}

	if packetHeader != nil {
		applyMeanings(packetHeader, packetHeaderMeanings)
		ctx := &resolveContext{}
		ctx.scopes[ctfir.ScopePacketHeader] = packetHeader
		if err := v.resolveScopeTree(ctx, ctfir.ScopePacketHeader); err != nil {
			return err
		}
		if err := v.trace.SetPacketHeaderType(packetHeader); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	return nil
}

// visitScopeRoot lowers a `X := type` assignment whose type must be a
// structure.
func (v *visitor) visitScopeRoot(e *CTFExpr, what string) (*ctfir.StructType, error) {
	if e.RightType == nil {
		return nil, fmt.Errorf("%w: %s must be assigned a type", ErrInvalidMetadata, what)
	}
	ft, err := v.visitTypeSpecList(e.RightType)
	if err != nil {
		return nil, err
	}
	st, ok := ft.(*ctfir.StructType)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a structure", ErrInvalidMetadata, what)
	}
	return st, nil
}

// Well-known field names and the meanings they give top-level
// integer members.
var packetHeaderMeanings = map[string]ctfir.Meaning{
	"magic":              ctfir.MeaningMagic,
	"stream_id":          ctfir.MeaningStreamClassID,
	"stream_instance_id": ctfir.MeaningDataStreamID,
}

var packetContextMeanings = map[string]ctfir.Meaning{
	"packet_size":      ctfir.MeaningPacketTotalSize,
	"content_size":     ctfir.MeaningPacketContentSize,
	"timestamp_begin":  ctfir.MeaningPacketBeginTime,
	"timestamp_end":    ctfir.MeaningPacketEndTime,
	"events_discarded": ctfir.MeaningDiscardedEventCounter,
	"packet_seq_num":   ctfir.MeaningPacketCounter,
}

var eventHeaderMeanings = map[string]ctfir.Meaning{
	"id": ctfir.MeaningEventClassID,
}

func applyMeanings(st *ctfir.StructType, meanings map[string]ctfir.Meaning) {
	for i := 0; i < st.NumFields(); i++ {
		f := st.FieldByIndex(i)
		m, ok := meanings[f.Name]
		if !ok {
			continue
		}
		switch t := f.Type.(type) {
		case *ctfir.IntType:
			t.Meaning = m
		case *ctfir.EnumType:
			t.Container.Meaning = m
		}
	}
}

func (v *visitor) visitStream(sb *StreamBlock) error {
	v.pushScope()
	defer v.popScope()

	sc := ctfir.NewStreamClass()
	var packetContext, eventHeader, eventContext *ctfir.StructType
	seen := make(map[string]bool)
	for _, entry := range sb.Entries {
		var err error
		switch e := entry.(type) {
		case *Typedef:
			err = v.visitTypedef(e)
		case *Typealias:
			err = v.visitTypealias(e)
		case *CTFExpr:
			var key string
			if key, err = exprKey(e); err != nil {
				break
			}
			if seen[key] {
				err = fmt.Errorf("%w: duplicate stream attribute %q", ErrInvalidMetadata, key)
				break
			}
			seen[key] = true
			switch key {
			case "id":
				sc.ID, err = exprUnsigned(e)
				sc.HasID = true
			case "packet.context":
				packetContext, err = v.visitScopeRoot(e, "stream.packet.context")
			case "event.header":
				eventHeader, err = v.visitScopeRoot(e, "stream.event.header")
			case "event.context":
				eventContext, err = v.visitScopeRoot(e, "stream.event.context")
			default:
				v.log.Warn("ignoring unknown stream attribute", zapKey(key))
			}
		default:
			err = fmt.Errorf("%w: unexpected node in stream block", ErrInvalidMetadata)
		}
		if err != nil {
			return err
		}
	}

	if packetContext != nil {
		applyMeanings(packetContext, packetContextMeanings)
	}
	if eventHeader != nil {
		applyMeanings(eventHeader, eventHeaderMeanings)
	}

	ctx := &resolveContext{}
	ctx.scopes[ctfir.ScopePacketHeader] = scopeOrNil(v.trace.PacketHeaderType())
	ctx.scopes[ctfir.ScopePacketContext] = scopeOrNil(packetContext)
	ctx.scopes[ctfir.ScopeEventHeader] = scopeOrNil(eventHeader)
	ctx.scopes[ctfir.ScopeEventCommonContext] = scopeOrNil(eventContext)
	for _, scope := range []ctfir.Scope{ctfir.ScopePacketContext, ctfir.ScopeEventHeader, ctfir.ScopeEventCommonContext} {
		if err := v.resolveScopeTree(ctx, scope); err != nil {
			return err
		}
	}

	if packetContext != nil {
		if err := sc.SetPacketContextType(packetContext); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	if eventHeader != nil {
		if err := sc.SetEventHeaderType(eventHeader); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	if eventContext != nil {
		if err := sc.SetEventContextType(eventContext); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	if err := v.trace.AddStreamClass(sc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return nil
}

func (v *visitor) visitEvent(eb *EventBlock) error {
	v.pushScope()
	defer v.popScope()

	var (
		name             string
		id, streamID     uint64
		hasStreamID      bool
		context, payload *ctfir.StructType
	)
	seen := make(map[string]bool)
	for _, entry := range eb.Entries {
		var err error
		switch e := entry.(type) {
		case *Typedef:
			err = v.visitTypedef(e)
		case *Typealias:
			err = v.visitTypealias(e)
		case *CTFExpr:
			var key string
			if key, err = exprKey(e); err != nil {
				break
			}
			if seen[key] {
				err = fmt.Errorf("%w: duplicate event attribute %q", ErrInvalidMetadata, key)
				break
			}
			seen[key] = true
			switch key {
			case "name":
				name, err = exprString(e)
			case "id":
				id, err = exprUnsigned(e)
			case "stream_id":
				streamID, err = exprUnsigned(e)
				hasStreamID = true
			case "context":
				context, err = v.visitScopeRoot(e, "event.context")
			case "fields":
				payload, err = v.visitScopeRoot(e, "event.fields")
			default:
				v.log.Warn("ignoring unknown event attribute", zapKey(key))
			}
		default:
			err = fmt.Errorf("%w: unexpected node in event block", ErrInvalidMetadata)
		}
		if err != nil {
			return err
		}
	}

	if payload == nil {
		return fmt.Errorf("%w: event %q has no fields", ErrInvalidMetadata, name)
	}

	sc, err := v.eventStreamClass(streamID, hasStreamID)
	if err != nil {
		return err
	}

	ec := ctfir.NewEventClass(id, name)

	ctx := &resolveContext{}
	ctx.scopes[ctfir.ScopePacketHeader] = scopeOrNil(v.trace.PacketHeaderType())
	ctx.scopes[ctfir.ScopePacketContext] = scopeOrNil(sc.PacketContextType())
	ctx.scopes[ctfir.ScopeEventHeader] = scopeOrNil(sc.EventHeaderType())
	ctx.scopes[ctfir.ScopeEventCommonContext] = scopeOrNil(sc.EventContextType())
	ctx.scopes[ctfir.ScopeEventSpecContext] = scopeOrNil(context)
	ctx.scopes[ctfir.ScopeEventPayload] = scopeOrNil(payload)
	for _, scope := range []ctfir.Scope{ctfir.ScopeEventSpecContext, ctfir.ScopeEventPayload} {
		if err := v.resolveScopeTree(ctx, scope); err != nil {
			return err
		}
	}

	if context != nil {
		if err := ec.SetContextType(context); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	if err := ec.SetPayloadType(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := sc.AddEventClass(ec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return nil
}

// eventStreamClass finds the stream class an event block belongs to.
// Events without a stream_id attach to the only stream class, or to
// an implicit stream class 0 in a trace declaring none.
func (v *visitor) eventStreamClass(streamID uint64, hasStreamID bool) (*ctfir.StreamClass, error) {
	if hasStreamID {
		sc := v.trace.StreamClassByID(streamID)
		if sc == nil {
			return nil, fmt.Errorf("%w: event refers to unknown stream class %d", ErrInvalidMetadata, streamID)
		}
		return sc, nil
	}
	switch v.trace.NumStreamClasses() {
	case 0:
		sc := ctfir.NewStreamClass()
		if err := v.trace.AddStreamClass(sc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return sc, nil
	case 1:
		return v.trace.StreamClassByIndex(0), nil
	}
	return nil, fmt.Errorf("%w: event without stream_id in a multi-stream trace", ErrInvalidMetadata)
}

// scopeOrNil converts a possibly-nil *StructType to a FieldType
// without producing a non-nil interface around a nil pointer.
func scopeOrNil(st *ctfir.StructType) ctfir.FieldType {
	if st == nil {
		return nil
	}
	return st
}

// resolveScopeTree resolves every sequence length and variant tag
// reference in one scope root tree.
func (v *visitor) resolveScopeTree(ctx *resolveContext, scope ctfir.Scope) error {
	root := ctx.scopes[scope]
	if root == nil {
		return nil
	}
	ctx.curScope = scope
	ctx.stack = ctx.stack[:0]
	return v.resolveType(ctx, root)
}

func (v *visitor) resolveType(ctx *resolveContext, ft ctfir.FieldType) error {
	switch t := ft.(type) {
	case *ctfir.StructType:
		ctx.push(t, 0)
		for i := 0; i < t.NumFields(); i++ {
			ctx.setIndex(int64(i))
			if err := v.resolveType(ctx, t.FieldByIndex(i).Type); err != nil {
				return err
			}
		}
		ctx.pop()
	case *ctfir.VariantType:
		if err := v.resolveVariantTag(ctx, t); err != nil {
			return err
		}
		ctx.push(t, 0)
		for i := 0; i < t.NumOptions(); i++ {
			ctx.setIndex(int64(i))
			if err := v.resolveType(ctx, t.OptionByIndex(i).Type); err != nil {
				return err
			}
		}
		ctx.pop()
	case *ctfir.ArrayType:
		ctx.push(t, ctfir.CurrentElement)
		if err := v.resolveType(ctx, t.Elem); err != nil {
			return err
		}
		ctx.pop()
	case *ctfir.SequenceType:
		if err := v.resolveSequenceLength(ctx, t); err != nil {
			return err
		}
		ctx.push(t, ctfir.CurrentElement)
		if err := v.resolveType(ctx, t.Elem); err != nil {
			return err
		}
		ctx.pop()
	}
	return nil
}

func (v *visitor) resolveSequenceLength(ctx *resolveContext, t *ctfir.SequenceType) error {
	if t.LengthName == "" {
		return fmt.Errorf("%w: sequence has no length reference", ErrInvalidMetadata)
	}
	p, err := ctx.resolvePath(t.LengthName)
	if err != nil {
		return err
	}
	target, err := ctfir.LookupPath(ctx.scopes[p.Root], p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	it, ok := target.(*ctfir.IntType)
	if !ok || it.Signed {
		return fmt.Errorf("%w: sequence length %q is not an unsigned integer", ErrInvalidMetadata, t.LengthName)
	}
	if it.StoredValueIndex == ctfir.NoStoredValue {
		it.StoredValueIndex = v.trace.AllocStoredValue()
	}
	t.LengthPath = p
	t.LengthType = it
	return nil
}

func (v *visitor) resolveVariantTag(ctx *resolveContext, t *ctfir.VariantType) error {
	if t.TagName == "" {
		return fmt.Errorf("%w: variant has no tag reference", ErrInvalidMetadata)
	}
	p, err := ctx.resolvePath(t.TagName)
	if err != nil {
		return err
	}
	target, err := ctfir.LookupPath(ctx.scopes[p.Root], p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	et, ok := target.(*ctfir.EnumType)
	if !ok {
		return fmt.Errorf("%w: variant tag %q is not an enumeration", ErrInvalidMetadata, t.TagName)
	}
	for i := 0; i < t.NumOptions(); i++ {
		name := t.OptionByIndex(i).Name
		if !et.HasLabel(name) {
			return fmt.Errorf("%w: variant option %q is not a label of tag %q", ErrInvalidMetadata, name, t.TagName)
		}
	}
	if et.Container.StoredValueIndex == ctfir.NoStoredValue {
		et.Container.StoredValueIndex = v.trace.AllocStoredValue()
	}
	t.TagPath = p
	t.TagType = et
	return nil
}
