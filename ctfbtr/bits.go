// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfbtr

import (
	"encoding/binary"

	"github.com/aclements/go-ctf/ctfir"
)

// readBits extracts an n-bit integer from buf starting at bit offset
// off. Big-endian (and network) atoms consume bits from the MSB of
// each byte downward; little-endian atoms consume from the LSB
// upward, filling the result from its own LSB.
//
// Byte-aligned atoms of whole-byte sizes take the fast path through
// encoding/binary.
func readBits(buf []byte, off uint64, n uint, order ctfir.ByteOrder) uint64 {
	if off%8 == 0 && n%8 == 0 {
		return readBytes(buf[off/8:], n/8, order)
	}

	var v uint64
	switch order {
	case ctfir.ByteOrderLittleEndian:
		for k := uint64(0); k < uint64(n); k++ {
			pos := off + k
			bit := uint64(buf[pos/8]>>(pos%8)) & 1
			v |= bit << k
		}
	default: // big endian, network
		for k := uint64(0); k < uint64(n); k++ {
			pos := off + k
			bit := uint64(buf[pos/8]>>(7-pos%8)) & 1
			v = v<<1 | bit
		}
	}
	return v
}

func readBytes(buf []byte, nbytes uint, order ctfir.ByteOrder) uint64 {
	if order == ctfir.ByteOrderLittleEndian {
		switch nbytes {
		case 1:
			return uint64(buf[0])
		case 2:
			return uint64(binary.LittleEndian.Uint16(buf))
		case 4:
			return uint64(binary.LittleEndian.Uint32(buf))
		case 8:
			return binary.LittleEndian.Uint64(buf)
		}
		var v uint64
		for i := uint(0); i < nbytes; i++ {
			v |= uint64(buf[i]) << (8 * i)
		}
		return v
	}
	switch nbytes {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(buf))
	case 4:
		return uint64(binary.BigEndian.Uint32(buf))
	case 8:
		return binary.BigEndian.Uint64(buf)
	}
	var v uint64
	for i := uint(0); i < nbytes; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// signExtend interprets the low n bits of v as a two's complement
// integer.
func signExtend(v uint64, n uint) int64 {
	if n == 64 {
		return int64(v)
	}
	shift := 64 - n
	return int64(v<<shift) >> shift
}
