// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfstream

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/aclements/go-ctf/ctfir"
)

// ErrAgain is returned by a medium that has no bytes right now but
// may have some later, and propagates unchanged through the iterator.
// The caller retries; all state is preserved.
var ErrAgain = errors.New("ctfstream: try again")

// A Medium is the byte source an iterator decodes from.
//
// Implementations are single-consumer: one iterator owns one medium.
type Medium interface {
	// RequestBytes returns the next run of bytes from the
	// medium's cursor, at most max, at least one, and advances
	// the cursor. It returns io.EOF when the source is exhausted
	// and ErrAgain when the caller should retry later.
	RequestBytes(max int) ([]byte, error)

	// Stream resolves the identity decoded from a packet header
	// to a stream handle. id is -1 when the packet header carries
	// no stream instance ID. The same handle must be returned for
	// every packet of one sequence.
	Stream(sc *ctfir.StreamClass, id int64) (*Stream, error)
}

// A MediumSeeker is a Medium that can reposition its cursor.
type MediumSeeker interface {
	Medium
	Seek(offset int64, whence int) (int64, error)
}

// A Stream is one data stream: the concrete instance a sequence of
// packets belongs to.
type Stream struct {
	Class *ctfir.StreamClass
	ID    int64
}

// streamCache implements the single-data-stream Stream contract
// shared by the file-backed mediums: the first packet fixes the
// stream identity and every later packet must match it.
type streamCache struct {
	stream *Stream
}

func (c *streamCache) Stream(sc *ctfir.StreamClass, id int64) (*Stream, error) {
	if c.stream == nil {
		c.stream = &Stream{Class: sc, ID: id}
		return c.stream, nil
	}
	if c.stream.Class != sc {
		return nil, fmt.Errorf("%w: packet cites stream class %d, stream has class %d",
			ErrInvalidStream, sc.ID, c.stream.Class.ID)
	}
	if c.stream.ID != id {
		return nil, fmt.Errorf("%w: packet cites stream instance %d, stream is instance %d",
			ErrInvalidStream, id, c.stream.ID)
	}
	return c.stream, nil
}

// A FileMedium memory-maps one data stream file.
type FileMedium struct {
	f    *os.File
	data mmap.MMap
	off  int

	streams streamCache
}

var _ MediumSeeker = (*FileMedium)(nil)

// OpenFileMedium maps the named data stream file.
func OpenFileMedium(name string) (*FileMedium, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileMedium{f: f, data: data}, nil
}

func (m *FileMedium) RequestBytes(max int) ([]byte, error) {
	if m.off >= len(m.data) {
		return nil, io.EOF
	}
	end := m.off + max
	if end > len(m.data) {
		end = len(m.data)
	}
	b := m.data[m.off:end]
	m.off = end
	return b, nil
}

func (m *FileMedium) Stream(sc *ctfir.StreamClass, id int64) (*Stream, error) {
	return m.streams.Stream(sc, id)
}

func (m *FileMedium) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(m.off)
	case io.SeekEnd:
		base = int64(len(m.data))
	default:
		return 0, fmt.Errorf("ctfstream: invalid seek whence %d", whence)
	}
	pos := base + offset
	if pos < 0 || pos > int64(len(m.data)) {
		return 0, fmt.Errorf("ctfstream: seek position %d out of range", pos)
	}
	m.off = int(pos)
	return pos, nil
}

// Close unmaps and closes the underlying file. Buffers previously
// returned by RequestBytes become invalid.
func (m *FileMedium) Close() error {
	err := m.data.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// A ReaderMedium adapts an arbitrary io.Reader into a Medium through
// an internal read buffer.
type ReaderMedium struct {
	rd   io.Reader
	buf  []byte
	r, w int // buf read and write positions
	err  error

	streams streamCache
}

// NewReaderMedium returns a buffering medium over rd.
func NewReaderMedium(rd io.Reader) *ReaderMedium {
	return &ReaderMedium{rd: rd, buf: make([]byte, 16<<10)}
}

func (m *ReaderMedium) RequestBytes(max int) ([]byte, error) {
	if m.r == m.w {
		if m.err != nil {
			err := m.err
			return nil, err
		}
		m.fill()
		if m.r == m.w {
			return nil, m.err
		}
	}
	end := m.w
	if end > m.r+max {
		end = m.r + max
	}
	b := m.buf[m.r:end]
	m.r = end
	return b, nil
}

// fill reads a new chunk into the buffer, retrying a limited number
// of times on empty reads.
func (m *ReaderMedium) fill() {
	if m.r > 0 {
		copy(m.buf, m.buf[m.r:m.w])
		m.w -= m.r
		m.r = 0
	}
	for i := 0; i < 100; i++ {
		n, err := m.rd.Read(m.buf[m.w:])
		if n < 0 {
			panic("ctfstream: reader returned negative count from Read")
		}
		m.w += n
		if err != nil {
			m.err = err
			return
		}
		if n > 0 {
			return
		}
	}
	m.err = io.ErrNoProgress
}

func (m *ReaderMedium) Stream(sc *ctfir.StreamClass, id int64) (*Stream, error) {
	return m.streams.Stream(sc, id)
}
