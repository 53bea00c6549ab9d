// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfstream

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aclements/go-ctf/ctfir"
)

func TestReaderMedium(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	m := NewReaderMedium(bytes.NewReader(data))

	var got []byte
	for {
		b, err := m.RequestBytes(3)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotEmpty(t, b)
		require.LessOrEqual(t, len(b), 3)
		got = append(got, b...)
	}
	require.Equal(t, data, got)

	_, err := m.RequestBytes(1)
	require.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestReaderMediumStreamIdentity(t *testing.T) {
	m := NewReaderMedium(bytes.NewReader(nil))
	sc := ctfir.NewStreamClass()

	s1, err := m.Stream(sc, 0)
	require.NoError(t, err)
	s2, err := m.Stream(sc, 0)
	require.NoError(t, err)
	require.Same(t, s1, s2, "one medium serves one stream")

	_, err = m.Stream(sc, 1)
	require.ErrorIs(t, err, ErrInvalidStream)
	other := ctfir.NewStreamClass()
	other.ID = 9
	_, err = m.Stream(other, 0)
	require.ErrorIs(t, err, ErrInvalidStream)
}

func TestFileMedium(t *testing.T) {
	data := []byte("0123456789abcdef")
	name := filepath.Join(t.TempDir(), "stream_0")
	require.NoError(t, os.WriteFile(name, data, 0o644))

	m, err := OpenFileMedium(name)
	require.NoError(t, err)
	defer m.Close()

	b, err := m.RequestBytes(4)
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), b)

	pos, err := m.Seek(10, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(10), pos)
	b, err = m.RequestBytes(100)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef"), b)

	_, err = m.RequestBytes(1)
	require.ErrorIs(t, err, io.EOF)

	_, err = m.Seek(-1, io.SeekStart)
	require.Error(t, err)
}
