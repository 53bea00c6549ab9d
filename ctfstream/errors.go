// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfstream

import "errors"

// ErrInvalidStream is wrapped by errors caused by data stream
// contents that contradict the metadata or the format rules: a bad
// magic number, a truncated field, a content size exceeding the total
// size, an unknown stream or event class ID, a packet starting off a
// byte boundary, or a variant tag value selecting no option.
var ErrInvalidStream = errors.New("invalid stream")

// ErrMedium is wrapped by errors the medium itself reported, other
// than io.EOF and ErrAgain.
var ErrMedium = errors.New("medium error")
