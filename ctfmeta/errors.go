// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import "errors"

// ErrInvalidMetadata is wrapped by every error caused by metadata
// that is well-formed TSDL but violates CTF rules: missing or
// duplicate attributes, bad attribute values, unresolvable
// references, invalid alignments and sizes.
var ErrInvalidMetadata = errors.New("invalid metadata")

// ErrNotImplemented is wrapped by errors for constructs the format
// permits but this reader does not support: `env.*` field references,
// integers wider than 64 bits, more than one clock per trace, and
// untagged variants used as typedef targets.
var ErrNotImplemented = errors.New("not implemented")
