// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctfir is the in-memory intermediate representation of a CTF
// trace description.
//
// A trace description is a tree of field types rooted at the dynamic
// scopes of a Trace, its StreamClasses, and their EventClasses. Field
// types describe the binary layout of every field a data stream can
// contain; they are produced by the ctfmeta visitor and consumed as a
// decoding script by the ctfbtr reader. At decode time, field types
// are instantiated into Field value trees.
package ctfir // import "github.com/aclements/go-ctf/ctfir"
