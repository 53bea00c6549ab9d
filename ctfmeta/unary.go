// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctfmeta

import (
	"fmt"
	"strings"
)

// Helpers for pulling values out of ctf-expression attributes.

// exprKey returns the dotted left-hand side of an attribute
// (`byte_order`, `packet.header`, ...).
func exprKey(e *CTFExpr) (string, error) {
	return unaryDotted(e.Left)
}

// unaryDotted joins a chain of identifier unary expressions with
// dots.
func unaryDotted(exprs []*UnaryExpr) (string, error) {
	if len(exprs) == 0 {
		return "", fmt.Errorf("%w: empty unary expression", ErrInvalidMetadata)
	}
	var b strings.Builder
	for i, u := range exprs {
		if u.Kind != UnaryString {
			return "", fmt.Errorf("%w: expected identifier in dotted expression", ErrInvalidMetadata)
		}
		if i > 0 {
			if u.Link != LinkDot {
				return "", fmt.Errorf("%w: expected '.' link in dotted expression", ErrInvalidMetadata)
			}
			b.WriteByte('.')
		}
		b.WriteString(u.S)
	}
	return b.String(), nil
}

// exprString returns the right-hand side as a single string literal
// or identifier.
func exprString(e *CTFExpr) (string, error) {
	if len(e.Right) != 1 || e.Right[0].Kind != UnaryString {
		return "", fmt.Errorf("%w: expected a string value", ErrInvalidMetadata)
	}
	return e.Right[0].S, nil
}

// exprUnsigned returns the right-hand side as an unsigned constant.
// Non-negative signed constants are accepted.
func exprUnsigned(e *CTFExpr) (uint64, error) {
	if len(e.Right) != 1 {
		return 0, fmt.Errorf("%w: expected a single constant", ErrInvalidMetadata)
	}
	switch u := e.Right[0]; u.Kind {
	case UnaryUnsigned:
		return u.U, nil
	case UnarySigned:
		if u.I < 0 {
			return 0, fmt.Errorf("%w: expected an unsigned constant, got %d", ErrInvalidMetadata, u.I)
		}
		return uint64(u.I), nil
	}
	return 0, fmt.Errorf("%w: expected an unsigned constant", ErrInvalidMetadata)
}

// exprSigned returns the right-hand side as a signed constant.
func exprSigned(e *CTFExpr) (int64, error) {
	if len(e.Right) != 1 {
		return 0, fmt.Errorf("%w: expected a single constant", ErrInvalidMetadata)
	}
	switch u := e.Right[0]; u.Kind {
	case UnaryUnsigned:
		return int64(u.U), nil
	case UnarySigned:
		return u.I, nil
	}
	return 0, fmt.Errorf("%w: expected a signed constant", ErrInvalidMetadata)
}

// exprBool accepts true/false identifiers and 0/1 constants.
func exprBool(e *CTFExpr) (bool, error) {
	if len(e.Right) == 1 {
		switch u := e.Right[0]; u.Kind {
		case UnaryUnsigned:
			if u.U == 0 || u.U == 1 {
				return u.U == 1, nil
			}
		case UnarySigned:
			if u.I == 0 || u.I == 1 {
				return u.I == 1, nil
			}
		case UnaryString:
			switch u.S {
			case "true", "TRUE":
				return true, nil
			case "false", "FALSE":
				return false, nil
			}
		}
	}
	return false, fmt.Errorf("%w: expected a boolean value", ErrInvalidMetadata)
}
