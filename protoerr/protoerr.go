/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package protoerr defines the error taxonomy that crosses the
// handshake, session, and endpoint package boundaries.
package protoerr

import "fmt"

// Code classifies a protocol-level failure.
type Code int

const (
	_ Code = iota
	IOConnect
	IOBind
	IOAccept
	IORead
	IOWrite
	ShortRead
	ShortWrite
	BadOpcode
	BadPacket
	CryptoVerify
	PubkeyIDUnknown
	BadMessageN
	RemoteError
	CounterOverflow
	InvalidArgument
	WouldBlock
)

func (c Code) String() string {
	switch c {
	case IOConnect:
		return "IO_CONNECT"
	case IOBind:
		return "IO_BIND"
	case IOAccept:
		return "IO_ACCEPT"
	case IORead:
		return "IO_READ"
	case IOWrite:
		return "IO_WRITE"
	case ShortRead:
		return "SHORT_READ"
	case ShortWrite:
		return "SHORT_WRITE"
	case BadOpcode:
		return "BAD_OPCODE"
	case BadPacket:
		return "BAD_PACKET"
	case CryptoVerify:
		return "CRYPTO_VERIFY"
	case PubkeyIDUnknown:
		return "PUBKEY_ID_UNKNOWN"
	case BadMessageN:
		return "BAD_MESSAGE_N"
	case RemoteError:
		return "REMOTE_ERROR"
	case CounterOverflow:
		return "COUNTER_OVERFLOW"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case WouldBlock:
		return "WOULD_BLOCK"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is a protocol-level error carrying a taxonomy Code plus,
// optionally, the underlying cause (a transport or decode error).
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error with no wrapped cause.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap builds an *Error wrapping err under code. Wrap(code, nil)
// returns a nil *Error, which is a non-nil value once converted to the
// error interface, so callers only wrap an err known to be non-nil.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	pe, ok := err.(*Error)
	return ok && pe.Code == code
}
