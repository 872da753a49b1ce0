/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package wire implements the byte-exact frame format: a 3-byte header
// (1-byte opcode, 2-byte big-endian message number) followed by an
// opcode-specific body. It knows nothing about cryptography; the
// handshake and session packages own key material and interpret
// bodies.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/zx2c4dev/seclink/protoerr"
)

// Opcode identifies a record's body layout.
type Opcode byte

const (
	OpError        Opcode = 0x00
	OpDeviceFirst  Opcode = 0x01
	OpServerFirst  Opcode = 0x02
	OpDeviceSecond Opcode = 0x03
	OpData         Opcode = 0x04
	opReserved5    Opcode = 0x05 // REKEY, reserved, never implemented
	opReserved6    Opcode = 0x06 // ACK, reserved, never implemented
	OpStop         Opcode = 0x07
)

// Valid reports whether op is one of the opcodes this protocol
// version defines. The reserved REKEY/ACK values are deliberately
// excluded: spec.md's Open Questions direct implementations to leave
// them unused and reject them as BAD_OPCODE.
func (op Opcode) Valid() bool {
	switch op {
	case OpError, OpDeviceFirst, OpServerFirst, OpDeviceSecond, OpData, OpStop:
		return true
	default:
		return false
	}
}

// RequiresSessionKeys reports whether op can only be processed once
// the handshake has produced session keys (spec.md §4.1: "opcodes
// ≤ 0x02 are processed without the session keys").
func (op Opcode) RequiresSessionKeys() bool {
	return op > OpServerFirst
}

func (op Opcode) String() string {
	switch op {
	case OpError:
		return "ERROR"
	case OpDeviceFirst:
		return "DEVICE_FIRST"
	case OpServerFirst:
		return "SERVER_FIRST"
	case OpDeviceSecond:
		return "DEVICE_SECOND"
	case OpData:
		return "DATA"
	case OpStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// HeaderSize is the width, in bytes, of the fixed record header.
const HeaderSize = 3

// Header is the 3-byte prefix of every record.
type Header struct {
	Opcode Opcode
	Number uint16
}

// Marshal encodes h into its 3-byte wire form.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	b[0] = byte(h.Opcode)
	binary.BigEndian.PutUint16(b[1:], h.Number)
	return b
}

// ReadHeader reads and decodes a 3-byte record header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	op := Opcode(buf[0])
	if !op.Valid() {
		return Header{}, protoerr.New(protoerr.BadOpcode)
	}
	return Header{Opcode: op, Number: binary.BigEndian.Uint16(buf[1:])}, nil
}

// WriteHeader writes h's 3-byte form to w.
func WriteHeader(w io.Writer, h Header) error {
	if _, err := w.Write(h.Marshal()); err != nil {
		return protoerr.Wrap(protoerr.IOWrite, err)
	}
	return nil
}

// ReadFull reads exactly len(buf) bytes from r, looping as needed
// (spec.md §9: "the raw transport interface returns 'up to N bytes';
// the codec requires 'exactly N bytes'"). A short read at end of
// stream is reported as protoerr.ShortRead; any other read error is
// protoerr.IORead.
func ReadFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	switch err {
	case nil:
		return nil
	case io.EOF, io.ErrUnexpectedEOF:
		return protoerr.Wrap(protoerr.ShortRead, err)
	default:
		return protoerr.Wrap(protoerr.IORead, err)
	}
}
