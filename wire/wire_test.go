/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package wire

import (
	"bytes"
	"testing"

	"github.com/zx2c4dev/seclink/protoerr"
)

func TestOpcodeValid(t *testing.T) {
	tests := []struct {
		op   Opcode
		want bool
	}{
		{OpError, true},
		{OpDeviceFirst, true},
		{OpServerFirst, true},
		{OpDeviceSecond, true},
		{OpData, true},
		{OpStop, true},
		{Opcode(0x05), false},
		{Opcode(0x06), false},
		{Opcode(0xff), false},
	}
	for _, tt := range tests {
		if got := tt.op.Valid(); got != tt.want {
			t.Errorf("Opcode(%#x).Valid() = %v, want %v", byte(tt.op), got, tt.want)
		}
	}
}

func TestOpcodeRequiresSessionKeys(t *testing.T) {
	for _, op := range []Opcode{OpError, OpDeviceFirst, OpServerFirst} {
		if op.RequiresSessionKeys() {
			t.Errorf("%s.RequiresSessionKeys() = true, want false", op)
		}
	}
	for _, op := range []Opcode{OpDeviceSecond, OpData, OpStop} {
		if !op.RequiresSessionKeys() {
			t.Errorf("%s.RequiresSessionKeys() = false, want true", op)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Opcode: OpData, Number: 0xBEEF}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), HeaderSize)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != h {
		t.Errorf("ReadHeader = %+v, want %+v", got, h)
	}
}

func TestReadHeaderBadOpcode(t *testing.T) {
	buf := bytes.NewReader([]byte{0x05, 0x00, 0x00})
	_, err := ReadHeader(buf)
	if !protoerr.Is(err, protoerr.BadOpcode) {
		t.Fatalf("ReadHeader on reserved opcode = %v, want BAD_OPCODE", err)
	}
}

func TestReadFullShortRead(t *testing.T) {
	buf := bytes.NewReader([]byte{0x01, 0x02})
	err := ReadFull(buf, make([]byte, 4))
	if !protoerr.Is(err, protoerr.ShortRead) {
		t.Fatalf("ReadFull on truncated input = %v, want SHORT_READ", err)
	}
}
