/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package wire

import (
	"encoding/binary"
	"io"

	"github.com/zx2c4dev/seclink/protoerr"
)

// DeviceFirstBody is DEVICE_FIRST's body: the device ephemeral public
// key followed by the device long-term key's PublicKeyId.
type DeviceFirstBody struct {
	Ephemeral [32]byte
	LongID    [32]byte
}

const deviceFirstBodySize = 64

func (b DeviceFirstBody) Marshal() []byte {
	out := make([]byte, 0, deviceFirstBodySize)
	out = append(out, b.Ephemeral[:]...)
	out = append(out, b.LongID[:]...)
	return out
}

// ReadDeviceFirstBody reads a DEVICE_FIRST body from r.
func ReadDeviceFirstBody(r io.Reader) (DeviceFirstBody, error) {
	var buf [deviceFirstBodySize]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return DeviceFirstBody{}, err
	}
	var b DeviceFirstBody
	copy(b.Ephemeral[:], buf[0:32])
	copy(b.LongID[:], buf[32:64])
	return b, nil
}

// ServerFirstBody is SERVER_FIRST's body: the server long-term key's
// PublicKeyId, a 16-byte tag authenticating Ephemeral‖Challenge, the
// server ephemeral public key, and the challenge.
type ServerFirstBody struct {
	ServerLongID [32]byte
	Tag          [16]byte
	Ephemeral    [32]byte
	Challenge    [32]byte
}

const serverFirstBodySize = 32 + 16 + 32 + 32

func (b ServerFirstBody) Marshal() []byte {
	out := make([]byte, 0, serverFirstBodySize)
	out = append(out, b.ServerLongID[:]...)
	out = append(out, b.Tag[:]...)
	out = append(out, b.Ephemeral[:]...)
	out = append(out, b.Challenge[:]...)
	return out
}

// ReadServerFirstBody reads a SERVER_FIRST body from r.
func ReadServerFirstBody(r io.Reader) (ServerFirstBody, error) {
	var buf [serverFirstBodySize]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return ServerFirstBody{}, err
	}
	var b ServerFirstBody
	copy(b.ServerLongID[:], buf[0:32])
	copy(b.Tag[:], buf[32:48])
	copy(b.Ephemeral[:], buf[48:80])
	copy(b.Challenge[:], buf[80:112])
	return b, nil
}

// DeviceSecondBody is DEVICE_SECOND's body: AEAD(challenge) under
// FROM_DEVICE, 32-byte plaintext + 16-byte tag.
type DeviceSecondBody struct {
	Ciphertext [32 + 16]byte
}

func (b DeviceSecondBody) Marshal() []byte {
	out := make([]byte, len(b.Ciphertext))
	copy(out, b.Ciphertext[:])
	return out
}

// ReadDeviceSecondBody reads a DEVICE_SECOND body from r.
func ReadDeviceSecondBody(r io.Reader) (DeviceSecondBody, error) {
	var b DeviceSecondBody
	if err := ReadFull(r, b.Ciphertext[:]); err != nil {
		return DeviceSecondBody{}, err
	}
	return b, nil
}

// StopBody is STOP's body: AEAD(0x00) under the sender's direction
// state, 1-byte plaintext + 16-byte tag.
type StopBody struct {
	Ciphertext [1 + 16]byte
}

func (b StopBody) Marshal() []byte {
	out := make([]byte, len(b.Ciphertext))
	copy(out, b.Ciphertext[:])
	return out
}

// ReadStopBody reads a STOP body from r.
func ReadStopBody(r io.Reader) (StopBody, error) {
	var b StopBody
	if err := ReadFull(r, b.Ciphertext[:]); err != nil {
		return StopBody{}, err
	}
	return b, nil
}

// DataPrefixSize is the width, in bytes, of DATA's length field plus
// its authentication tag — the part of the body that must be read and
// verified before the receiver knows how many ciphertext bytes follow.
const DataPrefixSize = 2 + 16

// DataPrefix is the part of a DATA body that precedes the variable-
// length ciphertext: a big-endian length and a tag authenticating it.
type DataPrefix struct {
	Length    uint16
	LengthTag [16]byte
}

func (p DataPrefix) lengthBytes() []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, p.Length)
	return b
}

func (p DataPrefix) Marshal() []byte {
	out := make([]byte, 0, DataPrefixSize)
	out = append(out, p.lengthBytes()...)
	out = append(out, p.LengthTag[:]...)
	return out
}

// ReadDataPrefix reads a DATA body's length+tag prefix from r.
func ReadDataPrefix(r io.Reader) (DataPrefix, error) {
	var buf [DataPrefixSize]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return DataPrefix{}, err
	}
	var p DataPrefix
	p.Length = binary.BigEndian.Uint16(buf[0:2])
	copy(p.LengthTag[:], buf[2:18])
	return p, nil
}

// LengthBytes exposes the 2 big-endian length bytes that LengthTag
// authenticates, for the session layer's tag verification.
func (p DataPrefix) LengthBytes() []byte { return p.lengthBytes() }

// ReadDataCiphertext reads the L+16 variable-length ciphertext that
// follows a DataPrefix once the caller has authenticated Length.
func ReadDataCiphertext(r io.Reader, length uint16) ([]byte, error) {
	buf := make([]byte, int(length)+16)
	if err := ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MaxDataPayload is the largest payload a single DATA record may
// carry (spec.md §4.4: "|buf| > 65535 ⇒ INVALID_ARGUMENT").
const MaxDataPayload = 65535

var errOversizedPayload = protoerr.New(protoerr.InvalidArgument)

// ErrOversizedPayload is returned when a caller attempts to frame a
// payload larger than MaxDataPayload.
func ErrOversizedPayload() error { return errOversizedPayload }
