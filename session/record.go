/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package session

import (
	"io"

	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/wire"
)

// Role distinguishes which side of a Conn a caller plays, fixing which
// directional SymmetricState it sends and receives with.
type Role int

const (
	RoleDevice Role = iota
	RoleServer
)

// RecordKind classifies what Receive returned.
type RecordKind int

const (
	KindData RecordKind = iota
	KindStop
)

// Received is the result of a successful Receive call.
type Received struct {
	Kind RecordKind
	Data []byte // valid only when Kind == KindData
}

const stopPlaintext = 0x00

// Recorder receives record-layer telemetry. *metrics.Metrics satisfies
// it; Conn accepts the interface rather than the concrete type so this
// package never depends on metrics.
type Recorder interface {
	RecordSend(opcode string, payloadBytes int)
	RecordReceive(opcode string, payloadBytes int)
}

// Conn is the post-handshake record layer: it frames DATA/STOP/ERROR
// records over rw using State, enforcing monotonic message numbers and
// direction-correct key usage (spec.md §4.3). It does not own rw's
// lifetime; the endpoint package closes the underlying transport.
type Conn struct {
	rw    io.ReadWriter
	state State

	sendDir, recvDir Direction

	nextSendN, nextRecvN       uint16
	sendExhausted, recvExhausted bool

	closed bool

	metrics Recorder
}

// SetMetrics attaches a Recorder that SendData/SendStop/Receive report
// to. Passing nil disables reporting.
func (c *Conn) SetMetrics(m Recorder) { c.metrics = m }

// NewConn builds a Conn for role, starting its send/receive cursors at
// the values the handshake produced (spec.md §3: 2/1 for the device,
// 1/2 for the server).
func NewConn(rw io.ReadWriter, state State, role Role, nextSendN, nextRecvN uint16) *Conn {
	c := &Conn{rw: rw, state: state, nextSendN: nextSendN, nextRecvN: nextRecvN}
	if role == RoleDevice {
		c.sendDir, c.recvDir = FromDevice, FromServer
	} else {
		c.sendDir, c.recvDir = FromServer, FromDevice
	}
	return c
}

// Closed reports whether a STOP or ERROR has ended this Conn.
func (c *Conn) Closed() bool { return c.closed }

func (c *Conn) allocateSendN() (uint16, error) {
	if c.sendExhausted {
		return 0, protoerr.New(protoerr.CounterOverflow)
	}
	n := c.nextSendN
	if n == 0xFFFF {
		c.sendExhausted = true
	} else {
		c.nextSendN = n + 1
	}
	return n, nil
}

func (c *Conn) consumeRecvN(got uint16) error {
	if c.recvExhausted {
		return protoerr.New(protoerr.CounterOverflow)
	}
	if got != c.nextRecvN {
		return protoerr.New(protoerr.BadMessageN)
	}
	if got == 0xFFFF {
		c.recvExhausted = true
	} else {
		c.nextRecvN = got + 1
	}
	return nil
}

// SendData frames payload as a DATA record. len(payload) must be at
// most wire.MaxDataPayload; the caller (endpoint.Write) is responsible
// for that check per spec.md §4.4.
func (c *Conn) SendData(payload []byte) error {
	n, err := c.allocateSendN()
	if err != nil {
		return err
	}
	state := c.state.For(c.sendDir)
	lengthBytes := wire.DataPrefix{Length: uint16(len(payload))}.LengthBytes()
	tag := state.Tag(lengthBytes, n)
	ciphertext := state.Seal(nil, payload, n)

	prefix := wire.DataPrefix{Length: uint16(len(payload)), LengthTag: tag}
	body := append(prefix.Marshal(), ciphertext...)
	if err := c.writeRecord(wire.OpData, n, body); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordSend(wire.OpData.String(), len(payload))
	}
	return nil
}

// SendStop frames a STOP record and marks the Conn closed.
func (c *Conn) SendStop() error {
	n, err := c.allocateSendN()
	if err != nil {
		return err
	}
	state := c.state.For(c.sendDir)
	ciphertext := state.Seal(nil, []byte{stopPlaintext}, n)
	var body wire.StopBody
	copy(body.Ciphertext[:], ciphertext)
	if err := c.writeRecord(wire.OpStop, n, body.Marshal()); err != nil {
		c.closed = true
		return err
	}
	c.closed = true
	if c.metrics != nil {
		c.metrics.RecordSend(wire.OpStop.String(), 0)
	}
	return nil
}

// Receive reads and dispatches the next record.
func (c *Conn) Receive() (Received, error) {
	hdr, err := wire.ReadHeader(c.rw)
	if err != nil {
		return Received{}, err
	}
	if hdr.Opcode == wire.OpError {
		c.closed = true
		return Received{}, protoerr.New(protoerr.RemoteError)
	}
	if !hdr.Opcode.RequiresSessionKeys() {
		c.closed = true
		return Received{}, protoerr.New(protoerr.BadOpcode)
	}

	switch hdr.Opcode {
	case wire.OpData:
		return c.receiveData(hdr)
	case wire.OpStop:
		return c.receiveStop(hdr)
	default:
		c.closed = true
		c.sendBestEffortError()
		return Received{}, protoerr.New(protoerr.BadOpcode)
	}
}

func (c *Conn) receiveData(hdr wire.Header) (Received, error) {
	if err := c.consumeRecvN(hdr.Number); err != nil {
		c.closed = true
		c.sendBestEffortError()
		return Received{}, err
	}
	state := c.state.For(c.recvDir)

	prefix, err := wire.ReadDataPrefix(c.rw)
	if err != nil {
		return Received{}, err
	}
	if !state.VerifyTag(prefix.LengthTag, prefix.LengthBytes(), hdr.Number) {
		c.closed = true
		return Received{}, protoerr.New(protoerr.CryptoVerify)
	}

	ciphertext, err := wire.ReadDataCiphertext(c.rw, prefix.Length)
	if err != nil {
		return Received{}, err
	}
	plain, err := state.Open(nil, ciphertext, hdr.Number)
	if err != nil {
		c.closed = true
		return Received{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	if c.metrics != nil {
		c.metrics.RecordReceive(wire.OpData.String(), len(plain))
	}
	return Received{Kind: KindData, Data: plain}, nil
}

func (c *Conn) receiveStop(hdr wire.Header) (Received, error) {
	if err := c.consumeRecvN(hdr.Number); err != nil {
		c.closed = true
		c.sendBestEffortError()
		return Received{}, err
	}
	state := c.state.For(c.recvDir)

	body, err := wire.ReadStopBody(c.rw)
	if err != nil {
		return Received{}, err
	}
	plain, err := state.Open(nil, body.Ciphertext[:], hdr.Number)
	if err != nil {
		c.closed = true
		return Received{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	c.closed = true
	if len(plain) != 1 || plain[0] != stopPlaintext {
		return Received{}, protoerr.New(protoerr.BadPacket)
	}
	if c.metrics != nil {
		c.metrics.RecordReceive(wire.OpStop.String(), 0)
	}
	return Received{Kind: KindStop}, nil
}

func (c *Conn) writeRecord(op wire.Opcode, n uint16, body []byte) error {
	if err := wire.WriteHeader(c.rw, wire.Header{Opcode: op, Number: n}); err != nil {
		return err
	}
	if _, err := c.rw.Write(body); err != nil {
		return protoerr.Wrap(protoerr.IOWrite, err)
	}
	return nil
}

// sendBestEffortError emits an unauthenticated ERROR record, ignoring
// any failure: the caller is already abandoning the connection, and
// ERROR is deliberately unauthenticated (spec.md §7).
func (c *Conn) sendBestEffortError() {
	_ = wire.WriteHeader(c.rw, wire.Header{Opcode: wire.OpError, Number: 0})
}
