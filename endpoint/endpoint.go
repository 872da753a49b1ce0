/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package endpoint is the user-facing façade: a byte-oriented
// Read/Write/Close object built atop a completed handshake and the
// session record layer (spec.md §4.4).
package endpoint

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/zx2c4dev/seclink/handshake"
	"github.com/zx2c4dev/seclink/keys"
	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/seclog"
	"github.com/zx2c4dev/seclink/session"
	"github.com/zx2c4dev/seclink/transport"
	"github.com/zx2c4dev/seclink/trustmap"
	"github.com/zx2c4dev/seclink/wire"
)

// Role identifies which side of the handshake an Endpoint plays.
type Role int

const (
	Device Role = iota
	Server
)

// Endpoint is single-owner and not safe for concurrent use by more
// than one goroutine (spec.md §5).
type Endpoint struct {
	role      Role
	transport transport.Conn
	long      keys.LongKeypair
	peer      keys.PublicKey
	conn      *session.Conn
	residual  []byte
	log       *seclog.Logger

	readTimeout time.Duration
}

// Dial runs the handshake as the DEVICE over t and, on success,
// returns a ready Endpoint.
func Dial(t transport.Conn, long keys.LongKeypair, trusted *trustmap.Map, log *seclog.Logger) (*Endpoint, error) {
	if log == nil {
		log = seclog.New(seclog.Silent, "")
	}
	res, err := handshake.RunDevice(t, long, trusted, log)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	conn := session.NewConn(t, res.Session, session.RoleDevice, res.NextSendN, res.NextRecvN)
	return &Endpoint{role: Device, transport: t, long: long, peer: res.PeerPublic, conn: conn, log: log}, nil
}

// Accept runs the handshake as the SERVER over t and, on success,
// returns a ready Endpoint.
func Accept(t transport.Conn, long keys.LongKeypair, trusted *trustmap.Map, log *seclog.Logger) (*Endpoint, error) {
	if log == nil {
		log = seclog.New(seclog.Silent, "")
	}
	res, err := handshake.RunServer(t, long, trusted, log)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	conn := session.NewConn(t, res.Session, session.RoleServer, res.NextSendN, res.NextRecvN)
	return &Endpoint{role: Server, transport: t, long: long, peer: res.PeerPublic, conn: conn, log: log}, nil
}

// PeerPublicKey returns the authenticated long-term key of the other
// side, established during the handshake.
func (e *Endpoint) PeerPublicKey() keys.PublicKey { return e.peer }

// SetMetrics attaches a Recorder the record layer reports per-record
// telemetry to. Passing nil disables reporting.
func (e *Endpoint) SetMetrics(m session.Recorder) { e.conn.SetMetrics(m) }

// SetReadTimeout configures how long Read blocks waiting for a
// record. Zero means block indefinitely.
func (e *Endpoint) SetReadTimeout(d time.Duration) {
	e.readTimeout = d
}

// Write frames buf as a single DATA record. An empty buf is a no-op
// returning (0, nil); a buf longer than wire.MaxDataPayload returns
// INVALID_ARGUMENT without touching the transport.
func (e *Endpoint) Write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > wire.MaxDataPayload {
		return 0, wire.ErrOversizedPayload()
	}
	if err := e.conn.SendData(buf); err != nil {
		e.abort()
		return 0, err
	}
	return len(buf), nil
}

// Read drains the residual buffer if non-empty, otherwise blocks for
// one record. STOP surfaces as io.EOF; any protocol or transport
// failure surfaces as the corresponding *protoerr.Error, including
// protoerr.WouldBlock on a configured read-timeout expiry.
func (e *Endpoint) Read(buf []byte) (int, error) {
	if len(e.residual) > 0 {
		return e.drain(buf), nil
	}

	if e.readTimeout > 0 {
		_ = e.transport.SetReadDeadline(time.Now().Add(e.readTimeout))
	} else {
		_ = e.transport.SetReadDeadline(time.Time{})
	}

	rec, err := e.conn.Receive()
	if err != nil {
		if isTimeout(err) {
			return 0, protoerr.New(protoerr.WouldBlock)
		}
		e.abort()
		return 0, err
	}

	switch rec.Kind {
	case session.KindStop:
		return 0, io.EOF
	case session.KindData:
		e.residual = rec.Data
		return e.drain(buf), nil
	default:
		return 0, protoerr.New(protoerr.BadOpcode)
	}
}

func (e *Endpoint) drain(buf []byte) int {
	n := copy(buf, e.residual)
	e.residual = e.residual[n:]
	return n
}

// Close best-effort sends STOP, then closes the transport
// unconditionally (spec.md §4.4).
func (e *Endpoint) Close() error {
	if !e.conn.Closed() {
		_ = e.conn.SendStop()
	}
	return e.transport.Close()
}

// abort closes the transport without attempting STOP, used when a
// fatal protocol error has already left the session state unusable.
func (e *Endpoint) abort() {
	_ = e.transport.Close()
}

// isTimeout reports whether err wraps a net.Error whose Timeout()
// method returns true, the signal a configured read deadline expired.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
