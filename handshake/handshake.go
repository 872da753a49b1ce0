/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package handshake runs the three-message mutually-authenticated key
// exchange between a DEVICE and a SERVER, producing a session.State.
// It avoids signatures: authentication comes from long-term × ephemeral
// Diffie-Hellman products, so a holder of one side of the long-term
// keypair can verify the other side but cannot be impersonated to a
// third party without collusion.
package handshake

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/zx2c4dev/seclink/keys"
	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/seclog"
	"github.com/zx2c4dev/seclink/session"
	"github.com/zx2c4dev/seclink/trustmap"
	"github.com/zx2c4dev/seclink/wire"
)

const (
	challengeSize = 32

	msgNumFirst  uint16 = 0 // DEVICE_FIRST and SERVER_FIRST both number 0
	msgNumSecond uint16 = 1 // DEVICE_SECOND
)

var (
	labelDevice = []byte("device")
	labelServer = []byte("server")
)

// deriveKey computes SHA-256(shared || label), the KDF spec.md §4.2
// uses for every key derived from a raw DH output.
func deriveKey(shared [keys.Size]byte, label []byte) [32]byte {
	h := sha256.New()
	h.Write(shared[:])
	h.Write(label)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Result is the output of a completed handshake: the derived session
// state and the send/receive message-number cursors the endpoint
// should start from (spec.md §3, EndpointState).
type Result struct {
	Session    session.State
	NextSendN  uint16
	NextRecvN  uint16
	PeerPublic keys.PublicKey
}

// RunDevice performs the handshake from the device (initiator) side
// over rw, authenticating the server's long-term key against trusted.
func RunDevice(rw io.ReadWriter, long keys.LongKeypair, trusted *trustmap.Map, log *seclog.Logger) (Result, error) {
	eph, err := keys.NewEphemeral()
	if err != nil {
		return Result{}, protoerr.Wrap(protoerr.InvalidArgument, err)
	}
	defer eph.Drop()

	if err := sendDeviceFirst(rw, eph.Public, long.Public); err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, err
	}
	log.Verbosef("handshake: sent DEVICE_FIRST")

	first, err := readServerFirst(rw)
	if err != nil {
		return Result{}, err
	}

	serverLong, ok := trusted.Lookup(keys.PublicKeyId(first.ServerLongID))
	if !ok {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.New(protoerr.PubkeyIDUnknown)
	}

	sharedEnc, err := eph.DH(first.Ephemeral)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	deviceEncKey := deriveKey(sharedEnc, labelDevice)
	serverEncKey := deriveKey(sharedEnc, labelServer)

	deviceAuth, err := long.Secret.DH(first.Ephemeral)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	serverAuth, err := eph.DH(serverLong)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}

	state, err := session.New(deviceEncKey, deviceAuth, serverEncKey, serverAuth)
	if err != nil {
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}

	tagData := append(append([]byte{}, first.Ephemeral[:]...), first.Challenge[:]...)
	if !state.FromServer.VerifyTag(first.Tag, tagData, msgNumFirst) {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.New(protoerr.CryptoVerify)
	}
	log.Verbosef("handshake: verified SERVER_FIRST")

	if err := sendDeviceSecond(rw, state, first.Challenge); err != nil {
		sendBestEffortError(rw, msgNumSecond)
		return Result{}, err
	}
	log.Verbosef("handshake: sent DEVICE_SECOND")

	return Result{
		Session:    state,
		NextSendN:  2,
		NextRecvN:  1,
		PeerPublic: serverLong,
	}, nil
}

// RunServer performs the handshake from the server (responder) side
// over rw, authenticating the device's long-term key against trusted.
func RunServer(rw io.ReadWriter, long keys.LongKeypair, trusted *trustmap.Map, log *seclog.Logger) (Result, error) {
	first, err := readDeviceFirst(rw)
	if err != nil {
		return Result{}, err
	}

	deviceLong, ok := trusted.Lookup(keys.PublicKeyId(first.LongID))
	if !ok {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.New(protoerr.PubkeyIDUnknown)
	}

	eph, err := keys.NewEphemeral()
	if err != nil {
		return Result{}, protoerr.Wrap(protoerr.InvalidArgument, err)
	}
	defer eph.Drop()

	challenge, err := randomChallenge()
	if err != nil {
		return Result{}, protoerr.Wrap(protoerr.InvalidArgument, err)
	}

	sharedEnc, err := eph.DH(first.Ephemeral)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	deviceEncKey := deriveKey(sharedEnc, labelDevice)
	serverEncKey := deriveKey(sharedEnc, labelServer)

	deviceAuth, err := eph.DH(deviceLong)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	serverAuth, err := long.Secret.DH(first.Ephemeral)
	if err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}

	state, err := session.New(deviceEncKey, deviceAuth, serverEncKey, serverAuth)
	if err != nil {
		return Result{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}

	tagData := append(append([]byte{}, eph.Public[:]...), challenge[:]...)
	tag := state.FromServer.Tag(tagData, msgNumFirst)

	if err := sendServerFirst(rw, long.Public, tag, eph.Public, challenge); err != nil {
		sendBestEffortError(rw, msgNumFirst)
		return Result{}, err
	}
	log.Verbosef("handshake: sent SERVER_FIRST")

	got, err := readDeviceSecond(rw, state)
	if err != nil {
		if !protoerr.Is(err, protoerr.RemoteError) {
			sendBestEffortError(rw, msgNumSecond)
		}
		return Result{}, err
	}
	if got != challenge {
		sendBestEffortError(rw, msgNumSecond)
		return Result{}, protoerr.New(protoerr.CryptoVerify)
	}
	log.Verbosef("handshake: verified DEVICE_SECOND")

	return Result{
		Session:    state,
		NextSendN:  1,
		NextRecvN:  2,
		PeerPublic: deviceLong,
	}, nil
}

func randomChallenge() ([challengeSize]byte, error) {
	var c [challengeSize]byte
	if _, err := rand.Read(c[:]); err != nil {
		return c, err
	}
	return c, nil
}

func sendDeviceFirst(w io.Writer, ephPub, longPub keys.PublicKey) error {
	body := wire.DeviceFirstBody{
		Ephemeral: ephPub,
		LongID:    [32]byte(longPub.ID()),
	}
	return writeRecord(w, wire.OpDeviceFirst, msgNumFirst, body.Marshal())
}

func readDeviceFirst(r io.Reader) (wire.DeviceFirstBody, error) {
	hdr, err := wire.ReadHeader(r)
	if err != nil {
		return wire.DeviceFirstBody{}, err
	}
	if err := expectOpcode(hdr, wire.OpDeviceFirst, msgNumFirst); err != nil {
		return wire.DeviceFirstBody{}, err
	}
	return wire.ReadDeviceFirstBody(r)
}

func sendServerFirst(w io.Writer, serverLong keys.PublicKey, tag [session.TagSize]byte, ephPub keys.PublicKey, challenge [challengeSize]byte) error {
	body := wire.ServerFirstBody{
		ServerLongID: [32]byte(serverLong.ID()),
		Tag:          tag,
		Ephemeral:    ephPub,
		Challenge:    challenge,
	}
	return writeRecord(w, wire.OpServerFirst, msgNumFirst, body.Marshal())
}

func readServerFirst(r io.Reader) (wire.ServerFirstBody, error) {
	hdr, err := wire.ReadHeader(r)
	if err != nil {
		return wire.ServerFirstBody{}, err
	}
	if err := expectOpcode(hdr, wire.OpServerFirst, msgNumFirst); err != nil {
		return wire.ServerFirstBody{}, err
	}
	return wire.ReadServerFirstBody(r)
}

func sendDeviceSecond(w io.Writer, state session.State, challenge [challengeSize]byte) error {
	ciphertext := state.FromDevice.Seal(nil, challenge[:], msgNumSecond)
	var body wire.DeviceSecondBody
	copy(body.Ciphertext[:], ciphertext)
	return writeRecord(w, wire.OpDeviceSecond, msgNumSecond, body.Marshal())
}

func readDeviceSecond(r io.Reader, state session.State) ([challengeSize]byte, error) {
	hdr, err := wire.ReadHeader(r)
	if err != nil {
		return [challengeSize]byte{}, err
	}
	if err := expectOpcode(hdr, wire.OpDeviceSecond, msgNumSecond); err != nil {
		return [challengeSize]byte{}, err
	}
	body, err := wire.ReadDeviceSecondBody(r)
	if err != nil {
		return [challengeSize]byte{}, err
	}
	plain, err := state.FromDevice.Open(nil, body.Ciphertext[:], msgNumSecond)
	if err != nil {
		return [challengeSize]byte{}, protoerr.Wrap(protoerr.CryptoVerify, err)
	}
	var out [challengeSize]byte
	copy(out[:], plain)
	return out, nil
}

// expectOpcode validates that hdr carries the expected opcode and
// message number, translating a mismatch into REMOTE_ERROR (when the
// peer sent ERROR) or BAD_PACKET (spec.md §7: "handshake message
// received with wrong message number").
func expectOpcode(hdr wire.Header, want wire.Opcode, wantNumber uint16) error {
	if hdr.Opcode == wire.OpError {
		return protoerr.New(protoerr.RemoteError)
	}
	if hdr.Opcode != want {
		return protoerr.New(protoerr.BadPacket)
	}
	if hdr.Number != wantNumber {
		return protoerr.New(protoerr.BadPacket)
	}
	return nil
}

func writeRecord(w io.Writer, op wire.Opcode, n uint16, body []byte) error {
	if err := wire.WriteHeader(w, wire.Header{Opcode: op, Number: n}); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return protoerr.Wrap(protoerr.IOWrite, err)
	}
	return nil
}

// sendBestEffortError emits an unauthenticated ERROR record and
// ignores any failure writing it: the caller is already abandoning the
// handshake, and ERROR is deliberately unauthenticated (spec.md §7).
func sendBestEffortError(w io.Writer, n uint16) {
	_ = writeRecord(w, wire.OpError, n, nil)
}
