/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package handshake

import (
	"net"
	"testing"

	"github.com/zx2c4dev/seclink/keys"
	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/seclog"
	"github.com/zx2c4dev/seclink/trustmap"
	"github.com/zx2c4dev/seclink/wire"
)

func silentLogger() *seclog.Logger { return seclog.New(seclog.Silent, "") }

type handshakeFixture struct {
	deviceLong, serverLong keys.LongKeypair
	trustedOnDevice        *trustmap.Map
	trustedOnServer        *trustmap.Map
}

func newFixture(t *testing.T) handshakeFixture {
	t.Helper()
	deviceLong, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair(device): %v", err)
	}
	serverLong, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair(server): %v", err)
	}

	trustedOnDevice := trustmap.New()
	trustedOnDevice.Add(serverLong.Public)
	trustedOnServer := trustmap.New()
	trustedOnServer.Add(deviceLong.Public)

	return handshakeFixture{deviceLong, serverLong, trustedOnDevice, trustedOnServer}
}

func runHandshakePair(t *testing.T, f handshakeFixture) (Result, Result) {
	t.Helper()
	deviceConn, serverConn := net.Pipe()

	type out struct {
		res Result
		err error
	}
	deviceCh := make(chan out, 1)
	serverCh := make(chan out, 1)

	go func() {
		res, err := RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
		deviceCh <- out{res, err}
	}()
	go func() {
		res, err := RunServer(serverConn, f.serverLong, f.trustedOnServer, silentLogger())
		serverCh <- out{res, err}
	}()

	d := <-deviceCh
	s := <-serverCh
	if d.err != nil {
		t.Fatalf("RunDevice: %v", d.err)
	}
	if s.err != nil {
		t.Fatalf("RunServer: %v", s.err)
	}
	return d.res, s.res
}

func TestHandshakeSucceedsAndDerivesMatchingState(t *testing.T) {
	f := newFixture(t)
	device, server := runHandshakePair(t, f)

	if device.NextSendN != 2 || device.NextRecvN != 1 {
		t.Errorf("device cursors = %d/%d, want 2/1", device.NextSendN, device.NextRecvN)
	}
	if server.NextSendN != 1 || server.NextRecvN != 2 {
		t.Errorf("server cursors = %d/%d, want 1/2", server.NextSendN, server.NextRecvN)
	}
	if device.PeerPublic != f.serverLong.Public {
		t.Error("device did not resolve the server's long-term key")
	}
	if server.PeerPublic != f.deviceLong.Public {
		t.Error("server did not resolve the device's long-term key")
	}

	plaintext := []byte("ping")
	ciphertext := device.Session.FromDevice.Seal(nil, plaintext, 2)
	got, err := server.Session.FromDevice.Open(nil, ciphertext, 2)
	if err != nil {
		t.Fatalf("server could not open device-sealed data: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestHandshakeRejectsUnknownServerKey(t *testing.T) {
	f := newFixture(t)
	f.trustedOnDevice = trustmap.New() // device no longer trusts the server's key

	deviceConn, serverConn := net.Pipe()
	serverErrCh := make(chan error, 1)
	go func() {
		_, err := RunServer(serverConn, f.serverLong, f.trustedOnServer, silentLogger())
		serverErrCh <- err
	}()

	_, err := RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
	if !protoerr.Is(err, protoerr.PubkeyIDUnknown) {
		t.Fatalf("RunDevice with untrusted server key = %v, want PUBKEY_ID_UNKNOWN", err)
	}
	<-serverErrCh
}

func TestHandshakeRejectsUnknownDeviceKey(t *testing.T) {
	f := newFixture(t)
	f.trustedOnServer = trustmap.New() // server no longer trusts the device's key

	deviceConn, serverConn := net.Pipe()
	deviceErrCh := make(chan error, 1)
	go func() {
		_, err := RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
		deviceErrCh <- err
	}()

	_, err := RunServer(serverConn, f.serverLong, f.trustedOnServer, silentLogger())
	if !protoerr.Is(err, protoerr.PubkeyIDUnknown) {
		t.Fatalf("RunServer with untrusted device key = %v, want PUBKEY_ID_UNKNOWN", err)
	}
	<-deviceErrCh
}

func TestHandshakeRejectsServerPresentingTrustedIDWithWrongSecret(t *testing.T) {
	f := newFixture(t)

	otherSecret, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair: %v", err)
	}
	// id resolves (Public matches the trusted entry) but the DH chain
	// will use a secret that doesn't correspond to that public key, so
	// the device's tag check must fail rather than resolving the id.
	impostor := keys.LongKeypair{Public: f.serverLong.Public, Secret: otherSecret.Secret}

	deviceConn, serverConn := net.Pipe()
	serverErrCh := make(chan error, 1)
	go func() {
		_, err := RunServer(serverConn, impostor, f.trustedOnServer, silentLogger())
		serverErrCh <- err
	}()

	_, err = RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
	if !protoerr.Is(err, protoerr.CryptoVerify) {
		t.Fatalf("RunDevice against mismatched-secret server = %v, want CRYPTO_VERIFY", err)
	}
	<-serverErrCh
}

func TestHandshakeFailsIfServerUsesWrongLongKey(t *testing.T) {
	f := newFixture(t)
	impostor, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair: %v", err)
	}
	// The device still only trusts the real server key, so the
	// impostor's id will not resolve.
	deviceConn, serverConn := net.Pipe()
	serverErrCh := make(chan error, 1)
	go func() {
		_, err := RunServer(serverConn, impostor, f.trustedOnServer, silentLogger())
		serverErrCh <- err
	}()

	_, err = RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
	if !protoerr.Is(err, protoerr.PubkeyIDUnknown) {
		t.Fatalf("RunDevice against impostor server key = %v, want PUBKEY_ID_UNKNOWN", err)
	}
	<-serverErrCh
}

func TestHandshakeErrorRecordBeforeReadyAbortsWithRemoteError(t *testing.T) {
	f := newFixture(t)
	deviceConn, serverConn := net.Pipe()

	go func() {
		_, _ = readDeviceFirst(serverConn)
		_ = writeRecord(serverConn, wire.OpError, msgNumFirst, nil)
	}()

	_, err := RunDevice(deviceConn, f.deviceLong, f.trustedOnDevice, silentLogger())
	if !protoerr.Is(err, protoerr.RemoteError) {
		t.Fatalf("RunDevice after peer ERROR = %v, want REMOTE_ERROR", err)
	}
}
