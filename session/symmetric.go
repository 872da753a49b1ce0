/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package session implements the post-handshake record layer: framing
// DATA/STOP/ERROR records over a pair of per-direction SymmetricStates,
// and enforcing monotonic message numbering.
package session

import (
	"crypto/cipher"
	"crypto/subtle"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the width, in bytes, of the AEAD authentication tag.
const TagSize = chacha20poly1305.Overhead

// SymmetricState is an immutable (encryption key, authentication key)
// pair bound to a ChaCha20-Poly1305 AEAD instance. It is used in
// exactly one direction for the lifetime of a session; see Direction
// in state.go for the tag that keeps the two directions from being
// mixed up.
type SymmetricState struct {
	authKey [32]byte
	aead    cipher.AEAD
}

// newSymmetricState builds a SymmetricState from the two 32-byte
// secrets the handshake derived. encKey alone comes from an ephemeral×
// ephemeral DH and says nothing about either peer's long-term identity;
// authKey comes from a long-term×ephemeral DH and is what actually
// authenticates the sender. The AEAD this state wraps is keyed not by
// encKey directly but by MAC_authKey(encKey), so every Seal/Open this
// state performs — including Tag/VerifyTag below and the DEVICE_SECOND
// challenge echo — is bound to authKey. Without this, a party that
// never touched the real authKey (for example an impostor who only
// knows a peer's trusted public key but not its matching secret) could
// still produce valid tags and ciphertexts from encKey alone.
func newSymmetricState(encKey, authKey [32]byte) (SymmetricState, error) {
	mac, err := blake2s.New256(authKey[:])
	if err != nil {
		return SymmetricState{}, err
	}
	mac.Write(encKey[:])
	var aeadKey [32]byte
	mac.Sum(aeadKey[:0])

	aead, err := chacha20poly1305.New(aeadKey[:])
	if err != nil {
		return SymmetricState{}, err
	}
	return SymmetricState{authKey: authKey, aead: aead}, nil
}

// nonceForMessageNumber derives the 12-byte ChaCha20-Poly1305 nonce
// from a 2-byte big-endian message number: the number occupies the low
// two bytes, the rest is zero. Message numbers never repeat within a
// direction (I1), so the nonce never repeats for a given key.
func nonceForMessageNumber(n uint16) [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	nonce[len(nonce)-2] = byte(n >> 8)
	nonce[len(nonce)-1] = byte(n)
	return nonce
}

// assocData derives the associated-data string from a message number:
// the same 2-byte big-endian encoding the wire header carries.
func assocData(n uint16) []byte {
	return []byte{byte(n >> 8), byte(n)}
}

// Seal encrypts and authenticates plaintext under this state with
// message number n as nonce input and associated data, appending the
// result to dst.
func (s SymmetricState) Seal(dst, plaintext []byte, n uint16) []byte {
	nonce := nonceForMessageNumber(n)
	return s.aead.Seal(dst, nonce[:], plaintext, assocData(n))
}

// Open verifies and decrypts ciphertext (which includes the trailing
// tag) under this state with message number n, appending the plaintext
// to dst. A tag mismatch is reported as an error by the caller, which
// must map it to protoerr.CryptoVerify.
func (s SymmetricState) Open(dst, ciphertext []byte, n uint16) ([]byte, error) {
	nonce := nonceForMessageNumber(n)
	return s.aead.Open(dst, nonce[:], ciphertext, assocData(n))
}

// Tag computes a standalone authentication tag over data with message
// number n as associated data, used by the handshake for the
// SERVER_FIRST message (authenticated but not encrypted). ChaCha20-
// Poly1305 has no standalone MAC-only mode, so the tag is the trailing
// TagSize bytes of sealing data as plaintext; the ciphertext bytes are
// discarded and never transmitted. Tag seals under a nonce whose first
// byte is tagNonceMarker, while Seal's nonces always start with a zero
// byte, so a DATA record's length tag and its payload, which share one
// message number, never share a nonce.
func (s SymmetricState) Tag(data []byte, n uint16) [TagSize]byte {
	var tag [TagSize]byte
	nonce := nonceForMessageNumber(n)
	nonce[0] = tagNonceMarker
	sealed := s.aead.Seal(nil, nonce[:], data, assocData(n))
	copy(tag[:], sealed[len(sealed)-TagSize:])
	return tag
}

// tagNonceMarker separates Tag's nonces from Seal's.
const tagNonceMarker = 0x01

// VerifyTag checks a tag produced by Tag in constant time.
func (s SymmetricState) VerifyTag(tag [TagSize]byte, data []byte, n uint16) bool {
	want := s.Tag(data, n)
	return subtle.ConstantTimeCompare(tag[:], want[:]) == 1
}
