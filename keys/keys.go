/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package keys defines the fixed-width key types shared by the
// handshake, session, and endpoint packages.
package keys

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/curve25519"
)

const (
	// Size is the width, in bytes, of a public or secret key.
	Size = 32
	// IDSize is the width, in bytes, of a PublicKeyId.
	IDSize = 32
)

// PublicKey is an X25519 public key.
type PublicKey [Size]byte

// SecretKey is an X25519 secret key.
type SecretKey [Size]byte

// PublicKeyId is SHA-256(PublicKey), used to index a TrustedMap.
type PublicKeyId [IDSize]byte

var errInvalidPublicKey = errors.New("keys: invalid public key")

// IsZero reports whether k is the all-zero key.
func (k PublicKey) IsZero() bool {
	var zero PublicKey
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// ID returns the PublicKeyId for k.
func (k PublicKey) ID() PublicKeyId {
	return PublicKeyId(sha256.Sum256(k[:]))
}

// Equal reports whether two PublicKeyIds match, in constant time.
func (id PublicKeyId) Equal(other PublicKeyId) bool {
	return subtle.ConstantTimeCompare(id[:], other[:]) == 1
}

// clamp applies the X25519 secret-key clamping from RFC 7748.
func (sk *SecretKey) clamp() {
	sk[0] &= 248
	sk[31] &= 127
	sk[31] |= 64
}

// NewSecretKey generates a fresh, correctly clamped secret key using
// the supplied entropy source (normally crypto/rand.Reader).
func NewSecretKey(random func([]byte) (int, error)) (SecretKey, error) {
	var sk SecretKey
	if _, err := random(sk[:]); err != nil {
		return SecretKey{}, err
	}
	sk.clamp()
	return sk, nil
}

// Public derives the X25519 public key matching sk.
func (sk SecretKey) Public() PublicKey {
	var pk PublicKey
	curve25519.ScalarBaseMult((*[Size]byte)(&pk), (*[Size]byte)(&sk))
	return pk
}

// DH computes the X25519 shared secret between sk and pk. It rejects a
// low-order or zero public key, which would otherwise yield a
// predictable shared secret (RFC 7748 contributory-behavior check).
func (sk SecretKey) DH(pk PublicKey) ([Size]byte, error) {
	var shared [Size]byte
	out, err := curve25519.X25519(sk[:], pk[:])
	if err != nil {
		return shared, errInvalidPublicKey
	}
	copy(shared[:], out)
	if PublicKey(shared).IsZero() {
		return shared, errInvalidPublicKey
	}
	return shared, nil
}

// Zero overwrites sk with zeroes. Call via defer immediately after an
// ephemeral secret key is generated; see keys.Ephemeral for the owned
// form that does this automatically.
func (sk *SecretKey) Zero() {
	for i := range sk {
		sk[i] = 0
	}
}
