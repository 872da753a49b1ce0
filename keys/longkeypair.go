/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package keys

import "crypto/rand"

// LongKeypair is an endpoint's persistent identity keypair, owned
// exclusively by one endpoint for its process lifetime.
type LongKeypair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateLongKeypair creates a fresh identity keypair using
// crypto/rand.
func GenerateLongKeypair() (LongKeypair, error) {
	sk, err := NewSecretKey(rand.Read)
	if err != nil {
		return LongKeypair{}, err
	}
	return LongKeypair{Public: sk.Public(), Secret: sk}, nil
}

// Ephemeral is a per-handshake keypair. Its secret is zeroized once the
// handshake derives session keys; see Drop. The same ephemeral secret
// is combined with more than one peer public key over the handshake
// (once for the encryption DH, once for an authentication DH), so DH
// may be called more than once before Drop.
type Ephemeral struct {
	Public  PublicKey
	secret  SecretKey
	dropped bool
}

// NewEphemeral generates a fresh ephemeral keypair.
func NewEphemeral() (*Ephemeral, error) {
	sk, err := NewSecretKey(rand.Read)
	if err != nil {
		return nil, err
	}
	return &Ephemeral{Public: sk.Public(), secret: sk}, nil
}

// DH computes the shared secret between the ephemeral secret and pk.
// It is an error to call DH after Drop.
func (e *Ephemeral) DH(pk PublicKey) ([Size]byte, error) {
	if e.dropped {
		return [Size]byte{}, errInvalidPublicKey
	}
	return e.secret.DH(pk)
}

// Drop zeroizes the ephemeral secret key. Safe to call more than once.
func (e *Ephemeral) Drop() {
	e.secret.Zero()
	e.dropped = true
}
