/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package session

import (
	"bytes"
	"testing"
)

func testSymmetricState(t *testing.T) SymmetricState {
	t.Helper()
	var enc, auth [32]byte
	for i := range enc {
		enc[i], auth[i] = byte(i), byte(255-i)
	}
	s, err := newSymmetricState(enc, auth)
	if err != nil {
		t.Fatalf("newSymmetricState: %v", err)
	}
	return s
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := testSymmetricState(t)
	plaintext := []byte("authenticate and encrypt me")

	ciphertext := s.Seal(nil, plaintext, 42)
	got, err := s.Open(nil, ciphertext, 42)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Open = %q, want %q", got, plaintext)
	}
}

func TestOpenWrongMessageNumberFails(t *testing.T) {
	s := testSymmetricState(t)
	ciphertext := s.Seal(nil, []byte("data"), 1)
	if _, err := s.Open(nil, ciphertext, 2); err == nil {
		t.Fatal("Open with mismatched message number succeeded, want error")
	}
}

func TestTagVerifyTag(t *testing.T) {
	s := testSymmetricState(t)
	data := []byte("length-prefix bytes")

	tag := s.Tag(data, 5)
	if !s.VerifyTag(tag, data, 5) {
		t.Fatal("VerifyTag rejected a tag it produced itself")
	}

	tag[0] ^= 0xFF
	if s.VerifyTag(tag, data, 5) {
		t.Fatal("VerifyTag accepted a tampered tag")
	}
}
