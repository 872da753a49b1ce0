/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package trustmap implements TrustedKeyMap: a read-only, by-id index
// of long-term public keys the handshake consults to authenticate a
// peer's presented PublicKeyId.
package trustmap

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/zx2c4dev/seclink/keys"
)

// Map is a read-only mapping from PublicKeyId to PublicKey. The zero
// value is an empty map ready to use.
type Map struct {
	byID map[keys.PublicKeyId]keys.PublicKey
}

// New returns an empty Map.
func New() *Map {
	return &Map{byID: make(map[keys.PublicKeyId]keys.PublicKey)}
}

// Add inserts pk, indexed by its derived id. Re-adding the same key is
// a no-op; inserting a distinct key that collides on id (practically
// impossible for SHA-256) overwrites the previous entry.
func (m *Map) Add(pk keys.PublicKey) {
	if m.byID == nil {
		m.byID = make(map[keys.PublicKeyId]keys.PublicKey)
	}
	m.byID[pk.ID()] = pk
}

// Lookup returns the PublicKey registered under id. It re-derives the
// id from the stored key and rejects the entry if they no longer
// match, defending against a substituted map that maps one id to an
// unrelated key (spec.md §9, "Trusted-key lookup").
func (m *Map) Lookup(id keys.PublicKeyId) (keys.PublicKey, bool) {
	pk, ok := m.byID[id]
	if !ok {
		return keys.PublicKey{}, false
	}
	if !pk.ID().Equal(id) {
		return keys.PublicKey{}, false
	}
	return pk, true
}

// Len reports the number of distinct keys in m.
func (m *Map) Len() int {
	return len(m.byID)
}

// Load reads a trusted-key list from path: one hex-encoded 32-byte
// public key per line, blank lines and lines starting with "#"
// ignored.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trustmap: open %s: %w", path, err)
	}
	defer f.Close()

	m := New()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("trustmap: %s:%d: invalid hex: %w", path, lineNo, err)
		}
		if len(raw) != keys.Size {
			return nil, fmt.Errorf("trustmap: %s:%d: want %d bytes, got %d", path, lineNo, keys.Size, len(raw))
		}
		var pk keys.PublicKey
		copy(pk[:], raw)
		m.Add(pk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trustmap: reading %s: %w", path, err)
	}
	return m, nil
}
