/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package keyfile persists a long-term keypair to disk in the
// two-line hex-pair format spec.md §6 describes. It does not prompt
// before overwriting; Exists lets a caller (cmd/seclink keygen) do so.
package keyfile

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/zx2c4dev/seclink/keys"
)

const filePerm = 0o600

// Exists reports whether a key file is already present at path, so a
// caller (cmd/seclink keygen) can decide whether to prompt before
// overwriting.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save writes kp to path as two lines:
//
//	PK: <hex public key>
//	SK: <hex secret key>
//
// Save overwrites any existing file unconditionally; callers that
// want a confirmation gate should check Exists first.
func Save(path string, kp keys.LongKeypair) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PK: %s\n", hex.EncodeToString(kp.Public[:]))
	fmt.Fprintf(&buf, "SK: %s\n", hex.EncodeToString(kp.Secret[:]))

	if err := os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("keyfile: write %s: %w", path, err)
	}
	return nil
}

// Load reads a keypair previously written by Save.
func Load(path string) (keys.LongKeypair, error) {
	f, err := os.Open(path)
	if err != nil {
		return keys.LongKeypair{}, fmt.Errorf("keyfile: open %s: %w", path, err)
	}
	defer f.Close()

	var kp keys.LongKeypair
	var gotPK, gotSK bool

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "PK:"):
			raw, err := decodeHexField(line, "PK:")
			if err != nil {
				return keys.LongKeypair{}, fmt.Errorf("keyfile: %s: %w", path, err)
			}
			copy(kp.Public[:], raw)
			gotPK = true
		case strings.HasPrefix(line, "SK:"):
			raw, err := decodeHexField(line, "SK:")
			if err != nil {
				return keys.LongKeypair{}, fmt.Errorf("keyfile: %s: %w", path, err)
			}
			copy(kp.Secret[:], raw)
			gotSK = true
		}
	}
	if err := scanner.Err(); err != nil {
		return keys.LongKeypair{}, fmt.Errorf("keyfile: reading %s: %w", path, err)
	}
	if !gotPK || !gotSK {
		return keys.LongKeypair{}, fmt.Errorf("keyfile: %s: missing PK or SK line", path)
	}
	return kp, nil
}

func decodeHexField(line, prefix string) ([]byte, error) {
	field := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	field = strings.ReplaceAll(field, " ", "")
	raw, err := hex.DecodeString(field)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != keys.Size {
		return nil, fmt.Errorf("want %d bytes, got %d", keys.Size, len(raw))
	}
	return raw, nil
}
