/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package keyfile

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/zx2c4dev/seclink/keys"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	kp, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair: %v", err)
	}
	path := filepath.Join(t.TempDir(), "identity")

	if Exists(path) {
		t.Fatal("Exists reported true before Save")
	}
	if err := Save(path, kp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(path) {
		t.Fatal("Exists reported false after Save")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != kp {
		t.Fatalf("Load = %+v, want %+v", got, kp)
	}
}

func TestSaveOverwritesUnconditionally(t *testing.T) {
	a, _ := keys.GenerateLongKeypair()
	b, _ := keys.GenerateLongKeypair()
	path := filepath.Join(t.TempDir(), "identity")

	if err := Save(path, a); err != nil {
		t.Fatalf("Save(a): %v", err)
	}
	if err := Save(path, b); err != nil {
		t.Fatalf("Save(b): %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != b {
		t.Fatal("Save did not overwrite the existing file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity")
	kp, err := keys.GenerateLongKeypair()
	if err != nil {
		t.Fatalf("GenerateLongKeypair: %v", err)
	}
	if err := os.WriteFile(path, []byte("PK: "+hex.EncodeToString(kp.Public[:])+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load succeeded with a missing SK line")
	}
}

func TestFilePermissions(t *testing.T) {
	kp, _ := keys.GenerateLongKeypair()
	path := filepath.Join(t.TempDir(), "identity")
	if err := Save(path, kp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}
