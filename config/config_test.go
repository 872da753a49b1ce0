/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != want {
		t.Fatalf("Load(missing) = %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seclink.yaml")
	yamlContent := "socket: \"0.0.0.0:9999\"\nkey_file: \"/etc/seclink/identity\"\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket != "0.0.0.0:9999" {
		t.Errorf("Socket = %q, want overridden value", cfg.Socket)
	}
	if cfg.KeyFile != "/etc/seclink/identity" {
		t.Errorf("KeyFile = %q, want overridden value", cfg.KeyFile)
	}
	if cfg.Transport != TransportTCP {
		t.Errorf("Transport = %q, want default %q (untouched by file)", cfg.Transport, TransportTCP)
	}
}

func TestValidateKeygen(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate("keygen"); err == nil {
		t.Fatal("Validate(keygen) with no key_file should fail")
	}
	cfg.KeyFile = "/tmp/identity"
	if err := cfg.Validate("keygen"); err != nil {
		t.Fatalf("Validate(keygen): %v", err)
	}
}

func TestValidateServerRequiresFields(t *testing.T) {
	cfg := Default()
	cfg.KeyFile = "/tmp/identity"
	if err := cfg.Validate("server"); err == nil {
		t.Fatal("Validate(server) with no public_key_file should fail")
	}
	cfg.PublicKeyFile = "/tmp/trusted"
	if err := cfg.Validate("server"); err != nil {
		t.Fatalf("Validate(server): %v", err)
	}
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	cfg := Default()
	cfg.KeyFile = "/tmp/identity"
	cfg.PublicKeyFile = "/tmp/trusted"
	cfg.Transport = "carrier-pigeon"
	if err := cfg.Validate("client"); err == nil {
		t.Fatal("Validate accepted an unknown transport")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate("teleport"); err == nil {
		t.Fatal("Validate accepted an unknown mode")
	}
}
