/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"testing"

	"github.com/zx2c4dev/seclink/config"
	"github.com/zx2c4dev/seclink/ratelimiter"
)

func newTestLimiter(t *testing.T) *ratelimiter.Limiter {
	t.Helper()
	l := &ratelimiter.Limiter{}
	l.Init(0, 0)
	t.Cleanup(l.Close)
	return l
}

func TestMergeServerFlagsOverridesOnlySetFields(t *testing.T) {
	dst := &config.Config{
		Socket:      config.DefaultSocket,
		KeyFile:     "from-config.key",
		MetricsAddr: "",
	}
	flags := &config.Config{
		Socket: "10.0.0.1:9000",
	}

	mergeServerFlags(dst, flags)

	if dst.Socket != "10.0.0.1:9000" {
		t.Errorf("Socket = %q, want flag override", dst.Socket)
	}
	if dst.KeyFile != "from-config.key" {
		t.Errorf("KeyFile = %q, want untouched config value", dst.KeyFile)
	}
	if dst.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want still empty", dst.MetricsAddr)
	}
}

func TestNewTestLimiterAllowsFirstAttempt(t *testing.T) {
	limiter := newTestLimiter(t)

	if !limiter.AllowAddr(stringAddr("203.0.113.5:4444")) {
		t.Error("AllowAddr() = false on first connection from a fresh address")
	}
}

type stringAddr string

func (s stringAddr) Network() string { return "tcp" }
func (s stringAddr) String() string  { return string(s) }
