/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"strings"
	"testing"
)

func TestScrapeSamplesParsesCountersAndLabels(t *testing.T) {
	body := `# HELP seclink_handshakes_started_total total handshakes started
# TYPE seclink_handshakes_started_total counter
seclink_handshakes_started_total 12
seclink_handshake_errors_total{code="CRYPTO_VERIFY"} 2
seclink_handshake_errors_total{code="PUBKEY_ID_UNKNOWN"} 1
seclink_endpoints_active 3
`
	got := scrapeSamples(strings.NewReader(body))

	want := map[string]float64{
		"seclink_handshakes_started_total": 12,
		"seclink_handshake_errors_total":   3,
		"seclink_endpoints_active":         3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("samples[%q] = %v, want %v", name, got[name], v)
		}
	}
}

func TestScrapeSamplesIgnoresMalformedLines(t *testing.T) {
	body := "not a metric line\nseclink_bytes_sent_total not-a-number\nseclink_bytes_sent_total 40\n"
	got := scrapeSamples(strings.NewReader(body))
	if got["seclink_bytes_sent_total"] != 40 {
		t.Errorf("seclink_bytes_sent_total = %v, want 40", got["seclink_bytes_sent_total"])
	}
}
