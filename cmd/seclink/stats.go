/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// statsCmd fetches a running server's Prometheus metrics endpoint and
// prints a short human-readable summary. It is not a full metrics
// client: it greps the handful of seclink_* samples it cares about out
// of the text-format response rather than depending on a Prometheus
// parsing library.
func statsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a human-readable summary of a server's metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "metrics-addr", "http://127.0.0.1:9090", "base URL of the server's metrics endpoint")
	return cmd
}

func runStats(addr string) error {
	url := strings.TrimSuffix(addr, "/") + "/metrics"
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("stats: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats: %s returned %s", url, resp.Status)
	}

	samples := scrapeSamples(resp.Body)

	fmt.Printf("endpoints active:      %s\n", humanize.Comma(int64(samples["seclink_endpoints_active"])))
	fmt.Printf("handshakes started:    %s\n", humanize.Comma(int64(samples["seclink_handshakes_started_total"])))
	fmt.Printf("handshakes succeeded:  %s\n", humanize.Comma(int64(samples["seclink_handshakes_succeeded_total"])))
	fmt.Printf("accepts rejected:      %s\n", humanize.Comma(int64(samples["seclink_accepts_rejected_total"])))
	fmt.Printf("bytes sent:            %s\n", humanize.Bytes(uint64(samples["seclink_payload_bytes_sent_total"])))
	fmt.Printf("bytes received:        %s\n", humanize.Bytes(uint64(samples["seclink_payload_bytes_received_total"])))
	return nil
}

// scrapeSamples parses the subset of the Prometheus text exposition
// format seclink cares about: "name value" or "name{labels} value"
// lines, ignoring HELP/TYPE comments.
func scrapeSamples(r interface {
	Read([]byte) (int, error)
}) map[string]float64 {
	out := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		name := fields[0]
		if idx := strings.IndexByte(name, '{'); idx >= 0 {
			name = name[:idx]
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		out[name] += v
	}
	return out
}
