/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zx2c4dev/seclink/config"
	"github.com/zx2c4dev/seclink/endpoint"
	"github.com/zx2c4dev/seclink/keyfile"
	"github.com/zx2c4dev/seclink/metrics"
	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/transport"
	"github.com/zx2c4dev/seclink/trustmap"
)

func clientCmd() *cobra.Command {
	var cfgPath string
	var cfg config.Config

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Dial a server and run the device side of the handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			mergeServerFlags(loaded, &cfg)
			if err := loaded.Validate("client"); err != nil {
				return err
			}
			return runClient(loaded)
		},
	}

	addCommonFlags(cmd, &cfg, &cfgPath)
	return cmd
}

func runClient(cfg *config.Config) error {
	log := cfg.Logger()
	m := metrics.Default()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	long, err := keyfile.Load(cfg.KeyFile)
	if err != nil {
		return err
	}
	trusted, err := trustmap.Load(cfg.PublicKeyFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var conn transport.Conn
	switch cfg.Transport {
	case config.TransportQUIC:
		conn, err = transport.DialQUIC(ctx, cfg.Socket, transport.ClientTLSConfig())
	default:
		conn, err = transport.DialTCP(ctx, cfg.Socket)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	m.RecordHandshakeStart()
	ep, err := endpoint.Dial(conn, long, trusted, log)
	if err != nil {
		if pe, ok := err.(*protoerr.Error); ok {
			m.RecordHandshakeError(pe.Code.String())
		}
		return err
	}
	m.RecordHandshakeSuccess(time.Since(start).Seconds())
	ep.SetMetrics(m)
	defer func() {
		ep.Close()
		m.RecordEndpointClosed()
	}()

	fmt.Printf("connected; authenticated peer established\n")

	var sent, received uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65536)
		for {
			n, err := ep.Read(buf)
			if err != nil {
				return
			}
			received += uint64(n)
			os.Stdout.Write(buf[:n])
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := append(scanner.Bytes(), '\n')
		if _, err := ep.Write(line); err != nil {
			return err
		}
		sent += uint64(len(line))
	}

	ep.Close()
	<-done

	fmt.Printf("sent %s, received %s\n", humanize.Bytes(sent), humanize.Bytes(received))
	return nil
}
