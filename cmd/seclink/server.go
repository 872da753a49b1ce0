/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zx2c4dev/seclink/config"
	"github.com/zx2c4dev/seclink/endpoint"
	"github.com/zx2c4dev/seclink/keyfile"
	"github.com/zx2c4dev/seclink/metrics"
	"github.com/zx2c4dev/seclink/protoerr"
	"github.com/zx2c4dev/seclink/ratelimiter"
	"github.com/zx2c4dev/seclink/seclog"
	"github.com/zx2c4dev/seclink/transport"
	"github.com/zx2c4dev/seclink/trustmap"
)

func serverCmd() *cobra.Command {
	var cfgPath string
	var cfg config.Config

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept connections and run the server side of the handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			mergeServerFlags(loaded, &cfg)
			if err := loaded.Validate("server"); err != nil {
				return err
			}
			return runServer(loaded)
		},
	}

	addCommonFlags(cmd, &cfg, &cfgPath)
	return cmd
}

func mergeServerFlags(dst *config.Config, flags *config.Config) {
	if flags.Socket != "" {
		dst.Socket = flags.Socket
	}
	if flags.KeyFile != "" {
		dst.KeyFile = flags.KeyFile
	}
	if flags.PublicKeyFile != "" {
		dst.PublicKeyFile = flags.PublicKeyFile
	}
	if flags.Transport != "" {
		dst.Transport = flags.Transport
	}
	if flags.MetricsAddr != "" {
		dst.MetricsAddr = flags.MetricsAddr
	}
}

func runServer(cfg *config.Config) error {
	log := cfg.Logger()
	m := metrics.Default()

	long, err := keyfile.Load(cfg.KeyFile)
	if err != nil {
		return err
	}
	trusted, err := trustmap.Load(cfg.PublicKeyFile)
	if err != nil {
		return err
	}

	ln, err := listen(cfg)
	if err != nil {
		return err
	}
	defer ln.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	limiter := &ratelimiter.Limiter{}
	limiter.Init(cfg.RateLimit.AttemptsPerSecond, cfg.RateLimit.Burst)
	defer limiter.Close()

	log.Verbosef("listening on %s (%s)", cfg.Socket, cfg.Transport)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return protoerr.Wrap(protoerr.IOAccept, err)
		}

		if !limiter.AllowAddr(conn.RemoteAddr()) {
			m.RecordAcceptRejected()
			conn.Close()
			continue
		}

		go func() {
			start := time.Now()
			m.RecordHandshakeStart()
			ep, err := endpoint.Accept(conn, long, trusted, log)
			if err != nil {
				log.Errorf("handshake failed: %v", err)
				if pe, ok := err.(*protoerr.Error); ok {
					m.RecordHandshakeError(pe.Code.String())
				}
				return
			}
			m.RecordHandshakeSuccess(time.Since(start).Seconds())
			ep.SetMetrics(m)
			defer func() {
				ep.Close()
				m.RecordEndpointClosed()
			}()
			echoLoop(ep, log)
		}()
	}
}

func echoLoop(ep *endpoint.Endpoint, log *seclog.Logger) {
	buf := make([]byte, 65536)
	for {
		n, err := ep.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if _, err := ep.Write(buf[:n]); err != nil {
			log.Errorf("write failed: %v", err)
			return
		}
	}
}

func listen(cfg *config.Config) (transport.Listener, error) {
	switch cfg.Transport {
	case config.TransportQUIC:
		tlsCfg, err := transport.SelfSignedServerTLSConfig()
		if err != nil {
			return nil, err
		}
		return transport.ListenQUIC(cfg.Socket, tlsCfg)
	default:
		return transport.ListenTCP(cfg.Socket)
	}
}

func serveMetrics(addr string, log *seclog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server failed: %v", err)
	}
}

func addCommonFlags(cmd *cobra.Command, cfg *config.Config, cfgPath *string) {
	cmd.Flags().StringVar(&cfg.Socket, "socket", "", fmt.Sprintf("bind/dial address (default %s)", config.DefaultSocket))
	cmd.Flags().StringVar(&cfg.KeyFile, "key-file", "", "this endpoint's identity key file")
	cmd.Flags().StringVar(&cfg.PublicKeyFile, "public-key", "", "trusted public key list")
	cmd.Flags().StringVar((*string)(&cfg.Transport), "transport", "", "tcp or quic (default tcp)")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (disabled if empty)")
	cmd.Flags().StringVar(cfgPath, "config", "", "YAML config file")
}
