/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPNProtocol is the ALPN identifier seclink negotiates over QUIC.
const ALPNProtocol = "seclink/1"

const (
	quicMaxIdleTimeout  = 60 * time.Second
	quicKeepAlivePeriod = 30 * time.Second
)

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:        quicMaxIdleTimeout,
		KeepAlivePeriod:       quicKeepAlivePeriod,
		MaxIncomingStreams:    1,
		MaxIncomingUniStreams: -1,
	}
}

// DialQUIC connects to addr over QUIC and opens the single stream
// seclink's handshake and record layer run over. tlsConfig is the TLS
// configuration QUIC requires at the transport layer; seclink's own
// authentication happens at the handshake layer, so the config the
// client passes (ClientTLSConfig) does not verify the certificate.
func DialQUIC(ctx context.Context, addr string, tlsConfig *tls.Config) (Conn, error) {
	cfg := tlsConfig.Clone()
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{ALPNProtocol}
	}
	conn, err := quic.DialAddr(ctx, addr, cfg, quicConfig())
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "stream open failed")
		return nil, err
	}
	return &quicStreamConn{conn: conn, stream: stream}, nil
}

type quicListener struct {
	ln *quic.Listener
}

// ListenQUIC starts a QUIC listener on addr.
func ListenQUIC(addr string, tlsConfig *tls.Config) (Listener, error) {
	cfg := tlsConfig.Clone()
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{ALPNProtocol}
	}
	ln, err := quic.ListenAddr(addr, cfg, quicConfig())
	if err != nil {
		return nil, err
	}
	return &quicListener{ln: ln}, nil
}

// Accept waits for the next QUIC connection and its first stream.
func (l *quicListener) Accept() (Conn, error) {
	ctx := context.Background()
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "stream accept failed")
		return nil, err
	}
	return &quicStreamConn{conn: conn, stream: stream}, nil
}

func (l *quicListener) Close() error    { return l.ln.Close() }
func (l *quicListener) Addr() net.Addr  { return l.ln.Addr() }

// quicStreamConn adapts a QUIC connection's single stream to Conn.
// Reads and writes go through the stream; Close tears down the whole
// connection, since seclink never multiplexes more than one stream per
// QUIC connection.
type quicStreamConn struct {
	conn   quic.Connection
	stream quic.Stream
}

func (c *quicStreamConn) Read(p []byte) (int, error)  { return c.stream.Read(p) }
func (c *quicStreamConn) Write(p []byte) (int, error) { return c.stream.Write(p) }

func (c *quicStreamConn) SetReadDeadline(t time.Time) error {
	return c.stream.SetReadDeadline(t)
}

func (c *quicStreamConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *quicStreamConn) Close() error {
	c.stream.CancelRead(0)
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "closed")
}

// SelfSignedServerTLSConfig generates an ephemeral self-signed
// certificate for a QUIC listener. seclink's own peer authentication
// happens at the handshake layer (§4.2), so the QUIC-level certificate
// only needs to satisfy TLS 1.3's transport requirement; it carries no
// trust decision of its own, matching ClientTLSConfig's corresponding
// InsecureSkipVerify on the dial side.
func SelfSignedServerTLSConfig() (*tls.Config, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("transport: generate cert key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("transport: generate serial: %w", err)
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "seclink"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * 365 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("transport: create cert: %w", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig builds the dial-side QUIC TLS config. It skips
// certificate verification deliberately: the QUIC certificate carries
// no identity seclink trusts, since the handshake package is where
// peer authentication actually happens.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPNProtocol},
		MinVersion:         tls.VersionTLS13,
	}
}
