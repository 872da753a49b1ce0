/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package ratelimiter throttles inbound connection-accept attempts per
// source address, so a flood of dial attempts from one address cannot
// monopolize the accept loop's CPU before the handshake even
// authenticates the peer. Unlike a per-packet limiter sitting beneath
// a kernel socket, the accept loop only ever sees one event per TCP or
// QUIC connection attempt, so the bucket here is sized in attempts per
// second rather than packets per second, and it owns the address
// bookkeeping end to end: callers hand it whatever net.Addr
// net.Listener.Accept returns and never touch netip.Addr themselves.
package ratelimiter

import (
	"net"
	"net/netip"
	"sync"
	"time"
)

// DefaultAttemptsPerSecond and DefaultBurst are the rate and burst
// Init falls back to when given a non-positive value, matching
// config.Default()'s baked-in rate limit.
const (
	DefaultAttemptsPerSecond = 20
	DefaultBurst             = 5

	// idleEntryTTL is how long an address's bucket may sit untouched
	// before the garbage-collection goroutine reclaims it.
	idleEntryTTL = time.Second
)

// entry is one source address's token bucket.
type entry struct {
	mu       sync.Mutex
	lastTime time.Time
	tokens   int64
}

// Limiter is a per-address token bucket rate limiter for accept-side
// throttling. The zero value is not usable; call Init first.
type Limiter struct {
	mu      sync.RWMutex
	timeNow func() time.Time

	attemptCost int64 // nanoseconds of refill time one accept attempt costs
	maxTokens   int64

	stopReset chan struct{} // send to reset, close to stop
	table     map[netip.Addr]*entry
}

// Close stops the background garbage-collection goroutine.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopReset != nil {
		close(l.stopReset)
	}
}

// Init (re-)initializes l with the given rate and starts its
// garbage-collection goroutine. attemptsPerSecond and burst fall back
// to DefaultAttemptsPerSecond/DefaultBurst when non-positive, so the
// zero-valued config.RateLimitConfig{} behaves the same as an explicit
// default one.
func (l *Limiter) Init(attemptsPerSecond, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if attemptsPerSecond <= 0 {
		attemptsPerSecond = DefaultAttemptsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	l.attemptCost = int64(time.Second) / int64(attemptsPerSecond)
	l.maxTokens = l.attemptCost * int64(burst)

	if l.timeNow == nil {
		l.timeNow = time.Now
	}

	if l.stopReset != nil {
		close(l.stopReset)
	}

	l.stopReset = make(chan struct{})
	l.table = make(map[netip.Addr]*entry)

	stopReset := l.stopReset // store in case Init is called again.

	go func() {
		ticker := time.NewTicker(time.Second)
		ticker.Stop()
		for {
			select {
			case _, ok := <-stopReset:
				ticker.Stop()
				if !ok {
					return
				}
				ticker = time.NewTicker(time.Second)
			case <-ticker.C:
				if l.cleanup() {
					ticker.Stop()
				}
			}
		}
	}()
}

func (l *Limiter) cleanup() (empty bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.table {
		e.mu.Lock()
		if l.timeNow().Sub(e.lastTime) > idleEntryTTL {
			delete(l.table, key)
		}
		e.mu.Unlock()
	}

	return len(l.table) == 0
}

// Allow reports whether a new connection attempt from addr should be
// accepted, consuming a token from its bucket if so.
func (l *Limiter) Allow(addr netip.Addr) bool {
	l.mu.RLock()
	e := l.table[addr]
	cost, bucketMax := l.attemptCost, l.maxTokens
	l.mu.RUnlock()

	if e == nil {
		e = &entry{tokens: bucketMax - cost, lastTime: l.timeNow()}
		l.mu.Lock()
		l.table[addr] = e
		if len(l.table) == 1 {
			l.stopReset <- struct{}{}
		}
		l.mu.Unlock()
		return true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := l.timeNow()
	e.tokens += now.Sub(e.lastTime).Nanoseconds()
	e.lastTime = now
	if e.tokens > bucketMax {
		e.tokens = bucketMax
	}

	if e.tokens > cost {
		e.tokens -= cost
		return true
	}
	return false
}

// AllowAddr is Allow for the net.Addr a net.Listener hands the accept
// loop directly. An address with no parseable host (a non-IP network,
// or an unexpected String() form) fails open: seclink's defense in
// depth against accept flooding is this limiter plus the handshake's
// own authentication, not address parsing, so an address this package
// cannot key on should not itself become a denial-of-service vector.
func (l *Limiter) AllowAddr(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return true
	}
	return l.Allow(ip)
}
