// Package udpadapter implements the UDP transport binding (spec §4.1 "UDP
// adapter contract"), grounded on the net.UDPConn handling in
// elektrosoftlab-modbus's udp.go.
package udpadapter

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
)

// MaxDatagramSize is the largest UDP payload the reader will accept per
// spec §4.1 ("up to 8096 bytes").
const MaxDatagramSize = 8096

// Adapter is the UDP transport.ReaderAdapter/WriterAdapter implementation.
type Adapter struct{}

// New constructs a UDP adapter.
func New() *Adapter { return &Adapter{} }

// AddReader binds a datagram socket on b.Listen; each datagram received is
// delivered whole to send. The driver exits on socket error or channel
// send error (spec §4.1).
func (a *Adapter) AddReader(b config.Transport, send *bytechan.Chan) (transport.Driver, error) {
	if b.Kind != config.TransportUDP {
		return nil, fmt.Errorf("udpadapter: unsupported kind %q", b.Kind)
	}
	addr, err := net.ResolveUDPAddr("udp", b.Listen)
	if err != nil {
		return nil, fmt.Errorf("udpadapter: resolve listen addr %q: %w", b.Listen, err)
	}

	return func(ctx context.Context) error {
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return fmt.Errorf("udpadapter: listen %s: %w", b.Listen, err)
		}
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		buf := make([]byte, MaxDatagramSize)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				log.Printf("[transport/udp] read error on %s: %v", b.Listen, err)
				return fmt.Errorf("udpadapter: read %s: %w", b.Listen, err)
			}
			payload := append([]byte(nil), buf[:n]...)
			if err := send.Send(ctx, payload); err != nil {
				return fmt.Errorf("udpadapter: deliver datagram from %s: %w", b.Listen, err)
			}
		}
	}, nil
}

// AddWriter binds an ephemeral local datagram socket and sends every
// buffer received on recv to b.Send. Per-send errors are logged and the
// loop continues (spec §4.1).
func (a *Adapter) AddWriter(b config.Transport, recv *bytechan.Chan) (transport.Driver, error) {
	if b.Kind != config.TransportUDP {
		return nil, fmt.Errorf("udpadapter: unsupported kind %q", b.Kind)
	}
	destAddr, err := net.ResolveUDPAddr("udp", b.Send)
	if err != nil {
		return nil, fmt.Errorf("udpadapter: resolve send addr %q: %w", b.Send, err)
	}

	return func(ctx context.Context) error {
		conn, err := net.DialUDP("udp", nil, destAddr)
		if err != nil {
			return fmt.Errorf("udpadapter: dial %s: %w", b.Send, err)
		}
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			buf, ok := recv.Recv(ctx)
			if !ok {
				return nil
			}
			if _, err := conn.Write(buf); err != nil {
				log.Printf("[transport/udp] write error to %s: %v", b.Send, err)
				continue
			}
		}
	}, nil
}
