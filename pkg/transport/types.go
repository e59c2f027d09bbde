// Package transport implements the virtual-channel fan-out/fan-in fabric
// (spec §4.1): a pluggable multi-transport layer that binds named
// byte-oriented endpoints to Virtual Channels and presents a uniform
// VcId -> (sender, receiver) surface to the frame processor and PUS
// application layers above it.
package transport

import (
	"context"
	"fmt"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
)

// VcId identifies a Virtual Channel (spec §3), 0..=255.
type VcId = uint8

// ReaderAdapter drives an ingress transport: bytes arriving from the
// outside world are delivered onto send.
type ReaderAdapter interface {
	// AddReader starts (or schedules) delivering inbound payloads from the
	// binding described by b onto send. It must not block; the actual I/O
	// loop runs once Run is invoked on the returned driver.
	AddReader(b config.Transport, send *bytechan.Chan) (Driver, error)
}

// WriterAdapter drives an egress transport: buffers read from recv are
// sent to the outside world.
type WriterAdapter interface {
	AddWriter(b config.Transport, recv *bytechan.Chan) (Driver, error)
}

// Driver is a single adapter's I/O loop, handed to the manager to run on
// its own goroutine (spec §4.1 "run(): hand ownership of each adapter to
// its own driver").
type Driver func(ctx context.Context) error

// VirtualChannel is the runtime counterpart of config.VirtualChannelConfig:
// an immutable, named VC with optional TX/RX transport bindings (spec §3).
type VirtualChannel struct {
	ID          VcId
	Name        string
	TxTransport *config.Transport
	RxTransport *config.Transport
}

// ErrInvalidConfig is returned by AddVirtualChannel when a binding is
// structurally invalid (spec §4.1).
var ErrInvalidConfig = fmt.Errorf("transport: invalid configuration")

// ErrUnknownVirtualChannel names the case of a VcId with no registered
// binding in the direction being looked up. Manager does not return it:
// TxChan and RxChan report that case with a false second result.
var ErrUnknownVirtualChannel = fmt.Errorf("transport: unknown virtual channel")
