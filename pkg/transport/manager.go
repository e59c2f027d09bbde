package transport

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
)

// Manager binds configured Virtual Channels to their transport adapters and
// presents the resulting VcId -> byte-channel maps to the layers above it
// (spec §4.1).
type Manager struct {
	readerAdapters map[config.TransportKind]ReaderAdapter
	writerAdapters map[config.TransportKind]WriterAdapter

	tx map[VcId]*bytechan.Chan // upper layer writes here for egress
	rx map[VcId]*bytechan.Chan // upper layer reads here for ingress

	drivers []Driver
}

// NewManager constructs an empty manager. Register adapters with
// RegisterReaderAdapter/RegisterWriterAdapter before calling
// AddVirtualChannel.
func NewManager() *Manager {
	return &Manager{
		readerAdapters: make(map[config.TransportKind]ReaderAdapter),
		writerAdapters: make(map[config.TransportKind]WriterAdapter),
		tx:             make(map[VcId]*bytechan.Chan),
		rx:             make(map[VcId]*bytechan.Chan),
	}
}

// RegisterReaderAdapter wires the adapter responsible for the given
// transport kind's RX (ingress) bindings.
func (m *Manager) RegisterReaderAdapter(kind config.TransportKind, a ReaderAdapter) {
	m.readerAdapters[kind] = a
}

// RegisterWriterAdapter wires the adapter responsible for the given
// transport kind's TX (egress) bindings.
func (m *Manager) RegisterWriterAdapter(kind config.TransportKind, a WriterAdapter) {
	m.writerAdapters[kind] = a
}

// AddVirtualChannel allocates byte channels for whichever of vc.TxTransport
// and vc.RxTransport are present, registers the opposite end with the
// matching adapter, and stores the near end in the TX/RX map (spec §4.1).
func (m *Manager) AddVirtualChannel(vc VirtualChannel) error {
	if _, exists := m.tx[vc.ID]; exists {
		return fmt.Errorf("%w: duplicate tx binding for vc %d", ErrInvalidConfig, vc.ID)
	}
	if _, exists := m.rx[vc.ID]; exists {
		return fmt.Errorf("%w: duplicate rx binding for vc %d", ErrInvalidConfig, vc.ID)
	}

	if vc.TxTransport != nil {
		adapter, ok := m.writerAdapters[vc.TxTransport.Kind]
		if !ok {
			return fmt.Errorf("%w: no writer adapter registered for kind %q", ErrInvalidConfig, vc.TxTransport.Kind)
		}
		ch := bytechan.New()
		driver, err := adapter.AddWriter(*vc.TxTransport, ch)
		if err != nil {
			return fmt.Errorf("transport: vc %d tx: %w", vc.ID, err)
		}
		m.tx[vc.ID] = ch
		m.drivers = append(m.drivers, driver)
		log.Printf("[transport] vc %d (%s): tx bound to %s", vc.ID, vc.Name, vc.TxTransport.Kind)
	}

	if vc.RxTransport != nil {
		adapter, ok := m.readerAdapters[vc.RxTransport.Kind]
		if !ok {
			return fmt.Errorf("%w: no reader adapter registered for kind %q", ErrInvalidConfig, vc.RxTransport.Kind)
		}
		ch := bytechan.New()
		driver, err := adapter.AddReader(*vc.RxTransport, ch)
		if err != nil {
			return fmt.Errorf("transport: vc %d rx: %w", vc.ID, err)
		}
		m.rx[vc.ID] = ch
		m.drivers = append(m.drivers, driver)
		log.Printf("[transport] vc %d (%s): rx bound to %s", vc.ID, vc.Name, vc.RxTransport.Kind)
	}

	return nil
}

// BindInMemoryVC allocates a TX/RX byte-channel pair for a Virtual Channel
// that carries no direct transport of its own — the common case for a VC
// multiplexed inside CCSDS Transfer Frames, where the frame processor is the
// one that actually touches the network and the channels registered here
// are simply its application-facing ends (spec §4.1/§4.2 boundary).
func (m *Manager) BindInMemoryVC(id VcId) (tx, rx *bytechan.Chan, err error) {
	if _, exists := m.tx[id]; exists {
		return nil, nil, fmt.Errorf("%w: duplicate tx binding for vc %d", ErrInvalidConfig, id)
	}
	if _, exists := m.rx[id]; exists {
		return nil, nil, fmt.Errorf("%w: duplicate rx binding for vc %d", ErrInvalidConfig, id)
	}
	tx = bytechan.New()
	rx = bytechan.New()
	m.tx[id] = tx
	m.rx[id] = rx
	return tx, rx, nil
}

// VcMaps returns a snapshot of the TX and RX byte-channel maps (spec
// §4.1's vcMaps()).
func (m *Manager) VcMaps() (tx, rx map[VcId]*bytechan.Chan) {
	txCopy := make(map[VcId]*bytechan.Chan, len(m.tx))
	for k, v := range m.tx {
		txCopy[k] = v
	}
	rxCopy := make(map[VcId]*bytechan.Chan, len(m.rx))
	for k, v := range m.rx {
		rxCopy[k] = v
	}
	return txCopy, rxCopy
}

// TxChan looks up the egress byte channel for a VC, if any.
func (m *Manager) TxChan(id VcId) (*bytechan.Chan, bool) {
	c, ok := m.tx[id]
	return c, ok
}

// RxChan looks up the ingress byte channel for a VC, if any.
func (m *Manager) RxChan(id VcId) (*bytechan.Chan, bool) {
	c, ok := m.rx[id]
	return c, ok
}

// Run hands ownership of every registered adapter driver to its own
// goroutine via an errgroup, and blocks until ctx is cancelled or one of
// them returns an error (spec §4.1 "run()").
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range m.drivers {
		driver := d
		g.Go(func() error { return driver(gctx) })
	}
	return g.Wait()
}
