// Package pusapp wires the transport manager to one or more registered PUS
// services (spec §4.5): it spawns the transport drivers, fans inbound
// payloads out to the registered engines by (APID, service), and is the
// process-level composition root cmd/rccn-pus builds on.
package pusapp

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/pus"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
)

// registryKey hashes (apid, service) into a single uint64 so the service
// registry can be a plain map instead of a struct-keyed one (spec §9
// "service-registry table keyed by (apid, service)").
func registryKey(apid uint16, service uint8) uint64 {
	var buf [3]byte
	binary.BigEndian.PutUint16(buf[:2], apid)
	buf[2] = service
	return xxhash.Sum64(buf[:])
}

// registeredService pairs one PUS service's engine with the handler that
// needs binding, so ParseCommand/HandleTc's Reporter access (paramsvc's
// Bind pattern) stays possible for every service, not just Service 20.
type registeredService struct {
	apid    uint16
	service uint8
	engine  *pus.Engine
}

// Application owns the transport manager and the registered service
// engines, and runs the fan-out RX loop described in spec §4.5.
type Application struct {
	manager  *transport.Manager
	tmApid   uint16
	services map[uint64]*registeredService

	defaultTmVC transport.VcId
}

// ErrNoServiceAccepted is logged (not fatal) when a payload arrives whose
// (APID, service) matches no registered handler (spec §4.5 "a service
// whose APID/service does not match returns UnknownApid/UnknownService and
// is a no-op").
var ErrNoServiceAccepted = fmt.Errorf("pusapp: no registered service accepted payload")

// New constructs an Application around an already-configured transport
// manager. defaultTmVC is the VC verification and application TMs are sent
// on (spec §4.3 "all arrive on VC 0").
func New(manager *transport.Manager, defaultTmVC transport.VcId) *Application {
	return &Application{
		manager:     manager,
		services:    make(map[uint64]*registeredService),
		defaultTmVC: defaultTmVC,
	}
}

// vcSink adapts a VC's egress byte channel to pus.TMSink.
type vcSink struct {
	ctx context.Context
	ch  *bytechan.Chan
}

func (s vcSink) SendTM(pkt pus.TMPacket) error {
	return s.ch.Send(s.ctx, pkt.Encode())
}

// Register wires handler into the application: it builds the handler's
// Reporter against the default TM VC's egress channel, constructs its
// Engine, and stores it in the (apid, service) registry.
func (a *Application) Register(ctx context.Context, handler pus.Handler) error {
	tmChan, ok := a.manager.TxChan(a.defaultTmVC)
	if !ok {
		return fmt.Errorf("pusapp: no tx channel bound for default tm vc %d", a.defaultTmVC)
	}

	reporter := pus.NewReporter(handler.APID(), vcSink{ctx: ctx, ch: tmChan})
	engine := pus.NewEngine(reporter, handler)

	if binder, ok := handler.(interface{ Bind(*pus.Engine) }); ok {
		binder.Bind(engine)
	}

	key := registryKey(handler.APID(), handler.ServiceID())
	a.services[key] = &registeredService{apid: handler.APID(), service: handler.ServiceID(), engine: engine}
	log.Printf("[pusapp] registered service apid=%d service=%d", handler.APID(), handler.ServiceID())
	return nil
}

// dispatch looks up the registry entry for the packet's (APID, service) and
// hands the packet to that service's engine. A payload with no matching
// entry is logged with ErrNoServiceAccepted and dropped; an error from the
// engine is logged.
func (a *Application) dispatch(raw []byte) {
	apid, service, ok := peekApidService(raw)
	if !ok {
		log.Printf("[pusapp] dropping malformed tc payload (%d bytes)", len(raw))
		return
	}

	key := registryKey(apid, service)
	rs, found := a.services[key]
	if !found {
		log.Printf("[pusapp] %v: apid=%d service=%d", ErrNoServiceAccepted, apid, service)
		return
	}

	if err := rs.engine.HandleTcBytes(raw); err != nil {
		log.Printf("[pusapp] handler error for apid=%d service=%d: %v", apid, service, err)
	}
}

// peekApidService reads just enough of a CCSDS Space Packet + PUS TC
// secondary header to route the payload, without fully decoding it (full
// decode happens inside the matched engine's HandleTcBytes).
func peekApidService(raw []byte) (apid uint16, service uint8, ok bool) {
	const primaryLen = 6
	const serviceOffset = primaryLen + 1
	if len(raw) < serviceOffset+1 {
		return 0, 0, false
	}
	apid = binary.BigEndian.Uint16(raw[0:2]) & 0x07FF
	service = raw[serviceOffset]
	return apid, service, true
}

// Run spawns the transport drivers and the fan-out RX loop over every
// ingress VC, blocking until ctx is cancelled or either fails (spec §4.5
// "await on the union of all VC RX channels with fair multi-wait").
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.manager.Run(gctx) })

	g.Go(func() error {
		_, rx := a.manager.VcMaps()
		for {
			_, data, ok := bytechan.WaitAny(gctx, rx)
			if !ok {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("pusapp: all rx channels closed")
			}
			a.dispatch(data)
		}
	})

	return g.Wait()
}
