// Command rccn-comm runs the transport manager and bidirectional frame
// processor (spec §4.1/§4.2). It owns the single physical frames.in/out
// link, decodes inbound TC Transfer Frames and republishes each one's
// payload onto its Virtual Channel's egress transport, and symmetrically
// collects each VC's ingress transport to wrap into outbound USLP Transfer
// Frames. The companion PUS application process (cmd/rccn-pus) binds the
// same virtual_channels list with its transport roles mirrored, so the two
// processes rendezvous over whatever transport (udp/ros2/zenoh) the
// operator configured per VC.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub/v2"
	"golang.org/x/sync/errgroup"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/diag"
	"github.com/raccoon-os/rccn-usr/pkg/frameproc"
	ourredis "github.com/raccoon-os/rccn-usr/pkg/redis"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
	"github.com/raccoon-os/rccn-usr/pkg/transport/pubsubgcp"
	"github.com/raccoon-os/rccn-usr/pkg/transport/pubsubredis"
	"github.com/raccoon-os/rccn-usr/pkg/transport/udpadapter"
)

var (
	configPath = flag.String("config", "", "path to the YAML configuration file (default: search candidate paths)")
	redisAddr  = flag.String("redis-addr", "localhost:6379", "redis address backing the ros2-kind pub/sub adapter")
	redisPass  = flag.String("redis-pass", "", "redis password")
	gcpProject = flag.String("gcp-project", "", "GCP project id backing the zenoh-kind pub/sub adapter (required if any zenoh binding is configured)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting rccn-comm")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Loaded configuration: spacecraft_id=0x%x, %d virtual channels", cfg.Frames.SpacecraftID, len(cfg.VirtualChannels))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := transport.NewManager()
	closeAdapters := registerAdapters(ctx, mgr, *redisAddr, *redisPass, *gcpProject)
	defer closeAdapters()

	inAdapter, ok := readerAdapterFor(cfg.Frames.In.Transport.Kind, *redisAddr, *redisPass, ctx, *gcpProject)
	if !ok {
		log.Fatalf("no reader adapter available for frames.in kind %q", cfg.Frames.In.Transport.Kind)
	}
	ingress := bytechan.New()
	ingressDriver, err := inAdapter.AddReader(cfg.Frames.In.Transport, ingress)
	if err != nil {
		log.Fatalf("Failed to bind ingress transport: %v", err)
	}

	outAdapter, ok := writerAdapterFor(cfg.Frames.Out.Transport.Kind, *redisAddr, *redisPass, ctx, *gcpProject)
	if !ok {
		log.Fatalf("no writer adapter available for frames.out kind %q", cfg.Frames.Out.Transport.Kind)
	}
	egress := bytechan.New()
	egressDriver, err := outAdapter.AddWriter(cfg.Frames.Out.Transport, egress)
	if err != nil {
		log.Fatalf("Failed to bind egress transport: %v", err)
	}

	for _, vcCfg := range cfg.VirtualChannels {
		vc := transport.VirtualChannel{ID: vcCfg.ID, Name: vcCfg.Name, TxTransport: vcCfg.TxTransport, RxTransport: vcCfg.RxTransport}
		if err := mgr.AddVirtualChannel(vc); err != nil {
			log.Fatalf("Failed to add virtual channel %d (%s): %v", vcCfg.ID, vcCfg.Name, err)
		}
	}

	recorder := diag.NewRecorder()
	proc := frameproc.New(cfg.Frames.SpacecraftID, recorder)
	vcTx, vcRx := mgr.VcMaps()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ingressDriver(gctx) })
	g.Go(func() error { return egressDriver(gctx) })
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error { return proc.ProcessIncomingFrames(gctx, ingress, vcTx) })
	g.Go(func() error { return frameproc.ProcessFramesOut(gctx, vcRx, egress) })
	g.Go(func() error { return logDiagnostics(gctx, recorder) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("Shutting down...")
		cancel()
	}()

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.Fatalf("rccn-comm exited with error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.LoadDefault()
}

// registerAdapters wires every adapter kind into mgr so AddVirtualChannel
// can resolve whichever kind a VC entry names, and returns a cleanup func
// for the underlying clients.
func registerAdapters(ctx context.Context, mgr *transport.Manager, redisAddr, redisPass string, gcpProject string) func() {
	mgr.RegisterReaderAdapter(config.TransportUDP, udpadapter.New())
	mgr.RegisterWriterAdapter(config.TransportUDP, udpadapter.New())

	var closers []func()

	if redisClient, err := ourredis.Connect(redisAddr, redisPass, 0); err != nil {
		log.Printf("redis unavailable, ros2-kind bindings will fail if configured: %v", err)
	} else {
		adapter := pubsubredis.New(redisClient)
		mgr.RegisterReaderAdapter(config.TransportROS2, adapter)
		mgr.RegisterWriterAdapter(config.TransportROS2, adapter)
		closers = append(closers, func() { redisClient.Close() })
	}

	if gcpProject != "" {
		if pubsubClient, err := pubsub.NewClient(ctx, gcpProject); err != nil {
			log.Printf("gcp pub/sub unavailable, zenoh-kind bindings will fail if configured: %v", err)
		} else {
			adapter := pubsubgcp.New(pubsubClient)
			mgr.RegisterReaderAdapter(config.TransportZenoh, adapter)
			mgr.RegisterWriterAdapter(config.TransportZenoh, adapter)
			closers = append(closers, func() { pubsubClient.Close() })
		}
	}

	return func() {
		for _, c := range closers {
			c()
		}
	}
}

// readerAdapterFor and writerAdapterFor construct one-off adapters for the
// singular frames.in/frames.out bindings, which sit outside the
// per-virtual-channel registry AddVirtualChannel populates.
func readerAdapterFor(kind config.TransportKind, redisAddr, redisPass string, ctx context.Context, gcpProject string) (transport.ReaderAdapter, bool) {
	switch kind {
	case config.TransportUDP:
		return udpadapter.New(), true
	case config.TransportROS2:
		client, err := ourredis.Connect(redisAddr, redisPass, 0)
		if err != nil {
			log.Printf("frames.in: redis unavailable: %v", err)
			return nil, false
		}
		return pubsubredis.New(client), true
	case config.TransportZenoh:
		if gcpProject == "" {
			return nil, false
		}
		client, err := pubsub.NewClient(ctx, gcpProject)
		if err != nil {
			log.Printf("frames.in: gcp pub/sub unavailable: %v", err)
			return nil, false
		}
		return pubsubgcp.New(client), true
	default:
		return nil, false
	}
}

func writerAdapterFor(kind config.TransportKind, redisAddr, redisPass string, ctx context.Context, gcpProject string) (transport.WriterAdapter, bool) {
	a, ok := readerAdapterFor(kind, redisAddr, redisPass, ctx, gcpProject)
	if !ok {
		return nil, false
	}
	w, ok := a.(transport.WriterAdapter)
	return w, ok
}

// logDiagnostics waits until ctx is done and then logs how many diagnostic
// events the recorder holds; it exports nothing while the process runs.
func logDiagnostics(ctx context.Context, recorder *diag.Recorder) error {
	<-ctx.Done()
	snap := recorder.Snapshot()
	if len(snap) > 0 {
		log.Printf("[rccn-comm] %d diagnostic events recorded before shutdown", len(snap))
	}
	return nil
}
