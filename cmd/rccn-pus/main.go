// Command rccn-pus runs the PUS application process (spec §4.3/§4.4/§4.5):
// it binds the same virtual_channels list as cmd/rccn-comm, with transport
// roles mirrored so the two processes rendezvous over the configured
// transport per VC, registers the PUS services, and dispatches inbound TCs
// through their verification state machines.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub/v2"

	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/paramsvc"
	"github.com/raccoon-os/rccn-usr/pkg/pusapp"
	ourredis "github.com/raccoon-os/rccn-usr/pkg/redis"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
	"github.com/raccoon-os/rccn-usr/pkg/transport/pubsubgcp"
	"github.com/raccoon-os/rccn-usr/pkg/transport/pubsubredis"
	"github.com/raccoon-os/rccn-usr/pkg/transport/udpadapter"
)

var (
	configPath = flag.String("config", "", "path to the YAML configuration file (default: search candidate paths)")
	apid       = flag.Uint("apid", 100, "APID this application's services respond under")
	tmVC       = flag.Uint("tm-vc", 0, "virtual channel id verification and application TMs are sent on")
	redisAddr  = flag.String("redis-addr", "localhost:6379", "redis address backing the ros2-kind pub/sub adapter")
	redisPass  = flag.String("redis-pass", "", "redis password")
	gcpProject = flag.String("gcp-project", "", "GCP project id backing the zenoh-kind pub/sub adapter (required if any zenoh binding is configured)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting rccn-pus")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Loaded configuration: %d virtual channels", len(cfg.VirtualChannels))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := transport.NewManager()
	mgr.RegisterReaderAdapter(config.TransportUDP, udpadapter.New())
	mgr.RegisterWriterAdapter(config.TransportUDP, udpadapter.New())

	var closers []func()
	if redisClient, err := ourredis.Connect(*redisAddr, *redisPass, 0); err != nil {
		log.Printf("redis unavailable, ros2-kind bindings will fail if configured: %v", err)
	} else {
		adapter := pubsubredis.New(redisClient)
		mgr.RegisterReaderAdapter(config.TransportROS2, adapter)
		mgr.RegisterWriterAdapter(config.TransportROS2, adapter)
		closers = append(closers, func() { redisClient.Close() })
	}
	if *gcpProject != "" {
		if pubsubClient, err := pubsub.NewClient(ctx, *gcpProject); err != nil {
			log.Printf("gcp pub/sub unavailable, zenoh-kind bindings will fail if configured: %v", err)
		} else {
			adapter := pubsubgcp.New(pubsubClient)
			mgr.RegisterReaderAdapter(config.TransportZenoh, adapter)
			mgr.RegisterWriterAdapter(config.TransportZenoh, adapter)
			closers = append(closers, func() { pubsubClient.Close() })
		}
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	for _, vcCfg := range cfg.VirtualChannels {
		// Mirror the transport roles cmd/rccn-comm bound for the same VC:
		// what comm publishes decoded command data to, this process
		// receives on; what this process publishes outgoing TM to, comm
		// receives on and wraps into an outbound frame.
		mirrored := transport.VirtualChannel{
			ID:          vcCfg.ID,
			Name:        vcCfg.Name,
			TxTransport: vcCfg.RxTransport,
			RxTransport: vcCfg.TxTransport,
		}
		if err := mgr.AddVirtualChannel(mirrored); err != nil {
			log.Fatalf("Failed to add virtual channel %d (%s): %v", vcCfg.ID, vcCfg.Name, err)
		}
	}

	app := pusapp.New(mgr, transport.VcId(*tmVC))

	params := &paramsvc.ExampleParams{}
	service := paramsvc.New(uint16(*apid), params)
	if err := app.Register(ctx, service); err != nil {
		log.Fatalf("Failed to register paramsvc service: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("Shutting down...")
		cancel()
	}()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("rccn-pus exited with error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.LoadDefault()
}
