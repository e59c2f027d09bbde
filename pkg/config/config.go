// Package config loads and validates the YAML configuration documents
// described in spec §6: the frames block (spacecraft id, ingress/egress
// frame kind and transport) and the virtual_channels list.
//
// The schema is unmarshalled with gopkg.in/yaml.v3, following the same
// "small wrapper over a well-known third-party library, validate after
// unmarshal" shape the rest of the retrieved corpus uses for its own
// config files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FrameKind is the tagged frame_kind field of a frames.in/frames.out entry.
type FrameKind string

const (
	FrameKindTC   FrameKind = "tc"
	FrameKindUSLP FrameKind = "uslp"
)

// TransportKind is the tagged kind field of a transport descriptor.
type TransportKind string

const (
	TransportUDP   TransportKind = "udp"
	TransportROS2  TransportKind = "ros2"
	TransportZenoh TransportKind = "zenoh"
)

// Transport is a tagged union over the transport descriptors in spec §6.
// Only the fields relevant to Kind are populated; Validate enforces that.
type Transport struct {
	Kind TransportKind `yaml:"kind"`

	// udp
	Listen string `yaml:"listen,omitempty"`
	Send   string `yaml:"send,omitempty"`

	// ros2 (topic-based pub/sub)
	TopicPub string `yaml:"topic_pub,omitempty"`
	TopicSub string `yaml:"topic_sub,omitempty"`
	ActionSrv string `yaml:"action_srv,omitempty"`

	// zenoh (key-expression-based pub/sub)
	KeyPub string `yaml:"key_pub,omitempty"`
	KeySub string `yaml:"key_sub,omitempty"`
}

// validateRX returns an error unless this descriptor can be used as an RX
// (ingress) binding, i.e. it names a source rather than a destination.
func (t Transport) validateRX() error {
	switch t.Kind {
	case TransportUDP:
		if t.Listen == "" {
			return fmt.Errorf("udp rx transport requires listen")
		}
	case TransportROS2, TransportZenoh:
		if t.TopicSub == "" && t.ActionSrv == "" && t.KeySub == "" {
			return fmt.Errorf("%s rx transport requires topic_sub, key_sub or action_srv", t.Kind)
		}
	default:
		return fmt.Errorf("unknown transport kind %q", t.Kind)
	}
	return nil
}

func (t Transport) validateTX() error {
	switch t.Kind {
	case TransportUDP:
		if t.Send == "" {
			return fmt.Errorf("udp tx transport requires send")
		}
	case TransportROS2, TransportZenoh:
		if t.TopicPub == "" && t.KeyPub == "" {
			return fmt.Errorf("%s tx transport requires topic_pub or key_pub", t.Kind)
		}
	default:
		return fmt.Errorf("unknown transport kind %q", t.Kind)
	}
	return nil
}

// FrameEndpoint is one of frames.in / frames.out.
type FrameEndpoint struct {
	FrameKind FrameKind `yaml:"frame_kind"`
	Transport Transport `yaml:"transport"`
}

// FramesConfig is the frames block of the configuration document.
type FramesConfig struct {
	SpacecraftID uint16        `yaml:"spacecraft_id"`
	In           FrameEndpoint `yaml:"in"`
	Out          FrameEndpoint `yaml:"out"`
}

// VirtualChannelConfig is one entry of the virtual_channels list.
type VirtualChannelConfig struct {
	ID           uint8      `yaml:"id"`
	Name         string     `yaml:"name"`
	Splitter     string     `yaml:"splitter,omitempty"`
	TxTransport  *Transport `yaml:"tx_transport,omitempty"`
	RxTransport  *Transport `yaml:"rx_transport,omitempty"`
}

// Config is the top level document.
type Config struct {
	Frames          FramesConfig           `yaml:"frames"`
	VirtualChannels []VirtualChannelConfig `yaml:"virtual_channels"`
}

// Load reads and parses the YAML document at path and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return &cfg, nil
}

// candidatePaths is the fixed list of locations the comm/pus binaries try
// before giving up with ErrConfigNotFound, per spec §6 "CLI/env".
var candidatePaths = []string{
	"./rccn-usr.yaml",
	"/etc/rccn-usr/config.yaml",
	"/etc/rccn-usr.yaml",
}

// ErrConfigNotFound is returned by LoadDefault when none of the candidate
// paths exist.
var ErrConfigNotFound = fmt.Errorf("config: no config file found in candidate paths")

// LoadDefault tries each candidate path in order and loads the first one
// that exists.
func LoadDefault() (*Config, error) {
	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return nil, ErrConfigNotFound
}

// Validate enforces the rules in spec §6: incoming frame kind must be TC,
// outgoing frame kind must be USLP, VC ids must be unique, and any pub/sub
// RX transport must carry at least one of topic_sub/key_sub/action_srv.
func (c *Config) Validate() error {
	if c.Frames.In.FrameKind != FrameKindTC {
		return fmt.Errorf("frames.in.frame_kind must be %q, got %q", FrameKindTC, c.Frames.In.FrameKind)
	}
	if c.Frames.Out.FrameKind != FrameKindUSLP {
		return fmt.Errorf("frames.out.frame_kind must be %q, got %q", FrameKindUSLP, c.Frames.Out.FrameKind)
	}
	if err := c.Frames.In.Transport.validateRX(); err != nil {
		return fmt.Errorf("frames.in.transport: %w", err)
	}
	if err := c.Frames.Out.Transport.validateTX(); err != nil {
		return fmt.Errorf("frames.out.transport: %w", err)
	}

	seen := make(map[uint8]bool, len(c.VirtualChannels))
	for _, vc := range c.VirtualChannels {
		if seen[vc.ID] {
			return fmt.Errorf("duplicate virtual channel id %d (%s)", vc.ID, vc.Name)
		}
		seen[vc.ID] = true

		if vc.TxTransport != nil {
			if err := vc.TxTransport.validateTX(); err != nil {
				return fmt.Errorf("virtual_channels[%d].tx_transport: %w", vc.ID, err)
			}
		}
		if vc.RxTransport != nil {
			if err := vc.RxTransport.validateRX(); err != nil {
				return fmt.Errorf("virtual_channels[%d].rx_transport: %w", vc.ID, err)
			}
		}
	}
	return nil
}
