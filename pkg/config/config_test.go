package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
frames:
  spacecraft_id: 256
  in:  { frame_kind: tc,   transport: { kind: udp, listen: "0.0.0.0:10025" } }
  out: { frame_kind: uslp, transport: { kind: udp, send: "127.0.0.1:10015" } }
virtual_channels:
  - { id: 0, name: tm }
  - { id: 1, name: pus, rx_transport: { kind: ros2, topic_sub: "/tc" } }
`

func TestLoadValid(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), &cfg))
	require.NoError(t, cfg.Validate())
	assert.EqualValues(t, 256, cfg.Frames.SpacecraftID)
	assert.Len(t, cfg.VirtualChannels, 2)
}

func TestValidateRejectsDuplicateVCIDs(t *testing.T) {
	cfg := Config{
		Frames: FramesConfig{
			In:  FrameEndpoint{FrameKind: FrameKindTC, Transport: Transport{Kind: TransportUDP, Listen: "x"}},
			Out: FrameEndpoint{FrameKind: FrameKindUSLP, Transport: Transport{Kind: TransportUDP, Send: "y"}},
		},
		VirtualChannels: []VirtualChannelConfig{
			{ID: 0, Name: "a"},
			{ID: 0, Name: "b"},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate virtual channel id")
}

func TestValidateRejectsWrongFrameKinds(t *testing.T) {
	cfg := Config{
		Frames: FramesConfig{
			In:  FrameEndpoint{FrameKind: FrameKindUSLP},
			Out: FrameEndpoint{FrameKind: FrameKindUSLP},
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsPubSubRXWithoutTopic(t *testing.T) {
	tr := Transport{Kind: TransportZenoh}
	require.Error(t, tr.validateRX())

	tr.KeySub = "rccn/**"
	require.NoError(t, tr.validateRX())
}
