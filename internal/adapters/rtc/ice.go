package rtc

import (
	"time"

	"github.com/pion/webrtc/v4"
)

// DefaultSTUNServers is the fixed list of public STUN servers used for
// server-reflexive candidates. No TURN relay is configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ICEConfig holds ICE server configuration and agent timeouts.
type ICEConfig struct {
	STUNServers []string

	// Zero values keep pion's defaults.
	DisconnectedTimeout time.Duration
	FailedTimeout       time.Duration
	KeepAliveInterval   time.Duration
}

func DefaultICEConfig() ICEConfig {
	return ICEConfig{STUNServers: DefaultSTUNServers}
}

// Configuration converts c into a pion configuration.
func (c ICEConfig) Configuration() webrtc.Configuration {
	if len(c.STUNServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: c.STUNServers},
		},
	}
}

func (c ICEConfig) hasTimeouts() bool {
	return c.DisconnectedTimeout > 0 || c.FailedTimeout > 0 || c.KeepAliveInterval > 0
}
