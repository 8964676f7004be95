package utils

import (
	"github.com/pion/webrtc/v3"

	"prepforge/interview/internal/config"
)

// ICEServers returns the traversal servers handed to clients on join.
func ICEServers(cfg config.WebRTC) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(cfg.STUNServers)+1)
	for _, stun := range cfg.STUNServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{stun}})
	}

	if cfg.TURNURL != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs:           []string{cfg.TURNURL},
			Username:       cfg.TURNUsername,
			Credential:     cfg.TURNPassword,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}

// PeerConfiguration is the full RTCConfiguration suggested to browsers.
func PeerConfiguration(cfg config.WebRTC) webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers:         ICEServers(cfg),
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy:      webrtc.RTCPMuxPolicyRequire,
	}
}
