// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"
)

// ICEConfig lists the STUN and TURN servers used while gathering
// candidates. An empty config gathers host candidates only, which is
// enough on one machine or one LAN.
type ICEConfig struct {
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig from configured server URLs.
// Each URL becomes its own server entry so pion reports failures per
// server.
func ICEConfigFromURLs(urls []string) ICEConfig {
	var config ICEConfig
	for _, url := range urls {
		config.Servers = append(config.Servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return config
}
