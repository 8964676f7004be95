package handlers

import (
	"net/http"

	"github.com/pion/webrtc/v3"

	"prepforge/interview/internal/models"
	"prepforge/interview/internal/utils"
)

type WebRTCHandler struct {
	config webrtc.Configuration
}

func NewWebRTCHandler(config webrtc.Configuration) *WebRTCHandler {
	return &WebRTCHandler{config: config}
}

// ConfigHandler returns the STUN/TURN servers clients should use for their peer connections.
func (h *WebRTCHandler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	servers := h.config.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	utils.JSON(w, http.StatusOK, models.WebRTCConfigResponse{ICEServers: servers})
}
