package handlers

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"prepforge/interview/internal/session"
	"prepforge/interview/internal/utils"
)

type SocketHandler struct {
	hub            *session.Hub
	secret         string
	sendBufferSize int
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewSocketHandler accepts upgrades from allowedOrigins; "*" allows any origin.
func NewSocketHandler(hub *session.Hub, secret string, sendBufferSize int, allowedOrigins []string, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{
		hub:            hub,
		secret:         secret,
		sendBufferSize: sendBufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("socket"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// InterviewSocket authenticates the caller, upgrades the connection and pumps frames
// into the hub until the peer goes away.
func (h *SocketHandler) InterviewSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.VerifyToken(r, h.secret)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	principal, err := utils.PrincipalFromClaims(claims)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := session.NewConnection(uuid.NewString(), principal, ws, h.sendBufferSize)
	h.logger.Info("connection opened",
		zap.String("connection_id", conn.ID),
		zap.String("user_id", principal.UserID),
		zap.String("role", string(principal.Role)))
	go conn.WriteLoop()

	ctx := r.Context()
	err = conn.ReadLoop(func(raw []byte) {
		h.hub.HandleFrame(ctx, conn, raw)
	})
	h.hub.Disconnect(conn)

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Info("connection dropped", zap.String("connection_id", conn.ID), zap.Error(err))
		return
	}
	h.logger.Info("connection closed", zap.String("connection_id", conn.ID))
}
