/*
Package handler provides the HTTP handler for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
validating the handshake token, upgrading the HTTP connection to WebSocket, and starting
the client lifecycle. A failed token check refuses the connection before the upgrade, so
no session state ever exists for a rejected handshake.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"wprchat/internal/app/chat"
	"wprchat/internal/configs"
	"wprchat/internal/pkg/auth/jwt"
	"wprchat/internal/pkg/errs"
	"wprchat/internal/pkg/limiter"
	"wprchat/internal/pkg/logx"
	"wprchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The bearer token arrives as the `token` query parameter of the handshake request.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, cfg *configs.AppConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		payload, authErr := jwt.ValidateToken(r.URL.Query().Get("token"), cfg.JWTSecret)
		if authErr != nil {
			logx.Warn("WebSocket connection refused",
				"reason", authErr.Message,
				"code", authErr.Code,
			)
			resp.RespondError(w, r, authErr)
			return
		}

		identity := payload.Identity()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(hub, conn, identity)

		go client.WritePump()

		logx.Info("WebSocket connection established",
			"user_id", identity.UserID,
			"display_name", identity.DisplayName,
			"is_guest", identity.IsGuest,
		)

		hub.Register(client)

		client.ReadPump()
	}
}
