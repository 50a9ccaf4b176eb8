/*
Package handler provides the HTTP handlers and routing setup for the Roomcast server.

This file contains the HandleWebSocket function, which rate limits, upgrades the
HTTP connection to websocket, assigns a connection identifier, and starts the
client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"roomcast/internal/app/gateway"
	"roomcast/internal/pkg/errs"
	"roomcast/internal/pkg/limiter"
	"roomcast/internal/pkg/logx"
	"roomcast/internal/pkg/randx"
	"roomcast/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that processes websocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
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
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := gateway.NewClient(deps.Hub, conn, connID, deps.Coordinator)
		deps.Hub.Register(client)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", connID)

		client.ReadPump()
	}
}
