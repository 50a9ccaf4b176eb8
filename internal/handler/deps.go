package handler

import (
	"roomcast/internal/app/chat"
	"roomcast/internal/app/gateway"
	"roomcast/internal/configs"
)

type AppDeps struct {
	Hub         *gateway.Hub
	Coordinator *chat.Coordinator
	Config      *configs.AppConfig
}
