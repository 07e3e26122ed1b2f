package router

import (
	"context"
	"fmt"
	"runtime"

	"companion-chat/backend/pkg/health"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	hub := r.Container.Hub
	r.Container.Health.RegisterCheck("websocket", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d active connections", hub.ActiveConnections()), nil
	})
	r.Container.Health.RegisterCheck("memory", false, func(context.Context) (health.Status, string, error) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return health.StatusUp, fmt.Sprintf("alloc %d MB, %d gc cycles", m.Alloc/1024/1024, m.NumGC), nil
	})

	handler := r.Container.Health.Handler(r.Container.Config.Server.Version)
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)
}
