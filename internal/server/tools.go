package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/newsagent/internal/capability"
	"github.com/mohammad-safakhou/newsagent/internal/runtime"
)

// ToolLister yields the registry cards of the currently loaded toolset.
type ToolLister interface {
	Tools() []capability.ToolCard
}

// ToolsHandler exposes the capability registry.
type ToolsHandler struct {
	Agent ToolLister
}

func (h *ToolsHandler) Register(g *echo.Group, secret []byte) {
	if len(secret) > 0 {
		g.Use(runtime.EchoAuthMiddleware(secret))
	}
	g.GET("", h.list)
}

func (h *ToolsHandler) list(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Agent.Tools())
}
