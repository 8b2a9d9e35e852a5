package api

import (
	"net/http"

	"ContentStudio-server/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Realtime upgrades to a websocket joined to the caller's room. The browser
// authenticates with ?token= since it cannot set headers on the upgrade.
func (h *Handler) Realtime(c *gin.Context) {
	u := currentUser(c)
	if err := h.Hub.Serve(c.Writer, c.Request, u.ID, service.UserRoom(u.ID), u.IsAdmin()); err != nil {
		log.Warn("websocket upgrade failed", "user_id", u.ID, "err", err)
	}
}

// Health reports database reachability.
func (h *Handler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		log.Error("health check failed", "err", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"mockMode": h.Configs.Bool(c.Request.Context(), 0, service.KeyMockMode),
	})
}
