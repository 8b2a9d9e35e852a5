// Package api holds the gin handlers behind /api.
package api

import (
	"strconv"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/config"
	"ContentStudio-server/middleware"
	"ContentStudio-server/models"
	"ContentStudio-server/service"
	"ContentStudio-server/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler carries the dependencies every endpoint needs.
type Handler struct {
	DB         *gorm.DB
	Config     *config.Config
	Configs    *service.ConfigManager
	Content    *service.ContentService
	Speech     *service.SpeechService
	Narrations *service.NarrationService
	Jobs       service.Dispatcher
	Audio      *service.AudioCache
	Hub        *websocket.Hub
}

func (h *Handler) db(c *gin.Context) *gorm.DB {
	return h.DB.WithContext(c.Request.Context())
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// bind decodes the JSON body into req.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperr.Respond(c, apperr.Validation("corpo da requisição inválido"))
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperr.Respond(c, apperr.Validation("id inválido"))
		return 0, false
	}
	return uint(id), true
}

func required(v, msg string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apperr.Validation(msg)
	}
	return v, nil
}
