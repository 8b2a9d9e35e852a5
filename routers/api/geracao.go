package api

import (
	"net/http"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"
	"ContentStudio-server/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GenerateScript(c *gin.Context) {
	var req struct {
		Tema            string `json:"tema"`
		DuracaoSegundos int    `json:"duracaoSegundos"`
		Tom             string `json:"tom"`
		Idioma          string `json:"idioma"`
	}
	if !bind(c, &req) {
		return
	}
	script, err := h.Content.GenerateScript(c.Request.Context(), currentUser(c).ID, service.ScriptRequest{
		Tema:            req.Tema,
		DuracaoSegundos: req.DuracaoSegundos,
		Tom:             req.Tom,
		Idioma:          req.Idioma,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, script)
}

// GenerateCarousel generates and saves a carousel.
func (h *Handler) GenerateCarousel(c *gin.Context) {
	var req struct {
		Tema   string `json:"tema"`
		Slides int    `json:"slides"`
		Tom    string `json:"tom"`
		Idioma string `json:"idioma"`
	}
	if !bind(c, &req) {
		return
	}
	car, err := h.Content.GenerateCarousel(c.Request.Context(), currentUser(c).ID, service.CarouselRequest{
		Tema:   req.Tema,
		Slides: req.Slides,
		Tom:    req.Tom,
		Idioma: req.Idioma,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := models.CreateCarrossel(h.db(c), car); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, car)
}

func (h *Handler) ListCarousels(c *gin.Context) {
	list, err := models.ListCarrosseis(h.db(c), currentUser(c).ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetCarousel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	car, err := models.GetCarrossel(h.db(c), currentUser(c).ID, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *Handler) DeleteCarousel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.DeactivateCarrossel(h.db(c), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "carrossel removido"})
}
