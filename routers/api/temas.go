package api

import (
	"net/http"
	"strconv"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"

	"github.com/gin-gonic/gin"
)

// SuggestThemes asks the AI for themes and stores them for the user. With
// topicoId the catalog topic's name is used and the themes are tied to it.
func (h *Handler) SuggestThemes(c *gin.Context) {
	var req struct {
		TopicoID   *uint  `json:"topicoId"`
		Topico     string `json:"topico"`
		Quantidade int    `json:"quantidade"`
	}
	if !bind(c, &req) {
		return
	}
	if req.TopicoID != nil {
		t, err := models.GetActiveTopico(h.db(c), *req.TopicoID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		req.Topico = t.Nome
	}

	u := currentUser(c)
	sugestoes, err := h.Content.SuggestThemes(c.Request.Context(), u.ID, req.Topico, req.Quantidade)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	temas := make([]models.Tema, len(sugestoes))
	for i, s := range sugestoes {
		temas[i] = models.Tema{UserID: u.ID, TopicoID: req.TopicoID, Titulo: s.Titulo, Descricao: s.Descricao}
	}
	if err := models.CreateTemas(h.db(c), temas); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, temas)
}

func (h *Handler) ListThemes(c *gin.Context) {
	var topicoID *uint
	if v := c.Query("topicoId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apperr.Respond(c, apperr.Validation("topicoId inválido"))
			return
		}
		tid := uint(id)
		topicoID = &tid
	}
	list, err := models.ListTemas(h.db(c), currentUser(c).ID, topicoID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type temaRequest struct {
	TopicoID  *uint  `json:"topicoId"`
	Titulo    string `json:"titulo"`
	Descricao string `json:"descricao"`
}

func (h *Handler) CreateTheme(c *gin.Context) {
	var req temaRequest
	if !bind(c, &req) {
		return
	}
	titulo, err := required(req.Titulo, "informe o título do tema")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if req.TopicoID != nil {
		if _, err := models.GetActiveTopico(h.db(c), *req.TopicoID); err != nil {
			apperr.Respond(c, err)
			return
		}
	}
	t := &models.Tema{
		UserID:    currentUser(c).ID,
		TopicoID:  req.TopicoID,
		Titulo:    titulo,
		Descricao: strings.TrimSpace(req.Descricao),
	}
	if err := models.CreateTema(h.db(c), t); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) DeleteTheme(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.DeactivateTema(h.db(c), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tema removido"})
}

func (h *Handler) ListCarouselThemes(c *gin.Context) {
	list, err := models.ListTemasCarrossel(h.db(c), currentUser(c).ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateCarouselTheme(c *gin.Context) {
	var req temaRequest
	if !bind(c, &req) {
		return
	}
	titulo, err := required(req.Titulo, "informe o título do tema")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	t := &models.UserTemaCarrossel{
		UserID:    currentUser(c).ID,
		Titulo:    titulo,
		Descricao: strings.TrimSpace(req.Descricao),
	}
	if err := models.CreateTemaCarrossel(h.db(c), t); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) DeleteCarouselTheme(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.DeactivateTemaCarrossel(h.db(c), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tema removido"})
}
