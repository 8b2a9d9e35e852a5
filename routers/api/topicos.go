package api

import (
	"net/http"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"

	"github.com/gin-gonic/gin"
)

type topicoView struct {
	models.Topico
	Seguindo bool `json:"seguindo"`
}

func (h *Handler) ListTopics(c *gin.Context) {
	list, err := models.ListTopicos(h.db(c), true)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	following, err := models.FollowedTopicoIDs(h.db(c), currentUser(c).ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	out := make([]topicoView, len(list))
	for i, t := range list {
		out[i] = topicoView{Topico: t, Seguindo: following[t.ID]}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) FollowTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := models.GetActiveTopico(h.db(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := models.FollowTopico(h.db(c), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topicoId": id, "seguindo": true})
}

func (h *Handler) UnfollowTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.UnfollowTopico(h.db(c), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topicoId": id, "seguindo": false})
}

func (h *Handler) AdminListTopics(c *gin.Context) {
	list, err := models.ListTopicos(h.db(c), false)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type topicoRequest struct {
	Nome      *string `json:"nome"`
	Descricao *string `json:"descricao"`
	Ativo     *bool   `json:"ativo"`
}

func (h *Handler) checkTopicName(c *gin.Context, nome string, exceptID uint) (string, bool) {
	nome = strings.TrimSpace(nome)
	if nome == "" {
		apperr.Respond(c, apperr.Validation("informe o nome do tópico"))
		return "", false
	}
	taken, err := models.TopicoNomeTaken(h.db(c), nome, exceptID)
	if err != nil {
		apperr.Respond(c, err)
		return "", false
	}
	if taken {
		apperr.Respond(c, apperr.Conflict("já existe um tópico com esse nome"))
		return "", false
	}
	return nome, true
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req topicoRequest
	if !bind(c, &req) {
		return
	}
	if req.Nome == nil {
		apperr.Respond(c, apperr.Validation("informe o nome do tópico"))
		return
	}
	nome, ok := h.checkTopicName(c, *req.Nome, 0)
	if !ok {
		return
	}
	t := &models.Topico{Nome: nome}
	if req.Descricao != nil {
		t.Descricao = strings.TrimSpace(*req.Descricao)
	}
	if err := models.CreateTopico(h.db(c), t); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req topicoRequest
	if !bind(c, &req) {
		return
	}
	if _, err := models.GetTopico(h.db(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}

	updates := map[string]any{}
	if req.Nome != nil {
		nome, ok := h.checkTopicName(c, *req.Nome, id)
		if !ok {
			return
		}
		updates["nome"] = nome
	}
	if req.Descricao != nil {
		updates["descricao"] = strings.TrimSpace(*req.Descricao)
	}
	if req.Ativo != nil {
		updates["ativo"] = *req.Ativo
	}
	if err := models.UpdateTopico(h.db(c), id, updates); err != nil {
		apperr.Respond(c, err)
		return
	}
	t, err := models.GetTopico(h.db(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeactivateTopic(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.DeactivateTopico(h.db(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tópico desativado"})
}
