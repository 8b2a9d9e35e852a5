package api

import (
	"errors"
	"net/http"
	"os"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"
	"ContentStudio-server/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListVoices(c *gin.Context) {
	voices, err := h.Speech.Voices(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, voices)
}

// CreateNarration stores the request and schedules synthesis. Progress is
// pushed on the user's websocket room.
func (h *Handler) CreateNarration(c *gin.Context) {
	var req struct {
		Titulo  string `json:"titulo"`
		Texto   string `json:"texto"`
		VoiceID string `json:"voiceId"`
	}
	if !bind(c, &req) {
		return
	}
	n, err := h.Narrations.Create(c.Request.Context(), currentUser(c).ID, service.NarrationInput{
		Titulo:  req.Titulo,
		Texto:   req.Texto,
		VoiceID: req.VoiceID,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.Narrations.Submit(c.Request.Context(), h.Jobs, n); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, n)
}

func (h *Handler) ListNarrations(c *gin.Context) {
	list, err := models.ListNarracoes(h.db(c), currentUser(c).ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetNarration(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	n, err := models.GetNarracao(h.db(c), currentUser(c).ID, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// NarrationAudio streams the local file to the owner or an admin.
func (h *Handler) NarrationAudio(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	n, err := models.GetNarracaoByID(h.db(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	u := currentUser(c)
	if !n.Ativo || (n.UserID != u.ID && !u.IsAdmin()) {
		apperr.Respond(c, apperr.NotFound("narração não encontrada"))
		return
	}
	if n.Status != models.NarracaoConcluida || n.Arquivo == "" {
		apperr.Respond(c, apperr.NotFound("áudio ainda não disponível"))
		return
	}

	f, err := h.Audio.Open(n.Arquivo)
	if errors.Is(err, os.ErrNotExist) {
		apperr.Respond(c, apperr.NotFound("arquivo de áudio não encontrado"))
		return
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.Header("Content-Type", service.ContentTypeFor(n.Arquivo))
	http.ServeContent(c.Writer, c.Request, n.Arquivo, info.ModTime(), f)
}

func (h *Handler) DeleteNarration(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Narrations.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "narração removida"})
}
