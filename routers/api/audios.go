package api

import (
	"errors"
	"net/http"
	"os"

	"ContentStudio-server/apperr"
	"ContentStudio-server/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAudios(c *gin.Context) {
	files, err := h.Audio.List(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var total int64
	for _, f := range files {
		total += f.Tamanho
	}
	c.JSON(http.StatusOK, gin.H{"arquivos": files, "total": len(files), "tamanhoTotal": total})
}

func (h *Handler) DeleteAudio(c *gin.Context) {
	nome := c.Param("nome")
	err := h.Audio.Remove(nome)
	switch {
	case errors.Is(err, service.ErrInvalidAudioName):
		apperr.Respond(c, apperr.Validation("nome de arquivo inválido"))
		return
	case errors.Is(err, os.ErrNotExist):
		apperr.Respond(c, apperr.NotFound("arquivo não encontrado"))
		return
	case err != nil:
		apperr.Respond(c, err)
		return
	}
	log.Info("audio file removed", "nome", nome, "admin_id", currentUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"message": "arquivo removido"})
}
