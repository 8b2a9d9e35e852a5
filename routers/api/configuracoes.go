package api

import (
	"errors"
	"net/http"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"
	"ContentStudio-server/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type userSetting struct {
	Chave         string `json:"chave"`
	Valor         string `json:"valor"`
	Personalizado bool   `json:"personalizado"`
}

// ListUserSettings returns the effective value of every user-editable key.
func (h *Handler) ListUserSettings(c *gin.Context) {
	u := currentUser(c)
	overrides, err := models.ListUserConfiguracoes(h.db(c), u.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	own := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		own[o.Chave] = o.Valor != ""
	}

	out := make([]userSetting, 0, len(service.UserEditableKeys))
	for _, k := range service.UserEditableKeys {
		out = append(out, userSetting{
			Chave:         k,
			Valor:         h.Configs.GetOr(c.Request.Context(), u.ID, k, ""),
			Personalizado: own[k],
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) SetUserSetting(c *gin.Context) {
	chave := c.Param("chave")
	if !service.IsUserEditable(chave) {
		apperr.Respond(c, apperr.Forbidden("esta configuração não pode ser alterada pelo usuário"))
		return
	}
	var req struct {
		Valor string `json:"valor"`
	}
	if !bind(c, &req) {
		return
	}
	valor, err := required(req.Valor, "informe o valor")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	u := currentUser(c)
	if err := models.UpsertUserConfiguracao(h.db(c), u.ID, chave, valor); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.Configs.InvalidateUser(u.ID, chave)
	c.JSON(http.StatusOK, userSetting{Chave: chave, Valor: valor, Personalizado: true})
}

func (h *Handler) ResetUserSetting(c *gin.Context) {
	chave := c.Param("chave")
	if !service.IsUserEditable(chave) {
		apperr.Respond(c, apperr.Forbidden("esta configuração não pode ser alterada pelo usuário"))
		return
	}
	u := currentUser(c)
	if err := models.DeleteUserConfiguracao(h.db(c), u.ID, chave); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.Configs.InvalidateUser(u.ID, chave)
	c.JSON(http.StatusOK, userSetting{
		Chave: chave,
		Valor: h.Configs.GetOr(c.Request.Context(), u.ID, chave, ""),
	})
}

func maskConfig(cfg models.Configuracao) models.Configuracao {
	if cfg.Secreta || service.IsSecretKey(cfg.Chave) {
		cfg.Valor = service.MaskSecret(cfg.Valor)
	}
	return cfg
}

func (h *Handler) ListSettings(c *gin.Context) {
	list, err := models.ListConfiguracoes(h.db(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	for i := range list {
		list[i] = maskConfig(list[i])
	}
	c.JSON(http.StatusOK, list)
}

// UpsertSetting writes a global setting. A masked secret sent back unchanged
// keeps the stored value, including on a deactivated row.
func (h *Handler) UpsertSetting(c *gin.Context) {
	chave := strings.TrimSpace(c.Param("chave"))
	if chave == "" {
		apperr.Respond(c, apperr.Validation("informe a chave"))
		return
	}
	var req struct {
		Valor     string `json:"valor"`
		Descricao string `json:"descricao"`
		Secreta   *bool  `json:"secreta"`
	}
	if !bind(c, &req) {
		return
	}

	existing, err := models.FindConfiguracao(h.db(c), chave)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		apperr.Respond(c, err)
		return
	}

	cfg := &models.Configuracao{
		Chave:     chave,
		Valor:     strings.TrimSpace(req.Valor),
		Descricao: req.Descricao,
		Secreta:   service.IsSecretKey(chave),
	}
	if req.Secreta != nil {
		cfg.Secreta = *req.Secreta
	}
	masked := strings.HasPrefix(cfg.Valor, "****")
	if masked && (existing == nil || existing.Valor == "") {
		apperr.Respond(c, apperr.Validation("informe o valor completo da configuração"))
		return
	}
	if existing != nil {
		if masked {
			cfg.Valor = existing.Valor
		}
		if cfg.Descricao == "" {
			cfg.Descricao = existing.Descricao
		}
		if req.Secreta == nil {
			cfg.Secreta = existing.Secreta
		}
	}

	if err := models.UpsertConfiguracao(h.db(c), cfg); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.Configs.Invalidate(chave)
	log.Info("setting updated", "chave", chave, "admin_id", currentUser(c).ID)
	c.JSON(http.StatusOK, maskConfig(*cfg))
}

func (h *Handler) DeactivateSetting(c *gin.Context) {
	chave := c.Param("chave")
	if err := models.DeactivateConfiguracao(h.db(c), chave); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.Configs.Invalidate(chave)
	c.JSON(http.StatusOK, gin.H{"message": "configuração desativada"})
}

func (h *Handler) ClearConfigCache(c *gin.Context) {
	n := h.Configs.Clear()
	log.Info("config cache cleared", "entries", n, "admin_id", currentUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"removidas": n})
}
