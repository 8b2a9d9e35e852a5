package api

import (
	"net/http"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := models.ListUsers(h.db(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Nome  string `json:"nome"`
		Email string `json:"email"`
		Senha string `json:"senha"`
		Role  string `json:"role"`
	}
	if !bind(c, &req) {
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := validateCredentials(req.Nome, req.Email, req.Senha); err != nil {
		apperr.Respond(c, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !models.ValidRole(req.Role) {
		apperr.Respond(c, apperr.Validation("perfil inválido"))
		return
	}
	taken, err := models.EmailTaken(h.db(c), req.Email, 0)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if taken {
		apperr.Respond(c, apperr.Conflict("e-mail já cadastrado"))
		return
	}

	u := &models.User{Nome: strings.TrimSpace(req.Nome), Email: req.Email, Role: req.Role}
	if err := u.SetSenha(req.Senha); err != nil {
		apperr.Respond(c, apperr.Internal("falha ao processar a senha", err))
		return
	}
	if err := models.CreateUser(h.db(c), u); err != nil {
		apperr.Respond(c, err)
		return
	}
	log.Info("user created by admin", "user_id", u.ID, "admin_id", currentUser(c).ID)
	c.JSON(http.StatusCreated, u)
}

// UpdateUser applies the fields present in the body. An admin cannot demote
// or deactivate their own account.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Nome  *string `json:"nome"`
		Email *string `json:"email"`
		Senha *string `json:"senha"`
		Role  *string `json:"role"`
		Ativo *bool   `json:"ativo"`
	}
	if !bind(c, &req) {
		return
	}

	u, err := models.GetUserByID(h.db(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	self := currentUser(c).ID == id

	updates := map[string]any{}
	if req.Nome != nil {
		nome := strings.TrimSpace(*req.Nome)
		if nome == "" {
			apperr.Respond(c, apperr.Validation("informe o nome"))
			return
		}
		updates["nome"] = nome
	}
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		if !validEmail(email) {
			apperr.Respond(c, apperr.Validation("e-mail inválido"))
			return
		}
		taken, err := models.EmailTaken(h.db(c), email, id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if taken {
			apperr.Respond(c, apperr.Conflict("e-mail já cadastrado"))
			return
		}
		updates["email"] = email
	}
	if req.Senha != nil {
		if len(*req.Senha) < minSenha {
			apperr.Respond(c, apperr.Validation("a senha deve ter pelo menos 6 caracteres"))
			return
		}
		if err := u.SetSenha(*req.Senha); err != nil {
			apperr.Respond(c, apperr.Internal("falha ao processar a senha", err))
			return
		}
		updates["senha_hash"] = u.SenhaHash
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			apperr.Respond(c, apperr.Validation("perfil inválido"))
			return
		}
		if self && *req.Role != models.RoleAdmin {
			apperr.Respond(c, apperr.Validation("você não pode remover seu próprio acesso de administrador"))
			return
		}
		updates["role"] = *req.Role
	}
	if req.Ativo != nil {
		if self && !*req.Ativo {
			apperr.Respond(c, apperr.Validation("você não pode desativar a própria conta"))
			return
		}
		updates["ativo"] = *req.Ativo
	}

	if err := models.UpdateUser(h.db(c), id, updates); err != nil {
		apperr.Respond(c, err)
		return
	}
	u, err = models.GetUserByID(h.db(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if currentUser(c).ID == id {
		apperr.Respond(c, apperr.Validation("você não pode desativar a própria conta"))
		return
	}
	if _, err := models.GetUserByID(h.db(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := models.UpdateUser(h.db(c), id, map[string]any{"ativo": false}); err != nil {
		apperr.Respond(c, err)
		return
	}
	log.Info("user deactivated", "user_id", id, "admin_id", currentUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"message": "usuário desativado"})
}
