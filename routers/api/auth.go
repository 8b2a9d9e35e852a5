package api

import (
	"net/http"
	"net/mail"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/middleware"
	"ContentStudio-server/models"
	"ContentStudio-server/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const minSenha = 6

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func validEmail(email string) bool {
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == email
}

func validateCredentials(nome, email, senha string) error {
	if strings.TrimSpace(nome) == "" {
		return apperr.Validation("informe o nome")
	}
	if !validEmail(email) {
		return apperr.Validation("e-mail inválido")
	}
	if len(senha) < minSenha {
		return apperr.Validation("a senha deve ter pelo menos 6 caracteres")
	}
	return nil
}

func (h *Handler) issue(c *gin.Context, status int, u *models.User) {
	token, err := middleware.IssueToken(u, h.Config.Auth.JWTSecret, h.Config.Auth.TokenTTL())
	if err != nil {
		apperr.Respond(c, apperr.Internal("falha ao gerar token", err))
		return
	}
	c.JSON(status, authResponse{Token: token, User: u})
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Nome  string `json:"nome"`
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if !bind(c, &req) {
		return
	}
	if !h.Configs.Bool(c.Request.Context(), 0, service.KeyAllowRegistration) {
		apperr.Respond(c, apperr.Forbidden("o cadastro de novos usuários está desativado"))
		return
	}

	req.Email = models.NormalizeEmail(req.Email)
	if err := validateCredentials(req.Nome, req.Email, req.Senha); err != nil {
		apperr.Respond(c, err)
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

	u := &models.User{Nome: strings.TrimSpace(req.Nome), Email: req.Email, Role: models.RoleUser}
	if err := u.SetSenha(req.Senha); err != nil {
		apperr.Respond(c, apperr.Internal("falha ao processar a senha", err))
		return
	}
	if err := models.CreateUser(h.db(c), u); err != nil {
		apperr.Respond(c, err)
		return
	}
	log.Info("user registered", "user_id", u.ID)
	h.issue(c, http.StatusCreated, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if !bind(c, &req) {
		return
	}
	invalid := apperr.Unauthorized("e-mail ou senha inválidos")

	u, err := models.GetUserByEmail(h.db(c), models.NormalizeEmail(req.Email))
	if err != nil || !u.CheckSenha(req.Senha) {
		apperr.Respond(c, invalid)
		return
	}
	if !u.Ativo {
		apperr.Respond(c, apperr.Unauthorized("usuário desativado"))
		return
	}
	h.issue(c, http.StatusOK, u)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		SenhaAtual string `json:"senhaAtual"`
		NovaSenha  string `json:"novaSenha"`
	}
	if !bind(c, &req) {
		return
	}
	u := currentUser(c)
	if !u.CheckSenha(req.SenhaAtual) {
		apperr.Respond(c, apperr.Validation("senha atual incorreta"))
		return
	}
	if len(req.NovaSenha) < minSenha {
		apperr.Respond(c, apperr.Validation("a senha deve ter pelo menos 6 caracteres"))
		return
	}
	if err := u.SetSenha(req.NovaSenha); err != nil {
		apperr.Respond(c, apperr.Internal("falha ao processar a senha", err))
		return
	}
	if err := models.UpdateUser(h.db(c), u.ID, map[string]any{"senha_hash": u.SenhaHash}); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "senha alterada"})
}
