package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ContentStudio-server/apperr"
	"ContentStudio-server/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	ctxUser   = "user"
	ctxUserID = "user_id"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for u valid for ttl.
func IssueToken(u *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature and expiry and returns the user id.
func ParseToken(tokenString, secret string) (uint, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, nil, err
	}
	if !token.Valid {
		return 0, nil, errors.New("token inválido")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, nil, errors.New("sub inválido")
	}
	return uint(id), claims, nil
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// RequireAuth accepts "Authorization: Bearer <jwt>" or ?token=<jwt>. The user
// is reloaded from the database so deactivation takes effect immediately.
func RequireAuth(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			apperr.Respond(c, apperr.Unauthorized("token de autorização não encontrado"))
			return
		}

		id, _, err := ParseToken(tokenString, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				apperr.Respond(c, apperr.Unauthorized("o token expirou"))
				return
			}
			apperr.Respond(c, apperr.Unauthorized("token inválido"))
			return
		}

		user, err := models.GetUserByID(db.WithContext(c.Request.Context()), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperr.Respond(c, apperr.Unauthorized("usuário não encontrado"))
			return
		}
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if !user.Ativo {
			apperr.Respond(c, apperr.Unauthorized("usuário desativado"))
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxUserID, user.ID)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsAdmin() {
			apperr.Respond(c, apperr.Forbidden("acesso restrito a administradores"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
