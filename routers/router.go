package routers

import (
	"time"

	"ContentStudio-server/logger"
	"ContentStudio-server/metrics"
	"ContentStudio-server/middleware"
	"ContentStudio-server/routers/api"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func InitRouter(h *api.Handler, l *log.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(l), metrics.Middleware(), cors.New(corsConfig(h.Config.Server.AllowedOrigins)))

	r.GET("/health", h.Health)
	r.GET("/metrics", metrics.Handler())

	limiter := middleware.NewUserRateLimiter(h.Config.RateLimit.PerMinute, h.Config.RateLimit.Burst)
	limited := limiter.Middleware()

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/register", h.Register)
		apiGroup.POST("/auth/login", h.Login)
	}

	authed := apiGroup.Group("", middleware.RequireAuth(h.DB, h.Config.Auth.JWTSecret))
	{
		authed.GET("/auth/me", h.Me)
		authed.PUT("/auth/senha", h.ChangePassword)

		authed.GET("/configuracoes", h.ListUserSettings)
		authed.PUT("/configuracoes/:chave", h.SetUserSetting)
		authed.DELETE("/configuracoes/:chave", h.ResetUserSetting)

		authed.GET("/topicos", h.ListTopics)
		authed.POST("/topicos/:id/seguir", h.FollowTopic)
		authed.DELETE("/topicos/:id/seguir", h.UnfollowTopic)

		authed.POST("/temas/sugerir", limited, h.SuggestThemes)
		authed.GET("/temas", h.ListThemes)
		authed.POST("/temas", h.CreateTheme)
		authed.DELETE("/temas/:id", h.DeleteTheme)

		authed.POST("/roteiros", limited, h.GenerateScript)

		authed.GET("/temas-carrossel", h.ListCarouselThemes)
		authed.POST("/temas-carrossel", h.CreateCarouselTheme)
		authed.DELETE("/temas-carrossel/:id", h.DeleteCarouselTheme)

		authed.POST("/carrosseis", limited, h.GenerateCarousel)
		authed.GET("/carrosseis", h.ListCarousels)
		authed.GET("/carrosseis/:id", h.GetCarousel)
		authed.DELETE("/carrosseis/:id", h.DeleteCarousel)

		authed.GET("/vozes", h.ListVoices)
		authed.POST("/narracoes", limited, h.CreateNarration)
		authed.GET("/narracoes", h.ListNarrations)
		authed.GET("/narracoes/:id", h.GetNarration)
		authed.GET("/narracoes/:id/audio", h.NarrationAudio)
		authed.DELETE("/narracoes/:id", h.DeleteNarration)

		authed.GET("/ws", h.Realtime)
	}

	admin := authed.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/usuarios", h.ListUsers)
		admin.POST("/usuarios", h.CreateUser)
		admin.PUT("/usuarios/:id", h.UpdateUser)
		admin.DELETE("/usuarios/:id", h.DeactivateUser)

		admin.GET("/configuracoes", h.ListSettings)
		admin.PUT("/configuracoes/:chave", h.UpsertSetting)
		admin.DELETE("/configuracoes/:chave", h.DeactivateSetting)
		admin.POST("/cache/limpar", h.ClearConfigCache)

		admin.GET("/topicos", h.AdminListTopics)
		admin.POST("/topicos", h.CreateTopic)
		admin.PUT("/topicos/:id", h.UpdateTopic)
		admin.DELETE("/topicos/:id", h.DeactivateTopic)

		admin.GET("/audios", h.ListAudios)
		admin.DELETE("/audios/:nome", h.DeleteAudio)
	}

	return r
}
