package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/handlers"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/middleware"
)

// HandlerDependencies holds the handlers mounted by SetupRouter
type HandlerDependencies struct {
	AuthHandler     *handlers.AuthHandler
	DrawHandler     *handlers.DrawHandler
	SettingsHandler *handlers.SettingsHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.Health)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		auth := protected.Group("/auth")
		{
			auth.GET("/me", deps.AuthHandler.Me)
			auth.POST("/logout", deps.AuthHandler.Logout)
		}

		protected.GET("/settings", deps.SettingsHandler.GetSettings)
		protected.GET("/prize-structures", deps.DrawHandler.ListPrizeStructures)
		protected.POST("/entries/validate", deps.DrawHandler.ValidateEntries)

		// Draw routes
		draws := protected.Group("/draws")
		{
			draws.GET("", deps.DrawHandler.ListDraws)
			draws.GET("/state", deps.DrawHandler.GetState)
			draws.GET("/audit", deps.DrawHandler.ListAudit)
			draws.GET("/:id/winners", deps.DrawHandler.GetWinners)
			draws.POST("/execute", deps.DrawHandler.ExecuteDraw)
			draws.POST("/rerun/confirm", deps.DrawHandler.ConfirmRerun)
			draws.POST("/rerun/decline", deps.DrawHandler.DeclineRerun)
		}
	}

	return router
}
