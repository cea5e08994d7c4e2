// Package app provides the HTTP handlers for the blog account service.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/middleware"
)

func (a *App) RegisterRoutes() *gin.Engine {
	router := gin.New()

	router.Use(gin.CustomRecovery(a.recoverPanic))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.log))
	router.Use(middleware.CORS(a.cfg.AllowedOrigins))

	v1 := router.Group("/api/v1")
	{
		health := v1.Group("/health")
		{
			health.GET("/readiness", a.HandleReadiness)
			health.GET("/liveness", a.HandleLiveness)
		}

		user := v1.Group("/user")
		{
			user.POST("/register", a.HandleRegister)
			user.POST("/login", a.HandleLogin)
			user.GET("/logout", a.HandleLogout)
			user.GET("/all-users", a.HandleListUsers)
			user.POST("/forgot-password", a.HandleForgotPassword)
			user.POST("/reset-password/:token", a.HandleResetPassword)

			auth := middleware.Authenticate(a.jwt)
			user.PUT("/profile/update", auth, a.HandleUpdateProfile)
			user.DELETE("/delete-account", auth, a.HandleDeleteAccount)
		}
	}

	return router
}

func (a *App) recoverPanic(c *gin.Context, recovered any) {
	a.log.Error("panic recovered", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "panic", recovered)
	a.sentry.CaptureRecovered(recovered)
	writeError(c, ErrInternal, nil)
}
