package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/config"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/handler"
	httpmiddleware "github.com/Gurpreetsingh4547/project-peak-api/internal/http/middleware"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, projectHandler *handler.ProjectHandler, authMiddleware *httpmiddleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is working!")
	})

	api := r.Group("/api/v1")
	{
		api.POST("/signup", authHandler.Signup)
		api.POST("/verify", authMiddleware.Authenticate, authHandler.Verify)
		api.DELETE("/logout", authMiddleware.Authenticate, authHandler.Logout)
		api.POST("/login", authHandler.Login)
		api.POST("/resend/otp", authMiddleware.Authenticate, authHandler.ResendOTP)
		api.POST("/forget/password", authHandler.ForgotPassword)
		api.POST("/reset/password", authHandler.ResetPassword)

		api.POST("/add/projects", authMiddleware.Authenticate, projectHandler.Create)
		api.GET("/get/projects", authMiddleware.Authenticate, projectHandler.List)
		api.DELETE("/delete/projects/:id", authMiddleware.Authenticate, projectHandler.Delete)
		api.PUT("/update/projects/:id", authMiddleware.Authenticate, projectHandler.Update)
		api.GET("/project/status", authMiddleware.Authenticate, projectHandler.Status)
		api.GET("/recent/projects", authMiddleware.Authenticate, projectHandler.Recent)
	}

	return r
}
