package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/handler"
	"github.com/noah-isme/dorm-hub-api/internal/middleware"
	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	"github.com/noah-isme/dorm-hub-api/internal/service"
	"github.com/noah-isme/dorm-hub-api/pkg/config"
	"github.com/noah-isme/dorm-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dorm-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dorm-hub-api/pkg/middleware/requestid"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Users     *repository.UserRepository
	Metrics   *service.MetricsService
	Auth      *handler.AuthHandler
	Rooms     *handler.RoomHandler
	Students  *handler.StudentHandler
	Payments  *handler.PaymentHandler
	Dashboard *handler.DashboardHandler
	AuthSvc   *service.AuthService
}

// New builds the gin engine with all routes and middleware attached.
func New(deps Deps) *gin.Engine {
	cfg := deps.Config

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)

		authed := auth.Group("", middleware.JWT(deps.AuthSvc))
		authed.POST("/logout", deps.Auth.Logout)
		authed.POST("/change-password", deps.Auth.ChangePassword)
		authed.GET("/me", deps.Auth.Me)
	}

	adminOnly := middleware.RBAC(models.RoleAdmin)
	anyRole := middleware.RBAC(models.RoleAdmin, models.RoleStudent)

	rooms := api.Group("/rooms", middleware.JWT(deps.AuthSvc))
	{
		rooms.GET("", anyRole, deps.Rooms.List)
		rooms.GET("/:id", anyRole, deps.Rooms.Get)
		rooms.POST("", adminOnly, middleware.Audit(deps.Users, models.AuditActionRoomWrite, "rooms"), deps.Rooms.Create)
		rooms.PUT("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionRoomWrite, "rooms"), deps.Rooms.Update)
		rooms.DELETE("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionRoomWrite, "rooms"), deps.Rooms.Delete)
	}

	students := api.Group("/students", middleware.JWT(deps.AuthSvc))
	{
		students.GET("", adminOnly, deps.Students.List)
		students.GET("/me", anyRole, deps.Students.Me)
		students.GET("/:id", anyRole, deps.Students.Get)
		students.GET("/:id/remaining-rent", anyRole, deps.Students.RemainingRent)
		students.POST("", adminOnly, middleware.Audit(deps.Users, models.AuditActionStudentWrite, "students"), deps.Students.Create)
		students.PUT("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionStudentWrite, "students"), deps.Students.Update)
		students.DELETE("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionStudentWrite, "students"), deps.Students.Delete)
		students.PUT("/:id/assign-room", adminOnly, middleware.Audit(deps.Users, models.AuditActionRoomAssignment, "students"), deps.Students.AssignRoom)
		students.PUT("/:id/remove-room", adminOnly, middleware.Audit(deps.Users, models.AuditActionRoomAssignment, "students"), deps.Students.RemoveRoom)
	}

	payments := api.Group("/payments", middleware.JWT(deps.AuthSvc), adminOnly)
	{
		payments.GET("", deps.Payments.List)
		payments.GET("/:id", deps.Payments.Get)
		payments.POST("", middleware.Audit(deps.Users, models.AuditActionPaymentWrite, "payments"), deps.Payments.Create)
		payments.PUT("/:id", middleware.Audit(deps.Users, models.AuditActionPaymentWrite, "payments"), deps.Payments.Update)
		payments.PATCH("/:id/status", middleware.Audit(deps.Users, models.AuditActionPaymentWrite, "payments"), deps.Payments.UpdateStatus)
		payments.DELETE("/:id", middleware.Audit(deps.Users, models.AuditActionPaymentWrite, "payments"), deps.Payments.Delete)

		if cfg.Exports.Enabled {
			payments.GET("/export/csv", deps.Payments.ExportCSV)
			payments.GET("/export/pdf", deps.Payments.ExportPDF)
		}
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard", middleware.JWT(deps.AuthSvc), adminOnly, deps.Dashboard.Summary)
	}

	return r
}
