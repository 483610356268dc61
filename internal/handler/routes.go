package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/polyclinic/appointment-core/internal/auth"
)

// requestLogger пишет строку на каждый запрос после обработки.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// NewRouter собирает HTTP-маршруты API.
// Регистратура бронирует и ведёт записи, админ управляет расписаниями.
func NewRouter(
	appointments *AppointmentHandler,
	schedules *ScheduleHandler,
	authMgr *auth.Manager,
	log *zap.Logger,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsCfg.AllowOrigins = allowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Выдача слотов и список врачей открыты: ими пользуется запись
	// пациентов без токена.
	api.GET("/doctors", schedules.ListDoctors)
	api.GET("/doctors/:id/slots", appointments.Slots)

	registrar := api.Group("", auth.RequireRole(authMgr, auth.RoleRegistrar))
	{
		registrar.GET("/doctors/:id/appointments", appointments.List)

		registrar.POST("/appointments", appointments.Book)
		registrar.GET("/appointments/:id", appointments.Get)
		registrar.POST("/appointments/:id/reschedule", appointments.Reschedule)
		registrar.POST("/appointments/:id/clone", appointments.Clone)
	}

	// Завершение и отмена доступны и врачу.
	staff := api.Group("", auth.RequireRole(authMgr, auth.RoleRegistrar, auth.RoleDoctor))
	{
		staff.POST("/appointments/:id/complete", appointments.Complete)
		staff.POST("/appointments/:id/cancel", appointments.Cancel)
	}

	admin := api.Group("", auth.RequireRole(authMgr, auth.RoleAdmin))
	{
		admin.GET("/doctors/:id/schedules", schedules.ListTemplates)
		admin.PUT("/doctors/:id/schedules", schedules.UpsertTemplate)
		admin.PATCH("/schedules/:id", schedules.PatchTemplate)
		admin.DELETE("/schedules/:id", schedules.DeleteTemplate)

		admin.GET("/doctors/:id/daily-schedules", schedules.ListOverrides)
		admin.PUT("/doctors/:id/daily-schedules", schedules.UpsertOverride)
		admin.PATCH("/daily-schedules/:id", schedules.PatchOverride)
		admin.DELETE("/daily-schedules/:id", schedules.DeleteOverride)

		admin.GET("/doctors/:id/calendar", schedules.ListExceptions)
		admin.PUT("/doctors/:id/calendar", schedules.UpsertException)
		admin.POST("/doctors/:id/calendar/bulk", schedules.BulkSetExceptions)
	}

	return r
}
