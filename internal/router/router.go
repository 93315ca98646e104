package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/handler"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/response"
)

// originsMaxAge is how long clients may cache the origin vocabulary.
const originsMaxAge = time.Hour

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Question *handler.QuestionHandler
	Session  *handler.SessionHandler
	Health   *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	compression := middleware.DefaultBrotliConfig
	compression.SkipPaths = []string{"/health"}
	router.Use(middleware.BrotliWithConfig(compression))

	router.GET("/health", handlers.Health.Health)

	api := router.Group("/api/v1")
	api.Use(limiter.Middleware(), middleware.RequireJWT(auth))

	// ─── Questions ─────────────────────────────────────────────────────
	api.POST("/questions", handlers.Question.Create)
	api.GET("/questions", handlers.Question.Search)
	api.GET("/questions/:id", handlers.Question.Get)
	api.PATCH("/questions/:id", handlers.Question.Update)
	api.DELETE("/questions/:id", handlers.Question.Delete)
	api.PATCH("/questions/:id/approve", middleware.RequireModerator(), handlers.Question.Approve)
	api.PATCH("/questions/:id/disapprove", middleware.RequireModerator(), handlers.Question.Disapprove)
	api.GET("/exams/:id/questions", handlers.Question.ListByExam)
	api.GET("/courses/:id/questions", handlers.Question.ListByCourse)
	api.GET("/origins", middleware.CacheControl(originsMaxAge), handlers.Question.Origins)

	// ─── Sessions ──────────────────────────────────────────────────────
	api.POST("/sessions", handlers.Session.Create)
	api.GET("/sessions/count", handlers.Session.CountMatching)
	api.GET("/users/:id/sessions", handlers.Session.ListByUser)

	sessions := api.Group("/sessions/:id")
	{
		sessions.GET("", handlers.Session.Get)
		sessions.PATCH("", handlers.Session.Update)
		sessions.DELETE("", handlers.Session.Delete)
		sessions.GET("/count", handlers.Session.CountQuestions)
		sessions.GET("/results", handlers.Session.Results)
		sessions.PATCH("/submit", handlers.Session.Submit)
		sessions.PATCH("/reset", handlers.Session.Reset)

		sessions.GET("/questions", handlers.Session.Questions)
		sessions.GET("/questions/:local_id", handlers.Session.QuestionAt)
		sessions.GET("/questions/:local_id/status", handlers.Session.QuestionStatus)
		sessions.GET("/questions/:local_id/selection", handlers.Session.GetSelection)
		sessions.PUT("/questions/:local_id/selection", handlers.Session.SetSelection)
		sessions.PUT("/questions/:local_id/time", handlers.Session.SetTime)
		sessions.PATCH("/questions/:local_id/submit", handlers.Session.SubmitQuestion)
	}

	return router
}
