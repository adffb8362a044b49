package router

import (
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/handler"
	"github.com/alphaexam/alphaexam-backend/internal/middleware"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Attempt   *handler.AttemptHandler
	Question  *handler.QuestionHandler
	Category  *handler.CategoryHandler
	Credit    *handler.CreditHandler
	Analytics *handler.AnalyticsHandler
	Media     *handler.MediaHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenResolver,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(), middleware.RequestLogger(log))

	// XLSX exports are already zip-compressed.
	brotliCfg := middleware.DefaultBrotliConfig
	brotliCfg.Skipper = middleware.SkipSuffixes("/export")
	router.Use(middleware.BrotliWithConfig(brotliCfg))

	// Locally stored figures, cached for a year since names are random.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", handlers.System.Health)

	// ─── 1. Public Catalogue ───────────────────────────────────────────
	publicAPI := router.Group("/api")
	publicAPI.Use(limiter.Middleware())
	{
		publicAPI.GET("/categories", handlers.Category.ListCategories)
		publicAPI.GET("/exams", handlers.Exam.ListExams)
		publicAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		publicAPI.POST("/admin/login", handlers.Auth.AdminLogin)
	}

	// ─── 2. User Group (Bearer JWT) ────────────────────────────────────
	userAPI := router.Group("/api")
	userAPI.Use(middleware.RequireAuth(auth), limiter.Middleware(), middleware.NoStore())
	{
		userAPI.POST("/exams/:exam_id/start", handlers.Attempt.StartExam)
		userAPI.GET("/exams/:exam_id/questions", handlers.Attempt.GetQuestions)
		userAPI.POST("/exams/:exam_id/submit", handlers.Attempt.SubmitExam)
		userAPI.POST("/exams/:exam_id/purchase", handlers.Credit.PurchaseExam)

		userAPI.GET("/exam-attempts", handlers.Attempt.ListAttempts)
		userAPI.GET("/exam-attempts/:attempt_id", handlers.Attempt.GetAttempt)
		userAPI.GET("/exam-attempts/:attempt_id/state", handlers.Attempt.GetAttemptState)
		userAPI.PUT("/exam-attempts/:attempt_id/answers", handlers.Attempt.SaveAnswer)

		userAPI.GET("/me", handlers.Auth.Me)
		userAPI.GET("/me/credits", handlers.Credit.GetCredits)
		userAPI.GET("/me/transactions", handlers.Credit.ListTransactions)
		userAPI.GET("/me/analytics", handlers.Analytics.UserAnalytics)
	}

	// ─── 3. WebSocket Group (query token) ──────────────────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.RequireWSAuth(auth))
	{
		ws.GET("/exam-attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT + ADMIN role) ─────────────────────────────
	adminAPI := router.Group("/api/admin")
	adminAPI.Use(middleware.RequireAuth(auth), middleware.RequireAdmin())
	{
		adminAPI.GET("/dashboard", handlers.Analytics.AdminDashboard)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)

		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)
		adminAPI.POST("/categories", handlers.Category.CreateCategory)
		adminAPI.POST("/users/:user_id/credits", handlers.Credit.TopUp)

		adminAPI.GET("/exams", handlers.Exam.AdminListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.AdminGetExam)
		adminAPI.PATCH("/exams/:exam_id", handlers.Exam.UpdateExam)
		adminAPI.PATCH("/exams/:exam_id/active", handlers.Exam.SetActive)
		adminAPI.POST("/exams/:exam_id/refresh-cache", handlers.Exam.RefreshCache)
		adminAPI.GET("/exams/:exam_id/attempts/export", handlers.Exam.ExportResults)

		adminAPI.GET("/exams/:exam_id/questions", handlers.Question.ListExamQuestions)
		adminAPI.POST("/exams/:exam_id/questions", handlers.Question.AttachQuestion)
		adminAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.Question.DetachQuestion)

		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.GET("/questions/:question_id", handlers.Question.GetQuestion)
	}

	return router
}
