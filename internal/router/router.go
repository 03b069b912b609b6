package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/handler"
	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Session     *handler.SessionHandler
	Composition *handler.CompositionHandler
	Exam        *handler.ExamHandler
	Question    *handler.QuestionHandler
	Subject     *handler.SubjectHandler
	Proctor     *handler.ProctorHandler
	Dashboard   *handler.DashboardHandler
	AdminUser   *handler.AdminUserHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// Guards holds the Redis-backed request guards.
type Guards struct {
	Inflight     *service.InflightGuard
	LoginLimiter *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	guards *Guards,
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
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// Apply brotli middleware globally. It skips WebSocket upgrades itself.
	router.Use(middleware.Brotli())

	router.GET("/healthz", handlers.System.Health)
	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	requireAuth := middleware.RequireAuth(authService)
	inflight := func(action, param string) gin.HandlerFunc {
		return middleware.Inflight(guards.Inflight, action, param)
	}

	// ─── 1. Auth Group (Public, Rate Limited Login) ────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/login", guards.LoginLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/register", guards.LoginLimiter.Middleware(), handlers.Auth.Register)

		auth.POST("/logout", requireAuth, handlers.Auth.Logout)
		auth.GET("/me", requireAuth, handlers.Auth.Me)
	}

	// ─── 2. Teacher Group ──────────────────────────────────────────────
	teacher := router.Group("/api/v1/teacher")
	teacher.Use(requireAuth, middleware.RequireAnyRole(model.RoleTeacher), middleware.NoStore())
	{
		// Subjects and chapters
		teacher.GET("/subjects", handlers.Subject.GetAll)
		teacher.POST("/subjects", inflight("subject.create", ""), handlers.Subject.Create)
		teacher.PUT("/subjects/:id", inflight("subject.update", "id"), handlers.Subject.Update)
		teacher.DELETE("/subjects/:id", inflight("subject.delete", "id"), handlers.Subject.Delete)
		teacher.GET("/subjects/:id/chapters", handlers.Subject.Chapters)
		teacher.POST("/subjects/:id/chapters", inflight("chapter.create", "id"), handlers.Subject.CreateChapter)
		teacher.PUT("/chapters/:id", inflight("chapter.update", "id"), handlers.Subject.UpdateChapter)
		teacher.DELETE("/chapters/:id", inflight("chapter.delete", "id"), handlers.Subject.DeleteChapter)

		// Question bank
		teacher.GET("/questions", handlers.Question.ListQuestions)
		teacher.POST("/questions", inflight("question.create", ""), handlers.Question.CreateQuestion)
		teacher.PUT("/questions/:id", inflight("question.update", "id"), handlers.Question.UpdateQuestion)
		teacher.DELETE("/questions/:id", inflight("question.delete", "id"), handlers.Question.DeleteQuestion)

		// Exams
		teacher.GET("/exams", handlers.Exam.ListExams)
		teacher.POST("/exams", inflight("exam.create", ""), handlers.Exam.CreateExam)
		teacher.GET("/exams/:id", handlers.Exam.GetExam)
		teacher.PUT("/exams/:id", inflight("exam.update", "id"), handlers.Exam.UpdateExam)
		teacher.DELETE("/exams/:id", inflight("exam.delete", "id"), handlers.Exam.DeleteExam)
		teacher.GET("/exams/:id/sets", handlers.Exam.ListSets)
		teacher.POST("/exams/:id/shuffle", inflight("exam.shuffle", "id"), handlers.Exam.ShuffleSets)
		teacher.GET("/exams/:id/end-time", handlers.Session.EndTime)
		teacher.GET("/sets/:id/questions", handlers.Exam.SetQuestions)

		// Composition wizard
		teacher.POST("/compositions/validate", handlers.Composition.Validate)
		teacher.GET("/compositions", handlers.Composition.List)
		teacher.POST("/compositions", inflight("composition.start", ""), handlers.Composition.Start)
		teacher.GET("/compositions/:id", handlers.Composition.Get)
		teacher.PUT("/compositions/:id/subject", inflight("composition.subject", "id"), handlers.Composition.SelectSubject)
		teacher.PUT("/compositions/:id/config", inflight("composition.config", "id"), handlers.Composition.Configure)
		teacher.POST("/compositions/:id/preview", inflight("composition.preview", "id"), handlers.Composition.Preview)
		teacher.GET("/compositions/:id/preview/:index/candidates", handlers.Composition.Candidates)
		teacher.PUT("/compositions/:id/preview", inflight("composition.replace", "id"), handlers.Composition.Replace)
		teacher.POST("/compositions/:id/back", inflight("composition.back", "id"), handlers.Composition.Back)
		teacher.POST("/compositions/:id/confirm", inflight("composition.confirm", "id"), handlers.Composition.Confirm)
		teacher.POST("/compositions/:id/restart", inflight("composition.restart", "id"), handlers.Composition.Restart)
		teacher.DELETE("/compositions/:id", inflight("composition.discard", "id"), handlers.Composition.Discard)

		// Exam sessions
		teacher.GET("/sessions", handlers.Session.List)
		teacher.POST("/sessions", inflight("session.create", ""), handlers.Session.Create)
		teacher.GET("/sessions/:id", handlers.Session.Get)
		teacher.PUT("/sessions/:id", inflight("session.update", "id"), handlers.Session.Update)
		teacher.POST("/sessions/:id/cancel", inflight("session.cancel", "id"), handlers.Session.Cancel)
		teacher.DELETE("/sessions/:id", inflight("session.delete", "id"), handlers.Session.Delete)
		teacher.GET("/sessions/:id/proctors", handlers.Session.Proctors)
		teacher.GET("/sessions/:id/audit", handlers.Session.Audit)
		teacher.GET("/proctors", handlers.Session.AvailableProctors)

		// Results
		teacher.GET("/results/sessions", handlers.Exam.ResultSessions)
		teacher.GET("/results/sessions/:id", handlers.Exam.SessionResults)
		teacher.GET("/results/sessions/:id/students/:student_id", handlers.Exam.StudentAttempt)
	}

	// ─── 3. Proctor Group ──────────────────────────────────────────────
	proctor := router.Group("/api/v1/proctor")
	proctor.Use(requireAuth, middleware.RequireAnyRole(model.RoleProctor), middleware.NoStore())
	{
		proctor.GET("/dashboard", handlers.Dashboard.ProctorDashboard)
		proctor.GET("/sessions/:id", handlers.Proctor.SessionDetails)
		proctor.GET("/sessions/:id/monitor", handlers.Dashboard.Monitor)

		proctor.GET("/violations", handlers.Proctor.Violations)
		proctor.POST("/violations", inflight("violation.create", ""), handlers.Proctor.CreateViolation)
		proctor.PATCH("/violations/:id", inflight("violation.transition", "id"), handlers.Proctor.TransitionViolation)

		proctor.GET("/incidents", handlers.Proctor.Incidents)
		proctor.POST("/incidents", inflight("incident.create", ""), handlers.Proctor.CreateIncident)
		proctor.PATCH("/incidents/:id", inflight("incident.transition", "id"), handlers.Proctor.TransitionIncident)

		proctor.GET("/issues", handlers.Proctor.IssueReports)
		proctor.POST("/issues/:id/resolve", inflight("issue.resolve", "id"), handlers.Proctor.ResolveIssue)

		proctor.POST("/attempts/:id/lock", inflight("attempt.lock", "id"), handlers.Proctor.LockAttempt)
	}

	// ─── 4. Admin Group ────────────────────────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(requireAuth, middleware.RequireAnyRole(model.RoleAdmin), middleware.NoStore())
	{
		admin.GET("/dashboard", handlers.Dashboard.AdminDashboard)
		admin.GET("/system/metrics", handlers.System.SystemMetricsSSE)

		admin.GET("/users", handlers.AdminUser.ListUsers)
		admin.POST("/users", inflight("user.create", ""), handlers.AdminUser.CreateUser)
		admin.PUT("/users/:id/roles", inflight("user.roles", "id"), handlers.AdminUser.SetRoles)
		admin.PUT("/users/:id/status", inflight("user.status", "id"), handlers.AdminUser.SetStatus)
		admin.GET("/teachers/pending", handlers.AdminUser.PendingTeachers)
		admin.POST("/teachers/:id/approve", inflight("teacher.approve", "id"), handlers.AdminUser.ApproveTeacher)
	}

	// ─── 5. WebSocket Group (token may arrive as ?token=) ──────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireAuth)
	{
		ws.GET("/teacher/sessions", middleware.RequireAnyRole(model.RoleTeacher), handlers.WS.Sessions)
		ws.GET("/proctor/dashboard", middleware.RequireAnyRole(model.RoleProctor), handlers.WS.ProctorDashboard)
		ws.GET("/proctor/sessions/:id/monitor", middleware.RequireAnyRole(model.RoleProctor), handlers.WS.Monitor)
		ws.GET("/admin/dashboard", middleware.RequireAnyRole(model.RoleAdmin), handlers.WS.AdminDashboard)
	}

	return router
}
