package app

import (
	"careerx_backend/docs"
	"careerx_backend/internal/config"
	"careerx_backend/internal/middleware"
	"careerx_backend/internal/model"
	"careerx_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/auth/forgot-password", c.auth.ForgotPassword)
		public.POST("/auth/verify-code", c.auth.VerifyCode)
		public.POST("/auth/reset-password", c.auth.ResetPassword)
	}
}

func (a *App) registerStudentRoutes(authGroup *gin.RouterGroup, c *controllers) {
	authGroup.GET("/me", c.auth.Me)

	profile := authGroup.Group("/profile")
	{
		profile.GET("", c.profile.GetProfile)
		profile.POST("", c.profile.CreateProfile)
		profile.PUT("", c.profile.UpdateProfile)
		profile.DELETE("", c.profile.DeleteProfile)
		profile.POST("/picture", c.profile.UploadPicture)
	}

	assessments := authGroup.Group("/assessments")
	{
		assessments.GET("/eligibility", c.assessment.CheckEligibility)
		assessments.POST("/start", c.assessment.StartAssessment)
		assessments.POST("/webcam", c.assessment.UploadWebcam)
		assessments.GET("/history", c.assessment.GetHistory)
		assessments.POST("/:id/submit", c.assessment.SubmitAssessment)
		assessments.GET("/:id/report", c.assessment.GetReport)
	}

	payments := authGroup.Group("/payments")
	{
		payments.POST("/orders", c.payment.CreateOrder)
		payments.POST("/verify", c.payment.VerifyPayment)
		payments.GET("/history", c.payment.GetHistory)
		payments.GET("/:id/receipt", c.payment.GetReceipt)
	}

	roadmaps := authGroup.Group("/roadmaps")
	{
		roadmaps.POST("", c.roadmap.GenerateRoadmap)
		roadmaps.GET("", c.roadmap.ListRoadmaps)
		roadmaps.GET("/:id", c.roadmap.GetRoadmap)
	}

	authGroup.POST("/chatbot/chat", c.chatbot.Chat)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin), middleware.ActivityMiddleware(repos.user))
	{
		admin.GET("/assessments/sessions", c.assessment.ListSessions)
	}
}
