package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/agent"
	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/chunker"
	"docuchat/internal/pkg/pdfextract"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	interactionRepo := repository.NewInteractionRepository(app.MySQL)
	feedbackRepo := repository.NewFeedbackRepository(app.MySQL)
	discardRepo := repository.NewDiscardRepository(app.MySQL)
	analyticsRepo := repository.NewAnalyticsRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	documentService := appsvc.NewDocumentService(
		documentRepo,
		app.VectorIndex,
		app.DocStore,
		pdfextract.ExtractFile,
		chunker.New(app.Config.RAG.ChunkSize, app.Config.RAG.ChunkOverlap),
	)

	chatAgent := agent.New(
		app.AIClient,
		agent.NewRetrieverTool(app.VectorIndex, app.Config.RAG.TopK),
		ai.ChatConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.Model,
		},
		app.Config.RAG.MaxToolIterations,
	)
	chatService := appsvc.NewChatService(
		chatAgent,
		app.Transcripts,
		conversationRepo,
		interactionRepo,
		feedbackRepo,
		rabbitmq.NewDiscardPublisher(app.MQConn, app.Config.RabbitMQ.DiscardQueue),
	)

	conversationService := appsvc.NewConversationService(conversationRepo, app.Transcripts)
	analyticsService := appsvc.NewAnalyticsService(analyticsRepo, discardRepo)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	authed.POST("/documents", documentHandler.Upload)
	authed.GET("/documents", documentHandler.List)
	authed.DELETE("/documents", documentHandler.DeleteAll)
	authed.DELETE("/documents/:filename", documentHandler.Delete)

	authed.POST("/conversations", conversationHandler.Create)
	authed.GET("/conversations", conversationHandler.List)
	authed.GET("/conversations/:id", conversationHandler.Get)
	authed.PATCH("/conversations/:id", conversationHandler.Rename)
	authed.DELETE("/conversations/:id", conversationHandler.Delete)
	authed.GET("/conversations/:id/messages", conversationHandler.Messages)

	authed.POST("/chat/messages", chatHandler.SendMessage)
	authed.POST("/chat/feedback", chatHandler.SubmitFeedback)
	authed.GET("/chat/interactions/:id", chatHandler.GetInteraction)

	authed.GET("/analytics", analyticsHandler.Overview)

	return router
}
