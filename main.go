package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/config"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/db"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/event"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/handlers"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/images"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/llm"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/metrics"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/repository"
	"github.com/venkateshh-srs/ZLearn-sub000/internal/service"
	"github.com/venkateshh-srs/ZLearn-sub000/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config.LoadConfig()
	gin.SetMode(config.AppConfig.GinMode)

	if err := db.InitMongo(config.AppConfig.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer db.Close()
	database := db.Client.Database(config.AppConfig.MongoDatabase)

	// Session store is optional; without Redis, tokens stay valid until
	// they expire.
	var sessions *repository.SessionStore
	if config.AppConfig.RedisAddr != "" {
		sessions = repository.NewSessionStore(config.AppConfig.RedisAddr, config.AppConfig.RedisPassword, 7*24*time.Hour)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sessions.Ping(ctx); err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
			sessions = nil
		} else {
			log.Println("Redis connected successfully")
		}
		cancel()
	} else {
		log.Println("Redis not configured, session invalidation disabled")
	}

	var publisher *event.EventPublisher
	if config.AppConfig.RabbitMQURI != "" && config.AppConfig.RabbitMQExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(config.AppConfig.RabbitMQURI, config.AppConfig.RabbitMQExchange)
		if err != nil {
			log.Printf("Warning: Failed to connect to RabbitMQ: %v", err)
		} else {
			log.Println("RabbitMQ connected successfully")
			defer publisher.Close()
		}
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	sink := metrics.NewPrometheusSink()
	gateway := llm.NewClient(config.AppConfig.LLMBaseURL, config.AppConfig.LLMAPIKey, config.AppConfig.LLMModel, sink)
	imageService := images.NewService(config.AppConfig.ImageSearchURL, config.AppConfig.ImageAPIKey, config.AppConfig.ImageSearchCX)

	courseService := service.NewCourseService(gateway)
	chatService := service.NewChatService(gateway, imageService)
	quizService := service.NewQuizService(gateway)

	courseRepo := repository.NewCourseRepository(database)
	historyRepo := repository.NewHistoryRepository(database)
	userRepo := repository.NewUserRepository(database)

	generateHandler := handlers.NewGenerateHandler(courseService, chatService, quizService, gateway, publisher)
	courseHandler := handlers.NewCourseHandler(courseRepo, historyRepo, publisher)
	authHandler := handlers.NewAuthHandler(userRepo, sessions)
	historyHandler := handlers.NewHistoryHandler(historyRepo)

	r := setupRouter(generateHandler, courseHandler, authHandler, historyHandler, sessions, gateway)

	log.Printf("Starting %s on port %s", config.AppConfig.ServiceName, config.AppConfig.Port)
	if err := r.Run(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func setupRouter(
	generateHandler *handlers.GenerateHandler,
	courseHandler *handlers.CourseHandler,
	authHandler *handlers.AuthHandler,
	historyHandler *handlers.HistoryHandler,
	sessions *repository.SessionStore,
	gateway *llm.Client,
) *gin.Engine {
	r := gin.New()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.AppConfig.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   config.AppConfig.ServiceName,
			"version":   config.AppConfig.ServiceVersion,
			"mongodb":   db.IsConnected(),
			"llm":       gateway.IsConnected(),
			"timestamp": time.Now(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/public/learnpath")
	{
		public.POST("/generate-course", generateHandler.GenerateCourse)
		public.POST("/chat", generateHandler.Chat)
		public.POST("/generate-quiz", generateHandler.GenerateQuiz)
		public.POST("/stream-response", generateHandler.StreamResponse)
		public.POST("/get-another-image", generateHandler.GetAnotherImage)

		public.POST("/auth/signup", authHandler.Signup)
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/google", authHandler.GoogleLogin)

		public.GET("/shared/:shareId", courseHandler.GetSharedCourse)
	}

	protected := r.Group("/protected/learnpath")
	protected.Use(authMiddleware(sessions))
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/settings", authHandler.UpdateSettings)
		protected.POST("/auth/logout", authHandler.Logout)

		protected.POST("/courses", courseHandler.SaveCourse)
		protected.GET("/courses", courseHandler.ListCourses)
		protected.GET("/courses/:shareId", courseHandler.GetCourse)
		protected.DELETE("/courses/:shareId", courseHandler.DeleteCourse)
		protected.PUT("/courses/:shareId/thread/:topicId", courseHandler.SaveThread)
		protected.PUT("/courses/:shareId/related/:topicId", courseHandler.SaveRelatedTopics)
		protected.POST("/courses/:shareId/complete", courseHandler.CompleteSubtopic)
		protected.PUT("/courses/:shareId/current-chat", courseHandler.SetCurrentChat)
		protected.PUT("/courses/:shareId/quiz/:scope", courseHandler.SaveQuizResult)
		protected.POST("/courses/:shareId/quiz/:scope/submit", courseHandler.SubmitQuiz)

		protected.GET("/history", historyHandler.GetHistory)
		protected.DELETE("/history/:courseId", historyHandler.RemoveEntry)
		protected.DELETE("/history", historyHandler.Clear)
	}

	return r
}

func authMiddleware(sessions *repository.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := utils.GetClaimsFromRequest(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or missing credential")
			c.Abort()
			return
		}
		if sessions != nil && !sessions.IsValid(c.Request.Context(), claims.ID) {
			utils.UnauthorizedResponse(c, "Session has been revoked")
			c.Abort()
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("tokenID", claims.ID)
		c.Next()
	}
}
