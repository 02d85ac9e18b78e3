package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/aggregator"
	"github.com/Abhijeet14d/KrishiBandhu/chat"
	"github.com/Abhijeet14d/KrishiBandhu/db"
	"github.com/Abhijeet14d/KrishiBandhu/email"
	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/handlers"
	"github.com/Abhijeet14d/KrishiBandhu/kafka"
	"github.com/Abhijeet14d/KrishiBandhu/logger"
	"github.com/Abhijeet14d/KrishiBandhu/middleware"
	"github.com/Abhijeet14d/KrishiBandhu/mongodb"
	"github.com/Abhijeet14d/KrishiBandhu/worker"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	if err := logger.InitFromEnv(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}

func main() {
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.CloseDB()

	if err := mongodb.InitMongoDB(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongodb.CloseMongoDB()

	if err := kafka.InitProducer(); err != nil {
		log.Printf("Warning: Kafka producer unavailable: %v", err)
	}
	defer kafka.CloseProducer()

	emailService, err := email.NewService()
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	cache := extdata.NewCache(extdata.DefaultTTL)
	dataClient := extdata.NewClient(extdata.ConfigFromEnv(), cache, logger.Get())
	agg := aggregator.NewService(dataClient, contextLimits(), logger.Get())
	chatManager := chat.NewManager(agg, chat.GoogleModelFactory(os.Getenv("GEMINI_API_KEY")))

	pool := worker.NewWorkerPool(workerCount())
	pool.Start()
	defer pool.Stop()

	handlers.Chat = chatManager
	handlers.Aggregator = agg
	handlers.ExtData = dataClient
	handlers.Email = emailService
	handlers.Pool = pool

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"}) // Only trust local proxies
	router.Use(middleware.CorsMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapF(pool.MetricsHandler))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.HandleRegister)
			auth.POST("/verify-otp", handlers.HandleVerifyOTP)
			auth.POST("/resend-otp", handlers.HandleResendOTP)
			auth.POST("/login", handlers.HandleLogin)
			auth.POST("/refresh-token", handlers.HandleRefreshToken)
			auth.POST("/forgot-password", handlers.HandleForgotPassword)
			auth.POST("/reset-password", handlers.HandleResetPassword)

			authed := auth.Group("")
			authed.Use(middleware.AuthMiddleware)
			{
				authed.GET("/me", handlers.HandleGetMe)
				authed.PUT("/profile", handlers.HandleUpdateProfile)
				authed.PUT("/location", handlers.HandleUpdateLocation)
				authed.PUT("/farming-profile", handlers.HandleUpdateFarmingProfile)
				authed.PUT("/change-password", handlers.HandleChangePassword)
			}
		}

		conversations := api.Group("/conversations")
		conversations.Use(middleware.AuthMiddleware)
		{
			conversations.POST("", handlers.HandleCreateConversation)
			conversations.GET("", handlers.HandleGetConversations)
			conversations.GET("/:id", handlers.HandleGetConversation)
			conversations.POST("/:id/message", handlers.HandleSendMessage)
			conversations.PUT("/:id/end", handlers.HandleEndConversation)
			conversations.DELETE("/:id", handlers.HandleDeleteConversation)
		}

		data := api.Group("/data")
		data.Use(middleware.AuthMiddleware)
		{
			data.GET("/dashboard", handlers.HandleDashboard)
			data.GET("/market-prices", handlers.HandleMarketPrices)
			data.GET("/weather", handlers.HandleWeather)
			data.GET("/weather/forecast", handlers.HandleForecast)
			data.GET("/schemes", handlers.HandleSchemes)
			data.GET("/farming-advice", handlers.HandleFarmingAdvice)
			data.POST("/clear-cache", handlers.HandleClearCache)
		}

		ws := api.Group("/ws")
		ws.Use(middleware.AuthMiddleware)
		{
			ws.GET("", handlers.HandleWebsocket)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	logger.Sync()
}

// contextLimits reads the context block caps, falling back to the
// defaults when unset.
func contextLimits() aggregator.Limits {
	limits := aggregator.DefaultLimits()
	if n := envInt("CONTEXT_MAX_PRICES"); n > 0 {
		limits.MarketPrices = n
	}
	if n := envInt("CONTEXT_MAX_FORECAST_DAYS"); n > 0 {
		limits.ForecastDays = n
	}
	if n := envInt("CONTEXT_MAX_SCHEMES"); n > 0 {
		limits.Schemes = n
	}
	return limits
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func workerCount() int {
	if v := os.Getenv("TURN_EVENT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 4
}
