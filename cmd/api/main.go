package main

import (
	"os"

	_ "securechain/api/swagger" // swagger docs
	"securechain/internal/database"
	"securechain/internal/handler"
	"securechain/internal/logger"
	"securechain/internal/mailer"
	"securechain/internal/middleware"
	"securechain/internal/repository"
	"securechain/internal/service"
	"securechain/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           SecureChain Vehicle Registration API
// @version         1.0
// @description     Government vehicle registration, inspection, challan and ownership transfer workflows.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("no configs/.env file found, using environment")
	}
	logger.Setup()

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "securechain") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to PostgreSQL")

	wsHub := websocket.NewHub()
	go wsHub.Run()

	mail := mailer.NewFromEnv()

	// Repositories
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOtpRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	inspectionRepo := repository.NewInspectionRepository(db)
	challanRepo := repository.NewChallanRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, otpRepo, auditRepo, txm, mail)
	vehicleService := service.NewVehicleService(vehicleRepo, inspectionRepo, transferRepo, auditRepo, txm, wsHub)
	inspectionService := service.NewInspectionService(inspectionRepo, vehicleRepo, challanRepo, userRepo, auditRepo, txm, wsHub)
	challanService := service.NewChallanService(challanRepo, vehicleRepo, auditRepo, txm)
	transferService := service.NewTransferService(transferRepo, vehicleRepo, userRepo, auditRepo, txm, mail, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	inspectionHandler := handler.NewInspectionHandler(inspectionService)
	challanHandler := handler.NewChallanHandler(challanService)
	transferHandler := handler.NewTransferHandler(transferService)
	auditHandler := handler.NewAuditHandler(auditService)
	notifyHandler := handler.NewNotifyHandler(mail)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	root := router.Group("")
	authHandler.RegisterRoutes(root)
	vehicleHandler.RegisterRoutes(root)
	inspectionHandler.RegisterRoutes(root)
	challanHandler.RegisterRoutes(root)
	transferHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	notifyHandler.RegisterRoutes(root)

	port := envOr("PORT", "8080")
	logrus.WithField("port", port).Info("server listening")
	if err := router.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
