package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"compliance-service/internal/config"
	"compliance-service/internal/database/minio"
	"compliance-service/internal/database/postgres"
	"compliance-service/internal/database/redis"
	"compliance-service/internal/event"
	"compliance-service/internal/forestwatch"
	"compliance-service/internal/gateway"
	"compliance-service/internal/handlers"
	"compliance-service/internal/payments"
	"compliance-service/internal/repository"
	"compliance-service/internal/services"
	"compliance-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/compliance", "log", "compliance_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.New()

	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}
	defer minioClient.Close()

	// RabbitMQ is optional; terminal payment events are dropped when the
	// broker is down, the database record is still authoritative.
	var publisher *event.PaymentPublisher
	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Printf("Failed to connect to RabbitMQ, payment events disabled: %v", err)
	} else {
		defer rabbitConn.Close()
		publisher = event.NewPaymentPublisher(rabbitConn)
	}

	txRepo := repository.NewTransactionRepository(db)
	featureRepo := repository.NewFeatureRepository(db)
	reportRepo := repository.NewReportRepository(db)

	forestClient := forestwatch.NewClient(cfg.ForestWatchCfg)
	momoClient := gateway.NewMobileMoneyClient(cfg.MobileMoneyCfg)
	dpoClient := gateway.NewDPOClient(cfg.DPOCfg)
	contextStore := payments.NewRedisContextStore(redisClient.GetClient(), 0)

	exportService := services.NewReportExportService(reportRepo, minioClient)
	reportService := services.NewReportService(reportRepo, txRepo, forestClient, exportService)
	featureService := services.NewFeatureService(featureRepo)
	paymentService := services.NewPaymentService(
		cfg.PaymentCfg,
		txRepo,
		featureRepo,
		momoClient,
		dpoClient,
		contextStore,
		publisher,
		reportService,
	)
	defer paymentService.Shutdown()

	sweeper := worker.NewStaleTransactionSweeper(txRepo, 10*time.Minute, 6*time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Compliance service is healthy")
	})

	handlers.NewPaymentHandler(paymentService).Register(app)
	handlers.NewReportHandler(reportService, exportService).Register(app)
	handlers.NewFeatureHandler(featureService).Register(app)

	log.Printf("Compliance service listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
