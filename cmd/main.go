package main

import (
	"fmt"
	"os"

	"github.com/fitlink/fitlink-backend/internal/clients/redis"
	"github.com/fitlink/fitlink-backend/internal/clients/whatsapp"
	"github.com/fitlink/fitlink-backend/internal/db"
	"github.com/fitlink/fitlink-backend/internal/handlers"
	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/middleware"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/server"
	"github.com/fitlink/fitlink-backend/internal/services"
	"github.com/fitlink/fitlink-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	webhookToken := utils.GetEnv("DELIVERY_WEBHOOK_TOKEN", "", log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)
	allowOrigins := server.SplitOrigins(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log))

	// Database
	databaseService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err = databaseService.AutoMigrateAll(); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	theDB := databaseService.DB()

	// Repos
	log.Info("Setting up repos...")
	orgRepo := repos.NewOrganizationRepo(theDB, log)
	studentRepo := repos.NewStudentRepo(theDB, log)
	eventRepo := repos.NewAnchorEventRepo(theDB, log)
	templateRepo := repos.NewTemplateRepo(theDB, log)
	taskRepo := repos.NewTaskRepo(theDB, log)
	logRepo := repos.NewLogRepo(theDB, log)

	// Clients
	var bus services.LifecycleEventBus
	if taskBus, err := redis.NewTaskBus(log); err != nil {
		log.Warn("Task event bus unavailable, transitions will not be broadcast", "error", err)
	} else {
		bus = taskBus
		defer taskBus.Close()
	}

	var sender services.MessageSender
	if whatsappClient, err := whatsapp.NewFromEnv(log); err != nil {
		log.Warn("WhatsApp gateway unavailable, dispatch disabled", "error", err)
	} else {
		sender = whatsappClient
	}

	// Services
	log.Info("Setting up services...")
	codeService := services.NewTemplateCodeService(log, templateRepo)
	templateService := services.NewTemplateService(theDB, log, templateRepo, codeService)
	generatorService := services.NewTaskGeneratorService(theDB, log, templateRepo, studentRepo, eventRepo, taskRepo, logRepo)
	lifecycleService := services.NewTaskLifecycleService(theDB, log, taskRepo, logRepo, bus)
	undoService := services.NewUndoService(theDB, log, taskRepo, logRepo, bus)
	taskService := services.NewTaskService(theDB, log, orgRepo, taskRepo, studentRepo, templateRepo, sender)
	logService := services.NewLogService(theDB, log, logRepo)

	// Handlers
	templateHandler := handlers.NewTemplateHandler(templateService)
	taskHandler := handlers.NewTaskHandler(taskService, generatorService, lifecycleService, undoService, webhookToken)
	logHandler := handlers.NewLogHandler(logService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		TemplateHandler: templateHandler,
		TaskHandler:     taskHandler,
		LogHandler:      logHandler,
		AllowOrigins:    allowOrigins,
	})

	log.Info("Starting server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
