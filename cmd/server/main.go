package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/relayne/postdeck/configs"
	"github.com/relayne/postdeck/internal/api/handlers"
	"github.com/relayne/postdeck/internal/api/middleware"
	"github.com/relayne/postdeck/internal/gateway"
	job "github.com/relayne/postdeck/internal/jobs"
	"github.com/relayne/postdeck/internal/queue"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	clientRepo := repository.NewClientRepository(db)
	postTargetRepo := repository.NewPostTargetRepository(db)
	platformAccountRepo := repository.NewPlatformAccountRepository(db)
	scheduledPostRepo := repository.NewScheduledPostRepository(db)
	scheduleLogRepo := repository.NewScheduleLogRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	platformGateway := gateway.NewPlatformGateway(*cfg)
	captionAssistant := gateway.NewCaptionAssistant(*cfg)

	mediaService := service.NewMediaService(*cfg)
	quotaService := service.NewQuotaService(subscriptionRepo)
	editingService := service.NewEditingService(postRepo, clientRepo)
	publishService := service.NewPublishService(*cfg, postRepo, platformAccountRepo, postTargetRepo, scheduleLogRepo, clientRepo, mediaService, platformGateway)
	postService := service.NewPostService(db, postRepo, clientRepo, postTargetRepo, platformAccountRepo, scheduledPostRepo, mediaService, quotaService, captionAssistant)
	clientService := service.NewClientService(clientRepo, quotaService)
	accountService := service.NewAccountService(*cfg, platformAccountRepo, clientRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, userRepo)
	app.Post("/login", auth.Login)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, publishService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/update", post.UpdatePost)
	api.Post("/posts/ready", post.MarkReady)
	api.Post("/posts/approve", post.ApprovePost)
	api.Post("/posts/reject", post.RejectPost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/unschedule", post.UnschedulePost)
	api.Get("/posts/scheduled", post.ListScheduled)
	api.Post("/posts/publish", post.PublishBatch)
	api.Get("/posts/publish/logs", post.PublishLogs)
	api.Post("/posts/archive", post.ArchivePost)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/posts/caption/assist", post.AssistCaption)

	editing := handlers.NewEditingHandler(editingService)
	api.Post("/posts/editing/start", editing.StartEditing)
	api.Post("/posts/editing/stop", editing.StopEditing)
	api.Get("/posts/editing/status", editing.EditingStatus)

	subscription := handlers.NewSubscriptionHandler(quotaService)
	api.Get("/subscription", subscription.GetSubscriptionInfo)
	api.Post("/quota/authorize", subscription.Authorize)

	clients := handlers.NewClientHandler(clientService)
	api.Post("/clients/create", clients.CreateClient)
	api.Get("/clients", clients.ListClients)

	accounts := handlers.NewAccountHandler(accountService)
	api.Post("/accounts/connect", accounts.ConnectAccount)
	api.Get("/accounts", accounts.ListAccounts)
	api.Post("/accounts/remove", accounts.RemoveAccount)

	// cron jobs
	reconcileJob := job.NewReconcileJob(postRepo, publishService)

	// queue
	worker := queue.NewWorker(publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", reconcileJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
