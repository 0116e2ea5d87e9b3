package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soberPathAPI/handlers"
	"soberPathAPI/internal/notification"
	"soberPathAPI/internal/workers"
	"soberPathAPI/middleware"
	"soberPathAPI/services"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	profileService      *services.ProfileService
	logService          *services.LogService
	taskService         *services.TaskService
	achievementService  *services.AchievementService
	levelService        *services.LevelService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	profileService = services.NewProfileService(dbPool)
	achievementService = services.NewAchievementService(dbPool)
	levelService = services.NewLevelService(dbPool)
	logService = services.NewLogService(dbPool, achievementService, notificationService)
	taskService = services.NewTaskService(dbPool, achievementService, notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	profileHandler := handlers.NewProfileHandler(profileService, userService)
	logHandler := handlers.NewLogHandler(logService)
	taskHandler := handlers.NewTaskHandler(taskService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	levelHandler := handlers.NewLevelHandler(levelService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()
	workers.StartReminderWorker(dbPool, notificationService)

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "soberPath-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", profileHandler.GetMe).Methods("GET")
	protected.HandleFunc("/user", profileHandler.UpdateMe).Methods("PUT")
	protected.HandleFunc("/user/delete-account", profileHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/settings", profileHandler.GetSettings).Methods("GET")
	protected.HandleFunc("/settings", profileHandler.UpdateSettings).Methods("PUT")

	protected.HandleFunc("/logs/drink", logHandler.AddDrinkLog).Methods("POST")
	protected.HandleFunc("/logs/drink", logHandler.GetDrinkLogs).Methods("GET")
	protected.HandleFunc("/logs/mood", logHandler.AddMoodLog).Methods("POST")
	protected.HandleFunc("/logs/mood", logHandler.GetMoodLogs).Methods("GET")
	protected.HandleFunc("/logs/trigger", logHandler.AddTriggerLog).Methods("POST")
	protected.HandleFunc("/logs/trigger", logHandler.GetTriggerLogs).Methods("GET")

	protected.HandleFunc("/calendar", logHandler.GetCalendar).Methods("GET")
	protected.HandleFunc("/stats", profileHandler.GetStats).Methods("GET")
	protected.HandleFunc("/stats/days", logHandler.GetDaysStats).Methods("GET")
	protected.HandleFunc("/leaderboard", profileHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/tasks", taskHandler.GetDailyTasks).Methods("GET")
	protected.HandleFunc("/tasks/{id}/complete", taskHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/tasks/{id}/complete", taskHandler.UncompleteTask).Methods("DELETE")

	protected.HandleFunc("/achievements", achievementHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/levels", levelHandler.GetLevels).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
