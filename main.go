package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flexkazi/freelancer-service/handlers"
	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/middleware"
	"flexkazi/freelancer-service/repositories"
	"flexkazi/freelancer-service/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logging.InitLogger()

	if err := godotenv.Load(); err != nil {
		logging.Logger.Info("Event ID: ENV_FILE_MISSING, Description: No .env file found, using environment variables.")
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal(err)
	}
	logging.Logger.Info("Event ID: MONGO_CONNECTED, Description: Connected to MongoDB.")
	defer client.Disconnect(context.Background())

	db := client.Database("flexkazi")

	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)
	fileRepo, err := repositories.NewFileRepository(db)
	if err != nil {
		log.Fatal(err)
	}

	notificationRepo, err := repositories.NewNotificationRepo()
	if err != nil {
		log.Fatal(err)
	}
	defer notificationRepo.CloseSession()
	notificationRepo.CreateTable()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "NotificationFeed",
		MaxRequests: 3,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logging.Logger.Warnf("Event ID: BREAKER_STATE_CHANGE, Description: Circuit breaker %s moved from %s to %s.", name, from.String(), to.String())
		},
	})
	notificationService := services.NewNotificationService(notificationRepo, breaker)

	blackList, err := services.LoadBlackList("blacklist.txt")
	if err != nil {
		logging.Logger.Warnf("Event ID: BLACKLIST_LOAD_FAILED, Description: Could not load password blacklist: %v", err)
		blackList = map[string]bool{}
	}

	jwtService := &services.JWTService{}
	userService := services.NewUserService(userRepo, taskRepo, jwtService, blackList)
	taskService := services.NewTaskService(taskRepo, userRepo, fileRepo, notificationService)

	syncService := services.NewSyncService(db.Collection("tasks"), taskService)
	if err := syncService.Start(context.Background()); err != nil {
		logging.Logger.Warnf("Event ID: SYNC_START_FAILED, Description: Realtime sync unavailable: %v", err)
	}

	authHandler := handlers.NewAuthHandler(userService)
	profileHandler := handlers.NewProfileHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, fileRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	router := mux.NewRouter()

	router.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/confirm", authHandler.ConfirmEmail).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/forgot-password", authHandler.ForgotPassword).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/reset-password", authHandler.ResetPassword).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/site-stats", profileHandler.GetSiteStats).Methods(http.MethodGet, http.MethodOptions)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.JWTAuthMiddleware)
	protected.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods(http.MethodPost)
	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/profile/personal", profileHandler.UpdatePersonal).Methods(http.MethodPut)
	protected.HandleFunc("/profile/professional", profileHandler.UpdateProfessional).Methods(http.MethodPut)
	protected.HandleFunc("/profile/settings", profileHandler.UpdateSettings).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/dashboard", taskHandler.GetDashboard).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/available", taskHandler.GetAvailableTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}/accept", taskHandler.AcceptTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{id}/open", taskHandler.OpenWorkspace).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{id}/submit", taskHandler.SubmitWork).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{id}/review", taskHandler.ReviewTask).Methods(http.MethodPost)
	protected.HandleFunc("/files/{fileId}", taskHandler.DownloadFile).Methods(http.MethodGet)
	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/read", notificationHandler.MarkAsRead).Methods(http.MethodPost)

	// Hourly sweep of signups whose verification code expired.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				userService.DeleteExpiredUnverifiedUsers(sweepCtx)
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      enableCORS(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_STARTED, Description: Server is running on port %s.", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Event ID: SERVER_STOPPING, Description: Shutdown signal received.")
	stopSweep()
	syncService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: Graceful shutdown failed: %v", err)
	}
}

// CORS Middleware
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
