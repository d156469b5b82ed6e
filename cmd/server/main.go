package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"greektutor/internal/agent"
	"greektutor/internal/bible"
	"greektutor/internal/config"
	"greektutor/internal/credentials"
	"greektutor/internal/database"
	"greektutor/internal/handlers"
	"greektutor/internal/llm"
	"greektutor/internal/security"
	"greektutor/internal/service"
	"greektutor/internal/tutorapi"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// The web UI owns only the users store; everything else lives behind
	// the data API.
	db, err := openUsersStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open users store: %v", err)
	}
	defer db.Close()

	log.Printf("Users store ready (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(filepath.Join(cfg.MigrationsPath, "users")); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	corpus, err := bible.LoadCorpus(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}

	memory, err := agent.NewMemoryStore(filepath.Join(cfg.DataDir, "memory"))
	if err != nil {
		log.Fatalf("Failed to open memory store: %v", err)
	}

	completer, err := llm.NewCompleter(cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		log.Fatalf("Failed to configure LLM provider: %v", err)
	}

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("Failed to configure email service: %v", err)
	}

	// Initialize services
	api := tutorapi.NewClient(cfg.APIURL, cfg.APISecret, "web")
	authService := service.NewAuthService(credentials.NewSQLStore(db), cfg.SessionDuration)

	csrfSecret := cfg.CSRFSecret
	if csrfSecret == "" {
		// Tokens from before a restart stop validating, which only forces
		// a page reload.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret = hex.EncodeToString(buf)
		log.Println("CSRF_SECRET not set, using a per-process secret")
	}
	csrf := security.NewCSRFGenerator(csrfSecret)
	limiter := security.NewRateLimiter(10, time.Minute)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, csrf, limiter)
	authHandler := handlers.NewAuthHandler(authService, emailService, templates)
	dashboardHandler := handlers.NewDashboardHandler(api, csrf, templates)
	tutorHandler := handlers.NewTutorHandler(api, completer, corpus, memory, csrf, templates)

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	// Public routes
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /login", authHandler.ShowLogin)
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("GET /register", authHandler.ShowRegister)
	mux.HandleFunc("POST /register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /logout", authHandler.Logout)

	// Dashboard routes
	mux.HandleFunc("GET /dashboard", middleware.RequireAuth(dashboardHandler.Dashboard))
	mux.HandleFunc("POST /dashboard/level", middleware.RequireAuth(middleware.CSRFProtect(dashboardHandler.SetLevel)))
	mux.HandleFunc("POST /dashboard/vocab-sets/{id}/delete", middleware.RequireAuth(middleware.CSRFProtect(dashboardHandler.DeleteVocabSet)))

	// Tutor routes
	mux.HandleFunc("GET /tutor", middleware.RequireAuth(tutorHandler.Show))
	mux.HandleFunc("POST /tutor/chat", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.Chat)))
	mux.HandleFunc("POST /tutor/sessions/new", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.NewSession)))
	mux.HandleFunc("POST /tutor/sessions/{id}/switch", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.SwitchSession)))
	mux.HandleFunc("POST /tutor/sessions/{id}/rename", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.RenameSession)))
	mux.HandleFunc("POST /tutor/sessions/{id}/delete", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.DeleteSession)))
	mux.HandleFunc("POST /tutor/sessions/{id}/summarize", middleware.RequireAuth(middleware.CSRFProtect(tutorHandler.SummarizeSession)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// openUsersStore opens the users database for the configured dialect.
func openUsersStore(cfg *config.Config) (*database.DB, error) {
	return database.Open(cfg.DatabaseType, database.DialectConfig{
		Path: cfg.UsersDBPath,
		URL:  cfg.UsersDBURL,
	})
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(filepath.Join(templatesPath, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}
	}
}
