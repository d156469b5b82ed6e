package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"greektutor/internal/config"
	"greektutor/internal/credentials"
	"greektutor/internal/database"
	"greektutor/internal/httpapi"
	"greektutor/internal/repository"
)

func main() {
	cfg := config.Load()

	// Three independent stores. The vocab store holds per-word progress;
	// the concepts store also carries interests, set logs and the gloss
	// cache.
	users, err := openStore(cfg, cfg.UsersDBPath, cfg.UsersDBURL, "users")
	if err != nil {
		log.Fatalf("Failed to open users store: %v", err)
	}
	defer users.Close()

	vocab, err := openStore(cfg, cfg.VocabDBPath, cfg.VocabDBURL, "vocab")
	if err != nil {
		log.Fatalf("Failed to open vocab store: %v", err)
	}
	defer vocab.Close()

	concepts, err := openStore(cfg, cfg.ConceptsDBPath, cfg.ConceptsDBURL, "concepts")
	if err != nil {
		log.Fatalf("Failed to open concepts store: %v", err)
	}
	defer concepts.Close()

	for _, store := range []struct {
		db   *database.DB
		name string
	}{
		{users, "users"},
		{vocab, "vocab"},
		{concepts, "concepts"},
	} {
		if err := store.db.RunMigrations(filepath.Join(cfg.MigrationsPath, store.name)); err != nil {
			log.Fatalf("Failed to run %s migrations: %v", store.name, err)
		}
	}

	log.Println("Migrations completed successfully")

	if cfg.APISecret == "" {
		log.Println("API_SECRET not set, service token auth disabled")
	}

	server := httpapi.NewServer(
		credentials.NewSQLStore(users),
		repository.NewVocabRepository(vocab),
		repository.NewConceptRepository(concepts),
		repository.NewInterestRepository(concepts),
		repository.NewVocabSetRepository(concepts),
		repository.NewGlossRepository(concepts),
		cfg.APISecret,
	)

	srv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Data API starting on %s", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Data API failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Data API shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// openStore opens one store with the configured dialect. The path applies to
// sqlite, the URL to postgres and mysql.
func openStore(cfg *config.Config, path, url, name string) (*database.DB, error) {
	db, err := database.Open(cfg.DatabaseType, database.DialectConfig{Path: path, URL: url})
	if err != nil {
		return nil, err
	}
	log.Printf("Store %s ready (type: %s)", name, cfg.DatabaseType)
	return db, nil
}
