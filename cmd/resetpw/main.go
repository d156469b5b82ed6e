package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"greektutor/internal/config"
	"greektutor/internal/credentials"
	"greektutor/internal/database"
	"greektutor/internal/security"
	"greektutor/internal/service"
)

// resetpw replaces a user's password hash out of band. There is no
// self-service reset flow; an operator runs this on the host.
func main() {
	username := flag.String("username", "", "Username to reset (required)")
	password := flag.String("password", "", "New password (prompted when omitted)")
	notify := flag.Bool("notify", true, "Email the user that their password changed")
	flag.Parse()

	if *username == "" {
		fmt.Println("Error: -username flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseType, database.DialectConfig{
		Path: cfg.UsersDBPath,
		URL:  cfg.UsersDBURL,
	})
	if err != nil {
		log.Fatalf("Failed to open users store: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(filepath.Join(cfg.MigrationsPath, "users")); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := credentials.NewSQLStore(db)

	user, err := store.Lookup(*username)
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}
	if user == nil {
		log.Fatalf("No such user: %s", *username)
	}

	newPassword := *password
	if newPassword == "" {
		newPassword, err = promptPassword()
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
	}
	if len(newPassword) < 8 {
		log.Fatalf("Password must be at least 8 characters")
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	if err := store.SetPasswordHash(user.Username, hash); err != nil {
		log.Fatalf("Failed to update password: %v", err)
	}

	log.Printf("Password updated for %s", user.Username)

	if *notify && user.Email != "" {
		emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
		if err != nil {
			log.Fatalf("Failed to configure email service: %v", err)
		}
		if !emailService.IsEnabled() {
			log.Println("Email service disabled, skipping notification")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := emailService.SendPasswordChangedEmail(ctx, user.Email, user.Username); err != nil {
			log.Printf("Warning: notification email failed: %v", err)
		} else {
			log.Printf("Notification sent to %s", user.Email)
		}
	}
}

// promptPassword reads the new password twice without echo.
func promptPassword() (string, error) {
	fmt.Print("New password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
