package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/claimdesk/claims-api/internal/config"
	"github.com/claimdesk/claims-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/claimdesk/claims-api/internal/infrastructure/jwt"
	s3infra "github.com/claimdesk/claims-api/internal/infrastructure/s3"
	"github.com/claimdesk/claims-api/internal/infrastructure/smtp"
	"github.com/claimdesk/claims-api/internal/infrastructure/sns"
	"github.com/claimdesk/claims-api/internal/pkg/ratelimit"
	transporthttp "github.com/claimdesk/claims-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// JWT provider (optional; graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for proof and media files.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer for verification codes.
	mailer := smtp.NewMailer(cfg)

	// SNS topic for admin alerts (optional; graceful fallback).
	var publisher sns.TopicPublisher
	if cfg.SNSAdminTopicARN != "" {
		if p, err := sns.NewPublisher(cfg); err == nil {
			publisher = p
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	// Shared per-user attempt limiter with a background janitor for stale keys.
	limiter := ratelimit.NewMemoryLimiter()
	limiter.StartJanitor(ctx, 5*time.Minute, 24*time.Hour)

	deps := &transporthttp.Deps{
		ClaimRepo:        dynamo.NewClaimRepo(dynamoClient, cfg.DynamoTables.Claims),
		BusinessRepo:     dynamo.NewBusinessRepo(dynamoClient, cfg.DynamoTables.Businesses),
		CodeRepo:         dynamo.NewCodeRepo(dynamoClient, cfg.DynamoTables.VerificationCodes),
		ProfileRepo:      dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles),
		AssignmentRepo:   dynamo.NewAssignmentRepo(dynamoClient, cfg.DynamoTables.UserBusinesses),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		Publisher:        publisher,
		JWTProvider:      jwtProvider,
		Limiter:          limiter,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
