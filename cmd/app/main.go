package main

import (
	"ProctorGuard/internal/config"
	"ProctorGuard/pkg/log"
	"ProctorGuard/pkg/metrics"
	"ProctorGuard/pkg/redis"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger()
	if envErr != nil {
		if !os.IsNotExist(envErr) {
			logger.Fatalf("Error loading .env file: %v", envErr)
		}
		logger.Warn("No .env file found, using process environment")
	}

	proctorConfig, err := config.LoadProctorConfig()
	if err != nil {
		logger.Fatalf("Invalid proctoring configuration: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	redisServer := redis.New()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithMiddleware(),
		config.WithProctorEngine(proctorConfig),
		config.WithMetrics(metrics.New()),
		config.WithUtils(),
	}
	if proctorConfig.EvidenceUpload {
		options = append(options, config.WithS3Client())
	}
	if len(proctorConfig.AlertRecipients) > 0 {
		options = append(options, config.WithSmtp())
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Shutdown finished with errors: %v", err)
	}
}
