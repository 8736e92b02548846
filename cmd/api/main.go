package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvson/creatorstudio/internal/api"
	"github.com/nvson/creatorstudio/internal/config"
	"github.com/nvson/creatorstudio/internal/services"
)

func main() {
	log.Println("Starting Creator Studio API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize services
	creds := services.NewCredentialState()
	geminiSvc := services.NewGeminiService(cfg.GeminiKey, cfg.DefaultLocale, creds)
	veoSvc := services.NewVeoService(cfg.GeminiKey, cfg.VeoModel, cfg.DefaultLocale, cfg.VeoPollInterval, creds)
	log.Printf("Veo video generation enabled (model: %s)", cfg.VeoModel)

	// OpenAI is an optional alternate text provider for the script writer
	var openaiSvc services.TextProvider
	if cfg.OpenAIKey != "" {
		openaiSvc = services.NewOpenAIService(cfg.OpenAIKey, cfg.DefaultLocale)
		log.Println("OpenAI script provider enabled")
	}

	// Create API handler
	handler := api.NewHandler(cfg, geminiSvc, openaiSvc, veoSvc, creds)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
