// Package main is the entry point of the recommendation chat server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinebot-go/internal/catalog"
	"cinebot-go/internal/config"
	"cinebot-go/internal/handler"
	"cinebot-go/internal/middleware"
	"cinebot-go/internal/model"
	"cinebot-go/internal/presenter"
	"cinebot-go/internal/repository"
	"cinebot-go/internal/service"
	"cinebot-go/pkg/database"
	"cinebot-go/pkg/embedding"
	"cinebot-go/pkg/kafka"
	"cinebot-go/pkg/log"
	"cinebot-go/pkg/tmdb"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. configuration
	config.Init(*configPath)
	cfg := config.Conf

	// 2. logging
	if err := log.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("logger initialized")

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. catalog and external clients
	cat, err := catalog.Load(genreEntries(cfg.Genres))
	if err != nil {
		log.Fatal("invalid genre catalog", err)
	}
	embeddingClient := embedding.NewClient(cfg.Embedding)
	tmdbClient, err := tmdb.New(cfg.TMDb)
	if err != nil {
		log.Fatal("failed to create tmdb client", err)
	}

	// 4. session store
	sessionRepo, err := newSessionRepository(rootCtx, cfg)
	if err != nil {
		log.Fatal("failed to create session store", err)
	}
	sessions := service.NewSessionManager(sessionRepo)
	sessions.StartJanitor(rootCtx, cfg.Session.SweepInterval)

	// 5. services
	convOpts := service.OptionsFromConfig(cfg.Conversation)
	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(cfg.Kafka)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Errorf("failed to close kafka publisher: %v", err)
			}
		}()
		convOpts.Events = publisher
	}
	classifier := service.NewGenreClassifier(embeddingClient, cat)
	recommender := service.NewRecommendationService(tmdbClient, cfg.TMDb.GenreCacheTTL)
	conversationService := service.NewConversationService(
		sessions,
		classifier,
		recommender,
		presenter.New(cfg.TMDb.ImageBaseURL, cfg.TMDb.WatchBaseURL, cfg.TMDb.Locale),
		convOpts,
	)

	// anchors and the genre map are retried lazily on the first message if this fails
	go func() {
		warmCtx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
		defer cancel()
		if err := classifier.Warmup(warmCtx); err != nil {
			log.Warnf("genre classifier warmup failed: %v", err)
		}
		if err := recommender.Refresh(warmCtx); err != nil {
			log.Warnf("provider genre map preload failed: %v", err)
		}
	}()

	// 6. router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.Server.CORSOrigins))

	chatHandler := handler.NewChatHandler(conversationService, middleware.AllowedOrigin(cfg.Server.CORSOrigins))
	sessionHandler := handler.NewSessionHandler(conversationService, cat)

	r.POST("/chat", chatHandler.Chat)
	r.GET("/chat/ws", chatHandler.HandleWS)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.GET("/genres", sessionHandler.ListGenres)
		apiV1.GET("/sessions/:user", sessionHandler.GetSession)
		apiV1.DELETE("/sessions/:user", sessionHandler.ResetSession)
	}

	// 7. serve with graceful shutdown
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}
	log.Info("server stopped")
}

func newSessionRepository(ctx context.Context, cfg config.Config) (repository.SessionRepository, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisSessionRepository(rdb, cfg.Session.IdleTimeout), nil
	default:
		return repository.NewMemorySessionRepository(cfg.Session.IdleTimeout), nil
	}
}

func genreEntries(genres []config.GenreConfig) []model.GenreCatalogEntry {
	entries := make([]model.GenreCatalogEntry, 0, len(genres))
	for _, g := range genres {
		entries = append(entries, model.GenreCatalogEntry{Name: g.Name, Description: g.Description})
	}
	return entries
}
