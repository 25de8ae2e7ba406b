package chatbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"

	"github.com/kart-io/providentia/internal/chatbot/biz"
	"github.com/kart-io/providentia/internal/chatbot/handler"
	"github.com/kart-io/providentia/internal/chatbot/router"
	"github.com/kart-io/providentia/internal/chatbot/store"
	"github.com/kart-io/providentia/internal/pkg/middleware"
	"github.com/kart-io/providentia/pkg/component/milvus"
	"github.com/kart-io/providentia/pkg/llm"

	// Register the LLM providers.
	_ "github.com/kart-io/providentia/pkg/llm/gemini"
	_ "github.com/kart-io/providentia/pkg/llm/huggingface"
)

const (
	// Name is the name of the application.
	Name = "providentia"

	commandDesc = `Providentia EPFO Chat Service

AI-powered backend for the EPFO (Employees' Provident Fund Organisation)
guidance chatbot.

This server provides:
  - Retrieval-augmented question answering over an indexed EPFO corpus
  - Per-user chat history and usage statistics
  - JWT-authenticated, rate-limited HTTP API`
)

// NewApp creates the root command for the chat server.
func NewApp() *cobra.Command {
	opts := NewServerOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          Name,
		Short:        "Providentia EPFO chat service",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			version.PrintAndExitIfRequested()
			if err := loadConfig(cmd, configFile, opts); err != nil {
				return err
			}
			if errs := opts.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid configuration: %v", errs)
			}
			return run(opts)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	opts.AddFlags(cmd.Flags())
	version.AddFlags(cmd.Flags())

	return cmd
}

// loadConfig merges, in increasing precedence: config file, environment
// variables, command-line flags. A .env file, when present, seeds the
// environment for local development.
func loadConfig(cmd *cobra.Command, configFile string, opts *ServerOptions) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnw("failed to load .env file", "error", err.Error())
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(Name)
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/" + Name)
	}

	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	return v.Unmarshal(opts)
}

// run wires the dependencies and serves HTTP until signalled to stop.
func run(opts *ServerOptions) error {
	if err := opts.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := setupSignalContext()

	ver := version.Get().GitVersion
	logger.Infow("starting server", "name", Name, "version", ver, "addr", opts.Addr)

	milvusClient, err := milvus.New(opts.MilvusOptions)
	if err != nil {
		return fmt.Errorf("failed to create milvus client: %w", err)
	}
	defer func() {
		if err := milvusClient.Close(context.Background()); err != nil {
			logger.Warnw("failed to close milvus client", "error", err.Error())
		}
	}()

	embedder, err := llm.NewEmbeddingProvider(opts.EmbeddingOptions.Provider, opts.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	generator, err := llm.NewGenerationProvider(opts.GenerationOptions.Provider, opts.GenerationOptions.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create generation provider: %w", err)
	}

	factory, err := store.GetFactory(opts.MySQLOptions)
	if err != nil {
		return fmt.Errorf("failed to create store factory: %w", err)
	}
	defer func() {
		if err := factory.Close(); err != nil {
			logger.Warnw("failed to close store factory", "error", err.Error())
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         opts.RedisOptions.Addr(),
		Password:     opts.RedisOptions.Password,
		DB:           opts.RedisOptions.Database,
		MaxRetries:   opts.RedisOptions.MaxRetries,
		PoolSize:     opts.RedisOptions.PoolSize,
		MinIdleConns: opts.RedisOptions.MinIdleConns,
		DialTimeout:  opts.RedisOptions.DialTimeout,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so a dead Redis degrades rather than stops.
		logger.Warnw("redis unreachable, rate limiting degraded", "error", err.Error())
	}

	vectorStore := store.NewMilvusVectorStore(milvusClient)
	retriever := biz.NewRetriever(embedder, vectorStore, &biz.RetrieverConfig{
		Collection: opts.Collection,
		TopK:       opts.TopK,
	})
	chatService := biz.NewChatService(retriever, generator, factory.Interactions())

	chatHandler := handler.NewChatHandler(chatService)
	healthHandler := handler.NewHealthHandler(ver, map[string]handler.HealthCheck{
		"mysql": factory.Ping,
		"milvus": func(ctx context.Context) error {
			_, err := vectorStore.Count(ctx, opts.Collection)
			return err
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	router.Register(engine, chatHandler, healthHandler, router.Middleware{
		Auth:      middleware.Auth(opts.JWTOptions),
		ChatLimit: middleware.RateLimit(redisClient, "chat", opts.ChatRateLimit, time.Minute),
		StatLimit: middleware.RateLimit(redisClient, "stats", opts.StatsRateLimit, time.Minute),
	})

	server := &http.Server{
		Addr:    opts.Addr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// setupSignalContext returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
