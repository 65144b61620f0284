package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/ai"
	"github.com/xxxsen/repoinsight/internal/config"
	"github.com/xxxsen/repoinsight/internal/embedcache"
	"github.com/xxxsen/repoinsight/internal/handler"
	"github.com/xxxsen/repoinsight/internal/job"
	"github.com/xxxsen/repoinsight/internal/middleware"
	"github.com/xxxsen/repoinsight/internal/queue"
	"github.com/xxxsen/repoinsight/internal/repodata"
	"github.com/xxxsen/repoinsight/internal/retriever"
	"github.com/xxxsen/repoinsight/internal/schedule"
	"github.com/xxxsen/repoinsight/internal/service"
	"github.com/xxxsen/repoinsight/internal/session"
	"github.com/xxxsen/repoinsight/internal/vectorstore"
	"github.com/xxxsen/repoinsight/internal/worker"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "repoinsight",
		Short: "repository insight chat backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run repoinsight server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Queue.Backend == config.BackendRedis || cfg.Session.Backend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case config.BackendRedis:
		sessions = session.NewRedisStore(redisClient)
	default:
		sessions = session.NewMemoryStore()
	}

	var q queue.Queue
	switch cfg.Queue.Backend {
	case config.BackendRedis:
		// Broker connectivity failures are fatal at startup.
		rq, err := queue.NewRedisQueue(redisClient, time.Duration(cfg.Queue.PollTimeoutSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("init queue: %w", err)
		}
		q = rq
	default:
		q = queue.NewMemoryQueue()
	}

	var vectors vectorstore.Store
	switch cfg.VectorDB.Backend {
	case config.BackendPostgres:
		pg, err := vectorstore.Open(cfg.VectorDB.DSN)
		if err != nil {
			return fmt.Errorf("init vector store: %w", err)
		}
		defer pg.Close()
		vectors = pg
	default:
		vectors = vectorstore.NewMemoryStore()
	}

	generator, err := buildGenerator(cfg.AI.Generate)
	if err != nil {
		return fmt.Errorf("init generation providers: %w", err)
	}
	embedder, err := buildEmbedder(cfg.AI.Embed)
	if err != nil {
		return fmt.Errorf("init embedding providers: %w", err)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLMinutes)*time.Minute,
	)

	chat := service.NewChatService(
		sessions,
		vectors,
		retriever.New(vectors, cfg.VectorDB.NativeSearch),
		embedder,
		generator,
		repodata.NewDirLoader(cfg.Chat.RepoDataDir),
		service.ChatServiceConfig{
			ChunkSize: cfg.Chat.ChunkSize,
			TopK:      cfg.Chat.TopK,
		},
	)

	go func() {
		if err := worker.New(q, chat).Run(ctx); err != nil {
			logutil.GetLogger(ctx).Error("worker stopped", zap.Error(err))
			stop()
		}
	}()

	sched := schedule.NewCronScheduler()
	if cfg.Session.IdleTTLHours > 0 {
		cleanup := job.NewSessionCleanupJob(sessions, time.Duration(cfg.Session.IdleTTLHours)*time.Hour)
		if err := sched.AddJob(cleanup, cfg.Session.CleanupCron); err != nil {
			return fmt.Errorf("schedule session cleanup: %w", err)
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	deps := handler.RouterDeps{
		Chat:   handler.NewChatHandler(chat),
		WS:     handler.NewWSHandler(q),
		Health: handler.NewHealthHandler(q),
	}
	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.Int("port", cfg.Port))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func buildGenerator(items []config.ProviderConfig) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(items))
	for _, item := range items {
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      item.Provider,
			Generator: ai.NewGenerator(provider, item.Model),
		})
	}
	gen := ai.NewGroupGenerator(entries)
	if gen == nil {
		return nil, fmt.Errorf("no generation provider configured")
	}
	return gen, nil
}

func buildEmbedder(items []config.ProviderConfig) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, len(items))
	for _, item := range items {
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     item.Provider,
			Embedder: ai.NewEmbedder(provider, item.Model),
		})
	}
	emb := ai.NewGroupEmbedder(entries)
	if emb == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	return emb, nil
}
