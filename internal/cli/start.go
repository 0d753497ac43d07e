package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/config"
	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/infra/memory"
	"cx-lms-service/internal/infra/postgres"
	infraredis "cx-lms-service/internal/infra/redis"
	"cx-lms-service/internal/logging"
	"cx-lms-service/internal/metrics"
	transport "cx-lms-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the LMS server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the shared connections; any of them may be nil.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	db    *bun.DB
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.db = postgres.OpenBun(cfg.Postgres.URL)
	}
	return b, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.ModulesPath != "" {
		return catalog.LoadFile(cfg.Catalog.ModulesPath)
	}
	return catalog.Default()
}

func loadQuestions(cfg config.Config) ([]domain.QuizQuestion, error) {
	if cfg.Catalog.QuestionsPath != "" {
		return catalog.LoadQuestionsFile(cfg.Catalog.QuestionsPath)
	}
	return catalog.DefaultQuestions()
}

func questionBank(cfg config.Config, b *backends) (app.QuestionBank, error) {
	var loader memory.QuestionLoader
	if b.pool != nil {
		loader = postgres.NewQuestionLoader(b.pool)
	} else {
		questions, err := loadQuestions(cfg)
		if err != nil {
			return nil, err
		}
		loader = memory.NewStaticQuestionLoader(questions)
	}

	ttl := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if b.redis != nil {
		return infraredis.NewQuestionRepository(b.redis, loader, ttl), nil
	}
	return memory.NewQuestionRepository(loader, ttl), nil
}

func progressRepository(cfg config.Config, b *backends) (app.ProgressRepository, error) {
	switch cfg.Progress.Backend {
	case config.BackendMemory:
		return memory.NewProgressRepository(), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, errors.New("progress backend redis needs redis.addr")
		}
		return infraredis.NewProgressRepository(b.redis), nil
	case config.BackendPostgres:
		if b.db == nil {
			return nil, errors.New("progress backend postgres needs postgres.url")
		}
		return postgres.NewProgressRepository(b.db), nil
	}
	return nil, errors.New("unknown progress backend " + cfg.Progress.Backend)
}

func offlineStore(cfg config.Config, b *backends) (app.OfflineStore, error) {
	switch cfg.Offline.Backend {
	case config.BackendMemory:
		return memory.NewOfflineStore(), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, errors.New("offline backend redis needs redis.addr")
		}
		return infraredis.NewOfflineStore(b.redis), nil
	case config.BackendPostgres:
		if b.db == nil {
			return nil, errors.New("offline backend postgres needs postgres.url")
		}
		return postgres.NewOfflineStore(b.db), nil
	}
	return nil, errors.New("unknown offline backend " + cfg.Offline.Backend)
}

func sessionStore(cfg config.Config, b *backends) app.SessionRepository {
	if b.redis != nil {
		return infraredis.NewSessionStore(b.redis, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}

func buildHandler(cfg config.Config, b *backends, logger *zap.Logger) (http.Handler, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	bank, err := questionBank(cfg, b)
	if err != nil {
		return nil, err
	}
	progressRepo, err := progressRepository(cfg, b)
	if err != nil {
		return nil, err
	}
	offline, err := offlineStore(cfg, b)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	progress := app.NewProgressService(progressRepo, cat, app.ProgressOptions{
		Logger:  logger.Named("progress"),
		Metrics: m,
	})
	quiz := app.NewQuizService(sessionStore(cfg, b), bank, progress, app.SessionOptions{
		TimeLimit:     cfg.QuizTimeLimit(),
		QuestionCount: cfg.Quiz.QuestionCount,
		TickInterval:  cfg.QuizTick(),
		Logger:        logger.Named("quiz"),
		Metrics:       m,
	})
	manager := app.NewOfflineManager(offline, app.OfflineOptions{
		Budget:  cfg.Offline.BudgetBytes,
		Logger:  logger.Named("offline"),
		Metrics: m,
	})
	api := transport.NewAPI(cat, progress, manager, transport.APIOptions{
		VerifyBaseURL: cfg.Certificates.VerifyBaseURL,
		Logger:        logger.Named("api"),
	})

	logger.Info("service wired",
		zap.Int("modules", len(cat.Modules())),
		zap.String("progress_backend", cfg.Progress.Backend),
		zap.String("offline_backend", cfg.Offline.Backend),
		zap.Bool("redis", b.redis != nil),
		zap.Bool("postgres", b.pool != nil),
	)
	return transport.NewRouter(transport.NewWSHandler(quiz, logger.Named("ws")), api, m), nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	handler, err := buildHandler(cfg, b, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting lms service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
