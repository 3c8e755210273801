package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"edubot-quiz/internal/app"
	"edubot-quiz/internal/config"
	"edubot-quiz/internal/flavor"
	"edubot-quiz/internal/infra/logger"
	"edubot-quiz/internal/infra/memory"
	"edubot-quiz/internal/infra/postgres"
	"edubot-quiz/internal/infra/rabbitmq"
	infraredis "edubot-quiz/internal/infra/redis"
	transport "edubot-quiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds whichever stores the config enables; nil fields fall back to memory.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	store *postgres.ResultStore
	close []func()
}

func (b *backends) shutdown() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

func connect(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.close = append(b.close, func() { b.redis.Close() })
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			b.shutdown()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.shutdown()
			return nil, err
		}
		b.pool = pool
		b.close = append(b.close, pool.Close)

		db := postgres.OpenDB(cfg.Postgres.URL)
		b.store = postgres.NewResultStore(db)
		b.close = append(b.close, func() { db.Close() })
	}
	return b, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.shutdown()

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes()...)
	var (
		results   flavor.ResultStore = memory.NewResultStore()
		purchases flavor.Purchases   = memory.NewPurchases()
	)
	if b.pool != nil {
		loader = postgres.NewQuizLoader(b.pool)
		results = b.store
		purchases = postgres.NewPurchases(b.pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		bank  flavor.QuestionBank
		guard app.OwnerGuard
	)
	if b.redis != nil {
		bank = infraredis.NewQuizRepository(b.redis, loader, quizTTL)
		guard = infraredis.NewOwnerGuard(b.redis)
	} else {
		bank = memory.NewQuizRepository(loader, quizTTL)
		guard = memory.NewOwnerGuard()
	}

	publisher, err := rabbitmq.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	hub := transport.NewHub(log)
	service := app.NewQuizService(app.Options{
		Registry:         app.NewRegistry(cfg.Engine.CompletedCap),
		Messenger:        hub,
		Guard:            guard,
		Publisher:        publisher,
		Logger:           log,
		DefaultTimeLimit: config.TTLDuration(cfg.Engine.DefaultTimeLimit, app.DefaultTimeLimit),
		GuardTTL:         config.TTLDuration(cfg.Engine.SessionGuardTTL, app.DefaultGuardTTL),
	})
	strategies := flavor.NewSet(bank, results, purchases, cfg.Engine.HomeworkReward)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(transport.NewWSHandler(service, hub, strategies, log)),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return serve(ctx, server, config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second), log)
}

func serve(ctx context.Context, server *http.Server, grace time.Duration, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz engine", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
