package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"edubot-quiz/internal/app"
	"edubot-quiz/internal/domain"
	"edubot-quiz/internal/flavor"
	"edubot-quiz/internal/infra/postgres"
	pgmigrations "edubot-quiz/internal/infra/postgres/migrations"
	infraredis "edubot-quiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
)

// recordingMessenger captures prompts so the test can answer them.
type recordingMessenger struct {
	mu      sync.Mutex
	seq     int64
	prompts chan app.Prompt
	summary chan string
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{prompts: make(chan app.Prompt, 16), summary: make(chan string, 1)}
}

func (m *recordingMessenger) next(chatID string) app.MessageHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return app.MessageHandle{ChatID: chatID, MessageID: m.seq}
}

func (m *recordingMessenger) PostPrompt(_ context.Context, chatID string, p app.Prompt) ([]app.MessageHandle, error) {
	m.prompts <- p
	return []app.MessageHandle{m.next(chatID)}, nil
}

func (m *recordingMessenger) Send(_ context.Context, chatID, kind, text string) (app.MessageHandle, error) {
	if kind == app.KindSummary {
		m.summary <- text
	}
	return m.next(chatID), nil
}

func (m *recordingMessenger) Delete(context.Context, app.MessageHandle) error { return nil }

func TestHomeworkRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	results := postgres.NewResultStore(db)
	bank := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	strategies := flavor.NewSet(bank, results, postgres.NewPurchases(pool), 3)
	messenger := newRecordingMessenger()
	service := app.NewQuizService(app.Options{
		Messenger: messenger,
		Guard:     infraredis.NewOwnerGuard(redisClient),
	})

	strategy, err := strategies.Lookup(domain.FlavorHomework)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	owner := domain.Owner{UserID: "u1", ChatID: "c1"}
	params := domain.QuizParams{Flavor: domain.FlavorHomework, HomeworkID: "hw-1"}

	sess, err := service.Start(ctx, owner, params, strategy)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Start(ctx, owner, params, strategy); err != domain.ErrSessionActive {
		t.Fatalf("expected ErrSessionActive for a second run, got %v", err)
	}

	for _, optionIndex := range []int{1, 0} {
		select {
		case p := <-messenger.prompts:
			go service.OnAnswer(ctx, owner.UserID, p.AttemptID, optionIndex)
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for prompt")
		}
	}
	select {
	case <-sess.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("session did not finish")
	}
	if sess.Err() != nil {
		t.Fatalf("session error: %v", sess.Err())
	}
	result := sess.Result()
	if result == nil || result.ID == 0 || result.Points != 6 || !result.FirstAttempt {
		t.Fatalf("unexpected result %+v", result)
	}
	if text := <-messenger.summary; !strings.Contains(text, "Points earned: 6") {
		t.Fatalf("unexpected summary %q", text)
	}

	outcomes, err := results.Outcomes(ctx, result.ID)
	if err != nil {
		t.Fatalf("outcomes: %v", err)
	}
	if len(outcomes) != 2 || !outcomes[0].Correct || outcomes[1].QuestionID != "q2" {
		t.Fatalf("unexpected stored outcomes %+v", outcomes)
	}

	first, err := strategy.IsFirstAttempt(ctx, owner, strategy.Identity(params))
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if first {
		t.Fatalf("expected later runs to be repeats")
	}
}

func TestBonusTestRequiresPurchase(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	purchases := postgres.NewPurchases(pool)
	ok, err := purchases.HasPurchased(ctx, "u1", "bonus-1")
	if err != nil || ok {
		t.Fatalf("expected no purchase, got ok=%v err=%v", ok, err)
	}
	if err := purchases.Grant(ctx, "u1", "bonus-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ok, err = purchases.HasPurchased(ctx, "u1", "bonus-1")
	if err != nil || !ok {
		t.Fatalf("expected purchase, got ok=%v err=%v", ok, err)
	}

	if _, err := postgres.NewQuizLoader(pool).LoadQuiz(ctx, domain.QuizRef{Kind: domain.KindBonus, ID: "missing"}); err == nil {
		t.Fatalf("expected not found error")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Ref:   domain.QuizRef{Kind: domain.KindHomework, ID: "hw-1"},
		Title: "Lesson 1",
		Questions: []domain.Question{
			{
				ID:        "q1",
				Text:      "What is 2 + 2?",
				TimeLimit: 30,
				Topic:     "arithmetic",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Order: 0},
					{ID: "o2", Text: "4", Correct: true, Order: 1},
					{ID: "o3", Text: "5", Order: 2},
				},
			},
			{
				ID:        "q2",
				Text:      "Capital of France?",
				TimeLimit: 30,
				Options: []domain.Option{
					{ID: "o4", Text: "Paris", Correct: true, Order: 0},
					{ID: "o5", Text: "Rome", Order: 1},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
