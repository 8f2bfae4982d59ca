package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-match-service/internal/app"
	"quiz-match-service/internal/domain"
	pginfra "quiz-match-service/internal/infra/postgres"
	pgmigrations "quiz-match-service/internal/infra/postgres/migrations"
)

// eventSink is a minimal ClientNotifier for driving a match in-process.
type eventSink struct {
	ch chan domain.Event
}

func newEventSink() *eventSink {
	return &eventSink{ch: make(chan domain.Event, 64)}
}

func (s *eventSink) Send(ev domain.Event) {
	select {
	case s.ch <- ev:
	default:
	}
}

func (s *eventSink) next(t *testing.T, eventType string) domain.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.ch:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestMatchPersistedEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()

	seedQuestions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	cfg := app.DefaultGameConfig()
	cfg.QuestionsPerMatch = 2
	cfg.AnnounceDelay = 10 * time.Millisecond
	cfg.RoundPause = 10 * time.Millisecond
	cfg.Retention = 200 * time.Millisecond
	cfg.TimeLimits = map[string]time.Duration{
		"easy": 5 * time.Second, "medium": 5 * time.Second, "hard": 5 * time.Second,
	}

	provider, err := app.NewQuestionProvider(ctx, pginfra.NewQuestionSource(pool), cfg)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	engine := app.NewEngine(provider, app.NewBotPool(), pginfra.NewResultStore(pool), cfg)

	alice := newEventSink()
	bob := newEventSink()
	m := engine.StartMatch([]app.Seat{
		{ID: "p-alice", DisplayName: "Alice", Client: alice},
		{ID: "p-bob", DisplayName: "Bob", Client: bob},
	}, 0, domain.Preferences{Category: "general", Difficulty: "easy"})

	for round := 0; round < 2; round++ {
		q := alice.next(t, domain.EventQuestion).Payload.(domain.QuestionPrompt)
		if err := engine.SubmitAnswer("p-alice", q.ID, "b"); err != nil {
			t.Fatalf("alice: %v", err)
		}
		if err := engine.SubmitAnswer("p-bob", q.ID, "a"); err != nil {
			t.Fatalf("bob: %v", err)
		}
	}
	end := alice.next(t, domain.EventGameEnd).Payload.(domain.GameEnd)
	if end.WinnerID != "p-alice" {
		t.Fatalf("expected alice to win, got %+v", end)
	}

	// Persistence is async after client notification; poll the tables.
	waitForRow(t, ctx, pool,
		`SELECT count(*) FROM match_results WHERE id = $1`, m.ID(), 1)
	waitForRow(t, ctx, pool,
		`SELECT count(*) FROM match_history WHERE participant_id = 'p-alice' AND match_id = $1`, m.ID(), 1)

	var wins int
	err = pool.QueryRow(ctx, `SELECT wins FROM participant_stats WHERE participant_id = 'p-alice'`).Scan(&wins)
	if err != nil {
		t.Fatalf("stats row: %v", err)
	}
	if wins != 1 {
		t.Fatalf("expected 1 win for alice, got %d", wins)
	}
}

func waitForRow(t *testing.T, ctx context.Context, pool *pgxpool.Pool, query, arg string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var got int
		if err := pool.QueryRow(ctx, query, arg).Scan(&got); err == nil && got == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q to reach %d", query, want)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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

func seedQuestions(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	questions := []domain.Question{
		{
			ID:   "q1",
			Text: "pick b",
			Options: []domain.Option{
				{ID: "a", Text: "wrong"},
				{ID: "b", Text: "right"},
			},
			CorrectID:   "b",
			Explanation: "b",
		},
		{
			ID:   "q2",
			Text: "pick b again",
			Options: []domain.Option{
				{ID: "a", Text: "wrong"},
				{ID: "b", Text: "right"},
			},
			CorrectID:   "b",
			Explanation: "b",
		},
	}
	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO question_sets (category, data) VALUES (?, ?::jsonb)
		 ON CONFLICT (category) DO UPDATE SET data=EXCLUDED.data`,
		"general", string(data)); err != nil {
		t.Fatalf("insert questions: %v", err)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
