package cli

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-match-service/internal/app"
	"quiz-match-service/internal/config"
	"quiz-match-service/internal/domain"
	"quiz-match-service/internal/infra/memory"
	pginfra "quiz-match-service/internal/infra/postgres"
	redisinfra "quiz-match-service/internal/infra/redis"
	transport "quiz-match-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz match server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	gameCfg := gameConfig(cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source app.QuestionSource = memory.NewStaticQuestionSource(seedCatalog())
	if pool != nil {
		source = pginfra.NewQuestionSource(pool)
	}
	provider, err := app.NewQuestionProvider(ctx, source, gameCfg)
	if err != nil {
		return err
	}

	var results app.ResultStore = memory.NewResultStore()
	switch {
	case pool != nil:
		results = pginfra.NewResultStore(pool)
	case redisClient != nil:
		results = redisinfra.NewResultStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	}

	bots := app.NewBotPool()
	engine := app.NewEngine(provider, bots, results, gameCfg)
	queue := app.NewQueueManager(provider, engine, gameCfg)
	wsHandler := transport.NewWSHandler(queue, engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{
			"activeMatches": engine.ActiveMatches(),
			"queuedPlayers": queue.Size(),
		})
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz match service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// gameConfig merges YAML overrides onto the defaults.
func gameConfig(cfg config.Config) app.GameConfig {
	game := app.DefaultGameConfig()
	if cfg.Game.MinPlayers > 0 {
		game.MinPlayers = cfg.Game.MinPlayers
	}
	if cfg.Game.MaxPlayers > 0 {
		game.MaxPlayers = cfg.Game.MaxPlayers
	}
	if cfg.Game.QuestionsPerMatch > 0 {
		game.QuestionsPerMatch = cfg.Game.QuestionsPerMatch
	}
	if cfg.Game.PointsPerCorrect > 0 {
		game.PointsPerCorrect = cfg.Game.PointsPerCorrect
	}
	game.FillTimeout = config.TTLDuration(cfg.Game.FillTimeout, game.FillTimeout)
	game.AnnounceDelay = config.TTLDuration(cfg.Game.AnnounceDelay, game.AnnounceDelay)
	game.RoundPause = config.TTLDuration(cfg.Game.RoundPause, game.RoundPause)
	game.Retention = config.TTLDuration(cfg.Game.Retention, game.Retention)
	for difficulty, raw := range cfg.Game.TimeLimits {
		game.TimeLimits[difficulty] = config.TTLDuration(raw, game.TimeLimits[difficulty])
	}
	if cfg.Game.DefaultCategory != "" {
		game.DefaultCategory = cfg.Game.DefaultCategory
	}
	return game
}

// seedCatalog provides a small built-in question set so the service runs
// without Postgres; swap in the DB-backed source in production.
func seedCatalog() map[string][]domain.Question {
	return map[string][]domain.Question{
		"general": {
			{
				ID:   "gen-1",
				Text: "Which data structure gives O(1) average lookup by key?",
				Options: []domain.Option{
					{ID: "a", Text: "Linked list"},
					{ID: "b", Text: "Hash table"},
					{ID: "c", Text: "Binary heap"},
				},
				CorrectID:   "b",
				Explanation: "Hash tables average O(1) lookups; lists and heaps do not.",
			},
			{
				ID:   "gen-2",
				Text: "What does TCP provide that UDP does not?",
				Options: []domain.Option{
					{ID: "a", Text: "Ordered, reliable delivery"},
					{ID: "b", Text: "Lower latency"},
					{ID: "c", Text: "Broadcast support"},
				},
				CorrectID:   "a",
				Explanation: "TCP retransmits and orders segments; UDP is fire-and-forget.",
			},
			{
				ID:      "gen-3",
				Snippet: "x := []int{1, 2, 3}\nfmt.Println(len(x), cap(x))",
				Text:    "What does this print?",
				Options: []domain.Option{
					{ID: "a", Text: "3 3"},
					{ID: "b", Text: "3 6"},
					{ID: "c", Text: "2 3"},
				},
				CorrectID:   "a",
				Explanation: "A slice literal's capacity equals its length.",
			},
			{
				ID:   "gen-4",
				Text: "Which HTTP status code means 'Too Many Requests'?",
				Options: []domain.Option{
					{ID: "a", Text: "429"},
					{ID: "b", Text: "503"},
					{ID: "c", Text: "418"},
				},
				CorrectID:   "a",
				Explanation: "429 signals rate limiting; 503 is service unavailable.",
			},
			{
				ID:   "gen-5",
				Text: "What is the worst-case complexity of quicksort?",
				Options: []domain.Option{
					{ID: "a", Text: "O(n log n)"},
					{ID: "b", Text: "O(n^2)"},
					{ID: "c", Text: "O(log n)"},
				},
				CorrectID:   "b",
				Explanation: "Adversarial pivots degrade quicksort to quadratic time.",
			},
		},
		"python": {
			{
				ID:      "py-1",
				Snippet: "print([i * 2 for i in range(3)])",
				Text:    "What does this print?",
				Options: []domain.Option{
					{ID: "a", Text: "[0, 2, 4]"},
					{ID: "b", Text: "[2, 4, 6]"},
					{ID: "c", Text: "[0, 1, 2]"},
				},
				CorrectID:   "a",
				Explanation: "range(3) yields 0..2, each doubled.",
			},
			{
				ID:      "py-2",
				Snippet: "def f(x, acc=[]):\n    acc.append(x)\n    return acc",
				Text:    "Why is the default argument dangerous?",
				Options: []domain.Option{
					{ID: "a", Text: "It is shared across calls"},
					{ID: "b", Text: "It causes a syntax error"},
					{ID: "c", Text: "It is re-created each call"},
				},
				CorrectID:   "a",
				Explanation: "Mutable defaults are evaluated once and shared between calls.",
			},
			{
				ID:      "py-3",
				Snippet: "print(type(1 / 1))",
				Text:    "What does this print?",
				Options: []domain.Option{
					{ID: "a", Text: "<class 'int'>"},
					{ID: "b", Text: "<class 'float'>"},
				},
				CorrectID:   "b",
				Explanation: "True division always produces a float in Python 3.",
			},
			{
				ID:      "py-4",
				Snippet: "print('abc'[::-1])",
				Text:    "What does this print?",
				Options: []domain.Option{
					{ID: "a", Text: "abc"},
					{ID: "b", Text: "cba"},
					{ID: "c", Text: "error"},
				},
				CorrectID:   "b",
				Explanation: "A step of -1 reverses the sequence.",
			},
			{
				ID:      "py-5",
				Snippet: "print(0.1 + 0.2 == 0.3)",
				Text:    "What does this print?",
				Options: []domain.Option{
					{ID: "a", Text: "True"},
					{ID: "b", Text: "False"},
				},
				CorrectID:   "b",
				Explanation: "Binary floating point cannot represent these decimals exactly.",
			},
		},
	}
}
