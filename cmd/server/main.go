package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/givers/contacts/internal/config"
	"github.com/givers/contacts/internal/handler"
	"github.com/givers/contacts/internal/logging"
	"github.com/givers/contacts/internal/metrics"
	"github.com/givers/contacts/internal/repository"
	"github.com/givers/contacts/internal/seed"
	"github.com/givers/contacts/internal/service"
	"github.com/givers/contacts/internal/storage"
	"github.com/givers/contacts/internal/view"
	"github.com/givers/contacts/pkg/csrf"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	repo, closeRepo, err := openStore(context.Background(), cfg)
	if err != nil {
		logging.Fatal("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer closeRepo()

	if cfg.Seed {
		entries, err := seed.Load(cfg.SeedFile)
		if err != nil {
			logging.Fatal("failed to load seed data", "error", err)
		}
		n, err := seed.Apply(context.Background(), repo, entries)
		if err != nil {
			logging.Fatal("failed to seed store", "error", err)
		}
		if n > 0 {
			slog.Info("store seeded", "contacts", n)
		}
	}

	views, err := view.NewRenderer()
	if err != nil {
		logging.Fatal("failed to parse templates", "error", err)
	}

	contactService := service.NewContactService(repo)
	avatars := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
	recorder := metrics.New("contacts", version)
	h := handler.New(repo, cfg.StoreDriver)
	rootHandler := handler.NewRootHandler(contactService, views)

	limiter := handler.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	limiter.Exceeded = rootHandler.RateLimited
	defer limiter.Stop()
	contactHandler := handler.NewContactHandler(contactService, views, avatars)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /metrics", recorder.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static", view.Static()))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads", http.FileServer(http.Dir(cfg.UploadDir))))

	// HTML routes (CSRF-protected form posts)
	protect := csrf.Protect(csrf.SecretBytes(cfg.SessionSecret))
	page := func(fn http.HandlerFunc) http.Handler { return protect(fn) }
	create := limiter.Middleware(http.HandlerFunc(rootHandler.Create))

	mux.Handle("GET /{$}", page(rootHandler.Index))
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		mux.Handle(method+" /{$}", protect(create))
	}
	mux.Handle("GET /contacts/{id}", page(contactHandler.Show))
	mux.Handle("POST /contacts/{id}", page(contactHandler.Favorite))
	mux.Handle("GET /contacts/{id}/edit", page(contactHandler.Edit))
	mux.Handle("POST /contacts/{id}/edit", handler.LimitBody(handler.MaxEditFormBytes)(page(contactHandler.Update)))
	mux.Handle("POST /contacts/{id}/destroy", page(contactHandler.Destroy))
	mux.Handle("/", page(rootHandler.NotFound))

	// JSON API
	apiConfig := huma.DefaultConfig("Contacts API", version)
	apiConfig.OpenAPIPath = "/api/openapi"
	apiConfig.DocsPath = "/api/docs"
	apiConfig.SchemasPath = "/api/schemas"
	api := huma.NewGroup(humago.New(mux, apiConfig), "/api")
	contactsAPI := &handler.ContactsAPI{
		Contacts: contactService,
		ErrorHandler: func(ctx context.Context, err error) {
			slog.ErrorContext(ctx, "api request failed", "error", err)
		},
	}
	contactsAPI.Register(api)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(recorder.Middleware(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", server.Addr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
	}
}

// openStore connects the contact store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (repository.ContactRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPgContactRepository(pool), pool.Close, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		repo := repository.NewRedisContactRepository(rdb, cfg.RedisPrefix)
		return repo, func() { _ = repo.Close() }, nil

	case config.StoreBolt:
		repo, err := repository.OpenBoltContactRepository(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	default:
		return repository.NewMemoryContactRepository(), func() {}, nil
	}
}
