package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/dermaai/internal/domain/auth"
	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/domain/routine"
	"github.com/yanqian/dermaai/internal/domain/uploads"
	"github.com/yanqian/dermaai/internal/infra/config"
	"github.com/yanqian/dermaai/internal/infra/knowledge"
	"github.com/yanqian/dermaai/internal/infra/llm/gemini"
	"github.com/yanqian/dermaai/internal/infra/llm/groq"
	"github.com/yanqian/dermaai/internal/infra/onnx"
	"github.com/yanqian/dermaai/internal/infra/sessionstore"
	"github.com/yanqian/dermaai/internal/infra/uploadstore"
	"github.com/yanqian/dermaai/internal/infra/userrepo"
	httpiface "github.com/yanqian/dermaai/internal/interface/http"
	"github.com/yanqian/dermaai/pkg/logger"
)

const startupTimeout = 5 * time.Second

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) (sessionstore.Store, func()) {
	fallback := func() (sessionstore.Store, func()) {
		return sessionstore.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.TTL), func() {}
	}
	if !cfg.Session.Valkey.Enabled {
		return fallback()
	}
	opt, err := buildValkeyOptions(cfg.Session.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return fallback()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return fallback()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return fallback()
	}
	logger.Info("session valkey store enabled", "addr", cfg.Session.Valkey.Addr)
	return sessionstore.NewValkeyStore(client, cfg.Session.Valkey.Prefix, cfg.Session.TTL), client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideHistoryStore(store sessionstore.Store) chatbot.HistoryStore { return store }

func providePlanStore(store sessionstore.Store) routine.PlanStore { return store }

func provideSessionCleaner(store sessionstore.Store) auth.SessionCleaner { return store }

func openPostgres(ctx context.Context, pg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(pg.DSN))
	if err != nil {
		return nil, err
	}
	if pg.MaxConns > 0 {
		poolConfig.MaxConns = pg.MaxConns
	}
	if pg.MinConns > 0 {
		poolConfig.MinConns = pg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// provideUserRepository prefers Postgres when a DSN is set, then SQLite, and
// finally an in-memory repository so the process still starts.
func provideUserRepository(cfg *config.Config, logger *slog.Logger) (auth.Repository, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if strings.TrimSpace(cfg.Storage.Postgres.DSN) != "" {
		pool, err := openPostgres(ctx, cfg.Storage.Postgres)
		if err == nil {
			repo := userrepo.NewPostgresRepository(pool)
			if err = repo.Migrate(ctx); err == nil {
				logger.Info("user postgres repository enabled")
				return repo, pool.Close
			}
			pool.Close()
		}
		logger.Error("postgres user repository unavailable, trying sqlite", "error", err)
	}

	repo, err := userrepo.OpenSQLite(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("sqlite user repository unavailable, using memory repository", "path", cfg.Storage.SQLitePath, "error", err)
		return userrepo.NewMemoryRepository(), func() {}
	}
	logger.Info("user sqlite repository enabled", "path", cfg.Storage.SQLitePath)
	return repo, func() { _ = repo.Close() }
}

func provideAuthConfig(cfg *config.Config, logger *slog.Logger) auth.Config {
	if cfg.Auth.Secret == config.DevSecret {
		logger.Warn("auth secret not configured, using development default")
	}
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Google: auth.GoogleConfig{
			ClientID:             cfg.Auth.Google.ClientID,
			ClientSecret:         cfg.Auth.Google.ClientSecret,
			RedirectURL:          cfg.Auth.Google.RedirectURL,
			TokenEncryptionKey:   cfg.Auth.Google.TokenEncryptionKey,
			PostLoginRedirectURL: cfg.Auth.Google.PostLoginRedirectURL,
		},
	}
}

func provideClassifierConfig(cfg *config.Config) (classifier.Config, error) {
	skin, err := buildModelConfig(classifier.DefaultSkinConfig(cfg.Classifier.ModelsDir), cfg.Classifier.ModelsDir, cfg.Classifier.Skin)
	if err != nil {
		return classifier.Config{}, err
	}
	nail, err := buildModelConfig(classifier.DefaultNailConfig(cfg.Classifier.ModelsDir), cfg.Classifier.ModelsDir, cfg.Classifier.Nail)
	if err != nil {
		return classifier.Config{}, err
	}
	return classifier.Config{Skin: skin, Nail: nail}, nil
}

func buildModelConfig(base classifier.ModelConfig, modelsDir string, mc config.ModelConfig) (classifier.ModelConfig, error) {
	if mc.File != "" {
		base.ModelPath = mc.File
		if !filepath.IsAbs(mc.File) {
			base.ModelPath = filepath.Join(modelsDir, mc.File)
		}
	}
	if mc.InputSize > 0 {
		base.InputHeight, base.InputWidth = mc.InputSize, mc.InputSize
	}
	if len(mc.Labels) > 0 {
		base.Labels = append([]string(nil), mc.Labels...)
	}
	if mc.Normalization != "" {
		norm, err := classifier.ParseNormalization(mc.Normalization)
		if err != nil {
			return classifier.ModelConfig{}, err
		}
		base.Normalization = norm
	}
	if mc.Layout != "" {
		layout, err := classifier.ParseLayout(mc.Layout)
		if err != nil {
			return classifier.ModelConfig{}, err
		}
		base.Layout = layout
	}
	base.InputName = mc.InputName
	base.OutputName = mc.OutputName
	return base, nil
}

func provideModelLoader(cfg *config.Config, logger *slog.Logger) (classifier.Loader, func()) {
	rt := onnx.NewRuntime(cfg.Classifier.LibraryPath, logger)
	return rt, func() {
		if err := rt.Close(); err != nil {
			logger.Warn("onnx runtime shutdown failed", "error", err)
		}
	}
}

func provideChatbotConfig(cfg *config.Config) chatbot.Config {
	return chatbot.Config{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		Prompt:        cfg.Chatbot.Prompt,
		HistoryLimit:  cfg.Session.HistoryLimit,
		HistoryWindow: cfg.Chatbot.HistoryWindow,
		Timeout:       cfg.LLM.Timeout,
	}
}

// provideKnowledgeBase loads the file override or the embedded default, and
// serves it from Postgres when a knowledge DSN is set, seeding an empty table.
func provideKnowledgeBase(cfg *config.Config, logger *slog.Logger) (chatbot.KnowledgeBase, func(), error) {
	var (
		static *knowledge.Static
		err    error
	)
	if path := strings.TrimSpace(cfg.Chatbot.KnowledgeFile); path != "" {
		static, err = knowledge.LoadFile(path)
	} else {
		static, err = knowledge.NewDefault()
	}
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.Chatbot.Postgres.DSN) == "" {
		return static, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	pool, err := openPostgres(ctx, cfg.Chatbot.Postgres)
	if err != nil {
		logger.Error("knowledge postgres unavailable, using static knowledge base", "error", err)
		return static, func() {}, nil
	}
	base := knowledge.NewPostgresBase(pool)
	entries, err := static.Entries(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := errors.Join(base.Migrate(ctx), base.Seed(ctx, entries)); err != nil {
		logger.Error("knowledge postgres setup failed, using static knowledge base", "error", err)
		pool.Close()
		return static, func() {}, nil
	}
	logger.Info("knowledge postgres base enabled")
	return base, pool.Close, nil
}

func provideChatClient(cfg *config.Config, logger *slog.Logger) chatbot.ChatClient {
	client, err := groq.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		logger.Warn("chat llm not configured, open questions get the fallback reply", "error", err)
		return nil
	}
	return client
}

func provideRoutineConfig(cfg *config.Config) routine.Config {
	return routine.Config{Model: cfg.Gemini.Model, Timeout: cfg.Gemini.Timeout}
}

func provideRoutineGenerator(cfg *config.Config, logger *slog.Logger) routine.Generator {
	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey)
	if err != nil {
		logger.Warn("gemini not configured, routines use the sample plan", "error", err)
		return nil
	}
	return client
}

func provideUploadsConfig(cfg *config.Config) uploads.Config {
	return uploads.Config{MaxBytes: cfg.Uploads.MaxBytes}
}

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) (uploads.ObjectStorage, error) {
	if r2 := cfg.Uploads.R2; r2.Enabled {
		storage, err := uploadstore.NewR2Storage(uploadstore.R2Config{
			Endpoint:        r2.Endpoint,
			AccessKeyID:     r2.AccessKeyID,
			SecretAccessKey: r2.SecretAccessKey,
			Bucket:          r2.Bucket,
			UseSSL:          r2.UseSSL,
		}, logger)
		if err == nil {
			logger.Info("upload r2 storage enabled", "bucket", r2.Bucket)
			return storage, nil
		}
		logger.Error("r2 storage unavailable, using local uploads dir", "error", err)
	}
	return uploadstore.NewLocalStorage(cfg.Uploads.Dir)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func provideReadiness(sessions sessionstore.Store, users auth.Repository) httpiface.Readiness {
	checks := httpiface.Readiness{{Name: "sessions", Check: sessions.Ping}}
	if p, ok := users.(pinger); ok {
		checks = append(checks, httpiface.ReadinessCheck{Name: "users", Check: p.Ping})
	}
	return checks
}
