package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Session    SessionConfig    `yaml:"session"`
	Classifier ClassifierConfig `yaml:"classifier"`
	LLM        LLMConfig        `yaml:"llm"`
	Chatbot    ChatbotConfig    `yaml:"chatbot"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Uploads    UploadsConfig    `yaml:"uploads"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	MaxBodyBytes   int64           `yaml:"maxBodyBytes"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LogConfig controls the slog handler and the optional rotating file sink.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// AuthConfig holds token signing and Google sign-in settings.
type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	CookieName      string        `yaml:"cookieName"`
	Google          GoogleConfig  `yaml:"google"`
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	TokenEncryptionKey   string `yaml:"tokenEncryptionKey"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
}

// StorageConfig selects the user account store.
type StorageConfig struct {
	SQLitePath string         `yaml:"sqlitePath"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SessionConfig bounds per-conversation state.
type SessionConfig struct {
	HistoryLimit int           `yaml:"historyLimit"`
	MaxSessions  int           `yaml:"maxSessions"`
	TTL          time.Duration `yaml:"ttl"`
	Valkey       ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the shared session store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// ClassifierConfig points at the model artifacts and the ONNX runtime.
type ClassifierConfig struct {
	ModelsDir   string      `yaml:"modelsDir"`
	LibraryPath string      `yaml:"libraryPath"`
	Skin        ModelConfig `yaml:"skin"`
	Nail        ModelConfig `yaml:"nail"`
}

// ModelConfig describes one exported classifier.
type ModelConfig struct {
	File          string   `yaml:"file"`
	InputSize     int      `yaml:"inputSize"`
	Labels        []string `yaml:"labels"`
	Normalization string   `yaml:"normalization"`
	Layout        string   `yaml:"layout"`
	InputName     string   `yaml:"inputName"`
	OutputName    string   `yaml:"outputName"`
}

// LLMConfig contains the OpenAI compatible chat completion settings.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatbotConfig controls the dermatology assistant.
type ChatbotConfig struct {
	Prompt        string         `yaml:"prompt"`
	KnowledgeFile string         `yaml:"knowledgeFile"`
	HistoryWindow int            `yaml:"historyWindow"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// GeminiConfig controls the routine generator.
type GeminiConfig struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadsConfig controls where uploaded photos are kept.
type UploadsConfig struct {
	Dir      string   `yaml:"dir"`
	MaxBytes int64    `yaml:"maxBytes"`
	R2       R2Config `yaml:"r2"`
}

// R2Config configures the S3 compatible object store.
type R2Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"useSsl"`
}

// Load reads configuration from a YAML file, a .env file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")

	setString(&cfg.Auth.Secret, "AUTH_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
	setDuration(&cfg.Auth.RefreshTokenTTL, "AUTH_REFRESH_TOKEN_TTL")
	setString(&cfg.Auth.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Auth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Auth.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&cfg.Auth.Google.TokenEncryptionKey, "GOOGLE_TOKEN_ENCRYPTION_KEY")
	setString(&cfg.Auth.Google.PostLoginRedirectURL, "GOOGLE_POST_LOGIN_REDIRECT_URL")

	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.Postgres.DSN, "POSTGRES_DSN")

	setInt(&cfg.Session.HistoryLimit, "SESSION_HISTORY_LIMIT")
	setDuration(&cfg.Session.TTL, "SESSION_TTL")
	setBool(&cfg.Session.Valkey.Enabled, "SESSION_VALKEY_ENABLED")
	setString(&cfg.Session.Valkey.Addr, "SESSION_VALKEY_ADDR")

	setString(&cfg.Classifier.ModelsDir, "MODELS_DIR")
	setString(&cfg.Classifier.LibraryPath, "ONNXRUNTIME_LIB")
	setString(&cfg.Classifier.Skin.File, "SKIN_MODEL_FILE")
	setString(&cfg.Classifier.Nail.File, "NAIL_MODEL_FILE")

	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.APIKey, "GROQ_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	setString(&cfg.Chatbot.KnowledgeFile, "CHATBOT_KNOWLEDGE_FILE")
	setString(&cfg.Chatbot.Postgres.DSN, "CHATBOT_POSTGRES_DSN")

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setDuration(&cfg.Gemini.Timeout, "GEMINI_TIMEOUT")

	setString(&cfg.Uploads.Dir, "UPLOAD_FOLDER")
	setBool(&cfg.Uploads.R2.Enabled, "UPLOAD_R2_ENABLED")
	setString(&cfg.Uploads.R2.Endpoint, "UPLOAD_R2_ENDPOINT")
	setString(&cfg.Uploads.R2.AccessKeyID, "UPLOAD_R2_ACCESS_KEY_ID")
	setString(&cfg.Uploads.R2.SecretAccessKey, "UPLOAD_R2_SECRET_ACCESS_KEY")
	setString(&cfg.Uploads.R2.Bucket, "UPLOAD_R2_BUCKET")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 16 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Auth: AuthConfig{
			Secret:          DevSecret,
			TokenTTL:        2 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			CookieName:      "dermaai_token",
		},
		Storage: StorageConfig{
			SQLitePath: "dermaai.db",
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Session: SessionConfig{
			HistoryLimit: 5,
			MaxSessions:  10000,
			TTL:          24 * time.Hour,
			Valkey: ValkeyConfig{
				Prefix: "dermaai",
			},
		},
		Classifier: ClassifierConfig{
			ModelsDir: "models",
			Skin: ModelConfig{
				File:          "skin_disease_finetuned.onnx",
				InputSize:     224,
				Labels:        []string{"Normal", "SkinCancer", "Eczema", "Psoriasis"},
				Normalization: "efficientnet",
				Layout:        "nhwc",
			},
			Nail: ModelConfig{
				File:          "best_nail_model.onnx",
				InputSize:     224,
				Labels:        []string{"healthy", "onychomycosis", "psoriasis"},
				Normalization: "caffe",
				Layout:        "nhwc",
			},
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Chatbot: ChatbotConfig{
			Prompt:        defaultChatPrompt,
			HistoryWindow: 6,
			Postgres: PostgresConfig{
				MaxConns: 2,
			},
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 45 * time.Second,
		},
		Uploads: UploadsConfig{
			Dir:      "static/uploads",
			MaxBytes: 16 << 20,
			R2: R2Config{
				UseSSL: true,
			},
		},
	}
}

// DevSecret is the signing key used when none is configured; providers warn about it.
const DevSecret = "dev-secret-change-me"

const defaultChatPrompt = `You are a professional dermatologist assistant chatbot.

Rules:
1. Answer concisely, professionally, and human-like.
2. Use structured format with only relevant sections:
   - Definition
   - Recommendation
   - Precautions
   - RedFlags
3. Return your answer strictly in JSON format, e.g.:
{
  "Definition": "...",
  "Recommendation": ["...", "..."],
  "Precautions": ["...", "..."],
  "RedFlags": ["...", "..."]
}
Include only the relevant sections for the user's query.
Avoid paragraphs; use bullet points in lists.
Friendly and professional tone.

Conversation so far:
{messages}

User Query: {query}
Context Info (if relevant): {context}
`

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.maxBodyBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}
	if c.Session.HistoryLimit <= 0 {
		return errors.New("session.historyLimit must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		return errors.New("session.maxSessions must be positive")
	}
	if c.Session.Valkey.Enabled && strings.TrimSpace(c.Session.Valkey.Addr) == "" {
		return errors.New("session.valkey.addr cannot be empty when valkey is enabled")
	}
	for name, m := range map[string]ModelConfig{"skin": c.Classifier.Skin, "nail": c.Classifier.Nail} {
		if m.InputSize <= 0 {
			return fmt.Errorf("classifier.%s.inputSize must be positive", name)
		}
		if len(m.Labels) == 0 {
			return fmt.Errorf("classifier.%s.labels cannot be empty", name)
		}
	}
	if c.LLM.Timeout <= 0 || c.Gemini.Timeout <= 0 {
		return errors.New("llm timeouts must be positive")
	}
	if !strings.Contains(c.Chatbot.Prompt, "{query}") {
		return errors.New("chatbot.prompt must contain {query}")
	}
	if c.Chatbot.HistoryWindow < 0 {
		return errors.New("chatbot.historyWindow cannot be negative")
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("uploads.maxBytes must be positive")
	}
	if c.Uploads.R2.Enabled && (c.Uploads.R2.Endpoint == "" || c.Uploads.R2.Bucket == "") {
		return errors.New("uploads.r2 endpoint and bucket are required when enabled")
	}
	return nil
}
