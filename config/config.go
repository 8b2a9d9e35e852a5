package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultPath is where the server looks for its YAML file when --config is not given.
const DefaultPath = "config/config.yaml"

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		Mode           string   `yaml:"mode"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database  Database  `yaml:"database"`
	Auth      Auth      `yaml:"auth"`
	AI        AI        `yaml:"ai"`
	Redis     Redis     `yaml:"redis"`
	Worker    Worker    `yaml:"worker"`
	MinIO     MinIO     `yaml:"minio"`
	Storage   Storage   `yaml:"storage"`
	Cache     Cache     `yaml:"cache"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Log       Log       `yaml:"log"`
}

type Database struct {
	Driver       string `yaml:"driver"` // mysql | sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type Auth struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// TokenTTL is how long an issued JWT stays valid.
func (a Auth) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type AI struct {
	MockMode          bool   `yaml:"mock_mode"`
	OpenRouterURL     string `yaml:"openrouter_url"`
	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`
	OpenRouterModel   string `yaml:"openrouter_model"`
	ElevenLabsAPIKey  string `yaml:"elevenlabs_api_key"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
	ElevenLabsModelID string `yaml:"elevenlabs_model_id"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

func (a AI) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether narration jobs should go through asynq.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

type Worker struct {
	Concurrency int `yaml:"concurrency"`
}

type MinIO struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	UseSSL       bool   `yaml:"use_ssl"`
	PresignHours int    `yaml:"presign_hours"`
}

type Storage struct {
	AudioDir string `yaml:"audio_dir"`
}

type Cache struct {
	ConfigTTLSeconds int `yaml:"config_ttl_seconds"`
}

func (c Cache) ConfigTTL() time.Duration {
	return time.Duration(c.ConfigTTLSeconds) * time.Second
}

type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a config usable for local development with SQLite and mock mode off.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = ":8080"
	cfg.Server.Mode = "release"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "contentstudio.db"
	cfg.Database.MaxOpenConns = 25
	cfg.Database.MaxIdleConns = 5
	cfg.Auth.TokenTTLHours = 24 * 7
	cfg.AI.OpenRouterURL = "https://openrouter.ai/api/v1"
	cfg.AI.OpenRouterModel = "openai/gpt-4o-mini"
	cfg.AI.ElevenLabsModelID = "eleven_multilingual_v2"
	cfg.AI.TimeoutSeconds = 120
	cfg.Worker.Concurrency = 4
	cfg.MinIO.Bucket = "narracoes"
	cfg.MinIO.PresignHours = 72
	cfg.Storage.AudioDir = "storage/audios"
	cfg.Cache.ConfigTTLSeconds = 300
	cfg.RateLimit.PerMinute = 20
	cfg.RateLimit.Burst = 5
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads the YAML file at path on top of Default(), then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"PORT":                &cfg.Server.Port,
		"GIN_MODE":            &cfg.Server.Mode,
		"DATABASE_DRIVER":     &cfg.Database.Driver,
		"DATABASE_DSN":        &cfg.Database.DSN,
		"JWT_SECRET":          &cfg.Auth.JWTSecret,
		"OPENROUTER_URL":      &cfg.AI.OpenRouterURL,
		"OPENROUTER_API_KEY":  &cfg.AI.OpenRouterAPIKey,
		"OPENROUTER_MODEL":    &cfg.AI.OpenRouterModel,
		"ELEVENLABS_API_KEY":  &cfg.AI.ElevenLabsAPIKey,
		"ELEVENLABS_VOICE_ID": &cfg.AI.ElevenLabsVoiceID,
		"REDIS_ADDR":          &cfg.Redis.Addr,
		"REDIS_PASSWORD":      &cfg.Redis.Password,
		"MINIO_ENDPOINT":      &cfg.MinIO.Endpoint,
		"MINIO_ACCESS_KEY":    &cfg.MinIO.AccessKey,
		"MINIO_SECRET_KEY":    &cfg.MinIO.SecretKey,
		"MINIO_BUCKET":        &cfg.MinIO.Bucket,
		"AUDIO_DIR":           &cfg.Storage.AudioDir,
		"LOG_LEVEL":           &cfg.Log.Level,
		"LOG_FORMAT":          &cfg.Log.Format,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"MOCK_MODE":     &cfg.AI.MockMode,
		"MINIO_ENABLED": &cfg.MinIO.Enabled,
		"MINIO_USE_SSL": &cfg.MinIO.UseSSL,
	}
	for name, dst := range bools {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", name, err)
		}
		*dst = parsed
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn (DATABASE_DSN) is required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return errors.New("auth.token_ttl_hours must be positive")
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return errors.New("minio.endpoint and minio.bucket are required when minio is enabled")
	}
	return nil
}
