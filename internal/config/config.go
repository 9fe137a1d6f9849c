package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location of the YAML config file.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	Environment string `yaml:"environment"`
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	SessionBackend string `yaml:"sessionBackend"`
	SessionTTL     string `yaml:"sessionTTL"`
	JWTSecret      string `yaml:"jwtSecret"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AIProvider       string `yaml:"aiProvider"`
	OpenAIBaseURL    string `yaml:"openAIBaseURL"`
	OpenAIAPIKey     string `yaml:"openAIAPIKey"`
	OpenAIChatModel  string `yaml:"openAIChatModel"`
	OpenAIImageModel string `yaml:"openAIImageModel"`
	GeminiAPIKey     string `yaml:"geminiAPIKey"`
	GeminiModel      string `yaml:"geminiModel"`
	AITimeout        string `yaml:"aiTimeout"`

	MaxUploadMB        int      `yaml:"maxUploadMB"`
	AllowedExtensions  []string `yaml:"allowedExtensions"`
	MaxRecommendations int      `yaml:"maxRecommendations"`
	PresignExpiry      string   `yaml:"presignExpiry"`
	MaxConns           int      `yaml:"maxConns"`

	SignupRateLimitPerMinute    int `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute     int `yaml:"loginRateLimitPerMinute"`
	RecommendRateLimitPerMinute int `yaml:"recommendRateLimitPerMinute"`
	GenerateRateLimitPerMinute  int `yaml:"generateRateLimitPerMinute"`

	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml). A missing
// file is fine: env-only deployments skip the YAML layer entirely.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.MinioUseSSL = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_CHAT_MODEL"); v != "" {
		cfg.OpenAIChatModel = v
	}
	if v := os.Getenv("OPENAI_IMAGE_MODEL"); v != "" {
		cfg.OpenAIImageModel = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxUploadMB = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = strings.Split(v, ",")
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = "redis"
	}
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = "24h"
	}
	if cfg.AIProvider == "" {
		cfg.AIProvider = "openai"
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAIChatModel == "" {
		cfg.OpenAIChatModel = "gpt-4o"
	}
	if cfg.OpenAIImageModel == "" {
		cfg.OpenAIImageModel = "dall-e-3"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AITimeout == "" {
		cfg.AITimeout = "90s"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = 5
	}
	if cfg.PresignExpiry == "" {
		cfg.PresignExpiry = "1h"
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 512
	}
	if cfg.SignupRateLimitPerMinute <= 0 {
		cfg.SignupRateLimitPerMinute = 5
	}
	if cfg.LoginRateLimitPerMinute <= 0 {
		cfg.LoginRateLimitPerMinute = 10
	}
	if cfg.RecommendRateLimitPerMinute <= 0 {
		cfg.RecommendRateLimitPerMinute = 10
	}
	if cfg.GenerateRateLimitPerMinute <= 0 {
		cfg.GenerateRateLimitPerMinute = 6
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml or MINIO_ACCESS_KEY)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml or MINIO_SECRET_KEY)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml)")
	}
	// Redis backs the rate limiters and token revocation even when
	// sessions are JWT-based.
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	switch cfg.SessionBackend {
	case "redis":
	case "jwt":
		if len(cfg.JWTSecret) < 32 {
			return errors.New("config: jwtSecret of at least 32 bytes is required when sessionBackend is jwt")
		}
	default:
		return fmt.Errorf("config: unknown sessionBackend %q (want redis or jwt)", cfg.SessionBackend)
	}
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return errors.New("config: openAIAPIKey is required when aiProvider is openai (set OPENAI_API_KEY)")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return errors.New("config: geminiAPIKey is required when aiProvider is gemini (set GEMINI_API_KEY)")
		}
		// Gemini cannot generate images, so the fallback needs OpenAI.
		if cfg.OpenAIAPIKey == "" {
			return errors.New("config: openAIAPIKey is required for image generation fallback (set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("config: unknown aiProvider %q (want openai or gemini)", cfg.AIProvider)
	}
	if _, err := parseDuration(cfg.SessionTTL); err != nil {
		return fmt.Errorf("config: invalid sessionTTL: %w", err)
	}
	if _, err := parseDuration(cfg.AITimeout); err != nil {
		return fmt.Errorf("config: invalid aiTimeout: %w", err)
	}
	if _, err := parseDuration(cfg.PresignExpiry); err != nil {
		return fmt.Errorf("config: invalid presignExpiry: %w", err)
	}
	for _, ext := range cfg.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("config: allowedExtensions entry %q must start with a dot", ext)
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// SessionTTLDuration returns the parsed session TTL. Load validates it.
func (c FileConfig) SessionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.SessionTTL)
	return d
}

// AITimeoutDuration returns the parsed AI request timeout.
func (c FileConfig) AITimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.AITimeout)
	return d
}

// PresignExpiryDuration returns the parsed presigned URL lifetime.
func (c FileConfig) PresignExpiryDuration() time.Duration {
	d, _ := time.ParseDuration(c.PresignExpiry)
	return d
}

// MaxUploadBytes returns the upload cap in bytes.
func (c FileConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
