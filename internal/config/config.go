package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is empty")

var secretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,256}$`)

const (
	defaultAdminID        = 123456789
	defaultChannel        = "SaRa_KiNoLaR_Uzz"
	defaultSupport        = "Amirjon_Karimov"
	defaultPort           = "3000"
	defaultBackend        = "file"
	defaultDataDir        = "data"
	defaultMongoDatabase  = "kinobot"
	defaultRedisAddr      = "localhost:6379"
	defaultRedisPrefix    = "kinobot:"
	defaultBroadcastDelay = 200 * time.Millisecond
	defaultEnv            = "production"
)

type Config struct {
	BotToken        string
	AdminID         int64
	RequiredChannel string
	SupportHandle   string

	Port       string
	WebhookURL string
	// WebhookSecret is the last path segment of the webhook route; only Telegram knows it.
	WebhookSecret string

	StorageBackend string
	DataDir        string
	MongoURI       string
	MongoDatabase  string
	RedisAddr      string
	RedisPrefix    string

	BroadcastDelay time.Duration
	DigestCron     string
	Env            string
}

// Polling reports whether updates should be pulled with getUpdates instead of a webhook.
func (c Config) Polling() bool { return c.WebhookURL == "" }

// Load reads .env.local and .env from the working directory (without overriding the real
// environment) and builds the Config.
func Load() (Config, error) {
	loadEnvFiles()

	cfg := Config{
		BotToken:        firstEnv("TELEGRAM_BOT_TOKEN", "BOT_TOKEN"),
		RequiredChannel: strings.TrimPrefix(envOr("REQUIRED_CHANNEL", defaultChannel), "@"),
		SupportHandle:   strings.TrimPrefix(envOr("SUPPORT_HANDLE", defaultSupport), "@"),
		Port:            strings.TrimPrefix(envOr("PORT", defaultPort), ":"),
		WebhookURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_URL")), "/"),
		StorageBackend:  strings.ToLower(envOr("STORAGE_BACKEND", defaultBackend)),
		DataDir:         envOr("DATA_DIR", defaultDataDir),
		MongoURI:        strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase:   envOr("MONGODB_DATABASE", defaultMongoDatabase),
		RedisAddr:       envOr("REDIS_URL", defaultRedisAddr),
		RedisPrefix:     envOr("REDIS_PREFIX", defaultRedisPrefix),
		DigestCron:      strings.TrimSpace(os.Getenv("DIGEST_CRON")),
		Env:             envOr("APP_ENV", defaultEnv),
	}
	if cfg.BotToken == "" {
		return Config{}, ErrMissingToken
	}

	cfg.WebhookSecret = strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = deriveSecret(cfg.BotToken)
	} else if !secretPattern.MatchString(cfg.WebhookSecret) {
		return Config{}, errors.New("WEBHOOK_SECRET must be 16-256 characters of A-Z, a-z, 0-9, _ or -")
	}

	cfg.AdminID = defaultAdminID
	if raw := strings.TrimSpace(os.Getenv("ADMIN_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			return Config{}, fmt.Errorf("invalid ADMIN_ID %q", raw)
		}
		cfg.AdminID = id
	}

	cfg.BroadcastDelay = defaultBroadcastDelay
	if raw := strings.TrimSpace(os.Getenv("BROADCAST_DELAY")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid BROADCAST_DELAY %q", raw)
		}
		cfg.BroadcastDelay = d
	}

	switch cfg.StorageBackend {
	case "file", "mongo", "redis":
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "mongo" && cfg.MongoURI == "" {
		return Config{}, errors.New("MONGODB_URI is required for the mongo backend")
	}
	return cfg, nil
}

// deriveSecret keeps the webhook route stable across restarts without exposing the token.
func deriveSecret(token string) string {
	sum := sha256.Sum256([]byte("webhook:" + token))
	return hex.EncodeToString(sum[:16])
}

func loadEnvFiles() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	var files []string
	for _, name := range []string{".env.local", ".env"} {
		fp := filepath.Join(cwd, name)
		if _, err := os.Stat(fp); err == nil {
			files = append(files, fp)
		}
	}
	if len(files) > 0 {
		_ = godotenv.Load(files...)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
