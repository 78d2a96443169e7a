package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// A .env file in the working directory is honored for local runs.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	// DatabaseURL selects Postgres; when empty the embedded SQLite at
	// DBPath is used instead.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBPath      string `envconfig:"DB_PATH" default:"./data/mealfit.db"`

	// RedisAddr enables the ledger read cache; empty disables it.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// GeminiAPIKey enables AI message content; empty means notifications
	// that require generated text never fire, and weekly reports go out
	// with numbers only.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"15m"`
	EvalTimeout  time.Duration `envconfig:"EVAL_TIMEOUT" default:"5s"`
	Workers      int           `envconfig:"WORKERS" default:"8"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads .env (if present) and the environment into Config.
func Load() (Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
