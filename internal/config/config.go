package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" env-default:"8080"`
	DBDSN    string `env:"DB_DSN" env-default:"garagesale.db"` // sqlite file in project root, or libsql://...
	MediaDir string `env:"MEDIA_DIR" env-default:"./uploads"`
	SeedDemo bool   `env:"SEED_DEMO" env-default:"true"`

	TemplatesDir string `env:"TEMPLATES_DIR" env-default:"./web/templates"`
	PageSize     int    `env:"PAGE_SIZE" env-default:"15"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`
	LogFile   string `env:"LOG_FILE" env-default:"stdout"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	SuggestionTTL time.Duration `env:"SUGGESTION_CACHE_TTL" env-default:"30s"`

	// FeaturedBatchInterval of 0 disables the server-side featured batch.
	FeaturedBatchInterval time.Duration `env:"FEATURED_BATCH_INTERVAL" env-default:"60s"`
	// Requests per minute per IP; 0 disables the limiter.
	RateLimit        int           `env:"RATE_LIMIT" env-default:"600"`
	SearchRateLimit  int           `env:"SEARCH_RATE_LIMIT" env-default:"120"`
	CORSOrigins      string        `env:"CORS_ORIGINS" env-default:"http://localhost:5173"`
	BrowseSessionTTL time.Duration `env:"BROWSE_SESSION_TTL" env-default:"30m"`
}

func Load() Config {
	_ = godotenv.Load() // .env is optional outside local development

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("[config] %v", err)
	}
	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_LEVEL=%s REDIS_ADDR=%q FEATURED_BATCH_INTERVAL=%s",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogLevel, cfg.RedisAddr, cfg.FeaturedBatchInterval)
	return cfg
}
