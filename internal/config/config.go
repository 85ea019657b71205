package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	RequestTimeoutMS int      `mapstructure:"REQUEST_TIMEOUT_MS"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`

	// AI similarity contributor. An empty URL disables the factor entirely;
	// scoring proceeds without it.
	AISimilarityURL string  `mapstructure:"AI_SIMILARITY_URL"`
	AIBatchSize     int     `mapstructure:"AI_BATCH_SIZE"`
	AIBatchPauseMS  int     `mapstructure:"AI_BATCH_PAUSE_MS"`
	AIRequestRPS    float64 `mapstructure:"AI_REQUEST_RPS"`

	// Linking engine tunables.
	LinkCommitThreshold float64 `mapstructure:"LINK_COMMIT_THRESHOLD"`
	LinkScoreFloor      float64 `mapstructure:"LINK_SCORE_FLOOR"`
	LinkDateWindowDays  int     `mapstructure:"LINK_DATE_WINDOW_DAYS"`
	LinkTopK            int     `mapstructure:"LINK_TOP_K"`
	UndoWindowSeconds   int     `mapstructure:"UNDO_WINDOW_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT_MS", 30000)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AI_BATCH_SIZE", 5)
	v.SetDefault("AI_BATCH_PAUSE_MS", 250)
	v.SetDefault("AI_REQUEST_RPS", 10)
	v.SetDefault("LINK_COMMIT_THRESHOLD", 0.75)
	v.SetDefault("LINK_SCORE_FLOOR", 0.1)
	v.SetDefault("LINK_DATE_WINDOW_DAYS", 14)
	v.SetDefault("LINK_TOP_K", 5)
	v.SetDefault("UNDO_WINDOW_SECONDS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REQUEST_TIMEOUT_MS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("AI_SIMILARITY_URL")
	v.BindEnv("AI_BATCH_SIZE")
	v.BindEnv("AI_BATCH_PAUSE_MS")
	v.BindEnv("AI_REQUEST_RPS")
	v.BindEnv("LINK_COMMIT_THRESHOLD")
	v.BindEnv("LINK_SCORE_FLOOR")
	v.BindEnv("LINK_DATE_WINDOW_DAYS")
	v.BindEnv("LINK_TOP_K")
	v.BindEnv("UNDO_WINDOW_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.LinkCommitThreshold <= 0 || cfg.LinkCommitThreshold > 1 {
		return nil, fmt.Errorf("LINK_COMMIT_THRESHOLD must be in (0,1], got %v", cfg.LinkCommitThreshold)
	}
	if cfg.LinkScoreFloor < 0 || cfg.LinkScoreFloor >= cfg.LinkCommitThreshold {
		return nil, fmt.Errorf("LINK_SCORE_FLOOR must be in [0, commit threshold), got %v", cfg.LinkScoreFloor)
	}
	if cfg.LinkDateWindowDays <= 0 {
		return nil, fmt.Errorf("LINK_DATE_WINDOW_DAYS must be positive, got %d", cfg.LinkDateWindowDays)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
