package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Port              string       `yaml:"port"`
	DBPath            string       `yaml:"db_path"`
	ViewDBPath        string       `yaml:"view_db_path"`
	JWTSecret         string       `yaml:"jwt_secret"`
	SessionTTLMinutes int          `yaml:"session_ttl_minutes"`
	RateLimitPerMin   int          `yaml:"rate_limit_per_min"`
	Tiles             TileConfig   `yaml:"tiles"`
	Render            RenderConfig `yaml:"render"`
}

// TileConfig 底图瓦片配置
type TileConfig struct {
	URLTemplate string `yaml:"url_template"`
	Attribution string `yaml:"attribution"`
}

// RenderConfig 渲染管线配置
type RenderConfig struct {
	PlotWidth     int     `yaml:"plot_width"`
	PlotHeight    int     `yaml:"plot_height"`
	ResolutionCap int     `yaml:"resolution_cap"`
	MaxPoints     int64   `yaml:"max_points"`
	Normalization string  `yaml:"normalization"`
	SpreadRadius  int     `yaml:"spread_radius"`
	SpreadCutoff  float64 `yaml:"spread_cutoff"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:              ":8080",
		DBPath:            "./data/taxi.db",
		ViewDBPath:        "./data/views.db",
		JWTSecret:         "your-secret-key-change-in-production",
		SessionTTLMinutes: 30,
		RateLimitPerMin:   120,
		Tiles: TileConfig{
			URLTemplate: "https://a.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors © CARTO",
		},
		Render: RenderConfig{
			PlotWidth:     900,
			PlotHeight:    600,
			ResolutionCap: 1200,
			MaxPoints:     5000000,
			Normalization: "eqhist",
			SpreadRadius:  2,
			SpreadCutoff:  0.05,
		},
	}
}

// Load 加载配置：默认值 → 可选 YAML 文件 → 环境变量
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("VIEW_DB_PATH"); v != "" {
		cfg.ViewDBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TILE_URL"); v != "" {
		cfg.Tiles.URLTemplate = v
	}
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTTLMinutes = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMin = n
		}
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret is required")
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("config: session_ttl_minutes must be positive")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("config: rate_limit_per_min must be positive")
	}
	if c.Render.PlotWidth <= 0 || c.Render.PlotHeight <= 0 {
		return fmt.Errorf("config: plot size must be positive")
	}
	if c.Render.ResolutionCap <= 0 {
		return fmt.Errorf("config: resolution_cap must be positive")
	}
	switch c.Render.Normalization {
	case "linear", "log", "eqhist":
	default:
		return fmt.Errorf("config: unknown normalization %q", c.Render.Normalization)
	}
	if c.Render.SpreadCutoff < 0 || c.Render.SpreadCutoff > 1 {
		return fmt.Errorf("config: spread_cutoff must be within [0, 1]")
	}
	return nil
}

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
