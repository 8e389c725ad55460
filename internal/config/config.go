package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | fs | postgres
		FSRoot string `yaml:"fs_root"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Ledger struct {
		// Endpoints downstream que reciben cada batch commiteado. Vacío
		// deja la instancia con un notifier en memoria (dev).
		Endpoints []string      `yaml:"endpoints"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"ledger"`

	Mint struct {
		Retries    int           `yaml:"retries"`
		JournalTTL time.Duration `yaml:"journal_ttl"`
	} `yaml:"mint"`

	// Brands conocidos por la instancia. Tienen que estar declarados antes
	// de restaurar seats que los referencien.
	Brands []BrandConfig `yaml:"brands"`
}

// BrandConfig declara un brand y su kind ("nat" | "set").
type BrandConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.FSRoot == "" {
		c.Storage.FSRoot = "data"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = 10 * time.Second
	}
	if c.Mint.Retries == 0 {
		c.Mint.Retries = 3
	}
	if c.Mint.JournalTTL == 0 {
		c.Mint.JournalTTL = 24 * time.Hour
	}

	c.applyEnvOverrides()
	return &c, nil
}

// ───────── helpers de entorno ─────────

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}

func getEnvDur(key string) (time.Duration, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	return d, err == nil
}

func getEnvCSV(key string) ([]string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, false
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out, len(out) > 0
}

// applyEnvOverrides pisa el YAML con variables ESCROW_*. Útil en containers
// donde el archivo es una base y el entorno manda.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("ESCROW_APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("ESCROW_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("ESCROW_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("ESCROW_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("ESCROW_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("ESCROW_STORAGE_FS_ROOT"); ok {
		c.Storage.FSRoot = v
	}
	if v, ok := getEnvStr("ESCROW_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("ESCROW_CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("ESCROW_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("ESCROW_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("ESCROW_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvCSV("ESCROW_LEDGER_ENDPOINTS"); ok {
		c.Ledger.Endpoints = v
	}
	if v, ok := getEnvDur("ESCROW_LEDGER_TIMEOUT"); ok {
		c.Ledger.Timeout = v
	}
	if v, ok := getEnvInt("ESCROW_MINT_RETRIES"); ok {
		c.Mint.Retries = v
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "fs":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr required for redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	for _, b := range c.Brands {
		if b.Name == "" {
			return fmt.Errorf("config: brand without name")
		}
		if b.Kind != "nat" && b.Kind != "set" {
			return fmt.Errorf("config: brand %s has unknown kind %q", b.Name, b.Kind)
		}
	}
	return nil
}
