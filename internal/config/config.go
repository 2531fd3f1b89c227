package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopfront/internal/pricing"
)

type Config struct {
	Port           string
	DBDSN          string
	LogFile        string
	TemplateDir    string
	StaticDir      string
	// TemplateReload re-parses templates on every render; for local development only.
	TemplateReload bool

	APIBaseURL    string
	APITimeout    time.Duration
	AdminAPIToken string

	// CartStore selects the session cart backend: memory, sqlite or redis.
	CartStore string
	RedisAddr string

	AdminEmail    string
	AdminPassword string

	Pricing pricing.Rules
}

func Load() Config {
	def := pricing.DefaultRules()
	cfg := Config{
		Port:           env("PORT", "8080"),
		DBDSN:          env("DB_DSN", "shopfront.db"), // sqlite file in project root
		LogFile:        env("LOG_FILE", "./shopfront.log"),
		TemplateDir:    env("TEMPLATE_DIR", "./web/templates"),
		StaticDir:      env("STATIC_DIR", "./web/static"),
		TemplateReload: flag("TEMPLATE_RELOAD", false),
		APIBaseURL:     strings.TrimRight(env("API_BASE_URL", "http://localhost:5000/api"), "/"),
		APITimeout:     duration("API_TIMEOUT", 10*time.Second),
		AdminAPIToken:  os.Getenv("ADMIN_API_TOKEN"),
		CartStore:      strings.ToLower(env("CART_STORE", "memory")),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		AdminEmail:     env("ADMIN_EMAIL", "admin@shopfront.test"),
		AdminPassword:  env("ADMIN_PASSWORD", "Passw0rd!"),
		Pricing: pricing.Rules{
			FreeShippingOver: money("FREE_SHIPPING_OVER", def.FreeShippingOver),
			ShippingFlat:     money("SHIPPING_FLAT", def.ShippingFlat),
			TaxRate:          money("TAX_RATE", def.TaxRate),
		},
	}
	switch cfg.CartStore {
	case "memory", "sqlite", "redis":
	default:
		log.Printf("[config] unknown CART_STORE=%q, using memory", cfg.CartStore)
		cfg.CartStore = "memory"
	}

	// never print secrets
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s API_BASE_URL=%s API_TIMEOUT=%s CART_STORE=%s REDIS_ADDR=%s ADMIN_EMAIL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.APIBaseURL, cfg.APITimeout, cfg.CartStore, cfg.RedisAddr, cfg.AdminEmail)
	log.Printf("[config] TEMPLATE_DIR=%s TEMPLATE_RELOAD=%t", cfg.TemplateDir, cfg.TemplateReload)
	log.Printf("[config] FREE_SHIPPING_OVER=%s SHIPPING_FLAT=%s TAX_RATE=%s",
		cfg.Pricing.FreeShippingOver, cfg.Pricing.ShippingFlat, cfg.Pricing.TaxRate)
	return cfg
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func flag(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

func money(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil || d.IsNegative() {
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
