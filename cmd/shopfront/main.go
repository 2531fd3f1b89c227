package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"shopfront/internal/cache"
	"shopfront/internal/cart"
	"shopfront/internal/commerce"
	"shopfront/internal/config"
	"shopfront/internal/http/handlers"
	applog "shopfront/internal/log"
	"shopfront/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if f := applog.Setup(cfg.LogFile); f != nil {
		defer f.Close()
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := repos.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal(err)
	}

	store, closeStore, err := openCartStore(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	api, err := commerce.New(commerce.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		AdminToken: cfg.AdminAPIToken,
	})
	if err != nil {
		log.Fatal(err)
	}

	deps := handlers.NewDeps(db, cfg, store, api)
	app := handlers.NewApp(handlers.AppOptions{
		TemplateDir:     cfg.TemplateDir,
		StaticDir:       cfg.StaticDir,
		ReloadTemplates: cfg.TemplateReload,
		AccessLog:       true,
	}, deps)

	log.Printf("[http] listening on :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// openCartStore picks the session cart backend named by CART_STORE.
func openCartStore(cfg config.Config, db *sqlx.DB) (cart.Store, func(), error) {
	switch cfg.CartStore {
	case "sqlite":
		return repos.NewCartRepo(db), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisCartStore(client), func() { _ = client.Close() }, nil
	default:
		return cart.NewMemoryStore(), func() {}, nil
	}
}
