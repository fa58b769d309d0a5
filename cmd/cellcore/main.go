package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cellcore/config"
	"cellcore/engine"
	"cellcore/feed"
	"cellcore/messaging"
	"cellcore/statestore"
	"cellcore/store"
	"cellcore/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "cellcore.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("cellcore", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("cellcore: database open (%s)", cfg.Database.Driver)

	// Redis state mirror
	var redisStore *statestore.RedisStore
	rs := statestore.NewRedisStore(&cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rs.Ping(ctx); err != nil {
		log.Printf("cellcore: redis not available (%v), running without cache", err)
		rs.Close()
	} else {
		log.Printf("cellcore: redis connected (%s)", cfg.Redis.Address)
		redisStore = rs
		defer rs.Close()
	}
	cancel()

	// Plant feed
	plantFeed := feed.NewMQTTClient(&cfg.Feed)
	if err := plantFeed.Connect(); err != nil {
		log.Printf("cellcore: plant feed not available (%v), will retry", err)
	} else {
		log.Printf("cellcore: plant feed connected (%s)", cfg.Feed.Broker)
	}
	defer plantFeed.Disconnect()

	// Messaging client
	msgClient, err := messaging.NewClient(&cfg.Messaging)
	if err != nil {
		log.Fatalf("messaging: %v", err)
	}
	if err := msgClient.Connect(); err != nil {
		log.Printf("cellcore: messaging connect failed (%v)", err)
	} else {
		log.Printf("cellcore: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Feed:       plantFeed,
		MsgClient:  msgClient,
		Redis:      redisStore,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handlers := www.NewHandlers(eng, &cfg.Web)
	addr := www.ListenAddr(&cfg.Web)
	srv := &http.Server{
		Addr:    addr,
		Handler: handlers.Router(),
	}

	go func() {
		log.Printf("cellcore: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("cellcore: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("cellcore: shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("cellcore: stopped")
}
