package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"igoserver/internal/config"
	"igoserver/internal/server"
)

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("shutdown signal received, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := customServer.Shutdown(ctx); err != nil {
		log.Printf("error during custom shutdown: %v", err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("http server forced to shutdown with error: %v", err)
	}

	done <- true
}

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	customServer, httpServer, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("starting server: %v", err)
	}

	done := make(chan bool, 1)
	go gracefulShutdown(customServer, httpServer, done)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("graceful shutdown complete")
}
