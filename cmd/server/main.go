package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/thisorthat/api/internal/adapters/handler/http"
	"github.com/thisorthat/api/internal/adapters/repository/postgres"
	"github.com/thisorthat/api/internal/core/services"
	"github.com/thisorthat/api/internal/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("component", "server")

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to reach database")
	}

	hub := realtime.NewHub(logger.WithField("component", "hub"))

	pollRepo := postgres.NewPollRepository(db)
	voteRepo := postgres.NewVoteRepository(db)

	pollService := services.NewPollService(pollRepo, hub, logger.WithField("component", "polls"))
	voteService := services.NewVoteService(pollRepo, voteRepo, hub, logger.WithField("component", "votes"))

	pollHandler := http.NewPollHandler(pollService, voteService)
	voteHandler := http.NewVoteHandler(voteService)
	streamHandler := http.NewStreamHandler(hub, logger.WithField("component", "stream"))
	auth := http.NewAuthMiddleware(os.Getenv("JWT_SECRET"))

	handler := http.NewHandler(pollHandler, voteHandler, streamHandler, auth)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	server := &stdhttp.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("shutdown failed")
	}
}

func dbConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PORT"),
		os.Getenv("POSTGRES_DB"),
	)
}
